// Package policy holds the reserve/no-reserve decision logic. Decide is a
// pure function: identical inputs always produce the identical decision.
package policy

import (
	"math"
	"sort"

	"github.com/kilianp07/chargeplan/core/fault"
	"github.com/kilianp07/chargeplan/core/model"
)

// Risk thresholds. The comparison operators are part of the contract:
// expected start strictly greater than the escalation bounds raises risk,
// and reservation triggers at risk >= ReserveThreshold.
const (
	baseRisk         = 0.2
	criticalSoCRisk  = 0.8
	lateStartRisk    = 0.5
	ReserveThreshold = 0.70

	criticalSoC       = 10.0
	lateStartBoundMin = 10.0
	highStartBoundMin = 25.0
)

// Decision reasons surfaced to the operator rationale.
const (
	ReasonAcceptable = "Risk level acceptable"
	ReasonNoTargets  = "No valid targets"
	ReasonRisk       = "Risk mitigation required"
	ReasonNoFree     = "No free spots"
)

// Decide scores battery risk against the candidate list and returns the
// reservation decision. Candidates are not mutated; expected start is
// recomputed here from etaMin and each candidate's p50 wait.
func Decide(soc, etaMin float64, candidates []model.StationCandidate) (model.ReservationDecision, error) {
	for _, c := range candidates {
		if c.StationID == "" {
			return model.ReservationDecision{}, fault.Validationf("candidate missing station_id")
		}
		if c.P50WaitMin < 0 || c.P90WaitMin < 0 {
			return model.ReservationDecision{}, fault.Validationf("candidate %s has negative wait", c.StationID)
		}
		if c.TrustBadge == "" {
			return model.ReservationDecision{}, fault.Validationf("candidate %s missing trust_badge", c.StationID)
		}
	}

	anyFree := false
	for _, c := range candidates {
		if c.FreeConnectors > 0 {
			anyFree = true
			break
		}
	}

	ranked := make([]model.StationCandidate, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		ranked[i].ExpectedStartMin = etaMin + ranked[i].P50WaitMin
	}
	// Equal expected starts favor the more trustworthy station.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].ExpectedStartMin != ranked[j].ExpectedStartMin {
			return ranked[i].ExpectedStartMin < ranked[j].ExpectedStartMin
		}
		return ranked[i].TrustBadge.Rank() < ranked[j].TrustBadge.Rank()
	})

	risk := baseRisk
	if soc < criticalSoC {
		risk = math.Max(risk, criticalSoCRisk)
	}

	var target *model.StationCandidate
	if len(ranked) > 0 {
		target = &ranked[0]
		if target.ExpectedStartMin > highStartBoundMin {
			risk = 1.0
		} else if target.ExpectedStartMin > lateStartBoundMin {
			risk = math.Max(risk, lateStartRisk)
		}
	}

	shouldReserve := risk >= ReserveThreshold || !anyFree

	if !shouldReserve || target == nil {
		reason := ReasonNoTargets
		if !shouldReserve {
			reason = ReasonAcceptable
		}
		return model.ReservationDecision{Decision: model.DecisionNo, Reason: reason}, nil
	}

	promised := int(math.Floor(target.ExpectedStartMin))
	reason := ReasonNoFree
	if risk >= ReserveThreshold {
		reason = ReasonRisk
	}
	t := *target
	return model.ReservationDecision{
		Decision:         model.DecisionYes,
		Reason:           reason,
		Target:           &t,
		PromisedStartMin: &promised,
	}, nil
}
