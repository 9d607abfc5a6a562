package plan

import (
	"context"
	"math"

	"github.com/kilianp07/chargeplan/core/fault"
	"github.com/kilianp07/chargeplan/core/geo"
	"github.com/kilianp07/chargeplan/core/model"
	"github.com/kilianp07/chargeplan/core/policy"
	"github.com/kilianp07/chargeplan/core/reserve"
	"github.com/kilianp07/chargeplan/core/station"
	"github.com/kilianp07/chargeplan/core/summary"
)

// Stage is one step of the planning state machine. Run transforms the
// working state and returns the next one; it must not retain st.
type Stage interface {
	Name() string
	Run(ctx context.Context, st State) (State, error)
}

// initStage validates the request and normalizes it: SoC clamped to
// [0,100], intent defaulted to PLAN. Any missing field fails the run.
type initStage struct{}

func (initStage) Name() string { return "init" }

func (initStage) Run(_ context.Context, st State) (State, error) {
	req := st.Request
	if !req.Origin.Valid() {
		return st, fault.Validationf("origin coordinates missing or out of range")
	}
	if !req.Destination.Valid() {
		return st, fault.Validationf("destination coordinates missing or out of range")
	}
	if math.IsNaN(req.SoC) || math.IsInf(req.SoC, 0) {
		return st, fault.Validationf("soc missing or not a number")
	}
	req.SoC = math.Max(0, math.Min(100, req.SoC))
	if req.Intent == "" {
		req.Intent = model.IntentPlan
	}
	st.Request = req
	return st, nil
}

// routeStage computes the travel estimate. The estimator already prefers
// the external route service and absorbs its failures, so this stage never
// fails.
type routeStage struct {
	est *geo.Estimator
}

func (routeStage) Name() string { return "route" }

func (s routeStage) Run(ctx context.Context, st State) (State, error) {
	st.Eta = s.est.Estimate(ctx, st.Request.Origin, st.Request.Destination)
	return st, nil
}

// predictStage ranks nearby stations with their wait predictions.
type predictStage struct {
	ranker *station.Ranker
	limit  int
}

func (predictStage) Name() string { return "predict" }

func (s predictStage) Run(ctx context.Context, st State) (State, error) {
	cands, err := s.ranker.Rank(ctx, st.Request.Origin, st.Eta, s.limit)
	if err != nil {
		return st, err
	}
	st.Candidates = cands
	return st, nil
}

// policyStage makes the reserve/no-reserve decision.
type policyStage struct{}

func (policyStage) Name() string { return "policy" }

func (policyStage) Run(_ context.Context, st State) (State, error) {
	dec, err := policy.Decide(st.Request.SoC, st.Eta.EtaMin, st.Candidates)
	if err != nil {
		return st, err
	}
	st.Decision = &dec
	return st, nil
}

// actStage places the reservation when the policy said YES; otherwise it is
// a pass-through. This is the single conditional edge of the pipeline, and
// the reservation is attempted at most once per run.
type actStage struct {
	exec *reserve.Executor
}

func (actStage) Name() string { return "act" }

func (s actStage) Run(ctx context.Context, st State) (State, error) {
	if st.Decision == nil || st.Decision.Decision != model.DecisionYes {
		return st, nil
	}
	res, err := s.exec.Execute(ctx, reserve.Request{
		StationID:        st.Decision.Target.StationID,
		PromisedStartMin: *st.Decision.PromisedStartMin,
		EtaMin:           int(math.Round(st.Eta.EtaMin)),
		UserID:           st.Request.UserID,
	})
	if err != nil {
		return st, err
	}
	st.Reservation = &res
	return st, nil
}

// summarizeStage writes the driver and operator messages. Backend failures
// are absorbed by the composer, so this stage never fails.
type summarizeStage struct {
	composer *summary.Composer
}

func (summarizeStage) Name() string { return "summarize" }

func (s summarizeStage) Run(ctx context.Context, st State) (State, error) {
	reserved := st.Decision != nil && st.Decision.Decision == model.DecisionYes

	var ref *model.StationCandidate
	if reserved {
		for i := range st.Candidates {
			if st.Candidates[i].StationID == st.Decision.Target.StationID {
				ref = &st.Candidates[i]
				break
			}
		}
	}
	if ref == nil && len(st.Candidates) > 0 {
		ref = &st.Candidates[0]
	}
	if ref == nil {
		// Nothing nearby to talk about. The plan schema still requires
		// non-empty summaries.
		st.DriverSummary = summary.Truncate("No charging stations found nearby")
		st.OperatorRationale = summary.Truncate(
			"SOC " + trimFloat(st.Request.SoC) + "%, ETA " + trimFloat(st.Eta.EtaMin) + "min. " + st.Decision.Reason)
		return st, nil
	}

	st.DriverSummary, st.OperatorRationale = s.composer.Compose(ctx, summary.Context{
		SoC:          st.Request.SoC,
		EtaMin:       st.Eta.EtaMin,
		Station:      *ref,
		Reserved:     reserved,
		PolicyReason: st.Decision.Reason,
	})
	return st, nil
}
