package model

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// Intent values accepted on a plan request. Only PLAN is implemented; the
// field exists so future intents keep the same request shape.
const IntentPlan = "PLAN"

// Coordinate is a WGS84 position.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is a finite, in-range position.
func (c Coordinate) Valid() bool {
	return !math.IsNaN(c.Lat) && !math.IsInf(c.Lat, 0) &&
		!math.IsNaN(c.Lon) && !math.IsInf(c.Lon, 0) &&
		c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// PlanRequest is the immutable input of one planning run. SoC is clamped to
// [0,100] and Intent defaulted during pipeline init.
type PlanRequest struct {
	Origin      Coordinate `json:"origin"`
	Destination Coordinate `json:"destination"`
	SoC         float64    `json:"soc"`
	UserID      string     `json:"user_id"`
	Intent      string     `json:"intent,omitempty"`
}

// EtaSource tells whether an ETA came from the external route service or the
// built-in estimator.
type EtaSource string

const (
	SourceEstimated EtaSource = "estimated"
	SourceMeasured  EtaSource = "measured"
)

// EtaResult is the travel estimate to the candidate area.
type EtaResult struct {
	EtaMin     float64   `json:"eta_min"`
	DistanceKM float64   `json:"distance_km"`
	Source     EtaSource `json:"source"`
}

// StationCandidate is a ranked charging option for the current run. It only
// lives for the duration of one request.
type StationCandidate struct {
	StationID        string     `json:"station_id"`
	Name             string     `json:"name"`
	Lat              float64    `json:"lat"`
	Lon              float64    `json:"lon"`
	DistanceKM       float64    `json:"distance_km"`
	FreeConnectors   int        `json:"free_connectors"`
	P50WaitMin       float64    `json:"p50_wait_min"`
	P90WaitMin       float64    `json:"p90_wait_min"`
	TrustBadge       TrustBadge `json:"trust_badge"`
	ExpectedStartMin float64    `json:"expected_start_min"`
	ColorBand        ColorBand  `json:"color_band"`
}

// ReservationDecision is the policy verdict for one run. Target is nil iff
// Decision is DecisionNo.
type ReservationDecision struct {
	Decision         string            `json:"decision"`
	Reason           string            `json:"reason"`
	Target           *StationCandidate `json:"target,omitempty"`
	PromisedStartMin *int              `json:"promised_start_min,omitempty"`
}

const (
	DecisionYes = "YES"
	DecisionNo  = "NO"
)

// PlanAction is the tagged action variant of a plan: either a RESERVE carried
// out at a station, or NONE with the policy reason.
type PlanAction struct {
	Type             string `json:"type"`
	StationID        string `json:"station_id,omitempty"`
	ReservationID    string `json:"reservation_id,omitempty"`
	PromisedStartMin *int   `json:"promised_start_min,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

const (
	ActionTypeReserve = "RESERVE"
	ActionTypeNone    = "NONE"
)

// PlanStep records one executed pipeline stage and its output for auditing.
type PlanStep struct {
	Tool   string `json:"tool"`
	Result any    `json:"result"`
}

// Plan is the terminal artifact of one pipeline run, immutable once
// validated.
type Plan struct {
	Steps             []PlanStep         `json:"steps"`
	Actions           []PlanAction       `json:"actions"`
	Stations          []StationCandidate `json:"stations"`
	SafeCorridor      []string           `json:"safe_corridor"`
	DriverSummary     string             `json:"driver_summary"`
	OperatorRationale string             `json:"operator_rationale"`
	Error             string             `json:"error,omitempty"`
}

// MaxSummaryLen bounds both human-readable summaries.
const MaxSummaryLen = 140

// MaxPlanStations caps the station cards included in the plan. The safe
// corridor still lists every ranked station.
const MaxPlanStations = 4

const p90Ratio = 1.6

// Validate checks the assembled plan against the plan schema. A failure
// here means an earlier stage produced inconsistent output.
func (p Plan) Validate() error {
	if p.DriverSummary == "" || utf8.RuneCountInString(p.DriverSummary) > MaxSummaryLen {
		return fmt.Errorf("driver_summary must be 1-%d characters", MaxSummaryLen)
	}
	if p.OperatorRationale == "" || utf8.RuneCountInString(p.OperatorRationale) > MaxSummaryLen {
		return fmt.Errorf("operator_rationale must be 1-%d characters", MaxSummaryLen)
	}
	if len(p.Actions) != 1 {
		return fmt.Errorf("plan must carry exactly one action, got %d", len(p.Actions))
	}
	switch a := p.Actions[0]; a.Type {
	case ActionTypeReserve:
		if a.StationID == "" || a.ReservationID == "" || a.PromisedStartMin == nil {
			return fmt.Errorf("RESERVE action missing station, reservation or promised start")
		}
	case ActionTypeNone:
		if a.Reason == "" {
			return fmt.Errorf("NONE action missing reason")
		}
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	if len(p.Stations) > MaxPlanStations {
		return fmt.Errorf("plan lists %d stations, max %d", len(p.Stations), MaxPlanStations)
	}
	for _, s := range p.Stations {
		if math.Abs(s.P90WaitMin-p90Ratio*s.P50WaitMin) > 1e-9 {
			return fmt.Errorf("station %s: p90 wait %.4f is not %.1fx p50 %.4f",
				s.StationID, s.P90WaitMin, p90Ratio, s.P50WaitMin)
		}
	}
	for i := 1; i < len(p.Stations); i++ {
		if p.Stations[i].ExpectedStartMin < p.Stations[i-1].ExpectedStartMin {
			return fmt.Errorf("stations not sorted by expected start")
		}
	}
	if len(p.SafeCorridor) < len(p.Stations) {
		return fmt.Errorf("safe_corridor shorter than station list")
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan has no recorded steps")
	}
	return nil
}
