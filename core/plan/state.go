package plan

import "github.com/kilianp07/chargeplan/core/model"

// State is the working record threaded through the pipeline. Every stage
// receives it by value and returns a new value; nothing is shared between
// runs, which keeps concurrent runs independent and each stage testable in
// isolation.
type State struct {
	Request           model.PlanRequest
	Eta               model.EtaResult
	Candidates        []model.StationCandidate
	Decision          *model.ReservationDecision
	Reservation       *model.Reservation
	DriverSummary     string
	OperatorRationale string
	Plan              *model.Plan
}

// Tool names recorded in the plan's steps log, one per decision stage.
const (
	ToolRoute   = "route_compute_eta"
	ToolPredict = "station_predict"
	ToolPolicy  = "policy_decide_reserve"
	ToolReserve = "reserve_connector"
)
