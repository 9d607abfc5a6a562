package plan

import (
	"context"
	"fmt"

	"github.com/kilianp07/chargeplan/core/fault"
	"github.com/kilianp07/chargeplan/core/logger"
	"github.com/kilianp07/chargeplan/core/model"
)

// buildStage merges all prior stage outputs into the plan record.
type buildStage struct{}

func (buildStage) Name() string { return "build" }

func (buildStage) Run(_ context.Context, st State) (State, error) {
	steps := []model.PlanStep{
		{Tool: ToolRoute, Result: st.Eta},
		{Tool: ToolPredict, Result: st.Candidates},
		{Tool: ToolPolicy, Result: st.Decision},
	}
	if st.Reservation != nil {
		steps = append(steps, model.PlanStep{Tool: ToolReserve, Result: st.Reservation})
	}

	var action model.PlanAction
	if st.Decision.Decision == model.DecisionYes && st.Reservation != nil {
		promised := st.Reservation.PromisedStartMin
		action = model.PlanAction{
			Type:             model.ActionTypeReserve,
			StationID:        st.Decision.Target.StationID,
			ReservationID:    st.Reservation.ID,
			PromisedStartMin: &promised,
		}
	} else {
		action = model.PlanAction{Type: model.ActionTypeNone, Reason: st.Decision.Reason}
	}

	top := st.Candidates
	if len(top) > model.MaxPlanStations {
		top = top[:model.MaxPlanStations]
	}
	// Candidates are already sorted by expected start; the corridor keeps
	// the full ranked set, not just the cards shown to the driver.
	corridor := make([]string, len(st.Candidates))
	for i, c := range st.Candidates {
		corridor[i] = c.StationID
	}

	st.Plan = &model.Plan{
		Steps:             steps,
		Actions:           []model.PlanAction{action},
		Stations:          top,
		SafeCorridor:      corridor,
		DriverSummary:     st.DriverSummary,
		OperatorRationale: st.OperatorRationale,
	}
	return st, nil
}

// validateStage re-checks the assembled plan against the schema. A failure
// here is a defect in an earlier stage, never a caller mistake, so it is
// logged at error level before surfacing.
type validateStage struct {
	log logger.Logger
}

func (validateStage) Name() string { return "validate" }

func (s validateStage) Run(_ context.Context, st State) (State, error) {
	if st.Plan == nil {
		err := &fault.SchemaViolation{Err: fmt.Errorf("no plan assembled")}
		s.log.Errorf("internal defect: %v", err)
		return st, err
	}
	if err := st.Plan.Validate(); err != nil {
		sv := &fault.SchemaViolation{Err: err}
		s.log.Errorf("internal defect: %v", sv)
		return st, sv
	}
	return st, nil
}

func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
