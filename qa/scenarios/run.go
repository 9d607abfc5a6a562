package scenarios

import (
	"context"
	"testing"
	"time"

	"github.com/kilianp07/chargeplan/core/fault"
	"github.com/kilianp07/chargeplan/core/geo"
	"github.com/kilianp07/chargeplan/core/model"
	"github.com/kilianp07/chargeplan/core/plan"
	"github.com/kilianp07/chargeplan/core/reserve"
	"github.com/kilianp07/chargeplan/core/station"
	"github.com/kilianp07/chargeplan/core/summary"
)

type scenarioDirectory struct {
	stations []model.Station
}

func (d scenarioDirectory) ListAll(ctx context.Context) ([]model.Station, error) {
	return d.stations, nil
}

func (d scenarioDirectory) Get(ctx context.Context, id string) (model.Station, error) {
	for _, s := range d.stations {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Station{}, &fault.NotFoundError{Kind: "station", ID: id, Err: fault.ErrStationNotFound}
}

type scenarioStore struct {
	reservations []model.Reservation
}

func (s *scenarioStore) Reserve(ctx context.Context, res model.Reservation, audit model.Intervention) (model.Reservation, error) {
	res.ConnectorID = "scenario-connector"
	s.reservations = append(s.reservations, res)
	return res, nil
}

func RunScenario(t *testing.T, sc *Scenario) {
	stations := make([]model.Station, len(sc.Stations))
	for i, def := range sc.Stations {
		stations[i] = def.ToModel()
	}
	store := &scenarioStore{}

	// Off-peak clock keeps the travel model deterministic across runs.
	clock := func() time.Time { return time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC) }
	p := plan.New(plan.Options{
		Estimator: geo.New(geo.Config{}, nil, nil).WithClock(clock),
		Ranker:    station.NewRanker(scenarioDirectory{stations: stations}, "10,25"),
		Executor:  reserve.NewExecutor(store, func() string { return "scenario-res" }, nil),
		Composer:  summary.NewComposer(nil, 0, nil),
	})

	result, err := p.Run(context.Background(), sc.Request.ToModel())
	if err != nil {
		t.Fatalf("scenario %s: run failed: %v", sc.Name, err)
	}

	action := result.Actions[0]
	if action.Type != sc.Expected.Action {
		t.Errorf("scenario %s: action %s, want %s", sc.Name, action.Type, sc.Expected.Action)
	}
	if sc.Expected.Reason != "" && action.Reason != sc.Expected.Reason {
		t.Errorf("scenario %s: reason %q, want %q", sc.Name, action.Reason, sc.Expected.Reason)
	}
	if sc.Expected.StationID != "" && action.StationID != sc.Expected.StationID {
		t.Errorf("scenario %s: station %s, want %s", sc.Name, action.StationID, sc.Expected.StationID)
	}
	if len(store.reservations) != sc.Expected.Reservations {
		t.Errorf("scenario %s: %d reservations, want %d",
			sc.Name, len(store.reservations), sc.Expected.Reservations)
	}
}
