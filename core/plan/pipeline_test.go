package plan

import (
	"context"
	"testing"
	"time"

	"github.com/kilianp07/chargeplan/core/fault"
	"github.com/kilianp07/chargeplan/core/geo"
	"github.com/kilianp07/chargeplan/core/model"
	"github.com/kilianp07/chargeplan/core/reserve"
	"github.com/kilianp07/chargeplan/core/station"
	"github.com/kilianp07/chargeplan/core/summary"
	"github.com/kilianp07/chargeplan/internal/eventbus"
)

var (
	testOrigin = model.Coordinate{Lat: 48.8566, Lon: 2.3522}
	testDest   = model.Coordinate{Lat: 48.8600, Lon: 2.3600}
)

func offPeak() time.Time { return time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC) }

type memDirectory struct {
	stations []model.Station
}

func (d memDirectory) ListAll(ctx context.Context) ([]model.Station, error) { return d.stations, nil }

func (d memDirectory) Get(ctx context.Context, id string) (model.Station, error) {
	for _, s := range d.stations {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Station{}, &fault.NotFoundError{Kind: "station", ID: id, Err: fault.ErrStationNotFound}
}

type memReserveStore struct {
	reservations []model.Reservation
	err          error
}

func (s *memReserveStore) Reserve(ctx context.Context, res model.Reservation, audit model.Intervention) (model.Reservation, error) {
	if s.err != nil {
		return model.Reservation{}, s.err
	}
	res.ConnectorID = "conn-1"
	s.reservations = append(s.reservations, res)
	return res, nil
}

func testStations(freeConnectors int) []model.Station {
	st := model.Station{ID: "st-001", Name: "Gare Sud", Lat: 48.857, Lon: 2.353}
	for i := 0; i < freeConnectors; i++ {
		st.Connectors = append(st.Connectors, model.Connector{
			Type: model.ConnectorDC, Status: model.StatusAvailable, TrustBadge: model.BadgeA,
		})
	}
	st.Connectors = append(st.Connectors, model.Connector{
		Type: model.ConnectorDC, Status: model.StatusCharging, TrustBadge: model.BadgeA,
	})
	return []model.Station{st}
}

func newTestPipeline(dir station.Directory, store reserve.Store, bus eventbus.EventBus) *Pipeline {
	return New(Options{
		Estimator: geo.New(geo.Config{}, nil, nil).WithClock(offPeak),
		Ranker:    station.NewRanker(dir, "10,25"),
		Executor:  reserve.NewExecutor(store, func() string { return "res-1" }, nil),
		Composer:  summary.NewComposer(nil, 0, nil),
		Bus:       bus,
	})
}

func TestPipelineReserves(t *testing.T) {
	store := &memReserveStore{}
	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe()
	p := newTestPipeline(memDirectory{stations: testStations(1)}, store, bus)

	plan, err := p.Run(context.Background(), model.PlanRequest{
		Origin: testOrigin, Destination: testDest, SoC: 5, UserID: "u-1",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(plan.Actions) != 1 || plan.Actions[0].Type != model.ActionTypeReserve {
		t.Fatalf("critical battery should reserve: %+v", plan.Actions)
	}
	if plan.Actions[0].ReservationID != "res-1" || plan.Actions[0].StationID != "st-001" {
		t.Fatalf("action does not reference the reservation: %+v", plan.Actions[0])
	}
	if len(store.reservations) != 1 {
		t.Fatalf("expected one persisted reservation, got %d", len(store.reservations))
	}
	if got := plan.Steps[len(plan.Steps)-1].Tool; got != ToolReserve {
		t.Fatalf("reserve step missing from steps log: %+v", plan.Steps)
	}
	if plan.DriverSummary == "" || plan.OperatorRationale == "" {
		t.Fatal("summaries must be populated")
	}

	var sawReservation bool
	deadline := time.After(time.Second)
	for !sawReservation {
		select {
		case ev := <-sub:
			if re, ok := ev.(ReservationEvent); ok {
				if re.Reservation.ID != "res-1" || re.UserID != "u-1" {
					t.Fatalf("bad reservation event: %+v", re)
				}
				sawReservation = true
			}
		case <-deadline:
			t.Fatal("reservation event never published")
		}
	}
}

func TestPipelineSkipsActOnNoDecision(t *testing.T) {
	store := &memReserveStore{}
	p := newTestPipeline(memDirectory{stations: testStations(2)}, store, nil)

	plan, err := p.Run(context.Background(), model.PlanRequest{
		Origin: testOrigin, Destination: testDest, SoC: 80, UserID: "u-2",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if plan.Actions[0].Type != model.ActionTypeNone {
		t.Fatalf("healthy battery should not reserve: %+v", plan.Actions)
	}
	if plan.Actions[0].Reason == "" {
		t.Fatal("NONE action needs the policy reason")
	}
	if len(store.reservations) != 0 {
		t.Fatalf("no reservation expected, got %d", len(store.reservations))
	}
	for _, s := range plan.Steps {
		if s.Tool == ToolReserve {
			t.Fatal("reserve step must be absent on a NO decision")
		}
	}
}

func TestPipelineNoStations(t *testing.T) {
	p := newTestPipeline(memDirectory{}, &memReserveStore{}, nil)

	plan, err := p.Run(context.Background(), model.PlanRequest{
		Origin: testOrigin, Destination: testDest, SoC: 50, UserID: "u-3",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if plan.Actions[0].Type != model.ActionTypeNone {
		t.Fatalf("no stations should yield NONE: %+v", plan.Actions)
	}
	if plan.DriverSummary != "No charging stations found nearby" {
		t.Fatalf("driver summary = %q", plan.DriverSummary)
	}
	if len(plan.Stations) != 0 || len(plan.SafeCorridor) != 0 {
		t.Fatalf("empty directory should produce empty station lists: %+v", plan)
	}
}

func TestPipelineValidationError(t *testing.T) {
	p := newTestPipeline(memDirectory{stations: testStations(1)}, &memReserveStore{}, nil)

	_, err := p.Run(context.Background(), model.PlanRequest{
		Origin: model.Coordinate{Lat: 200, Lon: 0}, Destination: testDest, SoC: 50,
	})
	if !fault.IsValidation(err) {
		t.Fatalf("bad origin should fail validation, got %v", err)
	}
}

func TestPipelineConflictSurfaces(t *testing.T) {
	store := &memReserveStore{err: &fault.ConflictError{Err: fault.ErrNoConnector}}
	p := newTestPipeline(memDirectory{stations: testStations(1)}, store, nil)

	_, err := p.Run(context.Background(), model.PlanRequest{
		Origin: testOrigin, Destination: testDest, SoC: 5, UserID: "u-4",
	})
	if !fault.IsConflict(err) {
		t.Fatalf("store conflict should abort the run, got %v", err)
	}
}

func TestPipelineClampsSoC(t *testing.T) {
	p := newTestPipeline(memDirectory{stations: testStations(2)}, &memReserveStore{}, nil)

	// SoC over 100 clamps to 100 and plans normally instead of failing.
	plan, err := p.Run(context.Background(), model.PlanRequest{
		Origin: testOrigin, Destination: testDest, SoC: 140, UserID: "u-5",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if plan.Actions[0].Type != model.ActionTypeNone {
		t.Fatalf("clamped healthy battery should not reserve: %+v", plan.Actions)
	}
}
