package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kilianp07/chargeplan/core/fault"
	"github.com/kilianp07/chargeplan/core/model"
)

func openSeeded(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "test.sqlite3")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Seed(context.Background(), DemoStations()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func TestListAllAndGet(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	stations, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stations) != 4 {
		t.Fatalf("expected 4 stations, got %d", len(stations))
	}
	for _, st := range stations {
		if len(st.Connectors) == 0 {
			t.Fatalf("station %s lost its connectors", st.ID)
		}
		for _, c := range st.Connectors {
			if c.StationID != st.ID {
				t.Fatalf("connector %s attached to wrong station", c.ID)
			}
		}
	}

	st, err := s.Get(ctx, "st-001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if st.Name != "Riverside Hub" || len(st.Connectors) != 3 {
		t.Fatalf("unexpected station: %+v", st)
	}

	if _, err := s.Get(ctx, "st-999"); !fault.IsNotFound(err) {
		t.Fatalf("unknown station should be not-found, got %v", err)
	}
}

func TestSeededFlag(t *testing.T) {
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "empty.sqlite3")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	seeded, err := s.Seeded(context.Background())
	if err != nil || seeded {
		t.Fatalf("fresh store should not be seeded: %v %v", seeded, err)
	}
	if err := s.Seed(context.Background(), DemoStations()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	seeded, err = s.Seeded(context.Background())
	if err != nil || !seeded {
		t.Fatalf("store should be seeded: %v %v", seeded, err)
	}
}

func testReservation(station, connector string) model.Reservation {
	return model.Reservation{
		ID:               "res-" + station + "-" + connector,
		StationID:        station,
		ConnectorID:      connector,
		UserID:           "u-1",
		EtaMin:           7,
		PromisedStartMin: 12,
		State:            model.ReservationActive,
		ExpiresAt:        time.Now().Add(22 * time.Minute),
	}
}

func testAudit(station string) model.Intervention {
	promised := 12
	return model.Intervention{
		Timestamp:        time.Now().UTC(),
		Action:           model.ActionReserve,
		Reason:           "policy_decision",
		StationID:        station,
		PromisedStartMin: &promised,
	}
}

func TestReservePicksAvailableConnector(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	res, err := s.Reserve(ctx, testReservation("st-001", ""), testAudit("st-001"))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if res.ConnectorID != "st-001-c1" {
		t.Fatalf("first available connector expected, got %s", res.ConnectorID)
	}

	st, err := s.Get(ctx, "st-001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, c := range st.Connectors {
		if c.ID == res.ConnectorID && c.Status != model.StatusReserved {
			t.Fatalf("connector not flipped to reserved: %+v", c)
		}
	}

	ivs, err := s.Interventions(ctx, InterventionFilter{StationID: "st-001"})
	if err != nil {
		t.Fatalf("interventions: %v", err)
	}
	if len(ivs) != 1 || ivs[0].Action != model.ActionReserve || ivs[0].ConnectorID != res.ConnectorID {
		t.Fatalf("audit entry missing or wrong: %+v", ivs)
	}
}

func TestReserveUnknownStation(t *testing.T) {
	s := openSeeded(t)
	_, err := s.Reserve(context.Background(), testReservation("st-999", ""), testAudit("st-999"))
	if !fault.IsNotFound(err) {
		t.Fatalf("unknown station should be not-found, got %v", err)
	}
}

func TestReserveNoAvailableConnector(t *testing.T) {
	s := openSeeded(t)
	// st-002 has both connectors charging.
	_, err := s.Reserve(context.Background(), testReservation("st-002", ""), testAudit("st-002"))
	if !fault.IsConflict(err) {
		t.Fatalf("fully busy station should conflict, got %v", err)
	}
}

func TestReserveCASLosesRace(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	first := testReservation("st-003", "st-003-c1")
	first.ID = "res-first"
	if _, err := s.Reserve(ctx, first, testAudit("st-003")); err != nil {
		t.Fatalf("first reserve: %v", err)
	}

	second := testReservation("st-003", "st-003-c1")
	second.ID = "res-second"
	_, err := s.Reserve(ctx, second, testAudit("st-003"))
	if !fault.IsConflict(err) {
		t.Fatalf("second reserve on same connector should conflict, got %v", err)
	}

	// The losing run must leave no trace: no reservation row, no audit row
	// beyond the winner's.
	ivs, err := s.Interventions(ctx, InterventionFilter{StationID: "st-003"})
	if err != nil {
		t.Fatalf("interventions: %v", err)
	}
	if len(ivs) != 1 {
		t.Fatalf("losing reserve left audit rows: %d", len(ivs))
	}
}

func TestReserveConcurrentLastConnector(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	// st-003 has a single available connector; race 4 runs for it.
	const runs = 4
	var wg sync.WaitGroup
	errs := make([]error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := testReservation("st-003", "")
			res.ID = res.ID + "-" + string(rune('a'+i))
			_, errs[i] = s.Reserve(ctx, res, testAudit("st-003"))
		}(i)
	}
	wg.Wait()

	var ok, conflict int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case fault.IsConflict(err):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflict != runs-1 {
		t.Fatalf("exactly one run should win the connector: ok=%d conflict=%d", ok, conflict)
	}
}

func TestExpireDue(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	res := testReservation("st-004", "")
	res.ExpiresAt = time.Now().Add(-time.Minute)
	placed, err := s.Reserve(ctx, res, testAudit("st-004"))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	n, err := s.ExpireDue(ctx, time.Now())
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired reservation, got %d", n)
	}

	st, err := s.Get(ctx, "st-004")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, c := range st.Connectors {
		if c.ID == placed.ConnectorID && c.Status != model.StatusAvailable {
			t.Fatalf("expired reservation should release the connector: %+v", c)
		}
	}

	// Idempotent on a second sweep.
	n, err = s.ExpireDue(ctx, time.Now())
	if err != nil || n != 0 {
		t.Fatalf("second sweep should expire nothing: %d %v", n, err)
	}
}
