package operator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kilianp07/chargeplan/core/model"
	"github.com/kilianp07/chargeplan/infra/store/sqlite"
)

type recordingNotifier struct {
	events []model.Intervention
}

func (n *recordingNotifier) Notify(iv model.Intervention) { n.events = append(n.events, iv) }

func newTestHandler(t *testing.T) (*Handler, *sqlite.Store, *recordingNotifier) {
	t.Helper()
	store, err := sqlite.Open(sqlite.Config{Path: filepath.Join(t.TempDir(), "op.sqlite3")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Seed(context.Background(), sqlite.DemoStations()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	notifier := &recordingNotifier{}
	return New(store, notifier, nil), store, notifier
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestOverview(t *testing.T) {
	h, store, _ := newTestHandler(t)

	promised, actual := 10, 14
	if err := store.AppendIntervention(context.Background(), model.Intervention{
		Timestamp: time.Now().UTC(), Action: model.ActionReserve,
		StationID: "st-001", PromisedStartMin: &promised, ActualStartMin: &actual,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/operator/overview", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp overviewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(resp.UptimeByStation) != 4 || len(resp.BufferStatus) != 4 || len(resp.TrustLeaderboard) != 4 {
		t.Fatalf("per-station sections incomplete: %+v", resp)
	}
	uptimes := map[string]float64{}
	for _, u := range resp.UptimeByStation {
		uptimes[u.StationID] = u.Uptime
	}
	// st-003 has one available and one faulted connector.
	if uptimes["st-003"] != 0.5 {
		t.Fatalf("st-003 uptime = %v, want 0.5", uptimes["st-003"])
	}
	if uptimes["st-004"] != 1 {
		t.Fatalf("st-004 uptime = %v, want 1", uptimes["st-004"])
	}
	if resp.ReservationAccuracyP90 != 4 {
		t.Fatalf("accuracy p90 = %v, want 4", resp.ReservationAccuracyP90)
	}
}

func TestInterventionsEndpoint(t *testing.T) {
	h, store, _ := newTestHandler(t)
	if err := store.AppendIntervention(context.Background(), model.Intervention{
		Timestamp: time.Now().UTC(), Action: model.ActionQuarantine, StationID: "st-001",
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/operator/interventions?station_id=st-001", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var ivs []model.Intervention
	if err := json.Unmarshal(rec.Body.Bytes(), &ivs); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(ivs) != 1 || ivs[0].Action != model.ActionQuarantine {
		t.Fatalf("unexpected listing: %+v", ivs)
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/operator/interventions?limit=zero", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit should 400, got %d", rec.Code)
	}
}

func quarantineBody(connector, action string) *strings.Reader {
	return strings.NewReader(`{"connector_id":"` + connector + `","action":"` + action + `"}`)
}

func TestQuarantineRoundTrip(t *testing.T) {
	h, store, notifier := newTestHandler(t)

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/operator/quarantine",
		quarantineBody("st-001-c1", model.ActionQuarantine)))
	if rec.Code != http.StatusOK {
		t.Fatalf("quarantine: %d %s", rec.Code, rec.Body.String())
	}
	var resp quarantineResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if resp.Status != model.StatusFaulted {
		t.Fatalf("connector should be faulted, got %s", resp.Status)
	}
	if len(notifier.events) != 1 || notifier.events[0].Action != model.ActionQuarantine {
		t.Fatalf("notifier not invoked: %+v", notifier.events)
	}

	ivs, err := store.Interventions(context.Background(), sqlite.InterventionFilter{Action: model.ActionQuarantine})
	if err != nil || len(ivs) != 1 {
		t.Fatalf("audit entry missing: %+v %v", ivs, err)
	}
	if ivs[0].Reason != "operator_action" {
		t.Fatalf("audit reason = %q", ivs[0].Reason)
	}

	rec = serve(h, httptest.NewRequest(http.MethodPost, "/operator/quarantine",
		quarantineBody("st-001-c1", model.ActionUnquarantine)))
	if rec.Code != http.StatusOK {
		t.Fatalf("unquarantine: %d", rec.Code)
	}
}

func TestQuarantineConflictsAndErrors(t *testing.T) {
	h, _, _ := newTestHandler(t)

	// st-001-c2 is charging; quarantine must be refused.
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/operator/quarantine",
		quarantineBody("st-001-c2", model.ActionQuarantine)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("charging connector should 409, got %d", rec.Code)
	}

	// Unquarantining a charging connector is just as invalid.
	rec = serve(h, httptest.NewRequest(http.MethodPost, "/operator/quarantine",
		quarantineBody("st-001-c2", model.ActionUnquarantine)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("charging connector should 409, got %d", rec.Code)
	}

	rec = serve(h, httptest.NewRequest(http.MethodPost, "/operator/quarantine",
		quarantineBody("ghost", model.ActionQuarantine)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown connector should 404, got %d", rec.Code)
	}

	rec = serve(h, httptest.NewRequest(http.MethodPost, "/operator/quarantine",
		quarantineBody("st-001-c1", "EXPLODE")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown action should 400, got %d", rec.Code)
	}
}
