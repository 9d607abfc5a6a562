// Package operator exposes the dashboard read endpoints and the quarantine
// mutation over the same station store the planner uses.
package operator

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/chargeplan/core/fault"
	"github.com/kilianp07/chargeplan/core/logger"
	"github.com/kilianp07/chargeplan/core/model"
	"github.com/kilianp07/chargeplan/infra/store/sqlite"
)

// Store is the persistence surface the operator endpoints consume.
type Store interface {
	ListAll(ctx context.Context) ([]model.Station, error)
	Interventions(ctx context.Context, f sqlite.InterventionFilter) ([]model.Intervention, error)
	AppendIntervention(ctx context.Context, iv model.Intervention) error
	SetConnectorStatus(ctx context.Context, connectorID string, to model.ConnectorStatus, from ...model.ConnectorStatus) (model.Connector, error)
	AccuracySamples(ctx context.Context) ([]sqlite.AccuracySample, error)
}

// Notifier mirrors operator actions to external listeners. May be nil.
type Notifier interface {
	Notify(iv model.Intervention)
}

// Handler serves the operator endpoints.
type Handler struct {
	store    Store
	notifier Notifier
	log      logger.Logger
	now      func() time.Time
}

// New creates the operator Handler. notifier may be nil.
func New(store Store, notifier Notifier, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop{}
	}
	return &Handler{store: store, notifier: notifier, log: log, now: time.Now}
}

// Register mounts the operator routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/operator/overview", h.overview)
	mux.HandleFunc("/operator/interventions", h.interventions)
	mux.HandleFunc("/operator/quarantine", h.quarantine)
}

type uptimeEntry struct {
	StationID string  `json:"station_id"`
	Uptime    float64 `json:"uptime"`
}

type bufferEntry struct {
	StationID   string `json:"station_id"`
	Configured  int    `json:"configured"`
	ReservedNow int    `json:"reserved_now"`
}

type trustEntry struct {
	StationID string `json:"station_id"`
	A         int    `json:"A"`
	B         int    `json:"B"`
	C         int    `json:"C"`
	D         int    `json:"D"`
}

type snifferEntry struct {
	ConnectorID string  `json:"connector_id"`
	Score       float64 `json:"score"`
	Basis       string  `json:"basis"`
}

type overviewResponse struct {
	UptimeByStation        []uptimeEntry  `json:"uptime_by_station"`
	BufferStatus           []bufferEntry  `json:"buffer_status"`
	SnifferList            []snifferEntry `json:"sniffer_list"`
	ReservationAccuracyP90 float64        `json:"reservation_accuracy_p90"`
	TrustLeaderboard       []trustEntry   `json:"trust_leaderboard"`
}

// A connector counts as up when it can serve or is serving a session.
func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stations, err := h.store.ListAll(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}

	resp := overviewResponse{
		UptimeByStation:  []uptimeEntry{},
		BufferStatus:     []bufferEntry{},
		SnifferList:      []snifferEntry{},
		TrustLeaderboard: []trustEntry{},
	}
	for _, st := range stations {
		var up, reserved int
		trust := trustEntry{StationID: st.ID}
		for _, c := range st.Connectors {
			switch c.Status {
			case model.StatusAvailable, model.StatusCharging:
				up++
			case model.StatusReserved:
				reserved++
			}
			switch c.TrustBadge {
			case model.BadgeA:
				trust.A++
			case model.BadgeB:
				trust.B++
			case model.BadgeC:
				trust.C++
			default:
				trust.D++
			}
			if c.SoftFaultRate > 0.2 {
				resp.SnifferList = append(resp.SnifferList, snifferEntry{
					ConnectorID: c.ID,
					Score:       c.SoftFaultRate,
					Basis:       "soft_fault>0.2",
				})
			}
		}
		uptime := 0.0
		if len(st.Connectors) > 0 {
			uptime = float64(up) / float64(len(st.Connectors))
		}
		resp.UptimeByStation = append(resp.UptimeByStation, uptimeEntry{StationID: st.ID, Uptime: uptime})
		resp.BufferStatus = append(resp.BufferStatus, bufferEntry{
			StationID: st.ID, Configured: st.EmergencyBuffer, ReservedNow: reserved,
		})
		resp.TrustLeaderboard = append(resp.TrustLeaderboard, trust)
	}

	samples, err := h.store.AccuracySamples(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	resp.ReservationAccuracyP90 = accuracyP90(samples)

	writeJSON(w, http.StatusOK, resp)
}

// accuracyP90 is the 90th percentile of |promised - actual| start minutes.
func accuracyP90(samples []sqlite.AccuracySample) float64 {
	if len(samples) == 0 {
		return 0
	}
	diffs := make([]float64, 0, len(samples))
	for _, s := range samples {
		d := float64(s.PromisedStartMin - s.ActualStartMin)
		if d < 0 {
			d = -d
		}
		diffs = append(diffs, d)
	}
	sort.Float64s(diffs)
	return stat.Quantile(0.9, stat.Empirical, diffs, nil)
}

func (h *Handler) interventions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	f := sqlite.InterventionFilter{
		StationID: r.URL.Query().Get("station_id"),
		Action:    r.URL.Query().Get("action"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		f.Limit = n
	}
	ivs, err := h.store.Interventions(r.Context(), f)
	if err != nil {
		h.fail(w, err)
		return
	}
	if ivs == nil {
		ivs = []model.Intervention{}
	}
	writeJSON(w, http.StatusOK, ivs)
}

type quarantineRequest struct {
	ConnectorID string `json:"connector_id"`
	Action      string `json:"action"`
}

type quarantineResponse struct {
	ConnectorID string                `json:"connector_id"`
	Status      model.ConnectorStatus `json:"status"`
}

func (h *Handler) quarantine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req quarantineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	var conn model.Connector
	var err error
	switch req.Action {
	case model.ActionQuarantine:
		// A charging connector cannot be pulled out from under a driver.
		conn, err = h.store.SetConnectorStatus(r.Context(), req.ConnectorID,
			model.StatusFaulted, model.StatusAvailable, model.StatusReserved, model.StatusFaulted)
	case model.ActionUnquarantine:
		conn, err = h.store.SetConnectorStatus(r.Context(), req.ConnectorID,
			model.StatusAvailable, model.StatusAvailable, model.StatusFaulted)
	default:
		http.Error(w, "invalid action", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}

	iv := model.Intervention{
		Timestamp:   h.now().UTC(),
		Action:      req.Action,
		Reason:      "operator_action",
		StationID:   conn.StationID,
		ConnectorID: conn.ID,
	}
	if err := h.store.AppendIntervention(r.Context(), iv); err != nil {
		h.log.Errorf("append intervention: %v", err)
	}
	if h.notifier != nil {
		h.notifier.Notify(iv)
	}
	writeJSON(w, http.StatusOK, quarantineResponse{ConnectorID: conn.ID, Status: conn.Status})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case fault.IsNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	case fault.IsConflict(err):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.log.Errorf("operator endpoint: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
