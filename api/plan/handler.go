// Package plan exposes the planning pipeline over HTTP.
package plan

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kilianp07/chargeplan/core/fault"
	"github.com/kilianp07/chargeplan/core/logger"
	"github.com/kilianp07/chargeplan/core/model"
)

// Runner is the planning capability the handler fronts.
type Runner interface {
	Run(ctx context.Context, req model.PlanRequest) (model.Plan, error)
}

// request mirrors model.PlanRequest with pointer fields so missing values
// can be told apart from zero values before the pipeline validates ranges.
type request struct {
	Origin struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	} `json:"origin"`
	Destination struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	} `json:"destination"`
	SoC    *float64 `json:"soc"`
	UserID string   `json:"user_id"`
	Intent string   `json:"intent"`
}

// NewHandler returns the POST /api/plan handler. Pipeline errors map to an
// error plan with empty actions and a status code from the error taxonomy.
func NewHandler(runner Runner, log logger.Logger) http.Handler {
	if log == nil {
		log = logger.Nop{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorPlan(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Origin.Lat == nil || req.Origin.Lon == nil ||
			req.Destination.Lat == nil || req.Destination.Lon == nil || req.SoC == nil {
			writeErrorPlan(w, http.StatusBadRequest, "origin, destination and soc are required")
			return
		}

		p, err := runner.Run(r.Context(), model.PlanRequest{
			Origin:      model.Coordinate{Lat: *req.Origin.Lat, Lon: *req.Origin.Lon},
			Destination: model.Coordinate{Lat: *req.Destination.Lat, Lon: *req.Destination.Lon},
			SoC:         *req.SoC,
			UserID:      req.UserID,
			Intent:      req.Intent,
		})
		if err != nil {
			status := statusFor(err)
			if fault.IsSchemaViolation(err) {
				log.Errorf("plan failed with internal defect: %v", err)
			} else {
				log.Warnf("plan failed: %v", err)
			}
			writeErrorPlan(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, p)
	})
}

func statusFor(err error) int {
	switch {
	// Schema violations are internal defects even when they wrap a
	// user-facing error, so they take precedence over the other checks.
	case fault.IsSchemaViolation(err):
		return http.StatusInternalServerError
	case fault.IsValidation(err):
		return http.StatusBadRequest
	case fault.IsNotFound(err):
		return http.StatusNotFound
	case fault.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeErrorPlan(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.Plan{Actions: []model.PlanAction{}, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NewHealthHandler returns the GET /healthz handler.
func NewHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}
