package plan

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kilianp07/chargeplan/core/geo"
	"github.com/kilianp07/chargeplan/core/logger"
	"github.com/kilianp07/chargeplan/core/model"
)

// CorridorDirectory is the station lookup the corridor endpoint reads from.
type CorridorDirectory interface {
	ListAll(ctx context.Context) ([]model.Station, error)
}

type corridorRequest struct {
	Origin struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	} `json:"origin"`
	Destination struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	} `json:"destination"`
}

type corridorStation struct {
	StationID        string  `json:"station_id"`
	Name             string  `json:"name"`
	OffRouteKM       float64 `json:"off_route_km"`
	EtaFromOriginMin float64 `json:"eta_from_origin_min"`
}

type corridorResponse struct {
	Corridor []corridorStation `json:"corridor"`
}

// NewCorridorHandler returns the POST /tool/route/corridor handler: the
// stations within the route corridor, ranked by ETA from the origin.
func NewCorridorHandler(est *geo.Estimator, dir CorridorDirectory, log logger.Logger) http.Handler {
	if log == nil {
		log = logger.Nop{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req corridorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if req.Origin.Lat == nil || req.Origin.Lon == nil ||
			req.Destination.Lat == nil || req.Destination.Lon == nil {
			http.Error(w, "origin and destination are required", http.StatusBadRequest)
			return
		}
		origin := model.Coordinate{Lat: *req.Origin.Lat, Lon: *req.Origin.Lon}
		dest := model.Coordinate{Lat: *req.Destination.Lat, Lon: *req.Destination.Lon}
		if !origin.Valid() || !dest.Valid() {
			http.Error(w, "coordinates out of range", http.StatusBadRequest)
			return
		}

		stations, err := dir.ListAll(r.Context())
		if err != nil {
			log.Errorf("corridor: list stations: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		resp := corridorResponse{Corridor: []corridorStation{}}
		for _, cs := range est.Corridor(origin, dest, stations) {
			resp.Corridor = append(resp.Corridor, corridorStation{
				StationID:        cs.Station.ID,
				Name:             cs.Station.Name,
				OffRouteKM:       cs.OffRouteKM,
				EtaFromOriginMin: cs.EtaFromOrigin,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	})
}
