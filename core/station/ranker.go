package station

import (
	"context"
	"fmt"
	"sort"

	"github.com/kilianp07/chargeplan/core/geo"
	"github.com/kilianp07/chargeplan/core/model"
)

// DefaultCandidateLimit is how many nearby stations the ranker considers.
const DefaultCandidateLimit = 6

// Ranker builds the ranked candidate list for one planning run. It has no
// side effects.
type Ranker struct {
	dir   Directory
	bands string
}

// NewRanker creates a Ranker. bands is the "low,high" color band config;
// malformed values fall back to the defaults downstream.
func NewRanker(dir Directory, bands string) *Ranker {
	return &Ranker{dir: dir, bands: bands}
}

// Rank returns up to limit stations nearest to origin, each carrying its
// wait prediction, expected charge start and color band, sorted ascending
// by expected start. limit <= 0 uses DefaultCandidateLimit.
func (r *Ranker) Rank(ctx context.Context, origin model.Coordinate, eta model.EtaResult, limit int) ([]model.StationCandidate, error) {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	stations, err := r.dir.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}

	type near struct {
		st   model.Station
		dist float64
	}
	nearest := make([]near, 0, len(stations))
	for _, s := range stations {
		d := geo.DistanceKM(origin, model.Coordinate{Lat: s.Lat, Lon: s.Lon})
		nearest = append(nearest, near{st: s, dist: d})
	}
	sort.Slice(nearest, func(i, j int) bool { return nearest[i].dist < nearest[j].dist })
	if len(nearest) > limit {
		nearest = nearest[:limit]
	}

	candidates := make([]model.StationCandidate, 0, len(nearest))
	for _, n := range nearest {
		pred := PredictStation(n.st)
		expected := eta.EtaMin + pred.P50WaitMin
		candidates = append(candidates, model.StationCandidate{
			StationID:        n.st.ID,
			Name:             n.st.Name,
			Lat:              n.st.Lat,
			Lon:              n.st.Lon,
			DistanceKM:       n.dist,
			FreeConnectors:   pred.FreeConnectors,
			P50WaitMin:       pred.P50WaitMin,
			P90WaitMin:       pred.P90WaitMin,
			TrustBadge:       pred.TrustBadge,
			ExpectedStartMin: expected,
			ColorBand:        model.BandFromMinutes(expected, r.bands),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ExpectedStartMin < candidates[j].ExpectedStartMin
	})
	return candidates, nil
}
