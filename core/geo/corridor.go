package geo

import (
	"math"
	"sort"

	"github.com/kilianp07/chargeplan/core/model"
)

// CorridorStation is a station inside the route corridor with its distance
// to the straight line between origin and destination.
type CorridorStation struct {
	Station       model.Station
	OffRouteKM    float64
	EtaFromOrigin float64
}

// Corridor returns the stations lying within the configured corridor width
// of the origin-destination segment, ranked by ETA from the origin and cut
// to the configured top-K.
//
// Perpendicular distance uses an equirectangular projection around the
// origin latitude; good enough at corridor scale.
func (e *Estimator) Corridor(origin, dest model.Coordinate, stations []model.Station) []CorridorStation {
	var out []CorridorStation
	for _, s := range stations {
		off := perpendicularKM(origin, dest, model.Coordinate{Lat: s.Lat, Lon: s.Lon})
		if off > e.cfg.CorridorKM {
			continue
		}
		d := DistanceKM(origin, model.Coordinate{Lat: s.Lat, Lon: s.Lon})
		out = append(out, CorridorStation{
			Station:       s,
			OffRouteKM:    off,
			EtaFromOrigin: e.etaMinutes(d),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EtaFromOrigin < out[j].EtaFromOrigin })
	if len(out) > e.cfg.CorridorTopK {
		out = out[:e.cfg.CorridorTopK]
	}
	return out
}

// perpendicularKM projects the three points onto a flat plane and measures
// the distance from p to the segment a-b, clamped to the segment ends.
func perpendicularKM(a, b, p model.Coordinate) float64 {
	cosLat := math.Cos(a.Lat * math.Pi / 180)
	ax, ay := 0.0, 0.0
	bx := (b.Lon - a.Lon) * cosLat
	by := b.Lat - a.Lat
	px := (p.Lon - a.Lon) * cosLat
	py := p.Lat - a.Lat

	segLen2 := (bx-ax)*(bx-ax) + (by-ay)*(by-ay)
	t := 0.0
	if segLen2 > 0 {
		t = ((px-ax)*(bx-ax) + (py-ay)*(by-ay)) / segLen2
		t = math.Max(0, math.Min(1, t))
	}
	cx := ax + t*(bx-ax)
	cy := ay + t*(by-ay)
	degDist := math.Hypot(px-cx, py-cy)
	return degDist * math.Pi / 180 * earthRadiusKM
}
