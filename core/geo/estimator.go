package geo

import (
	"context"
	"math"
	"time"

	"github.com/kilianp07/chargeplan/core/logger"
	"github.com/kilianp07/chargeplan/core/model"
)

const earthRadiusKM = 6371

// DistanceKM returns the great-circle distance between two coordinates using
// the haversine formula.
func DistanceKM(a, b model.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// RouteService is an optional higher-fidelity routing backend. Estimator
// prefers it when configured and silently falls back to its own math when
// the call fails.
type RouteService interface {
	Eta(ctx context.Context, origin, dest model.Coordinate) (etaMin, distanceKM float64, err error)
}

// Config holds the speed model of the estimator.
type Config struct {
	HighwayKMPH    float64 `json:"highwayKmph"`
	UrbanKMPH      float64 `json:"urbanKmph"`
	CorridorKM     float64 `json:"corridorKm"`
	CorridorTopK   int     `json:"corridorTopK"`
	PeakMultiplier float64 `json:"peakMultiplier"`
}

// SetDefaults fills zero values with the stock speed model.
func (c *Config) SetDefaults() {
	if c.HighwayKMPH <= 0 {
		c.HighwayKMPH = 50
	}
	if c.UrbanKMPH <= 0 {
		c.UrbanKMPH = 25
	}
	if c.CorridorKM <= 0 {
		c.CorridorKM = 5
	}
	if c.CorridorTopK <= 0 {
		c.CorridorTopK = 4
	}
	if c.PeakMultiplier <= 0 {
		c.PeakMultiplier = 1.15
	}
}

// Estimator computes distance and travel time between coordinates. It never
// fails: it is the guaranteed fallback behind the optional route service.
type Estimator struct {
	cfg   Config
	route RouteService
	now   func() time.Time
	log   logger.Logger
}

// New creates an Estimator. route may be nil; log may be nil.
func New(cfg Config, route RouteService, log logger.Logger) *Estimator {
	cfg.SetDefaults()
	if log == nil {
		log = logger.Nop{}
	}
	return &Estimator{cfg: cfg, route: route, now: time.Now, log: log}
}

// WithClock overrides the wall clock, for tests of the peak-hour window.
func (e *Estimator) WithClock(now func() time.Time) *Estimator {
	e.now = now
	return e
}

// distance > 15 km picks the highway speed, else urban.
const highwayCutoffKM = 15

// Estimate returns the ETA between origin and dest. The configured route
// service is tried first; its result is marked measured. Any route failure
// degrades to the haversine speed model, marked estimated.
func (e *Estimator) Estimate(ctx context.Context, origin, dest model.Coordinate) model.EtaResult {
	if e.route != nil {
		etaMin, distKM, err := e.route.Eta(ctx, origin, dest)
		if err == nil && etaMin >= 0 && distKM >= 0 {
			return model.EtaResult{EtaMin: etaMin, DistanceKM: distKM, Source: model.SourceMeasured}
		}
		if err != nil {
			e.log.Warnf("route service failed, falling back to estimate: %v", err)
		}
	}
	dist := DistanceKM(origin, dest)
	return model.EtaResult{
		EtaMin:     e.etaMinutes(dist),
		DistanceKM: dist,
		Source:     model.SourceEstimated,
	}
}

func (e *Estimator) etaMinutes(distKM float64) float64 {
	speed := e.cfg.UrbanKMPH
	if distKM > highwayCutoffKM {
		speed = e.cfg.HighwayKMPH
	}
	minutes := distKM / speed * 60
	if isPeakHour(e.now().Hour()) {
		minutes *= e.cfg.PeakMultiplier
	}
	return minutes
}

// Peak windows: 08:00-10:59 and 17:00-20:59.
func isPeakHour(hour int) bool {
	return (hour >= 8 && hour <= 10) || (hour >= 17 && hour <= 20)
}
