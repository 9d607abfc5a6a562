package station

import (
	"context"
	"fmt"

	"github.com/kilianp07/chargeplan/core/model"
)

// Average session durations by connector type, minutes.
const (
	AvgSessionMinDC = 28.0
	AvgSessionMinAC = 75.0
)

const p90Ratio = 1.6

// Prediction is the expected queueing outlook for one station.
type Prediction struct {
	StationID      string
	P50WaitMin     float64
	P90WaitMin     float64
	FreeConnectors int
	TrustBadge     model.TrustBadge
}

// Predictor derives wait expectations from live connector state.
type Predictor struct {
	dir Directory
}

// NewPredictor creates a Predictor backed by the given directory.
func NewPredictor(dir Directory) *Predictor {
	return &Predictor{dir: dir}
}

// Predict looks up the station and returns its wait prediction.
func (p *Predictor) Predict(ctx context.Context, stationID string) (Prediction, error) {
	st, err := p.dir.Get(ctx, stationID)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict %s: %w", stationID, err)
	}
	return PredictStation(st), nil
}

// PredictStation computes the wait prediction from a station's connectors.
//
// The model: connectors actively charging beyond the free ones form a queue
// (load factor), each queue slot costs the type-weighted mean session
// duration, and the station's worst trust badge inflates the result. A
// station with no connectors predicts zero wait but reports badge D and no
// free connectors, the most conservative reading.
func PredictStation(st model.Station) Prediction {
	var active, free, dcCount, acCount int
	badges := make([]model.TrustBadge, 0, len(st.Connectors))
	for _, c := range st.Connectors {
		switch c.Status {
		case model.StatusCharging:
			active++
		case model.StatusAvailable:
			free++
		}
		if c.Type == model.ConnectorDC {
			dcCount++
		} else {
			acCount++
		}
		badges = append(badges, c.TrustBadge)
	}

	loadFactor := active - free
	if loadFactor < 0 {
		loadFactor = 0
	}

	avgSession := AvgSessionMinDC
	if dcCount+acCount > 0 {
		avgSession = (float64(dcCount)*AvgSessionMinDC + float64(acCount)*AvgSessionMinAC) /
			float64(dcCount+acCount)
	}

	badge := model.WorstBadge(badges)
	p50 := float64(loadFactor) * avgSession * badge.TrustFactor()

	return Prediction{
		StationID:      st.ID,
		P50WaitMin:     p50,
		P90WaitMin:     p90Ratio * p50,
		FreeConnectors: free,
		TrustBadge:     badge,
	}
}
