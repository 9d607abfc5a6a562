package station

import (
	"context"

	"github.com/kilianp07/chargeplan/core/model"
)

// Directory is the station lookup capability the planner depends on. The
// sqlite store implements it; tests use in-memory fakes.
type Directory interface {
	// ListAll returns every known station with its connectors.
	ListAll(ctx context.Context) ([]model.Station, error)
	// Get returns one station with its connectors, or an error wrapping
	// fault.ErrStationNotFound.
	Get(ctx context.Context, stationID string) (model.Station, error)
}
