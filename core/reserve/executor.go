package reserve

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/chargeplan/core/logger"
	"github.com/kilianp07/chargeplan/core/model"
)

// Request describes a reservation to place.
type Request struct {
	StationID        string
	ConnectorID      string // optional; empty lets the store pick any available connector
	PromisedStartMin int
	EtaMin           int
	UserID           string
}

// Store is the persistence capability the executor delegates to. Reserve
// must be atomic: the connector status flip, the reservation row and the
// intervention row all commit together or not at all. Racing for the last
// free connector must fail one caller with an error matching
// fault.IsConflict.
type Store interface {
	Reserve(ctx context.Context, res model.Reservation, audit model.Intervention) (model.Reservation, error)
}

// IDSource produces reservation IDs. Swappable for deterministic tests.
type IDSource func() string

// Executor places reservations decided by the policy. It is only invoked on
// a YES decision and at most once per planning run.
type Executor struct {
	store Store
	newID IDSource
	now   func() time.Time
	log   logger.Logger
}

// NewExecutor creates an Executor around the store. A nil newID defaults to
// random UUIDs.
func NewExecutor(store Store, newID IDSource, log logger.Logger) *Executor {
	if newID == nil {
		newID = uuid.NewString
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Executor{store: store, newID: newID, now: time.Now, log: log}
}

// WithClock overrides the wall clock, for expiry tests.
func (e *Executor) WithClock(now func() time.Time) *Executor {
	e.now = now
	return e
}

// Reservations expire at max(15, promised_start+10) minutes from creation.
const minExpiryMin = 15

// ExpiryMinutes returns the reservation lifetime for a promised start.
func ExpiryMinutes(promisedStartMin int) int {
	if m := promisedStartMin + 10; m > minExpiryMin {
		return m
	}
	return minExpiryMin
}

// Execute allocates a connector and records the reservation plus its audit
// entry through the store. Returns the persisted reservation.
func (e *Executor) Execute(ctx context.Context, req Request) (model.Reservation, error) {
	now := e.now().UTC()
	promised := req.PromisedStartMin
	res := model.Reservation{
		ID:               e.newID(),
		StationID:        req.StationID,
		ConnectorID:      req.ConnectorID,
		UserID:           req.UserID,
		EtaMin:           req.EtaMin,
		PromisedStartMin: promised,
		State:            model.ReservationActive,
		ExpiresAt:        now.Add(time.Duration(ExpiryMinutes(promised)) * time.Minute),
	}
	audit := model.Intervention{
		Timestamp:        now,
		Action:           model.ActionReserve,
		Reason:           "policy_decision",
		StationID:        req.StationID,
		PromisedStartMin: &promised,
	}

	persisted, err := e.store.Reserve(ctx, res, audit)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("reserve at %s: %w", req.StationID, err)
	}
	e.log.Infof("reserved connector %s at %s for %s, expires %s",
		persisted.ConnectorID, persisted.StationID, persisted.UserID,
		persisted.ExpiresAt.Format(time.RFC3339))
	return persisted, nil
}
