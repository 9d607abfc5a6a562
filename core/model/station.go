package model

import "time"

// ConnectorType identifies the charging technology of a connector.
type ConnectorType string

const (
	ConnectorAC ConnectorType = "AC"
	ConnectorDC ConnectorType = "DC"
)

// ConnectorStatus is the live state of a single charge port.
type ConnectorStatus string

const (
	StatusAvailable ConnectorStatus = "available"
	StatusCharging  ConnectorStatus = "charging"
	StatusReserved  ConnectorStatus = "reserved"
	StatusFaulted   ConnectorStatus = "faulted"
)

// Connector is a single chargeable port at a station, the unit of
// allocation for reservations.
type Connector struct {
	ID               string          `json:"connector_id"`
	StationID        string          `json:"station_id"`
	Type             ConnectorType   `json:"type"`
	PowerKW          int             `json:"kw"`
	Status           ConnectorStatus `json:"status"`
	TrustBadge       TrustBadge      `json:"trust_badge"`
	StartSuccessRate float64         `json:"start_success_rate"`
	SoftFaultRate    float64         `json:"soft_fault_rate"`
	MTTRHours        float64         `json:"mttr_h"`
}

// Station is a charging site with one or more connectors.
type Station struct {
	ID              string      `json:"station_id"`
	Name            string      `json:"name"`
	Lat             float64     `json:"lat"`
	Lon             float64     `json:"lon"`
	EmergencyBuffer int         `json:"emergency_buffer"`
	Connectors      []Connector `json:"connectors,omitempty"`
}

// ReservationState tracks the lifecycle of a reservation. Transitions out of
// active are owned by the store and the external expiry reaper, never by the
// planning pipeline.
type ReservationState string

const (
	ReservationActive    ReservationState = "active"
	ReservationExpired   ReservationState = "expired"
	ReservationCancelled ReservationState = "cancelled"
	ReservationFulfilled ReservationState = "fulfilled"
)

// Reservation is a persisted hold on a connector.
type Reservation struct {
	ID               string           `json:"reservation_id"`
	StationID        string           `json:"station_id"`
	ConnectorID      string           `json:"connector_id"`
	UserID           string           `json:"user_id"`
	EtaMin           int              `json:"eta_min"`
	PromisedStartMin int              `json:"promised_start_min"`
	State            ReservationState `json:"state"`
	ExpiresAt        time.Time        `json:"expires_at"`
}

// Intervention is an audit-log entry for every automated or operator action
// that mutates connector or reservation state.
type Intervention struct {
	ID               int64     `json:"id"`
	Timestamp        time.Time `json:"ts"`
	Action           string    `json:"action"`
	Reason           string    `json:"reason,omitempty"`
	StationID        string    `json:"station_id,omitempty"`
	ConnectorID      string    `json:"connector_id,omitempty"`
	PromisedStartMin *int      `json:"promised_start,omitempty"`
	ActualStartMin   *int      `json:"actual_start,omitempty"`
}

const (
	ActionReserve      = "RESERVE"
	ActionQuarantine   = "QUARANTINE"
	ActionUnquarantine = "UNQUARANTINE"
)
