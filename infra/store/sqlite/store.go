// Package sqlite persists stations, connectors, reservations and the
// intervention audit log in an embedded SQLite database. It backs the
// station.Directory and reserve.Store capabilities consumed by the planning
// pipeline, plus the operator dashboard queries.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/chargeplan/core/fault"
	"github.com/kilianp07/chargeplan/core/model"
)

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Config selects the database location.
type Config struct {
	Path string `json:"path"`
}

// SetDefaults fills the default database path.
func (c *Config) SetDefaults() {
	if c.Path == "" {
		c.Path = "chargeplan.sqlite3"
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS stations (
    station_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    lat REAL NOT NULL,
    lon REAL NOT NULL,
    emergency_buffer INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS connectors (
    connector_id TEXT PRIMARY KEY,
    station_id TEXT NOT NULL REFERENCES stations(station_id) ON DELETE CASCADE,
    type TEXT NOT NULL,
    kw INTEGER NOT NULL,
    status TEXT NOT NULL,
    trust_badge TEXT NOT NULL,
    start_success_rate REAL NOT NULL DEFAULT 0.9,
    soft_fault_rate REAL NOT NULL DEFAULT 0.0,
    mttr_h REAL NOT NULL DEFAULT 0.0
);
CREATE INDEX IF NOT EXISTS idx_connectors_station ON connectors(station_id);
CREATE TABLE IF NOT EXISTS reservations (
    reservation_id TEXT PRIMARY KEY,
    station_id TEXT NOT NULL REFERENCES stations(station_id),
    connector_id TEXT NOT NULL REFERENCES connectors(connector_id),
    user_id TEXT,
    eta_min INTEGER NOT NULL,
    promised_start_min INTEGER NOT NULL,
    state TEXT NOT NULL,
    expires_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS interventions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ts INTEGER NOT NULL,
    action TEXT NOT NULL,
    reason TEXT,
    station_id TEXT,
    connector_id TEXT,
    promised_start INTEGER,
    actual_start INTEGER
);
CREATE INDEX IF NOT EXISTS idx_interventions_ts ON interventions(ts);
`

// Open opens or creates the database at cfg.Path and ensures the schema.
func Open(cfg Config) (*Store, error) {
	cfg.SetDefaults()
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// A single writer avoids SQLITE_BUSY under concurrent planning runs;
	// the driver serializes access and the CAS update arbitrates races.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// ListAll returns every station with its connectors.
func (s *Store) ListAll(ctx context.Context) ([]model.Station, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT station_id, name, lat, lon, emergency_buffer FROM stations ORDER BY station_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []model.Station
	byID := map[string]int{}
	for rows.Next() {
		var st model.Station
		if err := rows.Scan(&st.ID, &st.Name, &st.Lat, &st.Lon, &st.EmergencyBuffer); err != nil {
			return nil, err
		}
		byID[st.ID] = len(stations)
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	conns, err := s.connectors(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, c := range conns {
		if i, ok := byID[c.StationID]; ok {
			stations[i].Connectors = append(stations[i].Connectors, c)
		}
	}
	return stations, nil
}

// Get returns one station with its connectors.
func (s *Store) Get(ctx context.Context, stationID string) (model.Station, error) {
	var st model.Station
	err := s.db.QueryRowContext(ctx,
		`SELECT station_id, name, lat, lon, emergency_buffer FROM stations WHERE station_id = ?`,
		stationID).Scan(&st.ID, &st.Name, &st.Lat, &st.Lon, &st.EmergencyBuffer)
	if err == sql.ErrNoRows {
		return model.Station{}, &fault.NotFoundError{Kind: "station", ID: stationID, Err: fault.ErrStationNotFound}
	}
	if err != nil {
		return model.Station{}, err
	}
	st.Connectors, err = s.connectors(ctx, stationID)
	if err != nil {
		return model.Station{}, err
	}
	return st, nil
}

func (s *Store) connectors(ctx context.Context, stationID string) ([]model.Connector, error) {
	query := `SELECT connector_id, station_id, type, kw, status, trust_badge,
        start_success_rate, soft_fault_rate, mttr_h FROM connectors`
	var args []any
	if stationID != "" {
		query += ` WHERE station_id = ?`
		args = append(args, stationID)
	}
	query += ` ORDER BY connector_id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Connector
	for rows.Next() {
		var c model.Connector
		if err := rows.Scan(&c.ID, &c.StationID, &c.Type, &c.PowerKW, &c.Status,
			&c.TrustBadge, &c.StartSuccessRate, &c.SoftFaultRate, &c.MTTRHours); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ExpireDue flips active reservations past their expiry to expired and
// releases their connectors. The planning core never calls this; it exists
// for the external reaper.
func (s *Store) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT reservation_id, connector_id FROM reservations WHERE state = ? AND expires_at <= ?`,
		model.ReservationActive, now.UTC().Unix())
	if err != nil {
		return 0, err
	}
	type due struct{ resID, connID string }
	var dues []due
	for rows.Next() {
		var d due
		if err := rows.Scan(&d.resID, &d.connID); err != nil {
			rows.Close()
			return 0, err
		}
		dues = append(dues, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, d := range dues {
		if _, err := tx.ExecContext(ctx,
			`UPDATE reservations SET state = ? WHERE reservation_id = ?`,
			model.ReservationExpired, d.resID); err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE connectors SET status = ? WHERE connector_id = ? AND status = ?`,
			model.StatusAvailable, d.connID, model.StatusReserved); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(dues), nil
}
