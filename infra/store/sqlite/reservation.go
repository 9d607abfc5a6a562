package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kilianp07/chargeplan/core/fault"
	"github.com/kilianp07/chargeplan/core/model"
)

// Reserve allocates a connector and records the reservation and its audit
// entry in one transaction. When res.ConnectorID is empty any available
// connector at the station is picked. Losing the race for the last free
// connector fails with a ConflictError; nothing is committed in that case.
func (s *Store) Reserve(ctx context.Context, res model.Reservation, audit model.Intervention) (model.Reservation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Reservation{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM stations WHERE station_id = ?`, res.StationID).Scan(&exists); err != nil {
		return model.Reservation{}, err
	}
	if exists == 0 {
		return model.Reservation{}, &fault.NotFoundError{Kind: "station", ID: res.StationID, Err: fault.ErrStationNotFound}
	}

	connectorID := res.ConnectorID
	if connectorID == "" {
		err = tx.QueryRowContext(ctx,
			`SELECT connector_id FROM connectors WHERE station_id = ? AND status = ? ORDER BY connector_id LIMIT 1`,
			res.StationID, model.StatusAvailable).Scan(&connectorID)
		if err == sql.ErrNoRows {
			return model.Reservation{}, &fault.ConflictError{Err: fault.ErrNoConnector}
		}
		if err != nil {
			return model.Reservation{}, err
		}
	}

	// Compare-and-set: only one concurrent run can flip available->reserved.
	upd, err := tx.ExecContext(ctx,
		`UPDATE connectors SET status = ? WHERE connector_id = ? AND station_id = ? AND status = ?`,
		model.StatusReserved, connectorID, res.StationID, model.StatusAvailable)
	if err != nil {
		return model.Reservation{}, err
	}
	n, err := upd.RowsAffected()
	if err != nil {
		return model.Reservation{}, err
	}
	if n != 1 {
		return model.Reservation{}, &fault.ConflictError{ConnectorID: connectorID, Err: fault.ErrNoConnector}
	}

	res.ConnectorID = connectorID
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (reservation_id, station_id, connector_id, user_id, eta_min, promised_start_min, state, expires_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.StationID, res.ConnectorID, res.UserID, res.EtaMin,
		res.PromisedStartMin, res.State, res.ExpiresAt.UTC().Unix()); err != nil {
		return model.Reservation{}, fmt.Errorf("insert reservation: %w", err)
	}

	audit.ConnectorID = connectorID
	if err := insertIntervention(ctx, tx, audit); err != nil {
		return model.Reservation{}, fmt.Errorf("insert intervention: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Reservation{}, err
	}
	return res, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertIntervention(ctx context.Context, db execer, iv model.Intervention) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO interventions (ts, action, reason, station_id, connector_id, promised_start, actual_start)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		iv.Timestamp.UTC().Unix(), iv.Action, nullStr(iv.Reason), nullStr(iv.StationID),
		nullStr(iv.ConnectorID), iv.PromisedStartMin, iv.ActualStartMin)
	return err
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
