package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kilianp07/chargeplan/core/fault"
	"github.com/kilianp07/chargeplan/core/model"
)

// InterventionFilter narrows the audit-log listing.
type InterventionFilter struct {
	StationID string
	Action    string
	Limit     int
}

// Interventions returns audit entries, most recent first.
func (s *Store) Interventions(ctx context.Context, f InterventionFilter) ([]model.Intervention, error) {
	query := `SELECT id, ts, action, reason, station_id, connector_id, promised_start, actual_start
        FROM interventions WHERE 1=1`
	var args []any
	if f.StationID != "" {
		query += ` AND station_id = ?`
		args = append(args, f.StationID)
	}
	if f.Action != "" {
		query += ` AND action = ?`
		args = append(args, f.Action)
	}
	query += ` ORDER BY ts DESC, id DESC`
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Intervention
	for rows.Next() {
		var iv model.Intervention
		var ts int64
		var reason, stationID, connectorID sql.NullString
		if err := rows.Scan(&iv.ID, &ts, &iv.Action, &reason, &stationID, &connectorID,
			&iv.PromisedStartMin, &iv.ActualStartMin); err != nil {
			return nil, err
		}
		iv.Timestamp = time.Unix(ts, 0).UTC()
		iv.Reason = reason.String
		iv.StationID = stationID.String
		iv.ConnectorID = connectorID.String
		out = append(out, iv)
	}
	return out, rows.Err()
}

// AppendIntervention records a standalone audit entry outside a
// reservation transaction, e.g. operator quarantine actions.
func (s *Store) AppendIntervention(ctx context.Context, iv model.Intervention) error {
	return insertIntervention(ctx, s.db, iv)
}

// SetConnectorStatus transitions a connector subject to the allowed source
// states. It fails with a ConflictError when the connector is currently in
// a state not listed in from, and NotFoundError for an unknown connector.
func (s *Store) SetConnectorStatus(ctx context.Context, connectorID string, to model.ConnectorStatus, from ...model.ConnectorStatus) (model.Connector, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Connector{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var c model.Connector
	err = tx.QueryRowContext(ctx,
		`SELECT connector_id, station_id, type, kw, status, trust_badge, start_success_rate, soft_fault_rate, mttr_h
         FROM connectors WHERE connector_id = ?`, connectorID).
		Scan(&c.ID, &c.StationID, &c.Type, &c.PowerKW, &c.Status,
			&c.TrustBadge, &c.StartSuccessRate, &c.SoftFaultRate, &c.MTTRHours)
	if err == sql.ErrNoRows {
		return model.Connector{}, &fault.NotFoundError{Kind: "connector", ID: connectorID, Err: fault.ErrConnectorNotFound}
	}
	if err != nil {
		return model.Connector{}, err
	}

	allowed := len(from) == 0
	for _, st := range from {
		if c.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return model.Connector{}, &fault.ConflictError{ConnectorID: connectorID,
			Err: fmt.Errorf("connector is %s", c.Status)}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE connectors SET status = ? WHERE connector_id = ?`, to, connectorID); err != nil {
		return model.Connector{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Connector{}, err
	}
	c.Status = to
	return c, nil
}

// AccuracySample is one intervention with both a promised and an observed
// charge start, used for the reservation accuracy metric.
type AccuracySample struct {
	PromisedStartMin int
	ActualStartMin   int
}

// AccuracySamples returns every intervention carrying both start values.
func (s *Store) AccuracySamples(ctx context.Context) ([]AccuracySample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT promised_start, actual_start FROM interventions
         WHERE promised_start IS NOT NULL AND actual_start IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AccuracySample
	for rows.Next() {
		var a AccuracySample
		if err := rows.Scan(&a.PromisedStartMin, &a.ActualStartMin); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
