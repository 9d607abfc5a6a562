package sqlite

import (
	"context"
	"fmt"

	"github.com/kilianp07/chargeplan/core/model"
)

// Seeded reports whether the store already contains stations.
func (s *Store) Seeded(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM stations`).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Seed inserts the given stations and their connectors. It is intended for
// first-run provisioning and tests; existing rows make it fail.
func (s *Store) Seed(ctx context.Context, stations []model.Station) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, st := range stations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stations (station_id, name, lat, lon, emergency_buffer) VALUES (?, ?, ?, ?, ?)`,
			st.ID, st.Name, st.Lat, st.Lon, st.EmergencyBuffer); err != nil {
			return fmt.Errorf("seed station %s: %w", st.ID, err)
		}
		for _, c := range st.Connectors {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO connectors (connector_id, station_id, type, kw, status, trust_badge, start_success_rate, soft_fault_rate, mttr_h)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				c.ID, st.ID, c.Type, c.PowerKW, c.Status, c.TrustBadge,
				c.StartSuccessRate, c.SoftFaultRate, c.MTTRHours); err != nil {
				return fmt.Errorf("seed connector %s: %w", c.ID, err)
			}
		}
	}
	return tx.Commit()
}

// DemoStations is the starter dataset installed by the seed command when
// the store is empty.
func DemoStations() []model.Station {
	conn := func(id, station string, typ model.ConnectorType, kw int, status model.ConnectorStatus, badge model.TrustBadge) model.Connector {
		return model.Connector{
			ID: id, StationID: station, Type: typ, PowerKW: kw,
			Status: status, TrustBadge: badge, StartSuccessRate: 0.9,
		}
	}
	return []model.Station{
		{
			ID: "st-001", Name: "Riverside Hub", Lat: 48.858, Lon: 2.347, EmergencyBuffer: 1,
			Connectors: []model.Connector{
				conn("st-001-c1", "st-001", model.ConnectorDC, 150, model.StatusAvailable, model.BadgeA),
				conn("st-001-c2", "st-001", model.ConnectorDC, 150, model.StatusCharging, model.BadgeA),
				conn("st-001-c3", "st-001", model.ConnectorAC, 22, model.StatusAvailable, model.BadgeB),
			},
		},
		{
			ID: "st-002", Name: "Northgate Plaza", Lat: 48.884, Lon: 2.333, EmergencyBuffer: 1,
			Connectors: []model.Connector{
				conn("st-002-c1", "st-002", model.ConnectorDC, 100, model.StatusCharging, model.BadgeB),
				conn("st-002-c2", "st-002", model.ConnectorDC, 100, model.StatusCharging, model.BadgeC),
			},
		},
		{
			ID: "st-003", Name: "Old Mill Depot", Lat: 48.832, Lon: 2.371, EmergencyBuffer: 2,
			Connectors: []model.Connector{
				conn("st-003-c1", "st-003", model.ConnectorAC, 11, model.StatusAvailable, model.BadgeB),
				conn("st-003-c2", "st-003", model.ConnectorAC, 11, model.StatusFaulted, model.BadgeD),
			},
		},
		{
			ID: "st-004", Name: "Harbor Point", Lat: 48.853, Lon: 2.292, EmergencyBuffer: 1,
			Connectors: []model.Connector{
				conn("st-004-c1", "st-004", model.ConnectorDC, 250, model.StatusAvailable, model.BadgeA),
				conn("st-004-c2", "st-004", model.ConnectorDC, 250, model.StatusAvailable, model.BadgeA),
			},
		},
	}
}
