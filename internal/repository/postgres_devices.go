package repository

import (
	"context"
	"database/sql"

	"homegrid-data/internal/apperrors"
	"homegrid-data/internal/domain"
)

type PostgresDevicesRepository struct {
	db *sql.DB
}

func NewPostgresDevicesRepository(db *sql.DB) *PostgresDevicesRepository {
	return &PostgresDevicesRepository{db: db}
}

func (r *PostgresDevicesRepository) GetDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	if deviceID == "" {
		return nil, apperrors.Validation("device_id is required")
	}
	q := `
		SELECT device_id, location_id, wattage_watts, registered_at
		FROM devices
		WHERE device_id = $1
	`
	var d domain.Device
	err := r.db.QueryRowContext(ctx, q, deviceID).Scan(&d.DeviceID, &d.LocationID, &d.WattageWatts, &d.RegisteredAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("device not found: %s", deviceID)
		}
		return nil, err
	}
	return &d, nil
}

func (r *PostgresDevicesRepository) ListDevicesByBuilding(ctx context.Context, buildingID string) ([]*domain.Device, error) {
	q := `
		SELECT d.device_id, d.location_id, d.wattage_watts, d.registered_at
		FROM devices d
		JOIN locations l ON l.location_id = d.location_id
		WHERE l.building_id = $1
		ORDER BY d.device_id
	`
	rows, err := r.db.QueryContext(ctx, q, buildingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Device{}
	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.DeviceID, &d.LocationID, &d.WattageWatts, &d.RegisteredAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (r *PostgresDevicesRepository) AssignDevice(ctx context.Context, deviceID, locationID string) error {
	if deviceID == "" || locationID == "" {
		return apperrors.Validation("device_id and location_id are required")
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE devices SET location_id = $2 WHERE device_id = $1`,
		deviceID, locationID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("device not found: %s", deviceID)
	}
	return nil
}

func (r *PostgresDevicesRepository) UnassignDevice(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return apperrors.Validation("device_id is required")
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE devices SET location_id = NULL WHERE device_id = $1`,
		deviceID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("device not found: %s", deviceID)
	}
	return nil
}
