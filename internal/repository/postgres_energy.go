package repository

import (
	"context"
	"database/sql"
	"time"

	"homegrid-data/internal/apperrors"
	"homegrid-data/internal/domain"
)

type PostgresEnergyRepository struct {
	db *sql.DB
}

func NewPostgresEnergyRepository(db *sql.DB) *PostgresEnergyRepository {
	return &PostgresEnergyRepository{db: db}
}

func (r *PostgresEnergyRepository) DailySeries(ctx context.Context, deviceID string, from, to time.Time) ([]*domain.DailyUsage, error) {
	if deviceID == "" {
		return nil, apperrors.Validation("device_id is required")
	}
	q := `
		SELECT device_id, day, usage_kwh
		FROM energy_daily
		WHERE device_id = $1 AND day >= $2 AND day <= $3
		ORDER BY day
	`
	rows, err := r.db.QueryContext(ctx, q, deviceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.DailyUsage{}
	for rows.Next() {
		var u domain.DailyUsage
		if err := rows.Scan(&u.DeviceID, &u.Day, &u.UsageKWh); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (r *PostgresEnergyRepository) AddDailyUsage(ctx context.Context, deviceID string, day time.Time, deltaKWh float64) error {
	if deviceID == "" {
		return apperrors.Validation("device_id is required")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO energy_daily (device_id, day, usage_kwh, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (device_id, day)
		 DO UPDATE SET usage_kwh = energy_daily.usage_kwh + EXCLUDED.usage_kwh,
		               updated_at = NOW()`,
		deviceID, day, deltaKWh,
	)
	return err
}

func (r *PostgresEnergyRepository) InsertStatusEvent(ctx context.Context, ev *domain.StatusEvent) error {
	if ev == nil || ev.DeviceID == "" {
		return apperrors.Validation("device_id is required")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO device_status_events (device_id, status, occurred_at)
		 VALUES ($1, $2, $3)`,
		ev.DeviceID, string(ev.Status), ev.OccurredAt,
	)
	return err
}

func (r *PostgresEnergyRepository) LastStatus(ctx context.Context, deviceID string) (domain.DeviceStatus, error) {
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT status FROM device_status_events
		 WHERE device_id = $1
		 ORDER BY occurred_at DESC
		 LIMIT 1`,
		deviceID,
	).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return domain.DeviceStatus(status), nil
}
