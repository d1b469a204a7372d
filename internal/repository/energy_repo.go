package repository

import (
	"context"
	"time"

	"homegrid-data/internal/domain"
)

// EnergyRepository 用电量Repository接口
type EnergyRepository interface {
	// DailySeries returns one point per recorded day in [from, to], ordered
	// by day ascending. Days with no usage simply have no row.
	DailySeries(ctx context.Context, deviceID string, from, to time.Time) ([]*domain.DailyUsage, error)
	// AddDailyUsage accumulates deltaKWh into the device's row for the day,
	// creating it when absent.
	AddDailyUsage(ctx context.Context, deviceID string, day time.Time, deltaKWh float64) error
	InsertStatusEvent(ctx context.Context, ev *domain.StatusEvent) error
	// LastStatus returns the most recent recorded status, or "" when the
	// device has no events yet.
	LastStatus(ctx context.Context, deviceID string) (domain.DeviceStatus, error)
}
