package domain

import (
	"time"
)

// DailyUsage 设备日用电量 (energy_daily 表)
// One row per device per calendar day, accumulated by the MQTT bridge.
type DailyUsage struct {
	DeviceID string    `db:"device_id"`
	Day      time.Time `db:"day"` // date only
	UsageKWh float64   `db:"usage_kwh"`
}

// DeviceStatus on/off 状态值
type DeviceStatus string

const (
	StatusOn  DeviceStatus = "ON"
	StatusOff DeviceStatus = "OFF"
)

// StatusEvent 设备状态变化 (device_status_events 表)
type StatusEvent struct {
	DeviceID   string       `db:"device_id"`
	Status     DeviceStatus `db:"status"`
	OccurredAt time.Time    `db:"occurred_at"`
}

// EnergyKWh converts an on-duration at the given wattage to kilowatt hours.
func EnergyKWh(wattage int, duration time.Duration) float64 {
	kw := float64(wattage) / 1000
	hours := duration.Hours()
	return kw * hours
}
