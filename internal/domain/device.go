package domain

import (
	"database/sql"
)

// Device 设备领域模型 (devices 表)
// Devices are pre-provisioned: rows exist before any building references
// them. LocationID is NULL while a device is unassigned (never assigned, or
// its building was deleted).
type Device struct {
	DeviceID     string         `db:"device_id"`
	LocationID   sql.NullString `db:"location_id"` // nullable
	WattageWatts int            `db:"wattage_watts"`
	RegisteredAt sql.NullTime   `db:"registered_at"`
}

// DefaultWattage is assumed when a device was provisioned without a rating.
const DefaultWattage = 10
