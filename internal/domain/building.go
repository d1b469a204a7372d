package domain

import (
	"database/sql"
	"strings"
)

// Building 楼宇领域模型 (buildings 表)
// BuildingID is chosen by the creating user at creation time, not generated.
type Building struct {
	BuildingID  string         `db:"building_id"`
	Name        string         `db:"building_name"` // NOT NULL
	Address     sql.NullString `db:"address"`       // nullable
	Description sql.NullString `db:"description"`   // nullable
	CreatedBy   string         `db:"created_by"`
	CreatedAt   sql.NullTime   `db:"created_at"`
	UpdatedAt   sql.NullTime   `db:"updated_at"`
	UpdatedBy   sql.NullString `db:"updated_by"`
}

// Location 位置领域模型 (locations 表)
// The id is derived: building id + location name with all spaces stripped,
// matching the key scheme of the legacy dashboard.
type Location struct {
	LocationID string       `db:"location_id"`
	BuildingID string       `db:"building_id"`
	Name       string       `db:"location_name"`
	CreatedAt  sql.NullTime `db:"created_at"`
}

// LocationID derives the location key for a name within a building.
func LocationID(buildingID, locationName string) string {
	return buildingID + strings.ReplaceAll(locationName, " ", "")
}
