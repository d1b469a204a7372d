package domain

import (
	"database/sql"
)

// Role 每楼宇角色 (user_buildings.role)
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleParent   Role = "parent"
	RoleChildren Role = "children"
)

// IsValid reports whether the role is one of the three per-building roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleParent, RoleChildren:
		return true
	}
	return false
}

// SystemAdminBuilding is the sentinel building id whose membership row marks
// a user as a global system administrator. It must never surface in any
// "real building" listing.
const SystemAdminBuilding = "SystemAdmin"

// Membership 用户-楼宇关系领域模型 (user_buildings 表)
// Composite identity (UserEmail, BuildingID). AssignedLocations is only
// meaningful when Role is children; it restricts which locations (and the
// devices inside them) the user may see in that building.
type Membership struct {
	UserEmail         string         `db:"user_email"`
	BuildingID        string         `db:"building_id"`
	Role              Role           `db:"role"`
	AssignedLocations []string       `db:"assigned_locations"`
	GrantedAt         sql.NullTime   `db:"granted_at"`
	GrantedBy         sql.NullString `db:"granted_by"`
}

// IsSentinel reports whether this is the SystemAdmin marker row.
func (m *Membership) IsSentinel() bool {
	return m.BuildingID == SystemAdminBuilding
}
