package authz

import (
	"homegrid-data/internal/domain"
)

// Permission predicates for one (acting user, building) pair.
//
// Role policy: the admin role is administrative-only. Admins may view a
// building's metadata but may not edit or delete it, may not manage or even
// view its locations and devices, and may not invite users. Only parents
// manage a building. The SystemAdmin sentinel grants read everywhere and
// write nowhere.

// CanViewBuilding: any role in the building, or system admin.
func CanViewBuilding(rs RoleSet, buildingID string) bool {
	if rs.IsSystemAdmin() {
		return true
	}
	return rs.RoleIn(buildingID) != ""
}

// CanEditBuilding: parent only.
func CanEditBuilding(rs RoleSet, buildingID string) bool {
	return rs.RoleIn(buildingID) == domain.RoleParent
}

// CanDeleteBuilding: same bar as editing.
func CanDeleteBuilding(rs RoleSet, buildingID string) bool {
	return CanEditBuilding(rs, buildingID)
}

// CanManageLocations: parent only.
func CanManageLocations(rs RoleSet, buildingID string) bool {
	return rs.RoleIn(buildingID) == domain.RoleParent
}

// CanInviteChildren: parent only.
func CanInviteChildren(rs RoleSet, buildingID string) bool {
	return rs.RoleIn(buildingID) == domain.RoleParent
}

// CanViewLocations: parents and children see (their slice of) the
// operational detail; admins are locked out of it entirely.
func CanViewLocations(rs RoleSet, buildingID string) bool {
	switch rs.RoleIn(buildingID) {
	case domain.RoleParent, domain.RoleChildren:
		return true
	}
	return false
}

// CanViewUser: self, system admin (read only), or parent over the target's
// children role in any shared building.
func CanViewUser(acting, target RoleSet) bool {
	if acting.Email() != "" && acting.Email() == target.Email() {
		return true
	}
	if acting.IsSystemAdmin() {
		return true
	}
	return parentOverChildren(acting, target)
}

// CanEditUser: like CanViewUser but the system admin is excluded — its
// cross-building reach is view-only.
func CanEditUser(acting, target RoleSet) bool {
	if acting.Email() != "" && acting.Email() == target.Email() {
		return true
	}
	return parentOverChildren(acting, target)
}

// CanRemoveFromBuilding: a parent may remove a children user from that
// building; users may remove themselves.
func CanRemoveFromBuilding(acting, target RoleSet, buildingID string) bool {
	if acting.Email() != "" && acting.Email() == target.Email() {
		return true
	}
	return acting.RoleIn(buildingID) == domain.RoleParent &&
		target.RoleIn(buildingID) == domain.RoleChildren
}

// VisibleProfileBuildings returns the target's building ids the acting user
// is entitled to see on a profile screen. A system admin sees only the
// buildings where the target holds parent; everyone else entitled to the
// profile sees the full list.
func VisibleProfileBuildings(acting, target RoleSet) []string {
	if acting.IsSystemAdmin() && acting.Email() != target.Email() {
		return target.BuildingsWithRole(domain.RoleParent)
	}
	return target.Buildings()
}

func parentOverChildren(acting, target RoleSet) bool {
	for _, id := range acting.BuildingsWithRole(domain.RoleParent) {
		if target.RoleIn(id) == domain.RoleChildren {
			return true
		}
	}
	return false
}
