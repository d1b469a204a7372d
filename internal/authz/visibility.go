package authz

import (
	"homegrid-data/internal/apperrors"
	"homegrid-data/internal/domain"
)

// ErrNoAssignedLocations distinguishes "you belong here but nothing was
// assigned to you yet" from a plain empty building, so the caller can render
// the ask-a-parent message instead of a generic not-found.
var ErrNoAssignedLocations = apperrors.PermissionDenied(
	"no locations assigned; ask a parent of this building to assign you")

// VisibleLocations filters a building's full location list down to what the
// user may see.
//
//	parent   → everything
//	children → only AssignedLocations (empty set → ErrNoAssignedLocations)
//	other    → nothing (admins are locked out of operational detail)
func VisibleLocations(rs RoleSet, buildingID string, locations []*domain.Location) ([]*domain.Location, error) {
	m, ok := rs.MembershipIn(buildingID)
	if !ok {
		return nil, apperrors.PermissionDenied("no access to building %s", buildingID)
	}
	switch m.Role {
	case domain.RoleParent:
		return locations, nil
	case domain.RoleChildren:
		if len(m.AssignedLocations) == 0 {
			return nil, ErrNoAssignedLocations
		}
		allowed := toSet(m.AssignedLocations)
		out := []*domain.Location{}
		for _, l := range locations {
			if allowed[l.LocationID] {
				out = append(out, l)
			}
		}
		return out, nil
	default:
		return nil, apperrors.PermissionDenied("role %s may not view locations", m.Role)
	}
}

// VisibleDevices filters a building's full device list: a device is visible
// when its location is visible.
func VisibleDevices(rs RoleSet, buildingID string, devices []*domain.Device) ([]*domain.Device, error) {
	m, ok := rs.MembershipIn(buildingID)
	if !ok {
		return nil, apperrors.PermissionDenied("no access to building %s", buildingID)
	}
	switch m.Role {
	case domain.RoleParent:
		return devices, nil
	case domain.RoleChildren:
		if len(m.AssignedLocations) == 0 {
			return nil, ErrNoAssignedLocations
		}
		allowed := toSet(m.AssignedLocations)
		out := []*domain.Device{}
		for _, d := range devices {
			if d.LocationID.Valid && allowed[d.LocationID.String] {
				out = append(out, d)
			}
		}
		return out, nil
	default:
		return nil, apperrors.PermissionDenied("role %s may not view devices", m.Role)
	}
}

func toSet(ids []string) map[string]bool {
	s := make(map[string]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}
