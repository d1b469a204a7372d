package authz

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homegrid-data/internal/apperrors"
	"homegrid-data/internal/domain"
)

func loc(buildingID, name string) *domain.Location {
	return &domain.Location{
		LocationID: domain.LocationID(buildingID, name),
		BuildingID: buildingID,
		Name:       name,
	}
}

func dev(id, locationID string) *domain.Device {
	d := &domain.Device{DeviceID: id, WattageWatts: domain.DefaultWattage}
	if locationID != "" {
		d.LocationID = sql.NullString{String: locationID, Valid: true}
	}
	return d
}

func TestVisibility_ParentSeesEverything(t *testing.T) {
	rs := NewRoleSet("p@x.com", []*domain.Membership{
		membership("p@x.com", "B1", domain.RoleParent),
	})
	locations := []*domain.Location{loc("B1", "Kitchen"), loc("B1", "Living Room")}
	devices := []*domain.Device{dev("d1", "B1Kitchen"), dev("d2", "B1LivingRoom")}

	gotLocs, err := VisibleLocations(rs, "B1", locations)
	require.NoError(t, err)
	assert.Equal(t, locations, gotLocs)

	gotDevs, err := VisibleDevices(rs, "B1", devices)
	require.NoError(t, err)
	assert.Equal(t, devices, gotDevs)
}

func TestVisibility_ChildrenRestrictedToAssigned(t *testing.T) {
	// The alice scenario: parent in B1, children in B2 assigned only L5.
	alice := NewRoleSet("alice@x.com", []*domain.Membership{
		membership("alice@x.com", "B1", domain.RoleParent),
		membership("alice@x.com", "B2", domain.RoleChildren, "B2L5"),
	})
	locations := []*domain.Location{loc("B2", "L5"), loc("B2", "L6")}
	devices := []*domain.Device{
		dev("d1", "B2L5"),
		dev("d2", "B2L6"),
		dev("d3", "B2L5"),
		dev("d4", ""), // unassigned, never visible to children
	}

	gotLocs, err := VisibleLocations(alice, "B2", locations)
	require.NoError(t, err)
	require.Len(t, gotLocs, 1)
	assert.Equal(t, "B2L5", gotLocs[0].LocationID)

	gotDevs, err := VisibleDevices(alice, "B2", devices)
	require.NoError(t, err)
	require.Len(t, gotDevs, 2)
	assert.Equal(t, "d1", gotDevs[0].DeviceID)
	assert.Equal(t, "d3", gotDevs[1].DeviceID)
}

func TestVisibility_ChildrenWithNoAssignmentsGetDistinctError(t *testing.T) {
	rs := NewRoleSet("c@x.com", []*domain.Membership{
		membership("c@x.com", "B1", domain.RoleChildren),
	})
	locations := []*domain.Location{loc("B1", "Kitchen")}
	devices := []*domain.Device{dev("d1", "B1Kitchen")}

	_, err := VisibleLocations(rs, "B1", locations)
	assert.ErrorIs(t, err, ErrNoAssignedLocations)

	_, err = VisibleDevices(rs, "B1", devices)
	assert.ErrorIs(t, err, ErrNoAssignedLocations)
}

func TestVisibility_AdminAndOutsiderLockedOut(t *testing.T) {
	admin := NewRoleSet("a@x.com", []*domain.Membership{
		membership("a@x.com", "B1", domain.RoleAdmin),
	})
	outsider := NewRoleSet("o@x.com", nil)
	locations := []*domain.Location{loc("B1", "Kitchen")}

	_, err := VisibleLocations(admin, "B1", locations)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))
	assert.NotErrorIs(t, err, ErrNoAssignedLocations)

	_, err = VisibleLocations(outsider, "B1", locations)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))
}
