package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"homegrid-data/internal/apperrors"
	"homegrid-data/internal/authz"
	"homegrid-data/internal/domain"
)

func newBuildingFixture() (*memStore, BuildingService) {
	m := newMemStore()
	resolver := authz.NewResolver(m)
	svc := NewBuildingService(m, m, resolver, zap.NewNop())
	return m, svc
}

func TestCreateBuilding_CreatesFirstLocationAndParentRole(t *testing.T) {
	m, svc := newBuildingFixture()
	ctx := context.Background()
	seedUser(m, "alice@x.com", "Alice")
	seedDevice(m, "dev-1", "", 15)

	resp, err := svc.CreateBuilding(ctx, sessionFor("alice@x.com"), CreateBuildingRequest{
		BuildingID:    "B1",
		Name:          "Home",
		Address:       "1 Main St",
		FirstLocation: "Living Room",
		DeviceID:      "dev-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "B1", resp.BuildingID)
	assert.Equal(t, "B1LivingRoom", resp.LocationID)

	mem, err := m.GetMembership(ctx, "alice@x.com", "B1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleParent, mem.Role)

	d, err := m.GetDevice(ctx, "dev-1")
	require.NoError(t, err)
	require.True(t, d.LocationID.Valid)
	assert.Equal(t, "B1LivingRoom", d.LocationID.String)
}

func TestCreateBuilding_DuplicateIDRejected(t *testing.T) {
	m, svc := newBuildingFixture()
	ctx := context.Background()
	seedUser(m, "alice@x.com", "Alice")
	seedBuilding(m, "B1", "Existing", "someone@x.com")

	_, err := svc.CreateBuilding(ctx, sessionFor("alice@x.com"), CreateBuildingRequest{
		BuildingID:    "B1",
		Name:          "Home",
		FirstLocation: "Kitchen",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestCreateBuilding_ReservedSentinelIDRejected(t *testing.T) {
	m, svc := newBuildingFixture()
	seedUser(m, "alice@x.com", "Alice")

	_, err := svc.CreateBuilding(context.Background(), sessionFor("alice@x.com"), CreateBuildingRequest{
		BuildingID:    domain.SystemAdminBuilding,
		Name:          "Sneaky",
		FirstLocation: "L",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestListBuildings_RoleScopedAndSentinelFree(t *testing.T) {
	m, svc := newBuildingFixture()
	ctx := context.Background()
	seedBuilding(m, "B1", "Home", "alice@x.com")
	seedBuilding(m, "B2", "Office", "other@x.com")
	seedBuilding(m, "B3", "Cabin", "other@x.com")
	seedMembership(m, "alice@x.com", "B1", domain.RoleParent)
	seedMembership(m, "alice@x.com", "B2", domain.RoleChildren, "B2Desk")
	seedMembership(m, "root@x.com", domain.SystemAdminBuilding, domain.RoleAdmin)

	resp, err := svc.ListBuildings(ctx, sessionFor("alice@x.com"))
	require.NoError(t, err)
	ids := []string{}
	for _, b := range resp.Items {
		ids = append(ids, b.BuildingID)
	}
	assert.ElementsMatch(t, []string{"B1", "B2"}, ids)

	// System admin sees every real building; the sentinel id never appears.
	resp, err = svc.ListBuildings(ctx, sessionFor("root@x.com"))
	require.NoError(t, err)
	ids = ids[:0]
	for _, b := range resp.Items {
		ids = append(ids, b.BuildingID)
	}
	assert.ElementsMatch(t, []string{"B1", "B2", "B3"}, ids)
}

func TestUpdateBuilding_ParentOnly(t *testing.T) {
	m, svc := newBuildingFixture()
	ctx := context.Background()
	seedBuilding(m, "B1", "Home", "alice@x.com")
	seedMembership(m, "alice@x.com", "B1", domain.RoleParent)
	seedMembership(m, "admin@x.com", "B1", domain.RoleAdmin)
	seedMembership(m, "kid@x.com", "B1", domain.RoleChildren)

	require.NoError(t, svc.UpdateBuilding(ctx, sessionFor("alice@x.com"), "B1", UpdateBuildingRequest{Name: "New Home"}))

	err := svc.UpdateBuilding(ctx, sessionFor("admin@x.com"), "B1", UpdateBuildingRequest{Name: "Nope"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))

	err = svc.UpdateBuilding(ctx, sessionFor("kid@x.com"), "B1", UpdateBuildingRequest{Name: "Nope"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))
}

func TestDeleteBuilding_CascadeUnassignsDevices(t *testing.T) {
	m, svc := newBuildingFixture()
	ctx := context.Background()
	seedBuilding(m, "B1", "Home", "alice@x.com")
	seedMembership(m, "alice@x.com", "B1", domain.RoleParent)
	seedMembership(m, "kid@x.com", "B1", domain.RoleChildren, "B1Kitchen")
	kitchen := seedLocation(m, "B1", "Kitchen")
	seedDevice(m, "dev-1", kitchen, 10)

	require.NoError(t, svc.DeleteBuilding(ctx, sessionFor("alice@x.com"), "B1"))

	_, err := m.GetBuilding(ctx, "B1")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	locs, _ := m.ListLocations(ctx, "B1")
	assert.Empty(t, locs)
	members, _ := m.ListBuildingMembers(ctx, "B1")
	assert.Empty(t, members)

	d, err := m.GetDevice(ctx, "dev-1")
	require.NoError(t, err)
	assert.False(t, d.LocationID.Valid, "device should be unassigned, not deleted")
}

func TestDeleteBuilding_ParentOnly(t *testing.T) {
	m, svc := newBuildingFixture()
	seedBuilding(m, "B1", "Home", "alice@x.com")
	seedMembership(m, "admin@x.com", "B1", domain.RoleAdmin)
	seedMembership(m, "root@x.com", domain.SystemAdminBuilding, domain.RoleAdmin)

	err := svc.DeleteBuilding(context.Background(), sessionFor("admin@x.com"), "B1")
	assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))

	// System admin is view-only.
	err = svc.DeleteBuilding(context.Background(), sessionFor("root@x.com"), "B1")
	assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))
}

func TestRemoveLocation_BlockedByDevicesThenSucceeds(t *testing.T) {
	m, svc := newBuildingFixture()
	ctx := context.Background()
	seedBuilding(m, "B1", "Home", "alice@x.com")
	seedMembership(m, "alice@x.com", "B1", domain.RoleParent)
	kitchen := seedLocation(m, "B1", "Kitchen")
	seedDevice(m, "dev-1", kitchen, 10)

	err := svc.RemoveLocation(ctx, sessionFor("alice@x.com"), "B1", kitchen)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	_, err = m.GetLocation(ctx, kitchen)
	assert.NoError(t, err, "rejected removal must leave the location in place")

	require.NoError(t, m.UnassignDevice(ctx, "dev-1"))
	require.NoError(t, svc.RemoveLocation(ctx, sessionFor("alice@x.com"), "B1", kitchen))
}

func TestRemoveLocation_BlockedByAssignments(t *testing.T) {
	m, svc := newBuildingFixture()
	ctx := context.Background()
	seedBuilding(m, "B1", "Home", "alice@x.com")
	seedMembership(m, "alice@x.com", "B1", domain.RoleParent)
	kitchen := seedLocation(m, "B1", "Kitchen")
	seedMembership(m, "kid@x.com", "B1", domain.RoleChildren, kitchen)

	err := svc.RemoveLocation(ctx, sessionFor("alice@x.com"), "B1", kitchen)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestListLocations_ChildrenSeeOnlyAssigned(t *testing.T) {
	m, svc := newBuildingFixture()
	ctx := context.Background()
	seedBuilding(m, "B2", "Office", "p@x.com")
	l5 := seedLocation(m, "B2", "L5")
	seedLocation(m, "B2", "L6")
	seedMembership(m, "alice@x.com", "B2", domain.RoleChildren, l5)

	resp, err := svc.ListLocations(ctx, sessionFor("alice@x.com"), "B2")
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, l5, resp.Items[0].LocationID)
}

func TestListLocations_ChildrenWithoutAssignmentsGetDistinctError(t *testing.T) {
	m, svc := newBuildingFixture()
	seedBuilding(m, "B1", "Home", "p@x.com")
	seedLocation(m, "B1", "Kitchen")
	seedMembership(m, "kid@x.com", "B1", domain.RoleChildren)

	_, err := svc.ListLocations(context.Background(), sessionFor("kid@x.com"), "B1")
	assert.ErrorIs(t, err, authz.ErrNoAssignedLocations)
}

func TestAssignUserLocations_ValidatesBuildingAndRole(t *testing.T) {
	m, svc := newBuildingFixture()
	ctx := context.Background()
	seedBuilding(m, "B1", "Home", "alice@x.com")
	seedMembership(m, "alice@x.com", "B1", domain.RoleParent)
	seedMembership(m, "kid@x.com", "B1", domain.RoleChildren)
	kitchen := seedLocation(m, "B1", "Kitchen")

	// Foreign location id rejected.
	err := svc.AssignUserLocations(ctx, sessionFor("alice@x.com"), "B1", "kid@x.com", []string{"B9Lobby"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	// Assigning to a parent makes no sense.
	err = svc.AssignUserLocations(ctx, sessionFor("alice@x.com"), "B1", "alice@x.com", []string{kitchen})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	require.NoError(t, svc.AssignUserLocations(ctx, sessionFor("alice@x.com"), "B1", "kid@x.com", []string{kitchen}))
	mem, err := m.GetMembership(ctx, "kid@x.com", "B1")
	require.NoError(t, err)
	assert.Equal(t, []string{kitchen}, mem.AssignedLocations)
}
