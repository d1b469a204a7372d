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

func newDeviceFixture() (*memStore, DeviceService) {
	m := newMemStore()
	resolver := authz.NewResolver(m)
	svc := NewDeviceService(m, m, resolver, zap.NewNop())
	return m, svc
}

// Mixed-role scenario: alice is parent of B1 and children of B2
// assigned only L5; B2 has devices in both L5 and L6.
func TestListDevices_AliceScenario(t *testing.T) {
	m, svc := newDeviceFixture()
	ctx := context.Background()
	seedBuilding(m, "B2", "Office", "p@x.com")
	l5 := seedLocation(m, "B2", "L5")
	l6 := seedLocation(m, "B2", "L6")
	seedDevice(m, "d1", l5, 10)
	seedDevice(m, "d2", l6, 15)
	seedDevice(m, "d3", l5, 25)
	seedMembership(m, "alice@x.com", "B1", domain.RoleParent)
	seedMembership(m, "alice@x.com", "B2", domain.RoleChildren, l5)

	resp, err := svc.ListDevices(ctx, sessionFor("alice@x.com"), "B2")
	require.NoError(t, err)
	ids := []string{}
	for _, d := range resp.Items {
		ids = append(ids, d.DeviceID)
		assert.Equal(t, l5, d.LocationID)
	}
	assert.ElementsMatch(t, []string{"d1", "d3"}, ids)
}

func TestListDevices_ParentSeesAll(t *testing.T) {
	m, svc := newDeviceFixture()
	seedBuilding(m, "B1", "Home", "alice@x.com")
	k := seedLocation(m, "B1", "Kitchen")
	lr := seedLocation(m, "B1", "Living Room")
	seedDevice(m, "d1", k, 10)
	seedDevice(m, "d2", lr, 15)
	seedMembership(m, "alice@x.com", "B1", domain.RoleParent)

	resp, err := svc.ListDevices(context.Background(), sessionFor("alice@x.com"), "B1")
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)
}

func TestAssignDevice_ParentOnlyAndLocationMustMatch(t *testing.T) {
	m, svc := newDeviceFixture()
	ctx := context.Background()
	seedBuilding(m, "B1", "Home", "alice@x.com")
	seedBuilding(m, "B2", "Office", "other@x.com")
	k := seedLocation(m, "B1", "Kitchen")
	foreign := seedLocation(m, "B2", "Desk")
	seedDevice(m, "d1", "", 10)
	seedMembership(m, "alice@x.com", "B1", domain.RoleParent)
	seedMembership(m, "kid@x.com", "B1", domain.RoleChildren, k)

	err := svc.AssignDevice(ctx, sessionFor("kid@x.com"), AssignDeviceRequest{DeviceID: "d1", BuildingID: "B1", LocationID: k})
	assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))

	err = svc.AssignDevice(ctx, sessionFor("alice@x.com"), AssignDeviceRequest{DeviceID: "d1", BuildingID: "B1", LocationID: foreign})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	err = svc.AssignDevice(ctx, sessionFor("alice@x.com"), AssignDeviceRequest{DeviceID: "ghost", BuildingID: "B1", LocationID: k})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	require.NoError(t, svc.AssignDevice(ctx, sessionFor("alice@x.com"), AssignDeviceRequest{DeviceID: "d1", BuildingID: "B1", LocationID: k}))
	d, err := m.GetDevice(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, k, d.LocationID.String)
}

func TestUnassignDevice_ParentOfOwningBuilding(t *testing.T) {
	m, svc := newDeviceFixture()
	ctx := context.Background()
	seedBuilding(m, "B1", "Home", "alice@x.com")
	k := seedLocation(m, "B1", "Kitchen")
	seedDevice(m, "d1", k, 10)
	seedMembership(m, "alice@x.com", "B1", domain.RoleParent)
	seedMembership(m, "other@x.com", "B9", domain.RoleParent)

	err := svc.UnassignDevice(ctx, sessionFor("other@x.com"), "d1")
	assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))

	require.NoError(t, svc.UnassignDevice(ctx, sessionFor("alice@x.com"), "d1"))
	d, err := m.GetDevice(ctx, "d1")
	require.NoError(t, err)
	assert.False(t, d.LocationID.Valid)

	// Unassigning an already-unassigned device is a no-op.
	require.NoError(t, svc.UnassignDevice(ctx, sessionFor("alice@x.com"), "d1"))
}
