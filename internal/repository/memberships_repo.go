package repository

import (
	"context"

	"homegrid-data/internal/domain"
)

// MembershipsRepository 用户-楼宇关系Repository接口
// The read side of the authorization core: every permission decision starts
// from ListRoleRows.
type MembershipsRepository interface {
	// ListRoleRows returns every membership row for the user, including the
	// SystemAdmin sentinel. Callers enumerate "real" buildings through
	// authz.RoleSet, which filters the sentinel out.
	ListRoleRows(ctx context.Context, userEmail string) ([]*domain.Membership, error)
	GetMembership(ctx context.Context, userEmail, buildingID string) (*domain.Membership, error)
	ListBuildingMembers(ctx context.Context, buildingID string) ([]*domain.Membership, error)
	CreateMembership(ctx context.Context, m *domain.Membership) error
	DeleteMembership(ctx context.Context, userEmail, buildingID string) error
	UpdateAssignedLocations(ctx context.Context, userEmail, buildingID string, locationIDs []string) error
}
