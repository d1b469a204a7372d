package authz

import (
	"context"

	"homegrid-data/internal/domain"
	"homegrid-data/internal/repository"
)

// RoleSet is one user's resolved building roles: the answer to
// "what is this user allowed to touch". A failed lookup must never be
// substituted with a permissive set; Resolve returns an error and callers
// treat it as no access at all.
type RoleSet struct {
	email       string
	byBuilding  map[string]*domain.Membership
	systemAdmin bool
}

// EmptyRoleSet is what a failed or anonymous lookup acts as: no roles.
func EmptyRoleSet(email string) RoleSet {
	return RoleSet{email: email, byBuilding: map[string]*domain.Membership{}}
}

// NewRoleSet builds a RoleSet from raw membership rows. The SystemAdmin
// sentinel row flips the global flag and is kept out of the building map.
func NewRoleSet(email string, rows []*domain.Membership) RoleSet {
	rs := EmptyRoleSet(email)
	for _, m := range rows {
		if m.IsSentinel() {
			rs.systemAdmin = true
			continue
		}
		rs.byBuilding[m.BuildingID] = m
	}
	return rs
}

// Resolver resolves role sets against the membership store.
type Resolver struct {
	memberships repository.MembershipsRepository
}

func NewResolver(memberships repository.MembershipsRepository) *Resolver {
	return &Resolver{memberships: memberships}
}

// Resolve loads every membership row for the user. On lookup failure the
// returned set is empty and the error is propagated — fail closed.
func (r *Resolver) Resolve(ctx context.Context, email string) (RoleSet, error) {
	rows, err := r.memberships.ListRoleRows(ctx, email)
	if err != nil {
		return EmptyRoleSet(email), err
	}
	return NewRoleSet(email, rows), nil
}

func (rs RoleSet) Email() string { return rs.email }

// IsSystemAdmin reports whether the sentinel row was present.
func (rs RoleSet) IsSystemAdmin() bool { return rs.systemAdmin }

// RoleIn returns the user's role in the building, or "" for none.
func (rs RoleSet) RoleIn(buildingID string) domain.Role {
	if m, ok := rs.byBuilding[buildingID]; ok {
		return m.Role
	}
	return ""
}

// MembershipIn returns the full membership row for the building, if any.
func (rs RoleSet) MembershipIn(buildingID string) (*domain.Membership, bool) {
	m, ok := rs.byBuilding[buildingID]
	return m, ok
}

// Buildings lists the real building ids the user belongs to. The sentinel
// never appears here.
func (rs RoleSet) Buildings() []string {
	out := make([]string, 0, len(rs.byBuilding))
	for id := range rs.byBuilding {
		out = append(out, id)
	}
	return out
}

// BuildingsWithRole lists building ids where the user holds the given role.
func (rs RoleSet) BuildingsWithRole(role domain.Role) []string {
	out := []string{}
	for id, m := range rs.byBuilding {
		if m.Role == role {
			out = append(out, id)
		}
	}
	return out
}
