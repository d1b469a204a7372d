package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"homegrid-data/internal/apperrors"
	"homegrid-data/internal/domain"
)

type PostgresMembershipsRepository struct {
	db *sql.DB
}

func NewPostgresMembershipsRepository(db *sql.DB) *PostgresMembershipsRepository {
	return &PostgresMembershipsRepository{db: db}
}

func scanMembership(row interface{ Scan(...any) error }) (*domain.Membership, error) {
	var m domain.Membership
	var role string
	var assigned pq.StringArray
	err := row.Scan(&m.UserEmail, &m.BuildingID, &role, &assigned, &m.GrantedAt, &m.GrantedBy)
	if err != nil {
		return nil, err
	}
	m.Role = domain.Role(role)
	m.AssignedLocations = []string(assigned)
	return &m, nil
}

const membershipColumns = `user_email, building_id, role, assigned_locations, granted_at, granted_by`

func (r *PostgresMembershipsRepository) ListRoleRows(ctx context.Context, userEmail string) ([]*domain.Membership, error) {
	if userEmail == "" {
		return []*domain.Membership{}, nil
	}
	q := `
		SELECT ` + membershipColumns + `
		FROM user_buildings
		WHERE user_email = $1
		ORDER BY building_id
	`
	rows, err := r.db.QueryContext(ctx, q, domain.NormalizeEmail(userEmail))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMemberships(rows)
}

func (r *PostgresMembershipsRepository) GetMembership(ctx context.Context, userEmail, buildingID string) (*domain.Membership, error) {
	q := `
		SELECT ` + membershipColumns + `
		FROM user_buildings
		WHERE user_email = $1 AND building_id = $2
	`
	m, err := scanMembership(r.db.QueryRowContext(ctx, q, domain.NormalizeEmail(userEmail), buildingID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("no membership for %s in %s", userEmail, buildingID)
		}
		return nil, err
	}
	return m, nil
}

func (r *PostgresMembershipsRepository) ListBuildingMembers(ctx context.Context, buildingID string) ([]*domain.Membership, error) {
	q := `
		SELECT ` + membershipColumns + `
		FROM user_buildings
		WHERE building_id = $1
		ORDER BY user_email
	`
	rows, err := r.db.QueryContext(ctx, q, buildingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMemberships(rows)
}

func collectMemberships(rows *sql.Rows) ([]*domain.Membership, error) {
	out := []*domain.Membership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresMembershipsRepository) CreateMembership(ctx context.Context, m *domain.Membership) error {
	if m == nil || m.UserEmail == "" || m.BuildingID == "" {
		return apperrors.Validation("user_email and building_id are required")
	}
	if !m.Role.IsValid() {
		return apperrors.Validation("invalid role: %s", m.Role)
	}
	assigned := m.AssignedLocations
	if assigned == nil {
		assigned = []string{}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_buildings (user_email, building_id, role, assigned_locations, granted_at, granted_by)
		 VALUES ($1, $2, $3, $4, NOW(), $5)`,
		domain.NormalizeEmail(m.UserEmail),
		m.BuildingID,
		string(m.Role),
		pq.Array(assigned),
		m.GrantedBy,
	)
	if uniqueViolation(err) {
		return apperrors.Conflict("%s already has a role in %s", m.UserEmail, m.BuildingID)
	}
	return err
}

func (r *PostgresMembershipsRepository) DeleteMembership(ctx context.Context, userEmail, buildingID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM user_buildings WHERE user_email = $1 AND building_id = $2`,
		domain.NormalizeEmail(userEmail), buildingID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("no membership for %s in %s", userEmail, buildingID)
	}
	return nil
}

func (r *PostgresMembershipsRepository) UpdateAssignedLocations(ctx context.Context, userEmail, buildingID string, locationIDs []string) error {
	if locationIDs == nil {
		locationIDs = []string{}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_buildings
		 SET assigned_locations = $3
		 WHERE user_email = $1 AND building_id = $2`,
		domain.NormalizeEmail(userEmail), buildingID, pq.Array(locationIDs),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("no membership for %s in %s", userEmail, buildingID)
	}
	return nil
}
