package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"homegrid-data/internal/apperrors"
	"homegrid-data/internal/domain"
)

type PostgresBuildingsRepository struct {
	db *sql.DB
}

func NewPostgresBuildingsRepository(db *sql.DB) *PostgresBuildingsRepository {
	return &PostgresBuildingsRepository{db: db}
}

// uniqueViolation: PostgreSQL error code 23505
func uniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

const buildingColumns = `building_id, building_name, address, description, created_by, created_at, updated_at, updated_by`

func scanBuilding(row interface{ Scan(...any) error }) (*domain.Building, error) {
	var b domain.Building
	err := row.Scan(
		&b.BuildingID,
		&b.Name,
		&b.Address,
		&b.Description,
		&b.CreatedBy,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PostgresBuildingsRepository) GetBuilding(ctx context.Context, buildingID string) (*domain.Building, error) {
	if buildingID == "" {
		return nil, apperrors.Validation("building_id is required")
	}
	q := `SELECT ` + buildingColumns + ` FROM buildings WHERE building_id = $1`
	b, err := scanBuilding(r.db.QueryRowContext(ctx, q, buildingID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("building not found: %s", buildingID)
		}
		return nil, err
	}
	return b, nil
}

func (r *PostgresBuildingsRepository) ListBuildings(ctx context.Context, buildingIDs []string) ([]*domain.Building, error) {
	if len(buildingIDs) == 0 {
		return []*domain.Building{}, nil
	}
	q := `
		SELECT ` + buildingColumns + `
		FROM buildings
		WHERE building_id = ANY($1)
		ORDER BY building_name, building_id
	`
	rows, err := r.db.QueryContext(ctx, q, pq.Array(buildingIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBuildings(rows)
}

func (r *PostgresBuildingsRepository) ListAllBuildings(ctx context.Context) ([]*domain.Building, error) {
	q := `SELECT ` + buildingColumns + ` FROM buildings ORDER BY building_name, building_id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBuildings(rows)
}

func collectBuildings(rows *sql.Rows) ([]*domain.Building, error) {
	out := []*domain.Building{}
	for rows.Next() {
		b, err := scanBuilding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CreateBuilding: building + first location + creator parent membership +
// optional device assignment, one transaction. The legacy dashboard did the
// same steps as independent writes; here a mid-sequence failure rolls back.
func (r *PostgresBuildingsRepository) CreateBuilding(ctx context.Context, building *domain.Building, firstLocation string, deviceID string) error {
	if building == nil || building.BuildingID == "" {
		return apperrors.Validation("building_id is required")
	}
	if building.Name == "" {
		return apperrors.Validation("building name is required")
	}
	if firstLocation == "" {
		return apperrors.Validation("first location name is required")
	}
	if building.BuildingID == domain.SystemAdminBuilding {
		return apperrors.Validation("building id %q is reserved", domain.SystemAdminBuilding)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO buildings (building_id, building_name, address, description, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		building.BuildingID,
		building.Name,
		building.Address,
		building.Description,
		building.CreatedBy,
	)
	if err != nil {
		if uniqueViolation(err) {
			return apperrors.Validation("building id already exists: %s", building.BuildingID)
		}
		return err
	}

	locationID := domain.LocationID(building.BuildingID, firstLocation)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO locations (location_id, building_id, location_name, created_at)
		 VALUES ($1, $2, $3, NOW())`,
		locationID,
		building.BuildingID,
		firstLocation,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_buildings (user_email, building_id, role, assigned_locations, granted_at, granted_by)
		 VALUES ($1, $2, $3, '{}', NOW(), $1)`,
		domain.NormalizeEmail(building.CreatedBy),
		building.BuildingID,
		string(domain.RoleParent),
	)
	if err != nil {
		return err
	}

	if deviceID != "" {
		res, err := tx.ExecContext(ctx,
			`UPDATE devices SET location_id = $2 WHERE device_id = $1`,
			deviceID,
			locationID,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperrors.NotFound("device not found: %s", deviceID)
		}
	}

	return tx.Commit()
}

func (r *PostgresBuildingsRepository) UpdateBuilding(ctx context.Context, buildingID string, building *domain.Building) error {
	if buildingID == "" || building == nil {
		return apperrors.Validation("building_id and building are required")
	}
	if building.Name == "" {
		return apperrors.Validation("building name is required")
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE buildings
		 SET building_name = $2,
		     address = $3,
		     description = $4,
		     updated_at = NOW(),
		     updated_by = $5
		 WHERE building_id = $1`,
		buildingID,
		building.Name,
		building.Address,
		building.Description,
		building.UpdatedBy,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("building not found: %s", buildingID)
	}
	return nil
}

// DeleteBuildingCascade: the legacy dashboard ran these as independent
// deletes and could leave orphans; here the whole cascade commits or nothing
// does. Devices survive, unassigned.
func (r *PostgresBuildingsRepository) DeleteBuildingCascade(ctx context.Context, buildingID string) error {
	if buildingID == "" {
		return apperrors.Validation("building_id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE devices SET location_id = NULL
		 WHERE location_id IN (SELECT location_id FROM locations WHERE building_id = $1)`,
		buildingID,
	)
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM locations WHERE building_id = $1`, buildingID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM user_buildings WHERE building_id = $1`, buildingID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM invitations WHERE building_id = $1`, buildingID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM buildings WHERE building_id = $1`, buildingID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("building not found: %s", buildingID)
	}

	return tx.Commit()
}

func (r *PostgresBuildingsRepository) ListLocations(ctx context.Context, buildingID string) ([]*domain.Location, error) {
	q := `
		SELECT location_id, building_id, location_name, created_at
		FROM locations
		WHERE building_id = $1
		ORDER BY location_name
	`
	rows, err := r.db.QueryContext(ctx, q, buildingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Location{}
	for rows.Next() {
		var l domain.Location
		if err := rows.Scan(&l.LocationID, &l.BuildingID, &l.Name, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

func (r *PostgresBuildingsRepository) GetLocation(ctx context.Context, locationID string) (*domain.Location, error) {
	q := `
		SELECT location_id, building_id, location_name, created_at
		FROM locations
		WHERE location_id = $1
	`
	var l domain.Location
	err := r.db.QueryRowContext(ctx, q, locationID).Scan(&l.LocationID, &l.BuildingID, &l.Name, &l.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("location not found: %s", locationID)
		}
		return nil, err
	}
	return &l, nil
}

func (r *PostgresBuildingsRepository) CreateLocation(ctx context.Context, location *domain.Location) error {
	if location == nil || location.BuildingID == "" || location.Name == "" {
		return apperrors.Validation("building_id and location name are required")
	}
	if location.LocationID == "" {
		location.LocationID = domain.LocationID(location.BuildingID, location.Name)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO locations (location_id, building_id, location_name, created_at)
		 VALUES ($1, $2, $3, NOW())`,
		location.LocationID,
		location.BuildingID,
		location.Name,
	)
	if uniqueViolation(err) {
		return apperrors.Validation("location already exists: %s", location.LocationID)
	}
	return err
}

// DeleteLocation checks both blockers inside the transaction so a device
// assignment racing the delete cannot slip through.
func (r *PostgresBuildingsRepository) DeleteLocation(ctx context.Context, buildingID, locationID string) error {
	if buildingID == "" || locationID == "" {
		return apperrors.Validation("building_id and location_id are required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var deviceCount int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM devices WHERE location_id = $1`, locationID,
	).Scan(&deviceCount); err != nil {
		return err
	}
	if deviceCount > 0 {
		return apperrors.Conflict("location %s still has %d device(s)", locationID, deviceCount)
	}

	var assignmentCount int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_buildings WHERE building_id = $1 AND $2 = ANY(assigned_locations)`,
		buildingID, locationID,
	).Scan(&assignmentCount); err != nil {
		return err
	}
	if assignmentCount > 0 {
		return apperrors.Conflict("location %s is assigned to %d user(s)", locationID, assignmentCount)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM locations WHERE building_id = $1 AND location_id = $2`,
		buildingID, locationID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("location not found: %s", locationID)
	}

	return tx.Commit()
}
