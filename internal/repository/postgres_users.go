package repository

import (
	"context"
	"database/sql"

	"homegrid-data/internal/apperrors"
	"homegrid-data/internal/domain"
)

type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

func (r *PostgresUsersRepository) GetUser(ctx context.Context, email string) (*domain.User, error) {
	q := `
		SELECT email, display_name, contact_number, parent_email, updated_at, updated_by
		FROM users
		WHERE email = $1
	`
	var u domain.User
	err := r.db.QueryRowContext(ctx, q, domain.NormalizeEmail(email)).Scan(
		&u.Email,
		&u.DisplayName,
		&u.ContactNumber,
		&u.ParentEmail,
		&u.UpdatedAt,
		&u.UpdatedBy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("user not found: %s", email)
		}
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUsersRepository) UserExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`,
		domain.NormalizeEmail(email),
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresUsersRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if user == nil || user.Email == "" {
		return apperrors.Validation("email is required")
	}
	if !domain.ValidEmail(user.Email) {
		return apperrors.Validation("malformed email: %s", user.Email)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, display_name, contact_number, parent_email, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		domain.NormalizeEmail(user.Email),
		user.DisplayName,
		user.ContactNumber,
		user.ParentEmail,
	)
	if uniqueViolation(err) {
		return apperrors.Conflict("email already registered: %s", user.Email)
	}
	return err
}

func (r *PostgresUsersRepository) UpdateUser(ctx context.Context, email string, user *domain.User) error {
	if user == nil {
		return apperrors.Validation("user is required")
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET display_name = $2,
		     contact_number = $3,
		     updated_at = NOW(),
		     updated_by = $4
		 WHERE email = $1`,
		domain.NormalizeEmail(email),
		user.DisplayName,
		user.ContactNumber,
		user.UpdatedBy,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("user not found: %s", email)
	}
	return nil
}
