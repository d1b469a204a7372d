package repository

import (
	"context"
	"database/sql"

	"homegrid-data/internal/apperrors"
	"homegrid-data/internal/domain"
)

type PostgresInvitationsRepository struct {
	db *sql.DB
}

func NewPostgresInvitationsRepository(db *sql.DB) *PostgresInvitationsRepository {
	return &PostgresInvitationsRepository{db: db}
}

func (r *PostgresInvitationsRepository) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	if inv == nil || inv.InvitationID == "" || inv.BuildingID == "" || inv.InvitedEmail == "" {
		return apperrors.Validation("invitation_id, building_id and invited_email are required")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invitations (invitation_id, building_id, invited_email, invited_by, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		inv.InvitationID,
		inv.BuildingID,
		domain.NormalizeEmail(inv.InvitedEmail),
		domain.NormalizeEmail(inv.InvitedBy),
		string(domain.InvitationInvited),
	)
	return err
}

func (r *PostgresInvitationsRepository) GetInvitation(ctx context.Context, invitationID string) (*domain.Invitation, error) {
	q := `
		SELECT invitation_id, building_id, invited_email, invited_by, status, created_at, decided_at
		FROM invitations
		WHERE invitation_id = $1
	`
	var inv domain.Invitation
	var status string
	err := r.db.QueryRowContext(ctx, q, invitationID).Scan(
		&inv.InvitationID,
		&inv.BuildingID,
		&inv.InvitedEmail,
		&inv.InvitedBy,
		&status,
		&inv.CreatedAt,
		&inv.DecidedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("invitation not found: %s", invitationID)
		}
		return nil, err
	}
	inv.Status = domain.InvitationStatus(status)
	return &inv, nil
}

func (r *PostgresInvitationsRepository) HasPendingInvitation(ctx context.Context, buildingID, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM invitations
			WHERE building_id = $1 AND invited_email = $2 AND status = $3
		)`,
		buildingID, domain.NormalizeEmail(email), string(domain.InvitationInvited),
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// MarkDecided only moves invited rows, so a second accept (or an accept
// after a decline) comes back as a conflict, never a double transition.
func (r *PostgresInvitationsRepository) MarkDecided(ctx context.Context, invitationID string, status domain.InvitationStatus) error {
	if status != domain.InvitationAccepted && status != domain.InvitationDeclined {
		return apperrors.Validation("invalid decision: %s", status)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE invitations
		 SET status = $2, decided_at = NOW()
		 WHERE invitation_id = $1 AND status = $3`,
		invitationID, string(status), string(domain.InvitationInvited),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Row missing or already decided; distinguish for the caller.
		if _, err := r.GetInvitation(ctx, invitationID); err != nil {
			return err
		}
		return apperrors.Conflict("invitation %s is no longer pending", invitationID)
	}
	return nil
}
