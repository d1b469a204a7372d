package repository

import (
	"context"

	"homegrid-data/internal/domain"
)

// InvitationsRepository 邀请Repository接口
type InvitationsRepository interface {
	CreateInvitation(ctx context.Context, inv *domain.Invitation) error
	GetInvitation(ctx context.Context, invitationID string) (*domain.Invitation, error)
	// HasPendingInvitation reports whether an invited-state row already
	// exists for (buildingID, email).
	HasPendingInvitation(ctx context.Context, buildingID, email string) (bool, error)
	// MarkDecided transitions invited → accepted/declined. Returns a conflict
	// when the row is not in the invited state.
	MarkDecided(ctx context.Context, invitationID string, status domain.InvitationStatus) error
}
