package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"homegrid-data/internal/apperrors"
	"homegrid-data/internal/authz"
	"homegrid-data/internal/domain"
	"homegrid-data/internal/notify"
	"homegrid-data/internal/repository"
)

// InvitationService 邀请流程服务接口
// none → invited → accepted | declined. Only an accepted invitation creates
// the children membership row.
type InvitationService interface {
	Invite(ctx context.Context, sess authz.Session, req InviteRequest) (*InviteResponse, error)
	Accept(ctx context.Context, sess authz.Session, invitationID string) error
	Decline(ctx context.Context, sess authz.Session, invitationID string) error
}

type InviteRequest struct {
	BuildingID string
	Email      string
}

type InviteResponse struct {
	InvitationID string `json:"invitation_id"`
}

type invitationService struct {
	invitations repository.InvitationsRepository
	memberships repository.MembershipsRepository
	buildings   repository.BuildingsRepository
	users       repository.UsersRepository
	resolver    *authz.Resolver
	notifier    notify.Notifier
	logger      *zap.Logger
}

func NewInvitationService(
	invitations repository.InvitationsRepository,
	memberships repository.MembershipsRepository,
	buildings repository.BuildingsRepository,
	users repository.UsersRepository,
	resolver *authz.Resolver,
	notifier notify.Notifier,
	logger *zap.Logger,
) InvitationService {
	return &invitationService{
		invitations: invitations,
		memberships: memberships,
		buildings:   buildings,
		users:       users,
		resolver:    resolver,
		notifier:    notifier,
		logger:      logger,
	}
}

// Invite validates everything before any write: the inviter must be a parent
// of the building, the email must be registered, and the target must not
// already hold a role there or have a pending invitation. Only then is the
// invitation row created and the notice sent.
func (s *invitationService) Invite(ctx context.Context, sess authz.Session, req InviteRequest) (*InviteResponse, error) {
	email := domain.NormalizeEmail(req.Email)
	if !domain.ValidEmail(email) {
		return nil, apperrors.Validation("malformed email")
	}

	acting, err := s.resolver.Resolve(ctx, sess.Email)
	if err != nil {
		return nil, err
	}
	if !authz.CanInviteChildren(acting, req.BuildingID) {
		return nil, apperrors.PermissionDenied("only a parent may invite users to %s", req.BuildingID)
	}

	building, err := s.buildings.GetBuilding(ctx, req.BuildingID)
	if err != nil {
		return nil, err
	}

	exists, err := s.users.UserExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.Validation("email is not registered: %s", email)
	}

	// Duplicate check through role resolution, fail closed: a lookup error
	// blocks the invite instead of risking a double grant.
	target, err := s.resolver.Resolve(ctx, email)
	if err != nil {
		return nil, err
	}
	if target.RoleIn(req.BuildingID) != "" {
		return nil, apperrors.Conflict("%s already has access to %s", email, req.BuildingID)
	}

	pending, err := s.invitations.HasPendingInvitation(ctx, req.BuildingID, email)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, apperrors.Conflict("%s already has a pending invitation to %s", email, req.BuildingID)
	}

	inv := &domain.Invitation{
		InvitationID: uuid.NewString(),
		BuildingID:   req.BuildingID,
		InvitedEmail: email,
		InvitedBy:    sess.Email,
		Status:       domain.InvitationInvited,
	}
	if err := s.invitations.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}

	// The notice is best-effort and outside any transaction: a delivery
	// failure leaves the pending invitation in place and surfaces as an
	// external error, so the parent can retry from the invitations list.
	err = s.notifier.SendInvitation(ctx, notify.InvitationNotice{
		InvitationID: inv.InvitationID,
		BuildingID:   building.BuildingID,
		BuildingName: building.Name,
		ToEmail:      email,
		FromEmail:    sess.Email,
	})
	if err != nil {
		s.logger.Warn("invitation notice delivery failed",
			zap.String("invitation_id", inv.InvitationID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("invitation sent",
		zap.String("invitation_id", inv.InvitationID),
		zap.String("building_id", req.BuildingID),
		zap.String("to", email),
		zap.String("from", sess.Email))
	return &InviteResponse{InvitationID: inv.InvitationID}, nil
}

// Accept grants access and then flips the invitation status, in that order:
// a failed grant leaves the invitation pending, so the invitee can simply
// retry. A duplicate-membership conflict on the grant means an earlier
// attempt already succeeded and is treated as granted.
func (s *invitationService) Accept(ctx context.Context, sess authz.Session, invitationID string) error {
	inv, err := s.loadOwnInvitation(ctx, sess, invitationID)
	if err != nil {
		return err
	}
	if inv.Status != domain.InvitationInvited {
		return apperrors.Conflict("invitation %s was already %s", invitationID, inv.Status)
	}
	// Acceptance is what grants access: children with nothing assigned yet.
	m := &domain.Membership{
		UserEmail:         inv.InvitedEmail,
		BuildingID:        inv.BuildingID,
		Role:              domain.RoleChildren,
		AssignedLocations: []string{},
	}
	if err := s.memberships.CreateMembership(ctx, m); err != nil && !apperrors.IsKind(err, apperrors.KindConflict) {
		return err
	}
	if err := s.invitations.MarkDecided(ctx, invitationID, domain.InvitationAccepted); err != nil {
		return err
	}
	s.logger.Info("invitation accepted",
		zap.String("invitation_id", invitationID),
		zap.String("building_id", inv.BuildingID),
		zap.String("user", inv.InvitedEmail))
	return nil
}

func (s *invitationService) Decline(ctx context.Context, sess authz.Session, invitationID string) error {
	if _, err := s.loadOwnInvitation(ctx, sess, invitationID); err != nil {
		return err
	}
	return s.invitations.MarkDecided(ctx, invitationID, domain.InvitationDeclined)
}

func (s *invitationService) loadOwnInvitation(ctx context.Context, sess authz.Session, invitationID string) (*domain.Invitation, error) {
	inv, err := s.invitations.GetInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.InvitedEmail != domain.NormalizeEmail(sess.Email) {
		return nil, apperrors.PermissionDenied("invitation %s is not addressed to you", invitationID)
	}
	return inv, nil
}
