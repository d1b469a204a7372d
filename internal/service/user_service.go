package service

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"homegrid-data/internal/apperrors"
	"homegrid-data/internal/authz"
	"homegrid-data/internal/domain"
	"homegrid-data/internal/repository"
)

// UserService 用户管理服务接口
type UserService interface {
	GetProfile(ctx context.Context, sess authz.Session, email string) (*GetProfileResponse, error)
	// LookupUser backs the invite screen's email lookup: existence and
	// display name only, no role data leaks.
	LookupUser(ctx context.Context, sess authz.Session, email string) (*LookupUserResponse, error)
	UpdateUser(ctx context.Context, sess authz.Session, email string, req UpdateUserRequest) error
	RemoveFromBuilding(ctx context.Context, sess authz.Session, email, buildingID string) error
}

type BuildingRoleView struct {
	BuildingID        string   `json:"building_id"`
	Role              string   `json:"role"`
	AssignedLocations []string `json:"assigned_locations,omitempty"`
}

type GetProfileResponse struct {
	Email         string             `json:"email"`
	DisplayName   string             `json:"display_name"`
	ContactNumber string             `json:"contact_number,omitempty"`
	Buildings     []BuildingRoleView `json:"buildings"`
	Editable      bool               `json:"editable"`
}

type LookupUserResponse struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type UpdateUserRequest struct {
	DisplayName   string
	ContactNumber string
}

type userService struct {
	users       repository.UsersRepository
	memberships repository.MembershipsRepository
	resolver    *authz.Resolver
	logger      *zap.Logger
}

func NewUserService(
	users repository.UsersRepository,
	memberships repository.MembershipsRepository,
	resolver *authz.Resolver,
	logger *zap.Logger,
) UserService {
	return &userService{users: users, memberships: memberships, resolver: resolver, logger: logger}
}

func (s *userService) GetProfile(ctx context.Context, sess authz.Session, email string) (*GetProfileResponse, error) {
	acting, err := s.resolver.Resolve(ctx, sess.Email)
	if err != nil {
		return nil, err
	}
	target, err := s.resolver.Resolve(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if !authz.CanViewUser(acting, target) {
		return nil, apperrors.PermissionDenied("no access to user %s", email)
	}

	user, err := s.users.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}

	visible := map[string]bool{}
	for _, id := range authz.VisibleProfileBuildings(acting, target) {
		visible[id] = true
	}

	views := []BuildingRoleView{}
	for _, id := range target.Buildings() {
		if !visible[id] {
			continue
		}
		m, _ := target.MembershipIn(id)
		v := BuildingRoleView{BuildingID: id, Role: string(m.Role)}
		if m.Role == domain.RoleChildren {
			v.AssignedLocations = m.AssignedLocations
		}
		views = append(views, v)
	}

	resp := &GetProfileResponse{
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Buildings:   views,
		Editable:    authz.CanEditUser(acting, target),
	}
	if user.ContactNumber.Valid {
		resp.ContactNumber = user.ContactNumber.String
	}
	return resp, nil
}

func (s *userService) LookupUser(ctx context.Context, sess authz.Session, email string) (*LookupUserResponse, error) {
	if sess.Email == "" {
		return nil, apperrors.PermissionDenied("login required")
	}
	email = domain.NormalizeEmail(email)
	if !domain.ValidEmail(email) {
		return nil, apperrors.Validation("malformed email")
	}
	user, err := s.users.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}
	return &LookupUserResponse{Email: user.Email, DisplayName: user.DisplayName}, nil
}

func (s *userService) UpdateUser(ctx context.Context, sess authz.Session, email string, req UpdateUserRequest) error {
	acting, err := s.resolver.Resolve(ctx, sess.Email)
	if err != nil {
		return err
	}
	target, err := s.resolver.Resolve(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if !authz.CanEditUser(acting, target) {
		return apperrors.PermissionDenied("no permission to edit user %s", email)
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		return apperrors.Validation("display name is required")
	}

	u := &domain.User{
		DisplayName: strings.TrimSpace(req.DisplayName),
		UpdatedBy:   sql.NullString{String: sess.Email, Valid: true},
	}
	if req.ContactNumber != "" {
		u.ContactNumber = sql.NullString{String: req.ContactNumber, Valid: true}
	}
	return s.users.UpdateUser(ctx, email, u)
}

func (s *userService) RemoveFromBuilding(ctx context.Context, sess authz.Session, email, buildingID string) error {
	acting, err := s.resolver.Resolve(ctx, sess.Email)
	if err != nil {
		return err
	}
	target, err := s.resolver.Resolve(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if !authz.CanRemoveFromBuilding(acting, target, buildingID) {
		return apperrors.PermissionDenied("no permission to remove %s from %s", email, buildingID)
	}
	if err := s.memberships.DeleteMembership(ctx, email, buildingID); err != nil {
		return err
	}
	s.logger.Info("membership removed",
		zap.String("user", domain.NormalizeEmail(email)),
		zap.String("building_id", buildingID),
		zap.String("by", sess.Email))
	return nil
}
