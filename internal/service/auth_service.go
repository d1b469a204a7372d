package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"homegrid-data/internal/apperrors"
	"homegrid-data/internal/authz"
	"homegrid-data/internal/domain"
	"homegrid-data/internal/repository"
	"homegrid-data/internal/store"
)

// AuthService 认证服务接口
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, token string) error
	// SessionFor resolves a bearer token into a session, ErrMiss mapped to
	// a permission error so handlers fail closed.
	SessionFor(ctx context.Context, token string) (authz.Session, error)
}

type RegisterRequest struct {
	Email         string
	DisplayName   string
	ContactNumber string
}

type RegisterResponse struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Email string
}

type LoginResponse struct {
	Token       string `json:"token"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	SystemAdmin bool   `json:"system_admin"`
}

type authService struct {
	users    repository.UsersRepository
	resolver *authz.Resolver
	sessions *store.SessionStore
	logger   *zap.Logger
}

func NewAuthService(users repository.UsersRepository, resolver *authz.Resolver, sessions *store.SessionStore, logger *zap.Logger) AuthService {
	return &authService{users: users, resolver: resolver, sessions: sessions, logger: logger}
}

// Register creates the user record. Roles are granted separately, by
// invitation or by creating a building; a fresh account has no access.
func (s *authService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	email := domain.NormalizeEmail(req.Email)
	if !domain.ValidEmail(email) {
		return nil, apperrors.Validation("malformed email")
	}
	if req.DisplayName == "" {
		return nil, apperrors.Validation("display_name is required")
	}

	u := &domain.User{Email: email, DisplayName: req.DisplayName}
	if req.ContactNumber != "" {
		u.ContactNumber = sql.NullString{String: req.ContactNumber, Valid: true}
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("email", email))
	return &RegisterResponse{Email: email, DisplayName: req.DisplayName}, nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := domain.NormalizeEmail(req.Email)
	if !domain.ValidEmail(email) {
		return nil, apperrors.Validation("malformed email")
	}

	user, err := s.users.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}

	rs, err := s.resolver.Resolve(ctx, email)
	if err != nil {
		s.logger.Error("role lookup failed during login", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	token, err := s.sessions.Create(ctx, authz.Session{Email: email, IssuedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		Token:       token,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		SystemAdmin: rs.IsSystemAdmin(),
	}, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

func (s *authService) SessionFor(ctx context.Context, token string) (authz.Session, error) {
	if token == "" {
		return authz.Session{}, apperrors.PermissionDenied("missing session token")
	}
	sess, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		if err == store.ErrMiss {
			return authz.Session{}, apperrors.PermissionDenied("invalid or expired session")
		}
		return authz.Session{}, err
	}
	return sess, nil
}
