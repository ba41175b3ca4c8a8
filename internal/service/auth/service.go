package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/repository"
	"github.com/vitalapp/clinic-api/internal/service/user"
	"github.com/vitalapp/clinic-api/pkg/auth"
	apperrors "github.com/vitalapp/clinic-api/pkg/errors"
	"github.com/vitalapp/clinic-api/pkg/logger"
	"github.com/vitalapp/clinic-api/pkg/security"
)

const tokenType = "Bearer"

type Service struct {
	users    *user.Service
	userRepo repository.UserRepository
	hasher   security.PasswordHasher
	jwtSvc   auth.JWTService
	log      *logger.Logger
}

func NewService(users *user.Service, userRepo repository.UserRepository, hasher security.PasswordHasher, jwtSvc auth.JWTService, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		users:    users,
		userRepo: userRepo,
		hasher:   hasher,
		jwtSvc:   jwtSvc,
		log:      log.With("auth-service"),
	}
}

func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	u, err := s.users.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

// Login checks the username and password of an active user. Every failure
// reports the same invalid-credentials error.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	u, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !u.Active {
		s.log.Warn("login attempt for inactive user", "username", req.Username)
		return nil, invalidCredentials()
	}
	if err := s.hasher.Compare(u.PasswordHash, req.Password); err != nil {
		s.log.Warn("login failed", "username", req.Username)
		return nil, invalidCredentials()
	}

	s.log.Info("user logged in", "user_id", u.ID.String())
	return s.issue(u)
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.AuthResponse, error) {
	claims, err := s.jwtSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized(model.ErrInvalidToken)
	}

	u, err := s.userRepo.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(model.ErrInvalidToken)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !u.Active {
		return nil, apperrors.Unauthorized(model.ErrInvalidToken)
	}
	return s.issue(u)
}

func (s *Service) issue(u *model.User) (*model.AuthResponse, error) {
	access, err := s.jwtSvc.GenerateAccessToken(u)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.jwtSvc.GenerateRefreshToken(u)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &model.AuthResponse{
		Token:        access,
		RefreshToken: refresh,
		Type:         tokenType,
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Role:         model.DefaultRole,
	}, nil
}

func invalidCredentials() error {
	return &apperrors.AppError{
		Code:    apperrors.ErrUnauthorized,
		Message: "invalid username or password",
		Err:     model.ErrInvalidCredentials,
	}
}
