package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/repository"
	apperrors "github.com/vitalapp/clinic-api/pkg/errors"
	"github.com/vitalapp/clinic-api/pkg/logger"
	"github.com/vitalapp/clinic-api/pkg/security"
	"github.com/vitalapp/clinic-api/pkg/validator"
)

const (
	resource       = "user"
	activeUsersKey = "users:active"
)

// DefaultActiveUsersTTL bounds how stale the recipient list of a triage
// alert can be. The cache is per process: with several replicas a write on
// one is only seen by the others once their entry expires.
const DefaultActiveUsersTTL = 30 * time.Second

// NoActiveUsersCache disables the active user cache.
const NoActiveUsersCache time.Duration = -1

type Service struct {
	repo     repository.UserRepository
	hasher   security.PasswordHasher
	validate validator.Validator
	cache    *cache.Cache
	log      *logger.Logger
}

// NewService caches the active user list for activeTTL. Zero selects
// DefaultActiveUsersTTL and a negative TTL turns the cache off.
func NewService(repo repository.UserRepository, hasher security.PasswordHasher, activeTTL time.Duration, log *logger.Logger) *Service {
	if activeTTL == 0 {
		activeTTL = DefaultActiveUsersTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		repo:     repo,
		hasher:   hasher,
		validate: validator.New(),
		log:      log.With("user-service"),
	}
	if activeTTL > 0 {
		s.cache = cache.New(activeTTL, 2*activeTTL)
	}
	return s
}

// Create registers an active user with a hashed password. Username and
// email must be unused; email is compared case-insensitively.
func (s *Service) Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	taken, err := s.repo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, repository.MapError(resource, "check", err)
	}
	if taken {
		return nil, apperrors.NewDuplicate("username is already taken", nil)
	}
	taken, err = s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, repository.MapError(resource, "check", err)
	}
	if taken {
		return nil, apperrors.NewDuplicate("email is already in use", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &model.User{
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Active:       true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, repository.MapError(resource, "create", err)
	}
	s.invalidate()

	s.log.Info("user registered", "user_id", u.ID.String(), "username", u.Username)
	return u, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repository.MapError(resource, "get", err)
	}
	return u, nil
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, repository.MapError(resource, "get", err)
	}
	return u, nil
}

func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.repo.List(ctx, false)
	if err != nil {
		return nil, repository.MapError(resource, "list", err)
	}
	return users, nil
}

// ListActive returns active users ordered by username. Results are cached
// until the TTL expires or a user is written.
func (s *Service) ListActive(ctx context.Context) ([]*model.User, error) {
	if s.cache == nil {
		return s.listActive(ctx)
	}
	if cached, ok := s.cache.Get(activeUsersKey); ok {
		return copyUsers(cached.([]*model.User)), nil
	}

	users, err := s.listActive(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(activeUsersKey, copyUsers(users))
	return users, nil
}

func (s *Service) listActive(ctx context.Context) ([]*model.User, error) {
	users, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, repository.MapError(resource, "list", err)
	}
	return users, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repository.MapError(resource, "get", err)
	}

	if req.Email != nil && !strings.EqualFold(*req.Email, u.Email) {
		taken, err := s.repo.ExistsByEmail(ctx, *req.Email)
		if err != nil {
			return nil, repository.MapError(resource, "check", err)
		}
		if taken {
			return nil, apperrors.NewDuplicate("email is already in use", nil)
		}
		u.Email = strings.TrimSpace(*req.Email)
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Active != nil {
		u.Active = *req.Active
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, repository.MapError(resource, "update", err)
	}
	s.invalidate()
	return u, nil
}

// Delete removes a user account. Principals cannot delete themselves.
func (s *Service) Delete(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if principal.UserID == id {
		return apperrors.NewForbidden("you cannot delete your own account")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return repository.MapError(resource, "delete", err)
	}
	s.invalidate()

	s.log.Info("user deleted", "user_id", id.String(), "deleted_by", principal.UserID.String())
	return nil
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Delete(activeUsersKey)
	}
}

func copyUsers(in []*model.User) []*model.User {
	out := make([]*model.User, len(in))
	for i, u := range in {
		c := *u
		out[i] = &c
	}
	return out
}
