package user

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/repository"
	"github.com/vitalapp/clinic-api/internal/repository/memory"
	apperrors "github.com/vitalapp/clinic-api/pkg/errors"
	"github.com/vitalapp/clinic-api/pkg/security"
)

type countingRepo struct {
	repository.UserRepository
	listCalls int32
}

func (r *countingRepo) List(ctx context.Context, activeOnly bool) ([]*model.User, error) {
	atomic.AddInt32(&r.listCalls, 1)
	return r.UserRepository.List(ctx, activeOnly)
}

func setup(t *testing.T) (*Service, *countingRepo) {
	t.Helper()
	repo := &countingRepo{UserRepository: memory.NewUserRepository(memory.NewDB())}
	return NewService(repo, security.NewBcryptHasher(bcrypt.MinCost), time.Minute, nil), repo
}

func register(t *testing.T, svc *Service, username, email string) *model.User {
	t.Helper()
	u, err := svc.Create(context.Background(), &model.CreateUserRequest{
		Username: username, Email: email, Password: "secret1",
	})
	require.NoError(t, err)
	return u
}

func TestCreate_HashesAndRejectsDuplicates(t *testing.T) {
	svc, _ := setup(t)
	u := register(t, svc, "maria", "maria@clinic.test")
	assert.True(t, u.Active)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	_, err := svc.Create(context.Background(), &model.CreateUserRequest{Username: "maria", Email: "other@clinic.test", Password: "secret1"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrDuplicate))

	_, err = svc.Create(context.Background(), &model.CreateUserRequest{Username: "maria2", Email: "MARIA@clinic.test", Password: "secret1"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrDuplicate))
}

func TestListActive_CachesUntilWrite(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	a := register(t, svc, "ana", "ana@clinic.test")
	register(t, svc, "beto", "beto@clinic.test")

	first, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "ana", first[0].Username)

	_, err = svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&repo.listCalls))

	inactive := false
	_, err = svc.Update(ctx, a.ID, &model.UpdateUserRequest{Active: &inactive})
	require.NoError(t, err)

	after, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "beto", after[0].Username)
	assert.Equal(t, int32(2), atomic.LoadInt32(&repo.listCalls))
}

func TestListActive_NegativeTTLDisablesCache(t *testing.T) {
	repo := &countingRepo{UserRepository: memory.NewUserRepository(memory.NewDB())}
	svc := NewService(repo, security.NewBcryptHasher(bcrypt.MinCost), NoActiveUsersCache, nil)
	a := register(t, svc, "ana", "ana@clinic.test")

	for i := 0; i < 3; i++ {
		users, err := svc.ListActive(context.Background())
		require.NoError(t, err)
		require.Len(t, users, 1)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&repo.listCalls))

	// A write made behind the service's back is visible immediately.
	a.Active = false
	require.NoError(t, repo.Update(context.Background(), a))
	users, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestListActive_ReturnsCopies(t *testing.T) {
	svc, _ := setup(t)
	register(t, svc, "ana", "ana@clinic.test")

	first, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	first[0].Username = "mutated"

	second, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ana", second[0].Username)
}

func TestDelete_SelfIsForbidden(t *testing.T) {
	svc, _ := setup(t)
	u := register(t, svc, "ana", "ana@clinic.test")
	other := register(t, svc, "beto", "beto@clinic.test")

	err := svc.Delete(context.Background(), model.Principal{UserID: u.ID}, u.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrForbidden))

	require.NoError(t, svc.Delete(context.Background(), model.Principal{UserID: u.ID}, other.ID))
	_, err = svc.Get(context.Background(), other.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
}
