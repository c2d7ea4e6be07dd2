package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smktahasus/psb_api/internal/config"
	"github.com/smktahasus/psb_api/internal/models"
	"github.com/smktahasus/psb_api/internal/security"
	"github.com/smktahasus/psb_api/internal/utils"
)

type fakeAdminStore struct {
	byEmail map[string]*models.AdminUser
	created []*models.AdminUser
}

func newFakeAdminStore() *fakeAdminStore {
	return &fakeAdminStore{byEmail: map[string]*models.AdminUser{}}
}

func (f *fakeAdminStore) GetByEmail(email string) (*models.AdminUser, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, utils.ErrInvalidCredentials
}

func (f *fakeAdminStore) Create(user *models.AdminUser) error {
	user.ID = len(f.created) + 1
	f.byEmail[user.Email] = user
	f.created = append(f.created, user)
	return nil
}

func (f *fakeAdminStore) UpdateLastLogin(int, time.Time) error { return nil }

func newTestAuthService(store AdminStore) *AuthService {
	limiter := security.NewRateLimiter(config.RateLimitConfig{MaxAttempts: 5, Window: 15 * time.Minute})
	return NewAuthService(nil, store, limiter, "test-secret")
}

func TestEnsureBootstrapAdminCreatesMissingAccount(t *testing.T) {
	store := newFakeAdminStore()
	svc := newTestAuthService(store)

	err := svc.EnsureBootstrapAdmin(config.AdminConfig{
		Email:    "admin@smktahasus.sch.id",
		Password: "rahasia-kuat",
		Name:     "Administrator",
	})
	require.NoError(t, err)
	require.Len(t, store.created, 1)
	assert.Equal(t, "admin", store.created[0].Role)
	assert.NotEqual(t, "rahasia-kuat", store.created[0].PasswordHash)
}

func TestEnsureBootstrapAdminIsIdempotent(t *testing.T) {
	store := newFakeAdminStore()
	svc := newTestAuthService(store)
	cfg := config.AdminConfig{Email: "admin@smktahasus.sch.id", Password: "rahasia-kuat", Name: "Administrator"}

	require.NoError(t, svc.EnsureBootstrapAdmin(cfg))
	require.NoError(t, svc.EnsureBootstrapAdmin(cfg))
	assert.Len(t, store.created, 1)
}

func TestEnsureBootstrapAdminSkipsWhenUnconfigured(t *testing.T) {
	store := newFakeAdminStore()
	svc := newTestAuthService(store)

	require.NoError(t, svc.EnsureBootstrapAdmin(config.AdminConfig{}))
	assert.Empty(t, store.created)
}

func TestBootstrappedAdminCanLoginLocally(t *testing.T) {
	store := newFakeAdminStore()
	svc := newTestAuthService(store)

	require.NoError(t, svc.EnsureBootstrapAdmin(config.AdminConfig{
		Email:    "admin@smktahasus.sch.id",
		Password: "rahasia-kuat",
		Name:     "Administrator",
	}))

	result, err := svc.Login(context.Background(), "admin@smktahasus.sch.id", "rahasia-kuat")
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, result.Provider)
	assert.NotEmpty(t, result.Token)

	_, err = svc.Login(context.Background(), "admin@smktahasus.sch.id", "salah")
	assert.ErrorIs(t, err, utils.ErrInvalidCredentials)
}
