package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bem-health/admin-api/internal/auth"
	"github.com/bem-health/admin-api/internal/config"
	"github.com/bem-health/admin-api/internal/domain"
	"github.com/bem-health/admin-api/internal/events"
	"github.com/bem-health/admin-api/internal/query"
	"github.com/bem-health/admin-api/internal/repository"
	"github.com/bem-health/admin-api/pkg/apperror"
)

type recordedEvents struct {
	mu    sync.Mutex
	types []events.EventType
}

func (r *recordedEvents) handler(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, e.Type)
	return nil
}

func (r *recordedEvents) all() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.EventType(nil), r.types...)
}

type fixture struct {
	store    *query.MemoryDatastore
	users    repository.AdminUserRepository
	verifier *auth.BcryptVerifier
	tokens   *auth.TokenManager
	events   events.Dispatcher
	recorded *recordedEvents
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := query.NewMemoryDatastore(query.WithUnique("admin_users", "username"))
	verifier, err := auth.NewBcryptVerifier(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenManager(auth.TokenConfig{Secret: "test-secret", Issuer: "bem-test"})
	require.NoError(t, err)

	dispatcher := events.NewInMemoryDispatcher()
	rec := &recordedEvents{}
	for _, typ := range []events.EventType{
		events.EventLoginSucceeded,
		events.EventLoginFailed,
		events.EventLoginThrottled,
		events.EventPasswordChanged,
		events.EventAdminUserCreated,
		events.EventAdminUserUpdated,
		events.EventAdminUserDisabled,
		events.EventAdminPasswordReset,
		events.EventResourceCreated,
		events.EventResourceUpdated,
		events.EventResourceDeleted,
	} {
		dispatcher.Subscribe(typ, rec.handler)
	}

	return &fixture{
		store:    store,
		users:    repository.NewAdminUserRepository(store),
		verifier: verifier,
		tokens:   tokens,
		events:   dispatcher,
		recorded: rec,
	}
}

func (f *fixture) addAdmin(t *testing.T, username, password string, role domain.Role, active bool) *domain.AdminUser {
	t.Helper()
	hash, err := f.verifier.Hash(password)
	require.NoError(t, err)
	user := &domain.AdminUser{
		Username:     username,
		PasswordHash: hash,
		RealName:     username,
		Role:         role,
		IsActive:     active,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *fixture) authService(limiter auth.LoginLimiter) *AuthService {
	return f.authServiceWith(f.users, limiter)
}

func (f *fixture) authServiceWith(users repository.AdminUserRepository, limiter auth.LoginLimiter) *AuthService {
	return NewAuthService(config.AuthConfig{MinPasswordLength: 6}, AuthDependencies{
		Users:    users,
		Tokens:   f.tokens,
		Verifier: f.verifier,
		Limiter:  limiter,
		Events:   f.events,
	})
}

func requireAppError(t *testing.T, err error, status int) *apperror.AppError {
	t.Helper()
	require.Error(t, err)
	appErr := apperror.From(err)
	require.Equal(t, status, appErr.Status, "error: %v", err)
	return appErr
}

// failingLastLogin fails every TouchLastLogin call.
type failingLastLogin struct {
	repository.AdminUserRepository
}

func (failingLastLogin) TouchLastLogin(context.Context, string, time.Time) error {
	return errUnavailable
}

// brokenLimiter reports an error from every call.
type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error)  { return false, errUnavailable }
func (brokenLimiter) RecordFailure(context.Context, string) error { return errUnavailable }
func (brokenLimiter) Reset(context.Context, string) error         { return errUnavailable }
