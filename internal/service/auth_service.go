package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bem-health/admin-api/internal/auth"
	"github.com/bem-health/admin-api/internal/config"
	"github.com/bem-health/admin-api/internal/domain"
	"github.com/bem-health/admin-api/internal/events"
	"github.com/bem-health/admin-api/internal/query"
	"github.com/bem-health/admin-api/internal/repository"
	"github.com/bem-health/admin-api/pkg/apperror"
)

// msgBadCredentials covers both unknown usernames and wrong passwords.
const msgBadCredentials = "username or password incorrect"

// AuthService coordinates login, token refresh and password changes.
type AuthService struct {
	users       repository.AdminUserRepository
	tokens      *auth.TokenManager
	verifier    auth.CredentialVerifier
	limiter     auth.LoginLimiter
	events      events.Dispatcher
	logger      *zap.Logger
	minPassword int
	now         func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Users    repository.AdminUserRepository
	Tokens   *auth.TokenManager
	Verifier auth.CredentialVerifier
	Limiter  auth.LoginLimiter
	Events   events.Dispatcher
	Logger   *zap.Logger
}

// LoginResult is returned from a successful login.
type LoginResult struct {
	User   *domain.AdminUser
	Tokens *domain.TokenPair
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	s := &AuthService{
		users:       deps.Users,
		tokens:      deps.Tokens,
		verifier:    deps.Verifier,
		limiter:     deps.Limiter,
		events:      deps.Events,
		logger:      deps.Logger,
		minPassword: cfg.MinPasswordLength,
		now:         time.Now,
	}
	if s.limiter == nil {
		s.limiter = auth.NoopLimiter{}
	}
	if s.events == nil {
		s.events = events.Discard
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.minPassword <= 0 {
		s.minPassword = 6
	}
	return s
}

// Login verifies credentials and issues a token pair. Unknown usernames,
// disabled accounts and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, username, password, remoteIP string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.Validation("username and password are required", nil)
	}

	throttleKey := strings.ToLower(username) + "|" + remoteIP
	allowed, err := s.limiter.Allow(ctx, throttleKey)
	if err != nil {
		s.logger.Warn("login limiter unavailable", zap.Error(err))
		allowed = true
	}
	if !allowed {
		s.publish(ctx, events.New(events.EventLoginThrottled, nil, "", events.LoginPayload{Username: username, RemoteIP: remoteIP}))
		return nil, apperror.RateLimited("too many failed login attempts, try again later")
	}

	user, err := s.users.GetActiveByUsername(ctx, username)
	if err != nil && !errors.Is(err, query.ErrNoRows) {
		return nil, apperror.Database(err)
	}

	digest := ""
	if user != nil {
		digest = user.PasswordHash
	}
	if !s.verifier.Verify(password, digest) || user == nil {
		if err := s.limiter.RecordFailure(ctx, throttleKey); err != nil {
			s.logger.Warn("record login failure", zap.Error(err))
		}
		s.publish(ctx, events.New(events.EventLoginFailed, nil, "", events.LoginPayload{Username: username, RemoteIP: remoteIP}))
		return nil, apperror.Authentication(msgBadCredentials)
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("update last login", zap.String("admin_id", user.ID), zap.Error(err))
	} else {
		user.LastLoginAt = &now
	}

	tokens, err := s.tokens.IssuePair(user.Identity())
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if err := s.limiter.Reset(ctx, throttleKey); err != nil {
		s.logger.Warn("reset login failures", zap.Error(err))
	}
	actor := user.Identity()
	s.publish(ctx, events.New(events.EventLoginSucceeded, &actor, user.ID, events.LoginPayload{Username: username, RemoteIP: remoteIP}))

	return &LoginResult{User: user, Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new access token, re-reading the
// account so disabled or re-roled accounts take effect.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.AdminUser, string, time.Time, error) {
	if refreshToken == "" {
		return nil, "", time.Time{}, apperror.Validation("refresh token is required", nil)
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, "", time.Time{}, apperror.Authentication("token expired or invalid")
	}

	user, err := s.activeUser(ctx, claims.Subject)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokens.Issue(user.Identity(), domain.TokenTypeAccess)
	if err != nil {
		return nil, "", time.Time{}, apperror.Internal(err)
	}
	return user, token, exp, nil
}

// CurrentUser loads the account behind a verified identity.
func (s *AuthService) CurrentUser(ctx context.Context, id domain.Identity) (*domain.AdminUser, error) {
	return s.activeUser(ctx, id.SubjectID)
}

// Logout acknowledges the request. Tokens are stateless and simply expire.
func (s *AuthService) Logout(_ context.Context, id domain.Identity) error {
	s.logger.Info("admin logged out", zap.String("admin_id", id.SubjectID), zap.String("username", id.Username))
	return nil
}

// ChangePassword re-verifies the old password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, id domain.Identity, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apperror.Validation("old and new password are required", nil)
	}
	if len(newPassword) < s.minPassword {
		return apperror.Validation("new password is too short", map[string]any{"minLength": s.minPassword})
	}
	if oldPassword == newPassword {
		return apperror.Validation("new password must differ from the old password", nil)
	}

	user, err := s.activeUser(ctx, id.SubjectID)
	if err != nil {
		return err
	}
	if !s.verifier.Verify(oldPassword, user.PasswordHash) {
		return apperror.Validation("old password incorrect", nil)
	}

	hash, err := s.verifier.Hash(newPassword)
	if err != nil {
		return apperror.Internal(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return storeError(err, "admin user")
	}

	s.publish(ctx, events.New(events.EventPasswordChanged, &id, user.ID, nil))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

func (s *AuthService) activeUser(ctx context.Context, id string) (*domain.AdminUser, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, query.ErrNoRows) {
		return nil, apperror.Authentication("account not found or disabled")
	}
	if err != nil {
		return nil, apperror.Database(err)
	}
	if !user.IsActive {
		return nil, apperror.Authentication("account not found or disabled")
	}
	return user, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}
