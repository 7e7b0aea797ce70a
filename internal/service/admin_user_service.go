package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/bem-health/admin-api/internal/auth"
	"github.com/bem-health/admin-api/internal/domain"
	"github.com/bem-health/admin-api/internal/events"
	"github.com/bem-health/admin-api/internal/query"
	"github.com/bem-health/admin-api/internal/repository"
	"github.com/bem-health/admin-api/pkg/apperror"
)

const adminUserLabel = "admin user"

// CreateAdminUserInput carries the fields for a new admin account.
type CreateAdminUserInput struct {
	Username string
	Password string
	RealName string
	Email    string
	Phone    string
	Role     domain.Role
}

// AdminUserService manages admin accounts.
type AdminUserService struct {
	users       repository.AdminUserRepository
	verifier    auth.CredentialVerifier
	events      events.Dispatcher
	logger      *zap.Logger
	minPassword int
}

// NewAdminUserService builds the service.
func NewAdminUserService(users repository.AdminUserRepository, verifier auth.CredentialVerifier, dispatcher events.Dispatcher, logger *zap.Logger, minPassword int) *AdminUserService {
	if dispatcher == nil {
		dispatcher = events.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if minPassword <= 0 {
		minPassword = 6
	}
	return &AdminUserService{users: users, verifier: verifier, events: dispatcher, logger: logger, minPassword: minPassword}
}

// List returns one page of admin accounts.
func (s *AdminUserService) List(ctx context.Context, params query.Params) (*repository.AdminUserPage, error) {
	page, err := s.users.List(ctx, params)
	if err != nil {
		return nil, storeError(err, adminUserLabel)
	}
	return page, nil
}

// Get returns one account.
func (s *AdminUserService) Get(ctx context.Context, id string) (*domain.AdminUser, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, adminUserLabel)
	}
	return user, nil
}

// Create validates input, hashes the password and stores the account.
func (s *AdminUserService) Create(ctx context.Context, actor domain.Identity, in CreateAdminUserInput) (*domain.AdminUser, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return nil, apperror.Validation("username and password are required", nil)
	}
	if len(in.Username) < 3 || len(in.Username) > 50 {
		return nil, apperror.Validation("username must be 3 to 50 characters", nil)
	}
	if len(in.Password) < s.minPassword {
		return nil, apperror.Validation("password is too short", map[string]any{"minLength": s.minPassword})
	}
	if in.Role == "" {
		in.Role = domain.RoleAdmin
	}
	if !in.Role.IsAdmin() {
		return nil, apperror.Validation("invalid role", map[string]any{"role": string(in.Role)})
	}

	hash, err := s.verifier.Hash(in.Password)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	user := &domain.AdminUser{
		Username:     in.Username,
		PasswordHash: hash,
		RealName:     in.RealName,
		Email:        in.Email,
		Phone:        in.Phone,
		Role:         in.Role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, query.ErrConflict) {
			return nil, apperror.Conflict("username already exists", map[string]any{"username": in.Username})
		}
		return nil, storeError(err, adminUserLabel)
	}

	s.publish(ctx, events.New(events.EventAdminUserCreated, &actor, user.ID, map[string]any{"username": user.Username, "role": user.Role}))
	return user, nil
}

// Update applies a patch. Callers cannot disable or demote themselves.
func (s *AdminUserService) Update(ctx context.Context, actor domain.Identity, id string, patch domain.AdminUserPatch) (*domain.AdminUser, error) {
	if patch.Empty() {
		return nil, apperror.Validation("no updatable fields supplied", nil)
	}
	if patch.Role != nil && !patch.Role.IsAdmin() {
		return nil, apperror.Validation("invalid role", map[string]any{"role": string(*patch.Role)})
	}
	if actor.SubjectID == id {
		if patch.IsActive != nil && !*patch.IsActive {
			return nil, apperror.Validation("cannot disable your own account", nil)
		}
		if patch.Role != nil && *patch.Role != actor.Role {
			return nil, apperror.Validation("cannot change your own role", nil)
		}
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, adminUserLabel)
	}
	patch.Apply(user)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, storeError(err, adminUserLabel)
	}

	s.publish(ctx, events.New(events.EventAdminUserUpdated, &actor, user.ID, patch))
	return user, nil
}

// Disable soft-deletes an account by clearing is_active.
func (s *AdminUserService) Disable(ctx context.Context, actor domain.Identity, id string) error {
	if actor.SubjectID == id {
		return apperror.Validation("cannot disable your own account", nil)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return storeError(err, adminUserLabel)
	}
	user.IsActive = false
	if err := s.users.Update(ctx, user); err != nil {
		return storeError(err, adminUserLabel)
	}
	s.publish(ctx, events.New(events.EventAdminUserDisabled, &actor, user.ID, nil))
	return nil
}

// ResetPassword sets a new password without knowing the old one.
func (s *AdminUserService) ResetPassword(ctx context.Context, actor domain.Identity, id, newPassword string) error {
	if len(newPassword) < s.minPassword {
		return apperror.Validation("password is too short", map[string]any{"minLength": s.minPassword})
	}
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return storeError(err, adminUserLabel)
	}
	hash, err := s.verifier.Hash(newPassword)
	if err != nil {
		return apperror.Internal(err)
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		return storeError(err, adminUserLabel)
	}
	s.publish(ctx, events.New(events.EventAdminPasswordReset, &actor, id, nil))
	return nil
}

func (s *AdminUserService) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}
