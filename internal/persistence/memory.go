package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bem-health/admin-api/internal/auth"
	"github.com/bem-health/admin-api/internal/config"
	"github.com/bem-health/admin-api/internal/domain"
	"github.com/bem-health/admin-api/internal/query"
	"github.com/bem-health/admin-api/internal/repository"
)

// NewMemoryDatastore returns an in-memory datastore with the same unique
// constraints as the SQL schema.
func NewMemoryDatastore() *query.MemoryDatastore {
	return query.NewMemoryDatastore(
		query.WithUnique("admin_users", "username"),
		query.WithUnique("users", "username"),
		query.WithUnique("orders", "order_no"),
		query.WithUnique("departments", "name"),
	)
}

// SeedAdmin creates the bootstrap super admin. It is a no-op when no
// password is configured.
func SeedAdmin(ctx context.Context, users repository.AdminUserRepository, verifier auth.CredentialVerifier, cfg config.SeedConfig, logger *zap.Logger) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		logger.Warn("SEED_ADMIN_PASSWORD not set; in-memory datastore has no admin account")
		return nil
	}
	hash, err := verifier.Hash(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash seed admin password: %w", err)
	}
	admin := &domain.AdminUser{
		Username:     cfg.AdminUsername,
		PasswordHash: hash,
		RealName:     "Super Admin",
		Role:         domain.RoleSuperAdmin,
		IsActive:     true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	logger.Info("seeded bootstrap admin", zap.String("username", admin.Username))
	return nil
}
