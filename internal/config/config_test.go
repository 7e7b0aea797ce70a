package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bem-health/admin-api/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("JWT_ACCESS_TTL_MINUTES", "")
	t.Setenv("JWT_REFRESH_TTL_MINUTES", "")
	t.Setenv("AUTH_LOGIN_MAX_ATTEMPTS", "")
	t.Setenv("AUTH_LOGIN_WINDOW_MINUTES", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, DevJWTSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL())
	assert.Equal(t, 5, cfg.Auth.LoginMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Auth.LoginWindow())
	assert.True(t, cfg.Logger.Development)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("APP_HOST", "")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "real-secret")
	t.Setenv("JWT_ACCESS_TTL_MINUTES", "30")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")
	t.Setenv("BCRYPT_COST", "not-a-number")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTTL())
	assert.Equal(t, time.Duration(0), cfg.App.RequestTimeout())
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
}

func TestValidate(t *testing.T) {
	base := Config{
		App:      AppConfig{Env: "production"},
		Postgres: PostgresConfig{DSN: "postgres://bem@db/bem"},
		Auth:     AuthConfig{JWTSecret: "real-secret"},
	}
	require.NoError(t, base.Validate())

	devSecret := base
	devSecret.Auth.JWTSecret = DevJWTSecret
	assert.Error(t, devSecret.Validate())

	blank := base
	blank.Auth.JWTSecret = "  "
	assert.Error(t, blank.Validate())

	noDSN := base
	noDSN.Postgres.DSN = ""
	assert.Error(t, noDSN.Validate())

	dev := noDSN
	dev.App.Env = "development"
	dev.Auth.JWTSecret = DevJWTSecret
	assert.NoError(t, dev.Validate())
}

func TestLoadRoleTableDefaults(t *testing.T) {
	table, err := LoadRoleTable("")

	require.NoError(t, err)
	assert.Equal(t, domain.RoleSuperAdmin, table.SuperRole)
	assert.Equal(t, []domain.Role{domain.RoleMallAdmin}, table.Gates["mall"])
	assert.Empty(t, table.Gates["super"])
}

func TestLoadRoleTableMergesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	content := `
gates:
  mall:
    - mall_admin
    - marketing_admin
  reports:
    - admin
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	table, err := LoadRoleTable(path)

	require.NoError(t, err)
	assert.Equal(t, domain.RoleSuperAdmin, table.SuperRole)
	assert.Equal(t, []domain.Role{domain.RoleMallAdmin, domain.RoleMarketingAdmin}, table.Gates["mall"])
	assert.Equal(t, []domain.Role{domain.RoleAdmin}, table.Gates["reports"])
	assert.Equal(t, []domain.Role{domain.RoleMedicalAdmin}, table.Gates["medical"])
}

func TestLoadRoleTableRejectsUnknownRoles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gates:\n  mall: [janitor]\n"), 0o600))

	_, err := LoadRoleTable(path)
	assert.Error(t, err)

	_, err = LoadRoleTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
