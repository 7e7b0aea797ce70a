package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bem-health/admin-api/internal/api/http/handlers"
	"github.com/bem-health/admin-api/internal/auth"
	"github.com/bem-health/admin-api/internal/catalog"
	"github.com/bem-health/admin-api/internal/config"
	"github.com/bem-health/admin-api/internal/domain"
	"github.com/bem-health/admin-api/internal/events"
	"github.com/bem-health/admin-api/internal/observability"
	"github.com/bem-health/admin-api/internal/persistence"
	"github.com/bem-health/admin-api/internal/query"
	"github.com/bem-health/admin-api/internal/repository"
	"github.com/bem-health/admin-api/internal/service"
)

type testServer struct {
	app   *fiber.App
	store *query.MemoryDatastore
	users repository.AdminUserRepository
}

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Details    map[string]any  `json:"details"`
	Pagination *struct {
		Total      int `json:"total"`
		Page       int `json:"page"`
		Limit      int `json:"limit"`
		TotalPages int `json:"totalPages"`
	} `json:"pagination"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	metrics := observability.NewMetrics("bem_test")

	store := persistence.NewMemoryDatastore()
	users := repository.NewAdminUserRepository(store)
	verifier, err := auth.NewBcryptVerifier(bcrypt.MinCost)
	require.NoError(t, err)

	for _, a := range []struct {
		username, password string
		role               domain.Role
	}{
		{"root", "rootpass", domain.RoleSuperAdmin},
		{"medic", "medicpass", domain.RoleMedicalAdmin},
		{"shop", "shoppass", domain.RoleMallAdmin},
	} {
		hash, err := verifier.Hash(a.password)
		require.NoError(t, err)
		require.NoError(t, users.Create(ctx, &domain.AdminUser{
			Username:     a.username,
			PasswordHash: hash,
			Role:         a.role,
			IsActive:     true,
		}))
	}

	tokens, err := auth.NewTokenManager(auth.TokenConfig{Secret: "test-secret", Issuer: "bem-test"})
	require.NoError(t, err)
	roles := config.DefaultRoleTable()
	gate := auth.NewRoleGate(roles.SuperRole, roles.Gates)
	dispatcher := events.NewInMemoryDispatcher()
	service.NewAuditService(dispatcher, logger, metrics).RegisterHandlers()

	authService := service.NewAuthService(config.AuthConfig{MinPasswordLength: 6}, service.AuthDependencies{
		Users:    users,
		Tokens:   tokens,
		Verifier: verifier,
		Events:   dispatcher,
		Logger:   logger,
	})
	adminService := service.NewAdminUserService(users, verifier, dispatcher, logger, 6)
	resourceService := service.NewResourceService(repository.NewResourceRepository(store), dispatcher, logger)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics)})
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("bem-test", "test", store, nil),
		Auth:           handlers.NewAuthHandler(authService),
		AdminUsers:     handlers.NewAdminUsersHandler(adminService),
		Resources:      handlers.NewResourcesHandler(resourceService, catalog.Default(), gate),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, logger),
		Gate:           gate,
		Metrics:        metrics,
	})
	return &testServer{app: app, store: store, users: users}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func (s *testServer) call(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	status, raw := s.do(t, method, path, token, body)
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return status, env
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	status, env := s.call(t, fiber.MethodPost, "/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, fiber.StatusOK, status)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func TestLoginReturnsTokensWithoutPassword(t *testing.T) {
	s := newTestServer(t)

	status, raw := s.do(t, fiber.MethodPost, "/api/auth/login", "", map[string]string{"username": "root", "password": "rootpass"})

	require.Equal(t, fiber.StatusOK, status)
	assert.NotContains(t, strings.ToLower(string(raw)), "password")
	assert.NotContains(t, string(raw), "$2a$")

	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.True(t, env.Success)
	var data struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    int64  `json:"expiresIn"`
		User         struct {
			Username    string      `json:"username"`
			Role        domain.Role `json:"role"`
			LastLoginAt *time.Time  `json:"lastLoginAt"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.Token)
	assert.NotEmpty(t, data.RefreshToken)
	assert.InDelta(t, 24*3600, data.ExpiresIn, 5)
	assert.Equal(t, "root", data.User.Username)
	assert.Equal(t, domain.RoleSuperAdmin, data.User.Role)
	assert.NotNil(t, data.User.LastLoginAt)
}

func TestLoginFailuresAreByteIdentical(t *testing.T) {
	s := newTestServer(t)

	unknownStatus, unknown := s.do(t, fiber.MethodPost, "/login", "", map[string]string{"username": "ghost", "password": "whatever"})
	wrongStatus, wrong := s.do(t, fiber.MethodPost, "/login", "", map[string]string{"username": "root", "password": "wrongpass"})

	assert.Equal(t, fiber.StatusUnauthorized, unknownStatus)
	assert.Equal(t, unknownStatus, wrongStatus)
	assert.Equal(t, string(unknown), string(wrong))
}

func TestLoginValidationAndMalformedBody(t *testing.T) {
	s := newTestServer(t)

	status, env := s.call(t, fiber.MethodPost, "/login", "", map[string]string{"username": "root"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.False(t, env.Success)

	req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader("{not json"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestVerifyAndLogout(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "medic", "medicpass")

	status, env := s.call(t, fiber.MethodGet, "/verify", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	var data struct {
		ExpiresIn int64 `json:"expiresIn"`
		User      struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "medic", data.User.Username)
	assert.Greater(t, data.ExpiresIn, int64(0))
	assert.LessOrEqual(t, data.ExpiresIn, int64(24*3600))

	status, env = s.call(t, fiber.MethodGet, "/api/auth/verify", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "missing token", env.Message)

	status, _ = s.call(t, fiber.MethodGet, "/verify", "garbage", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, env = s.call(t, fiber.MethodPost, "/logout", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, env.Success)
}

func TestRefreshIssuesAccessToken(t *testing.T) {
	s := newTestServer(t)
	_, raw := s.do(t, fiber.MethodPost, "/login", "", map[string]string{"username": "shop", "password": "shoppass"})
	var login struct {
		Data struct {
			Token        string `json:"token"`
			RefreshToken string `json:"refreshToken"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &login))

	status, env := s.call(t, fiber.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": login.Data.RefreshToken})
	require.Equal(t, fiber.StatusOK, status)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))

	status, _ = s.call(t, fiber.MethodGet, "/verify", data.Token, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = s.call(t, fiber.MethodGet, "/verify", login.Data.RefreshToken, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestChangePasswordFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "medic", "medicpass")

	status, env := s.call(t, fiber.MethodPost, "/change-password", token, map[string]string{"oldPassword": "nope", "newPassword": "fresh-pass"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "old password incorrect", env.Message)
	s.login(t, "medic", "medicpass")

	status, _ = s.call(t, fiber.MethodPost, "/api/auth/change-password", token, map[string]string{"oldPassword": "medicpass", "newPassword": "fresh-pass"})
	require.Equal(t, fiber.StatusOK, status)
	s.login(t, "medic", "fresh-pass")

	status, _ = s.call(t, fiber.MethodPost, "/login", "", map[string]string{"username": "medic", "password": "medicpass"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.call(t, fiber.MethodPost, "/change-password", "", map[string]string{"oldPassword": "a", "newPassword": "b"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAdminUsersRequireSuperRole(t *testing.T) {
	s := newTestServer(t)
	medic := s.login(t, "medic", "medicpass")
	root := s.login(t, "root", "rootpass")

	status, env := s.call(t, fiber.MethodGet, "/api/admin-users", medic, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "medical_admin", env.Details["role"])

	status, _ = s.call(t, fiber.MethodGet, "/api/admin-users", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, env = s.call(t, fiber.MethodGet, "/api/admin-users?role=medical_admin", root, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.Total)
	assert.NotContains(t, string(env.Data), "password")
}

func TestAdminUserLifecycle(t *testing.T) {
	s := newTestServer(t)
	root := s.login(t, "root", "rootpass")

	status, env := s.call(t, fiber.MethodPost, "/api/admin-users", root, map[string]string{
		"username": "editor", "password": "editorpass", "role": "marketing_admin",
	})
	require.Equal(t, fiber.StatusCreated, status)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	status, _ = s.call(t, fiber.MethodPost, "/api/admin-users", root, map[string]string{
		"username": "editor", "password": "editorpass",
	})
	assert.Equal(t, fiber.StatusConflict, status)

	status, env = s.call(t, fiber.MethodPut, "/api/admin-users/"+created.ID, root, map[string]any{"realName": "Ed"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(env.Data), `"realName":"Ed"`)

	status, _ = s.call(t, fiber.MethodPut, "/api/admin-users/"+created.ID+"/password", root, map[string]string{"newPassword": "reset-pass"})
	require.Equal(t, fiber.StatusOK, status)
	s.login(t, "editor", "reset-pass")

	status, _ = s.call(t, fiber.MethodDelete, "/api/admin-users/"+created.ID, root, nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = s.call(t, fiber.MethodPost, "/login", "", map[string]string{"username": "editor", "password": "reset-pass"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.call(t, fiber.MethodGet, "/api/admin-users/does-not-exist", root, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestResourceGates(t *testing.T) {
	s := newTestServer(t)
	medic := s.login(t, "medic", "medicpass")
	shop := s.login(t, "shop", "shoppass")
	root := s.login(t, "root", "rootpass")

	status, env := s.call(t, fiber.MethodPost, "/api/departments", medic, map[string]any{"name": "Cardiology", "isActive": true})
	require.Equal(t, fiber.StatusCreated, status, env.Message)

	status, env = s.call(t, fiber.MethodGet, "/api/departments", shop, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, []any{"medical_admin"}, env.Details["required"])

	status, _ = s.call(t, fiber.MethodGet, "/api/departments", root, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = s.call(t, fiber.MethodGet, "/api/products", medic, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = s.call(t, fiber.MethodGet, "/api/products", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.call(t, fiber.MethodGet, "/api/spaceships", root, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestResourceCRUD(t *testing.T) {
	s := newTestServer(t)
	shop := s.login(t, "shop", "shoppass")

	status, env := s.call(t, fiber.MethodPost, "/api/products", shop, map[string]any{"name": "Glucose meter", "price": 49.9})
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	var product map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &product))
	id := product["id"].(string)

	status, env = s.call(t, fiber.MethodPut, "/api/products/"+id, shop, map[string]any{"salesCount": 3})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "salesCount", env.Details["field"])

	status, env = s.call(t, fiber.MethodPut, "/api/products/"+id, shop, map[string]any{"stock": 7})
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &product))
	assert.Equal(t, 7.0, product["stock"])

	status, _ = s.call(t, fiber.MethodGet, "/api/products/"+id, shop, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = s.call(t, fiber.MethodDelete, "/api/products/"+id, shop, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, env = s.call(t, fiber.MethodGet, "/api/products/"+id, shop, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "product not found", env.Message)
}

func TestResourcePagination(t *testing.T) {
	s := newTestServer(t)
	medic := s.login(t, "medic", "medicpass")
	for i := 0; i < 25; i++ {
		_, err := s.store.Insert(context.Background(), "departments", query.Row{
			"name":      fmt.Sprintf("Dept %02d", i),
			"is_active": i%5 != 0,
		})
		require.NoError(t, err)
	}

	status, env := s.call(t, fiber.MethodGet, "/api/departments?page=2&limit=10&sortBy=name&sortOrder=asc", medic, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 25, env.Pagination.Total)
	assert.Equal(t, 2, env.Pagination.Page)
	assert.Equal(t, 10, env.Pagination.Limit)
	assert.Equal(t, 3, env.Pagination.TotalPages)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 10)
	assert.Equal(t, "Dept 10", items[0]["name"])

	status, env = s.call(t, fiber.MethodGet, "/api/departments?status=inactive&limit=0", medic, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 5, env.Pagination.Total)
	assert.Equal(t, 10, env.Pagination.Limit)

	status, env = s.call(t, fiber.MethodGet, "/api/departments?page=9", medic, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "[]", string(env.Data))
	assert.Equal(t, 25, env.Pagination.Total)

	status, env = s.call(t, fiber.MethodGet, "/api/departments?status=bogus", medic, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "status", env.Details["param"])
}

func TestPublicListing(t *testing.T) {
	s := newTestServer(t)
	for i, active := range []bool{true, false, true} {
		_, err := s.store.Insert(context.Background(), "departments", query.Row{
			"name":      fmt.Sprintf("Dept %d", i),
			"is_active": active,
		})
		require.NoError(t, err)
	}

	status, env := s.call(t, fiber.MethodGet, "/api/public/departments", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 2, env.Pagination.Total)

	status, env = s.call(t, fiber.MethodGet, "/api/public/departments", "broken-token", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 2, env.Pagination.Total)

	medic := s.login(t, "medic", "medicpass")
	status, env = s.call(t, fiber.MethodGet, "/api/public/departments", medic, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 3, env.Pagination.Total)

	status, _ = s.call(t, fiber.MethodGet, "/api/public/orders", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, env := s.call(t, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, env.Success)

	status, env = s.call(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, env.Success)

	status, raw := s.do(t, fiber.MethodGet, "/metrics", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(raw), "bem_test_http_requests_total")
}

func TestCreateAppUserRequiresUsername(t *testing.T) {
	s := newTestServer(t)
	shop := s.login(t, "shop", "shoppass")

	status, env := s.call(t, fiber.MethodPost, "/api/users", shop, map[string]any{"nickname": "Bob"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "username", env.Details["field"])

	status, env = s.call(t, fiber.MethodPost, "/api/users", shop, map[string]any{"username": "bob", "nickname": "Bob"})
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	var user map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "bob", user["username"])

	status, env = s.call(t, fiber.MethodPut, "/api/users/"+user["id"].(string), shop, map[string]any{"username": "robert"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "username", env.Details["field"])

	status, _ = s.call(t, fiber.MethodPost, "/api/users", shop, map[string]any{"username": "bob"})
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestCreateWithoutWritableFieldsIsRejected(t *testing.T) {
	s := newTestServer(t)
	shop := s.login(t, "shop", "shoppass")

	for _, body := range []map[string]any{{}, {"unknown": 1}} {
		status, env := s.call(t, fiber.MethodPost, "/api/orders", shop, body)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "no writable fields supplied", env.Message)
	}
}

func TestHugePageReturnsEmptyPage(t *testing.T) {
	s := newTestServer(t)
	root := s.login(t, "root", "rootpass")

	status, env := s.call(t, fiber.MethodGet, "/api/articles?page=92233720368547760&limit=100", root, nil)

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "[]", string(env.Data))
	assert.Equal(t, 0, env.Pagination.Total)
}

func TestMalformedAuthorizationIsInvalidNotMissing(t *testing.T) {
	s := newTestServer(t)

	status, env := s.call(t, fiber.MethodGet, "/verify", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "missing token", env.Message)

	req := httptest.NewRequest(fiber.MethodGet, "/verify", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Basic dXNlcjpwYXNz")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "token expired or invalid", body.Message)
}
