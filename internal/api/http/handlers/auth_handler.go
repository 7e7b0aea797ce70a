package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bem-health/admin-api/internal/api/dto"
	"github.com/bem-health/admin-api/internal/auth"
	"github.com/bem-health/admin-api/internal/service"
	"github.com/bem-health/admin-api/pkg/apperror"
	"github.com/bem-health/admin-api/pkg/response"
)

// AuthHandler exposes login, token and password endpoints for admins.
type AuthHandler struct {
	auth *service.AuthService
	now  func() time.Time
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService, now: time.Now}
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("invalid payload", nil)
	}

	result, err := h.auth.Login(c.UserContext(), req.Username, req.Password, c.IP())
	if err != nil {
		return err
	}

	tokens := result.Tokens
	return response.SuccessMessage(c, "login successful", dto.LoginResponse{
		Token:            tokens.AccessToken,
		ExpiresAt:        tokens.AccessExpiresAt,
		ExpiresIn:        h.secondsUntil(tokens.AccessExpiresAt),
		RefreshToken:     tokens.RefreshToken,
		RefreshExpiresAt: tokens.RefreshExpiresAt,
		User:             dto.NewAdminUserResponse(result.User),
	})
}

// Refresh handles POST /refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("invalid payload", nil)
	}

	user, token, exp, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return response.SuccessMessage(c, "token refreshed", dto.RefreshResponse{
		Token:     token,
		ExpiresAt: exp,
		ExpiresIn: h.secondsUntil(exp),
		User:      dto.NewAdminUserResponse(user),
	})
}

// Verify handles GET /verify. It returns the current account and the
// remaining lifetime of the presented token.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	id, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperror.Authentication("missing token")
	}
	user, err := h.auth.CurrentUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	remaining, _ := h.auth.TokenManager().RemainingSeconds(auth.BearerToken(c.Get(fiber.HeaderAuthorization)))
	return response.Success(c, dto.VerifyResponse{
		User:      dto.NewAdminUserResponse(user),
		ExpiresIn: remaining,
	})
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	id, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperror.Authentication("missing token")
	}
	if err := h.auth.Logout(c.UserContext(), id); err != nil {
		return err
	}
	return response.SuccessMessage(c, "logged out", nil)
}

// ChangePassword handles POST /change-password for the caller's own account.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	id, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperror.Authentication("missing token")
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("invalid payload", nil)
	}
	if err := h.auth.ChangePassword(c.UserContext(), id, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return response.SuccessMessage(c, "password changed", nil)
}

func (h *AuthHandler) secondsUntil(t time.Time) int64 {
	secs := int64(t.Sub(h.now()).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}
