package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bem-health/admin-api/internal/api/dto"
	"github.com/bem-health/admin-api/internal/auth"
	"github.com/bem-health/admin-api/internal/domain"
	"github.com/bem-health/admin-api/internal/query"
	"github.com/bem-health/admin-api/internal/repository"
	"github.com/bem-health/admin-api/internal/service"
	"github.com/bem-health/admin-api/pkg/apperror"
	"github.com/bem-health/admin-api/pkg/response"
)

// AdminUsersHandler exposes admin account management.
type AdminUsersHandler struct {
	users *service.AdminUserService
}

// NewAdminUsersHandler constructs handler.
func NewAdminUsersHandler(users *service.AdminUserService) *AdminUsersHandler {
	return &AdminUsersHandler{users: users}
}

// List handles GET /api/admin-users.
func (h *AdminUsersHandler) List(c *fiber.Ctx) error {
	params := query.ParamsFromQuery(func(key string) string { return c.Query(key) }, repository.AdminUserListSpec)
	page, err := h.users.List(c.UserContext(), params)
	if err != nil {
		return err
	}
	items := make([]dto.AdminUserResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewAdminUserResponse(&page.Items[i]))
	}
	return response.Paginated(c, items, response.Pagination{
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	})
}

// Get handles GET /api/admin-users/:id.
func (h *AdminUsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return response.Success(c, dto.NewAdminUserResponse(user))
}

// Create handles POST /api/admin-users.
func (h *AdminUsersHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateAdminUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("invalid payload", nil)
	}
	user, err := h.users.Create(c.UserContext(), actor, service.CreateAdminUserInput{
		Username: req.Username,
		Password: req.Password,
		RealName: req.RealName,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return response.Created(c, "admin user created", dto.NewAdminUserResponse(user))
}

// Update handles PUT /api/admin-users/:id.
func (h *AdminUsersHandler) Update(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var patch domain.AdminUserPatch
	if err := c.BodyParser(&patch); err != nil {
		return apperror.Validation("invalid payload", nil)
	}
	user, err := h.users.Update(c.UserContext(), actor, c.Params("id"), patch)
	if err != nil {
		return err
	}
	return response.SuccessMessage(c, "admin user updated", dto.NewAdminUserResponse(user))
}

// Delete handles DELETE /api/admin-users/:id by disabling the account.
func (h *AdminUsersHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.users.Disable(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return response.SuccessMessage(c, "admin user disabled", nil)
}

// ResetPassword handles PUT /api/admin-users/:id/password.
func (h *AdminUsersHandler) ResetPassword(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("invalid payload", nil)
	}
	if err := h.users.ResetPassword(c.UserContext(), actor, c.Params("id"), req.NewPassword); err != nil {
		return err
	}
	return response.SuccessMessage(c, "password reset", nil)
}

func actorFrom(c *fiber.Ctx) (domain.Identity, error) {
	id, ok := auth.IdentityFromContext(c)
	if !ok {
		return domain.Identity{}, apperror.Authentication("authentication required")
	}
	return id, nil
}
