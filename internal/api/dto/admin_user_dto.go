package dto

import "github.com/bem-health/admin-api/internal/domain"

// CreateAdminUserRequest payload for POST /api/admin-users.
type CreateAdminUserRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	RealName string      `json:"realName"`
	Email    string      `json:"email"`
	Phone    string      `json:"phone"`
	Role     domain.Role `json:"role"`
}

// ResetPasswordRequest payload for PUT /api/admin-users/:id/password.
type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}
