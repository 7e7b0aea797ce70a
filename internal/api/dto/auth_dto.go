package dto

import (
	"time"

	"github.com/bem-health/admin-api/internal/domain"
)

// LoginRequest payload for POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest payload for POST /refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest payload for authenticated password changes.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// LoginResponse is the data of a successful login.
type LoginResponse struct {
	Token            string            `json:"token"`
	ExpiresAt        time.Time         `json:"expiresAt"`
	ExpiresIn        int64             `json:"expiresIn"`
	RefreshToken     string            `json:"refreshToken"`
	RefreshExpiresAt time.Time         `json:"refreshExpiresAt"`
	User             AdminUserResponse `json:"user"`
}

// RefreshResponse is the data of a successful token refresh.
type RefreshResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	ExpiresIn int64             `json:"expiresIn"`
	User      AdminUserResponse `json:"user"`
}

// VerifyResponse is the data of GET /verify.
type VerifyResponse struct {
	User      AdminUserResponse `json:"user"`
	ExpiresIn int64             `json:"expiresIn"`
}

// AdminUserResponse is the public projection of an admin account. It never
// carries the password digest.
type AdminUserResponse struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	RealName    string      `json:"realName"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	Role        domain.Role `json:"role"`
	IsActive    bool        `json:"isActive"`
	LastLoginAt *time.Time  `json:"lastLoginAt"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// NewAdminUserResponse projects an account.
func NewAdminUserResponse(u *domain.AdminUser) AdminUserResponse {
	return AdminUserResponse{
		ID:          u.ID,
		Username:    u.Username,
		RealName:    u.RealName,
		Email:       u.Email,
		Phone:       u.Phone,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
