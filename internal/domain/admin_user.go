package domain

import "time"

// AdminUser is an administrator account. Accounts are never removed;
// IsActive=false is the terminal state.
type AdminUser struct {
	ID           string
	Username     string
	PasswordHash string
	RealName     string
	Email        string
	Phone        string
	Role         Role
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity returns the token claims for the account.
func (u *AdminUser) Identity() Identity {
	return Identity{SubjectID: u.ID, Username: u.Username, Role: u.Role}
}

// AdminUserPatch carries the optional fields of an update. Nil fields are
// left untouched.
type AdminUserPatch struct {
	RealName *string `json:"realName"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Role     *Role   `json:"role"`
	IsActive *bool   `json:"isActive"`
}

// Empty reports whether the patch changes nothing.
func (p AdminUserPatch) Empty() bool {
	return p.RealName == nil && p.Email == nil && p.Phone == nil && p.Role == nil && p.IsActive == nil
}

// Apply merges the patch into u.
func (p AdminUserPatch) Apply(u *AdminUser) {
	if p.RealName != nil {
		u.RealName = *p.RealName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
}
