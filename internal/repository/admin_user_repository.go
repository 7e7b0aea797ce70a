package repository

import (
	"context"
	"time"

	"github.com/bem-health/admin-api/internal/domain"
	"github.com/bem-health/admin-api/internal/query"
)

const adminUsersTable = "admin_users"

// AdminUserListSpec defines the filters and sorts accepted when listing
// admin accounts.
var AdminUserListSpec = query.Spec{
	SearchColumns: []string{"username", "real_name", "email"},
	EnumFilters: []query.EnumFilter{
		{Param: "role", Column: "role", Values: roleValues(domain.AdminRoles)},
		{Param: "status", Column: "is_active", Values: map[string]any{"active": true, "inactive": false}},
	},
	DateColumn: "created_at",
	SortFields: map[string]string{
		"createdAt":   "created_at",
		"updatedAt":   "updated_at",
		"username":    "username",
		"role":        "role",
		"lastLoginAt": "last_login_at",
	},
}

// AdminUserPage is one page of admin accounts.
type AdminUserPage struct {
	Items      []domain.AdminUser
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// AdminUserRepository defines persistence access for admin accounts.
type AdminUserRepository interface {
	Create(ctx context.Context, user *domain.AdminUser) error
	Update(ctx context.Context, user *domain.AdminUser) error
	GetByID(ctx context.Context, id string) (*domain.AdminUser, error)
	GetActiveByUsername(ctx context.Context, username string) (*domain.AdminUser, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, params query.Params) (*AdminUserPage, error)
}

type adminUserRepository struct {
	db query.Datastore
}

// NewAdminUserRepository returns a Datastore-backed implementation.
func NewAdminUserRepository(db query.Datastore) AdminUserRepository {
	return &adminUserRepository{db: db}
}

func (r *adminUserRepository) Create(ctx context.Context, user *domain.AdminUser) error {
	row, err := r.db.Insert(ctx, adminUsersTable, query.Row{
		"username":      user.Username,
		"password_hash": user.PasswordHash,
		"real_name":     user.RealName,
		"email":         user.Email,
		"phone":         user.Phone,
		"role":          string(user.Role),
		"is_active":     user.IsActive,
	})
	if err != nil {
		return err
	}
	*user = *adminUserFromRow(row)
	return nil
}

func (r *adminUserRepository) Update(ctx context.Context, user *domain.AdminUser) error {
	row, err := r.db.Update(ctx, adminUsersTable, query.Filter{Column: "id", Value: user.ID}, query.Row{
		"real_name":  user.RealName,
		"email":      user.Email,
		"phone":      user.Phone,
		"role":       string(user.Role),
		"is_active":  user.IsActive,
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	*user = *adminUserFromRow(row)
	return nil
}

func (r *adminUserRepository) GetByID(ctx context.Context, id string) (*domain.AdminUser, error) {
	row, err := r.db.From(adminUsersTable).Eq("id", id).Single(ctx)
	if err != nil {
		return nil, err
	}
	return adminUserFromRow(row), nil
}

func (r *adminUserRepository) GetActiveByUsername(ctx context.Context, username string) (*domain.AdminUser, error) {
	row, err := r.db.From(adminUsersTable).
		Eq("username", username).
		Eq("is_active", true).
		Single(ctx)
	if err != nil {
		return nil, err
	}
	return adminUserFromRow(row), nil
}

func (r *adminUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.Update(ctx, adminUsersTable, query.Filter{Column: "id", Value: id}, query.Row{
		"password_hash": passwordHash,
		"updated_at":    time.Now().UTC(),
	})
	return err
}

func (r *adminUserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Update(ctx, adminUsersTable, query.Filter{Column: "id", Value: id}, query.Row{
		"last_login_at": at.UTC(),
	})
	return err
}

func (r *adminUserRepository) List(ctx context.Context, params query.Params) (*AdminUserPage, error) {
	page, err := query.Paginate(ctx, r.db.From(adminUsersTable), params, AdminUserListSpec)
	if err != nil {
		return nil, err
	}
	items := make([]domain.AdminUser, 0, len(page.Items))
	for _, row := range page.Items {
		items = append(items, *adminUserFromRow(row))
	}
	return &AdminUserPage{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	}, nil
}

func adminUserFromRow(row query.Row) *domain.AdminUser {
	return &domain.AdminUser{
		ID:           stringValue(row["id"]),
		Username:     stringValue(row["username"]),
		PasswordHash: stringValue(row["password_hash"]),
		RealName:     stringValue(row["real_name"]),
		Email:        stringValue(row["email"]),
		Phone:        stringValue(row["phone"]),
		Role:         domain.Role(stringValue(row["role"])),
		IsActive:     boolValue(row["is_active"]),
		LastLoginAt:  timePtr(row["last_login_at"]),
		CreatedAt:    timeValue(row["created_at"]),
		UpdatedAt:    timeValue(row["updated_at"]),
	}
}

func roleValues(roles []domain.Role) map[string]any {
	out := make(map[string]any, len(roles))
	for _, r := range roles {
		out[string(r)] = string(r)
	}
	return out
}
