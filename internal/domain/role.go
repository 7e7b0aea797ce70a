package domain

// Role enumerates caller roles carried in tokens.
type Role string

const (
	RoleSuperAdmin     Role = "super_admin"
	RoleMedicalAdmin   Role = "medical_admin"
	RoleMallAdmin      Role = "mall_admin"
	RoleMarketingAdmin Role = "marketing_admin"
	RoleAdmin          Role = "admin"
	RoleUser           Role = "user"
	RoleDoctor         Role = "doctor"
)

// AdminRoles are the roles an admin account may hold.
var AdminRoles = []Role{
	RoleSuperAdmin,
	RoleMedicalAdmin,
	RoleMallAdmin,
	RoleMarketingAdmin,
	RoleAdmin,
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleMedicalAdmin, RoleMallAdmin, RoleMarketingAdmin, RoleAdmin, RoleUser, RoleDoctor:
		return true
	}
	return false
}

// IsAdmin reports whether r may hold an admin account.
func (r Role) IsAdmin() bool {
	for _, a := range AdminRoles {
		if a == r {
			return true
		}
	}
	return false
}
