package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bem-health/admin-api/internal/domain"
	"github.com/bem-health/admin-api/pkg/apperror"
)

// Named gates used by the router.
const (
	GateSuper     = "super"
	GateAdmin     = "admin"
	GateMedical   = "medical"
	GateMall      = "mall"
	GateMarketing = "marketing"
)

// RoleGate allows or denies requests by the attached identity's role. The
// super role satisfies every gate.
type RoleGate struct {
	super domain.Role
	gates map[string][]domain.Role
}

// NewRoleGate builds a gate. gates maps names to role sets for Named.
func NewRoleGate(super domain.Role, gates map[string][]domain.Role) *RoleGate {
	if super == "" {
		super = domain.RoleSuperAdmin
	}
	return &RoleGate{super: super, gates: gates}
}

// Allows reports whether role passes a check against allowed.
func (g *RoleGate) Allows(role domain.Role, allowed []domain.Role) bool {
	if role == g.super {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// Check is the gate decision for an identity, as an error.
func (g *RoleGate) Check(id domain.Identity, ok bool, allowed []domain.Role) error {
	if !ok {
		return apperror.Authentication("authentication required")
	}
	if g.Allows(id.Role, allowed) {
		return nil
	}
	required := make([]string, len(allowed))
	for i, r := range allowed {
		required[i] = string(r)
	}
	return apperror.Authorization("insufficient role", map[string]any{
		"role":     string(id.Role),
		"required": required,
	})
}

// Require returns middleware admitting only the given roles (and super).
func (g *RoleGate) Require(allowed ...domain.Role) fiber.Handler {
	roles := append([]domain.Role(nil), allowed...)
	return func(c *fiber.Ctx) error {
		id, ok := IdentityFromContext(c)
		if err := g.Check(id, ok, roles); err != nil {
			return err
		}
		return c.Next()
	}
}

// Roles returns the role set configured for a named gate.
func (g *RoleGate) Roles(name string) []domain.Role {
	return g.gates[name]
}

// Named is Require for a gate from the role table. Unknown names admit
// only the super role.
func (g *RoleGate) Named(name string) fiber.Handler {
	return g.Require(g.gates[name]...)
}
