package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bem-health/admin-api/internal/domain"
)

// RoleTable maps gate names to the roles they admit. SuperRole passes
// every gate.
type RoleTable struct {
	SuperRole domain.Role              `yaml:"super_role"`
	Gates     map[string][]domain.Role `yaml:"gates"`
}

// DefaultRoleTable is used when no table file is configured.
func DefaultRoleTable() RoleTable {
	return RoleTable{
		SuperRole: domain.RoleSuperAdmin,
		Gates: map[string][]domain.Role{
			"super": {},
			"admin": {
				domain.RoleAdmin,
				domain.RoleMedicalAdmin,
				domain.RoleMallAdmin,
				domain.RoleMarketingAdmin,
			},
			"medical":   {domain.RoleMedicalAdmin},
			"mall":      {domain.RoleMallAdmin},
			"marketing": {domain.RoleMarketingAdmin},
		},
	}
}

// LoadRoleTable reads a YAML role table. An empty path returns the default
// table. Gates missing from the file keep their default roles.
func LoadRoleTable(path string) (RoleTable, error) {
	table := DefaultRoleTable()
	if path == "" {
		return table, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return RoleTable{}, fmt.Errorf("read role table: %w", err)
	}

	var file RoleTable
	if err := yaml.Unmarshal(content, &file); err != nil {
		return RoleTable{}, fmt.Errorf("parse role table: %w", err)
	}
	if err := file.validate(); err != nil {
		return RoleTable{}, err
	}

	if file.SuperRole != "" {
		table.SuperRole = file.SuperRole
	}
	for name, roles := range file.Gates {
		table.Gates[name] = roles
	}
	return table, nil
}

func (t RoleTable) validate() error {
	if t.SuperRole != "" && !t.SuperRole.Valid() {
		return fmt.Errorf("role table: unknown super_role %q", t.SuperRole)
	}
	for name, roles := range t.Gates {
		for _, r := range roles {
			if !r.Valid() {
				return fmt.Errorf("role table: gate %q has unknown role %q", name, r)
			}
		}
	}
	return nil
}
