package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bem-health/admin-api/internal/query"
)

func TestBuildPatchMapsFieldNames(t *testing.T) {
	row, err := Doctors.BuildPatch(map[string]any{
		"name":            "  Dr. Li ",
		"departmentId":    "dep-1",
		"consultationFee": 35.0,
		"status":          "online",
		"notAField":       "ignored",
	}, true)

	require.NoError(t, err)
	assert.Equal(t, query.Row{
		"name":             "Dr. Li",
		"department_id":    "dep-1",
		"consultation_fee": 35.0,
		"status":           "online",
	}, row)
}

func TestBuildPatchRejections(t *testing.T) {
	cases := []struct {
		name     string
		def      *Definition
		input    map[string]any
		creating bool
		field    string
	}{
		{"read-only field", Doctors, map[string]any{"rating": 5.0}, false, "rating"},
		{"id is read-only", Products, map[string]any{"id": "x"}, false, "id"},
		{"enum value", Doctors, map[string]any{"status": "asleep"}, false, "status"},
		{"integer kind", Departments, map[string]any{"sortOrder": 1.5}, false, "sortOrder"},
		{"bool kind", Departments, map[string]any{"isActive": "yes"}, false, "isActive"},
		{"time kind", Articles, map[string]any{"publishedAt": "tomorrow"}, false, "publishedAt"},
		{"missing required", Departments, map[string]any{"description": "x"}, true, "name"},
		{"null required", Departments, map[string]any{"name": nil}, false, "name"},
		{"blank required", Departments, map[string]any{"name": "   "}, true, "name"},
		{"username fixed after create", Users, map[string]any{"username": "bob"}, false, "username"},
		{"username required on create", Users, map[string]any{"nickname": "n"}, true, "username"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.def.BuildPatch(tc.input, tc.creating)
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.field, fe.Field)
		})
	}
}

func TestBuildPatchPartialUpdateSkipsRequired(t *testing.T) {
	row, err := Departments.BuildPatch(map[string]any{"isActive": false}, false)

	require.NoError(t, err)
	assert.Equal(t, query.Row{"is_active": false}, row)
}

func TestBuildPatchCreateOnlyField(t *testing.T) {
	row, err := Users.BuildPatch(map[string]any{"username": "bob", "nickname": "Bob"}, true)

	require.NoError(t, err)
	assert.Equal(t, query.Row{"username": "bob", "nickname": "Bob"}, row)
}

func TestBuildPatchParsesTimes(t *testing.T) {
	row, err := Articles.BuildPatch(map[string]any{"publishedAt": "2024-05-01T08:00:00+08:00"}, false)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), row["published_at"])
}

func TestToResponse(t *testing.T) {
	out := Departments.ToResponse(query.Row{
		"id":            "d1",
		"name":          "Cardiology",
		"is_active":     true,
		"internal_note": "hidden",
	})

	assert.Equal(t, "d1", out["id"])
	assert.Equal(t, "Cardiology", out["name"])
	assert.Equal(t, true, out["isActive"])
	assert.Contains(t, out, "description")
	assert.Nil(t, out["description"])
	assert.NotContains(t, out, "internal_note")
}

func TestDefaultCatalog(t *testing.T) {
	cat := Default()

	for _, name := range []string{"users", "departments", "doctors", "products", "orders", "consultations", "health-records", "articles", "carousel"} {
		def, ok := cat.Lookup(name)
		require.True(t, ok, name)
		assert.NotEmpty(t, def.Table)
		assert.NotEmpty(t, def.ReadGate)
		assert.NotEmpty(t, def.WriteGate)
		for _, column := range def.List.SortFields {
			assert.True(t, hasColumn(def, column), "%s sorts on unmapped column %s", name, column)
		}
	}

	_, ok := cat.Lookup("admin-users")
	assert.False(t, ok)
	assert.Len(t, cat.Names(), 9)
}

func hasColumn(def *Definition, column string) bool {
	for _, f := range def.Fields {
		if f.Column == column {
			return true
		}
	}
	return false
}
