// Package catalog describes the CRUD entities exposed under /api/:resource:
// their tables, the mapping between columns and response fields, what may
// be written, and how lists are filtered.
package catalog

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bem-health/admin-api/internal/query"
)

// Kind is the value type a field accepts on writes.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindNumber
	KindBool
	KindTime
)

// Field maps a column onto a response field name.
type Field struct {
	Column   string
	Name     string
	Kind     Kind
	Writable bool
	// CreateOnly fields may be set when a row is created and are read-only
	// afterwards.
	CreateOnly bool
	Required   bool
	// Enum restricts string values when non-empty.
	Enum []string
}

// Definition describes one entity.
type Definition struct {
	Name      string
	Label     string
	Table     string
	Fields    []Field
	List      query.Spec
	ReadGate  string
	WriteGate string
	// Public, when non-nil, enables anonymous listing restricted to rows
	// matching these predicates.
	Public []query.Filter
}

// FieldError reports an invalid write payload.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ToResponse maps a stored row onto response field names. Columns without
// a field are dropped.
func (d *Definition) ToResponse(row query.Row) map[string]any {
	out := make(map[string]any, len(d.Fields))
	for _, f := range d.Fields {
		if v, ok := row[f.Column]; ok {
			out[f.Name] = v
		} else {
			out[f.Name] = nil
		}
	}
	return out
}

// ToResponses maps rows, never returning nil.
func (d *Definition) ToResponses(rows []query.Row) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, d.ToResponse(r))
	}
	return out
}

// BuildPatch turns a request body into column values. Unknown names are
// ignored; read-only fields and badly typed values are rejected. When
// creating, required fields must be present.
func (d *Definition) BuildPatch(input map[string]any, creating bool) (query.Row, error) {
	out := query.Row{}
	names := make([]string, 0, len(input))
	for name := range input {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f, ok := d.field(name)
		if !ok {
			continue
		}
		if !f.Writable && !(creating && f.CreateOnly) {
			return nil, &FieldError{Field: name, Reason: "field is read-only"}
		}
		v, err := f.convert(input[name])
		if err != nil {
			return nil, err
		}
		out[f.Column] = v
	}

	if creating {
		for _, f := range d.Fields {
			if !f.Required {
				continue
			}
			if v, ok := out[f.Column]; !ok || v == nil || v == "" {
				return nil, &FieldError{Field: f.Name, Reason: "field is required"}
			}
		}
	}
	return out, nil
}

func (d *Definition) field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (f Field) convert(v any) (any, error) {
	if v == nil {
		if f.Required {
			return nil, &FieldError{Field: f.Name, Reason: "field is required"}
		}
		return nil, nil
	}
	switch f.Kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, &FieldError{Field: f.Name, Reason: "must be a string"}
		}
		s = strings.TrimSpace(s)
		if len(f.Enum) > 0 && !contains(f.Enum, s) {
			return nil, &FieldError{Field: f.Name, Reason: "must be one of " + strings.Join(f.Enum, ", ")}
		}
		return s, nil
	case KindInt:
		n, ok := v.(float64)
		if !ok || n != math.Trunc(n) {
			return nil, &FieldError{Field: f.Name, Reason: "must be an integer"}
		}
		return int64(n), nil
	case KindNumber:
		n, ok := v.(float64)
		if !ok {
			return nil, &FieldError{Field: f.Name, Reason: "must be a number"}
		}
		return n, nil
	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, &FieldError{Field: f.Name, Reason: "must be a boolean"}
		}
		return b, nil
	case KindTime:
		s, ok := v.(string)
		if !ok {
			return nil, &FieldError{Field: f.Name, Reason: "must be an RFC 3339 timestamp"}
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, &FieldError{Field: f.Name, Reason: "must be an RFC 3339 timestamp"}
		}
		return t.UTC(), nil
	}
	return nil, &FieldError{Field: f.Name, Reason: "unsupported field"}
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// Catalog indexes definitions by route name.
type Catalog struct {
	defs  map[string]*Definition
	names []string
}

// New builds a catalog from definitions.
func New(defs ...*Definition) *Catalog {
	c := &Catalog{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		c.defs[d.Name] = d
		c.names = append(c.names, d.Name)
	}
	return c
}

// Lookup finds a definition by route name.
func (c *Catalog) Lookup(name string) (*Definition, bool) {
	d, ok := c.defs[name]
	return d, ok
}

// Names lists route names in registration order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}
