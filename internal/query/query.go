// Package query is the datastore boundary: a small query-builder interface
// with Postgres and in-memory implementations, plus the pagination helper
// every list endpoint goes through.
package query

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoRows is returned when a single-row fetch or a keyed write matches nothing.
	ErrNoRows = errors.New("query: no rows")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("query: unique constraint violated")
)

// Row is a single record keyed by column name.
type Row map[string]any

// Result holds fetched rows and the exact number of rows matching the
// predicates, ignoring Range.
type Result struct {
	Rows  []Row
	Count int
}

// Filter selects the rows targeted by Update and Delete.
type Filter struct {
	Column string
	Value  any
}

// Datastore is the handle components receive at construction time.
type Datastore interface {
	From(table string) Builder
	Insert(ctx context.Context, table string, values Row) (Row, error)
	Update(ctx context.Context, table string, where Filter, values Row) (Row, error)
	Delete(ctx context.Context, table string, where Filter) error
	Ping(ctx context.Context) error
}

// Builder accumulates predicates for a select against one table. All
// predicates are AND-ed.
type Builder interface {
	Select(columns ...string) Builder
	Eq(column string, value any) Builder
	Neq(column string, value any) Builder
	// ILike matches term case-insensitively as a substring of any of the
	// columns. The group as a whole is AND-ed with the other predicates.
	ILike(columns []string, term string) Builder
	Gte(column string, value any) Builder
	Lte(column string, value any) Builder
	Order(column string, ascending bool) Builder
	// Range limits the fetch to rows [from, to], both inclusive, zero based.
	Range(from, to int) Builder
	Execute(ctx context.Context) (Result, error)
	Single(ctx context.Context) (Row, error)
}

// FilterError reports a caller supplied filter value that cannot be applied.
type FilterError struct {
	Param string
	Value string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid value %q for filter %q", e.Value, e.Param)
}

type opKind int

const (
	opEq opKind = iota
	opNeq
	opGte
	opLte
	opILike
)

type predicate struct {
	op      opKind
	column  string
	columns []string
	value   any
}

type ordering struct {
	column    string
	ascending bool
}

// spec is the shared state both builders accumulate.
type spec struct {
	table      string
	columns    []string
	predicates []predicate
	orders     []ordering
	hasRange   bool
	from, to   int
}

func (s *spec) add(p predicate) {
	s.predicates = append(s.predicates, p)
}

// clampRange keeps an inclusive row range within [0, math.MaxInt-1]. A range
// with to < from selects nothing.
func clampRange(from, to int) (int, int) {
	if from < 0 {
		from = 0
	}
	if to >= math.MaxInt {
		to = math.MaxInt - 1
	}
	if to < from-1 {
		to = from - 1
	}
	return from, to
}
