package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDatastore keeps tables in process memory. It backs tests and local
// development when no Postgres DSN is configured.
type MemoryDatastore struct {
	mu     sync.RWMutex
	tables map[string]*memTable
	now    func() time.Time
}

type memTable struct {
	rows   []Row
	unique []string
}

// MemoryOption configures a MemoryDatastore.
type MemoryOption func(*MemoryDatastore)

// WithUnique declares columns whose values must be unique within table.
func WithUnique(table string, columns ...string) MemoryOption {
	return func(d *MemoryDatastore) {
		t := d.table(table)
		t.unique = append(t.unique, columns...)
	}
}

// WithClock overrides the timestamp source used for created_at/updated_at.
func WithClock(now func() time.Time) MemoryOption {
	return func(d *MemoryDatastore) {
		d.now = now
	}
}

// NewMemoryDatastore returns an empty datastore.
func NewMemoryDatastore(opts ...MemoryOption) *MemoryDatastore {
	d := &MemoryDatastore{tables: map[string]*memTable{}, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *MemoryDatastore) table(name string) *memTable {
	t, ok := d.tables[name]
	if !ok {
		t = &memTable{}
		d.tables[name] = t
	}
	return t
}

func (d *MemoryDatastore) From(table string) Builder {
	return &memBuilder{store: d, spec: spec{table: table}}
}

func (d *MemoryDatastore) Ping(context.Context) error {
	return nil
}

func (d *MemoryDatastore) Insert(_ context.Context, table string, values Row) (Row, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.table(table)
	row := copyRow(values)
	if _, ok := row["id"]; !ok {
		row["id"] = uuid.NewString()
	}
	now := d.now().UTC()
	if _, ok := row["created_at"]; !ok {
		row["created_at"] = now
	}
	if _, ok := row["updated_at"]; !ok {
		row["updated_at"] = now
	}
	if err := t.checkUnique(row, -1); err != nil {
		return nil, err
	}
	t.rows = append(t.rows, row)
	return copyRow(row), nil
}

func (d *MemoryDatastore) Update(_ context.Context, table string, where Filter, values Row) (Row, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.table(table)
	var updated Row
	for i, row := range t.rows {
		if !equalValues(row[where.Column], where.Value) {
			continue
		}
		next := copyRow(row)
		for k, v := range values {
			next[k] = v
		}
		if err := t.checkUnique(next, i); err != nil {
			return nil, err
		}
		t.rows[i] = next
		if updated == nil {
			updated = copyRow(next)
		}
	}
	if updated == nil {
		return nil, ErrNoRows
	}
	return updated, nil
}

func (d *MemoryDatastore) Delete(_ context.Context, table string, where Filter) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.table(table)
	kept := t.rows[:0]
	removed := 0
	for _, row := range t.rows {
		if equalValues(row[where.Column], where.Value) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	t.rows = kept
	if removed == 0 {
		return ErrNoRows
	}
	return nil
}

func (t *memTable) checkUnique(row Row, skip int) error {
	for _, col := range t.unique {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		for i, other := range t.rows {
			if i == skip {
				continue
			}
			if equalValues(other[col], v) {
				return fmt.Errorf("%w: %s", ErrConflict, col)
			}
		}
	}
	return nil
}

type memBuilder struct {
	store *MemoryDatastore
	spec
}

func (b *memBuilder) Select(columns ...string) Builder {
	b.columns = append(b.columns, columns...)
	return b
}

func (b *memBuilder) Eq(column string, value any) Builder {
	b.add(predicate{op: opEq, column: column, value: value})
	return b
}

func (b *memBuilder) Neq(column string, value any) Builder {
	b.add(predicate{op: opNeq, column: column, value: value})
	return b
}

func (b *memBuilder) ILike(columns []string, term string) Builder {
	b.add(predicate{op: opILike, columns: columns, value: term})
	return b
}

func (b *memBuilder) Gte(column string, value any) Builder {
	b.add(predicate{op: opGte, column: column, value: value})
	return b
}

func (b *memBuilder) Lte(column string, value any) Builder {
	b.add(predicate{op: opLte, column: column, value: value})
	return b
}

func (b *memBuilder) Order(column string, ascending bool) Builder {
	b.orders = append(b.orders, ordering{column: column, ascending: ascending})
	return b
}

func (b *memBuilder) Range(from, to int) Builder {
	b.hasRange = true
	b.from, b.to = clampRange(from, to)
	return b
}

func (b *memBuilder) Execute(context.Context) (Result, error) {
	b.store.mu.RLock()
	matched := b.match()
	b.store.mu.RUnlock()

	b.sort(matched)
	total := len(matched)

	if b.hasRange {
		from, to := b.from, b.to+1
		if from > total {
			from = total
		}
		if to > total {
			to = total
		}
		if to < from {
			to = from
		}
		matched = matched[from:to]
	}

	rows := make([]Row, len(matched))
	for i, row := range matched {
		rows[i] = b.project(row)
	}
	return Result{Rows: rows, Count: total}, nil
}

func (b *memBuilder) Single(ctx context.Context) (Row, error) {
	res, err := b.Range(0, 0).Execute(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, ErrNoRows
	}
	return res.Rows[0], nil
}

// match returns copies of all rows satisfying every predicate.
func (b *memBuilder) match() []Row {
	t, ok := b.store.tables[b.table]
	if !ok {
		return nil
	}
	var out []Row
	for _, row := range t.rows {
		if b.matches(row) {
			out = append(out, copyRow(row))
		}
	}
	return out
}

func (b *memBuilder) matches(row Row) bool {
	for _, p := range b.predicates {
		switch p.op {
		case opEq:
			if !equalValues(row[p.column], p.value) {
				return false
			}
		case opNeq:
			if equalValues(row[p.column], p.value) {
				return false
			}
		case opGte:
			c, ok := compareValues(row[p.column], p.value)
			if !ok || c < 0 {
				return false
			}
		case opLte:
			c, ok := compareValues(row[p.column], p.value)
			if !ok || c > 0 {
				return false
			}
		case opILike:
			term := strings.ToLower(fmt.Sprint(p.value))
			found := false
			for _, col := range p.columns {
				v := row[col]
				if v == nil {
					continue
				}
				if strings.Contains(strings.ToLower(fmt.Sprint(v)), term) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func (b *memBuilder) sort(rows []Row) {
	if len(b.orders) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range b.orders {
			c := compareForSort(rows[i][o.column], rows[j][o.column])
			if c == 0 {
				continue
			}
			if o.ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func (b *memBuilder) project(row Row) Row {
	if len(b.columns) == 0 {
		return row
	}
	out := make(Row, len(b.columns))
	for _, c := range b.columns {
		out[c] = row[c]
	}
	return out
}

func copyRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if c, ok := compareValues(a, b); ok {
		return c == 0
	}
	return a == b
}

// compareForSort treats NULL as larger than any value, as Postgres does.
func compareForSort(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	c, _ := compareValues(a, b)
	return c
}

func compareValues(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
