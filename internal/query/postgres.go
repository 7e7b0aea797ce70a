package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const totalColumn = "__total"

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// DBTX is the subset of *pgxpool.Pool the datastore needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresDatastore implements Datastore on top of pgx.
type PostgresDatastore struct {
	db DBTX
}

// NewPostgresDatastore wraps a pgx pool or connection.
func NewPostgresDatastore(db DBTX) *PostgresDatastore {
	return &PostgresDatastore{db: db}
}

func (d *PostgresDatastore) From(table string) Builder {
	return &pgBuilder{db: d.db, spec: spec{table: table}}
}

func (d *PostgresDatastore) Ping(ctx context.Context) error {
	if d.db == nil {
		return errors.New("postgres pool not configured")
	}
	return d.db.Ping(ctx)
}

func (d *PostgresDatastore) Insert(ctx context.Context, table string, values Row) (Row, error) {
	sql, args := insertSQL(table, values)
	return d.returningRow(ctx, sql, args)
}

func (d *PostgresDatastore) Update(ctx context.Context, table string, where Filter, values Row) (Row, error) {
	if len(values) == 0 {
		return nil, errors.New("query: update without values")
	}
	sql, args := updateSQL(table, where, values)
	return d.returningRow(ctx, sql, args)
}

func (d *PostgresDatastore) Delete(ctx context.Context, table string, where Filter) error {
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", ident(table), ident(where.Column))
	tag, err := d.db.Exec(ctx, sql, where.Value)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

func (d *PostgresDatastore) returningRow(ctx context.Context, sql string, args []any) (Row, error) {
	rows, err := d.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, mapPgError(err)
	}
	return Row(row), nil
}

type pgBuilder struct {
	db DBTX
	spec
}

func (b *pgBuilder) Select(columns ...string) Builder {
	b.columns = append(b.columns, columns...)
	return b
}

func (b *pgBuilder) Eq(column string, value any) Builder {
	b.add(predicate{op: opEq, column: column, value: value})
	return b
}

func (b *pgBuilder) Neq(column string, value any) Builder {
	b.add(predicate{op: opNeq, column: column, value: value})
	return b
}

func (b *pgBuilder) ILike(columns []string, term string) Builder {
	b.add(predicate{op: opILike, columns: columns, value: term})
	return b
}

func (b *pgBuilder) Gte(column string, value any) Builder {
	b.add(predicate{op: opGte, column: column, value: value})
	return b
}

func (b *pgBuilder) Lte(column string, value any) Builder {
	b.add(predicate{op: opLte, column: column, value: value})
	return b
}

func (b *pgBuilder) Order(column string, ascending bool) Builder {
	b.orders = append(b.orders, ordering{column: column, ascending: ascending})
	return b
}

func (b *pgBuilder) Range(from, to int) Builder {
	b.hasRange = true
	b.from, b.to = clampRange(from, to)
	return b
}

// Execute fetches the page and its total with one statement. When the page
// lies past the last row the window count is unavailable and a COUNT(*)
// query reports the total instead.
func (b *pgBuilder) Execute(ctx context.Context) (Result, error) {
	sql, args := b.selectSQL(true)
	rows, err := b.db.Query(ctx, sql, args...)
	if err != nil {
		return Result{}, mapPgError(err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return Result{}, mapPgError(err)
	}

	result := Result{Rows: make([]Row, 0, len(maps))}
	for _, m := range maps {
		if total, ok := m[totalColumn].(int64); ok {
			result.Count = int(total)
		}
		delete(m, totalColumn)
		result.Rows = append(result.Rows, Row(m))
	}

	if len(maps) == 0 && b.hasRange && b.from > 0 {
		countSQL, countArgs := b.countSQL()
		var total int64
		if err := b.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
			return Result{}, mapPgError(err)
		}
		result.Count = int(total)
	}
	return result, nil
}

func (b *pgBuilder) Single(ctx context.Context) (Row, error) {
	b.Range(0, 0)
	sql, args := b.selectSQL(false)
	rows, err := b.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, mapPgError(err)
	}
	return Row(row), nil
}

func (b *pgBuilder) selectSQL(withCount bool) (string, []any) {
	cols := "*"
	if len(b.columns) > 0 {
		quoted := make([]string, len(b.columns))
		for i, c := range b.columns {
			quoted[i] = ident(c)
		}
		cols = strings.Join(quoted, ", ")
	}
	if withCount {
		cols += ", COUNT(*) OVER() AS " + ident(totalColumn)
	}

	where, args := b.whereSQL()
	sql := fmt.Sprintf("SELECT %s FROM %s%s", cols, ident(b.table), where)

	if len(b.orders) > 0 {
		parts := make([]string, len(b.orders))
		for i, o := range b.orders {
			dir := "DESC"
			if o.ascending {
				dir = "ASC"
			}
			parts[i] = ident(o.column) + " " + dir
		}
		sql += " ORDER BY " + strings.Join(parts, ", ")
	}
	if b.hasRange {
		limit := b.to - b.from + 1
		if limit < 0 {
			limit = 0
		}
		sql += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, b.from)
	}
	return sql, args
}

func (b *pgBuilder) countSQL() (string, []any) {
	where, args := b.whereSQL()
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", ident(b.table), where), args
}

func (b *pgBuilder) whereSQL() (string, []any) {
	if len(b.predicates) == 0 {
		return "", nil
	}
	args := make([]any, 0, len(b.predicates))
	clauses := make([]string, 0, len(b.predicates))
	for _, p := range b.predicates {
		args = append(args, p.value)
		n := len(args)
		switch p.op {
		case opEq:
			if p.value == nil {
				args = args[:n-1]
				clauses = append(clauses, ident(p.column)+" IS NULL")
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s = $%d", ident(p.column), n))
		case opNeq:
			clauses = append(clauses, fmt.Sprintf("%s <> $%d", ident(p.column), n))
		case opGte:
			clauses = append(clauses, fmt.Sprintf("%s >= $%d", ident(p.column), n))
		case opLte:
			clauses = append(clauses, fmt.Sprintf("%s <= $%d", ident(p.column), n))
		case opILike:
			args[n-1] = "%" + escapeLike(fmt.Sprint(p.value)) + "%"
			ors := make([]string, len(p.columns))
			for i, c := range p.columns {
				ors[i] = fmt.Sprintf("%s::text ILIKE $%d", ident(c), n)
			}
			clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func insertSQL(table string, values Row) (string, []any) {
	if len(values) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING *", ident(table)), nil
	}
	cols := sortedKeys(values)
	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = ident(c)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = values[c]
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		ident(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	return sql, args
}

func updateSQL(table string, where Filter, values Row) (string, []any) {
	cols := sortedKeys(values)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		args = append(args, values[c])
		sets[i] = fmt.Sprintf("%s = $%d", ident(c), i+1)
	}
	args = append(args, where.Value)
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d RETURNING *",
		ident(table), strings.Join(sets, ", "), ident(where.Column), len(args))
	return sql, args
}

func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoRows
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func escapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}

func sortedKeys(r Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
