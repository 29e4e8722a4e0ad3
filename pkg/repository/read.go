package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"library-backend/pkg/apperror"
	"library-backend/pkg/query"
)

// ===================================
// READS
// ===================================

// FindMany returns every matching row, or an empty slice.
func (r *Repository[T]) FindMany(ctx context.Context, opts FindOptions) ([]T, error) {
	sql, args, err := r.buildSelect(opts, false)
	if err != nil {
		return nil, err
	}
	return r.queryMany(ctx, sql, args)
}

// FindOne returns the first matching row, or nil when nothing matches.
func (r *Repository[T]) FindOne(ctx context.Context, opts FindOptions) (*T, error) {
	opts.Limit = 1
	sql, args, err := r.buildSelect(opts, false)
	if err != nil {
		return nil, err
	}
	return r.queryOne(ctx, sql, args)
}

// FindByPk looks a row up by primary key. Extra options (select, joins,
// unscoped) are honored; their Where is AND-ed with the key.
func (r *Repository[T]) FindByPk(ctx context.Context, pk any, opts ...FindOptions) (*T, error) {
	return r.FindOne(ctx, r.byPk(pk, opts))
}

// FindRows is FindMany for projections that do not fit T (joined columns,
// aggregates by alias). Each row is a column → value map.
func (r *Repository[T]) FindRows(ctx context.Context, opts FindOptions) ([]Row, error) {
	sql, args, err := r.buildSelect(opts, false)
	if err != nil {
		return nil, err
	}
	r.logQuery(sql, args)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(r.cfg.Table, err)
	}
	result, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, mapError(r.cfg.Table, err)
	}
	return result, nil
}

// Count counts matching rows (soft-deleted rows excluded).
func (r *Repository[T]) Count(ctx context.Context, where query.Condition, joins ...query.Join) (int64, error) {
	sql, args, err := r.buildCount(where, joins, false)
	if err != nil {
		return 0, err
	}
	r.logQuery(sql, args)

	var total int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, mapError(r.cfg.Table, err)
	}
	return total, nil
}

// Exists reports whether at least one row matches.
func (r *Repository[T]) Exists(ctx context.Context, where query.Condition) (bool, error) {
	predicate, args, err := query.CompileWhere(r.scope(where, false), 1)
	if err != nil {
		return false, err
	}

	sql := "SELECT EXISTS (SELECT 1 FROM " + r.meta.from
	if predicate != "" {
		sql += " WHERE " + predicate
	}
	sql += ")"
	r.logQuery(sql, args)

	var exists bool
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, mapError(r.cfg.Table, err)
	}
	return exists, nil
}

// ===================================
// ROW LOCKS
// ===================================

// Lock selects the first matching row with FOR UPDATE on the base table.
// It must run inside a transaction; the lock is held until commit/rollback.
func (r *Repository[T]) Lock(ctx context.Context, opts FindOptions) (*T, error) {
	opts.Limit = 1
	sql, args, err := r.buildSelect(opts, true)
	if err != nil {
		return nil, err
	}
	return r.queryOne(ctx, sql, args)
}

// LockByPk locks one row by primary key. nil when the row does not exist.
func (r *Repository[T]) LockByPk(ctx context.Context, pk any) (*T, error) {
	return r.Lock(ctx, r.byPk(pk, nil))
}

// ===================================
// SQL BUILDERS
// ===================================

func (r *Repository[T]) byPk(pk any, opts []FindOptions) FindOptions {
	var o FindOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	o.Where = query.And{o.Where, r.pkCondition(pk)}
	return o
}

func (r *Repository[T]) buildSelect(opts FindOptions, lock bool) (string, []any, error) {
	selectList, err := r.selectList(opts.Select)
	if err != nil {
		return "", nil, err
	}

	joins, err := query.BuildJoins(opts.Joins)
	if err != nil {
		return "", nil, err
	}

	predicate, args, err := query.CompileWhere(r.scope(opts.Where, opts.Unscoped), 1)
	if err != nil {
		return "", nil, err
	}

	orderBy, err := orderClause(opts.OrderBy)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectList)
	sb.WriteString(" FROM ")
	sb.WriteString(r.meta.from)
	if joins != "" {
		sb.WriteString(" ")
		sb.WriteString(joins)
	}
	if predicate != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(predicate)
	}
	if orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(orderBy)
	}

	next := len(args) + 1
	if opts.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT $%d", next)
		args = append(args, opts.Limit)
		next++
	}
	if opts.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET $%d", next)
		args = append(args, opts.Offset)
	}
	if lock {
		sb.WriteString(" FOR UPDATE OF ")
		sb.WriteString(r.meta.qref)
	}

	return sb.String(), args, nil
}

func (r *Repository[T]) buildCount(where query.Condition, joins []query.Join, unscoped bool) (string, []any, error) {
	joinClause, err := query.BuildJoins(joins)
	if err != nil {
		return "", nil, err
	}
	predicate, args, err := query.CompileWhere(r.scope(where, unscoped), 1)
	if err != nil {
		return "", nil, err
	}

	sql := "SELECT COUNT(*) FROM " + r.meta.from
	if joinClause != "" {
		sql += " " + joinClause
	}
	if predicate != "" {
		sql += " WHERE " + predicate
	}
	return sql, args, nil
}

// selectList quotes the projection. Items are "col", "alias.col", "*",
// "alias.*" or "<column> AS <name>".
func (r *Repository[T]) selectList(items []string) (string, error) {
	if len(items) == 0 {
		return r.meta.qref + ".*", nil
	}

	quoted := make([]string, 0, len(items))
	for _, item := range items {
		q, err := selectItem(item)
		if err != nil {
			return "", err
		}
		quoted = append(quoted, q)
	}
	return strings.Join(quoted, ", "), nil
}

func selectItem(item string) (string, error) {
	expr, name, aliased := cutAlias(item)
	if !aliased {
		return query.QuoteSelectItem(item)
	}

	column, err := query.QuoteIdentifier(expr)
	if err != nil {
		return "", err
	}
	if err := validateColumn(name); err != nil {
		return "", err
	}
	return column + " AS " + quote(name), nil
}

func cutAlias(item string) (string, string, bool) {
	for _, sep := range []string{" AS ", " as "} {
		if expr, name, ok := strings.Cut(item, sep); ok {
			return strings.TrimSpace(expr), strings.TrimSpace(name), true
		}
	}
	return item, "", false
}

func orderClause(orders []Order) (string, error) {
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		column, err := query.QuoteIdentifier(o.Column)
		if err != nil {
			return "", err
		}
		dir := " ASC"
		if o.Desc {
			dir = " DESC"
		}
		parts = append(parts, column+dir)
	}
	return strings.Join(parts, ", "), nil
}

// requirePredicate guards statements that would otherwise touch every row.
func requirePredicate(op string, where query.Condition) error {
	predicate, _, err := query.CompileWhere(where, 1)
	if err != nil {
		return err
	}
	if predicate == "" {
		return apperror.Configuration("%s requires a non-empty condition", op)
	}
	return nil
}
