package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"library-backend/pkg/apperror"
	"library-backend/pkg/query"
)

// ===================================
// INSERT
// ===================================

// InsertOne inserts one row and returns it as stored (defaults included).
func (r *Repository[T]) InsertOne(ctx context.Context, values Values) (*T, error) {
	cols, rows, err := r.prepareRows([]Values{values})
	if err != nil {
		return nil, err
	}
	sql, args := buildInsert(r.meta.target, cols, rows, "", true)
	return r.queryOne(ctx, sql, args)
}

// InsertMany inserts all items in one statement. Every item must carry the
// same column set.
func (r *Repository[T]) InsertMany(ctx context.Context, items []Values) ([]T, error) {
	cols, rows, err := r.prepareRows(items)
	if err != nil {
		return nil, err
	}
	sql, args := buildInsert(r.meta.target, cols, rows, "", true)
	return r.queryMany(ctx, sql, args)
}

// prepareRows stamps audit columns, checks that every item has the same
// column set and flattens the values in sorted column order.
func (r *Repository[T]) prepareRows(items []Values) ([]string, [][]any, error) {
	if len(items) == 0 {
		return nil, nil, apperror.Validation("no rows to insert", map[string]string{"items": "must not be empty"})
	}

	now := r.clock.Now()
	var cols []string
	rows := make([][]any, 0, len(items))

	for i, item := range items {
		if len(item) == 0 {
			return nil, nil, apperror.Validation("row has no columns",
				map[string]string{fmt.Sprintf("items[%d]", i): "must not be empty"})
		}
		item = r.stampInsert(item, now)

		if i == 0 {
			cols = sortedColumns(item)
			for _, col := range cols {
				if err := validateColumn(col); err != nil {
					return nil, nil, err
				}
			}
		} else if !sameColumns(cols, item) {
			return nil, nil, apperror.Validation("rows have inconsistent column sets",
				map[string]string{fmt.Sprintf("items[%d]", i): "columns differ from items[0]"})
		}

		row := make([]any, len(cols))
		for j, col := range cols {
			row[j] = item[col]
		}
		rows = append(rows, row)
	}

	return cols, rows, nil
}

func (r *Repository[T]) stampInsert(item Values, now time.Time) Values {
	missing := func(col string) bool {
		if col == "" {
			return false
		}
		_, ok := item[col]
		return !ok
	}
	if !missing(r.cfg.CreatedAt) && !missing(r.cfg.UpdatedAt) {
		return item
	}

	stamped := make(Values, len(item)+2)
	for k, v := range item {
		stamped[k] = v
	}
	if missing(r.cfg.CreatedAt) {
		stamped[r.cfg.CreatedAt] = now
	}
	if missing(r.cfg.UpdatedAt) {
		stamped[r.cfg.UpdatedAt] = now
	}
	return stamped
}

func sameColumns(cols []string, item Values) bool {
	if len(cols) != len(item) {
		return false
	}
	for _, col := range cols {
		if _, ok := item[col]; !ok {
			return false
		}
	}
	return true
}

// buildInsert renders a multi-row VALUES list; row i, column j is bound to
// $(i*len(cols)+j+1).
func buildInsert(target string, cols []string, rows [][]any, onConflict string, returning bool) (string, []any) {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = quote(col)
	}

	args := make([]any, 0, len(cols)*len(rows))
	tuples := make([]string, 0, len(rows))
	n := 1
	for _, row := range rows {
		ph := make([]string, len(row))
		for j, v := range row {
			ph[j] = fmt.Sprintf("$%d", n)
			args = append(args, v)
			n++
		}
		tuples = append(tuples, "("+strings.Join(ph, ", ")+")")
	}

	sql := "INSERT INTO " + target + " (" + strings.Join(quoted, ", ") + ") VALUES " + strings.Join(tuples, ", ")
	sql += onConflict
	if returning {
		sql += " RETURNING *"
	}
	return sql, args
}

// ===================================
// UPDATE
// ===================================

// UpdateOne updates the first row matching where and returns it, or nil
// when nothing matched.
func (r *Repository[T]) UpdateOne(ctx context.Context, where query.Condition, values Values) (*T, error) {
	if err := requirePredicate("UpdateOne", where); err != nil {
		return nil, err
	}
	sql, args, err := r.buildUpdate(values, where, true)
	if err != nil {
		return nil, err
	}
	return r.queryOne(ctx, sql, args)
}

// UpdateByPk updates one row by primary key and returns it (nil if absent).
func (r *Repository[T]) UpdateByPk(ctx context.Context, pk any, values Values) (*T, error) {
	sql, args, err := r.buildUpdate(values, r.pkCondition(pk), false)
	if err != nil {
		return nil, err
	}
	return r.queryOne(ctx, sql, args)
}

// UpdateMany updates every matching row and returns the affected count.
func (r *Repository[T]) UpdateMany(ctx context.Context, where query.Condition, values Values) (int64, error) {
	if err := requirePredicate("UpdateMany", where); err != nil {
		return 0, err
	}
	sql, args, err := r.buildUpdate(values, where, false)
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, strings.TrimSuffix(sql, r.returning()), args)
}

func (r *Repository[T]) returning() string {
	return " RETURNING " + r.meta.qref + ".*"
}

func (r *Repository[T]) buildUpdate(values Values, where query.Condition, first bool) (string, []any, error) {
	if len(values) == 0 {
		return "", nil, apperror.Validation("update payload is empty", map[string]string{"values": "must not be empty"})
	}
	values = r.stampUpdate(values)

	cols := sortedColumns(values)
	set := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for i, col := range cols {
		if err := validateColumn(col); err != nil {
			return "", nil, err
		}
		set = append(set, fmt.Sprintf("%s = $%d", quote(col), i+1))
		args = append(args, values[col])
	}

	return r.finishUpdate(strings.Join(set, ", "), args, where, first)
}

// finishUpdate appends the (scoped) target predicate to a rendered SET
// clause whose placeholders are $1..$len(args).
func (r *Repository[T]) finishUpdate(set string, args []any, where query.Condition, first bool) (string, []any, error) {
	target, whereArgs, err := r.targetPredicate(r.scope(where, false), len(args)+1, first)
	if err != nil {
		return "", nil, err
	}

	sql := "UPDATE " + r.meta.from + " SET " + set
	if target != "" {
		sql += " WHERE " + target
	}
	sql += r.returning()
	return sql, append(args, whereArgs...), nil
}

func (r *Repository[T]) stampUpdate(values Values) Values {
	if r.cfg.UpdatedAt == "" {
		return values
	}
	if _, ok := values[r.cfg.UpdatedAt]; ok {
		return values
	}

	stamped := make(Values, len(values)+1)
	for k, v := range values {
		stamped[k] = v
	}
	stamped[r.cfg.UpdatedAt] = r.clock.Now()
	return stamped
}

// targetPredicate compiles cond from $start. With first set, the statement
// is narrowed to a single row: pk IN (SELECT pk ... LIMIT 1).
func (r *Repository[T]) targetPredicate(cond query.Condition, start int, first bool) (string, []any, error) {
	predicate, args, err := query.CompileWhere(cond, start)
	if err != nil {
		return "", nil, err
	}
	if !first {
		return predicate, args, nil
	}

	sub := "SELECT " + r.meta.qpk + " FROM " + r.meta.from
	if predicate != "" {
		sub += " WHERE " + predicate
	}
	sub += " LIMIT 1"
	return r.meta.qpk + " IN (" + sub + ")", args, nil
}

// ===================================
// INCREMENT / DECREMENT
// ===================================

// Increment atomically adds amount to column on every matching row.
func (r *Repository[T]) Increment(ctx context.Context, column string, amount int, where query.Condition) (int64, error) {
	return r.adjust(ctx, column, "+", amount, where)
}

// Decrement atomically subtracts amount from column on every matching row.
// A CHECK constraint on the column is what keeps it from going negative.
func (r *Repository[T]) Decrement(ctx context.Context, column string, amount int, where query.Condition) (int64, error) {
	return r.adjust(ctx, column, "-", amount, where)
}

func (r *Repository[T]) adjust(ctx context.Context, column, op string, amount int, where query.Condition) (int64, error) {
	sql, args, err := r.buildAdjust(column, op, amount, where)
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, sql, args)
}

func (r *Repository[T]) buildAdjust(column, op string, amount int, where query.Condition) (string, []any, error) {
	if err := validateColumn(column); err != nil {
		return "", nil, err
	}
	if amount <= 0 {
		return "", nil, apperror.Validation("amount must be positive", map[string]string{"amount": "must be greater than 0"})
	}
	if err := requirePredicate("Increment/Decrement", where); err != nil {
		return "", nil, err
	}

	col := quote(column)
	set := fmt.Sprintf("%s = %s %s $1", col, col, op)
	args := []any{amount}
	if r.cfg.UpdatedAt != "" && r.cfg.UpdatedAt != column {
		set += fmt.Sprintf(", %s = $2", quote(r.cfg.UpdatedAt))
		args = append(args, r.clock.Now())
	}

	sql, args, err := r.finishUpdate(set, args, where, false)
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSuffix(sql, r.returning()), args, nil
}

// ===================================
// SOFT DELETE
// ===================================

// DeleteOne soft-deletes the first matching row and returns it.
func (r *Repository[T]) DeleteOne(ctx context.Context, where query.Condition) (*T, error) {
	values, err := r.softDeleteValues()
	if err != nil {
		return nil, err
	}
	return r.UpdateOne(ctx, where, values)
}

// DeleteByPk soft-deletes one row by primary key.
func (r *Repository[T]) DeleteByPk(ctx context.Context, pk any) (*T, error) {
	values, err := r.softDeleteValues()
	if err != nil {
		return nil, err
	}
	return r.UpdateByPk(ctx, pk, values)
}

// DeleteMany soft-deletes every matching row.
func (r *Repository[T]) DeleteMany(ctx context.Context, where query.Condition) (int64, error) {
	values, err := r.softDeleteValues()
	if err != nil {
		return 0, err
	}
	return r.UpdateMany(ctx, where, values)
}

func (r *Repository[T]) softDeleteValues() (Values, error) {
	if r.cfg.DeletedAt == "" {
		return nil, apperror.Configuration("table %s has no soft-delete column, use Destroy instead", r.cfg.Table)
	}
	return Values{r.cfg.DeletedAt: r.clock.Now()}, nil
}

// ===================================
// HARD DELETE
// ===================================

// DestroyOne permanently removes the first matching row (soft-deleted rows
// included) and returns it.
func (r *Repository[T]) DestroyOne(ctx context.Context, where query.Condition) (*T, error) {
	if err := requirePredicate("DestroyOne", where); err != nil {
		return nil, err
	}
	sql, args, err := r.buildDestroy(where, true)
	if err != nil {
		return nil, err
	}
	return r.queryOne(ctx, sql, args)
}

// DestroyByPk permanently removes one row by primary key.
func (r *Repository[T]) DestroyByPk(ctx context.Context, pk any) (*T, error) {
	sql, args, err := r.buildDestroy(r.pkCondition(pk), false)
	if err != nil {
		return nil, err
	}
	return r.queryOne(ctx, sql, args)
}

// DestroyMany permanently removes every matching row.
func (r *Repository[T]) DestroyMany(ctx context.Context, where query.Condition) (int64, error) {
	if err := requirePredicate("DestroyMany", where); err != nil {
		return 0, err
	}
	sql, args, err := r.buildDestroy(where, false)
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, strings.TrimSuffix(sql, r.returning()), args)
}

func (r *Repository[T]) buildDestroy(where query.Condition, first bool) (string, []any, error) {
	target, args, err := r.targetPredicate(where, 1, first)
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM " + r.meta.from + " WHERE " + target + r.returning(), args, nil
}
