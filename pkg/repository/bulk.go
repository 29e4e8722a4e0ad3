package repository

import (
	"context"
	"fmt"
	"strings"

	"library-backend/pkg/apperror"
	"library-backend/pkg/query"
)

const (
	// maxParams is the PostgreSQL limit of bind parameters per statement.
	maxParams        = 65535
	defaultChunkSize = 1000
)

// BulkInsertOptions tunes BulkInsert.
type BulkInsertOptions struct {
	ChunkSize        int    // rows per statement, default 1000, capped by maxParams
	ConflictColumn   string // target of ON CONFLICT, only with IgnoreDuplicates
	IgnoreDuplicates bool   // ON CONFLICT DO NOTHING
}

// BulkInsert inserts items in chunks and returns the number of rows written.
// Chunks are separate statements: run it inside TxManager.Run when the batch
// must be all-or-nothing.
func (r *Repository[T]) BulkInsert(ctx context.Context, items []Values, opts BulkInsertOptions) (int64, error) {
	cols, rows, err := r.prepareRows(items)
	if err != nil {
		return 0, err
	}

	onConflict, err := conflictClause(opts)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, bounds := range chunkBounds(len(rows), chunkSize(len(cols), opts.ChunkSize)) {
		sql, args := buildInsert(r.meta.target, cols, rows[bounds[0]:bounds[1]], onConflict, false)
		n, err := r.exec(ctx, sql, args)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func conflictClause(opts BulkInsertOptions) (string, error) {
	if !opts.IgnoreDuplicates {
		if opts.ConflictColumn != "" {
			return "", apperror.Configuration("conflict column %q requires IgnoreDuplicates", opts.ConflictColumn)
		}
		return "", nil
	}
	if opts.ConflictColumn == "" {
		return " ON CONFLICT DO NOTHING", nil
	}
	if err := validateColumn(opts.ConflictColumn); err != nil {
		return "", err
	}
	return " ON CONFLICT (" + quote(opts.ConflictColumn) + ") DO NOTHING", nil
}

// chunkSize caps the requested rows per statement so rows × cols never
// exceeds maxParams.
func chunkSize(cols, requested int) int {
	size := requested
	if size <= 0 {
		size = defaultChunkSize
	}
	if limit := maxParams / cols; size > limit {
		size = limit
	}
	return size
}

// chunkBounds splits [0,total) into [start,end) windows of at most size.
func chunkBounds(total, size int) [][2]int {
	bounds := make([][2]int, 0, (total+size-1)/size)
	for start := 0; start < total; start += size {
		end := min(start+size, total)
		bounds = append(bounds, [2]int{start, end})
	}
	return bounds
}

// BulkUpdate applies per-row values to several rows in one statement.
// Every item must carry the primary key and the same set of columns.
func (r *Repository[T]) BulkUpdate(ctx context.Context, items []Values) (int64, error) {
	sql, args, err := r.buildBulkUpdate(items)
	if err != nil {
		return 0, err
	}
	return r.exec(ctx, sql, args)
}

// buildBulkUpdate renders
//
//	UPDATE t SET c = CASE pk WHEN $1 THEN $v ... ELSE c END, ... WHERE pk IN ($1..$N)
//
// With N rows and C updated columns (sorted), the N primary keys are bound
// first as $1..$N, and the value of column c for row r is bound at
// $(1 + N + c*N + r). Every CASE reuses the same key placeholders.
func (r *Repository[T]) buildBulkUpdate(items []Values) (string, []any, error) {
	if len(items) == 0 {
		return "", nil, apperror.Validation("no rows to update", map[string]string{"items": "must not be empty"})
	}

	pk := r.meta.pk
	stamped := make([]Values, len(items))
	for i, item := range items {
		stamped[i] = r.stampUpdate(item)
	}

	first := stamped[0]
	if _, ok := first[pk]; !ok {
		return "", nil, apperror.Validation("every row needs its primary key",
			map[string]string{"items[0]." + pk: "is required"})
	}
	cols := make([]string, 0, len(first)-1)
	for _, col := range sortedColumns(first) {
		if col == pk {
			continue
		}
		if err := validateColumn(col); err != nil {
			return "", nil, err
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return "", nil, apperror.Validation("nothing to update", map[string]string{"items[0]": "has no columns besides the primary key"})
	}

	n := len(stamped)
	if n+len(cols)*n > maxParams {
		return "", nil, apperror.Validation("too many values for one statement",
			map[string]string{"items": fmt.Sprintf("at most %d parameters per statement", maxParams)})
	}

	expected := append(append([]string{}, cols...), pk)
	seen := make(map[string]bool, n)
	for i, item := range stamped {
		key, ok := item[pk]
		if !ok {
			return "", nil, apperror.Validation("every row needs its primary key",
				map[string]string{fmt.Sprintf("items[%d].%s", i, pk): "is required"})
		}
		if !sameColumns(expected, item) {
			return "", nil, apperror.Validation("rows have inconsistent column sets",
				map[string]string{fmt.Sprintf("items[%d]", i): "columns differ from items[0]"})
		}
		id := fmt.Sprint(key)
		if seen[id] {
			return "", nil, apperror.Validation("duplicate primary key in bulk update",
				map[string]string{fmt.Sprintf("items[%d].%s", i, pk): "duplicates an earlier row"})
		}
		seen[id] = true
	}

	// === ARGS: keys, then values column-major ===
	args := make([]any, 0, n+len(cols)*n)
	for _, item := range stamped {
		args = append(args, item[pk])
	}
	for _, col := range cols {
		for _, item := range stamped {
			args = append(args, item[col])
		}
	}

	keyPh := make([]string, n)
	for row := 0; row < n; row++ {
		keyPh[row] = fmt.Sprintf("$%d", 1+row)
	}

	set := make([]string, 0, len(cols))
	for c, col := range cols {
		var sb strings.Builder
		q := quote(col)
		fmt.Fprintf(&sb, "%s = CASE %s", q, r.meta.qpk)
		for row := 0; row < n; row++ {
			fmt.Fprintf(&sb, " WHEN %s THEN $%d", keyPh[row], 1+n+c*n+row)
		}
		fmt.Fprintf(&sb, " ELSE %s.%s END", r.meta.qref, q)
		set = append(set, sb.String())
	}

	sql := "UPDATE " + r.meta.from + " SET " + strings.Join(set, ", ") +
		" WHERE " + r.meta.qpk + " IN (" + strings.Join(keyPh, ", ") + ")"

	scope, scopeArgs, err := query.CompileWhere(r.scope(nil, false), len(args)+1)
	if err != nil {
		return "", nil, err
	}
	if scope != "" {
		sql += " AND " + scope
		args = append(args, scopeArgs...)
	}

	return sql, args, nil
}
