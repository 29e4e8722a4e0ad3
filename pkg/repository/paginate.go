package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"library-backend/pkg/database"
	"library-backend/pkg/query"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// PageRequest describes one page of a listing.
type PageRequest struct {
	Page       int
	Limit      int
	Where      query.Condition
	Joins      []query.Join
	Select     []string
	Search     string   // free text, matched with ILIKE against Searchable
	Searchable []string // columns Search applies to
	Sortable   []string // allow-list for OrderBy
	OrderBy    string   // falls back to the primary key when not in Sortable
	OrderDir   string   // "asc" (default) / "desc"
	Unscoped   bool
}

// PageMeta is computed from the COUNT query.
type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

// Page is one page of T plus its meta.
type Page[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

type pageStatement struct {
	page, limit int
	countSQL    string
	dataSQL     string
	countArgs   []any
	dataArgs    []any
}

// Paginate runs a COUNT and a LIMIT/OFFSET query over the same filter.
//
// When the repository is bound to the pool, both queries run in one
// read-only REPEATABLE READ transaction so total and data come from the same
// snapshot. Bound to a transaction, they simply run in it.
func (r *Repository[T]) Paginate(ctx context.Context, req PageRequest) (*Page[T], error) {
	stmt, err := r.buildPage(req)
	if err != nil {
		return nil, err
	}

	beginner, ok := r.db.(database.TxBeginner)
	if !ok {
		return r.runPage(ctx, stmt)
	}

	snapshot := database.NewTxManager(beginner, r.WithDB,
		database.WithIsoLevel(pgx.RepeatableRead), database.WithReadOnly())
	return database.RunResult(ctx, snapshot, func(ctx context.Context, repo *Repository[T]) (*Page[T], error) {
		return repo.runPage(ctx, stmt)
	})
}

func (r *Repository[T]) runPage(ctx context.Context, stmt pageStatement) (*Page[T], error) {
	r.logQuery(stmt.countSQL, stmt.countArgs)

	var total int64
	if err := r.db.QueryRow(ctx, stmt.countSQL, stmt.countArgs...).Scan(&total); err != nil {
		return nil, mapError(r.cfg.Table, err)
	}

	data, err := r.queryMany(ctx, stmt.dataSQL, stmt.dataArgs)
	if err != nil {
		return nil, err
	}

	return &Page[T]{Data: data, Meta: newPageMeta(stmt.page, stmt.limit, total)}, nil
}

func (r *Repository[T]) buildPage(req PageRequest) (pageStatement, error) {
	page, limit := normalizePage(req.Page, req.Limit)
	stmt := pageStatement{page: page, limit: limit}

	// Search goes last so its placeholders continue after the WHERE ones.
	filter := query.And{r.scope(req.Where, req.Unscoped), searchCondition(req.Search, req.Searchable)}

	countSQL, countArgs, err := r.buildCount(filter, req.Joins, true)
	if err != nil {
		return stmt, err
	}

	orderBy := r.pageOrder(req.OrderBy, req.OrderDir, req.Sortable)
	dataSQL, dataArgs, err := r.buildSelect(FindOptions{
		Select:   req.Select,
		Where:    filter,
		Joins:    req.Joins,
		OrderBy:  orderBy,
		Limit:    limit,
		Offset:   (page - 1) * limit,
		Unscoped: true, // already scoped in filter
	}, false)
	if err != nil {
		return stmt, err
	}

	stmt.countSQL, stmt.countArgs = countSQL, countArgs
	stmt.dataSQL, stmt.dataArgs = dataSQL, dataArgs
	return stmt, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

func newPageMeta(page, limit int, total int64) PageMeta {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return PageMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
}

// pageOrder honors orderBy only if it is allow-listed; otherwise the primary
// key is used. The primary key is always the final tie-breaker.
func (r *Repository[T]) pageOrder(orderBy, dir string, sortable []string) []Order {
	pk := r.Column(r.meta.pk)
	desc := strings.EqualFold(strings.TrimSpace(dir), "desc")

	column := pk
	for _, allowed := range sortable {
		if orderBy != "" && orderBy == allowed {
			column = orderBy
			break
		}
	}

	orders := []Order{{Column: column, Desc: desc}}
	if column != pk {
		orders = append(orders, Order{Column: pk})
	}
	return orders
}

// searchCondition is (c1 ILIKE $k OR c2 ILIKE $k+1 ...), or nil when there
// is nothing to search.
func searchCondition(search string, columns []string) query.Condition {
	search = strings.TrimSpace(search)
	if search == "" || len(columns) == 0 {
		return nil
	}

	pattern := fmt.Sprintf("%%%s%%", escapeLike(search))
	or := make(query.Or, 0, len(columns))
	for _, col := range columns {
		or = append(or, query.ILike(col, pattern))
	}
	return or
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
