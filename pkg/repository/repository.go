package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"library-backend/pkg/clock"
	"library-backend/pkg/database"
	"library-backend/pkg/query"
)

// Repository is generic CRUD + pagination bound to one table.
//
// T is the row struct, scanned by column name (`db` tags). The repository
// only depends on database.Querier, so the same constructor serves the pool
// and a transaction (see WithDB).
type Repository[T any] struct {
	db    database.Querier
	cfg   TableConfig
	meta  tableMeta
	clock clock.Clock
}

type options struct {
	clock clock.Clock
}

// Option configures a Repository.
type Option func(*options)

// WithClock sets the clock used for audit columns (default: system UTC).
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// New validates cfg and returns a repository bound to db.
func New[T any](db database.Querier, cfg TableConfig, opts ...Option) (*Repository[T], error) {
	cfg = cfg.withDefaults()
	meta, err := cfg.validate()
	if err != nil {
		return nil, err
	}

	o := options{clock: clock.NewSystem()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Repository[T]{db: db, cfg: cfg, meta: meta, clock: o.clock}, nil
}

// WithDB returns a copy of the repository bound to another connection handle.
func (r *Repository[T]) WithDB(db database.Querier) *Repository[T] {
	cp := *r
	cp.db = db
	return &cp
}

// Config returns the table config (with defaults applied).
func (r *Repository[T]) Config() TableConfig {
	return r.cfg
}

// Column qualifies name with the table alias, for use in conditions and
// joins: Column("stock") → "b.stock".
func (r *Repository[T]) Column(name string) string {
	return r.meta.ref + "." + name
}

// scope adds the soft-delete filter unless unscoped.
func (r *Repository[T]) scope(where query.Condition, unscoped bool) query.Condition {
	if r.cfg.DeletedAt == "" || unscoped {
		return where
	}
	return query.And{where, query.IsNull(r.Column(r.cfg.DeletedAt))}
}

func (r *Repository[T]) pkCondition(pk any) query.Condition {
	return query.Eq(r.Column(r.meta.pk), pk)
}

// ===================================
// EXECUTION HELPERS
// ===================================

func (r *Repository[T]) logQuery(sql string, args []any) {
	log.Debug().
		Str("table", r.cfg.Table).
		Str("sql", sql).
		Int("args", len(args)).
		Msg("[REPOSITORY] query")
}

func (r *Repository[T]) queryMany(ctx context.Context, sql string, args []any) ([]T, error) {
	r.logQuery(sql, args)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(r.cfg.Table, err)
	}

	items, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[T])
	if err != nil {
		return nil, mapError(r.cfg.Table, err)
	}
	return items, nil
}

// queryOne returns nil, nil when no row matches.
func (r *Repository[T]) queryOne(ctx context.Context, sql string, args []any) (*T, error) {
	r.logQuery(sql, args)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(r.cfg.Table, err)
	}

	item, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByNameLax[T])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(r.cfg.Table, err)
	}
	return item, nil
}

func (r *Repository[T]) exec(ctx context.Context, sql string, args []any) (int64, error) {
	r.logQuery(sql, args)

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, mapError(r.cfg.Table, err)
	}
	return tag.RowsAffected(), nil
}

// sortedColumns returns the keys of v in a stable order so the generated SQL
// is deterministic.
func sortedColumns(v Values) []string {
	cols := make([]string, 0, len(v))
	for col := range v {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}
