package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/pkg/apperror"
	"library-backend/pkg/clock"
	"library-backend/pkg/query"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type bookRow struct {
	ID    int    `db:"id"`
	Title string `db:"title"`
	Stock int    `db:"stock"`
}

// booksRepo has an alias and every audit column.
func booksRepo(t *testing.T) *Repository[bookRow] {
	t.Helper()
	r, err := New[bookRow](nil, TableConfig{
		Table:     "books",
		Alias:     "b",
		CreatedAt: "created_at",
		UpdatedAt: "updated_at",
		DeletedAt: "deleted_at",
	}, WithClock(clock.NewFixed(fixedNow)))
	require.NoError(t, err)
	return r
}

// itemsRepo has no alias and no audit columns.
func itemsRepo(t *testing.T) *Repository[bookRow] {
	t.Helper()
	r, err := New[bookRow](nil, TableConfig{Table: "items"})
	require.NoError(t, err)
	return r
}

func TestNew(t *testing.T) {
	t.Run("defaults primary key", func(t *testing.T) {
		r := itemsRepo(t)
		assert.Equal(t, "id", r.Config().PrimaryKey)
		assert.Equal(t, "items.stock", r.Column("stock"))
	})

	t.Run("schema qualified table", func(t *testing.T) {
		r, err := New[bookRow](nil, TableConfig{Table: "public.books"})
		require.NoError(t, err)
		assert.Equal(t, "books.id", r.Column("id"))
		assert.Equal(t, `"public"."books"`, r.meta.from)
	})

	t.Run("configuration errors", func(t *testing.T) {
		for name, cfg := range map[string]TableConfig{
			"empty table":        {},
			"injection in table": {Table: "books; DROP TABLE books"},
			"qualified pk":       {Table: "books", PrimaryKey: "b.id"},
			"bad alias":          {Table: "books", Alias: "b c"},
			"qualified alias":    {Table: "books", Alias: "x.b"},
			"bad deleted column": {Table: "books", DeletedAt: "deleted-at"},
			"bad created column": {Table: "books", CreatedAt: "1created"},
			"three part table":   {Table: "db.public.books"},
			"quoted updated_at":  {Table: "books", UpdatedAt: `"updated_at"`},
		} {
			t.Run(name, func(t *testing.T) {
				_, err := New[bookRow](nil, cfg)
				require.Error(t, err)
				assert.True(t, apperror.IsKind(err, apperror.KindConfiguration), "got %v", err)
			})
		}
	})
}

func TestWithDB_KeepsConfig(t *testing.T) {
	r := booksRepo(t)
	scoped := r.WithDB(nil)

	assert.NotSame(t, r, scoped)
	assert.Equal(t, r.Config(), scoped.Config())
	assert.Equal(t, r.meta, scoped.meta)
}

func TestBuildSelect(t *testing.T) {
	r := booksRepo(t)

	t.Run("filter order limit offset", func(t *testing.T) {
		sql, args, err := r.buildSelect(FindOptions{
			Where:   query.Gt("b.stock", 0),
			OrderBy: []Order{{Column: "b.title"}},
			Limit:   5,
			Offset:  10,
		}, false)
		require.NoError(t, err)
		assert.Equal(t,
			`SELECT "b".* FROM "books" AS "b" WHERE ("b"."stock" > $1 AND "b"."deleted_at" IS NULL) ORDER BY "b"."title" ASC LIMIT $2 OFFSET $3`,
			sql)
		assert.Equal(t, []any{0, 5, 10}, args)
	})

	t.Run("unscoped without filter", func(t *testing.T) {
		sql, args, err := r.buildSelect(FindOptions{Unscoped: true}, false)
		require.NoError(t, err)
		assert.Equal(t, `SELECT "b".* FROM "books" AS "b"`, sql)
		assert.Empty(t, args)
	})

	t.Run("lock by primary key", func(t *testing.T) {
		opts := r.byPk(7, nil)
		opts.Limit = 1
		sql, args, err := r.buildSelect(opts, true)
		require.NoError(t, err)
		assert.Equal(t,
			`SELECT "b".* FROM "books" AS "b" WHERE ("b"."id" = $1 AND "b"."deleted_at" IS NULL) LIMIT $2 FOR UPDATE OF "b"`,
			sql)
		assert.Equal(t, []any{7, 1}, args)
	})

	t.Run("projection with join", func(t *testing.T) {
		sql, _, err := r.buildSelect(FindOptions{
			Select: []string{"b.title", "m.name AS member_name", "m.*"},
			Joins: []query.Join{
				{Type: query.InnerJoin, Table: "members", Alias: "m", On: query.ColumnEq("m.id", "b.id")},
			},
		}, false)
		require.NoError(t, err)
		assert.Equal(t,
			`SELECT "b"."title", "m"."name" AS "member_name", "m".* FROM "books" AS "b" `+
				`INNER JOIN "members" AS "m" ON "m"."id" = "b"."id" WHERE "b"."deleted_at" IS NULL`,
			sql)
	})

	t.Run("descending order", func(t *testing.T) {
		sql, _, err := r.buildSelect(FindOptions{
			OrderBy:  []Order{{Column: "b.stock", Desc: true}, {Column: "b.id"}},
			Unscoped: true,
		}, false)
		require.NoError(t, err)
		assert.Equal(t, `SELECT "b".* FROM "books" AS "b" ORDER BY "b"."stock" DESC, "b"."id" ASC`, sql)
	})

	t.Run("configuration errors", func(t *testing.T) {
		for name, opts := range map[string]FindOptions{
			"bad select":       {Select: []string{"count(*)"}},
			"bad select alias": {Select: []string{"b.title AS t.x"}},
			"bad order column": {OrderBy: []Order{{Column: "title; DROP"}}},
			"bad where":        {Where: query.Eq("x y", 1)},
			"bad join":         {Joins: []query.Join{{Type: "FULL", Table: "m", On: query.ColumnEq("a", "b")}}},
		} {
			t.Run(name, func(t *testing.T) {
				_, _, err := r.buildSelect(opts, false)
				assert.True(t, apperror.IsKind(err, apperror.KindConfiguration), "got %v", err)
			})
		}
	})
}

func TestBuildCount(t *testing.T) {
	r := booksRepo(t)

	sql, args, err := r.buildCount(query.Eq("b.title", "Go"), nil, false)
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "books" AS "b" WHERE ("b"."title" = $1 AND "b"."deleted_at" IS NULL)`, sql)
	assert.Equal(t, []any{"Go"}, args)
}

func TestPrepareRows(t *testing.T) {
	t.Run("sorted columns and placeholders", func(t *testing.T) {
		r := itemsRepo(t)
		cols, rows, err := r.prepareRows([]Values{
			{"title": "A", "stock": 1},
			{"stock": 2, "title": "B"},
		})
		require.NoError(t, err)

		sql, args := buildInsert(r.meta.target, cols, rows, "", true)
		assert.Equal(t, `INSERT INTO "items" ("stock", "title") VALUES ($1, $2), ($3, $4) RETURNING *`, sql)
		assert.Equal(t, []any{1, "A", 2, "B"}, args)
	})

	t.Run("stamps audit columns from the clock", func(t *testing.T) {
		r := booksRepo(t)
		cols, rows, err := r.prepareRows([]Values{{"title": "A"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"created_at", "title", "updated_at"}, cols)
		assert.Equal(t, [][]any{{fixedNow, "A", fixedNow}}, rows)
	})

	t.Run("keeps explicit audit values", func(t *testing.T) {
		r := booksRepo(t)
		created := fixedNow.Add(-time.Hour)
		input := Values{"title": "A", "created_at": created}
		_, rows, err := r.prepareRows([]Values{input})
		require.NoError(t, err)
		assert.Equal(t, [][]any{{created, "A", fixedNow}}, rows)
		assert.Len(t, input, 2, "caller's map must not be modified")
	})

	t.Run("validation errors", func(t *testing.T) {
		r := itemsRepo(t)
		for name, items := range map[string][]Values{
			"no rows":             nil,
			"empty row":           {{}},
			"missing column":      {{"a": 1, "b": 2}, {"a": 1}},
			"different column":    {{"a": 1}, {"b": 1}},
			"extra column":        {{"a": 1}, {"a": 1, "b": 2}},
			"empty row after one": {{"a": 1}, {}},
		} {
			t.Run(name, func(t *testing.T) {
				_, _, err := r.prepareRows(items)
				assert.True(t, apperror.IsKind(err, apperror.KindValidation), "got %v", err)
			})
		}
	})

	t.Run("bad column name", func(t *testing.T) {
		_, _, err := itemsRepo(t).prepareRows([]Values{{"ti tle": 1}})
		assert.True(t, apperror.IsKind(err, apperror.KindConfiguration))
	})
}

func TestBuildUpdate(t *testing.T) {
	r := booksRepo(t)

	t.Run("many", func(t *testing.T) {
		sql, args, err := r.buildUpdate(Values{"stock": 3}, query.Eq("b.id", 9), false)
		require.NoError(t, err)
		assert.Equal(t,
			`UPDATE "books" AS "b" SET "stock" = $1, "updated_at" = $2 WHERE ("b"."id" = $3 AND "b"."deleted_at" IS NULL) RETURNING "b".*`,
			sql)
		assert.Equal(t, []any{3, fixedNow, 9}, args)
	})

	t.Run("first match only", func(t *testing.T) {
		sql, args, err := r.buildUpdate(Values{"stock": 3}, query.Eq("b.title", "Go"), true)
		require.NoError(t, err)
		assert.Equal(t,
			`UPDATE "books" AS "b" SET "stock" = $1, "updated_at" = $2 WHERE "b"."id" IN `+
				`(SELECT "b"."id" FROM "books" AS "b" WHERE ("b"."title" = $3 AND "b"."deleted_at" IS NULL) LIMIT 1) RETURNING "b".*`,
			sql)
		assert.Equal(t, []any{3, fixedNow, "Go"}, args)
	})

	t.Run("empty payload", func(t *testing.T) {
		_, _, err := r.buildUpdate(Values{}, query.Eq("b.id", 1), false)
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})

	t.Run("qualified set column", func(t *testing.T) {
		_, _, err := r.buildUpdate(Values{"b.stock": 1}, query.Eq("b.id", 1), false)
		assert.True(t, apperror.IsKind(err, apperror.KindConfiguration))
	})
}

func TestBuildAdjust(t *testing.T) {
	r := booksRepo(t)

	sql, args, err := r.buildAdjust("stock", "-", 2, query.Eq("b.id", "x"))
	require.NoError(t, err)
	assert.Equal(t,
		`UPDATE "books" AS "b" SET "stock" = "stock" - $1, "updated_at" = $2 WHERE ("b"."id" = $3 AND "b"."deleted_at" IS NULL)`,
		sql)
	assert.Equal(t, []any{2, fixedNow, "x"}, args)

	sql, args, err = itemsRepo(t).buildAdjust("stock", "+", 4, query.Eq("id", 1))
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "items" SET "stock" = "stock" + $1 WHERE "id" = $2`, sql)
	assert.Equal(t, []any{4, 1}, args)

	_, _, err = r.buildAdjust("stock", "+", 0, query.Eq("b.id", 1))
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	_, _, err = r.buildAdjust("stock", "+", 1, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindConfiguration))

	_, _, err = r.buildAdjust("stock = 0 --", "+", 1, query.Eq("b.id", 1))
	assert.True(t, apperror.IsKind(err, apperror.KindConfiguration))
}

func TestBuildDestroy(t *testing.T) {
	r := booksRepo(t)

	sql, args, err := r.buildDestroy(query.Eq("b.id", 1), false)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "books" AS "b" WHERE "b"."id" = $1 RETURNING "b".*`, sql)
	assert.Equal(t, []any{1}, args)

	sql, _, err = r.buildDestroy(query.Lt("b.stock", 1), true)
	require.NoError(t, err)
	assert.Equal(t,
		`DELETE FROM "books" AS "b" WHERE "b"."id" IN (SELECT "b"."id" FROM "books" AS "b" WHERE "b"."stock" < $1 LIMIT 1) RETURNING "b".*`,
		sql)
}

// These fail before touching the (nil) connection.
func TestGuardsRunBeforeSQL(t *testing.T) {
	ctx := context.Background()

	t.Run("soft delete without deleted_at column", func(t *testing.T) {
		r := itemsRepo(t)

		_, err := r.DeleteByPk(ctx, 1)
		assert.True(t, apperror.IsKind(err, apperror.KindConfiguration))
		_, err = r.DeleteOne(ctx, query.Eq("id", 1))
		assert.True(t, apperror.IsKind(err, apperror.KindConfiguration))
		_, err = r.DeleteMany(ctx, query.Eq("id", 1))
		assert.True(t, apperror.IsKind(err, apperror.KindConfiguration))
	})

	t.Run("mass statements need a predicate", func(t *testing.T) {
		r := booksRepo(t)

		_, err := r.UpdateMany(ctx, nil, Values{"stock": 0})
		assert.True(t, apperror.IsKind(err, apperror.KindConfiguration))
		_, err = r.UpdateOne(ctx, query.And{}, Values{"stock": 0})
		assert.True(t, apperror.IsKind(err, apperror.KindConfiguration))
		_, err = r.DestroyMany(ctx, nil)
		assert.True(t, apperror.IsKind(err, apperror.KindConfiguration))
		_, err = r.DeleteMany(ctx, query.Or{})
		assert.True(t, apperror.IsKind(err, apperror.KindConfiguration))
	})

	t.Run("insert validation", func(t *testing.T) {
		r := booksRepo(t)

		_, err := r.InsertMany(ctx, nil)
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
		_, err = r.InsertOne(ctx, Values{})
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
		_, err = r.BulkInsert(ctx, []Values{{"a": 1}, {"b": 2}}, BulkInsertOptions{})
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})
}
