package repository

import (
	"strings"

	"library-backend/pkg/apperror"
	"library-backend/pkg/query"
)

// TableConfig is the construction contract of a Repository: which table,
// which primary key, and which audit columns exist. Empty audit column
// names mean the table does not have that column.
type TableConfig struct {
	Table      string // "books" hoặc "public.books"
	PrimaryKey string // default "id"
	Alias      string // optional, qualifies columns in SELECT/UPDATE/DELETE
	CreatedAt  string
	UpdatedAt  string
	DeletedAt  string // soft delete column; Delete* requires it
}

// Values is a column → value payload for inserts and updates.
type Values map[string]any

// Row is a row-shaped result for projections that do not map onto T.
type Row = map[string]any

// Order is one ORDER BY item.
type Order struct {
	Column string
	Desc   bool
}

// FindOptions drives every SELECT the repository issues.
type FindOptions struct {
	Select   []string // default: <alias>.*
	Where    query.Condition
	Joins    []query.Join
	OrderBy  []Order
	Limit    int
	Offset   int
	Unscoped bool // include soft-deleted rows
}

// tableMeta holds the pre-quoted fragments derived from a validated config.
type tableMeta struct {
	target string // "books"
	from   string // "books" AS "b"
	ref    string // b (unquoted qualifier)
	qref   string // "b"
	pk     string // "id"
	qpk    string // "b"."id"
}

func (c TableConfig) withDefaults() TableConfig {
	if c.PrimaryKey == "" {
		c.PrimaryKey = "id"
	}
	return c
}

// validate checks every identifier of the config once, at construction.
func (c TableConfig) validate() (tableMeta, error) {
	var meta tableMeta

	if c.Table == "" {
		return meta, apperror.Configuration("table name is required")
	}
	target, err := query.QuoteIdentifier(c.Table)
	if err != nil {
		return meta, err
	}

	for _, col := range []string{c.PrimaryKey, c.Alias, c.CreatedAt, c.UpdatedAt, c.DeletedAt} {
		if col == "" {
			continue
		}
		if err := validateColumn(col); err != nil {
			return meta, err
		}
	}

	meta.target = target
	meta.from = target
	meta.ref = c.Table[strings.LastIndex(c.Table, ".")+1:]
	if c.Alias != "" {
		meta.ref = c.Alias
		meta.from = target + " AS " + quote(c.Alias)
	}
	meta.qref = quote(meta.ref)
	meta.pk = c.PrimaryKey
	meta.qpk = meta.qref + "." + quote(c.PrimaryKey)

	return meta, nil
}

// validateColumn accepts a bare column name (no qualifier).
func validateColumn(name string) error {
	if err := query.ValidateIdentifier(name); err != nil {
		return err
	}
	if strings.Contains(name, ".") {
		return apperror.Configuration("column %q must not be qualified", name)
	}
	return nil
}

// quote is only called on names that already passed validateColumn.
func quote(name string) string {
	quoted, _ := query.QuoteIdentifier(name)
	return quoted
}
