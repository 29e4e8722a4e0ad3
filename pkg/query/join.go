package query

import (
	"strings"

	"library-backend/pkg/apperror"
)

// JoinType is one of INNER, LEFT, RIGHT.
type JoinType string

const (
	InnerJoin JoinType = "INNER"
	LeftJoin  JoinType = "LEFT"
	RightJoin JoinType = "RIGHT"
)

// Join describes one JOIN clause. On must only compare identifiers
// (Compare nodes, possibly nested in And/Or).
type Join struct {
	Type  JoinType
	Table string
	Alias string
	On    Condition
}

// BuildJoins compiles joins in the given order into one clause, e.g.
//
//	INNER JOIN "books" AS "b" ON "b"."id" = "l"."book_id"
//
// Joins are neither reordered nor deduplicated.
func BuildJoins(joins []Join) (string, error) {
	clauses := make([]string, 0, len(joins))

	for _, j := range joins {
		clause, err := buildJoin(j)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}

	return strings.Join(clauses, " "), nil
}

func buildJoin(j Join) (string, error) {
	joinType := JoinType(strings.ToUpper(strings.TrimSpace(string(j.Type))))
	switch joinType {
	case InnerJoin, LeftJoin, RightJoin:
	default:
		return "", apperror.Configuration("invalid join type %q", j.Type)
	}

	table, err := QuoteIdentifier(j.Table)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(string(joinType))
	sb.WriteString(" JOIN ")
	sb.WriteString(table)

	if j.Alias != "" {
		if strings.Contains(j.Alias, ".") {
			return "", apperror.Configuration("invalid join alias %q", j.Alias)
		}
		alias, err := QuoteIdentifier(j.Alias)
		if err != nil {
			return "", err
		}
		sb.WriteString(" AS ")
		sb.WriteString(alias)
	}

	// ON tree: identifiers only, no placeholders
	on, _, _, err := compile(j.On, 1, false)
	if err != nil {
		return "", err
	}
	if on == "" {
		return "", apperror.Configuration("join on %q has no ON predicate", j.Table)
	}
	sb.WriteString(" ON ")
	sb.WriteString(on)

	return sb.String(), nil
}
