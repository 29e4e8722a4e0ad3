package query

import (
	"fmt"
	"reflect"
	"strings"

	"library-backend/pkg/apperror"
)

// Operator is a comparison keyword. Operators are spliced into SQL text, so
// only the ones listed in allowedOperators are accepted.
type Operator string

const (
	OpEq       Operator = "="
	OpNe       Operator = "!="
	OpNeAlt    Operator = "<>"
	OpLt       Operator = "<"
	OpLte      Operator = "<="
	OpGt       Operator = ">"
	OpGte      Operator = ">="
	OpLike     Operator = "LIKE"
	OpNotLike  Operator = "NOT LIKE"
	OpILike    Operator = "ILIKE"
	OpNotILike Operator = "NOT ILIKE"
	OpIn       Operator = "IN"
	OpNotIn    Operator = "NOT IN"
)

var allowedOperators = map[Operator]bool{
	OpEq: true, OpNe: true, OpNeAlt: true,
	OpLt: true, OpLte: true, OpGt: true, OpGte: true,
	OpLike: true, OpNotLike: true, OpILike: true, OpNotILike: true,
	OpIn: true, OpNotIn: true,
}

// Condition is a node of a WHERE / ON tree: Leaf, Compare, And or Or.
type Condition interface {
	condition()
}

// Leaf compares a column with a bound value, or tests it for NULL.
type Leaf struct {
	Column    string
	Op        Operator
	Value     any
	IsNull    bool
	IsNotNull bool
}

// Compare compares two identifiers (join predicates, column-to-column filters).
type Compare struct {
	Left  string
	Op    Operator
	Right string
}

// And joins its children with AND. Empty children are skipped.
type And []Condition

// Or joins its children with OR. Empty children are skipped.
type Or []Condition

func (Leaf) condition()    {}
func (Compare) condition() {}
func (And) condition()     {}
func (Or) condition()      {}

// ===================================
// LEAF CONSTRUCTORS
// ===================================

func Eq(column string, value any) Leaf  { return Leaf{Column: column, Op: OpEq, Value: value} }
func Ne(column string, value any) Leaf  { return Leaf{Column: column, Op: OpNe, Value: value} }
func Lt(column string, value any) Leaf  { return Leaf{Column: column, Op: OpLt, Value: value} }
func Lte(column string, value any) Leaf { return Leaf{Column: column, Op: OpLte, Value: value} }
func Gt(column string, value any) Leaf  { return Leaf{Column: column, Op: OpGt, Value: value} }
func Gte(column string, value any) Leaf { return Leaf{Column: column, Op: OpGte, Value: value} }

func ILike(column string, pattern string) Leaf {
	return Leaf{Column: column, Op: OpILike, Value: pattern}
}

// In binds values (a slice) as a single array parameter.
func In(column string, values any) Leaf { return Leaf{Column: column, Op: OpIn, Value: values} }

func NotIn(column string, values any) Leaf {
	return Leaf{Column: column, Op: OpNotIn, Value: values}
}

func IsNull(column string) Leaf    { return Leaf{Column: column, IsNull: true} }
func IsNotNull(column string) Leaf { return Leaf{Column: column, IsNotNull: true} }

// ColumnEq is the usual join predicate left = right.
func ColumnEq(left, right string) Compare { return Compare{Left: left, Op: OpEq, Right: right} }

// ===================================
// COMPILER
// ===================================

// CompileWhere compiles cond into a predicate using placeholders $start,
// $start+1, ... in tree order, and returns the values in the same order.
// A nil or empty tree compiles to "" with no values; callers then omit the
// WHERE keyword. The same input always yields the same output.
func CompileWhere(cond Condition, start int) (string, []any, error) {
	if start < 1 {
		return "", nil, apperror.Configuration("placeholder index must start at 1 or above, got %d", start)
	}

	sql, args, _, err := compile(cond, start, true)
	if err != nil {
		return "", nil, err
	}
	return sql, args, nil
}

// compile threads the next free placeholder index through the recursion and
// returns it; nothing outside the call is mutated.
func compile(cond Condition, next int, allowValues bool) (string, []any, int, error) {
	switch c := cond.(type) {
	case nil:
		return "", nil, next, nil
	case Leaf:
		if !allowValues {
			return "", nil, next, apperror.Configuration("join predicate on %q must compare two columns", c.Column)
		}
		return compileLeaf(c, next)
	case Compare:
		sql, err := compileCompare(c)
		return sql, nil, next, err
	case And:
		return compileBranch([]Condition(c), "AND", next, allowValues)
	case Or:
		return compileBranch([]Condition(c), "OR", next, allowValues)
	default:
		return "", nil, next, apperror.Configuration("unsupported condition type %T", cond)
	}
}

func compileBranch(children []Condition, keyword string, next int, allowValues bool) (string, []any, int, error) {
	parts := make([]string, 0, len(children))
	var args []any

	for _, child := range children {
		sql, childArgs, after, err := compile(child, next, allowValues)
		if err != nil {
			return "", nil, next, err
		}
		next = after
		if sql == "" {
			continue
		}
		parts = append(parts, sql)
		args = append(args, childArgs...)
	}

	switch len(parts) {
	case 0:
		return "", nil, next, nil
	case 1:
		return parts[0], args, next, nil
	default:
		return "(" + strings.Join(parts, " "+keyword+" ") + ")", args, next, nil
	}
}

func compileLeaf(leaf Leaf, next int) (string, []any, int, error) {
	column, err := QuoteIdentifier(leaf.Column)
	if err != nil {
		return "", nil, next, err
	}

	// === NULL CHECKS (no parameter) ===
	if leaf.IsNull && leaf.IsNotNull {
		return "", nil, next, apperror.Configuration("condition on %q cannot be both IS NULL and IS NOT NULL", leaf.Column)
	}
	if leaf.IsNull {
		return column + " IS NULL", nil, next, nil
	}
	if leaf.IsNotNull {
		return column + " IS NOT NULL", nil, next, nil
	}

	op, err := normalizeOperator(leaf.Op)
	if err != nil {
		return "", nil, next, err
	}

	placeholder := fmt.Sprintf("$%d", next)
	switch op {
	case OpIn, OpNotIn:
		if !isList(leaf.Value) {
			return "", nil, next, apperror.Configuration("%s on %q requires a slice value, got %T", op, leaf.Column, leaf.Value)
		}
		sql := fmt.Sprintf("%s = ANY(%s)", column, placeholder)
		if op == OpNotIn {
			sql = "NOT (" + sql + ")"
		}
		return sql, []any{leaf.Value}, next + 1, nil
	default:
		return fmt.Sprintf("%s %s %s", column, op, placeholder), []any{leaf.Value}, next + 1, nil
	}
}

func compileCompare(c Compare) (string, error) {
	left, err := QuoteIdentifier(c.Left)
	if err != nil {
		return "", err
	}
	right, err := QuoteIdentifier(c.Right)
	if err != nil {
		return "", err
	}

	op, err := normalizeOperator(c.Op)
	if err != nil {
		return "", err
	}
	if op == OpIn || op == OpNotIn {
		return "", apperror.Configuration("operator %s cannot compare two columns", op)
	}
	return fmt.Sprintf("%s %s %s", left, op, right), nil
}

func normalizeOperator(op Operator) (Operator, error) {
	normalized := Operator(strings.ToUpper(strings.TrimSpace(string(op))))
	if !allowedOperators[normalized] {
		return "", apperror.Configuration("operator %q is not allowed", op)
	}
	return normalized, nil
}

func isList(v any) bool {
	if v == nil {
		return false
	}
	kind := reflect.TypeOf(v).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}
