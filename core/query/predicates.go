package query

import (
	"cmp"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/asaidimu/rowql/core/row"
)

// ComparisonOperator names a field comparison usable in Where.
type ComparisonOperator string

// Supported comparison operators.
const (
	ComparisonOperatorEq         ComparisonOperator = "eq"
	ComparisonOperatorNeq        ComparisonOperator = "neq"
	ComparisonOperatorLt         ComparisonOperator = "lt"
	ComparisonOperatorLte        ComparisonOperator = "lte"
	ComparisonOperatorGt         ComparisonOperator = "gt"
	ComparisonOperatorGte        ComparisonOperator = "gte"
	ComparisonOperatorIn         ComparisonOperator = "in"
	ComparisonOperatorNin        ComparisonOperator = "nin"
	ComparisonOperatorContains   ComparisonOperator = "contains"
	ComparisonOperatorStartsWith ComparisonOperator = "startswith"
	ComparisonOperatorEndsWith   ComparisonOperator = "endswith"
	ComparisonOperatorExists     ComparisonOperator = "exists"
	ComparisonOperatorNotExists  ComparisonOperator = "nexists"
)

// Field builds predicates over the value at a path.
//
//	query.Select("*").From(rows).Where(query.Field("size").Gt(2))
func Field(path string) FieldPredicate {
	return FieldPredicate{path: row.ParsePath(path)}
}

// FieldPredicate is the path half of a comparison.
type FieldPredicate struct {
	path row.Path
}

// Eq matches rows whose value equals v. Numbers of different kinds, and
// numeric strings, compare by value.
func (f FieldPredicate) Eq(v any) Predicate {
	return func(r row.Row) bool { return valuesEqual(f.path.Get(r), v) }
}

// Neq matches rows whose value does not equal v.
func (f FieldPredicate) Neq(v any) Predicate {
	return func(r row.Row) bool { return !valuesEqual(f.path.Get(r), v) }
}

// Lt matches rows whose value is less than v.
func (f FieldPredicate) Lt(v any) Predicate {
	return f.ordered(v, func(c int) bool { return c < 0 })
}

// Lte matches rows whose value is less than or equal to v.
func (f FieldPredicate) Lte(v any) Predicate {
	return f.ordered(v, func(c int) bool { return c <= 0 })
}

// Gt matches rows whose value is greater than v.
func (f FieldPredicate) Gt(v any) Predicate {
	return f.ordered(v, func(c int) bool { return c > 0 })
}

// Gte matches rows whose value is greater than or equal to v.
func (f FieldPredicate) Gte(v any) Predicate {
	return f.ordered(v, func(c int) bool { return c >= 0 })
}

// In matches rows whose value equals one of values.
func (f FieldPredicate) In(values ...any) Predicate {
	return func(r row.Row) bool {
		got := f.path.Get(r)
		for _, v := range values {
			if valuesEqual(got, v) {
				return true
			}
		}
		return false
	}
}

// Nin matches rows whose value equals none of values.
func (f FieldPredicate) Nin(values ...any) Predicate {
	in := f.In(values...)
	return func(r row.Row) bool { return !in(r) }
}

// Contains matches string values containing s, and slices holding an
// element equal to s.
func (f FieldPredicate) Contains(s any) Predicate {
	return func(r row.Row) bool {
		switch got := f.path.Get(r).(type) {
		case string:
			sub, ok := s.(string)
			return ok && strings.Contains(got, sub)
		case []any:
			for _, el := range got {
				if valuesEqual(el, s) {
					return true
				}
			}
		}
		return false
	}
}

// StartsWith matches string values with the given prefix.
func (f FieldPredicate) StartsWith(prefix string) Predicate {
	return func(r row.Row) bool {
		got, ok := f.path.Get(r).(string)
		return ok && strings.HasPrefix(got, prefix)
	}
}

// EndsWith matches string values with the given suffix.
func (f FieldPredicate) EndsWith(suffix string) Predicate {
	return func(r row.Row) bool {
		got, ok := f.path.Get(r).(string)
		return ok && strings.HasSuffix(got, suffix)
	}
}

// Exists matches rows where the path resolves to a non-nil value.
func (f FieldPredicate) Exists() Predicate {
	return func(r row.Row) bool { return f.path.Get(r) != nil }
}

// NotExists matches rows where the path is missing or nil.
func (f FieldPredicate) NotExists() Predicate {
	return func(r row.Row) bool { return f.path.Get(r) == nil }
}

// Op builds the predicate for operator with value. In and Nin expect value
// to be a []any.
func (f FieldPredicate) Op(operator ComparisonOperator, value any) (Predicate, error) {
	switch operator {
	case ComparisonOperatorEq:
		return f.Eq(value), nil
	case ComparisonOperatorNeq:
		return f.Neq(value), nil
	case ComparisonOperatorLt:
		return f.Lt(value), nil
	case ComparisonOperatorLte:
		return f.Lte(value), nil
	case ComparisonOperatorGt:
		return f.Gt(value), nil
	case ComparisonOperatorGte:
		return f.Gte(value), nil
	case ComparisonOperatorIn, ComparisonOperatorNin:
		values, ok := value.([]any)
		if !ok {
			values = []any{value}
		}
		if operator == ComparisonOperatorIn {
			return f.In(values...), nil
		}
		return f.Nin(values...), nil
	case ComparisonOperatorContains:
		return f.Contains(value), nil
	case ComparisonOperatorStartsWith:
		return f.StartsWith(fmt.Sprint(value)), nil
	case ComparisonOperatorEndsWith:
		return f.EndsWith(fmt.Sprint(value)), nil
	case ComparisonOperatorExists:
		return f.Exists(), nil
	case ComparisonOperatorNotExists:
		return f.NotExists(), nil
	}
	return nil, fmt.Errorf("%w: operator %q", ErrUnsupportedConditionType, operator)
}

func (f FieldPredicate) ordered(v any, accept func(int) bool) Predicate {
	return func(r row.Row) bool {
		c, ok := compareValues(f.path.Get(r), v)
		return ok && accept(c)
	}
}

// And matches rows that pass every predicate.
func And(preds ...Predicate) Predicate {
	return func(r row.Row) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// Or matches rows that pass at least one predicate.
func Or(preds ...Predicate) Predicate {
	return func(r row.Row) bool {
		for _, p := range preds {
			if p(r) {
				return true
			}
		}
		return false
	}
}

// Not inverts a predicate.
func Not(p Predicate) Predicate {
	return func(r row.Row) bool { return !p(r) }
}

// FieldsEqual is a join condition matching rows whose values at leftPath
// and rightPath are equal.
//
//	query.Select("*").From(users).LeftJoin(orders).On(query.FieldsEqual("id", "user_id"))
func FieldsEqual(leftPath, rightPath string) JoinCondition {
	lp, rp := row.ParsePath(leftPath), row.ParsePath(rightPath)
	return func(left, right row.Row) bool {
		l, r := lp.Get(left), rp.Get(right)
		return l != nil && r != nil && valuesEqual(l, r)
	}
}

func valuesEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	c, ok := compareValues(a, b)
	return ok && c == 0
}

// compareValues orders two values the way the comparison operators do.
// Numbers compare by value, and a numeric string is read as a number only
// when the other side is a number. Two strings compare lexicographically and
// times chronologically. ok is false when the pair is incomparable, which
// includes any NaN.
func compareValues(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}

	fa, aNumber := number(a)
	fb, bNumber := number(b)
	switch {
	case aNumber && bNumber:
		if math.IsNaN(fa) || math.IsNaN(fb) {
			return 0, false
		}
		return row.Compare(a, b), true
	case aNumber:
		if s, ok := b.(string); ok {
			if fb, ok := parseNumber(s); ok && !math.IsNaN(fa) {
				return cmp.Compare(fa, fb), true
			}
		}
		return 0, false
	case bNumber:
		if s, ok := a.(string); ok {
			if fa, ok := parseNumber(s); ok && !math.IsNaN(fb) {
				return cmp.Compare(fa, fb), true
			}
		}
		return 0, false
	}

	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb), true
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb), true
		}
	}
	return 0, false
}

// number converts Go numeric values, decimals included. Strings are left to
// parseNumber.
func number(v any) (float64, bool) {
	if _, ok := v.(string); ok {
		return 0, false
	}
	return ToFloat64(v)
}

// parseNumber reads a finite number from s. "NaN" and "Inf" spellings are
// not numbers here.
func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
