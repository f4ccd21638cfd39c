// Package filter implements C7: evaluation of the recursive
// All/Any/Not boolean expression tree (model.BoolExpr) used throughout
// the schema for pool overrides, relationship filters, and conditional
// property `when` clauses.
//
// New code — there is no BeadsLog analogue to a boolean filter language.
// Its shape is grounded on the composable-function idiom BeadsLog's
// internal/validation/issue.go uses for validator chains
// (small closures combined by a combinator, here And/Or/Not instead of
// Chain), applied to expression evaluation instead of validation.
package filter

import (
	"strconv"
	"strings"

	"github.com/ourstudio-se/oatdb-go/internal/apperr"
	"github.com/ourstudio-se/oatdb-go/internal/model"
)

// Resolver supplies the values a Predicate's Path can reference: an
// instance's id, its class's name, and its (already-resolved, for
// conditional properties) property values.
type Resolver interface {
	ID() string
	TypeName() string
	Property(name string) (any, bool)
}

// Evaluate recursively evaluates expr against r.
func Evaluate(expr model.BoolExpr, r Resolver) (bool, error) {
	switch expr.Kind {
	case model.ExprAll:
		for _, c := range expr.Children {
			ok, err := Evaluate(c, r)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case model.ExprAny:
		for _, c := range expr.Children {
			ok, err := Evaluate(c, r)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case model.ExprNot:
		if len(expr.Children) != 1 {
			return false, apperr.New(apperr.Validation, "not expression requires exactly one child, got %d", len(expr.Children))
		}
		ok, err := Evaluate(expr.Children[0], r)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case model.ExprLeaf:
		if expr.Leaf == nil {
			return false, apperr.New(apperr.Validation, "leaf expression missing predicate")
		}
		return evalLeaf(*expr.Leaf, r)
	default:
		return false, apperr.New(apperr.Validation, "unknown bool expression kind %q", expr.Kind)
	}
}

func resolvePath(path string, r Resolver) (any, bool) {
	switch path {
	case model.PathId:
		return r.ID(), true
	case model.PathType:
		return r.TypeName(), true
	default:
		return r.Property(strings.TrimPrefix(path, "$."))
	}
}

// evalLeaf applies missing-operand semantics from spec.md section 3: if
// Path does not resolve, every operator evaluates false except
// not_exists, which evaluates true.
func evalLeaf(p model.Predicate, r Resolver) (bool, error) {
	val, ok := resolvePath(p.Path, r)

	switch p.Op {
	case model.OpExists:
		return ok, nil
	case model.OpNotExists:
		return !ok, nil
	}
	if !ok {
		return false, nil
	}

	switch p.Op {
	case model.OpEq:
		return valuesEqual(val, p.Value), nil
	case model.OpNe:
		return !valuesEqual(val, p.Value), nil
	case model.OpGt, model.OpGte, model.OpLt, model.OpLte:
		cmp, comparable := compareValues(val, p.Value)
		if !comparable {
			return false, nil
		}
		switch p.Op {
		case model.OpGt:
			return cmp > 0, nil
		case model.OpGte:
			return cmp >= 0, nil
		case model.OpLt:
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}
	case model.OpIn:
		list, ok := asSlice(p.Value)
		if !ok {
			return false, nil
		}
		for _, item := range list {
			if valuesEqual(val, item) {
				return true, nil
			}
		}
		return false, nil
	case model.OpNotIn:
		list, ok := asSlice(p.Value)
		if !ok {
			return true, nil
		}
		for _, item := range list {
			if valuesEqual(val, item) {
				return false, nil
			}
		}
		return true, nil
	case model.OpContains:
		return containsValue(val, p.Value), nil
	default:
		return false, apperr.New(apperr.Validation, "unsupported predicate operator %q", p.Op)
	}
}

// asNumber reports whether v is a number (any Go numeric kind, or a
// numeric string) and its float64 value.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// valuesEqual compares numerically when both sides parse as numbers,
// otherwise falls back to string comparison (spec.md section 3: "numeric
// vs lexicographic comparison" depending on operand shape).
func valuesEqual(a, b any) bool {
	if an, aok := asNumber(a); aok {
		if bn, bok := asNumber(b); bok {
			return an == bn
		}
	}
	return toComparableString(a) == toComparableString(b)
}

// compareValues returns (-1, 0, 1) and true if a and b can be ordered;
// false if neither a consistent numeric nor string comparison applies.
func compareValues(a, b any) (int, bool) {
	if an, aok := asNumber(a); aok {
		if bn, bok := asNumber(b); bok {
			switch {
			case an < bn:
				return -1, true
			case an > bn:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func toComparableString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if n, ok := asNumber(v); ok {
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	if b, ok := v.(bool); ok {
		return strconv.FormatBool(b)
	}
	return ""
}

func asSlice(v any) ([]any, bool) {
	list, ok := v.([]any)
	return list, ok
}

func containsValue(container, item any) bool {
	switch c := container.(type) {
	case []any:
		for _, el := range c {
			if valuesEqual(el, item) {
				return true
			}
		}
		return false
	case string:
		s, ok := item.(string)
		if !ok {
			return false
		}
		return strings.Contains(c, s)
	default:
		return false
	}
}
