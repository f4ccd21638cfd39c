package model

// InstanceFilter is an alias for the recursive boolean expression used to
// filter instance sets: pool overrides, relationship filters, and
// conditional-property `when` clauses all share this shape.
type InstanceFilter = BoolExpr

// BoolExprKind discriminates the BoolExpr union: combinators (All/Any/Not)
// and a single leaf Predicate.
type BoolExprKind string

const (
	ExprAll     BoolExprKind = "all"
	ExprAny     BoolExprKind = "any"
	ExprNot     BoolExprKind = "not"
	ExprLeaf    BoolExprKind = "leaf"
)

// BoolExpr is a recursive tree of All/Any/Not combinators over leaf
// Predicate comparisons (spec.md section 3).
type BoolExpr struct {
	Kind     BoolExprKind `json:"kind"`
	Children []BoolExpr   `json:"children,omitempty"`
	Leaf     *Predicate   `json:"leaf,omitempty"`
}

func AllOf(children ...BoolExpr) BoolExpr { return BoolExpr{Kind: ExprAll, Children: children} }
func AnyOf(children ...BoolExpr) BoolExpr { return BoolExpr{Kind: ExprAny, Children: children} }
func NotOf(child BoolExpr) BoolExpr       { return BoolExpr{Kind: ExprNot, Children: []BoolExpr{child}} }
func Leaf(p Predicate) BoolExpr           { return BoolExpr{Kind: ExprLeaf, Leaf: &p} }

// PredicateOp is one of the leaf comparison operators from spec.md
// section 3.
type PredicateOp string

const (
	OpEq        PredicateOp = "eq"
	OpNe        PredicateOp = "ne"
	OpGt        PredicateOp = "gt"
	OpGte       PredicateOp = "gte"
	OpLt        PredicateOp = "lt"
	OpLte       PredicateOp = "lte"
	OpIn        PredicateOp = "in"
	OpNotIn     PredicateOp = "not_in"
	OpContains  PredicateOp = "contains"
	OpExists    PredicateOp = "exists"
	OpNotExists PredicateOp = "not_exists"
)

// Predicate is a single leaf comparison: Path is a JSON-path-like
// reference ($.__id, $.__type, or $.<property name>), Op the comparator,
// and Value the right-hand operand (unused for exists/not_exists).
type Predicate struct {
	Path  string      `json:"path"`
	Op    PredicateOp `json:"op"`
	Value any         `json:"value,omitempty"`
}

// Special path names recognized by the filter evaluator.
const (
	PathId   = "$.__id"
	PathType = "$.__type"
)
