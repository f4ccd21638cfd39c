package model

// ExprKind discriminates the derived-property expression atoms from
// spec.md section 4.8 phase 4.
type ExprKind string

const (
	ExprProp    ExprKind = "prop"
	ExprAdd     ExprKind = "add"
	ExprSub     ExprKind = "sub"
	ExprMul     ExprKind = "mul"
	ExprDiv     ExprKind = "div"
	ExprSum     ExprKind = "sum"
	ExprLiteral ExprKind = "literal"
)

// Expr is a derived-property expression tree evaluated against a
// resolved configuration. Numeric evaluation is always floating point.
type Expr struct {
	Kind ExprKind `json:"kind"`

	// ExprProp
	Property string `json:"property,omitempty"`

	// ExprAdd/Sub/Mul/Div
	Left  *Expr `json:"left,omitempty"`
	Right *Expr `json:"right,omitempty"`

	// ExprSum: sum Property over children selected by relationship Over,
	// optionally restricted to the subset matching Where.
	Over  string          `json:"over,omitempty"`
	Where *InstanceFilter `json:"where,omitempty"`

	// ExprLiteral
	Literal float64 `json:"literal,omitempty"`
}

func PropExpr(name string) Expr { return Expr{Kind: ExprProp, Property: name} }
func LiteralExpr(v float64) Expr { return Expr{Kind: ExprLiteral, Literal: v} }
func AddExpr(l, r Expr) Expr     { return Expr{Kind: ExprAdd, Left: &l, Right: &r} }
func SubExpr(l, r Expr) Expr     { return Expr{Kind: ExprSub, Left: &l, Right: &r} }
func MulExpr(l, r Expr) Expr     { return Expr{Kind: ExprMul, Left: &l, Right: &r} }
func DivExpr(l, r Expr) Expr     { return Expr{Kind: ExprDiv, Left: &l, Right: &r} }

// SumExpr sums `property` over every child selected through relationship
// `over`, optionally filtered by `where`.
func SumExpr(over, property string, where *InstanceFilter) Expr {
	return Expr{Kind: ExprSum, Over: over, Property: property, Where: where}
}

// ExpandFnShort turns a DerivedDef's fn_short shorthand into the
// equivalent explicit Expr tree: own.Property + sum over every
// relationship of sum(rel, Property) (spec.md section 3).
func ExpandFnShort(class ClassDef, method DerivedMethod, property string) Expr {
	if method != MethodSum {
		return PropExpr(property)
	}
	acc := PropExpr(property)
	for _, rel := range class.Relationships {
		acc = AddExpr(acc, SumExpr(rel.Name, property, nil))
	}
	return acc
}
