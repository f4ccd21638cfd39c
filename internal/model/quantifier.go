package model

import "fmt"

// QuantifierKind is the discriminant of a Quantifier variant.
type QuantifierKind string

const (
	QExactly  QuantifierKind = "exactly"
	QAtLeast  QuantifierKind = "at_least"
	QAtMost   QuantifierKind = "at_most"
	QRange    QuantifierKind = "range"
	QOptional QuantifierKind = "optional"
	QAny      QuantifierKind = "any"
	QAll      QuantifierKind = "all"
)

// Quantifier bounds how many pool members a relationship selects. It
// compiles to a pseudo-boolean constraint over the sum of 0/1 selection
// variables (spec.md section 3):
//
//	Exactly(n)   -> sum == n
//	AtLeast(n)   -> sum >= n
//	AtMost(n)    -> sum <= n
//	Range(lo,hi) -> lo <= sum <= hi
//	Optional     -> sum <= 1
//	Any          -> sum >= 1
//	All          -> sum >= |pool|
type Quantifier struct {
	Kind QuantifierKind `json:"kind"`
	N    int            `json:"n,omitempty"`
	Min  int            `json:"min,omitempty"`
	Max  int            `json:"max,omitempty"`
}

func Exactly(n int) Quantifier        { return Quantifier{Kind: QExactly, N: n} }
func AtLeast(n int) Quantifier        { return Quantifier{Kind: QAtLeast, N: n} }
func AtMost(n int) Quantifier         { return Quantifier{Kind: QAtMost, N: n} }
func RangeQ(min, max int) Quantifier  { return Quantifier{Kind: QRange, Min: min, Max: max} }
func Optional() Quantifier            { return Quantifier{Kind: QOptional} }
func Any() Quantifier                 { return Quantifier{Kind: QAny} }
func All() Quantifier                 { return Quantifier{Kind: QAll} }

// Bounds resolves the quantifier's concrete [lower, upper] bound given the
// size of the candidate pool it is applied against (needed for All, whose
// lower bound is the pool size).
func (q Quantifier) Bounds(poolSize int) (lower, upper int) {
	switch q.Kind {
	case QExactly:
		return q.N, q.N
	case QAtLeast:
		return q.N, poolSize
	case QAtMost:
		return 0, q.N
	case QRange:
		return q.Min, q.Max
	case QOptional:
		return 0, 1
	case QAny:
		return 1, poolSize
	case QAll:
		return poolSize, poolSize
	default:
		return 0, poolSize
	}
}

// Satisfies reports whether a selection of the given size is within this
// quantifier's bounds for a pool of poolSize candidates.
func (q Quantifier) Satisfies(selectionSize, poolSize int) bool {
	lower, upper := q.Bounds(poolSize)
	return selectionSize >= lower && selectionSize <= upper
}

func (q Quantifier) String() string {
	switch q.Kind {
	case QExactly:
		return fmt.Sprintf("Exactly(%d)", q.N)
	case QAtLeast:
		return fmt.Sprintf("AtLeast(%d)", q.N)
	case QAtMost:
		return fmt.Sprintf("AtMost(%d)", q.N)
	case QRange:
		return fmt.Sprintf("Range(%d,%d)", q.Min, q.Max)
	default:
		return string(q.Kind)
	}
}
