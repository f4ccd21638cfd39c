package model

// Domain is an instance's integer range. A solved instance has
// Lower == Upper.
type Domain struct {
	Lower int32 `json:"lower"`
	Upper int32 `json:"upper"`
}

// Binary is the {0,1} domain assigned to relationship-selection
// variables and to any instance with no class-level domain constraint.
func Binary() Domain { return Domain{Lower: 0, Upper: 1} }

// Constant is a fully solved domain pinned to v.
func Constant(v int32) Domain { return Domain{Lower: v, Upper: v} }

// Solved reports whether the domain has collapsed to a single value.
func (d Domain) Solved() bool { return d.Lower == d.Upper }
