// Package validate implements C10, static validation of an instance (or
// a whole branch) against its schema: class existence, required
// properties, typed-value data types, relationship target/quantifier
// bounds, and conditional-property `when` clause references.
//
// Grounded directly on BeadsLog internal/validation/issue.go's
// IssueValidator/Chain composable-validator pattern — a validator is a
// func(subject) error, and Chain runs a sequence stopping at the first
// error — retargeted from *types.Issue to model.Instance/model.Schema
// and widened to also accumulate warnings rather than only fail fast,
// since spec.md section 4.9 wants a full {valid, errors, warnings}
// report rather than a single first error.
package validate

import (
	"fmt"

	"github.com/ourstudio-se/oatdb-go/internal/model"
	"github.com/ourstudio-se/oatdb-go/internal/pool"
)

// ErrorCategory tags a validation error with the taxonomy from spec.md
// section 4.9.
type ErrorCategory string

const (
	ClassError        ErrorCategory = "class_error"
	PropertyError     ErrorCategory = "property_error"
	TypeError         ErrorCategory = "type_error"
	RelationshipError ErrorCategory = "relationship_error"
	QuantifierError   ErrorCategory = "quantifier_error"
	ReferenceError    ErrorCategory = "reference_error"
)

// Issue is one validation finding, error or warning.
type Issue struct {
	Category   ErrorCategory `json:"category"`
	InstanceId model.Id      `json:"instance_id,omitempty"`
	Field      string        `json:"field,omitempty"`
	Message    string        `json:"message"`
}

func (i Issue) Error() string { return i.Message }

// Report is the outcome of validating one instance or a whole branch.
type Report struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

func (r *Report) fail(issue Issue) {
	r.Valid = false
	r.Errors = append(r.Errors, issue)
}

func (r *Report) warn(issue Issue) {
	r.Warnings = append(r.Warnings, issue)
}

// Validator checks one aspect of an instance against its schema and
// reports findings into rep. Validators are composed with Chain.
type Validator func(schema model.Schema, u pool.Universe, in model.Instance, class model.ClassDef, rep *Report)

// Chain composes validators into one that runs every one of them in
// order — unlike BeadsLog's fail-fast Chain, all findings accumulate
// since a Report wants every error, not just the first.
func Chain(validators ...Validator) Validator {
	return func(schema model.Schema, u pool.Universe, in model.Instance, class model.ClassDef, rep *Report) {
		for _, v := range validators {
			v(schema, u, in, class, rep)
		}
	}
}

// RequiredProperties checks that every PropertyDef marked Required has a
// corresponding entry in the instance's Properties map.
func RequiredProperties() Validator {
	return func(_ model.Schema, _ pool.Universe, in model.Instance, class model.ClassDef, rep *Report) {
		for _, p := range class.Properties {
			if !p.Required {
				continue
			}
			if _, ok := in.Properties[p.Name]; !ok {
				rep.fail(Issue{
					Category:   PropertyError,
					InstanceId: in.Id,
					Field:      p.Name,
					Message:    fmt.Sprintf("instance %s missing required property %q", in.Id, p.Name),
				})
			}
		}
	}
}

// PropertyTypes checks that every literal property value's declared
// DataType matches its PropertyDef, and flags properties the schema
// doesn't declare at all.
func PropertyTypes() Validator {
	return func(_ model.Schema, _ pool.Universe, in model.Instance, class model.ClassDef, rep *Report) {
		for name, pv := range in.Properties {
			def, ok := class.PropertyByName(name)
			if !ok {
				rep.warn(Issue{
					Category:   PropertyError,
					InstanceId: in.Id,
					Field:      name,
					Message:    fmt.Sprintf("instance %s has undeclared property %q", in.Id, name),
				})
				continue
			}
			if pv.Kind != model.PVLiteral || pv.Literal == nil {
				continue // conditional properties are type-checked at derive time, not here
			}
			if pv.Literal.DataType != def.DataType {
				rep.fail(Issue{
					Category:   TypeError,
					InstanceId: in.Id,
					Field:      name,
					Message: fmt.Sprintf("instance %s property %q has type %s, expected %s",
						in.Id, name, pv.Literal.DataType, def.DataType),
				})
			}
		}
	}
}

// RelationshipNames checks that every relationship key the instance
// populates is declared on its class.
func RelationshipNames() Validator {
	return func(_ model.Schema, _ pool.Universe, in model.Instance, class model.ClassDef, rep *Report) {
		for name := range in.Relationships {
			if _, ok := class.RelationshipByName(name); !ok {
				rep.fail(Issue{
					Category:   RelationshipError,
					InstanceId: in.Id,
					Field:      name,
					Message:    fmt.Sprintf("instance %s has undeclared relationship %q", in.Id, name),
				})
			}
		}
	}
}

// RelationshipTargets resolves each declared relationship's selection
// and checks every materialized target both exists and belongs to one of
// the relationship's allowed target classes.
func RelationshipTargets() Validator {
	return func(_ model.Schema, u pool.Universe, in model.Instance, class model.ClassDef, rep *Report) {
		for _, rel := range class.Relationships {
			sel, ok := in.Relationships[rel.Name]
			if !ok {
				continue
			}
			ids, _, err := pool.Resolve(u, rel, sel, pool.AllowWithWarnings)
			if err != nil {
				rep.warn(Issue{
					Category:   RelationshipError,
					InstanceId: in.Id,
					Field:      rel.Name,
					Message:    fmt.Sprintf("instance %s relationship %q could not be resolved: %v", in.Id, rel.Name, err),
				})
				continue
			}
			for _, id := range ids {
				target, ok := u.InstanceByID(id)
				if !ok {
					rep.fail(Issue{
						Category:   ReferenceError,
						InstanceId: in.Id,
						Field:      rel.Name,
						Message:    fmt.Sprintf("instance %s relationship %q references missing instance %s", in.Id, rel.Name, id),
					})
					continue
				}
				className := u.ClassNameById[target.ClassId]
				if !rel.TargetsClass(className) {
					rep.fail(Issue{
						Category:   ReferenceError,
						InstanceId: in.Id,
						Field:      rel.Name,
						Message: fmt.Sprintf("instance %s relationship %q target %s has class %q, not in %v",
							in.Id, rel.Name, id, className, rel.Targets),
					})
				}
			}
		}
	}
}

// QuantifierBounds checks the materialized selection count of every
// declared relationship against its Quantifier's bounds. A relationship
// left unresolved (free variable, to be decided by the solver) is not
// checked here — bounds are enforced at solve time for those.
func QuantifierBounds() Validator {
	return func(_ model.Schema, u pool.Universe, in model.Instance, class model.ClassDef, rep *Report) {
		for _, rel := range class.Relationships {
			sel, ok := in.Relationships[rel.Name]
			if !ok || sel.IsEmpty() {
				continue
			}
			ids, _, err := pool.Resolve(u, rel, sel, pool.AllowWithWarnings)
			if err != nil {
				continue // already reported by RelationshipTargets
			}
			if !inBounds(rel.Quantifier, len(ids)) {
				rep.fail(Issue{
					Category:   QuantifierError,
					InstanceId: in.Id,
					Field:      rel.Name,
					Message: fmt.Sprintf("instance %s relationship %q selects %d, outside quantifier %s",
						in.Id, rel.Name, len(ids), quantifierString(rel.Quantifier)),
				})
			}
		}
	}
}

func inBounds(q model.Quantifier, n int) bool {
	switch q.Kind {
	case model.QExactly:
		return n == q.N
	case model.QAtLeast:
		return n >= q.N
	case model.QAtMost:
		return n <= q.N
	case model.QRange:
		return n >= q.Min && n <= q.Max
	case model.QOptional:
		return n <= 1
	case model.QAny:
		return n >= 1
	case model.QAll:
		return true // bound is pool-size dependent; checked by the solver, not statically here
	default:
		return true
	}
}

func quantifierString(q model.Quantifier) string {
	switch q.Kind {
	case model.QExactly:
		return fmt.Sprintf("exactly(%d)", q.N)
	case model.QAtLeast:
		return fmt.Sprintf("at_least(%d)", q.N)
	case model.QAtMost:
		return fmt.Sprintf("at_most(%d)", q.N)
	case model.QRange:
		return fmt.Sprintf("range(%d,%d)", q.Min, q.Max)
	default:
		return string(q.Kind)
	}
}

// ConditionalPropertyReferences checks that every Conditional property's
// RuleSet.Rules[i].When references only relationship names declared on
// the class — spec.md section 9's "validation does not evaluate
// conditionals; it only checks referenced names" note. Evaluation of the
// conditional itself happens in the solve pipeline's derived phase, once
// a concrete selection exists.
func ConditionalPropertyReferences() Validator {
	return func(_ model.Schema, _ pool.Universe, in model.Instance, class model.ClassDef, rep *Report) {
		for name, pv := range in.Properties {
			if pv.Kind != model.PVConditional || pv.Conditional == nil {
				continue
			}
			for _, rule := range pv.Conditional.Rules {
				walkExprRelationshipNames(rule.When, func(relName string) {
					if _, ok := class.RelationshipByName(relName); !ok {
						rep.fail(Issue{
							Category:   RelationshipError,
							InstanceId: in.Id,
							Field:      name,
							Message: fmt.Sprintf("instance %s conditional property %q references undeclared relationship %q",
								in.Id, name, relName),
						})
					}
				})
			}
		}
	}
}

// walkExprRelationshipNames visits every leaf predicate's Path of a
// BoolExpr tree; a path of the form "$.<name>" not matching the
// reserved __id/__type paths is treated as a relationship reference for
// the purposes of conditional-property `when` clauses (spec.md section
// 5's Painting example gates on relationship presence, e.g. $.a).
func walkExprRelationshipNames(e model.BoolExpr, visit func(string)) {
	switch e.Kind {
	case model.ExprAll, model.ExprAny, model.ExprNot:
		for _, c := range e.Children {
			walkExprRelationshipNames(c, visit)
		}
	case model.ExprLeaf:
		if e.Leaf == nil {
			return
		}
		path := e.Leaf.Path
		if path == model.PathId || path == model.PathType || len(path) < 3 || path[:2] != "$." {
			return
		}
		visit(path[2:])
	}
}

// ForInstance returns the standard validator chain used by
// ValidateInstance.
func ForInstance() Validator {
	return Chain(
		RequiredProperties(),
		PropertyTypes(),
		RelationshipNames(),
		RelationshipTargets(),
		QuantifierBounds(),
		ConditionalPropertyReferences(),
	)
}

// ValidateInstance validates a single instance against schema, resolving
// relationships against the given universe (ordinarily every instance in
// the same commit or working commit).
func ValidateInstance(schema model.Schema, u pool.Universe, in model.Instance) Report {
	rep := Report{Valid: true}
	class, ok := schema.ClassById(in.ClassId)
	if !ok {
		rep.fail(Issue{
			Category:   ClassError,
			InstanceId: in.Id,
			Message:    fmt.Sprintf("instance %s references unknown class %s", in.Id, in.ClassId),
		})
		return rep
	}
	ForInstance()(schema, u, in, class, &rep)
	return rep
}

// ValidateBranch validates every instance in a CommitData payload and
// aggregates the results (spec.md section 4.9's validate_branch).
func ValidateBranch(data model.CommitData) Report {
	u := pool.NewUniverse(data.Instances, data.Schema.Classes)
	agg := Report{Valid: true}
	for _, in := range data.Instances {
		r := ValidateInstance(data.Schema, u, in)
		if !r.Valid {
			agg.Valid = false
		}
		agg.Errors = append(agg.Errors, r.Errors...)
		agg.Warnings = append(agg.Warnings, r.Warnings...)
	}
	return agg
}

// Monotonic is a documentation-and-test helper asserting the invariant
// from spec.md section 8 item 8: removing an invalid instance from a
// branch's instance set never decreases the remaining set's validity.
// Exposed so internal/solve and callers can assert it in tests without
// re-deriving the Report diff logic.
func Monotonic(before, after Report) bool {
	return len(after.Errors) <= len(before.Errors)
}
