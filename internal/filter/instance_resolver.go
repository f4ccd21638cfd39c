package filter

import "github.com/ourstudio-se/oatdb-go/internal/model"

// InstanceResolver adapts a model.Instance (plus its class name and any
// already-resolved property overrides, e.g. derived/conditional values
// computed during a solve) into a Resolver.
type InstanceResolver struct {
	Instance model.Instance
	ClassName string
	// Resolved overrides Instance.Properties for names present in it —
	// used to feed a conditional property's already-evaluated scalar
	// value back into filter evaluation instead of its RuleSet.
	Resolved map[string]any
}

func (r InstanceResolver) ID() string       { return string(r.Instance.Id) }
func (r InstanceResolver) TypeName() string { return r.ClassName }

func (r InstanceResolver) Property(name string) (any, bool) {
	if r.Resolved != nil {
		if v, ok := r.Resolved[name]; ok {
			return v, true
		}
	}
	if pv, ok := r.Instance.Properties[name]; ok {
		if pv.Kind == model.PVLiteral && pv.Literal != nil {
			return pv.Literal.Value, true
		}
		// A conditional property with no resolved override available
		// means there is nothing a plain filter can do with it — it
		// requires solve-time evaluation (internal/solve's
		// derived-value pass).
		return nil, false
	}
	// A path naming a declared relationship rather than a property gates
	// on the materialized selection's presence: spec.md section 4.8
	// phase 4's Painting example reads {all:["a","b"]} as "the a and b
	// relationships both have a non-empty selection", i.e. $.a/$.b
	// against Instance.Relationships, not Instance.Properties.
	if sel, ok := r.Instance.Relationships[name]; ok {
		ids, _ := sel.StaticIds()
		if len(ids) == 0 {
			return nil, false
		}
		out := make([]any, len(ids))
		for i, id := range ids {
			out[i] = string(id)
		}
		return out, true
	}
	return nil, false
}
