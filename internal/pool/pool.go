// Package pool implements C8: resolving a relationship's effective
// candidate pool (schema default pool intersected with any instance
// override filter) and materializing a concrete selection of instance
// ids from it.
//
// New code — BeadsLog has no pool/selector concept. The
// static-ids-vs-dynamic-filter selection shape is grounded on
// original_source/src/model/selector.rs's Selector (ResolutionMode::
// Static with materialized_ids vs ::Dynamic with a filter), mapped here
// onto model.SelectionSpec's Ids/Filter/All/Unresolved kinds.
package pool

import (
	"github.com/ourstudio-se/oatdb-go/internal/apperr"
	"github.com/ourstudio-se/oatdb-go/internal/filter"
	"github.com/ourstudio-se/oatdb-go/internal/model"
)

// Universe is the set of instances and class names a pool resolves
// against — ordinarily a branch's full instance set at the commit or
// working-commit being evaluated.
type Universe struct {
	Instances     []model.Instance
	ClassNameById map[model.Id]string
}

func NewUniverse(instances []model.Instance, classes []model.ClassDef) Universe {
	names := make(map[model.Id]string, len(classes))
	for _, c := range classes {
		names[c.Id] = c.Name
	}
	return Universe{Instances: instances, ClassNameById: names}
}

func (u Universe) className(in model.Instance) string {
	return u.ClassNameById[in.ClassId]
}

func (u Universe) resolverFor(in model.Instance) filter.InstanceResolver {
	return filter.InstanceResolver{Instance: in, ClassName: u.className(in)}
}

// CrossBranchPolicy governs how Materialize treats a statically-named id
// that does not appear in Universe — e.g. a relationship selection
// carried over from a branch where the referenced instance has since
// been deleted, or that was never present on the branch being evaluated
// (spec.md section 4.7).
type CrossBranchPolicy int

const (
	// Reject fails the resolution outright.
	Reject CrossBranchPolicy = iota
	// AllowWithWarnings keeps the id and reports it via the warnings
	// return value.
	AllowWithWarnings
	// Allow keeps the id silently.
	Allow
)

// DefaultPoolIds resolves a schema-declared DefaultPool against targets,
// ignoring any instance-level override.
func DefaultPoolIds(u Universe, targets []string, dp model.DefaultPool) ([]model.Id, error) {
	targetSet := make(map[string]bool, len(targets))
	for _, t := range targets {
		targetSet[t] = true
	}

	switch dp.Kind {
	case model.PoolNone:
		return nil, nil
	case model.PoolAll:
		var ids []model.Id
		for _, in := range u.Instances {
			if targetSet[u.className(in)] {
				ids = append(ids, in.Id)
			}
		}
		return ids, nil
	case model.PoolFilter:
		if dp.Filter == nil {
			return nil, apperr.New(apperr.Validation, "default pool kind=filter requires a filter expression")
		}
		var ids []model.Id
		for _, in := range u.Instances {
			if !targetSet[u.className(in)] {
				continue
			}
			ok, err := filter.Evaluate(*dp.Filter, u.resolverFor(in))
			if err != nil {
				return nil, err
			}
			if ok {
				ids = append(ids, in.Id)
			}
		}
		return ids, nil
	default:
		return nil, apperr.New(apperr.Validation, "unknown default pool kind %q", dp.Kind)
	}
}

// EffectivePool intersects the schema default pool with an optional
// instance-level override filter (spec.md section 4.7: "schema default
// pool ∩ instance override"). A nil override leaves the default pool
// unchanged.
func EffectivePool(u Universe, rel model.RelationshipDef, override *model.InstanceFilter) ([]model.Id, error) {
	defaultIds, err := DefaultPoolIds(u, rel.Targets, rel.DefaultPool)
	if err != nil {
		return nil, err
	}
	if override == nil {
		return defaultIds, nil
	}

	byId := u.byId()
	var out []model.Id
	for _, id := range defaultIds {
		in, ok := byId[id]
		if !ok {
			continue
		}
		pass, err := filter.Evaluate(*override, u.resolverFor(in))
		if err != nil {
			return nil, err
		}
		if pass {
			out = append(out, id)
		}
	}
	return out, nil
}

// InstanceByID looks up an instance by id, for callers (e.g. internal/solve)
// that walk the universe outside of pool resolution itself.
func (u Universe) InstanceByID(id model.Id) (model.Instance, bool) {
	in, ok := u.byId()[id]
	return in, ok
}

func (u Universe) byId() map[model.Id]model.Instance {
	m := make(map[model.Id]model.Instance, len(u.Instances))
	for _, in := range u.Instances {
		m[in.Id] = in
	}
	return m
}

// Materialize resolves a RelationshipSelection's SelectionSpec against
// an already-computed effective pool into a concrete id list.
func Materialize(u Universe, effectivePool []model.Id, spec model.SelectionSpec, policy CrossBranchPolicy) ([]model.Id, []string, error) {
	poolSet := make(map[model.Id]bool, len(effectivePool))
	for _, id := range effectivePool {
		poolSet[id] = true
	}

	switch spec.Kind {
	case model.SpecAll:
		return effectivePool, nil, nil

	case model.SpecIds:
		var warnings []string
		var out []model.Id
		for _, id := range spec.Ids {
			if poolSet[id] {
				out = append(out, id)
				continue
			}
			switch policy {
			case Reject:
				return nil, nil, apperr.New(apperr.Conflict, "instance %s is not a member of the resolved pool", id)
			case AllowWithWarnings:
				warnings = append(warnings, "instance "+string(id)+" is outside the resolved pool")
				out = append(out, id)
			case Allow:
				out = append(out, id)
			}
		}
		return out, warnings, nil

	case model.SpecFilter:
		if spec.Filter == nil {
			return nil, nil, apperr.New(apperr.Validation, "selection kind=filter requires a filter expression")
		}
		byId := u.byId()
		var out []model.Id
		for _, id := range effectivePool {
			in, ok := byId[id]
			if !ok {
				continue
			}
			pass, err := filter.Evaluate(*spec.Filter, u.resolverFor(in))
			if err != nil {
				return nil, nil, err
			}
			if pass {
				out = append(out, id)
			}
		}
		return out, nil, nil

	case model.SpecUnresolved:
		return nil, nil, nil

	default:
		return nil, nil, apperr.New(apperr.Validation, "unknown selection spec kind %q", spec.Kind)
	}
}

// Resolve is the end-to-end convenience path: schema default pool ∩
// instance override, then materialize the relationship's own selection
// against the result.
func Resolve(u Universe, rel model.RelationshipDef, sel model.RelationshipSelection, policy CrossBranchPolicy) ([]model.Id, []string, error) {
	if sel.Kind != model.RelPoolBased || sel.Spec == nil {
		return nil, nil, apperr.New(apperr.Validation, "Resolve requires a pool_based selection with a selection spec")
	}
	effective, err := EffectivePool(u, rel, sel.Pool)
	if err != nil {
		return nil, nil, err
	}
	return Materialize(u, effective, *sel.Spec, policy)
}
