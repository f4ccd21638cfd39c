package solve

import (
	"github.com/ourstudio-se/oatdb-go/internal/model"
	"github.com/ourstudio-se/oatdb-go/internal/pool"
)

// EdgeKind discriminates a prepared relationship edge: Fixed means it
// materialized to a concrete id list, Unresolved means its pool
// candidates still need an ILP selection variable per quantifier bounds.
type EdgeKind string

const (
	EdgeFixed      EdgeKind = "fixed"
	EdgeUnresolved EdgeKind = "unresolved"
)

// Edge is one relationship slot Prepare examined on one instance.
type Edge struct {
	InstanceId model.Id
	RelName    string
	Quantifier model.Quantifier
	Kind       EdgeKind
	FixedIds   []model.Id // Kind == EdgeFixed
	Candidates []model.Id // Kind == EdgeUnresolved: the effective pool
}

// PrepareResult is phase 2's output: the (possibly grown) configuration
// with every instance given a domain and every relationship either
// materialized or turned into an Edge awaiting solve.
type PrepareResult struct {
	Configuration map[model.Id]model.Instance
	Order         []model.Id
	Edges         []Edge
}

// Clone deep-copies the instance map so BatchSolve can run an independent
// Solve+Derived pass per objective set without the runs clobbering each
// other's projected domains.
func (p PrepareResult) Clone() PrepareResult {
	cfg := make(map[model.Id]model.Instance, len(p.Configuration))
	for id, in := range p.Configuration {
		cfg[id] = in.Clone()
	}
	return PrepareResult{
		Configuration: cfg,
		Order:         append([]model.Id(nil), p.Order...),
		Edges:         append([]Edge(nil), p.Edges...),
	}
}

// Prepare runs spec.md section 4.8 phase 2: assign domains, fill empty
// relationships from schema defaults, materialize everything C8 can
// resolve deterministically, and record what's left as Edges for Solve.
// Materialization errors are downgraded to warnings on meta; the
// offending relationship becomes empty rather than aborting the solve.
func Prepare(schema model.Schema, u pool.Universe, collected CollectResult, policy pool.CrossBranchPolicy, meta *SolveMetadata) (PrepareResult, error) {
	configuration := make(map[model.Id]model.Instance, len(collected.Configuration))
	for id, in := range collected.Configuration {
		configuration[id] = in.Clone()
	}
	order := append([]model.Id(nil), collected.Order...)
	var edges []Edge

	processed := make(map[model.Id]bool, len(order))
	pending := append([]model.Id(nil), order...)

	for len(pending) > 0 {
		id := pending[0]
		pending = pending[1:]
		if processed[id] {
			continue
		}
		processed[id] = true

		in := configuration[id]
		class, ok := schema.ClassById(in.ClassId)
		if !ok {
			meta.addIssue(PhasePrepare, SeverityWarning, "instance %s references unknown class %s", id, in.ClassId)
			continue
		}

		if in.Domain == nil {
			d := model.Binary()
			if class.DomainConstraint != nil {
				d = *class.DomainConstraint
			}
			in.Domain = &d
		}

		addInstance := func(childId model.Id) {
			if _, ok := configuration[childId]; ok {
				return
			}
			child, ok := u.InstanceByID(childId)
			if !ok {
				return
			}
			configuration[childId] = child.Clone()
			order = append(order, childId)
			pending = append(pending, childId)
		}

		for _, relDef := range class.Relationships {
			sel := in.Relationships[relDef.Name]
			if sel.IsEmpty() {
				sel = model.RelationshipSelection{Kind: model.RelPoolBased, Spec: &model.SelectionSpec{Kind: model.SpecUnresolved}}
			}
			in.Relationships[relDef.Name] = sel

			var override *model.InstanceFilter
			if sel.Kind == model.RelPoolBased {
				override = sel.Pool
			}
			effective, err := pool.EffectivePool(u, relDef, override)
			if err != nil {
				meta.addIssue(PhasePrepare, SeverityWarning, "relationship %q on %s: %v", relDef.Name, id, err)
				in.Relationships[relDef.Name] = model.RelationshipSelection{Kind: model.RelSimpleIds}
				continue
			}

			spec := toSpec(sel)
			if spec.Kind == model.SpecUnresolved {
				if len(effective) == 0 {
					in.Relationships[relDef.Name] = model.RelationshipSelection{Kind: model.RelSimpleIds}
					continue
				}
				edges = append(edges, Edge{
					InstanceId: id,
					RelName:    relDef.Name,
					Quantifier: relDef.Quantifier,
					Kind:       EdgeUnresolved,
					Candidates: effective,
				})
				for _, cid := range effective {
					addInstance(cid)
				}
				continue
			}

			ids, warnings, err := pool.Materialize(u, effective, spec, policy)
			if err != nil {
				meta.addIssue(PhasePrepare, SeverityWarning, "relationship %q on %s: %v", relDef.Name, id, err)
				in.Relationships[relDef.Name] = model.RelationshipSelection{Kind: model.RelSimpleIds}
				continue
			}
			for _, w := range warnings {
				meta.addIssue(PhasePrepare, SeverityWarning, "relationship %q on %s: %s", relDef.Name, id, w)
			}

			in.Relationships[relDef.Name] = model.RelationshipSelection{Kind: model.RelSimpleIds, Ids: ids}
			edges = append(edges, Edge{InstanceId: id, RelName: relDef.Name, Quantifier: relDef.Quantifier, Kind: EdgeFixed, FixedIds: ids})
			for _, cid := range ids {
				addInstance(cid)
			}
		}

		configuration[id] = in
	}

	return PrepareResult{Configuration: configuration, Order: order, Edges: edges}, nil
}

// toSpec maps every RelationshipSelection variant onto the SelectionSpec
// shape C8 materializes against, so Prepare only needs one code path
// regardless of which of the five selection kinds an instance used
// (spec.md section 4.7: the simple variants behave as if nested inside
// an unoverridden PoolBased selection).
func toSpec(sel model.RelationshipSelection) model.SelectionSpec {
	switch sel.Kind {
	case model.RelSimpleIds, model.RelIds:
		return model.SelectionSpec{Kind: model.SpecIds, Ids: sel.Ids}
	case model.RelFilter:
		return model.SelectionSpec{Kind: model.SpecFilter, Filter: sel.Filter}
	case model.RelAll:
		return model.SelectionSpec{Kind: model.SpecAll}
	case model.RelPoolBased:
		if sel.Spec != nil {
			return *sel.Spec
		}
		return model.SelectionSpec{Kind: model.SpecUnresolved}
	default:
		return model.SelectionSpec{Kind: model.SpecUnresolved}
	}
}
