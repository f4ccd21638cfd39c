package solve

import (
	"context"
	"fmt"
	"math"

	"github.com/ourstudio-se/oatdb-go/internal/apperr"
	"github.com/ourstudio-se/oatdb-go/internal/ilp"
	"github.com/ourstudio-se/oatdb-go/internal/model"
)

// weightScale converts the spec's floating-point objective/constraint
// weights into the fixed-point integers internal/ilp's branch-and-bound
// solver operates on. Three decimal digits of precision is enough for
// the cost/weight magnitudes a configuration solve deals with; this is a
// deliberate scope reduction rather than extending ilp.Term to carry a
// float coefficient.
const weightScale = 1000.0

func scaleWeight(w float64) int32 {
	return int32(math.Round(w * weightScale))
}

func selectionVarId(instanceId model.Id, relName string, candidateId model.Id) ilp.VarId {
	return ilp.VarId(fmt.Sprintf("sel:%s:%s:%s", instanceId, relName, candidateId))
}

func domainVarId(instanceId model.Id) ilp.VarId {
	return ilp.VarId("dom:" + string(instanceId))
}

// runSolve compiles the Edges Prepare left unresolved, plus any instance
// whose domain hasn't already collapsed to a single value, into an
// ilp.Problem (spec.md section 4.8 phase 3), solves it, and projects the
// result back onto prepared.Configuration (phase 3, "Projection"). An
// infeasible solve is not fatal: per spec.md phase 3 item 6 it is
// recorded as a warning and domains are left at their prepared values.
func runSolve(ctx context.Context, solver ilp.Solver, prepared PrepareResult, objectives Objectives, extra []Constraint, meta *SolveMetadata) error {
	var variables []ilp.Variable
	var constraints []ilp.Constraint
	selectionVarsByCandidate := map[model.Id][]ilp.VarId{}
	domainVarByInstance := map[model.Id]ilp.VarId{}

	for _, edge := range prepared.Edges {
		if edge.Kind != EdgeUnresolved {
			continue
		}
		var terms []ilp.Term
		for _, cid := range edge.Candidates {
			vid := selectionVarId(edge.InstanceId, edge.RelName, cid)
			variables = append(variables, ilp.Variable{Id: vid, Lower: 0, Upper: 1})
			selectionVarsByCandidate[cid] = append(selectionVarsByCandidate[cid], vid)
			terms = append(terms, ilp.Term{Var: vid, Coeff: 1})
		}
		lower, upper := edge.Quantifier.Bounds(len(edge.Candidates))
		label := fmt.Sprintf("%s.%s", edge.InstanceId, edge.RelName)
		switch {
		case lower == upper:
			constraints = append(constraints, ilp.Constraint{Label: label, Terms: terms, Op: ilp.OpEq, RHS: int32(lower)})
		default:
			if lower > 0 {
				constraints = append(constraints, ilp.Constraint{Label: label + ".min", Terms: terms, Op: ilp.OpGE, RHS: int32(lower)})
			}
			if upper < len(edge.Candidates) {
				constraints = append(constraints, ilp.Constraint{Label: label + ".max", Terms: terms, Op: ilp.OpLE, RHS: int32(upper)})
			}
		}
	}

	for id, in := range prepared.Configuration {
		if in.Domain == nil || in.Domain.Solved() {
			continue
		}
		vid := domainVarId(id)
		variables = append(variables, ilp.Variable{Id: vid, Lower: in.Domain.Lower, Upper: in.Domain.Upper})
		domainVarByInstance[id] = vid
	}

	if len(variables) == 0 {
		// Nothing left for the solver to decide; every relationship
		// materialized deterministically and every domain already collapsed.
		return nil
	}

	var objTerms []ilp.Term
	for id, weight := range objectives {
		coeff := scaleWeight(weight)
		if vid, ok := domainVarByInstance[id]; ok {
			objTerms = append(objTerms, ilp.Term{Var: vid, Coeff: coeff})
		}
		for _, vid := range selectionVarsByCandidate[id] {
			objTerms = append(objTerms, ilp.Term{Var: vid, Coeff: coeff})
		}
	}
	var objective *ilp.Objective
	if len(objTerms) > 0 {
		objective = &ilp.Objective{Terms: objTerms, Minimize: true}
	}

	for _, c := range extra {
		var terms []ilp.Term
		for id, weight := range c.FieldValue {
			coeff := scaleWeight(weight)
			if vid, ok := domainVarByInstance[id]; ok {
				terms = append(terms, ilp.Term{Var: vid, Coeff: coeff})
			}
			for _, vid := range selectionVarsByCandidate[id] {
				terms = append(terms, ilp.Term{Var: vid, Coeff: coeff})
			}
		}
		if len(terms) == 0 {
			continue
		}
		constraints = append(constraints, ilp.Constraint{Label: c.Label, Terms: terms, Op: c.Op, RHS: scaleWeight(c.Bound)})
	}

	problem := ilp.Problem{Variables: variables, Constraints: constraints, Objective: objective}
	meta.VariableCount += len(variables)
	meta.ConstraintCount += len(constraints)

	solution, err := solver.Solve(ctx, problem)
	if err != nil {
		if apperr.KindOf(err) == apperr.SolverInfeasible {
			meta.addIssue(PhaseSolve, SeverityWarning, "solve produced no feasible assignment; domains left at prepared values")
			return nil
		}
		return err
	}
	meta.NodesExplored += solution.NodesExplored

	for id, vid := range domainVarByInstance {
		v := solution.Values[vid]
		in := prepared.Configuration[id]
		in.Domain = &model.Domain{Lower: v, Upper: v}
		prepared.Configuration[id] = in
	}

	for _, edge := range prepared.Edges {
		if edge.Kind != EdgeUnresolved {
			continue
		}
		var selected []model.Id
		for _, cid := range edge.Candidates {
			vid := selectionVarId(edge.InstanceId, edge.RelName, cid)
			if solution.Values[vid] == 1 {
				selected = append(selected, cid)
			}
		}
		in := prepared.Configuration[edge.InstanceId]
		in.Relationships[edge.RelName] = model.RelationshipSelection{Kind: model.RelSimpleIds, Ids: selected}
		prepared.Configuration[edge.InstanceId] = in
	}

	return nil
}
