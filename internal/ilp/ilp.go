// Package ilp is the integer-linear solver contract C9's Solve phase
// compiles a configuration problem down to, plus a reference
// branch-and-bound implementation.
//
// Stdlib-only by necessity, not preference: no example repo in the
// corpus (nor BeadsLog) imports an ILP/SAT/CP library — see DESIGN.md's
// entry for this package for the full justification. The branch-and-
// bound shape (order variables, prune on partial bound infeasibility,
// keep the best feasible assignment) is the standard textbook algorithm
// for small integer programs; it is not adapted from any corpus file.
package ilp

import (
	"context"
	"errors"
	"sort"

	"github.com/ourstudio-se/oatdb-go/internal/apperr"
)

// VarId names one integer decision variable.
type VarId string

// Variable is one bounded integer decision variable, inclusive on both
// ends. A [0,1] variable represents a boolean selection indicator.
type Variable struct {
	Id    VarId
	Lower int32
	Upper int32
}

// CompareOp is the relational operator a Constraint enforces between its
// weighted term sum and RHS.
type CompareOp string

const (
	OpLE CompareOp = "le"
	OpGE CompareOp = "ge"
	OpEq CompareOp = "eq"
)

// Term is one coefficient*variable addend of a linear expression.
type Term struct {
	Var   VarId
	Coeff int32
}

// Constraint enforces sum(Terms) Op RHS.
type Constraint struct {
	Label string
	Terms []Term
	Op    CompareOp
	RHS   int32
}

// Objective is an optional linear function to minimize or maximize over
// a feasible solution. A Problem without an Objective only needs a
// single feasible assignment; Solve returns the first one found.
type Objective struct {
	Terms    []Term
	Minimize bool
}

// Problem is a complete integer program: variables, the constraints
// every solution must satisfy, and an optional objective.
type Problem struct {
	Variables   []Variable
	Constraints []Constraint
	Objective   *Objective
}

// Solution is a satisfying (and, if Problem.Objective was set, optimal)
// assignment.
type Solution struct {
	Values         map[VarId]int32
	ObjectiveValue int32
	Feasible       bool
	NodesExplored  int
}

// Solver solves a Problem.
type Solver interface {
	Solve(ctx context.Context, p Problem) (Solution, error)
}

// BranchAndBoundSolver is a depth-first branch-and-bound solver over
// bounded integer variables, with bound-propagation pruning on partial
// assignments. Suitable for the variable counts a single configuration
// solve produces (one variable per candidate instance/relationship
// edge); not intended for large-scale combinatorial optimization.
type BranchAndBoundSolver struct {
	// MaxNodes bounds the search tree to guarantee termination on a
	// pathological problem; exceeding it surfaces as a SolverTimeout
	// error rather than hanging.
	MaxNodes int
}

func NewBranchAndBoundSolver() *BranchAndBoundSolver {
	return &BranchAndBoundSolver{MaxNodes: 2_000_000}
}

var errStopSearch = errors.New("ilp: first feasible solution found")

// Solve searches for a feasible (optimal, if Problem.Objective is set)
// assignment.
func (s *BranchAndBoundSolver) Solve(ctx context.Context, p Problem) (Solution, error) {
	if err := validate(p); err != nil {
		return Solution{}, err
	}

	order := make([]Variable, len(p.Variables))
	copy(order, p.Variables)
	sort.Slice(order, func(i, j int) bool { return order[i].Id < order[j].Id })

	bounds := make(map[VarId][2]int32, len(order))
	for _, v := range order {
		bounds[v.Id] = [2]int32{v.Lower, v.Upper}
	}

	var best Solution
	haveBest := false
	nodes := 0
	maxNodes := s.MaxNodes
	if maxNodes <= 0 {
		maxNodes = 2_000_000
	}

	assigned := make(map[VarId]int32, len(order))

	var recurse func(idx int) error
	recurse = func(idx int) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		nodes++
		if nodes > maxNodes {
			return apperr.New(apperr.KindSolverTimeout, "exceeded %d search nodes", maxNodes)
		}

		for _, c := range p.Constraints {
			if !partiallyFeasible(c, assigned, bounds) {
				return nil
			}
		}

		if idx == len(order) {
			for _, c := range p.Constraints {
				if !constraintHolds(c, assigned) {
					return nil
				}
			}
			objVal := evalObjective(p.Objective, assigned)
			if p.Objective == nil {
				best = cloneSolution(assigned, objVal)
				haveBest = true
				return errStopSearch
			}
			if !haveBest || better(objVal, best.ObjectiveValue, p.Objective.Minimize) {
				best = cloneSolution(assigned, objVal)
				haveBest = true
			}
			return nil
		}

		v := order[idx]
		for val := v.Lower; val <= v.Upper; val++ {
			assigned[v.Id] = val
			err := recurse(idx + 1)
			delete(assigned, v.Id)
			if err != nil {
				return err
			}
		}
		return nil
	}

	err := recurse(0)
	if err != nil && !errors.Is(err, errStopSearch) {
		return Solution{}, err
	}
	if !haveBest {
		return Solution{Feasible: false, NodesExplored: nodes}, apperr.New(apperr.KindSolverInfeasible, "no assignment satisfies all constraints")
	}
	best.Feasible = true
	best.NodesExplored = nodes
	return best, nil
}

// partiallyFeasible reports whether c can still possibly hold given the
// variables assigned so far, using each unassigned variable's bounds to
// compute the best- and worst-case contribution.
func partiallyFeasible(c Constraint, assigned map[VarId]int32, bounds map[VarId][2]int32) bool {
	var lo, hi int64
	for _, t := range c.Terms {
		if v, ok := assigned[t.Var]; ok {
			contrib := int64(t.Coeff) * int64(v)
			lo += contrib
			hi += contrib
			continue
		}
		b := bounds[t.Var]
		a := int64(t.Coeff) * int64(b[0])
		z := int64(t.Coeff) * int64(b[1])
		if a > z {
			a, z = z, a
		}
		lo += a
		hi += z
	}
	switch c.Op {
	case OpLE:
		return lo <= int64(c.RHS)
	case OpGE:
		return hi >= int64(c.RHS)
	case OpEq:
		return lo <= int64(c.RHS) && hi >= int64(c.RHS)
	default:
		return true
	}
}

func constraintHolds(c Constraint, assigned map[VarId]int32) bool {
	var sum int64
	for _, t := range c.Terms {
		sum += int64(t.Coeff) * int64(assigned[t.Var])
	}
	switch c.Op {
	case OpLE:
		return sum <= int64(c.RHS)
	case OpGE:
		return sum >= int64(c.RHS)
	case OpEq:
		return sum == int64(c.RHS)
	default:
		return false
	}
}

func evalObjective(o *Objective, assigned map[VarId]int32) int32 {
	if o == nil {
		return 0
	}
	var sum int64
	for _, t := range o.Terms {
		sum += int64(t.Coeff) * int64(assigned[t.Var])
	}
	return int32(sum)
}

func better(a, b int32, minimize bool) bool {
	if minimize {
		return a < b
	}
	return a > b
}

func cloneSolution(assigned map[VarId]int32, objVal int32) Solution {
	out := make(map[VarId]int32, len(assigned))
	for k, v := range assigned {
		out[k] = v
	}
	return Solution{Values: out, ObjectiveValue: objVal}
}

func validate(p Problem) error {
	seen := make(map[VarId]bool, len(p.Variables))
	for _, v := range p.Variables {
		if seen[v.Id] {
			return apperr.New(apperr.KindValidation, "duplicate variable id %s", v.Id)
		}
		seen[v.Id] = true
		if v.Lower > v.Upper {
			return apperr.New(apperr.KindValidation, "variable %s has empty domain [%d,%d]", v.Id, v.Lower, v.Upper)
		}
	}
	for _, c := range p.Constraints {
		for _, t := range c.Terms {
			if !seen[t.Var] {
				return apperr.New(apperr.KindValidation, "constraint %q references unknown variable %s", c.Label, t.Var)
			}
		}
	}
	return nil
}
