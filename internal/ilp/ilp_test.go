package ilp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSolveFindsFeasibleAssignment(t *testing.T) {
	p := Problem{
		Variables: []Variable{
			{Id: "a", Lower: 0, Upper: 1},
			{Id: "b", Lower: 0, Upper: 1},
			{Id: "c", Lower: 0, Upper: 1},
		},
		Constraints: []Constraint{
			{Label: "exactly-two", Terms: []Term{{Var: "a", Coeff: 1}, {Var: "b", Coeff: 1}, {Var: "c", Coeff: 1}}, Op: OpEq, RHS: 2},
		},
	}
	sol, err := NewBranchAndBoundSolver().Solve(context.Background(), p)
	require.NoError(t, err)
	require.True(t, sol.Feasible)
	var sum int32
	for _, v := range sol.Values {
		sum += v
	}
	require.Equal(t, int32(2), sum)
}

func TestSolveReturnsInfeasibleError(t *testing.T) {
	p := Problem{
		Variables: []Variable{{Id: "a", Lower: 0, Upper: 1}},
		Constraints: []Constraint{
			{Label: "too-big", Terms: []Term{{Var: "a", Coeff: 1}}, Op: OpGE, RHS: 5},
		},
	}
	_, err := NewBranchAndBoundSolver().Solve(context.Background(), p)
	require.Error(t, err)
}

func TestSolveOptimizesObjective(t *testing.T) {
	p := Problem{
		Variables: []Variable{
			{Id: "a", Lower: 0, Upper: 1},
			{Id: "b", Lower: 0, Upper: 1},
		},
		Constraints: []Constraint{
			{Label: "at-most-one", Terms: []Term{{Var: "a", Coeff: 1}, {Var: "b", Coeff: 1}}, Op: OpLE, RHS: 1},
		},
		Objective: &Objective{
			Terms:    []Term{{Var: "a", Coeff: 3}, {Var: "b", Coeff: 5}},
			Minimize: false,
		},
	}
	sol, err := NewBranchAndBoundSolver().Solve(context.Background(), p)
	require.NoError(t, err)
	require.True(t, sol.Feasible)
	require.Equal(t, int32(5), sol.ObjectiveValue)
	require.Equal(t, int32(1), sol.Values["b"])
	require.Equal(t, int32(0), sol.Values["a"])
}

func TestValidateRejectsUnknownVariableReference(t *testing.T) {
	p := Problem{
		Variables:   []Variable{{Id: "a", Lower: 0, Upper: 1}},
		Constraints: []Constraint{{Label: "bad", Terms: []Term{{Var: "ghost", Coeff: 1}}, Op: OpLE, RHS: 1}},
	}
	_, err := NewBranchAndBoundSolver().Solve(context.Background(), p)
	require.Error(t, err)
}
