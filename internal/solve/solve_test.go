package solve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ourstudio-se/oatdb-go/internal/ilp"
	"github.com/ourstudio-se/oatdb-go/internal/model"
	"github.com/ourstudio-se/oatdb-go/internal/pool"
)

// carWithWheelsFixture builds a two-class schema (Car -(wheels)-> Wheel)
// where the Car leaves its "wheels" relationship unset, so Prepare must
// fill it from the schema's All default pool and Solve must pin down the
// Exactly(2) quantifier over exactly two candidates (a forced, uniquely
// feasible assignment, so the test stays deterministic without needing
// an objective).
func carWithWheelsFixture() (model.Schema, pool.Universe, model.Id) {
	carClass := model.Id("car-class")
	wheelClass := model.Id("wheel-class")

	schema := model.Schema{
		Id: "schema",
		Classes: []model.ClassDef{
			{
				Id:   wheelClass,
				Name: "Wheel",
				Properties: []model.PropertyDef{
					{Name: "basePrice", DataType: model.TypeNumber},
				},
			},
			{
				Id:   carClass,
				Name: "Car",
				Properties: []model.PropertyDef{
					{Name: "basePrice", DataType: model.TypeNumber},
				},
				Relationships: []model.RelationshipDef{
					{
						Name:        "wheels",
						Targets:     []string{"Wheel"},
						Quantifier:  model.Exactly(2),
						DefaultPool: model.DefaultPool{Kind: model.PoolAll},
					},
				},
				Derived: []model.DerivedDef{
					{Name: "totalPrice", DataType: model.TypeNumber, FnShort: model.MethodSum, Property: "basePrice"},
				},
			},
		},
	}

	carId, w1, w2 := model.Id("car"), model.Id("w1"), model.Id("w2")
	car := model.Instance{
		Id:            carId,
		ClassId:       carClass,
		Properties:    map[string]model.PropertyValue{"basePrice": numberProp(100)},
		Relationships: map[string]model.RelationshipSelection{},
	}
	wheel1 := model.Instance{Id: w1, ClassId: wheelClass, Properties: map[string]model.PropertyValue{"basePrice": numberProp(10)}, Relationships: map[string]model.RelationshipSelection{}}
	wheel2 := model.Instance{Id: w2, ClassId: wheelClass, Properties: map[string]model.PropertyValue{"basePrice": numberProp(15)}, Relationships: map[string]model.RelationshipSelection{}}

	u := pool.NewUniverse([]model.Instance{car, wheel1, wheel2}, schema.Classes)
	return schema, u, carId
}

func TestPrepareFillsDefaultPoolAsUnresolvedEdge(t *testing.T) {
	schema, u, carId := carWithWheelsFixture()
	collected, err := Collect(u, carId)
	require.NoError(t, err)

	meta := &SolveMetadata{}
	prepared, err := Prepare(schema, u, collected, pool.Reject, meta)
	require.NoError(t, err)

	require.Len(t, prepared.Edges, 1)
	edge := prepared.Edges[0]
	require.Equal(t, EdgeUnresolved, edge.Kind)
	require.ElementsMatch(t, []model.Id{"w1", "w2"}, edge.Candidates)
	require.Len(t, prepared.Configuration, 3)
}

func TestSolveResolvesWheelsAndComputesDerivedTotal(t *testing.T) {
	schema, u, carId := carWithWheelsFixture()

	req := Request{
		Schema:          schema,
		Universe:        u,
		TargetId:        carId,
		Policy:          pool.Reject,
		IncludeMetadata: true,
	}

	artifact, err := Solve(context.Background(), ilp.NewBranchAndBoundSolver(), req)
	require.NoError(t, err)

	var car model.Instance
	for _, in := range artifact.Configuration {
		if in.Id == carId {
			car = in
		}
	}
	require.Equal(t, model.RelSimpleIds, car.Relationships["wheels"].Kind)
	require.ElementsMatch(t, []model.Id{"w1", "w2"}, car.Relationships["wheels"].Ids)

	require.InDelta(t, 125.0, artifact.DerivedProperties[carId]["totalPrice"], 0.0001)
	require.NotZero(t, artifact.SolveMetadata.VariableCount)
	require.NotEmpty(t, artifact.SolveMetadata.Timings)
}

func TestSolveMissingTargetReturnsError(t *testing.T) {
	schema, u, _ := carWithWheelsFixture()
	req := Request{Schema: schema, Universe: u, TargetId: "ghost", Policy: pool.Reject}
	_, err := Solve(context.Background(), ilp.NewBranchAndBoundSolver(), req)
	require.Error(t, err)
}

func TestSolveHonorsExtraConstraintCallback(t *testing.T) {
	carClass := model.Id("car-class")
	wheelClass := model.Id("wheel-class")
	schema := model.Schema{Classes: []model.ClassDef{
		{Id: wheelClass, Name: "Wheel", Properties: []model.PropertyDef{{Name: "basePrice", DataType: model.TypeNumber}}},
		{
			Id:   carClass,
			Name: "Car",
			Relationships: []model.RelationshipDef{{
				Name:        "wheels",
				Targets:     []string{"Wheel"},
				Quantifier:  model.Exactly(2),
				DefaultPool: model.DefaultPool{Kind: model.PoolAll},
			}},
		},
	}}
	carId := model.Id("car")
	car := model.Instance{Id: carId, ClassId: carClass, Properties: map[string]model.PropertyValue{}, Relationships: map[string]model.RelationshipSelection{}}
	w1 := model.Instance{Id: "w1", ClassId: wheelClass, Properties: map[string]model.PropertyValue{"basePrice": numberProp(10)}, Relationships: map[string]model.RelationshipSelection{}}
	w2 := model.Instance{Id: "w2", ClassId: wheelClass, Properties: map[string]model.PropertyValue{"basePrice": numberProp(15)}, Relationships: map[string]model.RelationshipSelection{}}
	w3 := model.Instance{Id: "w3", ClassId: wheelClass, Properties: map[string]model.PropertyValue{"basePrice": numberProp(100)}, Relationships: map[string]model.RelationshipSelection{}}

	u := pool.NewUniverse([]model.Instance{car, w1, w2, w3}, schema.Classes)
	req := Request{
		Schema:   schema,
		Universe: u,
		TargetId: carId,
		Policy:   pool.Reject,
		ExtraConstraints: []Constraint{{
			Label:      "budget",
			FieldValue: map[model.Id]float64{"w1": 10, "w2": 15, "w3": 100},
			Op:         ilp.OpLE,
			Bound:      30,
		}},
	}

	artifact, err := Solve(context.Background(), ilp.NewBranchAndBoundSolver(), req)
	require.NoError(t, err)

	var resolvedCar model.Instance
	for _, in := range artifact.Configuration {
		if in.Id == carId {
			resolvedCar = in
		}
	}
	require.ElementsMatch(t, []model.Id{"w1", "w2"}, resolvedCar.Relationships["wheels"].Ids)
}

func TestBatchSolveReusesCollectAndPrepare(t *testing.T) {
	schema, u, carId := carWithWheelsFixture()
	req := Request{Schema: schema, Universe: u, TargetId: carId, Policy: pool.Reject}

	results, err := BatchSolve(context.Background(), ilp.NewBranchAndBoundSolver(), req, map[string]Objectives{
		"default": nil,
	})
	require.NoError(t, err)
	require.Contains(t, results, "default")
	require.InDelta(t, 125.0, results["default"].DerivedProperties[carId]["totalPrice"], 0.0001)
}
