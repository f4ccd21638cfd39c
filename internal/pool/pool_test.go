package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ourstudio-se/oatdb-go/internal/model"
)

func widget(id model.Id, classId model.Id, price float64) model.Instance {
	return model.Instance{
		Id:      id,
		ClassId: classId,
		Properties: map[string]model.PropertyValue{
			"price": model.LiteralValue(price, model.TypeNumber),
		},
		Relationships: map[string]model.RelationshipSelection{},
	}
}

func TestDefaultPoolIdsAllKind(t *testing.T) {
	widgetClass := model.Id("widget")
	u := NewUniverse(
		[]model.Instance{widget("w1", widgetClass, 1), widget("w2", widgetClass, 2)},
		[]model.ClassDef{{Id: widgetClass, Name: "Widget"}},
	)

	ids, err := DefaultPoolIds(u, []string{"Widget"}, model.DefaultPool{Kind: model.PoolAll})
	require.NoError(t, err)
	require.ElementsMatch(t, []model.Id{"w1", "w2"}, ids)
}

func TestDefaultPoolIdsFilterKind(t *testing.T) {
	widgetClass := model.Id("widget")
	u := NewUniverse(
		[]model.Instance{widget("w1", widgetClass, 1), widget("w2", widgetClass, 9)},
		[]model.ClassDef{{Id: widgetClass, Name: "Widget"}},
	)
	f := model.Leaf(model.Predicate{Path: "$.price", Op: model.OpGte, Value: 5.0})

	ids, err := DefaultPoolIds(u, []string{"Widget"}, model.DefaultPool{Kind: model.PoolFilter, Filter: &f})
	require.NoError(t, err)
	require.Equal(t, []model.Id{"w2"}, ids)
}

func TestEffectivePoolIntersectsOverride(t *testing.T) {
	widgetClass := model.Id("widget")
	u := NewUniverse(
		[]model.Instance{widget("w1", widgetClass, 1), widget("w2", widgetClass, 9)},
		[]model.ClassDef{{Id: widgetClass, Name: "Widget"}},
	)
	rel := model.RelationshipDef{Targets: []string{"Widget"}, DefaultPool: model.DefaultPool{Kind: model.PoolAll}}
	override := model.Leaf(model.Predicate{Path: "$.price", Op: model.OpGte, Value: 5.0})

	ids, err := EffectivePool(u, rel, &override)
	require.NoError(t, err)
	require.Equal(t, []model.Id{"w2"}, ids)
}

func TestMaterializeIdsRejectsOutsidePoolByDefaultPolicy(t *testing.T) {
	widgetClass := model.Id("widget")
	u := NewUniverse([]model.Instance{widget("w1", widgetClass, 1)}, []model.ClassDef{{Id: widgetClass, Name: "Widget"}})
	pool := []model.Id{"w1"}

	_, _, err := Materialize(u, pool, model.SelectionSpec{Kind: model.SpecIds, Ids: []model.Id{"w1", "ghost"}}, Reject)
	require.Error(t, err)

	ids, warnings, err := Materialize(u, pool, model.SelectionSpec{Kind: model.SpecIds, Ids: []model.Id{"w1", "ghost"}}, AllowWithWarnings)
	require.NoError(t, err)
	require.ElementsMatch(t, []model.Id{"w1", "ghost"}, ids)
	require.Len(t, warnings, 1)
}

func TestMaterializeAllReturnsWholePool(t *testing.T) {
	widgetClass := model.Id("widget")
	u := NewUniverse([]model.Instance{widget("w1", widgetClass, 1)}, []model.ClassDef{{Id: widgetClass, Name: "Widget"}})
	ids, _, err := Materialize(u, []model.Id{"w1"}, model.SelectionSpec{Kind: model.SpecAll}, Reject)
	require.NoError(t, err)
	require.Equal(t, []model.Id{"w1"}, ids)
}

func TestResolveEndToEnd(t *testing.T) {
	widgetClass := model.Id("widget")
	u := NewUniverse(
		[]model.Instance{widget("w1", widgetClass, 1), widget("w2", widgetClass, 9)},
		[]model.ClassDef{{Id: widgetClass, Name: "Widget"}},
	)
	rel := model.RelationshipDef{Targets: []string{"Widget"}, DefaultPool: model.DefaultPool{Kind: model.PoolAll}}
	sel := model.RelationshipSelection{
		Kind: model.RelPoolBased,
		Spec: &model.SelectionSpec{Kind: model.SpecAll},
	}

	ids, warnings, err := Resolve(u, rel, sel, Reject)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.ElementsMatch(t, []model.Id{"w1", "w2"}, ids)
}
