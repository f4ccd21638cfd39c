package diffmerge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ourstudio-se/oatdb-go/internal/model"
)

func instance(id model.Id, colorValue string) model.Instance {
	return model.Instance{
		Id:      id,
		ClassId: model.Id("color-class"),
		Properties: map[string]model.PropertyValue{
			"name": model.LiteralValue(colorValue, model.TypeString),
		},
		Relationships: map[string]model.RelationshipSelection{},
	}
}

func TestDiffDetectsPropertyModification(t *testing.T) {
	id := model.NewId()
	base := model.CommitData{Instances: []model.Instance{instance(id, "red")}}
	other := model.CommitData{Instances: []model.Instance{instance(id, "blue")}}

	changes, err := Diff(base, other)
	require.NoError(t, err)

	found := false
	for _, c := range changes {
		if c.Path == "instances/"+string(id)+"/properties/name/literal/value" {
			found = true
			require.Equal(t, Modified, c.Kind)
			require.Equal(t, "red", c.Before)
			require.Equal(t, "blue", c.After)
		}
	}
	require.True(t, found, "expected a modification on the name property, got %+v", changes)
}

func TestDiffDetectsInstanceAddedAndRemoved(t *testing.T) {
	keep := model.NewId()
	removedId := model.NewId()
	addedId := model.NewId()

	base := model.CommitData{Instances: []model.Instance{instance(keep, "red"), instance(removedId, "green")}}
	other := model.CommitData{Instances: []model.Instance{instance(keep, "red"), instance(addedId, "yellow")}}

	changes, err := Diff(base, other)
	require.NoError(t, err)

	var sawAdd, sawRemove bool
	for _, c := range changes {
		if c.Path == "instances/"+string(addedId) && c.Kind == Added {
			sawAdd = true
		}
		if c.Path == "instances/"+string(removedId) && c.Kind == Removed {
			sawRemove = true
		}
	}
	require.True(t, sawAdd)
	require.True(t, sawRemove)
}

func TestMergeAutoMergesNonOverlappingChanges(t *testing.T) {
	a := model.NewId()
	b := model.NewId()
	base := model.CommitData{Instances: []model.Instance{instance(a, "red"), instance(b, "green")}}
	left := model.CommitData{Instances: []model.Instance{instance(a, "blue"), instance(b, "green")}}
	right := model.CommitData{Instances: []model.Instance{instance(a, "red"), instance(b, "purple")}}

	result, err := Merge(base, left, right, nil)
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)

	byId := map[model.Id]model.Instance{}
	for _, in := range result.Data.Instances {
		byId[in.Id] = in
	}
	require.Equal(t, "blue", byId[a].Properties["name"].Literal.Value)
	require.Equal(t, "purple", byId[b].Properties["name"].Literal.Value)
}

func TestMergeModifyModifyConflictDefaultsToLeft(t *testing.T) {
	a := model.NewId()
	base := model.CommitData{Instances: []model.Instance{instance(a, "red")}}
	left := model.CommitData{Instances: []model.Instance{instance(a, "blue")}}
	right := model.CommitData{Instances: []model.Instance{instance(a, "green")}}

	result, err := Merge(base, left, right, nil)
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	require.Equal(t, ModifyModify, result.Conflicts[0].Kind)

	byId := map[model.Id]model.Instance{}
	for _, in := range result.Data.Instances {
		byId[in.Id] = in
	}
	require.Equal(t, "blue", byId[a].Properties["name"].Literal.Value)
}

func TestMergeModifyModifyConflictCanResolveToRight(t *testing.T) {
	a := model.NewId()
	base := model.CommitData{Instances: []model.Instance{instance(a, "red")}}
	left := model.CommitData{Instances: []model.Instance{instance(a, "blue")}}
	right := model.CommitData{Instances: []model.Instance{instance(a, "green")}}

	path := "instances/" + string(a) + "/properties/name/literal/value"
	result, err := Merge(base, left, right, []ConflictResolution{
		{Path: path, Resolution: UseRight},
	})
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)

	byId := map[model.Id]model.Instance{}
	for _, in := range result.Data.Instances {
		byId[in.Id] = in
	}
	require.Equal(t, "green", byId[a].Properties["name"].Literal.Value)
}

func TestMergeDeleteModifyConflictOnRemovedInstance(t *testing.T) {
	a := model.NewId()
	base := model.CommitData{Instances: []model.Instance{instance(a, "red")}}
	left := model.CommitData{Instances: []model.Instance{}} // deleted instance a
	right := model.CommitData{Instances: []model.Instance{instance(a, "blue")}} // modified instance a

	result, err := Merge(base, left, right, nil)
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	require.Equal(t, DeleteModify, result.Conflicts[0].Kind)
	require.Equal(t, "instances/"+string(a), result.Conflicts[0].Path)

	// Default prefer-left: the deletion wins.
	require.Empty(t, result.Data.Instances)
}

func TestMergeAddAddConflict(t *testing.T) {
	id := model.NewId()
	base := model.CommitData{}
	left := model.CommitData{Instances: []model.Instance{instance(id, "blue")}}
	right := model.CommitData{Instances: []model.Instance{instance(id, "green")}}

	result, err := Merge(base, left, right, nil)
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	require.Equal(t, AddAdd, result.Conflicts[0].Kind)
}
