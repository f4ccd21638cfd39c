package oatdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ourstudio-se/oatdb-go/internal/apperr"
	"github.com/ourstudio-se/oatdb-go/internal/diffmerge"
	"github.com/ourstudio-se/oatdb-go/internal/model"
	"github.com/ourstudio-se/oatdb-go/internal/tags"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(context.Background(), ":memory:", Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e
}

func colorClass() model.ClassDef {
	return model.ClassDef{
		Id:   "color-class",
		Name: "Color",
		Properties: []model.PropertyDef{
			{Name: "name", DataType: model.TypeString, Required: true},
		},
	}
}

func TestCreateDatabaseSeedsDefaultBranchWithInitialCommit(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	db, err := e.CreateDatabase(ctx, "catalog", "main", "alice")
	require.NoError(t, err)
	require.Equal(t, "main", db.DefaultBranchName)

	branch, err := e.GetBranch(ctx, db.Id, "main")
	require.NoError(t, err)
	require.NotEmpty(t, branch.CurrentCommitHash)

	data, err := e.GetCommitData(ctx, branch.CurrentCommitHash)
	require.NoError(t, err)
	require.Empty(t, data.Instances)
}

func TestWorkingCommitLifecycleCommitsToBranch(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	db, err := e.CreateDatabase(ctx, "catalog", "main", "alice")
	require.NoError(t, err)

	wc, err := e.BeginWork(ctx, db.Id, "main", "alice")
	require.NoError(t, err)

	wc.SchemaData.Classes = append(wc.SchemaData.Classes, colorClass())
	wc.InstancesData = append(wc.InstancesData, model.Instance{
		Id:            "red",
		ClassId:       "color-class",
		Properties:    map[string]model.PropertyValue{"name": model.LiteralValue("red", model.TypeString)},
		Relationships: map[string]model.RelationshipSelection{},
	})
	require.NoError(t, e.UpdateWorkingCommit(ctx, wc))

	report, err := e.ValidateWorkingCommit(ctx, wc.Id)
	require.NoError(t, err)
	require.True(t, report.Valid)

	commit, err := e.Commit(ctx, wc.Id, "add red")
	require.NoError(t, err)
	require.NotEmpty(t, commit.Hash)

	branch, err := e.GetBranch(ctx, db.Id, "main")
	require.NoError(t, err)
	require.Equal(t, commit.Hash, branch.CurrentCommitHash)

	_, err = e.GetWorkingCommit(ctx, wc.Id)
	require.Error(t, err, "committed working commit should be evicted")
}

func TestBranchAndMergeAppliesNonConflictingChangesFromBoth(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	db, err := e.CreateDatabase(ctx, "catalog", "main", "alice")
	require.NoError(t, err)

	mainWc, err := e.BeginWork(ctx, db.Id, "main", "alice")
	require.NoError(t, err)
	mainWc.SchemaData.Classes = append(mainWc.SchemaData.Classes, colorClass())
	require.NoError(t, e.UpdateWorkingCommit(ctx, mainWc))
	_, err = e.Commit(ctx, mainWc.Id, "add color class")
	require.NoError(t, err)

	_, err = e.CreateBranch(ctx, db.Id, "feature", "main", "bob")
	require.NoError(t, err)

	featureWc, err := e.BeginWork(ctx, db.Id, "feature", "bob")
	require.NoError(t, err)
	featureWc.InstancesData = append(featureWc.InstancesData, model.Instance{
		Id:            "blue",
		ClassId:       "color-class",
		Properties:    map[string]model.PropertyValue{"name": model.LiteralValue("blue", model.TypeString)},
		Relationships: map[string]model.RelationshipSelection{},
	})
	require.NoError(t, e.UpdateWorkingCommit(ctx, featureWc))
	_, err = e.Commit(ctx, featureWc.Id, "add blue instance")
	require.NoError(t, err)

	commit, conflicts, err := e.Merge(ctx, db.Id, "feature", "main", "alice", "merge feature", nil, false)
	require.NoError(t, err)
	require.Empty(t, conflicts)

	data, err := e.GetCommitData(ctx, commit.Hash)
	require.NoError(t, err)
	require.Len(t, data.Instances, 1)

	source, err := e.GetBranch(ctx, db.Id, "feature")
	require.NoError(t, err)
	require.Equal(t, BranchMerged, source.Status)
}

func TestMergeConflictDefaultsToSourceAsLeft(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	db, err := e.CreateDatabase(ctx, "catalog", "main", "alice")
	require.NoError(t, err)

	baseWc, err := e.BeginWork(ctx, db.Id, "main", "alice")
	require.NoError(t, err)
	baseWc.SchemaData.Classes = append(baseWc.SchemaData.Classes, colorClass())
	baseWc.InstancesData = append(baseWc.InstancesData, model.Instance{
		Id:            "red",
		ClassId:       "color-class",
		Properties:    map[string]model.PropertyValue{"name": model.LiteralValue("red", model.TypeString)},
		Relationships: map[string]model.RelationshipSelection{},
	})
	require.NoError(t, e.UpdateWorkingCommit(ctx, baseWc))
	_, err = e.Commit(ctx, baseWc.Id, "seed red")
	require.NoError(t, err)

	_, err = e.CreateBranch(ctx, db.Id, "feature", "main", "bob")
	require.NoError(t, err)

	featureWc, err := e.BeginWork(ctx, db.Id, "feature", "bob")
	require.NoError(t, err)
	featureWc.InstancesData[0].Properties["name"] = model.LiteralValue("crimson", model.TypeString)
	require.NoError(t, e.UpdateWorkingCommit(ctx, featureWc))
	_, err = e.Commit(ctx, featureWc.Id, "rename to crimson")
	require.NoError(t, err)

	mainWc, err := e.BeginWork(ctx, db.Id, "main", "alice")
	require.NoError(t, err)
	mainWc.InstancesData[0].Properties["name"] = model.LiteralValue("scarlet", model.TypeString)
	require.NoError(t, e.UpdateWorkingCommit(ctx, mainWc))
	_, err = e.Commit(ctx, mainWc.Id, "rename to scarlet")
	require.NoError(t, err)

	mainBefore, err := e.GetBranch(ctx, db.Id, "main")
	require.NoError(t, err)

	_, conflicts, err := e.Merge(ctx, db.Id, "feature", "main", "alice", "merge feature", nil, false)
	require.Error(t, err)
	require.Equal(t, apperr.Conflict, apperr.KindOf(err))
	require.Len(t, conflicts, 1)

	mainAfter, err := e.GetBranch(ctx, db.Id, "main")
	require.NoError(t, err)
	require.Equal(t, mainBefore.CurrentCommitHash, mainAfter.CurrentCommitHash)

	featureStillActive, err := e.GetBranch(ctx, db.Id, "feature")
	require.NoError(t, err)
	require.Equal(t, BranchActive, featureStillActive.Status)

	commit, conflicts, err := e.Merge(ctx, db.Id, "feature", "main", "alice", "merge feature", nil, true)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, diffmerge.ModifyModify, conflicts[0].Kind)

	data, err := e.GetCommitData(ctx, commit.Hash)
	require.NoError(t, err)
	require.Equal(t, "crimson", data.Instances[0].Properties["name"].Literal.Value)

	source, err := e.GetBranch(ctx, db.Id, "feature")
	require.NoError(t, err)
	require.Equal(t, BranchMerged, source.Status)
}

func TestTagCommitRejectsUnknownCommit(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	_, err := e.TagCommit(ctx, tags.CommitTag{CommitHash: "does-not-exist", TagType: tags.Release, TagName: "v1"})
	require.Error(t, err)
}

func TestTagCommitAndSearch(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	db, err := e.CreateDatabase(ctx, "catalog", "main", "alice")
	require.NoError(t, err)
	branch, err := e.GetBranch(ctx, db.Id, "main")
	require.NoError(t, err)

	_, err = e.TagCommit(ctx, tags.CommitTag{CommitHash: branch.CurrentCommitHash, TagType: tags.Milestone, TagName: "launch"})
	require.NoError(t, err)

	found, err := e.SearchTags(ctx, tags.Query{TagType: tags.Milestone})
	require.NoError(t, err)
	require.Len(t, found, 1)
}
