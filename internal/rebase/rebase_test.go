package rebase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ourstudio-se/oatdb-go/internal/model"
	"github.com/ourstudio-se/oatdb-go/internal/objectstore"
)

func chain(t *testing.T, store *objectstore.Store, dbId model.Id, author string, n int) []model.Commit {
	t.Helper()
	ctx := context.Background()
	var commits []model.Commit
	parent := ""
	for i := 0; i < n; i++ {
		c, err := objectstore.Put(ctx, store, dbId, parent, author, "step", model.CommitData{
			Schema: model.Schema{Id: model.NewId(), Description: string(rune('a' + i))},
		})
		require.NoError(t, err)
		commits = append(commits, c)
		parent = c.Hash
	}
	return commits
}

func TestIsAncestorWalksParentChain(t *testing.T) {
	ctx := context.Background()
	store := objectstore.New(objectstore.NewMemoryBackend())
	commits := chain(t, store, model.NewId(), "alice", 3)

	ok, err := IsAncestor(ctx, store, commits[0].Hash, commits[2].Hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = IsAncestor(ctx, store, commits[2].Hash, commits[0].Hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFindCommonBaseOnDivergentBranches(t *testing.T) {
	ctx := context.Background()
	store := objectstore.New(objectstore.NewMemoryBackend())
	dbId := model.NewId()
	shared := chain(t, store, dbId, "alice", 2)
	base := shared[len(shared)-1]

	left, err := objectstore.Put(ctx, store, dbId, base.Hash, "alice", "left", model.CommitData{Schema: model.Schema{Id: model.NewId(), Description: "left"}})
	require.NoError(t, err)
	right, err := objectstore.Put(ctx, store, dbId, base.Hash, "bob", "right", model.CommitData{Schema: model.Schema{Id: model.NewId(), Description: "right"}})
	require.NoError(t, err)

	common, err := FindCommonBase(ctx, store, left.Hash, right.Hash)
	require.NoError(t, err)
	require.Equal(t, base.Hash, common)
}

func TestRebaseAppliesChangesOnTopOfNewBase(t *testing.T) {
	ctx := context.Background()
	store := objectstore.New(objectstore.NewMemoryBackend())
	dbId := model.NewId()
	base, err := objectstore.CreateInitial(ctx, store, dbId, "alice")
	require.NoError(t, err)
	baseData, err := store.Data(ctx, base.Hash)
	require.NoError(t, err)

	id := model.NewId()
	branch, err := objectstore.Put(ctx, store, dbId, base.Hash, "alice", "add instance", model.CommitData{
		Schema:    baseData.Schema,
		Instances: []model.Instance{{Id: id, ClassId: model.Id("c"), Properties: map[string]model.PropertyValue{}, Relationships: map[string]model.RelationshipSelection{}}},
	})
	require.NoError(t, err)

	onto, err := objectstore.Put(ctx, store, dbId, base.Hash, "bob", "rename schema", model.CommitData{
		Schema: model.Schema{Id: model.NewId(), Description: "renamed"},
	})
	require.NoError(t, err)

	result, err := Rebase(ctx, store, branch.Hash, onto.Hash, nil)
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)
	require.Equal(t, base.Hash, result.BaseHash)
	require.Len(t, result.Data.Instances, 1)
	require.Equal(t, "renamed", result.Data.Schema.Description)
}

func TestValidateRebaseRejectsNoopRebase(t *testing.T) {
	ctx := context.Background()
	store := objectstore.New(objectstore.NewMemoryBackend())
	dbId := model.NewId()
	commits := chain(t, store, dbId, "alice", 2)

	err := ValidateRebase(ctx, store, commits[1].Hash, commits[0].Hash)
	require.Error(t, err)
}
