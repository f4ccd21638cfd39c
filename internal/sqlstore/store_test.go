package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ourstudio-se/oatdb-go/internal/model"
	"github.com/ourstudio-se/oatdb-go/internal/tags"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestDatabaseRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := model.Database{Id: model.NewId(), Name: "d1", CreatedAt: time.Now().UTC(), DefaultBranchName: "main"}
	require.NoError(t, s.CreateDatabase(ctx, d))

	got, ok, err := s.GetDatabase(ctx, d.Id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, d.Name, got.Name)
	require.Equal(t, d.DefaultBranchName, got.DefaultBranchName)

	all, err := s.ListDatabases(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestBranchUpsertAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dbId := model.NewId()
	require.NoError(t, s.CreateDatabase(ctx, model.Database{Id: dbId, Name: "d1", CreatedAt: time.Now().UTC(), DefaultBranchName: "main"}))

	b := model.Branch{DatabaseId: dbId, Name: "main", Status: model.BranchActive, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.UpsertBranch(ctx, b))

	got, ok, err := s.GetBranch(ctx, dbId, "main")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, model.BranchActive, got.Status)

	b.Status = model.BranchArchived
	require.NoError(t, s.UpsertBranch(ctx, b))
	got, _, err = s.GetBranch(ctx, dbId, "main")
	require.NoError(t, err)
	require.Equal(t, model.BranchArchived, got.Status)

	list, err := s.ListBranches(ctx, dbId)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.DeleteBranch(ctx, dbId, "main"))
	_, ok, err = s.GetBranch(ctx, dbId, "main")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCommitPutIsIdempotentOnHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dbId := model.NewId()
	require.NoError(t, s.CreateDatabase(ctx, model.Database{Id: dbId, Name: "d1", CreatedAt: time.Now().UTC()}))

	c := model.Commit{Hash: "abc123", DatabaseId: dbId, Data: []byte("payload"), DataSize: 7, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.PutCommit(ctx, c))
	require.NoError(t, s.PutCommit(ctx, c)) // duplicate write of same hash is a no-op

	got, ok, err := s.GetCommit(ctx, "abc123")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("payload"), got.Data)
}

func TestWorkingCommitRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dbId := model.NewId()
	require.NoError(t, s.CreateDatabase(ctx, model.Database{Id: dbId, Name: "d1", CreatedAt: time.Now().UTC()}))

	wc := model.WorkingCommit{
		Id:         model.NewId(),
		DatabaseId: dbId,
		BranchName: "main",
		Status:     model.WorkingActive,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
		SchemaData: model.Schema{Id: "s1", Classes: []model.ClassDef{{Id: "c1", Name: "Color"}}},
		InstancesData: []model.Instance{
			{Id: "i1", ClassId: "c1", Properties: map[string]model.PropertyValue{}, Relationships: map[string]model.RelationshipSelection{}},
		},
	}
	require.NoError(t, s.PutWorkingCommit(ctx, wc))

	got, ok, err := s.GetWorkingCommit(ctx, wc.Id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "main", got.BranchName)
	require.Len(t, got.SchemaData.Classes, 1)
	require.Len(t, got.InstancesData, 1)

	require.NoError(t, s.DeleteWorkingCommit(ctx, wc.Id))
	_, ok, err = s.GetWorkingCommit(ctx, wc.Id)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTagLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dbId := model.NewId()
	require.NoError(t, s.CreateDatabase(ctx, model.Database{Id: dbId, Name: "d1", CreatedAt: time.Now().UTC()}))
	require.NoError(t, s.PutCommit(ctx, model.Commit{Hash: "h1", DatabaseId: dbId, Data: []byte("x"), CreatedAt: time.Now().UTC()}))

	store := tags.New(s, s)
	created, err := store.Create(ctx, tags.CommitTag{CommitHash: "h1", TagType: tags.Release, TagName: "v1"})
	require.NoError(t, err)
	require.NotZero(t, created.Id)

	list, err := store.ListForCommit(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	results, err := store.Search(ctx, tags.Query{TagType: tags.Release})
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.NoError(t, store.Delete(ctx, created.Id))
	list, err = store.ListForCommit(ctx, "h1")
	require.NoError(t, err)
	require.Empty(t, list)
}
