package workingcache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/require"

	"github.com/ourstudio-se/oatdb-go/internal/model"
)

type fakeSource struct {
	data model.CommitData
}

func (f fakeSource) Data(context.Context, string) (model.CommitData, error) { return f.data, nil }

func TestCreateRejectsSecondActiveForSameBranch(t *testing.T) {
	ctx := context.Background()
	store := New(NewMemoryBackend(), time.Hour, "")
	branch := model.Branch{DatabaseId: model.NewId(), Name: "main", Status: model.BranchActive}
	src := fakeSource{}

	_, err := store.Create(ctx, src, branch, "alice")
	require.NoError(t, err)

	_, err = store.Create(ctx, src, branch, "bob")
	require.Error(t, err)
}

func TestUpdateDefersWriteUntilFlush(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := New(backend, time.Hour, "")
	branch := model.Branch{DatabaseId: model.NewId(), Name: "main", Status: model.BranchActive}

	wc, err := store.Create(ctx, fakeSource{}, branch, "alice")
	require.NoError(t, err)

	wc.SchemaData.Description = "edited"
	require.NoError(t, store.Update(ctx, wc))

	stored, ok, err := backend.GetWorkingCommit(ctx, wc.Id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, stored.SchemaData.Description)

	require.NoError(t, store.Flush(ctx))
	stored, ok, err = backend.GetWorkingCommit(ctx, wc.Id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "edited", stored.SchemaData.Description)
}

func TestGetActiveForBranchClearsOnDelete(t *testing.T) {
	ctx := context.Background()
	store := New(NewMemoryBackend(), time.Hour, "")
	dbId := model.NewId()
	branch := model.Branch{DatabaseId: dbId, Name: "main", Status: model.BranchActive}

	wc, err := store.Create(ctx, fakeSource{}, branch, "alice")
	require.NoError(t, err)

	_, ok, err := store.GetActiveForBranch(ctx, dbId, "main")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Delete(ctx, wc.Id))

	_, ok, err = store.GetActiveForBranch(ctx, dbId, "main")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEvictExpiredLeavesDirtyEntries(t *testing.T) {
	store := New(NewMemoryBackend(), time.Nanosecond, "")
	ctx := context.Background()
	branch := model.Branch{DatabaseId: model.NewId(), Name: "main", Status: model.BranchActive}

	wc, err := store.Create(ctx, fakeSource{}, branch, "alice")
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, wc))

	time.Sleep(2 * time.Millisecond)
	store.EvictExpired()

	store.mu.RLock()
	_, stillCached := store.byId[wc.Id]
	store.mu.RUnlock()
	require.True(t, stillCached, "dirty entries must survive eviction until flushed")
}

func TestFlushRejectsWhenLockHeldByAnotherProcess(t *testing.T) {
	ctx := context.Background()
	lockPath := filepath.Join(t.TempDir(), "flush.lock")

	external := flock.New(lockPath)
	locked, err := external.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer external.Unlock()

	store := New(NewMemoryBackend(), time.Hour, lockPath)
	branch := model.Branch{DatabaseId: model.NewId(), Name: "main", Status: model.BranchActive}
	wc, err := store.Create(ctx, fakeSource{}, branch, "alice")
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, wc))

	// Flush keeps retrying the lock until its context is done.
	flushCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	err = store.Flush(flushCtx)
	require.Error(t, err)
}
