package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ourstudio-se/oatdb-go/internal/model"
)

func TestCreateInitialHasNoParent(t *testing.T) {
	ctx := context.Background()
	store := New(NewMemoryBackend())

	dbId := model.NewId()
	c, err := CreateInitial(ctx, store, dbId, "alice")
	require.NoError(t, err)
	require.Empty(t, c.ParentHash)
	require.NotEmpty(t, c.Hash)

	data, err := store.Data(ctx, c.Hash)
	require.NoError(t, err)
	require.Empty(t, data.Schema.Classes)
	require.Empty(t, data.Instances)
}

func TestHashRecomputesDeterministically(t *testing.T) {
	ctx := context.Background()
	store := New(NewMemoryBackend())
	dbId := model.NewId()

	data := model.CommitData{
		Schema: model.Schema{Id: model.NewId(), Classes: []model.ClassDef{{Id: model.NewId(), Name: "Color"}}},
	}

	c1, err := Put(ctx, store, dbId, "", "alice", "add Color", data)
	require.NoError(t, err)

	payload, err := model.MarshalCanonicalCommitData(data)
	require.NoError(t, err)
	want := model.ComputeHash(dbId, "", "alice", "add Color", payload)
	require.Equal(t, want, c1.Hash)

	// Putting identical content again is idempotent and returns the same
	// stored commit (spec.md invariant: write-once, concurrent duplicate
	// writes are idempotent).
	c2, err := Put(ctx, store, dbId, "", "alice", "add Color", data)
	require.NoError(t, err)
	require.Equal(t, c1.Hash, c2.Hash)
}

func TestDecompressDetectsGzipMagic(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := New(backend)
	dbId := model.NewId()

	data := model.CommitData{Schema: model.Schema{Id: model.NewId()}}
	c, err := Put(ctx, store, dbId, "", "alice", "", data)
	require.NoError(t, err)

	roundTripped, err := store.Data(ctx, c.Hash)
	require.NoError(t, err)
	require.Equal(t, data.Schema.Id, roundTripped.Schema.Id)

	// Compatibility path: an uncompressed blob (no gzip magic) decodes
	// directly rather than erroring.
	raw, err := model.MarshalCanonicalCommitData(data)
	require.NoError(t, err)
	uncompressed := c
	uncompressed.Hash = "uncompressed-test"
	uncompressed.Data = raw
	require.NoError(t, backend.PutCommit(ctx, uncompressed))

	again, err := store.Data(ctx, "uncompressed-test")
	require.NoError(t, err)
	require.Equal(t, data.Schema.Id, again.Schema.Id)
}

func TestGetMissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := New(NewMemoryBackend())
	_, err := store.Get(ctx, "deadbeef")
	require.Error(t, err)
}
