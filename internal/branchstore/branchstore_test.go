package branchstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ourstudio-se/oatdb-go/internal/model"
)

func TestValidateBranchName(t *testing.T) {
	cases := map[string]bool{
		"main":         true,
		"feature/x":    true,
		"a":            true,
		"":             false,
		"HEAD":         false,
		".":            false,
		"..":           false,
		"/leading":     false,
		"trailing/":    false,
		"has..dots":    false,
	}
	for name, wantOK := range cases {
		err := ValidateBranchName(name)
		if wantOK {
			require.NoError(t, err, name)
		} else {
			require.Error(t, err, name)
		}
	}
}

func TestUpsertIdempotentOnKey(t *testing.T) {
	ctx := context.Background()
	reg := New(NewMemoryBackend())
	dbId := model.NewId()

	b := model.Branch{DatabaseId: dbId, Name: "main", Status: model.BranchActive}
	require.NoError(t, reg.Upsert(ctx, b))
	b.CommitMessage = "updated"
	require.NoError(t, reg.Upsert(ctx, b))

	got, err := reg.Get(ctx, dbId, "main")
	require.NoError(t, err)
	require.Equal(t, "updated", got.CommitMessage)
}

func TestDeleteRequiresMergedOrArchivedUnlessForced(t *testing.T) {
	ctx := context.Background()
	reg := New(NewMemoryBackend())
	dbId := model.NewId()

	require.NoError(t, reg.Upsert(ctx, model.Branch{DatabaseId: dbId, Name: "feat", Status: model.BranchActive}))

	err := reg.Delete(ctx, dbId, "feat", false)
	require.Error(t, err)

	require.NoError(t, reg.Delete(ctx, dbId, "feat", true))
	_, err = reg.Get(ctx, dbId, "feat")
	require.Error(t, err)
}

func TestAdvanceHeadRejectsNonAncestorWithoutForce(t *testing.T) {
	ctx := context.Background()
	reg := New(NewMemoryBackend())
	dbId := model.NewId()
	require.NoError(t, reg.Upsert(ctx, model.Branch{DatabaseId: dbId, Name: "main", Status: model.BranchActive, CurrentCommitHash: "c1"}))

	notAncestor := func(string, string) (bool, error) { return false, nil }
	_, err := reg.AdvanceHead(ctx, dbId, "main", "c2", notAncestor, false)
	require.Error(t, err)

	audit, err := reg.AdvanceHead(ctx, dbId, "main", "c2", notAncestor, true)
	require.NoError(t, err)
	require.NotNil(t, audit)

	got, err := reg.Get(ctx, dbId, "main")
	require.NoError(t, err)
	require.Equal(t, "c2", got.CurrentCommitHash)
}
