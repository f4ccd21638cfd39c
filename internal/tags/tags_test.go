package tags

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ourstudio-se/oatdb-go/internal/apperr"
	"github.com/ourstudio-se/oatdb-go/internal/model"
)

type fakeCommits struct {
	hashes map[string]bool
}

func (f fakeCommits) GetCommit(ctx context.Context, hash string) (model.Commit, bool, error) {
	if f.hashes[hash] {
		return model.Commit{Hash: hash}, true, nil
	}
	return model.Commit{}, false, nil
}

type fakeBackend struct {
	nextId int64
	byHash map[string][]CommitTag
	all    []CommitTag
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{byHash: make(map[string][]CommitTag)}
}

func (f *fakeBackend) InsertTag(ctx context.Context, t CommitTag) (CommitTag, error) {
	f.nextId++
	t.Id = f.nextId
	f.byHash[t.CommitHash] = append(f.byHash[t.CommitHash], t)
	f.all = append(f.all, t)
	return t, nil
}

func (f *fakeBackend) ListTagsForCommit(ctx context.Context, hash string) ([]CommitTag, error) {
	return f.byHash[hash], nil
}

func (f *fakeBackend) DeleteTag(ctx context.Context, id int64) error {
	for i, t := range f.all {
		if t.Id == id {
			f.all = append(f.all[:i], f.all[i+1:]...)
			list := f.byHash[t.CommitHash]
			for j, lt := range list {
				if lt.Id == id {
					f.byHash[t.CommitHash] = append(list[:j], list[j+1:]...)
					break
				}
			}
			return nil
		}
	}
	return apperr.New(apperr.NotFound, "tag %d not found", id)
}

func (f *fakeBackend) SearchTags(ctx context.Context, q Query) ([]CommitTag, error) {
	var out []CommitTag
	for _, t := range f.all {
		if q.TagType != "" && t.TagType != q.TagType {
			continue
		}
		if q.TagName != "" && t.TagName != q.TagName {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func TestCreateRejectsUnknownCommit(t *testing.T) {
	store := New(newFakeBackend(), fakeCommits{hashes: map[string]bool{}})
	_, err := store.Create(context.Background(), CommitTag{CommitHash: "deadbeef", TagType: Release, TagName: "v1"})
	require.Error(t, err)
	require.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestCreateRejectsDuplicateTag(t *testing.T) {
	store := New(newFakeBackend(), fakeCommits{hashes: map[string]bool{"abc": true}})
	ctx := context.Background()
	_, err := store.Create(ctx, CommitTag{CommitHash: "abc", TagType: Release, TagName: "v1"})
	require.NoError(t, err)

	_, err = store.Create(ctx, CommitTag{CommitHash: "abc", TagType: Release, TagName: "v1"})
	require.Error(t, err)
	require.Equal(t, apperr.Conflict, apperr.KindOf(err))
}

func TestVersionInfoRoundtrip(t *testing.T) {
	tag := CommitTag{
		TagType: Version,
		TagName: "v2.1.0",
		Metadata: map[string]any{
			"major": 2, "minor": 1, "patch": 0, "pre_release": "rc1",
		},
	}
	vi, ok := tag.VersionInfo()
	require.True(t, ok)
	require.Equal(t, "v2.1.0-rc1", vi.String())
}

func TestVersionInfoNotAVersionTag(t *testing.T) {
	tag := CommitTag{TagType: Milestone, TagName: "feature-complete"}
	_, ok := tag.VersionInfo()
	require.False(t, ok)
}

func TestSearchFiltersByType(t *testing.T) {
	backend := newFakeBackend()
	store := New(backend, fakeCommits{hashes: map[string]bool{"abc": true, "def": true}})
	ctx := context.Background()
	_, _ = store.Create(ctx, CommitTag{CommitHash: "abc", TagType: Release, TagName: "v1"})
	_, _ = store.Create(ctx, CommitTag{CommitHash: "def", TagType: Milestone, TagName: "beta"})

	results, err := store.Search(ctx, Query{TagType: Release})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "v1", results[0].TagName)
}

func TestParseType(t *testing.T) {
	ty, err := ParseType("RELEASE")
	require.NoError(t, err)
	require.Equal(t, Release, ty)

	_, err = ParseType("bogus")
	require.Error(t, err)
}
