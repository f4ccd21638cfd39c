// Package tags implements commit tagging: labeling a commit with a
// typed, named tag (version/release/milestone/custom) plus free-form
// metadata, and searching commits by tag.
//
// Grounded on original_source/src/model/tags.rs for the exact
// TagType/CommitTag/VersionInfo shape and the unique (commit_hash,
// tag_type, tag_name) constraint from spec.md section 6; store wiring
// follows BeadsLog internal/storage/sqlite/schema.go's embedded-SQL,
// CREATE-TABLE-IF-NOT-EXISTS convention (see internal/sqlstore).
package tags

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ourstudio-se/oatdb-go/internal/apperr"
	"github.com/ourstudio-se/oatdb-go/internal/model"
)

// Type is one of the tag categories from original_source/src/model/tags.rs.
type Type string

const (
	Version   Type = "version"
	Release   Type = "release"
	Milestone Type = "milestone"
	Custom    Type = "custom"
)

// ParseType validates a free-form tag_type string against the known set.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(s)) {
	case Version, Release, Milestone, Custom:
		return Type(strings.ToLower(s)), nil
	default:
		return "", apperr.New(apperr.Validation, "unknown tag type %q", s)
	}
}

// CommitTag labels one commit. Unique on (CommitHash, TagType, TagName)
// per spec.md section 6.
type CommitTag struct {
	Id             int64          `json:"id"`
	CommitHash     string         `json:"commit_hash"`
	TagType        Type           `json:"tag_type"`
	TagName        string         `json:"tag_name"`
	TagDescription string         `json:"tag_description,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	CreatedBy      string         `json:"created_by,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// VersionInfo is the semantic-version shape a Version tag's Metadata may
// carry, mirroring original_source's VersionInfo.
type VersionInfo struct {
	Major         int    `json:"major"`
	Minor         int    `json:"minor"`
	Patch         int    `json:"patch"`
	PreRelease    string `json:"pre_release,omitempty"`
	BuildMetadata string `json:"build_metadata,omitempty"`
	IsLatest      bool   `json:"is_latest,omitempty"`
	ReleaseNotes  string `json:"release_notes,omitempty"`
}

// String renders the semantic version string, e.g. "v1.2.3-beta+20241201".
func (v VersionInfo) String() string {
	s := fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.PreRelease != "" {
		s += "-" + v.PreRelease
	}
	if v.BuildMetadata != "" {
		s += "+" + v.BuildMetadata
	}
	return s
}

// VersionInfo extracts VersionInfo from a Version-typed tag's metadata,
// returning ok=false for any other tag type or malformed metadata.
func (t CommitTag) VersionInfo() (VersionInfo, bool) {
	if t.TagType != Version {
		return VersionInfo{}, false
	}
	vi := VersionInfo{}
	if major, ok := asInt(t.Metadata["major"]); ok {
		vi.Major = major
	} else {
		return VersionInfo{}, false
	}
	if minor, ok := asInt(t.Metadata["minor"]); ok {
		vi.Minor = minor
	}
	if patch, ok := asInt(t.Metadata["patch"]); ok {
		vi.Patch = patch
	}
	if s, ok := t.Metadata["pre_release"].(string); ok {
		vi.PreRelease = s
	}
	if s, ok := t.Metadata["build_metadata"].(string); ok {
		vi.BuildMetadata = s
	}
	if b, ok := t.Metadata["is_latest"].(bool); ok {
		vi.IsLatest = b
	}
	if s, ok := t.Metadata["release_notes"].(string); ok {
		vi.ReleaseNotes = s
	}
	return vi, true
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// Query filters Search results.
type Query struct {
	TagType Type
	TagName string // partial, case-insensitive match
	Limit   int
}

// CommitLookup resolves a commit hash, so Create can reject tags against
// commits that do not exist. Create does not compare the commit's
// database, and Search is not scoped to a database.
type CommitLookup interface {
	GetCommit(ctx context.Context, hash string) (model.Commit, bool, error)
}

// Backend is the durable row store tags are persisted to; maps onto the
// `commit_tags` table from spec.md section 6.
type Backend interface {
	InsertTag(ctx context.Context, t CommitTag) (CommitTag, error)
	ListTagsForCommit(ctx context.Context, commitHash string) ([]CommitTag, error)
	DeleteTag(ctx context.Context, id int64) error
	SearchTags(ctx context.Context, q Query) ([]CommitTag, error)
}

// Store is the tag CRUD + search surface.
type Store struct {
	backend Backend
	commits CommitLookup
}

func New(backend Backend, commits CommitLookup) *Store {
	return &Store{backend: backend, commits: commits}
}

// Create tags a commit. Fails with apperr.NotFound if the commit doesn't
// exist and apperr.Conflict if (commit_hash, tag_type, tag_name) is
// already taken. Create detects the duplicate by listing the commit's
// tags before inserting, rather than parsing the backend's
// driver-specific error text; the backend's own unique constraint is the
// last guard.
func (s *Store) Create(ctx context.Context, t CommitTag) (CommitTag, error) {
	if _, ok, err := s.commits.GetCommit(ctx, t.CommitHash); err != nil {
		return CommitTag{}, err
	} else if !ok {
		return CommitTag{}, apperr.New(apperr.NotFound, "commit %s not found", t.CommitHash)
	}

	existing, err := s.backend.ListTagsForCommit(ctx, t.CommitHash)
	if err != nil {
		return CommitTag{}, err
	}
	for _, e := range existing {
		if e.TagType == t.TagType && e.TagName == t.TagName {
			return CommitTag{}, apperr.New(apperr.Conflict, "tag %s/%s already exists on commit %s", t.TagType, t.TagName, t.CommitHash)
		}
	}

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	return s.backend.InsertTag(ctx, t)
}

// ListForCommit returns every tag on a commit.
func (s *Store) ListForCommit(ctx context.Context, commitHash string) ([]CommitTag, error) {
	return s.backend.ListTagsForCommit(ctx, commitHash)
}

// Delete removes a tag by id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.backend.DeleteTag(ctx, id)
}

// Search finds tags matching q across all commits.
func (s *Store) Search(ctx context.Context, q Query) ([]CommitTag, error) {
	return s.backend.SearchTags(ctx, q)
}
