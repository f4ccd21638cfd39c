// Package oatdb is the public API surface for this module's versioning
// engine: databases, branches, working commits, commits, merges,
// rebases, tags, and configuration solves, all backed by a single
// internal/sqlstore connection.
//
// Most callers should use this package rather than reaching into
// internal/* directly, the same way BeadsLog's top-level beads.go
// re-exports internal/beads.Storage as the one supported entry point for
// Go-based callers.
package oatdb

import (
	"context"
	"time"

	"github.com/ourstudio-se/oatdb-go/internal/apperr"
	"github.com/ourstudio-se/oatdb-go/internal/branchstore"
	"github.com/ourstudio-se/oatdb-go/internal/diffmerge"
	"github.com/ourstudio-se/oatdb-go/internal/ilp"
	"github.com/ourstudio-se/oatdb-go/internal/model"
	"github.com/ourstudio-se/oatdb-go/internal/objectstore"
	"github.com/ourstudio-se/oatdb-go/internal/pool"
	"github.com/ourstudio-se/oatdb-go/internal/rebase"
	"github.com/ourstudio-se/oatdb-go/internal/solve"
	"github.com/ourstudio-se/oatdb-go/internal/sqlstore"
	"github.com/ourstudio-se/oatdb-go/internal/tags"
	"github.com/ourstudio-se/oatdb-go/internal/validate"
	"github.com/ourstudio-se/oatdb-go/internal/workingcache"
)

// Re-exported so callers of this package never need to import internal/*
// themselves.
type (
	Id                 = model.Id
	Database           = model.Database
	Branch             = model.Branch
	BranchStatus       = model.BranchStatus
	Commit             = model.Commit
	CommitData         = model.CommitData
	WorkingCommit       = model.WorkingCommit
	Schema             = model.Schema
	Instance           = model.Instance
	ConfigurationArtifact = solve.ConfigurationArtifact
	SolveRequest       = solve.Request
	Objectives         = solve.Objectives
	Conflict           = diffmerge.Conflict
	ConflictResolution = diffmerge.ConflictResolution
	ValidationReport   = validate.Report
	CommitTag          = tags.CommitTag
	TagType            = tags.Type
	TagQuery           = tags.Query
	CrossBranchPolicy  = pool.CrossBranchPolicy
)

// ParseTagType parses a tag type string, rejecting anything outside
// version/release/milestone/custom.
var ParseTagType = tags.ParseType

const (
	BranchActive   = model.BranchActive
	BranchMerged   = model.BranchMerged
	BranchArchived = model.BranchArchived

	TagVersion   = tags.Version
	TagRelease   = tags.Release
	TagMilestone = tags.Milestone
	TagCustom    = tags.Custom

	PolicyReject             = pool.Reject
	PolicyAllowWithWarnings  = pool.AllowWithWarnings
	PolicyAllow              = pool.Allow
)

// Options configures a new Engine.
type Options struct {
	// WorkingCommitTTL overrides workingcache.DefaultTTL.
	WorkingCommitTTL time.Duration
	// FlushLockPath, when set, serializes Flush across processes sharing
	// one database file (internal/workingcache).
	FlushLockPath string
	// CrossBranchPolicy governs how a relationship selection's
	// statically-named ids that fall outside the resolved pool are
	// treated (internal/pool). The zero value is pool.Reject; set this
	// explicitly to relax it.
	CrossBranchPolicy pool.CrossBranchPolicy
	// Solver overrides the default internal/ilp.BranchAndBoundSolver.
	Solver ilp.Solver
}

// Engine is the versioning engine + solver wired against one database
// connection.
type Engine struct {
	store    *sqlstore.Store
	objects  *objectstore.Store
	branches *branchstore.Registry
	working  *workingcache.Store
	tags     *tags.Store
	solver   ilp.Solver
	policy   pool.CrossBranchPolicy
}

// Open opens (creating if necessary) a sqlite-backed Engine at path. Use
// ":memory:" for an ephemeral in-process database.
func Open(ctx context.Context, path string, opts Options) (*Engine, error) {
	db, err := sqlstore.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	store := sqlstore.New(db)
	return newEngine(store, opts), nil
}

func newEngine(store *sqlstore.Store, opts Options) *Engine {
	solver := opts.Solver
	if solver == nil {
		solver = ilp.NewBranchAndBoundSolver()
	}
	return &Engine{
		store:    store,
		objects:  objectstore.New(store),
		branches: branchstore.New(store),
		working:  workingcache.New(store, opts.WorkingCommitTTL, opts.FlushLockPath),
		tags:     tags.New(store, store),
		solver:   solver,
		policy:   opts.CrossBranchPolicy,
	}
}

// Close releases the underlying database connection, flushing any
// pending working-commit cache writes first.
func (e *Engine) Close(ctx context.Context) error {
	if err := e.working.Flush(ctx); err != nil {
		return err
	}
	return e.store.DB().Close()
}

// CreateDatabase provisions a new database with an initial empty commit
// on its default branch.
func (e *Engine) CreateDatabase(ctx context.Context, name, defaultBranch, author string) (model.Database, error) {
	if defaultBranch == "" {
		defaultBranch = "main"
	}
	db := model.Database{
		Id:                model.NewId(),
		Name:              name,
		CreatedAt:         time.Now().UTC(),
		DefaultBranchName: defaultBranch,
	}
	if err := e.store.CreateDatabase(ctx, db); err != nil {
		return model.Database{}, err
	}

	initial, err := objectstore.CreateInitial(ctx, e.objects, db.Id, author)
	if err != nil {
		return model.Database{}, err
	}
	branch := model.Branch{
		DatabaseId:        db.Id,
		Name:              defaultBranch,
		CurrentCommitHash: initial.Hash,
		Status:            model.BranchActive,
		CreatedAt:         db.CreatedAt,
		Author:            author,
	}
	if err := e.branches.Upsert(ctx, branch); err != nil {
		return model.Database{}, err
	}
	return db, nil
}

// GetDatabase fetches a database by id.
func (e *Engine) GetDatabase(ctx context.Context, id model.Id) (model.Database, error) {
	d, ok, err := e.store.GetDatabase(ctx, id)
	if err != nil {
		return model.Database{}, err
	}
	if !ok {
		return model.Database{}, apperr.New(apperr.NotFound, "database %s not found", id)
	}
	return d, nil
}

// ListDatabases returns every known database.
func (e *Engine) ListDatabases(ctx context.Context) ([]model.Database, error) {
	return e.store.ListDatabases(ctx)
}

// CreateBranch branches off an existing branch's current head (spec.md
// section 4.2).
func (e *Engine) CreateBranch(ctx context.Context, dbId model.Id, name, fromBranch, author string) (model.Branch, error) {
	parent, err := e.branches.Get(ctx, dbId, fromBranch)
	if err != nil {
		return model.Branch{}, err
	}
	branch := model.Branch{
		DatabaseId:        dbId,
		Name:              name,
		ParentBranchName:  fromBranch,
		CurrentCommitHash: parent.CurrentCommitHash,
		Status:            model.BranchActive,
		CreatedAt:         time.Now().UTC(),
		Author:            author,
	}
	if err := e.branches.Upsert(ctx, branch); err != nil {
		return model.Branch{}, err
	}
	return branch, nil
}

// GetBranch fetches a branch by (databaseId, name).
func (e *Engine) GetBranch(ctx context.Context, dbId model.Id, name string) (model.Branch, error) {
	return e.branches.Get(ctx, dbId, name)
}

// ListBranches returns every branch owned by a database.
func (e *Engine) ListBranches(ctx context.Context, dbId model.Id) ([]model.Branch, error) {
	return e.branches.ListForDatabase(ctx, dbId)
}

// ArchiveBranch marks a branch archived so it becomes eligible for
// deletion without force (spec.md section 4.2).
func (e *Engine) ArchiveBranch(ctx context.Context, dbId model.Id, name string) error {
	b, err := e.branches.Get(ctx, dbId, name)
	if err != nil {
		return err
	}
	b.Status = model.BranchArchived
	return e.branches.Upsert(ctx, b)
}

// DeleteBranch removes a branch; force bypasses the merged-or-archived
// precondition.
func (e *Engine) DeleteBranch(ctx context.Context, dbId model.Id, name string, force bool) error {
	return e.branches.Delete(ctx, dbId, name, force)
}

// BeginWork opens (or resumes) the active working commit for a branch.
func (e *Engine) BeginWork(ctx context.Context, dbId model.Id, branchName, author string) (model.WorkingCommit, error) {
	if existing, ok, err := e.working.GetActiveForBranch(ctx, dbId, branchName); err != nil {
		return model.WorkingCommit{}, err
	} else if ok {
		return existing, nil
	}
	branch, err := e.branches.Get(ctx, dbId, branchName)
	if err != nil {
		return model.WorkingCommit{}, err
	}
	return e.working.Create(ctx, e.objects, branch, author)
}

// GetWorkingCommit fetches a working commit by id.
func (e *Engine) GetWorkingCommit(ctx context.Context, id model.Id) (model.WorkingCommit, error) {
	return e.working.Get(ctx, id)
}

// UpdateWorkingCommit persists edits to a working commit's staged schema
// and instances.
func (e *Engine) UpdateWorkingCommit(ctx context.Context, wc model.WorkingCommit) error {
	return e.working.Update(ctx, wc)
}

// AbandonWorkingCommit discards a working commit without creating a
// commit from it.
func (e *Engine) AbandonWorkingCommit(ctx context.Context, id model.Id) error {
	return e.working.Delete(ctx, id)
}

// ValidateWorkingCommit runs the static C10 checks (spec.md section 4.9)
// over a working commit's staged payload without committing it.
func (e *Engine) ValidateWorkingCommit(ctx context.Context, id model.Id) (validate.Report, error) {
	wc, err := e.working.Get(ctx, id)
	if err != nil {
		return validate.Report{}, err
	}
	return validate.ValidateBranch(wc.ToCommitData()), nil
}

// Commit validates and converts a working commit into an immutable
// Commit, advancing its branch head (spec.md section 4.1/4.3).
func (e *Engine) Commit(ctx context.Context, workingCommitId model.Id, message string) (model.Commit, error) {
	wc, err := e.working.Get(ctx, workingCommitId)
	if err != nil {
		return model.Commit{}, err
	}
	if wc.Status != model.WorkingActive {
		return model.Commit{}, apperr.New(apperr.Conflict, "working commit %s is not active", wc.Id)
	}

	data := wc.ToCommitData()
	report := validate.ValidateBranch(data)
	if !report.Valid {
		return model.Commit{}, apperr.New(apperr.Validation, "working commit %s failed validation: %d error(s)", wc.Id, len(report.Errors))
	}

	commit, err := objectstore.Put(ctx, e.objects, wc.DatabaseId, wc.BasedOnHash, wc.Author, message, data)
	if err != nil {
		return model.Commit{}, err
	}

	isAncestor := func(ancestor, descendant string) (bool, error) {
		return rebase.IsAncestor(ctx, e.objects, ancestor, descendant)
	}
	if _, err := e.branches.AdvanceHead(ctx, wc.DatabaseId, wc.BranchName, commit.Hash, isAncestor, false); err != nil {
		return model.Commit{}, err
	}
	if err := e.working.Delete(ctx, wc.Id); err != nil {
		return model.Commit{}, err
	}
	return commit, nil
}

// GetCommit fetches commit metadata by hash.
func (e *Engine) GetCommit(ctx context.Context, hash string) (model.Commit, error) {
	return e.objects.Get(ctx, hash)
}

// GetCommitData decodes a commit's schema+instances payload.
func (e *Engine) GetCommitData(ctx context.Context, hash string) (model.CommitData, error) {
	return e.objects.Data(ctx, hash)
}

// Merge three-way merges sourceBranch into targetBranch, creating a
// merge commit on targetBranch and marking sourceBranch merged (spec.md
// section 4.2/5). Unresolved conflicts (no explicit resolution, default
// UseLeft with source as left) are still applied to the in-memory result
// and returned for the caller to inspect, but with force=false a merge
// carrying any unresolved conflict, or whose resulting schema+instances
// fail C10 validation, is rejected without touching stored state — no
// commit, no head advance, no source branch status change (spec.md
// section 4.4/7). Passing force=true commits anyway, applying the same
// prefer-left defaults.
func (e *Engine) Merge(ctx context.Context, dbId model.Id, sourceBranch, targetBranch, author, message string, resolutions []diffmerge.ConflictResolution, force bool) (model.Commit, []diffmerge.Conflict, error) {
	source, err := e.branches.Get(ctx, dbId, sourceBranch)
	if err != nil {
		return model.Commit{}, nil, err
	}
	target, err := e.branches.Get(ctx, dbId, targetBranch)
	if err != nil {
		return model.Commit{}, nil, err
	}

	base, err := rebase.FindCommonBase(ctx, e.objects, source.CurrentCommitHash, target.CurrentCommitHash)
	if err != nil {
		return model.Commit{}, nil, err
	}
	var baseData model.CommitData
	if base != "" {
		if baseData, err = e.objects.Data(ctx, base); err != nil {
			return model.Commit{}, nil, err
		}
	}
	sourceData, err := e.objects.Data(ctx, source.CurrentCommitHash)
	if err != nil {
		return model.Commit{}, nil, err
	}
	targetData, err := e.objects.Data(ctx, target.CurrentCommitHash)
	if err != nil {
		return model.Commit{}, nil, err
	}

	result, err := diffmerge.Merge(baseData, sourceData, targetData, resolutions)
	if err != nil {
		return model.Commit{}, nil, err
	}

	if !force && diffmerge.HasBlockingConflicts(result.Conflicts, resolutions) {
		return model.Commit{}, result.Conflicts, apperr.New(apperr.Conflict, "merge of %s into %s left %d conflict(s) unresolved", sourceBranch, targetBranch, len(result.Conflicts))
	}

	report := validate.ValidateBranch(result.Data)
	if !report.Valid && !force {
		return model.Commit{}, result.Conflicts, apperr.New(apperr.Validation, "merge of %s into %s failed validation: %d error(s)", sourceBranch, targetBranch, len(report.Errors))
	}

	msg := message
	if msg == "" {
		msg = "merge " + sourceBranch + " into " + targetBranch
	}
	commit, err := objectstore.Put(ctx, e.objects, dbId, target.CurrentCommitHash, author, msg, result.Data)
	if err != nil {
		return model.Commit{}, nil, err
	}

	isAncestor := func(ancestor, descendant string) (bool, error) {
		return rebase.IsAncestor(ctx, e.objects, ancestor, descendant)
	}
	if _, err := e.branches.AdvanceHead(ctx, dbId, targetBranch, commit.Hash, isAncestor, false); err != nil {
		return model.Commit{}, nil, err
	}

	source.Status = model.BranchMerged
	if err := e.branches.Upsert(ctx, source); err != nil {
		return model.Commit{}, nil, err
	}

	return commit, result.Conflicts, nil
}

// ValidateRebase checks whether branchName can be replayed onto onto's
// current head.
func (e *Engine) ValidateRebase(ctx context.Context, dbId model.Id, branchName, onto string) error {
	branch, err := e.branches.Get(ctx, dbId, branchName)
	if err != nil {
		return err
	}
	target, err := e.branches.Get(ctx, dbId, onto)
	if err != nil {
		return err
	}
	return rebase.ValidateRebase(ctx, e.objects, branch.CurrentCommitHash, target.CurrentCommitHash)
}

// Rebase replays branchName's changes onto onto's current head,
// advancing branchName to the resulting commit (spec.md section 5:
// "force" semantics apply to every conflict left unresolved).
func (e *Engine) Rebase(ctx context.Context, dbId model.Id, branchName, onto, author, message string, resolutions []diffmerge.ConflictResolution) (model.Commit, []diffmerge.Conflict, error) {
	branch, err := e.branches.Get(ctx, dbId, branchName)
	if err != nil {
		return model.Commit{}, nil, err
	}
	target, err := e.branches.Get(ctx, dbId, onto)
	if err != nil {
		return model.Commit{}, nil, err
	}

	result, err := rebase.Rebase(ctx, e.objects, branch.CurrentCommitHash, target.CurrentCommitHash, resolutions)
	if err != nil {
		return model.Commit{}, nil, err
	}

	msg := message
	if msg == "" {
		msg = "rebase " + branchName + " onto " + onto
	}
	commit, err := objectstore.Put(ctx, e.objects, dbId, target.CurrentCommitHash, author, msg, result.Data)
	if err != nil {
		return model.Commit{}, nil, err
	}

	isAncestor := func(ancestor, descendant string) (bool, error) {
		return rebase.IsAncestor(ctx, e.objects, ancestor, descendant)
	}
	// Rebase rewrites branchName's history, so force=true: its prior
	// head is expected to no longer be an ancestor of the replayed
	// result (spec.md section 5).
	if _, err := e.branches.AdvanceHead(ctx, dbId, branchName, commit.Hash, isAncestor, true); err != nil {
		return model.Commit{}, nil, err
	}
	return commit, result.Conflicts, nil
}

// Solve runs the Collect -> Prepare -> Solve -> Derived pipeline against
// a branch's current commit (spec.md section 4.8).
func (e *Engine) Solve(ctx context.Context, dbId model.Id, branchName string, targetId model.Id, objectives solve.Objectives, includeMetadata bool) (solve.ConfigurationArtifact, error) {
	branch, err := e.branches.Get(ctx, dbId, branchName)
	if err != nil {
		return solve.ConfigurationArtifact{}, err
	}
	data, err := e.objects.Data(ctx, branch.CurrentCommitHash)
	if err != nil {
		return solve.ConfigurationArtifact{}, err
	}
	req := solve.Request{
		Context: solve.ResolutionContext{
			DatabaseId: dbId,
			BranchName: branchName,
			CommitHash: branch.CurrentCommitHash,
			TargetId:   targetId,
		},
		Schema:          data.Schema,
		Universe:        pool.NewUniverse(data.Instances, data.Schema.Classes),
		TargetId:        targetId,
		Objectives:      objectives,
		Policy:          e.policy,
		IncludeMetadata: includeMetadata,
	}
	return solve.Solve(ctx, e.solver, req)
}

// SolveWorkingCommit runs the same pipeline against a working commit's
// staged (not-yet-committed) payload, so callers can preview a solve
// before committing.
func (e *Engine) SolveWorkingCommit(ctx context.Context, workingCommitId model.Id, targetId model.Id, objectives solve.Objectives, includeMetadata bool) (solve.ConfigurationArtifact, error) {
	wc, err := e.working.Get(ctx, workingCommitId)
	if err != nil {
		return solve.ConfigurationArtifact{}, err
	}
	req := solve.Request{
		Context: solve.ResolutionContext{
			DatabaseId: wc.DatabaseId,
			BranchName: wc.BranchName,
			CommitHash: wc.BasedOnHash,
			TargetId:   targetId,
		},
		Schema:          wc.SchemaData,
		Universe:        pool.NewUniverse(wc.InstancesData, wc.SchemaData.Classes),
		TargetId:        targetId,
		Objectives:      objectives,
		Policy:          e.policy,
		IncludeMetadata: includeMetadata,
	}
	return solve.Solve(ctx, e.solver, req)
}

// BatchSolve reuses one Collect+Prepare pass across several named
// objective sets (spec.md section 4.8, "Batch solve").
func (e *Engine) BatchSolve(ctx context.Context, dbId model.Id, branchName string, targetId model.Id, objectiveSets map[string]solve.Objectives, includeMetadata bool) (map[string]solve.ConfigurationArtifact, error) {
	branch, err := e.branches.Get(ctx, dbId, branchName)
	if err != nil {
		return nil, err
	}
	data, err := e.objects.Data(ctx, branch.CurrentCommitHash)
	if err != nil {
		return nil, err
	}
	req := solve.Request{
		Context: solve.ResolutionContext{
			DatabaseId: dbId,
			BranchName: branchName,
			CommitHash: branch.CurrentCommitHash,
			TargetId:   targetId,
		},
		Schema:          data.Schema,
		Universe:        pool.NewUniverse(data.Instances, data.Schema.Classes),
		TargetId:        targetId,
		Policy:          e.policy,
		IncludeMetadata: includeMetadata,
	}
	return solve.BatchSolve(ctx, e.solver, req, objectiveSets)
}

// TagCommit records a named tag against a commit (spec.md's supplemented
// tagging feature, internal/tags).
func (e *Engine) TagCommit(ctx context.Context, t tags.CommitTag) (tags.CommitTag, error) {
	return e.tags.Create(ctx, t)
}

// ListTags returns every tag recorded against a commit.
func (e *Engine) ListTags(ctx context.Context, commitHash string) ([]tags.CommitTag, error) {
	return e.tags.ListForCommit(ctx, commitHash)
}

// DeleteTag removes a tag by id.
func (e *Engine) DeleteTag(ctx context.Context, id int64) error {
	return e.tags.Delete(ctx, id)
}

// SearchTags finds tags matching a query.
func (e *Engine) SearchTags(ctx context.Context, q tags.Query) ([]tags.CommitTag, error) {
	return e.tags.Search(ctx, q)
}

// FlushWorkingCommits writes every dirty working-commit cache entry to
// the backend (spec.md section 9: explicit or shutdown flush).
func (e *Engine) FlushWorkingCommits(ctx context.Context) error {
	return e.working.Flush(ctx)
}

// EvictExpiredWorkingCommits drops cache entries past their TTL; a
// best-effort memory hook, never required for correctness.
func (e *Engine) EvictExpiredWorkingCommits() {
	e.working.EvictExpired()
}
