// Package branchstore implements C3, the branch registry: named refs
// (database_id, branch_name) -> current_commit_hash, plus parent branch
// name and lifecycle status.
//
// Grounded on BeadsLog internal/syncbranch/syncbranch.go's branch-name
// validation (regex, reserved names) generalized from a single
// configured sync branch to the full registry of arbitrary named
// branches a database owns.
package branchstore

import (
	"context"
	"regexp"

	"github.com/ourstudio-se/oatdb-go/internal/apperr"
	"github.com/ourstudio-se/oatdb-go/internal/model"
)

// branchNamePattern mirrors git-check-ref-format: must start and end
// with an alphanumeric, and may contain .-_/ in the middle.
var branchNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._/-]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)

var doubleDot = regexp.MustCompile(`\.\.`)

// ValidateBranchName checks a branch name against git-like naming rules.
func ValidateBranchName(name string) error {
	if name == "" {
		return apperr.New(apperr.Validation, "branch name must not be empty")
	}
	if len(name) > 255 {
		return apperr.New(apperr.Validation, "branch name too long (max 255 characters)")
	}
	if name == "HEAD" || name == "." || name == ".." {
		return apperr.New(apperr.Validation, "invalid branch name: %q is reserved", name)
	}
	if doubleDot.MatchString(name) {
		return apperr.New(apperr.Validation, "invalid branch name: cannot contain '..'")
	}
	if name[0] == '/' || name[len(name)-1] == '/' {
		return apperr.New(apperr.Validation, "invalid branch name: cannot start or end with '/'")
	}
	if !branchNamePattern.MatchString(name) {
		return apperr.New(apperr.Validation, "invalid branch name: must start and end with alphanumeric, can contain .-_/ in middle")
	}
	return nil
}

// Backend is the durable row store C3 delegates to; maps onto the
// `branches` table from spec.md section 6, primary keyed by
// (database_id, name).
type Backend interface {
	GetBranch(ctx context.Context, dbId model.Id, name string) (model.Branch, bool, error)
	ListBranches(ctx context.Context, dbId model.Id) ([]model.Branch, error)
	UpsertBranch(ctx context.Context, b model.Branch) error
	DeleteBranch(ctx context.Context, dbId model.Id, name string) error
	GetDatabase(ctx context.Context, dbId model.Id) (model.Database, bool, error)
}

// Registry is the branch registry.
type Registry struct {
	backend Backend
}

func New(backend Backend) *Registry {
	return &Registry{backend: backend}
}

// Get fetches a single branch by (databaseId, name).
func (r *Registry) Get(ctx context.Context, dbId model.Id, name string) (model.Branch, error) {
	b, ok, err := r.backend.GetBranch(ctx, dbId, name)
	if err != nil {
		return model.Branch{}, err
	}
	if !ok {
		return model.Branch{}, apperr.New(apperr.NotFound, "branch %s/%s not found", dbId, name)
	}
	return b, nil
}

// ListForDatabase returns every branch owned by a database.
func (r *Registry) ListForDatabase(ctx context.Context, dbId model.Id) ([]model.Branch, error) {
	return r.backend.ListBranches(ctx, dbId)
}

// GetDefault fetches the database's default branch.
func (r *Registry) GetDefault(ctx context.Context, dbId model.Id) (model.Branch, error) {
	db, ok, err := r.backend.GetDatabase(ctx, dbId)
	if err != nil {
		return model.Branch{}, err
	}
	if !ok {
		return model.Branch{}, apperr.New(apperr.NotFound, "database %s not found", dbId)
	}
	return r.Get(ctx, dbId, db.DefaultBranchName)
}

// Upsert creates or replaces a branch; idempotent on (DatabaseId, Name).
// The branch's CurrentCommitHash must be empty or reference a commit
// belonging to the same database — that invariant is enforced by the
// caller (the versioning engine façade), which alone has access to the
// commit store; the registry itself only enforces name validity.
func (r *Registry) Upsert(ctx context.Context, b model.Branch) error {
	if err := ValidateBranchName(b.Name); err != nil {
		return err
	}
	if b.ParentBranchName != "" {
		if _, err := r.Get(ctx, b.DatabaseId, b.ParentBranchName); err != nil {
			return apperr.Wrap(apperr.Validation, err, "parent branch %s", b.ParentBranchName)
		}
	}
	return r.backend.UpsertBranch(ctx, b)
}

// Delete removes a branch. Non-force deletion requires the branch be
// merged or archived (spec.md section 3); force is permitted only by
// merge/rebase cleanup paths, signalled by the caller setting force=true.
func (r *Registry) Delete(ctx context.Context, dbId model.Id, name string, force bool) error {
	b, err := r.Get(ctx, dbId, name)
	if err != nil {
		return err
	}
	if !force && !b.DeletableWithoutForce() {
		return apperr.New(apperr.Conflict, "branch %s must be merged or archived before deletion (use force)", name)
	}
	return r.backend.DeleteBranch(ctx, dbId, name)
}

// AdvanceHead moves a branch's CurrentCommitHash forward. isAncestor
// reports whether the branch's previous head is an ancestor of newHash;
// when it is not and force is false, the advance is
// rejected (spec.md section 5 ordering guarantees). Force-push bypasses
// this with an audit issue, represented here as a non-nil returned
// *ForcePushAudit.
func (r *Registry) AdvanceHead(ctx context.Context, dbId model.Id, name, newHash string, isAncestor func(ancestor, descendant string) (bool, error), force bool) (*ForcePushAudit, error) {
	b, err := r.Get(ctx, dbId, name)
	if err != nil {
		return nil, err
	}
	if !b.AcceptsWrites() {
		return nil, apperr.New(apperr.Conflict, "branch %s is not active", name)
	}

	var audit *ForcePushAudit
	if b.CurrentCommitHash != "" && b.CurrentCommitHash != newHash {
		ok, err := isAncestor(b.CurrentCommitHash, newHash)
		if err != nil {
			return nil, err
		}
		if !ok {
			if !force {
				return nil, apperr.New(apperr.Conflict, "branch %s head %s is not an ancestor of %s", name, b.CurrentCommitHash, newHash)
			}
			audit = &ForcePushAudit{Branch: name, PreviousHash: b.CurrentCommitHash, NewHash: newHash}
		}
	}

	b.CurrentCommitHash = newHash
	if err := r.backend.UpsertBranch(ctx, b); err != nil {
		return nil, err
	}
	return audit, nil
}

// ForcePushAudit records that a branch head advance bypassed the normal
// ancestry check (spec.md section 5: "force-push cases that bypass this
// with an audit issue").
type ForcePushAudit struct {
	Branch       string
	PreviousHash string
	NewHash      string
}
