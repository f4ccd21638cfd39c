// Package rebase implements C6: replaying a branch's changes onto a new
// base commit.
//
// Grounded on BeadsLog internal/syncbranch/integrity.go's CheckForcePush,
// which walks git ancestry via `git merge-base --is-ancestor` to decide
// whether a remote ref moved by fast-forward or by history rewrite. The
// same ancestor-walk shape is reused here, but over this module's own
// parent-hash chain in the object store instead of shelling out to git,
// since commits here are a data structure we already own rather than an
// external git repository.
package rebase

import (
	"context"

	"github.com/ourstudio-se/oatdb-go/internal/apperr"
	"github.com/ourstudio-se/oatdb-go/internal/diffmerge"
	"github.com/ourstudio-se/oatdb-go/internal/model"
)

// CommitSource is the read side of the commit object store a rebase
// walks and replays against (satisfied by *objectstore.Store).
type CommitSource interface {
	Get(ctx context.Context, hash string) (model.Commit, error)
	Data(ctx context.Context, hash string) (model.CommitData, error)
}

// getOrNotFound normalizes a CommitSource miss (apperr.KindNotFound) into
// (model.Commit{}, false, nil) so callers can branch without inspecting
// error kinds at every call site.
func getOrNotFound(ctx context.Context, source CommitSource, hash string) (model.Commit, bool, error) {
	c, err := source.Get(ctx, hash)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return model.Commit{}, false, nil
		}
		return model.Commit{}, false, err
	}
	return c, true, nil
}

// Ancestors returns the set of hashes reachable by following ParentHash
// from hash up to and including the root commit.
func Ancestors(ctx context.Context, source CommitSource, hash string) (map[string]bool, error) {
	out := make(map[string]bool)
	cur := hash
	for cur != "" {
		if out[cur] {
			return nil, apperr.New(apperr.Corruption, "cycle detected in commit ancestry at %s", cur)
		}
		out[cur] = true
		c, ok, err := getOrNotFound(ctx, source, cur)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.New(apperr.NotFound, "commit %s not found while walking ancestry", cur)
		}
		cur = c.ParentHash
	}
	return out, nil
}

// IsAncestor reports whether ancestor's hash appears in descendant's
// parent chain (or equals it).
func IsAncestor(ctx context.Context, source CommitSource, ancestor, descendant string) (bool, error) {
	if ancestor == "" {
		return true, nil // the empty root predates every commit
	}
	cur := descendant
	seen := make(map[string]bool)
	for cur != "" {
		if cur == ancestor {
			return true, nil
		}
		if seen[cur] {
			return false, apperr.New(apperr.Corruption, "cycle detected in commit ancestry at %s", cur)
		}
		seen[cur] = true
		c, ok, err := getOrNotFound(ctx, source, cur)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, apperr.New(apperr.NotFound, "commit %s not found while walking ancestry", cur)
		}
		cur = c.ParentHash
	}
	return false, nil
}

// FindCommonBase walks both chains to the first hash reachable from
// both a and b (the merge-base). Returns "" if the only common ancestor
// is the empty root (i.e. a and b share no recorded commit).
func FindCommonBase(ctx context.Context, source CommitSource, a, b string) (string, error) {
	aAncestors, err := Ancestors(ctx, source, a)
	if err != nil {
		return "", err
	}
	cur := b
	for cur != "" {
		if aAncestors[cur] {
			return cur, nil
		}
		c, ok, err := getOrNotFound(ctx, source, cur)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", apperr.New(apperr.NotFound, "commit %s not found while walking ancestry", cur)
		}
		cur = c.ParentHash
	}
	return "", nil
}

// CommitsBetween returns the commits strictly after `from` up to and
// including `to`, oldest first — the sequence a rebase replays.
func CommitsBetween(ctx context.Context, source CommitSource, from, to string) ([]model.Commit, error) {
	var chain []model.Commit
	cur := to
	for cur != "" && cur != from {
		c, ok, err := getOrNotFound(ctx, source, cur)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.New(apperr.NotFound, "commit %s not found while collecting rebase chain", cur)
		}
		chain = append(chain, c)
		cur = c.ParentHash
	}
	if cur == "" && from != "" {
		return nil, apperr.New(apperr.Conflict, "%s is not an ancestor of %s", from, to)
	}
	// reverse to oldest-first
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Result is the outcome of replaying a branch onto a new base.
type Result struct {
	Data      model.CommitData
	Conflicts []diffmerge.Conflict
	BaseHash  string
}

// Rebase replays branchHash's changes (relative to its common ancestor
// with ontoHash) on top of ontoHash. Conflicts are resolved the same way
// diffmerge.Merge resolves them, except the default when no explicit
// resolution is given favors the replayed branch's own changes rather
// than the target's — "force" in spec.md section 5 means accepting this
// default for every remaining conflict, the mirror image of
// internal/diffmerge's prefer-left merge default. That asymmetry falls
// out for free here: branchHash's data is passed as Merge's left operand
// and onto's data as right, so Merge's ordinary prefer-left default
// becomes rebase's prefer-incoming default without any extra flag.
func Rebase(ctx context.Context, source CommitSource, branchHash, ontoHash string, resolutions []diffmerge.ConflictResolution) (Result, error) {
	base, err := FindCommonBase(ctx, source, branchHash, ontoHash)
	if err != nil {
		return Result{}, err
	}

	var baseData model.CommitData
	if base != "" {
		baseData, err = source.Data(ctx, base)
		if err != nil {
			return Result{}, err
		}
	}

	branchData, err := source.Data(ctx, branchHash)
	if err != nil {
		return Result{}, err
	}
	ontoData, err := source.Data(ctx, ontoHash)
	if err != nil {
		return Result{}, err
	}

	merged, err := diffmerge.Merge(baseData, branchData, ontoData, resolutions)
	if err != nil {
		return Result{}, err
	}
	return Result{Data: merged.Data, Conflicts: merged.Conflicts, BaseHash: base}, nil
}

// ValidateRebase checks the preconditions spec.md section 5 requires
// before a rebase may proceed: both hashes must resolve, and ontoHash
// must not already be an ancestor of branchHash (nothing to replay).
func ValidateRebase(ctx context.Context, source CommitSource, branchHash, ontoHash string) error {
	if _, ok, err := getOrNotFound(ctx, source, branchHash); err != nil {
		return err
	} else if !ok {
		return apperr.New(apperr.NotFound, "branch commit %s not found", branchHash)
	}
	if _, ok, err := getOrNotFound(ctx, source, ontoHash); err != nil {
		return err
	} else if !ok {
		return apperr.New(apperr.NotFound, "target commit %s not found", ontoHash)
	}

	alreadyCurrent, err := IsAncestor(ctx, source, ontoHash, branchHash)
	if err != nil {
		return err
	}
	if alreadyCurrent {
		return apperr.New(apperr.Conflict, "%s is already based on %s, nothing to rebase", branchHash, ontoHash)
	}
	return nil
}
