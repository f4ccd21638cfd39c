package model

import "time"

// Database is the top-level namespace owning a set of branches and
// commits.
type Database struct {
	Id                Id        `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	DefaultBranchName string    `json:"default_branch_name"`
}

// BranchStatus is the lifecycle state of a Branch.
type BranchStatus string

const (
	BranchActive   BranchStatus = "active"
	BranchMerged   BranchStatus = "merged"
	BranchArchived BranchStatus = "archived"
)

// Branch is a named, mutable reference to a commit within a database.
// Keyed by (DatabaseId, Name).
type Branch struct {
	DatabaseId        Id           `json:"database_id"`
	Name              string       `json:"name"`
	Description       string       `json:"description,omitempty"`
	ParentBranchName  string       `json:"parent_branch_name,omitempty"`
	CurrentCommitHash string       `json:"current_commit_hash"`
	CommitMessage     string       `json:"commit_message,omitempty"`
	Author            string       `json:"author,omitempty"`
	Status            BranchStatus `json:"status"`
	CreatedAt         time.Time    `json:"created_at"`
}

// Key identifies a branch within its database's registry.
type BranchKey struct {
	DatabaseId Id
	Name       string
}

func (b Branch) Key() BranchKey { return BranchKey{DatabaseId: b.DatabaseId, Name: b.Name} }

// AcceptsWrites reports whether the branch's head may be advanced to a
// new commit (by a commit, as a merge target, or by a rebase); only
// active branches may.
func (b Branch) AcceptsWrites() bool { return b.Status == BranchActive }

// DeletableWithoutForce reports whether the branch may be deleted without
// the caller setting an explicit force flag.
func (b Branch) DeletableWithoutForce() bool {
	return b.Status == BranchMerged || b.Status == BranchArchived
}
