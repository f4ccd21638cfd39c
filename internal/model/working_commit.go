package model

import "time"

// WorkingCommitStatus is the lifecycle state of a WorkingCommit.
type WorkingCommitStatus string

const (
	WorkingActive     WorkingCommitStatus = "active"
	WorkingCommitting WorkingCommitStatus = "committing"
	WorkingAbandoned  WorkingCommitStatus = "abandoned"
)

// MergeState records in-progress merge/rebase bookkeeping attached to a
// WorkingCommit, when the working commit was created to stage a merge
// resolution rather than ordinary edits.
type MergeState struct {
	SourceBranch string `json:"source_branch,omitempty"`
	BaseHash     string `json:"base_hash,omitempty"`
	TargetHash   string `json:"target_hash,omitempty"`
}

// WorkingCommit is the mutable staging area on a branch. At most one
// active WorkingCommit may exist per (DatabaseId, BranchName). On commit
// it is converted into an immutable Commit whose ParentHash is
// BasedOnHash.
type WorkingCommit struct {
	Id            Id                  `json:"id"`
	DatabaseId    Id                  `json:"database_id"`
	BranchName    string              `json:"branch_name,omitempty"`
	BasedOnHash   string              `json:"based_on_hash,omitempty"`
	Author        string              `json:"author,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	SchemaData    Schema              `json:"schema_data"`
	InstancesData []Instance          `json:"instances_data"`
	Status        WorkingCommitStatus `json:"status"`
	MergeState    *MergeState         `json:"merge_state,omitempty"`
}

// ToCommitData snapshots the working commit's mutable payload into the
// immutable shape a Commit stores.
func (w WorkingCommit) ToCommitData() CommitData {
	return CommitData{Schema: w.SchemaData, Instances: w.InstancesData}
}
