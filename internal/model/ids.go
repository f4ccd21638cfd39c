// Package model holds the versioned configuration database's data model:
// Database, Branch, Commit, WorkingCommit, Schema, ClassDef, Instance, and
// the value types (Domain, Quantifier, PropertyValue, RelationshipSelection,
// InstanceFilter) that compose them.
package model

import "github.com/google/uuid"

// Id is an opaque, UUID-shaped identifier.
type Id string

// NewId generates a fresh random identifier.
func NewId() Id {
	return Id(uuid.NewString())
}

// Empty reports whether the id has never been assigned.
func (id Id) Empty() bool { return id == "" }

func (id Id) String() string { return string(id) }
