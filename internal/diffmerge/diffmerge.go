package diffmerge

import (
	"reflect"
	"strings"

	"github.com/ourstudio-se/oatdb-go/internal/model"
)

// ChangeKind classifies how a field path differs between two snapshots.
type ChangeKind string

const (
	Added    ChangeKind = "added"
	Removed  ChangeKind = "removed"
	Modified ChangeKind = "modified"
)

// FieldChange is one field-path-level difference between a base snapshot
// and another snapshot.
type FieldChange struct {
	Path   string
	Kind   ChangeKind
	Before any
	After  any
}

// Diff computes the field-path-level differences from base to other.
// Classes and instances are addressed by content id (so a renamed id
// reads as a remove+add, not a modify — ids are immutable handles by
// design), and within each, every JSON field is addressed by its nested
// path, e.g. "instances/<id>/properties/color".
func Diff(base, other model.CommitData) ([]FieldChange, error) {
	baseTree, err := toTree(base)
	if err != nil {
		return nil, err
	}
	otherTree, err := toTree(other)
	if err != nil {
		return nil, err
	}
	var changes []FieldChange
	diffValue("", baseTree, otherTree, &changes)
	return changes, nil
}

func diffValue(path string, base, other any, out *[]FieldChange) {
	baseMap, baseIsMap := base.(map[string]any)
	otherMap, otherIsMap := other.(map[string]any)

	if baseIsMap && otherIsMap {
		seen := make(map[string]bool, len(baseMap)+len(otherMap))
		for k := range baseMap {
			seen[k] = true
		}
		for k := range otherMap {
			seen[k] = true
		}
		for k := range seen {
			if model.IgnoredDiffFields[k] {
				continue
			}
			childPath := joinPath(path, k)
			bv, bok := baseMap[k]
			ov, ook := otherMap[k]
			switch {
			case bok && ook:
				diffValue(childPath, bv, ov, out)
			case bok && !ook:
				*out = append(*out, FieldChange{Path: childPath, Kind: Removed, Before: bv})
			case !bok && ook:
				*out = append(*out, FieldChange{Path: childPath, Kind: Added, After: ov})
			}
		}
		return
	}

	if !reflect.DeepEqual(base, other) {
		*out = append(*out, FieldChange{Path: path, Kind: Modified, Before: base, After: other})
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "/" + key
}

// ancestorIn reports whether any strict ancestor of path (by "/"
// segments) is a key of removed, returning the shallowest such ancestor.
func ancestorIn(path string, removed map[string]FieldChange) (string, bool) {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], "/")
		if _, ok := removed[prefix]; ok {
			return prefix, true
		}
	}
	return "", false
}

func changesByPath(changes []FieldChange) map[string]FieldChange {
	m := make(map[string]FieldChange, len(changes))
	for _, c := range changes {
		m[c.Path] = c
	}
	return m
}

func removedOnly(changes map[string]FieldChange) map[string]FieldChange {
	out := make(map[string]FieldChange)
	for p, c := range changes {
		if c.Kind == Removed {
			out[p] = c
		}
	}
	return out
}
