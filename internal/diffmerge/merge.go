package diffmerge

import (
	"reflect"

	"github.com/ourstudio-se/oatdb-go/internal/apperr"
	"github.com/ourstudio-se/oatdb-go/internal/model"
)

// ConflictKind classifies a three-way merge conflict the way spec.md
// section 5 names them.
type ConflictKind string

const (
	// AddAdd: the same field path is absent from base but present,
	// with different values, on both left and right.
	AddAdd ConflictKind = "add_add"
	// DeleteModify: one side deleted the field (or its containing
	// class/instance) while the other modified it.
	DeleteModify ConflictKind = "delete_modify"
	// ModifyModify: both sides changed an existing field to different
	// values.
	ModifyModify ConflictKind = "modify_modify"
)

// Conflict is one unresolved (or resolved-by-default) disagreement
// between left and right over a field path.
type Conflict struct {
	Path  string
	Kind  ConflictKind
	Base  any
	Left  any
	Right any
}

// ResolutionKind picks which side (or override) wins a Conflict.
type ResolutionKind int

const (
	UseLeft ResolutionKind = iota
	UseRight
	UseCustom
	Skip
)

// ConflictResolution is a caller-supplied override for one conflicting
// path. Without an explicit override, Merge defaults every conflict to
// UseLeft (spec.md section 5: "merge prefers left", the mirror image of
// rebase's prefer-incoming policy — see internal/rebase).
type ConflictResolution struct {
	Path       string
	Resolution ResolutionKind
	Custom     any
}

// MergeResult is the outcome of a three-way merge: the merged payload
// plus every conflict encountered, resolved or not.
type MergeResult struct {
	Data      model.CommitData
	Conflicts []Conflict
}

// Merge performs a three-way merge of left and right against their
// common base. Non-overlapping field-path changes are applied
// automatically; overlapping changes are recorded as Conflicts and
// resolved per resolutions (keyed by Conflict.Path), defaulting to
// UseLeft when no override is supplied for a given path.
func Merge(base, left, right model.CommitData, resolutions []ConflictResolution) (MergeResult, error) {
	resultTree, err := toTree(base)
	if err != nil {
		return MergeResult{}, err
	}
	leftTree, err := toTree(left)
	if err != nil {
		return MergeResult{}, err
	}
	rightTree, err := toTree(right)
	if err != nil {
		return MergeResult{}, err
	}

	leftChangesList, err := Diff(base, left)
	if err != nil {
		return MergeResult{}, err
	}
	rightChangesList, err := Diff(base, right)
	if err != nil {
		return MergeResult{}, err
	}
	leftChanges := changesByPath(leftChangesList)
	rightChanges := changesByPath(rightChangesList)
	removedLeft := removedOnly(leftChanges)
	removedRight := removedOnly(rightChanges)

	resByPath := make(map[string]ConflictResolution, len(resolutions))
	for _, r := range resolutions {
		resByPath[r.Path] = r
	}

	var conflicts []Conflict
	visited := make(map[string]bool)
	ancestorConflicted := make(map[string]bool)

	apply := func(path string, c FieldChange) {
		if c.Kind == Removed {
			deletePath(resultTree, path)
		} else {
			setPath(resultTree, path, c.After)
		}
	}

	resolve := func(conflict Conflict, leftVal any, leftIsRemoval bool, rightVal any, rightIsRemoval bool) {
		res, hasOverride := resByPath[conflict.Path]
		kind := UseLeft
		if hasOverride {
			kind = res.Resolution
		}
		switch kind {
		case UseLeft:
			if leftIsRemoval {
				deletePath(resultTree, conflict.Path)
			} else {
				setPath(resultTree, conflict.Path, leftVal)
			}
		case UseRight:
			if rightIsRemoval {
				deletePath(resultTree, conflict.Path)
			} else {
				setPath(resultTree, conflict.Path, rightVal)
			}
		case UseCustom:
			setPath(resultTree, conflict.Path, res.Custom)
		case Skip:
			// leave the base value in place
		}
		conflicts = append(conflicts, conflict)
	}

	// Pass 1: deletions on one side whose other side touched a
	// descendant path (DeleteModify at the container level).
	for path, rc := range rightChanges {
		if anc, ok := ancestorIn(path, removedLeft); ok {
			if !ancestorConflicted[anc] {
				ancestorConflicted[anc] = true
				rightVal, _ := getPath(rightTree, anc)
				baseVal, _ := getPath(resultTree, anc)
				conflict := Conflict{Path: anc, Kind: DeleteModify, Base: baseVal, Left: nil, Right: rightVal}
				resolve(conflict, nil, true, rightVal, false)
				visited[anc] = true
			}
			visited[path] = true
		}
		_ = rc
	}
	for path, lc := range leftChanges {
		if anc, ok := ancestorIn(path, removedRight); ok {
			if !ancestorConflicted[anc] {
				ancestorConflicted[anc] = true
				leftVal, _ := getPath(leftTree, anc)
				baseVal, _ := getPath(resultTree, anc)
				conflict := Conflict{Path: anc, Kind: DeleteModify, Base: baseVal, Left: leftVal, Right: nil}
				resolve(conflict, leftVal, false, nil, true)
				visited[anc] = true
			}
			visited[path] = true
		}
		_ = lc
	}

	// Pass 2: remaining per-path changes.
	allPaths := make(map[string]bool, len(leftChanges)+len(rightChanges))
	for p := range leftChanges {
		allPaths[p] = true
	}
	for p := range rightChanges {
		allPaths[p] = true
	}

	for path := range allPaths {
		if visited[path] {
			continue
		}
		lc, hasL := leftChanges[path]
		rc, hasR := rightChanges[path]

		switch {
		case hasL && !hasR:
			apply(path, lc)
		case hasR && !hasL:
			apply(path, rc)
		case hasL && hasR:
			if lc.Kind == rc.Kind && reflect.DeepEqual(lc.After, rc.After) {
				apply(path, lc)
				continue
			}
			var kind ConflictKind
			switch {
			case lc.Kind == Added && rc.Kind == Added:
				kind = AddAdd
			case lc.Kind == Removed || rc.Kind == Removed:
				kind = DeleteModify
			default:
				kind = ModifyModify
			}
			baseVal, _ := getPath(resultTree, path)
			conflict := Conflict{Path: path, Kind: kind, Base: baseVal, Left: lc.After, Right: rc.After}
			resolve(conflict, lc.After, lc.Kind == Removed, rc.After, rc.Kind == Removed)
		}
	}

	merged, err := fromTree(resultTree)
	if err != nil {
		return MergeResult{}, apperr.Wrap(apperr.Internal, err, "decode merged tree")
	}
	return MergeResult{Data: merged, Conflicts: conflicts}, nil
}

// HasBlockingConflicts reports whether any conflict was resolved by
// something other than an explicit caller override — i.e. whether the
// merge silently fell back to the prefer-left default anywhere. Callers
// that require every conflict to be explicitly adjudicated (spec.md
// section 5, interactive merge) should treat a true return as "do not
// commit yet".
func HasBlockingConflicts(conflicts []Conflict, resolutions []ConflictResolution) bool {
	resolved := make(map[string]bool, len(resolutions))
	for _, r := range resolutions {
		resolved[r.Path] = true
	}
	for _, c := range conflicts {
		if !resolved[c.Path] {
			return true
		}
	}
	return false
}
