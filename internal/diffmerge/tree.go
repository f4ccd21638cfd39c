// Package diffmerge implements C5: field-path-level diffing and
// three-way merge of commit payloads.
//
// BeadsLog's internal/merge/merge.go (vendored beads-merge) hardcodes a
// merge function per named field of a single Issue struct
// (mergeStatus, mergeDependencies, ...). That doesn't generalize to an
// open-ended, user-defined schema of classes and instances. The
// generalization kept from BeadsLog is the *shape* of the algorithm —
// classify each changed unit by whether it was touched on one side or
// both, treat non-overlapping changes as auto-mergeable, and fall to an
// explicit conflict only when both sides touched the same unit
// differently — applied here not to named struct fields but to
// arbitrary JSON field paths, discovered generically rather than
// enumerated by hand.
package diffmerge

import (
	"encoding/json"
	"strings"

	"github.com/ourstudio-se/oatdb-go/internal/apperr"
	"github.com/ourstudio-se/oatdb-go/internal/model"
)

// toTree re-shapes a CommitData into a generic, path-addressable JSON
// value: classes and instances are re-keyed by their content id so that
// additions/removals of a whole class or instance are visible as a
// single top-level key change rather than an index shift in a slice.
func toTree(data model.CommitData) (map[string]any, error) {
	classes := map[string]any{}
	for _, c := range data.Schema.Classes {
		v, err := toGeneric(c)
		if err != nil {
			return nil, err
		}
		classes[string(c.Id)] = v
	}

	instances := map[string]any{}
	for _, in := range data.Instances {
		v, err := toGeneric(in)
		if err != nil {
			return nil, err
		}
		instances[string(in.Id)] = v
	}

	return map[string]any{
		"schema": map[string]any{
			"id":          string(data.Schema.Id),
			"description": data.Schema.Description,
			"classes":     classes,
		},
		"instances": instances,
	}, nil
}

// fromTree is the inverse of toTree.
func fromTree(tree map[string]any) (model.CommitData, error) {
	var out model.CommitData

	schema, _ := tree["schema"].(map[string]any)
	if id, ok := schema["id"].(string); ok {
		out.Schema.Id = model.Id(id)
	}
	if desc, ok := schema["description"].(string); ok {
		out.Schema.Description = desc
	}
	if classes, ok := schema["classes"].(map[string]any); ok {
		for _, v := range classes {
			var c model.ClassDef
			if err := fromGeneric(v, &c); err != nil {
				return model.CommitData{}, err
			}
			out.Schema.Classes = append(out.Schema.Classes, c)
		}
	}

	if instances, ok := tree["instances"].(map[string]any); ok {
		for _, v := range instances {
			var in model.Instance
			if err := fromGeneric(v, &in); err != nil {
				return model.CommitData{}, err
			}
			out.Instances = append(out.Instances, in)
		}
	}

	return out, nil
}

func toGeneric(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "encode for diff")
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "decode for diff")
	}
	return out, nil
}

func fromGeneric(v any, out any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "encode merged value")
	}
	if err := json.Unmarshal(b, out); err != nil {
		return apperr.Wrap(apperr.Internal, err, "decode merged value")
	}
	return nil
}

// getPath reads a "/"-joined path out of a generic tree. ok is false if
// any segment along the way is absent.
func getPath(root map[string]any, path string) (any, bool) {
	if path == "" {
		return root, true
	}
	parts := strings.Split(path, "/")
	var cur any = root
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// setPath writes value at a "/"-joined path, creating intermediate maps
// as needed.
func setPath(root map[string]any, path string, value any) {
	parts := strings.Split(path, "/")
	cur := root
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// deletePath removes the key at a "/"-joined path, if present.
func deletePath(root map[string]any, path string) {
	parts := strings.Split(path, "/")
	cur := root
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}
