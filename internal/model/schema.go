package model

import "time"

// Schema is a set of class definitions shared by every instance in a
// commit or working commit. Class names and class ids are unique within
// a schema.
type Schema struct {
	Id          Id        `json:"id"`
	Description string    `json:"description,omitempty"`
	Classes     []ClassDef `json:"classes"`
}

// ClassByName looks up a class definition by its unique name.
func (s Schema) ClassByName(name string) (ClassDef, bool) {
	for _, c := range s.Classes {
		if c.Name == name {
			return c, true
		}
	}
	return ClassDef{}, false
}

// ClassById looks up a class definition by its unique id.
func (s Schema) ClassById(id Id) (ClassDef, bool) {
	for _, c := range s.Classes {
		if c.Id == id {
			return c, true
		}
	}
	return ClassDef{}, false
}

// Audit carries the standard creation/modification bookkeeping fields.
// These fields are ignored by diff (spec.md section 4.4 / 9) so they
// never surface as spurious merge conflicts.
type Audit struct {
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// IgnoredDiffFields names the Instance/ClassDef fields diff and three-way
// merge never compare, per spec.md sections 4.4 and 9.
var IgnoredDiffFields = map[string]bool{
	"created_at":          true,
	"updated_at":          true,
	"created_by":          true,
	"updated_by":          true,
	"materialized_ids":    true,
	"resolution_details":  true,
}
