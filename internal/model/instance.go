package model

// Instance is a value belonging to a class: it carries typed property
// values and relationship selections, plus (once solved) a concrete
// integer Domain.
type Instance struct {
	Id            Id                            `json:"id"`
	ClassId       Id                             `json:"class_id"`
	Domain        *Domain                        `json:"domain,omitempty"`
	Properties    map[string]PropertyValue       `json:"properties"`
	Relationships map[string]RelationshipSelection `json:"relationships"`
	LocalDomains  map[string]Domain              `json:"local_domains,omitempty"`
	Audit         Audit                          `json:"audit"`
}

// Clone returns a deep-enough copy of the instance suitable for the
// solve pipeline to mutate (domains, relationship selections) without
// perturbing the caller's working set.
func (in Instance) Clone() Instance {
	out := in
	if in.Domain != nil {
		d := *in.Domain
		out.Domain = &d
	}
	out.Properties = make(map[string]PropertyValue, len(in.Properties))
	for k, v := range in.Properties {
		out.Properties[k] = v
	}
	out.Relationships = make(map[string]RelationshipSelection, len(in.Relationships))
	for k, v := range in.Relationships {
		out.Relationships[k] = v
	}
	if in.LocalDomains != nil {
		out.LocalDomains = make(map[string]Domain, len(in.LocalDomains))
		for k, v := range in.LocalDomains {
			out.LocalDomains[k] = v
		}
	}
	return out
}

// TypedValue is an opaque JSON value tagged with its declared data type.
type TypedValue struct {
	Value    any      `json:"value"`
	DataType DataType `json:"data_type"`
}

// PropertyValueKind discriminates the PropertyValue union.
type PropertyValueKind string

const (
	PVLiteral     PropertyValueKind = "literal"
	PVConditional PropertyValueKind = "conditional"
)

// PropertyValue is a tagged union over a literal typed value and a
// rule-based conditional value (spec.md section 3 / design note on
// polymorphic properties): a raw scalar parses as Literal(inferred type),
// {type,value} parses as Literal(typed), {rules,...} parses as
// Conditional. Exactly one of Literal/Conditional is set.
type PropertyValue struct {
	Kind        PropertyValueKind `json:"kind"`
	Literal     *TypedValue       `json:"literal,omitempty"`
	Conditional *RuleSet          `json:"conditional,omitempty"`
}

// LiteralValue builds a literal PropertyValue.
func LiteralValue(v any, dt DataType) PropertyValue {
	return PropertyValue{Kind: PVLiteral, Literal: &TypedValue{Value: v, DataType: dt}}
}

// ConditionalValue builds a conditional PropertyValue.
func ConditionalValue(rs RuleSet) PropertyValue {
	return PropertyValue{Kind: PVConditional, Conditional: &rs}
}

// Rule is one branch of a RuleSet: when When holds, the property's value
// is Then.
type Rule struct {
	When BoolExpr `json:"when"`
	Then any      `json:"then"`
}

// RuleSet is a conditional property value: the first rule whose When
// holds wins; if none hold, Default applies (or a type-appropriate zero
// value if even Default is absent).
type RuleSet struct {
	Rules   []Rule `json:"rules"`
	Default any    `json:"default,omitempty"`
}

// RelationshipSelectionKind discriminates the RelationshipSelection
// union.
type RelationshipSelectionKind string

const (
	RelSimpleIds  RelationshipSelectionKind = "simple_ids"
	RelIds        RelationshipSelectionKind = "ids"
	RelFilter     RelationshipSelectionKind = "filter"
	RelPoolBased  RelationshipSelectionKind = "pool_based"
	RelAll        RelationshipSelectionKind = "all"
)

// SelectionSpecKind discriminates the SelectionSpec union used inside a
// PoolBased relationship selection.
type SelectionSpecKind string

const (
	SpecIds        SelectionSpecKind = "ids"
	SpecFilter     SelectionSpecKind = "filter"
	SpecAll        SelectionSpecKind = "all"
	SpecUnresolved SelectionSpecKind = "unresolved"
)

// SelectionSpec is the selection half of a PoolBased relationship: a
// concrete id list, a filter to evaluate against the pool, the whole
// pool, or left for the solver/pool resolver to determine.
type SelectionSpec struct {
	Kind   SelectionSpecKind `json:"kind"`
	Ids    []Id              `json:"ids,omitempty"`
	Filter *InstanceFilter   `json:"filter,omitempty"`
}

// RelationshipSelection is the value an instance assigns to one of its
// class's relationships. Exactly the field(s) implied by Kind are set.
type RelationshipSelection struct {
	Kind     RelationshipSelectionKind `json:"kind"`
	Ids      []Id                      `json:"ids,omitempty"`
	Filter   *InstanceFilter           `json:"filter,omitempty"`
	Pool     *InstanceFilter           `json:"pool,omitempty"`
	Spec     *SelectionSpec            `json:"selection,omitempty"`
}

// IsEmpty reports whether the selection carries no concrete or
// resolvable content at all (the "unresolved or missing" case from
// spec.md section 4.7).
func (r RelationshipSelection) IsEmpty() bool {
	switch r.Kind {
	case "":
		return true
	case RelSimpleIds, RelIds:
		return len(r.Ids) == 0
	case RelPoolBased:
		return r.Spec == nil || r.Spec.Kind == SpecUnresolved
	default:
		return false
	}
}

// StaticIds returns the ids this selection statically names, if any,
// without consulting a pool — used by the Collect phase (spec.md section
// 4.8 phase 1) to follow SimpleIds/Ids/PoolBased{selection=Ids} edges.
func (r RelationshipSelection) StaticIds() ([]Id, bool) {
	switch r.Kind {
	case RelSimpleIds, RelIds:
		return r.Ids, true
	case RelPoolBased:
		if r.Spec != nil && r.Spec.Kind == SpecIds {
			return r.Spec.Ids, true
		}
	}
	return nil, false
}
