package solve

import (
	"strconv"

	"github.com/ourstudio-se/oatdb-go/internal/filter"
	"github.com/ourstudio-se/oatdb-go/internal/model"
)

// Derived runs spec.md section 4.8 phase 4 over the resolved
// configuration: for every requested (instance, derived-field) pair,
// locate the DerivedDef, expand fn_short if present, and evaluate its
// expression. requested == nil means "every declared derived field on
// every instance in the configuration"; a present-but-nil entry for an
// instance id means "none requested for this instance".
func Derived(schema model.Schema, prepared PrepareResult, requested map[model.Id][]string, meta *SolveMetadata) map[model.Id]map[string]any {
	ctx := &evalContext{schema: schema, prepared: prepared, resolved: map[model.Id]map[string]any{}}
	out := map[model.Id]map[string]any{}

	for _, id := range prepared.Order {
		in := prepared.Configuration[id]
		class, ok := schema.ClassById(in.ClassId)
		if !ok {
			continue
		}

		var names []string
		if requested == nil {
			for _, d := range class.Derived {
				names = append(names, d.Name)
			}
		} else {
			reqNames, present := requested[id]
			if !present {
				continue
			}
			names = reqNames
		}
		if len(names) == 0 {
			continue
		}

		values := make(map[string]any, len(names))
		for _, name := range names {
			def, ok := class.DerivedByName(name)
			if !ok {
				meta.addIssue(PhaseDerived, SeverityWarning, "instance %s: no derived field %q on class %s", id, name, class.Name)
				continue
			}
			expr := def.Expr
			if expr == nil {
				expanded := model.ExpandFnShort(class, def.FnShort, def.Property)
				expr = &expanded
			}
			v, err := ctx.evalExpr(id, *expr)
			if err != nil {
				meta.addIssue(PhaseDerived, SeverityWarning, "instance %s: derived field %q: %v", id, name, err)
				continue
			}
			values[name] = v
		}
		if len(values) > 0 {
			out[id] = values
		}
	}

	return out
}

// evalContext memoizes resolved property values (literal pass-through,
// conditional RuleSet evaluation) per instance across a single Derived
// run, since a Sum expression may revisit the same child many times.
type evalContext struct {
	schema   model.Schema
	prepared PrepareResult
	resolved map[model.Id]map[string]any
}

func (c *evalContext) className(in model.Instance) string {
	if class, ok := c.schema.ClassById(in.ClassId); ok {
		return class.Name
	}
	return ""
}

// propertyValue resolves name on instance id, evaluating a conditional
// RuleSet if that's what the property holds.
func (c *evalContext) propertyValue(id model.Id, name string) (any, bool) {
	if cache, ok := c.resolved[id]; ok {
		if v, ok := cache[name]; ok {
			return v, true
		}
	} else {
		c.resolved[id] = map[string]any{}
	}

	in, ok := c.prepared.Configuration[id]
	if !ok {
		return nil, false
	}
	pv, ok := in.Properties[name]
	if !ok {
		return nil, false
	}

	var val any
	switch pv.Kind {
	case model.PVLiteral:
		if pv.Literal == nil {
			return nil, false
		}
		val = pv.Literal.Value
	case model.PVConditional:
		if pv.Conditional == nil {
			return nil, false
		}
		val = c.evalRuleSet(id, in, name, *pv.Conditional)
	default:
		return nil, false
	}
	c.resolved[id][name] = val
	return val, true
}

// evalRuleSet picks the first rule whose When holds, else Default, else
// a type-appropriate zero for the property's declared data type (spec.md
// section 4.8 phase 4).
func (c *evalContext) evalRuleSet(id model.Id, in model.Instance, propertyName string, rs model.RuleSet) any {
	resolver := filter.InstanceResolver{Instance: in, ClassName: c.className(in), Resolved: c.resolved[id]}
	for _, rule := range rs.Rules {
		ok, err := filter.Evaluate(rule.When, resolver)
		if err == nil && ok {
			return rule.Then
		}
	}
	if rs.Default != nil {
		return rs.Default
	}

	var dataType model.DataType
	if class, ok := c.schema.ClassById(in.ClassId); ok {
		if def, ok := class.PropertyByName(propertyName); ok {
			dataType = def.DataType
		}
	}
	return zeroValue(dataType)
}

func zeroValue(dt model.DataType) any {
	switch dt {
	case model.TypeNumber:
		return 0.0
	case model.TypeBoolean:
		return false
	case model.TypeArray, model.TypeStringList:
		return []any{}
	case model.TypeObject:
		return map[string]any{}
	default:
		return ""
	}
}

// evalExpr evaluates an Expr tree against instance id's resolved
// configuration. Numeric evaluation is always floating point (spec.md
// section 4.8 phase 4).
func (c *evalContext) evalExpr(id model.Id, e model.Expr) (float64, error) {
	switch e.Kind {
	case model.ExprLiteral:
		return e.Literal, nil
	case model.ExprProp:
		v, ok := c.propertyValue(id, e.Property)
		if !ok {
			return 0, nil
		}
		n, _ := asFloat(v)
		return n, nil
	case model.ExprAdd, model.ExprSub, model.ExprMul, model.ExprDiv:
		left, err := c.evalExpr(id, *e.Left)
		if err != nil {
			return 0, err
		}
		right, err := c.evalExpr(id, *e.Right)
		if err != nil {
			return 0, err
		}
		switch e.Kind {
		case model.ExprAdd:
			return left + right, nil
		case model.ExprSub:
			return left - right, nil
		case model.ExprMul:
			return left * right, nil
		default:
			if right == 0 {
				return 0, nil
			}
			return left / right, nil
		}
	case model.ExprSum:
		return c.evalSum(id, e)
	default:
		return 0, nil
	}
}

func (c *evalContext) evalSum(id model.Id, e model.Expr) (float64, error) {
	in, ok := c.prepared.Configuration[id]
	if !ok {
		return 0, nil
	}
	sel := in.Relationships[e.Over]
	ids, _ := sel.StaticIds()

	var total float64
	for _, childId := range ids {
		child, ok := c.prepared.Configuration[childId]
		if !ok {
			continue
		}
		if e.Where != nil {
			resolver := filter.InstanceResolver{Instance: child, ClassName: c.className(child), Resolved: c.resolved[childId]}
			pass, err := filter.Evaluate(*e.Where, resolver)
			if err != nil || !pass {
				continue
			}
		}
		v, ok := c.propertyValue(childId, e.Property)
		if !ok {
			continue
		}
		n, _ := asFloat(v)
		total += n
	}
	return total, nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
