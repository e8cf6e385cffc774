package schema

import (
	"errors"
	"fmt"
	"strings"

	"mythforge/internal/entity"
)

// ErrSchemaNotFound is returned for unknown entity kinds. It signals a
// programming or configuration error, never a user-facing condition.
var ErrSchemaNotFound = errors.New("schema not found")

// Registry holds the immutable schema catalog.
type Registry struct {
	schemas map[entity.Kind]*EntityFormSchema
}

// NewRegistry builds a registry populated with the built-in schemas.
func NewRegistry() *Registry {
	r := &Registry{schemas: make(map[entity.Kind]*EntityFormSchema)}
	for _, s := range builtinSchemas() {
		r.schemas[s.Kind] = s
	}
	return r
}

// GetSchema returns the form schema for a kind.
func (r *Registry) GetSchema(kind entity.Kind) (*EntityFormSchema, error) {
	s, ok := r.schemas[kind]
	if !ok {
		return nil, fmt.Errorf("%w: kind %q", ErrSchemaNotFound, kind)
	}
	return s, nil
}

// FieldsForPhase returns the union of required and optional fields mapped
// to the given creation phase. Unknown phases yield an empty list.
func (r *Registry) FieldsForPhase(kind entity.Kind, phaseID string) []FieldSchema {
	s, ok := r.schemas[kind]
	if !ok {
		return nil
	}
	var out []FieldSchema
	for _, f := range s.Fields {
		if f.Phase == phaseID {
			out = append(out, f)
		}
	}
	return out
}

// ResolveOptions materializes a field's options. Static options pass
// through unchanged; dynamic sources are resolved against ctx and then
// narrowed by the field's optional filter predicate.
func (r *Registry) ResolveOptions(field *FieldSchema, ctx *Context) []Option {
	if field == nil || field.Options == nil {
		return nil
	}
	src := field.Options
	if src.Dynamic == "" {
		return src.Static
	}

	var opts []Option
	switch src.Dynamic {
	case "parent.races":
		opts = optionsFromRepeated(ctx, "races", src.Filter)
	case "parent.stats":
		opts = optionsFromRepeated(ctx, "stats", src.Filter)
	case "parent.rules":
		opts = optionsFromRepeated(ctx, "rules", src.Filter)
	case "parent.awakeningLevels":
		opts = awakeningOptions(ctx, src.Filter)
	case "custom":
		// Custom sources carry their options statically and only use
		// the dynamic tag to opt into filtering.
		for _, o := range src.Static {
			if src.Filter == nil || src.Filter(o.Value) {
				opts = append(opts, o)
			}
		}
	}
	return opts
}

// optionsFromRepeated builds options from a repeated-structure array on the
// parent entity (items with id/name keys).
func optionsFromRepeated(ctx *Context, key string, filter func(any) bool) []Option {
	if ctx == nil || ctx.Parent == nil {
		return nil
	}
	raw, ok := ctx.Parent.Get(key)
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	var opts []Option
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if filter != nil && !filter(m) {
			continue
		}
		value, _ := m["id"].(string)
		name, _ := m["name"].(string)
		if value == "" {
			value = name
		}
		if value == "" {
			continue
		}
		if name == "" {
			name = value
		}
		opts = append(opts, Option{Value: value, Label: Label{EN: name, ES: name}})
	}
	return opts
}

// awakeningOptions resolves the parent's awakening-level sub-system, which
// nests its entries under awakeningLevels.levels.
func awakeningOptions(ctx *Context, filter func(any) bool) []Option {
	if ctx == nil || ctx.Parent == nil {
		return nil
	}
	raw, ok := ctx.Parent.Get("awakeningLevels.levels")
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	var opts []Option
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if filter != nil && !filter(m) {
			continue
		}
		id, _ := m["id"].(string)
		name, _ := m["name"].(string)
		if id == "" {
			id = name
		}
		if id == "" {
			continue
		}
		opts = append(opts, Option{Value: id, Label: Label{EN: name, ES: name}})
	}
	return opts
}

// DependentFields returns the fields of the schema whose dependency on
// fieldName is satisfied by the given value.
func DependentFields(s *EntityFormSchema, fieldName string, value any) []FieldSchema {
	if s == nil {
		return nil
	}
	var out []FieldSchema
	for _, f := range s.Fields {
		for _, dep := range f.DependsOn {
			if dep.Field != fieldName {
				continue
			}
			if evaluateCondition(dep, value) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

func evaluateCondition(dep Dependency, value any) bool {
	switch dep.Condition {
	case CondEquals:
		return valuesEqual(value, dep.Value)
	case CondNotEquals:
		return !valuesEqual(value, dep.Value)
	case CondExists:
		return !isEmptyValue(value)
	case CondNotExists:
		return isEmptyValue(value)
	case CondContains:
		return valueContains(value, dep.Value)
	case CondGreaterThan:
		a, aok := toFloat(value)
		b, bok := toFloat(dep.Value)
		return aok && bok && a > b
	case CondLessThan:
		a, aok := toFloat(value)
		b, bok := toFloat(dep.Value)
		return aok && bok && a < b
	}
	return false
}

func valuesEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func valueContains(value, needle any) bool {
	want := fmt.Sprintf("%v", needle)
	switch t := value.(type) {
	case string:
		return strings.Contains(t, want)
	case []any:
		for _, item := range t {
			if fmt.Sprintf("%v", item) == want {
				return true
			}
		}
	}
	return false
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
