// Package schema is the static catalog of entity form definitions: field
// types, validation rules, option sources, field dependencies, and the AI
// extraction hints consumed by the perception layer.
//
// Schemas are immutable after registry initialization. All lookups go
// through the Registry; there is no global mutable state.
package schema

import (
	"mythforge/internal/entity"
)

// FieldType enumerates the supported form field types.
type FieldType string

const (
	TypeString      FieldType = "string"
	TypeNumber      FieldType = "number"
	TypeBoolean     FieldType = "boolean"
	TypeArray       FieldType = "array"
	TypeObject      FieldType = "object"
	TypeSelect      FieldType = "select"
	TypeMultiselect FieldType = "multiselect"
	TypeColor       FieldType = "color"
	TypeIcon        FieldType = "icon"
	TypeImage       FieldType = "image"
)

// Label carries the bilingual display text used across validation messages
// and clarification questions.
type Label struct {
	EN string `json:"en"`
	ES string `json:"es"`
}

// In returns the label text for a language tag, defaulting to English.
func (l Label) In(lang string) string {
	if lang == "es" && l.ES != "" {
		return l.ES
	}
	return l.EN
}

// Rules holds the per-field validation rule set.
//
// Zero values mean "rule not set" except MinValue/MaxValue, which use
// pointers so a legitimate bound of 0 is expressible.
type Rules struct {
	Required  bool
	MinLength int
	MaxLength int
	MinValue  *float64
	MaxValue  *float64
	Pattern   string
	OneOf     []string

	// Custom is an arbitrary predicate over the field value. When it
	// returns false, CustomMessage is reported.
	Custom        func(value any) bool
	CustomMessage Label
}

// Option is a single selectable value for select/multiselect fields.
type Option struct {
	Value string `json:"value"`
	Label Label  `json:"label"`
}

// OptionSource describes where a field's options come from. Static options
// pass through unchanged; Dynamic names a source resolved against the
// validation context ("parent.races", "parent.stats",
// "parent.awakeningLevels", "parent.rules", "custom").
type OptionSource struct {
	Static  []Option
	Dynamic string

	// Filter narrows dynamically resolved options. Receives the raw
	// source item (a map for repeated structures, a string for key lists).
	Filter func(item any) bool
}

// DependencyCondition enumerates the per-field dependency operators.
type DependencyCondition string

const (
	CondEquals      DependencyCondition = "equals"
	CondNotEquals   DependencyCondition = "notEquals"
	CondExists      DependencyCondition = "exists"
	CondNotExists   DependencyCondition = "notExists"
	CondContains    DependencyCondition = "contains"
	CondGreaterThan DependencyCondition = "greaterThan"
	CondLessThan    DependencyCondition = "lessThan"
)

// Dependency declares that a field becomes relevant when another field's
// value satisfies the condition.
type Dependency struct {
	Field     string
	Condition DependencyCondition
	Value     any
}

// FieldSchema is one field definition inside an entity form schema.
type FieldSchema struct {
	Name  string
	Type  FieldType
	Label Label
	Rules Rules

	// Options is set for select/multiselect fields.
	Options *OptionSource

	// DependsOn gates this field on other fields' values.
	DependsOn []Dependency

	// Keywords anchor regex-based extraction, per language tag.
	Keywords map[string][]string

	// Weight feeds the completeness score; Priority orders the
	// missing-field clarification questions (higher asks first).
	Weight   float64
	Priority int

	// Question is asked when the field is missing and highest priority.
	Question Label

	// Default is applied by auto-fix for REQUIRED violations.
	Default any

	// Phase maps the field to a creation phase; Optional marks it as
	// non-required within that phase.
	Phase    string
	Optional bool
}

// CrossFieldValidator checks a constraint spanning multiple fields.
// It returns a human description of the violation, or "" when satisfied.
type CrossFieldValidator struct {
	Name    string
	Check   func(e entity.Entity) bool
	Message Label
	// Blocking violations become errors; otherwise warnings.
	Blocking bool
}

// EntityFormSchema is the complete, ordered form definition for one kind.
type EntityFormSchema struct {
	Kind       entity.Kind
	Version    int
	Fields     []FieldSchema
	CrossField []CrossFieldValidator
}

// Field returns the field definition by name.
func (s *EntityFormSchema) Field(name string) (*FieldSchema, bool) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// RequiredFields returns the fields whose rule set marks them required.
func (s *EntityFormSchema) RequiredFields() []FieldSchema {
	var out []FieldSchema
	for _, f := range s.Fields {
		if f.Rules.Required {
			out = append(out, f)
		}
	}
	return out
}

// TotalWeight sums the completeness weights of every field.
func (s *EntityFormSchema) TotalWeight() float64 {
	var total float64
	for _, f := range s.Fields {
		total += f.Weight
	}
	return total
}

// Context supplies the surrounding data option resolution and
// cross-reference validation run against. For character-mode flows the
// parent is the selected universe.
type Context struct {
	Parent entity.Entity
}
