// Package validate checks entities against their form schemas: rule
// validation, cross-reference validation against a parent universe,
// schema-independent consistency checks, size limits, and best-effort
// auto-fixing of mechanical violations.
//
// All results are pure computed values; nothing here is stored or cached.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"mythforge/internal/entity"
	"mythforge/internal/formula"
	"mythforge/internal/schema"
)

// Code identifies a violation class. Codes are stable API: auto-fix and
// callers branch on them.
type Code string

const (
	CodeRequired         Code = "REQUIRED"
	CodeMinLength        Code = "MIN_LENGTH"
	CodeMaxLength        Code = "MAX_LENGTH"
	CodeMinValue         Code = "MIN_VALUE"
	CodeMaxValue         Code = "MAX_VALUE"
	CodePattern          Code = "PATTERN"
	CodeOneOf            Code = "ONE_OF"
	CodeCustom           Code = "CUSTOM"
	CodeInvalidType      Code = "INVALID_TYPE"
	CodeCrossField       Code = "CROSS_FIELD"
	CodeInvalidReference Code = "INVALID_REFERENCE"
	CodeUnknownStat      Code = "UNKNOWN_STAT"
	CodeInvalidFormula   Code = "INVALID_FORMULA"
	CodeDuplicateID      Code = "DUPLICATE_ID"
	CodeNegativeStat     Code = "NEGATIVE_STAT"
	CodeMissingThreshold Code = "MISSING_THRESHOLD"
	CodeEmptySubsystem   Code = "EMPTY_SUBSYSTEM"
	CodeSizeLimit        Code = "SIZE_LIMIT"
)

// Severity splits blocking errors from advisory warnings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding with a bilingual message.
type Issue struct {
	Field    string       `json:"field"`
	Code     Code         `json:"code"`
	Severity Severity     `json:"severity"`
	Message  schema.Label `json:"message"`
	Value    any          `json:"value,omitempty"`
}

// ValidationResult aggregates schema-rule findings. Errors block; warnings
// do not.
type ValidationResult struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// CrossReferenceResult reports foreign-key-like findings against the
// validation context.
type CrossReferenceResult struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Validator runs all checks for a schema registry.
type Validator struct {
	registry *schema.Registry
	log      *zap.Logger
}

// New builds a validator over the registry.
func New(registry *schema.Registry, log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{registry: registry, log: log.Named("validate")}
}

// Validate runs every field's rule set plus the schema's cross-field
// validators.
func (v *Validator) Validate(e entity.Entity, kind entity.Kind, ctx *schema.Context) (ValidationResult, error) {
	s, err := v.registry.GetSchema(kind)
	if err != nil {
		return ValidationResult{}, err
	}
	return v.validateFields(e, s, s.Fields, ctx), nil
}

// ValidateForPhase restricts rule validation to the fields mapped to one
// creation phase. Unknown phases validate nothing and succeed.
func (v *Validator) ValidateForPhase(e entity.Entity, kind entity.Kind, phaseID string, ctx *schema.Context) (ValidationResult, error) {
	s, err := v.registry.GetSchema(kind)
	if err != nil {
		return ValidationResult{}, err
	}
	return v.validateFields(e, s, v.registry.FieldsForPhase(kind, phaseID), ctx), nil
}

func (v *Validator) validateFields(e entity.Entity, s *schema.EntityFormSchema, fields []schema.FieldSchema, ctx *schema.Context) ValidationResult {
	result := ValidationResult{Valid: true}
	for i := range fields {
		f := &fields[i]
		value, present := e.Get(f.Name)
		issues := checkField(f, value, present, ctx)
		for _, is := range issues {
			if is.Severity == SeverityError {
				result.Errors = append(result.Errors, is)
			} else {
				result.Warnings = append(result.Warnings, is)
			}
		}
	}

	for _, cf := range s.CrossField {
		if cf.Check(e) {
			continue
		}
		issue := Issue{
			Field:    cf.Name,
			Code:     CodeCrossField,
			Severity: SeverityWarning,
			Message:  cf.Message,
		}
		if cf.Blocking {
			issue.Severity = SeverityError
			result.Errors = append(result.Errors, issue)
		} else {
			result.Warnings = append(result.Warnings, issue)
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// checkField applies one field's full rule set to a value.
func checkField(f *schema.FieldSchema, value any, present bool, ctx *schema.Context) []Issue {
	var issues []Issue
	label := f.Label

	missing := !present || isEmptyValue(value)
	if missing {
		if f.Rules.Required {
			issues = append(issues, Issue{
				Field:    f.Name,
				Code:     CodeRequired,
				Severity: SeverityError,
				Message: schema.Label{
					EN: fmt.Sprintf("%s is required", label.EN),
					ES: fmt.Sprintf("%s es obligatorio", label.ES),
				},
			})
		}
		return issues
	}

	switch f.Type {
	case schema.TypeString, schema.TypeColor, schema.TypeIcon, schema.TypeImage:
		s, ok := value.(string)
		if !ok {
			return append(issues, typeIssue(f, value))
		}
		if f.Rules.MinLength > 0 && len([]rune(s)) < f.Rules.MinLength {
			issues = append(issues, Issue{
				Field:    f.Name,
				Code:     CodeMinLength,
				Severity: SeverityError,
				Value:    value,
				Message: schema.Label{
					EN: fmt.Sprintf("%s must be at least %d characters", label.EN, f.Rules.MinLength),
					ES: fmt.Sprintf("%s debe tener al menos %d caracteres", label.ES, f.Rules.MinLength),
				},
			})
		}
		if f.Rules.MaxLength > 0 && len([]rune(s)) > f.Rules.MaxLength {
			issues = append(issues, Issue{
				Field:    f.Name,
				Code:     CodeMaxLength,
				Severity: SeverityError,
				Value:    value,
				Message: schema.Label{
					EN: fmt.Sprintf("%s must be at most %d characters", label.EN, f.Rules.MaxLength),
					ES: fmt.Sprintf("%s debe tener como máximo %d caracteres", label.ES, f.Rules.MaxLength),
				},
			})
		}
		if f.Rules.Pattern != "" {
			re, err := regexp.Compile(f.Rules.Pattern)
			if err == nil && !re.MatchString(s) {
				issues = append(issues, Issue{
					Field:    f.Name,
					Code:     CodePattern,
					Severity: SeverityError,
					Value:    value,
					Message: schema.Label{
						EN: fmt.Sprintf("%s has an invalid format", label.EN),
						ES: fmt.Sprintf("%s tiene un formato inválido", label.ES),
					},
				})
			}
		}
	case schema.TypeNumber:
		n, ok := toFloat(value)
		if !ok {
			return append(issues, typeIssue(f, value))
		}
		if f.Rules.MinValue != nil && n < *f.Rules.MinValue {
			issues = append(issues, Issue{
				Field:    f.Name,
				Code:     CodeMinValue,
				Severity: SeverityError,
				Value:    value,
				Message: schema.Label{
					EN: fmt.Sprintf("%s must be at least %g", label.EN, *f.Rules.MinValue),
					ES: fmt.Sprintf("%s debe ser al menos %g", label.ES, *f.Rules.MinValue),
				},
			})
		}
		if f.Rules.MaxValue != nil && n > *f.Rules.MaxValue {
			issues = append(issues, Issue{
				Field:    f.Name,
				Code:     CodeMaxValue,
				Severity: SeverityError,
				Value:    value,
				Message: schema.Label{
					EN: fmt.Sprintf("%s must be at most %g", label.EN, *f.Rules.MaxValue),
					ES: fmt.Sprintf("%s debe ser como máximo %g", label.ES, *f.Rules.MaxValue),
				},
			})
		}
	case schema.TypeBoolean:
		if _, ok := value.(bool); !ok {
			return append(issues, typeIssue(f, value))
		}
	case schema.TypeArray, schema.TypeMultiselect:
		if _, ok := value.([]any); !ok {
			return append(issues, typeIssue(f, value))
		}
	case schema.TypeObject:
		if _, ok := value.(map[string]any); !ok {
			return append(issues, typeIssue(f, value))
		}
	}

	if len(f.Rules.OneOf) > 0 {
		s, ok := value.(string)
		if ok && !contains(f.Rules.OneOf, s) {
			issues = append(issues, Issue{
				Field:    f.Name,
				Code:     CodeOneOf,
				Severity: SeverityError,
				Value:    value,
				Message: schema.Label{
					EN: fmt.Sprintf("%s must be one of: %s", label.EN, strings.Join(f.Rules.OneOf, ", ")),
					ES: fmt.Sprintf("%s debe ser uno de: %s", label.ES, strings.Join(f.Rules.OneOf, ", ")),
				},
			})
		}
	}

	if f.Rules.Custom != nil && !f.Rules.Custom(value) {
		msg := f.Rules.CustomMessage
		if msg.EN == "" {
			msg = schema.Label{
				EN: fmt.Sprintf("%s is invalid", label.EN),
				ES: fmt.Sprintf("%s no es válido", label.ES),
			}
		}
		issues = append(issues, Issue{
			Field:    f.Name,
			Code:     CodeCustom,
			Severity: SeverityError,
			Value:    value,
			Message:  msg,
		})
	}

	return issues
}

func typeIssue(f *schema.FieldSchema, value any) Issue {
	return Issue{
		Field:    f.Name,
		Code:     CodeInvalidType,
		Severity: SeverityError,
		Value:    value,
		Message: schema.Label{
			EN: fmt.Sprintf("%s has the wrong type (expected %s)", f.Label.EN, f.Type),
			ES: fmt.Sprintf("%s tiene un tipo incorrecto (se esperaba %s)", f.Label.ES, f.Type),
		},
	}
}

// ValidateCrossReferences checks foreign-key-like fields against the
// parent entity in the context: a character's race must exist in the
// parent's races (error), stat-map keys must be declared parent stats
// (warning), and rule formulas must reference known stats (warning).
func (v *Validator) ValidateCrossReferences(e entity.Entity, ctx *schema.Context) CrossReferenceResult {
	result := CrossReferenceResult{Valid: true}
	if ctx == nil || ctx.Parent == nil {
		return result
	}

	raceIDs := collectIdentifiers(ctx.Parent, "races")
	statKeys := collectIdentifiers(ctx.Parent, "stats")

	if race, ok := e.GetString("race"); ok && race != "" && len(raceIDs) > 0 {
		if !raceIDs[strings.ToLower(race)] {
			result.Errors = append(result.Errors, Issue{
				Field:    "race",
				Code:     CodeInvalidReference,
				Severity: SeverityError,
				Value:    race,
				Message: schema.Label{
					EN: fmt.Sprintf("race %q does not exist in this universe", race),
					ES: fmt.Sprintf("la raza %q no existe en este universo", race),
				},
			})
		}
	}

	if raw, ok := e.Get("stats"); ok && len(statKeys) > 0 {
		if stats, isMap := raw.(map[string]any); isMap {
			for key := range stats {
				if !statKeys[strings.ToLower(key)] {
					result.Warnings = append(result.Warnings, Issue{
						Field:    "stats." + key,
						Code:     CodeUnknownStat,
						Severity: SeverityWarning,
						Value:    key,
						Message: schema.Label{
							EN: fmt.Sprintf("stat %q is not declared in this universe", key),
							ES: fmt.Sprintf("la estadística %q no está declarada en este universo", key),
						},
					})
				}
			}
		}
	}

	// Progression-rule formulas must parse and only reference declared
	// stats (plus the built-in level variable).
	if raw, ok := e.Get("rules"); ok {
		if rules, isArr := raw.([]any); isArr {
			vars := map[string]float64{"level": 1}
			for key := range statKeys {
				vars[key] = 0
			}
			for i, r := range rules {
				m, isMap := r.(map[string]any)
				if !isMap {
					continue
				}
				expr, _ := m["formula"].(string)
				if expr == "" {
					continue
				}
				if err := formula.Validate(expr, vars); err != nil {
					result.Warnings = append(result.Warnings, Issue{
						Field:    fmt.Sprintf("rules.%d.formula", i),
						Code:     CodeInvalidFormula,
						Severity: SeverityWarning,
						Value:    expr,
						Message: schema.Label{
							EN: fmt.Sprintf("formula %q is invalid: %v", expr, err),
							ES: fmt.Sprintf("la fórmula %q no es válida: %v", expr, err),
						},
					})
				}
			}
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// collectIdentifiers gathers lowercase id/name/abbreviation identifiers
// from a repeated-structure array on the parent.
func collectIdentifiers(parent entity.Entity, key string) map[string]bool {
	out := make(map[string]bool)
	raw, ok := parent.Get(key)
	if !ok {
		return out
	}
	items, ok := raw.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, field := range []string{"id", "name", "abbreviation"} {
			if s, ok := m[field].(string); ok && s != "" {
				out[strings.ToLower(s)] = true
			}
		}
	}
	return out
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

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
