package validate

import (
	"fmt"

	"go.uber.org/zap"

	"mythforge/internal/entity"
	"mythforge/internal/schema"
)

// AppliedFix records one mechanical repair made by AutoFix.
type AppliedFix struct {
	Field       string `json:"field"`
	Code        Code   `json:"code"`
	Description string `json:"description"`
	NewValue    any    `json:"newValue,omitempty"`
}

// AutoFix applies deterministic, code-driven repairs to the given errors:
// MAX_LENGTH truncates to the schema limit, MIN_VALUE/MAX_VALUE clamp to
// the schema bound, and REQUIRED applies the schema default when one
// exists. Everything else (MIN_LENGTH included) passes through unchanged
// as a remaining error. The input entity is never mutated.
func (v *Validator) AutoFix(e entity.Entity, errors []Issue, kind entity.Kind) (entity.Entity, []AppliedFix, []Issue, error) {
	s, err := v.registry.GetSchema(kind)
	if err != nil {
		return nil, nil, nil, err
	}

	fixed := e.Clone()
	var applied []AppliedFix
	var remaining []Issue

	for _, issue := range errors {
		f, ok := s.Field(issue.Field)
		if !ok {
			remaining = append(remaining, issue)
			continue
		}

		switch issue.Code {
		case CodeMaxLength:
			val, found := fixed.GetString(f.Name)
			if !found || f.Rules.MaxLength <= 0 {
				remaining = append(remaining, issue)
				continue
			}
			runes := []rune(val)
			if len(runes) > f.Rules.MaxLength {
				truncated := string(runes[:f.Rules.MaxLength])
				fixed.Set(f.Name, truncated)
				applied = append(applied, AppliedFix{
					Field:       f.Name,
					Code:        issue.Code,
					Description: fmt.Sprintf("truncated %s to %d characters", f.Name, f.Rules.MaxLength),
					NewValue:    truncated,
				})
			}
		case CodeMinValue:
			if f.Rules.MinValue == nil {
				remaining = append(remaining, issue)
				continue
			}
			fixed.Set(f.Name, *f.Rules.MinValue)
			applied = append(applied, AppliedFix{
				Field:       f.Name,
				Code:        issue.Code,
				Description: fmt.Sprintf("clamped %s up to %g", f.Name, *f.Rules.MinValue),
				NewValue:    *f.Rules.MinValue,
			})
		case CodeMaxValue:
			if f.Rules.MaxValue == nil {
				remaining = append(remaining, issue)
				continue
			}
			fixed.Set(f.Name, *f.Rules.MaxValue)
			applied = append(applied, AppliedFix{
				Field:       f.Name,
				Code:        issue.Code,
				Description: fmt.Sprintf("clamped %s down to %g", f.Name, *f.Rules.MaxValue),
				NewValue:    *f.Rules.MaxValue,
			})
		case CodeRequired:
			if f.Default == nil {
				remaining = append(remaining, issue)
				continue
			}
			fixed.Set(f.Name, f.Default)
			applied = append(applied, AppliedFix{
				Field:       f.Name,
				Code:        issue.Code,
				Description: fmt.Sprintf("applied default value for %s", f.Name),
				NewValue:    f.Default,
			})
		default:
			remaining = append(remaining, issue)
		}
	}

	if len(applied) > 0 {
		v.log.Debug("auto-fix applied repairs",
			zap.String("kind", string(kind)),
			zap.Int("applied", len(applied)),
			zap.Int("remaining", len(remaining)))
	}

	return fixed, applied, remaining, nil
}

// CompleteResult composes every check; Valid is the logical AND of all
// four.
type CompleteResult struct {
	Valid           bool                 `json:"valid"`
	Validation      ValidationResult     `json:"validation"`
	CrossReferences CrossReferenceResult `json:"crossReferences"`
	Consistency     ConsistencyResult    `json:"consistency"`
	Size            SizeResult           `json:"size"`
}

// ValidateComplete runs schema, cross-reference, consistency and size
// validation in one pass.
func (v *Validator) ValidateComplete(e entity.Entity, kind entity.Kind, ctx *schema.Context) (CompleteResult, error) {
	validation, err := v.Validate(e, kind, ctx)
	if err != nil {
		return CompleteResult{}, err
	}
	result := CompleteResult{
		Validation:      validation,
		CrossReferences: v.ValidateCrossReferences(e, ctx),
		Consistency:     v.ValidateConsistency(e),
		Size:            v.ValidateSize(e),
	}
	result.Valid = result.Validation.Valid &&
		result.CrossReferences.Valid &&
		result.Consistency.Consistent &&
		result.Size.WithinLimit
	return result, nil
}

// Clamp restricts a numeric value to [min, max]. Values already in range
// pass through unchanged.
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
