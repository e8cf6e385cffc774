package editor

import (
	"fmt"

	"mythforge/internal/entity"
	"mythforge/internal/perception"
)

// cascadeFields maps a top-level field to the fields known to need review
// when it changes. Editing a stat definition implies the progression rules
// referencing it may be stale; editing races invalidates character race
// references.
var cascadeFields = map[string][]string{
	"stats":           {"rules"},
	"races":           {"characters"},
	"awakeningLevels": {"characters"},
}

// DetectRequest describes one free-form edit request against an existing
// entity snapshot.
type DetectRequest struct {
	Text     string
	Kind     entity.Kind
	Language string
	Current  entity.Entity
}

// ChangeDetectionResult is a proposed change list with its averaged
// extraction confidence. HasSecondaryEffects flags changes touching a
// field known to cascade.
type ChangeDetectionResult struct {
	Changes             []FieldChange `json:"changes"`
	Confidence          float64       `json:"confidence"`
	HasSecondaryEffects bool          `json:"hasSecondaryEffects"`
	SecondaryFields     []string      `json:"secondaryFields,omitempty"`
}

// DetectChanges combines field extraction with existing-vs-new value
// comparison to produce a change list. Fields whose extracted value equals
// the current one are dropped.
func DetectChanges(ex *perception.Extractor, req DetectRequest) ChangeDetectionResult {
	var result ChangeDetectionResult

	fields := ex.ExtractFields(req.Text, req.Kind, req.Language)
	if len(fields) == 0 {
		return result
	}

	var confSum float64
	for _, f := range fields {
		old, exists := req.Current.Get(f.Field)
		if exists && fmt.Sprintf("%v", old) == fmt.Sprintf("%v", f.Value) {
			continue
		}
		op := OpUpdate
		if !exists {
			op = OpAdd
		}
		result.Changes = append(result.Changes, FieldChange{
			Path:       f.Field,
			Op:         op,
			OldValue:   old,
			NewValue:   f.Value,
			Reason:     f.SourceText,
			Confidence: f.Confidence,
		})
		confSum += f.Confidence

		if secondary, ok := cascadeFields[topSegment(f.Field)]; ok {
			result.HasSecondaryEffects = true
			result.SecondaryFields = append(result.SecondaryFields, secondary...)
		}
	}

	if len(result.Changes) > 0 {
		result.Confidence = confSum / float64(len(result.Changes))
	}
	return result
}

func topSegment(path string) string {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}
