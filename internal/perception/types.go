// Package perception turns raw user messages into structured intents and
// typed field values. Classification is regex-table driven and fully
// deterministic; the LLM is only consulted upstream by the orchestrator,
// and this package is the rule-based floor the system falls back to when
// the inference provider is unavailable.
package perception

import (
	"mythforge/internal/entity"
)

// Action is the classified user action.
type Action string

const (
	ActionCreate   Action = "create"
	ActionEdit     Action = "edit"
	ActionQuery    Action = "query"
	ActionDelete   Action = "delete"
	ActionConfirm  Action = "confirm"
	ActionCancel   Action = "cancel"
	ActionNavigate Action = "navigate"
	ActionUnknown  Action = "unknown"
)

// Source records how a field value was obtained.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceInferred Source = "inferred"
	SourceDefault  Source = "default"
	SourceContext  Source = "context"
)

// ExtractedField is one typed field value pulled out of raw text.
// Instances are never mutated, only replaced.
type ExtractedField struct {
	Field      string  `json:"field"`
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
	SourceText string  `json:"sourceText,omitempty"`
}

// DetectedIntent is the classification result for one processed message.
type DetectedIntent struct {
	Action                 Action           `json:"action"`
	Target                 entity.Kind      `json:"target"`
	Fields                 []ExtractedField `json:"fields"`
	Language               string           `json:"language"`
	Confidence             float64          `json:"confidence"`
	NeedsClarification     bool             `json:"needsClarification"`
	ClarificationQuestions []string         `json:"clarificationQuestions,omitempty"`
}

// Field returns the extracted field by name, or nil.
func (d *DetectedIntent) Field(name string) *ExtractedField {
	for i := range d.Fields {
		if d.Fields[i].Field == name {
			return &d.Fields[i]
		}
	}
	return nil
}

// BulkExtraction is the result of running every field extractor at once.
type BulkExtraction struct {
	Fields []ExtractedField `json:"fields"`

	// Completeness is the 0-100 weighted fill score from the schema
	// registry's weight table.
	Completeness float64 `json:"completeness"`

	// MissingFields lists unfilled field names, highest priority first.
	MissingFields []string `json:"missingFields"`

	// NextQuestion is the clarification question for the single
	// highest-priority missing field, in the detected language.
	NextQuestion string `json:"nextQuestion,omitempty"`
}

// Contradiction flags a newly extracted value that conflicts with a
// previously collected, non-empty value for the same field.
type Contradiction struct {
	Field      string `json:"field"`
	OldValue   any    `json:"oldValue"`
	NewValue   any    `json:"newValue"`
	SourceText string `json:"sourceText,omitempty"`
}

// ContradictionResult reports the contradictions found in one message.
type ContradictionResult struct {
	HasContradictions bool            `json:"hasContradictions"`
	Contradictions    []Contradiction `json:"contradictions"`
}
