package prompt

import (
	"encoding/json"
	"strings"
)

// CharsPerToken is the fixed estimation heuristic. A real tokenizer is
// deliberately out of scope; four characters per token is close enough
// for budget splitting.
const CharsPerToken = 4

// EstimateTokens approximates the token count of a string.
func EstimateTokens(s string) int {
	return (len(s) + CharsPerToken - 1) / CharsPerToken
}

// Section names the budgeted slices of an assembled prompt.
type Section string

const (
	SectionSystem   Section = "system"
	SectionSchema   Section = "schema"
	SectionExamples Section = "examples"
	SectionData     Section = "data"
	SectionHistory  Section = "history"
	SectionUser     Section = "user"
)

// Budget splits a total token allowance across prompt sections by
// percentage.
type Budget struct {
	Total  int
	Shares map[Section]int
}

// DefaultTotalBudget is the default whole-prompt token allowance.
const DefaultTotalBudget = 4000

// DefaultBudget returns the standard 15/20/15/20/15/15 split.
func DefaultBudget() Budget {
	return Budget{
		Total: DefaultTotalBudget,
		Shares: map[Section]int{
			SectionSystem:   15,
			SectionSchema:   20,
			SectionExamples: 15,
			SectionData:     20,
			SectionHistory:  15,
			SectionUser:     15,
		},
	}
}

// SectionTokens returns the token allowance of one section.
func (b Budget) SectionTokens(s Section) int {
	share, ok := b.Shares[s]
	if !ok {
		return b.Total
	}
	return b.Total * share / 100
}

// essentialKeys are the fields kept by the last compression stage.
var essentialKeys = []string{"name", "description", "theme", "kind", "type", "id", "race", "level", "archetype"}

// CompressJSON serializes a value within a token allowance, degrading
// progressively: pretty JSON, then compact JSON, then essential fields
// only, then a hard character truncation.
func CompressJSON(v any, maxTokens int) string {
	if pretty, err := json.MarshalIndent(v, "", "  "); err == nil {
		if EstimateTokens(string(pretty)) <= maxTokens {
			return string(pretty)
		}
	}

	compact, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	if EstimateTokens(string(compact)) <= maxTokens {
		return string(compact)
	}

	if m, ok := asStringMap(v); ok {
		reduced := make(map[string]any)
		for _, k := range essentialKeys {
			if val, exists := m[k]; exists {
				reduced[k] = val
			}
		}
		if len(reduced) > 0 {
			b, err := json.Marshal(reduced)
			if err == nil {
				if EstimateTokens(string(b)) <= maxTokens {
					return string(b)
				}
				compact = b
			}
		}
	}

	return truncateToTokens(string(compact), maxTokens)
}

// CompressHistory keeps the most recent conversation turns that fit the
// allowance, oldest kept turn first.
func CompressHistory(turns []string, maxTokens int) string {
	if len(turns) == 0 {
		return ""
	}
	start := len(turns)
	used := 0
	for i := len(turns) - 1; i >= 0; i-- {
		cost := EstimateTokens(turns[i]) + 1
		if used+cost > maxTokens {
			break
		}
		start = i
		used += cost
	}
	return strings.Join(turns[start:], "\n")
}

func truncateToTokens(s string, maxTokens int) string {
	limit := maxTokens * CharsPerToken
	if len(s) <= limit {
		return s
	}
	if limit <= 3 {
		return s[:limit]
	}
	return s[:limit-3] + "..."
}

func asStringMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	// Entity wrappers marshal as objects; round-trip once to inspect keys.
	b, err := json.Marshal(v)
	if err != nil || len(b) == 0 || b[0] != '{' {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, false
	}
	return m, true
}
