package validate

import (
	"fmt"

	"mythforge/internal/entity"
	"mythforge/internal/schema"
)

// ConsistencyResult reports schema-independent internal findings.
type ConsistencyResult struct {
	Consistent bool    `json:"consistent"`
	Issues     []Issue `json:"issues"`
}

// ValidateConsistency runs the schema-independent checks: negative numeric
// stat values, duplicate ids inside repeated-structure arrays, awakening
// levels missing a threshold, and enabled-but-empty sub-systems.
func (v *Validator) ValidateConsistency(e entity.Entity) ConsistencyResult {
	var issues []Issue

	// Negative values anywhere in a stats map are always an error.
	if raw, ok := e.Get("stats"); ok {
		if stats, isMap := raw.(map[string]any); isMap {
			for key, val := range stats {
				if n, isNum := toFloat(val); isNum && n < 0 {
					issues = append(issues, Issue{
						Field:    "stats." + key,
						Code:     CodeNegativeStat,
						Severity: SeverityError,
						Value:    val,
						Message: schema.Label{
							EN: fmt.Sprintf("stat %q has a negative value", key),
							ES: fmt.Sprintf("la estadística %q tiene un valor negativo", key),
						},
					})
				}
			}
		}
	}

	for _, key := range []string{"races", "rules", "stats"} {
		issues = append(issues, duplicateIDIssues(e, key)...)
	}

	// Awakening levels: every entry needs a threshold; an enabled
	// sub-system with zero entries is advisory, not blocking.
	if raw, ok := e.Get("awakeningLevels"); ok {
		if sub, isMap := raw.(map[string]any); isMap {
			enabled, _ := sub["enabled"].(bool)
			levels, _ := sub["levels"].([]any)
			if enabled && len(levels) == 0 {
				issues = append(issues, Issue{
					Field:    "awakeningLevels",
					Code:     CodeEmptySubsystem,
					Severity: SeverityWarning,
					Message: schema.Label{
						EN: "awakening levels are enabled but no levels are defined",
						ES: "los niveles de despertar están activados pero no hay niveles definidos",
					},
				})
			}
			for i, lvl := range levels {
				m, isEntry := lvl.(map[string]any)
				if !isEntry {
					continue
				}
				if _, hasThreshold := m["threshold"]; !hasThreshold {
					issues = append(issues, Issue{
						Field:    fmt.Sprintf("awakeningLevels.levels.%d", i),
						Code:     CodeMissingThreshold,
						Severity: SeverityWarning,
						Message: schema.Label{
							EN: fmt.Sprintf("awakening level %d has no threshold", i),
							ES: fmt.Sprintf("el nivel de despertar %d no tiene umbral", i),
						},
					})
				}
			}
		}
	}

	consistent := true
	for _, is := range issues {
		if is.Severity == SeverityError {
			consistent = false
			break
		}
	}
	return ConsistencyResult{Consistent: consistent, Issues: issues}
}

func duplicateIDIssues(e entity.Entity, key string) []Issue {
	raw, ok := e.Get(key)
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var issues []Issue
	for _, item := range items {
		m, isMap := item.(map[string]any)
		if !isMap {
			continue
		}
		id, _ := m["id"].(string)
		if id == "" {
			continue
		}
		if seen[id] {
			issues = append(issues, Issue{
				Field:    key,
				Code:     CodeDuplicateID,
				Severity: SeverityError,
				Value:    id,
				Message: schema.Label{
					EN: fmt.Sprintf("duplicate id %q in %s", id, key),
					ES: fmt.Sprintf("id duplicado %q en %s", id, key),
				},
			})
		}
		seen[id] = true
	}
	return issues
}

// Size limits: hard cap at 1 MiB, soft recommendation cap at 900 KiB.
const (
	HardSizeLimit = 1 << 20
	SoftSizeLimit = 900 * 1024
)

// SizeResult reports serialized entity size against the limits.
type SizeResult struct {
	WithinLimit     bool     `json:"withinLimit"`
	Size            int      `json:"size"`
	HardLimit       int      `json:"hardLimit"`
	SoftLimit       int      `json:"softLimit"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// ValidateSize serializes the entity and compares its byte length against
// the hard and soft limits, producing actionable recommendations once the
// soft limit is passed.
func (v *Validator) ValidateSize(e entity.Entity) SizeResult {
	size := e.SerializedSize()
	result := SizeResult{
		WithinLimit: size <= HardSizeLimit,
		Size:        size,
		HardLimit:   HardSizeLimit,
		SoftLimit:   SoftSizeLimit,
	}
	if size > HardSizeLimit {
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("entity size %d bytes exceeds the %d byte hard limit; remove large embedded data", size, HardSizeLimit))
	} else if size > SoftSizeLimit {
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("entity size %d bytes exceeds the recommended %d bytes; consider trimming long descriptions", size, SoftSizeLimit))
	}
	return result
}
