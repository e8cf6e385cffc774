package perception

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mythforge/internal/entity"
	"mythforge/internal/schema"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	return NewExtractor(schema.NewRegistry(), nil)
}

func fieldByName(fields []ExtractedField, name string) *ExtractedField {
	for i := range fields {
		if fields[i].Field == name {
			return &fields[i]
		}
	}
	return nil
}

func TestExtractFieldsKeywordAnchored(t *testing.T) {
	ex := newTestExtractor(t)

	t.Run("quoted value after keyword", func(t *testing.T) {
		fields := ex.ExtractFields(`The name: "Shadowfen" should work`, entity.KindUniverse, "en")
		name := fieldByName(fields, "name")
		require.NotNil(t, name)
		assert.Equal(t, "Shadowfen", name.Value)
		assert.Equal(t, SourceExplicit, name.Source)
		assert.GreaterOrEqual(t, name.Confidence, 0.9)
	})

	t.Run("number field", func(t *testing.T) {
		fields := ex.ExtractFields("set the magic level: 8 please", entity.KindUniverse, "en")
		magic := fieldByName(fields, "magicLevel")
		require.NotNil(t, magic)
		assert.Equal(t, float64(8), magic.Value)
	})

	t.Run("spanish keywords", func(t *testing.T) {
		fields := ex.ExtractFields(`nombre: "Eldoria" con nivel de magia: 9`, entity.KindUniverse, "es")
		name := fieldByName(fields, "name")
		require.NotNil(t, name)
		assert.Equal(t, "Eldoria", name.Value)
		magic := fieldByName(fields, "magicLevel")
		require.NotNil(t, magic)
		assert.Equal(t, float64(9), magic.Value)
	})
}

func TestExtractGenericHeuristics(t *testing.T) {
	ex := newTestExtractor(t)

	t.Run("name after called keeps casing", func(t *testing.T) {
		fields := ex.ExtractFields(`a world called "Tierra Media"`, entity.KindUniverse, "en")
		name := fieldByName(fields, "name")
		require.NotNil(t, name)
		assert.Equal(t, "Tierra Media", name.Value)
		assert.Equal(t, SourceExplicit, name.Source)
	})

	t.Run("unquoted capitalized name is inferred", func(t *testing.T) {
		fields := ex.ExtractFields("a universe named Eldoria", entity.KindUniverse, "en")
		name := fieldByName(fields, "name")
		require.NotNil(t, name)
		assert.Equal(t, "Eldoria", name.Value)
		assert.Equal(t, SourceInferred, name.Source)
	})

	t.Run("description after about", func(t *testing.T) {
		fields := ex.ExtractFields("it's about ancient gods returning to a dying world", entity.KindUniverse, "en")
		desc := fieldByName(fields, "description")
		require.NotNil(t, desc)
		assert.Contains(t, desc.Value, "ancient gods")
	})

	t.Run("theme vocabulary with spanish alias", func(t *testing.T) {
		fields := ex.ExtractFields("un mundo de fantasía épica", entity.KindUniverse, "es")
		theme := fieldByName(fields, "theme")
		require.NotNil(t, theme)
		assert.Equal(t, "fantasy", theme.Value)
	})
}

func TestExtractAll(t *testing.T) {
	ex := newTestExtractor(t)

	bulk := ex.ExtractAll(`Create a universe called "Mistfall" about a realm swallowed by fog, fantasy theme`, entity.KindUniverse, "en")

	assert.NotEmpty(t, bulk.Fields)
	assert.Greater(t, bulk.Completeness, 0.0)
	assert.Less(t, bulk.Completeness, 100.0)
	assert.NotEmpty(t, bulk.MissingFields)
	assert.NotContains(t, bulk.MissingFields, "name")

	// With the concept fields filled, the highest-priority missing field
	// still carries a follow-up question to keep the conversation moving.
	assert.Equal(t, "Which stats should characters have?", bulk.NextQuestion)
}

func TestDetectContradictions(t *testing.T) {
	ex := newTestExtractor(t)

	existing := map[string]any{
		"name":  "Eldoria",
		"theme": "fantasy",
	}

	t.Run("different value is a contradiction", func(t *testing.T) {
		result := ex.DetectContradictions(`actually the name: "Ashfall" fits better`, existing, entity.KindUniverse, "en")
		require.True(t, result.HasContradictions)
		assert.Equal(t, "name", result.Contradictions[0].Field)
		assert.Equal(t, "Eldoria", result.Contradictions[0].OldValue)
		assert.Equal(t, "Ashfall", result.Contradictions[0].NewValue)
	})

	t.Run("superset string is elaboration", func(t *testing.T) {
		result := ex.DetectContradictions(`the name: "Eldoria the Undying" sounds grander`, existing, entity.KindUniverse, "en")
		assert.False(t, result.HasContradictions)
	})

	t.Run("same value is no contradiction", func(t *testing.T) {
		result := ex.DetectContradictions(`keep the name: "Eldoria"`, existing, entity.KindUniverse, "en")
		assert.False(t, result.HasContradictions)
	})
}
