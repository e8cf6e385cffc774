package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mythforge/internal/entity"
)

func TestGetSchema(t *testing.T) {
	r := NewRegistry()

	t.Run("every kind has a schema", func(t *testing.T) {
		for _, kind := range entity.Kinds() {
			s, err := r.GetSchema(kind)
			require.NoError(t, err, "kind %s", kind)
			assert.Equal(t, kind, s.Kind)
			assert.NotEmpty(t, s.Fields)
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := r.GetSchema("spaceship")
		assert.ErrorIs(t, err, ErrSchemaNotFound)
	})
}

func TestFieldsForPhase(t *testing.T) {
	r := NewRegistry()

	concept := r.FieldsForPhase(entity.KindUniverse, "concept")
	require.NotEmpty(t, concept)
	for _, f := range concept {
		assert.Equal(t, "concept", f.Phase)
	}

	names := make([]string, 0, len(concept))
	for _, f := range concept {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "name")

	assert.Empty(t, r.FieldsForPhase(entity.KindUniverse, "no-such-phase"))
}

func TestResolveOptions(t *testing.T) {
	r := NewRegistry()

	parent := entity.Entity{
		"races": []any{
			map[string]any{"id": "elf", "name": "Elf"},
			map[string]any{"id": "dwarf", "name": "Dwarf"},
		},
	}
	ctx := &Context{Parent: parent}

	t.Run("static options pass through", func(t *testing.T) {
		s, err := r.GetSchema(entity.KindUniverse)
		require.NoError(t, err)
		theme, ok := s.Field("theme")
		require.True(t, ok)

		opts := r.ResolveOptions(theme, nil)
		assert.NotEmpty(t, opts)
	})

	t.Run("dynamic parent races", func(t *testing.T) {
		s, err := r.GetSchema(entity.KindCharacter)
		require.NoError(t, err)
		race, ok := s.Field("race")
		require.True(t, ok)

		opts := r.ResolveOptions(race, ctx)
		require.Len(t, opts, 2)
		assert.Equal(t, "elf", opts[0].Value)
	})

	t.Run("dynamic without context resolves empty", func(t *testing.T) {
		s, err := r.GetSchema(entity.KindCharacter)
		require.NoError(t, err)
		race, ok := s.Field("race")
		require.True(t, ok)

		assert.Empty(t, r.ResolveOptions(race, nil))
	})
}

func TestDependentFields(t *testing.T) {
	r := NewRegistry()
	s, err := r.GetSchema(entity.KindCharacter)
	require.NoError(t, err)

	t.Run("level above threshold exposes awakening", func(t *testing.T) {
		deps := DependentFields(s, "level", float64(15))
		names := make([]string, 0, len(deps))
		for _, f := range deps {
			names = append(names, f.Name)
		}
		assert.Contains(t, names, "awakeningLevel")
	})

	t.Run("level below threshold does not", func(t *testing.T) {
		deps := DependentFields(s, "level", float64(5))
		for _, f := range deps {
			assert.NotEqual(t, "awakeningLevel", f.Name)
		}
	})
}

func TestCompletenessScore(t *testing.T) {
	r := NewRegistry()
	s, err := r.GetSchema(entity.KindUniverse)
	require.NoError(t, err)

	t.Run("empty is zero", func(t *testing.T) {
		score := CompletenessScore(s, func(string) bool { return false })
		assert.Zero(t, score)
	})

	t.Run("all filled is one hundred", func(t *testing.T) {
		score := CompletenessScore(s, func(string) bool { return true })
		assert.InDelta(t, 100.0, score, 0.001)
	})

	t.Run("weighted partial", func(t *testing.T) {
		score := CompletenessScore(s, func(name string) bool { return name == "name" })
		assert.Greater(t, score, 0.0)
		assert.Less(t, score, 50.0)
	})
}
