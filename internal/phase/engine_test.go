package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mythforge/internal/schema"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(schema.NewRegistry(), nil)
}

func TestPhases(t *testing.T) {
	e := newTestEngine(t)

	universe := e.Phases(ModeUniverse)
	require.Len(t, universe, 4)
	assert.Equal(t, "concept", universe[0].ID)
	assert.Equal(t, ReviewPhaseID, universe[len(universe)-1].ID)

	character := e.Phases(ModeCharacter)
	require.Len(t, character, 4)
	assert.Equal(t, ReviewPhaseID, character[len(character)-1].ID)

	assert.Equal(t, 1, e.PhaseIndex(ModeUniverse, "details"))
	assert.Equal(t, -1, e.PhaseIndex(ModeUniverse, "no-such"))
}

func TestCompleteness(t *testing.T) {
	e := newTestEngine(t)

	assert.Zero(t, e.Completeness(ModeUniverse, nil))

	partial := e.Completeness(ModeUniverse, map[string]any{"name": "Eldoria"})
	assert.Greater(t, partial, 0.0)

	more := e.Completeness(ModeUniverse, map[string]any{
		"name":        "Eldoria",
		"description": "A fantasy realm",
		"theme":       "fantasy",
	})
	assert.Greater(t, more, partial)

	t.Run("empty strings do not count", func(t *testing.T) {
		assert.Zero(t, e.Completeness(ModeUniverse, map[string]any{"name": "   "}))
	})
}

func TestSuggestNextPhase(t *testing.T) {
	e := newTestEngine(t)

	t.Run("advances to the next phase", func(t *testing.T) {
		next := e.SuggestNextPhase(ModeUniverse, 0, map[string]any{"name": "Eldoria"})
		require.NotNil(t, next)
		assert.Equal(t, "details", next.ID)
	})

	t.Run("skippable phase is skipped", func(t *testing.T) {
		filled := map[string]any{
			"name":            "Eldoria",
			"magicLevel":      float64(7),
			"technologyLevel": float64(2),
		}
		next := e.SuggestNextPhase(ModeUniverse, 0, filled)
		require.NotNil(t, next)
		assert.Equal(t, "systems", next.ID)
	})

	t.Run("high completeness jumps to review", func(t *testing.T) {
		filled := map[string]any{
			"name":            "Eldoria",
			"description":     "A fantasy realm of old magic",
			"theme":           "fantasy",
			"tone":            "epic",
			"magicLevel":      float64(7),
			"technologyLevel": float64(2),
			"stats":           []any{map[string]any{"id": "strength"}},
			"races":           []any{map[string]any{"id": "elf"}},
		}
		require.GreaterOrEqual(t, e.Completeness(ModeUniverse, filled), GenerateThreshold)

		next := e.SuggestNextPhase(ModeUniverse, 0, filled)
		require.NotNil(t, next)
		assert.Equal(t, ReviewPhaseID, next.ID)
	})

	t.Run("nil at the terminal phase", func(t *testing.T) {
		last := len(e.Phases(ModeUniverse)) - 1
		assert.Nil(t, e.SuggestNextPhase(ModeUniverse, last, map[string]any{"name": "X"}))
	})

	t.Run("required fields block the skip", func(t *testing.T) {
		// A custom table with a skippable phase that maps to schema fields
		// which are required and unfilled: the skip must not fire.
		phases := []Phase{
			{
				ID:       "concept",
				SkipWhen: func(map[string]any) bool { return true },
			},
			{ID: ReviewPhaseID},
		}

		next := e.firstUnskipped(ModeUniverse, phases, -1, nil)
		require.NotNil(t, next)
		assert.Equal(t, "concept", next.ID)

		filled := map[string]any{
			"name":        "Eldoria",
			"description": "A fantasy realm",
			"theme":       "fantasy",
		}
		next = e.firstUnskipped(ModeUniverse, phases, -1, filled)
		require.NotNil(t, next)
		assert.Equal(t, ReviewPhaseID, next.ID)
	})
}

func TestRequiredMissing(t *testing.T) {
	e := newTestEngine(t)

	missing := e.RequiredMissing(ModeUniverse, "concept", nil)
	assert.Contains(t, missing, "name")
	assert.Contains(t, missing, "description")

	missing = e.RequiredMissing(ModeUniverse, "concept", map[string]any{
		"name":        "Eldoria",
		"description": "A fantasy realm",
		"theme":       "fantasy",
	})
	assert.Empty(t, missing)
}

func TestCanGenerate(t *testing.T) {
	e := newTestEngine(t)

	assert.False(t, e.CanGenerate(ModeUniverse, nil, false))
	assert.True(t, e.CanGenerate(ModeUniverse, map[string]any{"name": "Eldoria"}, false))

	t.Run("character requires a parent universe", func(t *testing.T) {
		filled := map[string]any{"name": "Kira"}
		assert.False(t, e.CanGenerate(ModeCharacter, filled, false))
		assert.True(t, e.CanGenerate(ModeCharacter, filled, true))
	})
}

func TestQuickReplies(t *testing.T) {
	e := newTestEngine(t)

	t.Run("missing field questions", func(t *testing.T) {
		replies := e.QuickReplies(ModeUniverse, "concept", "en", nil)
		assert.NotEmpty(t, replies)
		assert.LessOrEqual(t, len(replies), 3)
	})

	t.Run("review phase offers confirmation", func(t *testing.T) {
		replies := e.QuickReplies(ModeUniverse, ReviewPhaseID, "es", map[string]any{"name": "X"})
		assert.Contains(t, replies, "Se ve bien")
	})
}
