package perception

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mythforge/internal/entity"
	"mythforge/internal/schema"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	return NewClassifier(schema.NewRegistry(), DefaultConfig(), nil)
}

func TestClassifySpanishCreateWithNameAndTheme(t *testing.T) {
	c := newTestClassifier(t)

	intent := c.Classify(`Crear universo llamado "Tierra Media" de fantasía`, "")

	assert.Equal(t, ActionCreate, intent.Action)
	assert.Equal(t, entity.KindUniverse, intent.Target)
	assert.Equal(t, "es", intent.Language)
	assert.False(t, intent.NeedsClarification)
	assert.GreaterOrEqual(t, intent.Confidence, 0.5)

	name := intent.Field("name")
	require.NotNil(t, name)
	assert.Equal(t, "Tierra Media", name.Value)
	assert.Equal(t, SourceExplicit, name.Source)

	theme := intent.Field("theme")
	require.NotNil(t, theme)
	assert.Equal(t, "fantasy", theme.Value)
	assert.Equal(t, SourceExplicit, theme.Source)
}

func TestClassifyCreateWithoutNameNeedsClarification(t *testing.T) {
	c := newTestClassifier(t)

	intent := c.Classify("Quiero crear un universo", "")

	assert.Equal(t, ActionCreate, intent.Action)
	assert.Equal(t, entity.KindUniverse, intent.Target)
	assert.Nil(t, intent.Field("name"))
	assert.True(t, intent.NeedsClarification)
	assert.NotEmpty(t, intent.ClarificationQuestions)
}

func TestClassifyEnglishCreate(t *testing.T) {
	c := newTestClassifier(t)

	intent := c.Classify(`Create a universe called "Neon Drift" with a cyberpunk theme`, "")

	assert.Equal(t, ActionCreate, intent.Action)
	assert.Equal(t, entity.KindUniverse, intent.Target)
	assert.Equal(t, "en", intent.Language)

	name := intent.Field("name")
	require.NotNil(t, name)
	assert.Equal(t, "Neon Drift", name.Value)

	theme := intent.Field("theme")
	require.NotNil(t, theme)
	assert.Equal(t, "cyberpunk", theme.Value)
}

func TestClassifyTargetRefinement(t *testing.T) {
	c := newTestClassifier(t)

	t.Run("character keywords override generic create", func(t *testing.T) {
		intent := c.Classify(`Create a character named "Kira"`, "")
		assert.Equal(t, ActionCreate, intent.Action)
		assert.Equal(t, entity.KindCharacter, intent.Target)
	})

	t.Run("contextual target used when no keyword", func(t *testing.T) {
		intent := c.Classify("make it darker and more brutal", entity.KindCharacter)
		assert.Equal(t, entity.KindCharacter, intent.Target)
	})
}

func TestClassifyActions(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		text   string
		action Action
	}{
		{"yes, that's perfect", ActionConfirm},
		{"sí, confirmo", ActionConfirm},
		{"cancel that", ActionCancel},
		{"cambia el nombre a Eldoria", ActionEdit},
		{"delete the universe", ActionDelete},
		{"what do we have so far?", ActionQuery},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			intent := c.Classify(tc.text, entity.KindUniverse)
			assert.Equal(t, tc.action, intent.Action)
		})
	}
}

func TestClassifyCrossLanguageRuleFallback(t *testing.T) {
	c := newTestClassifier(t)

	// Too short for language scoring to see Spanish: "el" and "a" tie the
	// stop-word counts and detection lands on the default "en". The edit
	// rule match in Spanish must still win and correct the language.
	intent := c.Classify("cambia el nombre a Eldoria", entity.KindUniverse)

	assert.Equal(t, ActionEdit, intent.Action)
	assert.Equal(t, "es", intent.Language)
	assert.InDelta(t, 0.7, intent.Confidence, 0.01)
}

func TestClassifyUnmatchedIsUnknown(t *testing.T) {
	c := newTestClassifier(t)

	intent := c.Classify("mmm interesting weather today", "")
	assert.Equal(t, ActionUnknown, intent.Action)
	assert.InDelta(t, 0.3, intent.Confidence, 0.01)
	assert.True(t, intent.NeedsClarification)
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"crear un universo de fantasía", "es"},
		{"create a new world with dragons", "en"},
		{"¿puedes ayudarme con esto?", "es"},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectLanguage(tc.text, "en"))
		})
	}

	t.Run("tie defaults to configured language", func(t *testing.T) {
		assert.Equal(t, "es", DetectLanguage("xyzzy", "es"))
		assert.Equal(t, "en", DetectLanguage("xyzzy", "en"))
	})
}
