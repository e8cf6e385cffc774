package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mythforge/internal/entity"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		body string
		vars map[string]any
		want string
	}{
		{
			name: "variable substitution",
			body: "Hello {{name}}!",
			vars: map[string]any{"name": "Kira"},
			want: "Hello Kira!",
		},
		{
			name: "unknown variable renders empty",
			body: "Hello {{missing}}!",
			vars: nil,
			want: "Hello !",
		},
		{
			name: "if block kept when truthy",
			body: "{{#if theme}}Theme: {{theme}}{{/if}}",
			vars: map[string]any{"theme": "fantasy"},
			want: "Theme: fantasy",
		},
		{
			name: "if block dropped when falsy",
			body: "A{{#if theme}}Theme: {{theme}}{{/if}}B",
			vars: map[string]any{"theme": ""},
			want: "AB",
		},
		{
			name: "if block dropped for empty list",
			body: "{{#if items}}has items{{/if}}",
			vars: map[string]any{"items": []any{}},
			want: "",
		},
		{
			name: "each iterates with this bound",
			body: "{{#each items}}- {{this}}\n{{/each}}",
			vars: map[string]any{"items": []string{"elf", "dwarf"}},
			want: "- elf\n- dwarf\n",
		},
		{
			name: "each over nil renders empty",
			body: "{{#each items}}x{{/each}}",
			vars: nil,
			want: "",
		},
		{
			name: "nested if blocks",
			body: "{{#if a}}A{{#if b}}B{{/if}}C{{/if}}",
			vars: map[string]any{"a": true, "b": false},
			want: "AC",
		},
		{
			name: "if inside each",
			body: "{{#each items}}{{#if this}}[{{this}}]{{/if}}{{/each}}",
			vars: map[string]any{"items": []string{"elf", "", "dwarf"}},
			want: "[elf][dwarf]",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Render(tc.body, tc.vars))
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}

func TestBudgetSectionTokens(t *testing.T) {
	b := DefaultBudget()

	total := 0
	for _, section := range []Section{
		SectionSystem, SectionSchema, SectionExamples,
		SectionData, SectionHistory, SectionUser,
	} {
		total += b.SectionTokens(section)
	}
	assert.Equal(t, DefaultTotalBudget, total)
	assert.Equal(t, DefaultTotalBudget*20/100, b.SectionTokens(SectionSchema))

	t.Run("unknown section gets the whole budget", func(t *testing.T) {
		assert.Equal(t, b.Total, b.SectionTokens("no-such"))
	})
}

func TestCompressJSON(t *testing.T) {
	t.Run("small value stays pretty", func(t *testing.T) {
		out := CompressJSON(map[string]any{"name": "Eldoria"}, 100)
		assert.Contains(t, out, "\n")
		assert.True(t, json.Valid([]byte(out)))
	})

	t.Run("tight allowance drops indentation", func(t *testing.T) {
		v := map[string]any{
			"name":  "Eldoria",
			"theme": "fantasy",
			"tone":  "epic",
		}
		compact, err := json.Marshal(v)
		require.NoError(t, err)

		out := CompressJSON(v, EstimateTokens(string(compact)))
		assert.Equal(t, string(compact), out)
	})

	t.Run("oversized value keeps essential fields only", func(t *testing.T) {
		v := map[string]any{
			"name": "Eldoria",
			"lore": strings.Repeat("ancient history ", 200),
		}
		out := CompressJSON(v, 16)
		assert.Contains(t, out, "Eldoria")
		assert.NotContains(t, out, "ancient history")
		assert.True(t, json.Valid([]byte(out)))
	})

	t.Run("no essential fields falls back to truncation", func(t *testing.T) {
		v := map[string]any{"lore": strings.Repeat("x", 400)}
		out := CompressJSON(v, 4)
		assert.Len(t, out, 4*CharsPerToken)
		assert.True(t, strings.HasSuffix(out, "..."))
	})
}

func TestCompressHistory(t *testing.T) {
	t.Run("empty history", func(t *testing.T) {
		assert.Empty(t, CompressHistory(nil, 100))
	})

	t.Run("everything fits", func(t *testing.T) {
		turns := []string{"first", "second", "third"}
		assert.Equal(t, "first\nsecond\nthird", CompressHistory(turns, 100))
	})

	t.Run("oldest turns dropped first", func(t *testing.T) {
		turns := []string{
			strings.Repeat("old ", 50),
			"middle turn",
			"latest",
		}
		out := CompressHistory(turns, 8)
		assert.Contains(t, out, "latest")
		assert.Contains(t, out, "middle turn")
		assert.NotContains(t, out, "old old")
	})
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()

	tpl, err := r.Get(TplFieldExtraction)
	require.NoError(t, err)
	assert.Equal(t, ShapeJSON, tpl.Shape)
	assert.Contains(t, tpl.Required, "schema")

	_, err = r.Get("no_such_template")
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	assert.Len(t, r.IDs(), len(builtinTemplates))
}

func TestBuild(t *testing.T) {
	b := NewBuilder(NewRegistry(), Budget{}, nil)

	t.Run("clarification prompt", func(t *testing.T) {
		built, err := b.Build(TplClarification, map[string]any{
			"field":    "theme",
			"language": "es",
		})
		require.NoError(t, err)
		assert.Equal(t, TplClarification, built.TemplateID)
		assert.Equal(t, ShapeText, built.Shape)
		assert.Contains(t, built.System, "es")
		assert.Contains(t, built.User, "theme")
		assert.Greater(t, built.EstimatedTokens, 0)
	})

	t.Run("optional blocks collapse when unset", func(t *testing.T) {
		built, err := b.Build(TplClarification, map[string]any{
			"field":    "theme",
			"language": "en",
		})
		require.NoError(t, err)
		assert.NotContains(t, built.User, "Known so far")
	})

	t.Run("missing required variable", func(t *testing.T) {
		_, err := b.Build(TplClarification, map[string]any{"field": "theme"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "language")
	})

	t.Run("unknown template", func(t *testing.T) {
		_, err := b.Build("no_such_template", nil)
		assert.ErrorIs(t, err, ErrTemplateNotFound)
	})

	t.Run("budget compresses data sections", func(t *testing.T) {
		tight := NewBuilder(NewRegistry(), Budget{Total: 200, Shares: DefaultBudget().Shares}, nil)
		built, err := tight.Build(TplFieldExtraction, map[string]any{
			"schema":   "name: string",
			"message":  "make it dark",
			"language": "en",
			"collectedData": map[string]any{
				"name": "Eldoria",
				"lore": strings.Repeat("filler ", 300),
			},
		})
		require.NoError(t, err)
		assert.NotContains(t, built.User, "filler filler")
	})
}

func TestSelectExamples(t *testing.T) {
	t.Run("same language preferred", func(t *testing.T) {
		got := SelectExamples(entity.KindUniverse, "en", 3)
		require.NotEmpty(t, got)
		for _, ex := range got {
			assert.NotContains(t, ex, "Crear")
		}
	})

	t.Run("other language fills a gap", func(t *testing.T) {
		got := SelectExamples(entity.KindRace, "en", 3)
		require.Len(t, got, 1)
		assert.Contains(t, got[0], "Sombra")
	})

	t.Run("cap respected", func(t *testing.T) {
		got := SelectExamples(entity.KindUniverse, "en", 1)
		assert.Len(t, got, 1)
	})

	t.Run("zero max", func(t *testing.T) {
		assert.Nil(t, SelectExamples(entity.KindUniverse, "en", 0))
	})
}
