package prompt

import (
	"fmt"

	"go.uber.org/zap"
)

// sectionForVar assigns each budgeted template variable to its prompt
// section. Variables not listed here are interpolated verbatim.
var sectionForVar = map[string]Section{
	"schema":        SectionSchema,
	"examples":      SectionExamples,
	"collectedData": SectionData,
	"entity":        SectionData,
	"parent":        SectionData,
	"history":       SectionHistory,
	"message":       SectionUser,
}

// Builder renders templates under a token budget.
type Builder struct {
	registry *Registry
	budget   Budget
	log      *zap.Logger
}

// NewBuilder constructs a builder. A zero-total budget falls back to the
// default split.
func NewBuilder(registry *Registry, budget Budget, log *zap.Logger) *Builder {
	if budget.Total <= 0 {
		budget = DefaultBudget()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{registry: registry, budget: budget, log: log.Named("prompt")}
}

// Build interpolates the named template against vars. Structured values
// bound to budgeted sections are compressed to their section's token
// share before interpolation. Missing required variables are a
// programming error.
func (b *Builder) Build(templateID string, vars map[string]any) (BuiltPrompt, error) {
	tpl, err := b.registry.Get(templateID)
	if err != nil {
		return BuiltPrompt{}, err
	}

	for _, name := range tpl.Required {
		if _, ok := vars[name]; !ok {
			return BuiltPrompt{}, fmt.Errorf("prompt: template %q missing required variable %q", templateID, name)
		}
	}

	prepared := make(map[string]any, len(vars))
	for name, v := range vars {
		prepared[name] = b.fit(name, v)
	}

	built := BuiltPrompt{
		TemplateID:  tpl.ID,
		System:      Render(tpl.System, prepared),
		User:        Render(tpl.User, prepared),
		Shape:       tpl.Shape,
		MaxTokens:   tpl.MaxTokens,
		Temperature: tpl.Temperature,
	}
	built.EstimatedTokens = EstimateTokens(built.System) + EstimateTokens(built.User)

	b.log.Debug("built prompt",
		zap.String("template", tpl.ID),
		zap.Int("estimatedTokens", built.EstimatedTokens))

	return built, nil
}

// fit compresses a variable's value to its section allowance.
func (b *Builder) fit(name string, v any) any {
	section, budgeted := sectionForVar[name]
	if !budgeted {
		return v
	}
	allowance := b.budget.SectionTokens(section)

	switch t := v.(type) {
	case string:
		return truncateToTokens(t, allowance)
	case []string:
		if section == SectionHistory {
			return CompressHistory(t, allowance)
		}
		return v
	case []any:
		// Iterated by {{#each}}; left as a list.
		return v
	case nil:
		return v
	default:
		return CompressJSON(v, allowance)
	}
}
