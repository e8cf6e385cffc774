// Package prompt renders templated system/user prompts for the LLM
// collaborator under a fixed token budget. Templates are a static
// registry; interpolation supports {{var}}, {{#if var}} blocks and
// {{#each list}} iteration. Token counts are estimated with a fixed
// characters-per-token heuristic, not a real tokenizer.
package prompt

import (
	"errors"
	"fmt"
)

// ErrTemplateNotFound is returned for an unregistered template id. This
// is always a programming error, never a user-facing condition.
var ErrTemplateNotFound = errors.New("prompt: template not found")

// ResponseShape declares what the caller should parse out of the model's
// reply.
type ResponseShape string

const (
	ShapeJSON ResponseShape = "json"
	ShapeText ResponseShape = "text"
)

// Template ids. Callers reference templates only through these.
const (
	TplFieldExtraction    = "field_extraction"
	TplEntityGeneration   = "entity_generation"
	TplErrorCorrection    = "error_correction"
	TplClarification      = "clarification"
	TplEditDetection      = "edit_detection"
	TplContradictionCheck = "contradiction_check"
	TplPhaseGuidance      = "phase_guidance"
	TplEntitySummary      = "entity_summary"
)

// Template is one named prompt with its variable contract and default
// sampling parameters.
type Template struct {
	ID          string
	System      string
	User        string
	Required    []string
	Optional    []string
	Shape       ResponseShape
	MaxTokens   int
	Temperature float32
}

// BuiltPrompt is a fully interpolated prompt ready for the LLM
// collaborator.
type BuiltPrompt struct {
	TemplateID      string
	System          string
	User            string
	Shape           ResponseShape
	MaxTokens       int
	Temperature     float32
	EstimatedTokens int
}

// Registry holds the fixed template set.
type Registry struct {
	templates map[string]Template
}

// NewRegistry builds a registry preloaded with the builtin templates.
func NewRegistry() *Registry {
	r := &Registry{templates: make(map[string]Template, len(builtinTemplates))}
	for _, t := range builtinTemplates {
		r.templates[t.ID] = t
	}
	return r
}

// Register adds or replaces a template.
func (r *Registry) Register(t Template) {
	r.templates[t.ID] = t
}

// Get returns the template for an id.
func (r *Registry) Get(id string) (Template, error) {
	t, ok := r.templates[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrTemplateNotFound, id)
	}
	return t, nil
}

// IDs returns the registered template ids.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	return ids
}

var builtinTemplates = []Template{
	{
		ID: TplFieldExtraction,
		System: "You extract structured RPG entity fields from user messages.\n" +
			"Target schema:\n{{schema}}\n" +
			"{{#if examples}}Examples:\n{{#each examples}}- {{this}}\n{{/each}}{{/if}}" +
			"Respond with a JSON object mapping field names to values. " +
			"Only include fields the message actually states. Reply in {{language}}.",
		User: "{{#if collectedData}}Already collected:\n{{collectedData}}\n\n{{/if}}" +
			"{{#if history}}Conversation so far:\n{{history}}\n\n{{/if}}" +
			"Message: {{message}}",
		Required:    []string{"schema", "message", "language"},
		Optional:    []string{"examples", "collectedData", "history"},
		Shape:       ShapeJSON,
		MaxTokens:   512,
		Temperature: 0.1,
	},
	{
		ID: TplEntityGeneration,
		System: "You are a creative RPG world-building assistant. Generate a complete " +
			"{{kind}} as a JSON object conforming to this schema:\n{{schema}}\n" +
			"Fill unstated fields with fitting, internally consistent values. " +
			"Never contradict the collected data. Reply in {{language}}.",
		User: "Collected data:\n{{collectedData}}\n" +
			"{{#if parent}}Parent universe:\n{{parent}}\n{{/if}}" +
			"Generate the full {{kind}} now.",
		Required:    []string{"kind", "schema", "collectedData", "language"},
		Optional:    []string{"parent"},
		Shape:       ShapeJSON,
		MaxTokens:   2048,
		Temperature: 0.8,
	},
	{
		ID: TplErrorCorrection,
		System: "You fix validation errors in an RPG entity without changing anything " +
			"that already passes. Respond with the corrected entity as JSON. Reply in {{language}}.",
		User: "Entity:\n{{entity}}\n\nValidation errors:\n{{#each errors}}- {{this}}\n{{/each}}" +
			"Return the corrected entity.",
		Required:    []string{"entity", "errors", "language"},
		Shape:       ShapeJSON,
		MaxTokens:   1024,
		Temperature: 0.2,
	},
	{
		ID: TplClarification,
		System: "You ask one short, friendly follow-up question to fill a missing " +
			"RPG entity field. Ask in {{language}}. Plain text, one sentence.",
		User: "Missing field: {{field}}\n" +
			"{{#if collectedData}}Known so far:\n{{collectedData}}\n{{/if}}" +
			"Ask the user for it.",
		Required:    []string{"field", "language"},
		Optional:    []string{"collectedData"},
		Shape:       ShapeText,
		MaxTokens:   128,
		Temperature: 0.6,
	},
	{
		ID: TplEditDetection,
		System: "You detect which fields of an existing RPG entity a user message " +
			"wants to change. Current entity:\n{{entity}}\n" +
			"Respond with JSON: {\"changes\": [{\"path\", \"op\", \"newValue\", \"reason\"}]}. " +
			"Reply in {{language}}.",
		User:        "Message: {{message}}",
		Required:    []string{"entity", "message", "language"},
		Shape:       ShapeJSON,
		MaxTokens:   512,
		Temperature: 0.1,
	},
	{
		ID: TplContradictionCheck,
		System: "You check whether a user message contradicts previously collected " +
			"RPG entity data. Elaboration is not contradiction. " +
			"Respond with JSON: {\"hasContradictions\": bool, \"contradictions\": [{\"field\", \"oldValue\", \"newValue\"}]}.",
		User:        "Collected data:\n{{collectedData}}\n\nMessage: {{message}}",
		Required:    []string{"collectedData", "message"},
		Shape:       ShapeJSON,
		MaxTokens:   256,
		Temperature: 0.1,
	},
	{
		ID: TplPhaseGuidance,
		System: "You guide a user through the \"{{phase}}\" stage of creating an RPG " +
			"{{kind}}. Suggest what to define next in one or two sentences. Reply in {{language}}.",
		User: "{{#if collectedData}}Defined so far:\n{{collectedData}}\n{{/if}}" +
			"{{#if missing}}Still missing: {{#each missing}}{{this}} {{/each}}{{/if}}",
		Required:    []string{"phase", "kind", "language"},
		Optional:    []string{"collectedData", "missing"},
		Shape:       ShapeText,
		MaxTokens:   256,
		Temperature: 0.7,
	},
	{
		ID: TplEntitySummary,
		System: "You summarize an RPG {{kind}} for the user in two or three warm, " +
			"evocative sentences. No lists, no JSON. Reply in {{language}}.",
		User:        "Entity:\n{{entity}}",
		Required:    []string{"kind", "entity", "language"},
		Shape:       ShapeText,
		MaxTokens:   256,
		Temperature: 0.9,
	},
}
