package orchestrator

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"mythforge/internal/editor"
	"mythforge/internal/entity"
	"mythforge/internal/perception"
	"mythforge/internal/prompt"
)

// llmExtract asks the model to extract fields the rule-based pass
// missed. Any failure returns nil; the caller proceeds rule-based.
func (o *Orchestrator) llmExtract(ctx context.Context, sess *Session, text string) []perception.ExtractedField {
	kind := sess.Mode.Kind()

	built, err := o.prompts.Build(prompt.TplFieldExtraction, map[string]any{
		"schema":        o.schemaSummary(sess),
		"message":       text,
		"language":      sess.Language,
		"examples":      prompt.SelectExamples(kind, sess.Language, 3),
		"collectedData": sess.filledValues(),
		"history":       sess.history,
	})
	if err != nil {
		o.log.Debug("prompt build failed", zap.Error(err))
		return nil
	}

	reply, err := o.llm.Complete(ctx, built.System, built.User, built.MaxTokens, built.Temperature)
	if err != nil {
		o.log.Debug("llm extraction unavailable, staying rule-based", zap.Error(err))
		return nil
	}

	values := parseJSONObject(reply)
	if len(values) == 0 {
		return nil
	}

	s, err := o.registry.GetSchema(kind)
	if err != nil {
		return nil
	}
	var fields []perception.ExtractedField
	for name, v := range values {
		if _, known := s.Field(name); !known {
			continue
		}
		fields = append(fields, perception.ExtractedField{
			Field:      name,
			Value:      v,
			Confidence: 0.7,
			Source:     perception.SourceInferred,
		})
	}
	return fields
}

// llmGenerate asks the model to fill the remaining fields of a draft.
// Returns only values for fields the draft does not already set.
func (o *Orchestrator) llmGenerate(ctx context.Context, sess *Session, draft entity.Entity) map[string]any {
	vars := map[string]any{
		"kind":          string(sess.Mode.Kind()),
		"schema":        o.schemaSummary(sess),
		"collectedData": map[string]any(draft),
		"language":      sess.Language,
	}
	if sess.Parent != nil {
		vars["parent"] = map[string]any(sess.Parent)
	}

	built, err := o.prompts.Build(prompt.TplEntityGeneration, vars)
	if err != nil {
		o.log.Debug("prompt build failed", zap.Error(err))
		return nil
	}

	reply, err := o.llm.Complete(ctx, built.System, built.User, built.MaxTokens, built.Temperature)
	if err != nil {
		o.log.Debug("llm generation unavailable, using collected data only", zap.Error(err))
		return nil
	}
	return parseJSONObject(reply)
}

// llmDetectChanges asks the model which fields an edit message targets.
func (o *Orchestrator) llmDetectChanges(ctx context.Context, sess *Session, text string) []editor.FieldChange {
	built, err := o.prompts.Build(prompt.TplEditDetection, map[string]any{
		"entity":   map[string]any(sess.Generated),
		"message":  text,
		"language": sess.Language,
	})
	if err != nil {
		return nil
	}

	reply, err := o.llm.Complete(ctx, built.System, built.User, built.MaxTokens, built.Temperature)
	if err != nil {
		o.log.Debug("llm edit detection unavailable", zap.Error(err))
		return nil
	}

	var parsed struct {
		Changes []struct {
			Path     string `json:"path"`
			Op       string `json:"op"`
			NewValue any    `json:"newValue"`
			Reason   string `json:"reason"`
		} `json:"changes"`
	}
	if err := json.Unmarshal([]byte(stripFences(reply)), &parsed); err != nil {
		return nil
	}

	var changes []editor.FieldChange
	for _, c := range parsed.Changes {
		if c.Path == "" {
			continue
		}
		op := editor.ChangeOp(c.Op)
		switch op {
		case editor.OpAdd, editor.OpUpdate, editor.OpDelete, editor.OpMove:
		default:
			op = editor.OpUpdate
		}
		changes = append(changes, editor.FieldChange{
			Path:       c.Path,
			Op:         op,
			NewValue:   c.NewValue,
			Reason:     c.Reason,
			Confidence: 0.7,
		})
	}
	return changes
}

// schemaSummary renders a compact field table for prompts.
func (o *Orchestrator) schemaSummary(sess *Session) map[string]any {
	s, err := o.registry.GetSchema(sess.Mode.Kind())
	if err != nil {
		return nil
	}
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		desc := string(f.Type)
		if len(f.Rules.OneOf) > 0 {
			desc += " (" + strings.Join(f.Rules.OneOf, "|") + ")"
		}
		out[f.Name] = desc
	}
	return out
}

// parseJSONObject tolerates markdown fences and leading prose around a
// JSON object reply.
func parseJSONObject(reply string) map[string]any {
	cleaned := stripFences(reply)
	var m map[string]any
	if err := json.Unmarshal([]byte(cleaned), &m); err != nil {
		return nil
	}
	return m
}

func stripFences(reply string) string {
	s := strings.TrimSpace(reply)
	if i := strings.Index(s, "```"); i != -1 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j != -1 {
			s = s[:j]
		}
	}
	start := strings.IndexAny(s, "{[")
	if start > 0 {
		s = s[start:]
	}
	return strings.TrimSpace(s)
}
