package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"mythforge/internal/editor"
	"mythforge/internal/entity"
	"mythforge/internal/phase"
	"mythforge/internal/schema"
)

// GenerateFinalEntity synthesizes an entity from the accumulated fields,
// runs complete validation plus auto-fix, and stores the snapshot on the
// session.
func (o *Orchestrator) GenerateFinalEntity(ctx context.Context, sessionID string) Result {
	sess, ok := o.Session(sessionID)
	if !ok {
		return failure(sessionID, "session not found")
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.Active {
		return failure(sessionID, "session is not active")
	}
	defer sess.touch()

	result := o.generateLocked(ctx, sess)
	result.SessionID = sess.ID
	result.Phase = sess.Phase
	result.CreationPhase = sess.CreationPhase
	result.Completeness = o.phases.Completeness(sess.Mode, sess.filledValues())
	return result
}

func (o *Orchestrator) generateLocked(ctx context.Context, sess *Session) Result {
	filled := sess.filledValues()
	if !o.phases.CanGenerate(sess.Mode, filled, sess.Parent != nil) {
		reason := msg(sess.Language,
			"I still need a name before I can build this.",
			"Todavía necesito un nombre antes de poder construirlo.")
		if sess.Mode.Kind() == entity.KindCharacter && sess.Parent == nil {
			reason = msg(sess.Language,
				"A character needs a universe to live in. Pick one first.",
				"Un personaje necesita un universo donde vivir. Elige uno primero.")
		}
		return failure(sess.ID, reason)
	}

	sess.Phase = PhaseGenerating

	draft := o.synthesize(sess, filled)
	if llmFields := o.llmGenerate(ctx, sess, draft); len(llmFields) > 0 {
		for name, v := range llmFields {
			if _, set := draft[name]; !set {
				draft.Set(name, v)
			}
		}
	}

	vctx := &schema.Context{Parent: sess.Parent}
	complete, err := o.validator.ValidateComplete(draft, sess.Mode.Kind(), vctx)
	if err != nil {
		sess.Phase = PhaseError
		return failure(sess.ID, err.Error())
	}

	if len(complete.Validation.Errors) > 0 {
		fixed, fixes, remaining, fixErr := o.validator.AutoFix(draft, complete.Validation.Errors, sess.Mode.Kind())
		if fixErr == nil {
			draft = fixed
			complete.Validation.Errors = remaining
			o.log.Debug("auto-fixed entity",
				zap.String("session", sess.ID),
				zap.Int("fixes", len(fixes)),
				zap.Int("remaining", len(remaining)))
		}
	}

	// Record generation as a changeset so cancel/undo can roll it back.
	changes := editor.GenerateDiff(entity.New(), draft).Changes
	sess.Generated = sess.editor.ApplyChanges(entity.New(), sess.Mode.Kind(), changes, editor.SourceAI, "generated entity")
	sess.Errors = complete.Validation.Errors
	sess.Warnings = complete.Validation.Warnings
	sess.Phase = PhaseReviewing
	sess.CreationPhase = phase.ReviewPhaseID

	message := msg(sess.Language,
		"Here is your "+string(sess.Mode.Kind())+". Review it and tell me what to adjust.",
		"Aquí está tu "+string(sess.Mode.Kind())+". Revísalo y dime qué ajustar.")
	if len(sess.Errors) > 0 {
		message = msg(sess.Language,
			"Generated, but a few fields still need attention.",
			"Generado, pero algunos campos aún necesitan atención.")
	}

	return Result{
		Success:      true,
		Message:      message,
		Entity:       sess.Generated,
		Errors:       sess.Errors,
		Warnings:     sess.Warnings,
		QuickReplies: o.phases.QuickReplies(sess.Mode, sess.CreationPhase, sess.Language, sess.filledValues()),
	}
}

// synthesize builds the draft entity: schema defaults first, then every
// accumulated field on top.
func (o *Orchestrator) synthesize(sess *Session, filled map[string]any) entity.Entity {
	draft := entity.New()
	if s, err := o.registry.GetSchema(sess.Mode.Kind()); err == nil {
		for _, f := range s.Fields {
			if f.Default != nil {
				draft.Set(f.Name, f.Default)
			}
		}
	}
	for name, v := range filled {
		draft.Set(name, v)
	}
	return draft
}

// ApplyQuickEdit detects field changes in free text and applies them to
// the generated entity through the editor.
func (o *Orchestrator) ApplyQuickEdit(ctx context.Context, sessionID, text string) Result {
	sess, ok := o.Session(sessionID)
	if !ok {
		return failure(sessionID, "session not found")
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.Active {
		return failure(sessionID, "session is not active")
	}
	defer sess.touch()

	result := o.applyQuickEditLocked(ctx, sess, text)
	result.SessionID = sess.ID
	result.Phase = sess.Phase
	result.CreationPhase = sess.CreationPhase
	result.Completeness = o.phases.Completeness(sess.Mode, sess.filledValues())
	return result
}

func (o *Orchestrator) applyQuickEditLocked(ctx context.Context, sess *Session, text string) Result {
	if sess.Generated == nil {
		// Editing before generation just folds the fields into the
		// gathering state.
		fields := o.classifier.Extractor().ExtractFields(text, sess.Mode.Kind(), sess.Language)
		if sess.mergeFields(fields) == 0 {
			return failure(sess.ID, msg(sess.Language,
				"There is nothing to edit yet.",
				"Todavía no hay nada que editar."))
		}
		return Result{
			Success: true,
			Message: o.captureMessage(sess, len(fields), false),
		}
	}

	det := editor.DetectChanges(o.classifier.Extractor(), editor.DetectRequest{
		Text:     text,
		Kind:     sess.Mode.Kind(),
		Language: sess.Language,
		Current:  sess.Generated,
	})
	if len(det.Changes) == 0 {
		det.Changes = o.llmDetectChanges(ctx, sess, text)
	}
	if len(det.Changes) == 0 {
		return failure(sess.ID, msg(sess.Language,
			"I couldn't tell what you want to change.",
			"No pude identificar qué quieres cambiar."))
	}

	before := sess.Generated
	sess.Generated = sess.editor.ApplyChanges(before, sess.Mode.Kind(), det.Changes, editor.SourceUser, text)
	diff := editor.GenerateDiff(before, sess.Generated)
	sess.Phase = PhaseAdjusting

	// Keep the extraction map aligned with the edited snapshot.
	for name, v := range sess.Generated {
		if f, ok := sess.Extracted[name]; ok {
			f.Value = v
			sess.Extracted[name] = f
		}
	}

	if validation, err := o.validator.Validate(sess.Generated, sess.Mode.Kind(), &schema.Context{Parent: sess.Parent}); err == nil {
		sess.Errors = validation.Errors
		sess.Warnings = validation.Warnings
	}

	message := msg(sess.Language, "Changes applied.", "Cambios aplicados.")
	if det.HasSecondaryEffects {
		message = msg(sess.Language,
			"Changes applied. Related fields may need review too.",
			"Cambios aplicados. Campos relacionados podrían necesitar revisión.")
	}

	return Result{
		Success:  true,
		Message:  message,
		Entity:   sess.Generated,
		Diff:     &diff,
		Errors:   sess.Errors,
		Warnings: sess.Warnings,
	}
}

// Undo rolls the generated entity back one changeset.
func (o *Orchestrator) Undo(sessionID string) Result {
	sess, ok := o.Session(sessionID)
	if !ok {
		return failure(sessionID, "session not found")
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	defer sess.touch()

	if sess.Generated == nil {
		return failure(sess.ID, msg(sess.Language, "Nothing to undo.", "Nada que deshacer."))
	}
	restored, ok := sess.editor.Undo(sess.Generated)
	if !ok {
		return failure(sess.ID, msg(sess.Language, "Nothing to undo.", "Nada que deshacer."))
	}
	sess.Generated = restored
	return Result{
		Success:   true,
		Message:   msg(sess.Language, "Change undone.", "Cambio deshecho."),
		SessionID: sess.ID,
		Phase:     sess.Phase,
		Entity:    restored,
	}
}

// Redo re-applies the next changeset after an undo.
func (o *Orchestrator) Redo(sessionID string) Result {
	sess, ok := o.Session(sessionID)
	if !ok {
		return failure(sessionID, "session not found")
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	defer sess.touch()

	if sess.Generated == nil {
		return failure(sess.ID, msg(sess.Language, "Nothing to redo.", "Nada que rehacer."))
	}
	restored, ok := sess.editor.Redo(sess.Generated)
	if !ok {
		return failure(sess.ID, msg(sess.Language, "Nothing to redo.", "Nada que rehacer."))
	}
	sess.Generated = restored
	return Result{
		Success:   true,
		Message:   msg(sess.Language, "Change reapplied.", "Cambio reaplicado."),
		SessionID: sess.ID,
		Phase:     sess.Phase,
		Entity:    restored,
	}
}
