package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"mythforge/internal/perception"
	"mythforge/internal/phase"
)

// ProcessMessage runs one message through the full pipeline. Unknown and
// inactive sessions fail fast with a structured result.
func (o *Orchestrator) ProcessMessage(ctx context.Context, sessionID, text string) Result {
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

	intent := o.classifier.Classify(text, sess.Mode.Kind())
	sess.Language = intent.Language
	sess.LastIntent = &intent
	sess.history = append(sess.history, text)

	o.log.Debug("processing message",
		zap.String("session", sess.ID),
		zap.String("action", string(intent.Action)),
		zap.String("target", string(intent.Target)),
		zap.Float64("confidence", intent.Confidence))

	var result Result
	switch intent.Action {
	case perception.ActionCreate:
		result = o.handleCreate(ctx, sess, &intent, text)
	case perception.ActionEdit:
		result = o.applyQuickEditLocked(ctx, sess, text)
	case perception.ActionConfirm:
		result = o.handleConfirm(ctx, sess)
	case perception.ActionCancel:
		result = o.handleCancel(sess)
	case perception.ActionQuery:
		result = o.handleQuery(sess)
	case perception.ActionDelete:
		result = failure(sess.ID, msg(sess.Language,
			"Deleting entities is not supported inside a creation session.",
			"Eliminar entidades no está soportado dentro de una sesión de creación."))
	case perception.ActionNavigate:
		result = o.advanceLocked(ctx, sess)
	default:
		result = o.handleFallback(ctx, sess, text)
	}

	result.SessionID = sess.ID
	result.Phase = sess.Phase
	result.CreationPhase = sess.CreationPhase
	result.Completeness = o.phases.Completeness(sess.Mode, sess.filledValues())
	result.Intent = &intent
	return result
}

func (o *Orchestrator) handleCreate(ctx context.Context, sess *Session, intent *perception.DetectedIntent, text string) Result {
	contradictions := o.classifier.Extractor().DetectContradictions(
		text, sess.filledValues(), sess.Mode.Kind(), sess.Language)

	sess.mergeFields(intent.Fields)

	// The LLM path only runs when the rule-based pass left gaps; failures
	// fall through to the rule-based result.
	if intent.NeedsClarification {
		if extra := o.llmExtract(ctx, sess, text); len(extra) > 0 {
			sess.mergeFields(extra)
			intent.NeedsClarification = false
		}
	}

	filled := sess.filledValues()

	if intent.NeedsClarification && sess.ClarificationRounds < o.opts.MaxClarificationRounds {
		sess.ClarificationRounds++
		sess.PendingQuestions = intent.ClarificationQuestions
		return Result{
			Success:   true,
			Message:   o.captureMessage(sess, len(intent.Fields), contradictions.HasContradictions),
			Questions: intent.ClarificationQuestions,
			QuickReplies: o.phases.QuickReplies(sess.Mode, sess.CreationPhase, sess.Language, filled),
		}
	}
	sess.PendingQuestions = nil

	if o.opts.AutoAdvance && len(o.phases.RequiredMissing(sess.Mode, sess.CreationPhase, filled)) == 0 {
		return o.advanceLocked(ctx, sess)
	}

	return Result{
		Success:      true,
		Message:      o.captureMessage(sess, len(intent.Fields), contradictions.HasContradictions),
		Questions:    o.nextQuestions(sess, filled),
		QuickReplies: o.phases.QuickReplies(sess.Mode, sess.CreationPhase, sess.Language, filled),
	}
}

func (o *Orchestrator) handleConfirm(ctx context.Context, sess *Session) Result {
	if sess.Phase == PhaseReviewing || sess.Phase == PhaseAdjusting {
		sess.Phase = PhaseConfirmed
		return Result{
			Success: true,
			Message: msg(sess.Language,
				"Confirmed. Your "+string(sess.Mode.Kind())+" is ready.",
				"Confirmado. Tu "+string(sess.Mode.Kind())+" está listo."),
			Entity: sess.Generated,
		}
	}
	return o.advanceLocked(ctx, sess)
}

func (o *Orchestrator) handleCancel(sess *Session) Result {
	if sess.editor.History().CanUndo() && sess.Generated != nil {
		if restored, ok := sess.editor.Undo(sess.Generated); ok {
			sess.Generated = restored
			return Result{
				Success: true,
				Message: msg(sess.Language, "Last change undone.", "Último cambio deshecho."),
				Entity:  restored,
			}
		}
	}
	return Result{
		Success: true,
		Message: msg(sess.Language, "Okay, nothing was changed.", "De acuerdo, no se cambió nada."),
	}
}

func (o *Orchestrator) handleQuery(sess *Session) Result {
	filled := sess.filledValues()
	names := make([]string, 0, len(filled))
	for name := range filled {
		names = append(names, name)
	}
	sort.Strings(names)

	completeness := o.phases.Completeness(sess.Mode, filled)
	summary := msg(sess.Language,
		fmt.Sprintf("Phase %s, %.0f%% complete. Defined: %s.",
			sess.CreationPhase, completeness, strings.Join(names, ", ")),
		fmt.Sprintf("Fase %s, %.0f%% completado. Definido: %s.",
			sess.CreationPhase, completeness, strings.Join(names, ", ")))
	if len(names) == 0 {
		summary = msg(sess.Language,
			"Nothing has been defined yet.",
			"Aún no se ha definido nada.")
	}

	return Result{
		Success:      true,
		Message:      summary,
		Questions:    o.nextQuestions(sess, filled),
		QuickReplies: o.phases.QuickReplies(sess.Mode, sess.CreationPhase, sess.Language, filled),
	}
}

// handleFallback runs a bulk extraction pass for messages that match no
// intent pattern.
func (o *Orchestrator) handleFallback(ctx context.Context, sess *Session, text string) Result {
	bulk := o.classifier.Extractor().ExtractAll(text, sess.Mode.Kind(), sess.Language)
	merged := sess.mergeFields(bulk.Fields)
	if merged == 0 {
		if extra := o.llmExtract(ctx, sess, text); len(extra) > 0 {
			merged = sess.mergeFields(extra)
		}
	}
	filled := sess.filledValues()

	if merged == 0 {
		return Result{
			Success: true,
			Message: msg(sess.Language,
				"I didn't catch any details there. Could you rephrase?",
				"No capté ningún detalle. ¿Podrías reformularlo?"),
			Questions:    o.nextQuestions(sess, filled),
			QuickReplies: o.phases.QuickReplies(sess.Mode, sess.CreationPhase, sess.Language, filled),
		}
	}

	return Result{
		Success:      true,
		Message:      o.captureMessage(sess, merged, false),
		Questions:    o.nextQuestions(sess, filled),
		QuickReplies: o.phases.QuickReplies(sess.Mode, sess.CreationPhase, sess.Language, filled),
	}
}

// AdvancePhase moves the session to the suggested next creation phase.
// At the terminal phase it is idempotent and asks for confirmation
// instead of erroring.
func (o *Orchestrator) AdvancePhase(ctx context.Context, sessionID string) Result {
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

	result := o.advanceLocked(ctx, sess)
	result.SessionID = sess.ID
	result.Phase = sess.Phase
	result.CreationPhase = sess.CreationPhase
	result.Completeness = o.phases.Completeness(sess.Mode, sess.filledValues())
	return result
}

func (o *Orchestrator) advanceLocked(ctx context.Context, sess *Session) Result {
	filled := sess.filledValues()
	current := o.phases.PhaseIndex(sess.Mode, sess.CreationPhase)

	next := o.phases.SuggestNextPhase(sess.Mode, current, filled)
	if next == nil {
		return Result{
			Success:              true,
			RequiresConfirmation: true,
			Message: msg(sess.Language,
				"Everything is in place. Say \"confirm\" to finish.",
				"Todo está listo. Di \"confirmar\" para terminar."),
			Entity: sess.Generated,
		}
	}

	sess.CreationPhase = next.ID
	o.log.Debug("advanced phase",
		zap.String("session", sess.ID),
		zap.String("phase", next.ID))

	if next.ID == phase.ReviewPhaseID && o.phases.CanGenerate(sess.Mode, filled, sess.Parent != nil) {
		return o.generateLocked(ctx, sess)
	}

	return Result{
		Success: true,
		Message: msg(sess.Language,
			"Moving on to "+next.Name.In("en")+".",
			"Pasamos a "+next.Name.In("es")+"."),
		Questions:    o.nextQuestions(sess, filled),
		QuickReplies: o.phases.QuickReplies(sess.Mode, sess.CreationPhase, sess.Language, filled),
	}
}

// nextQuestions surfaces the highest-priority unanswered schema question
// for the current phase.
func (o *Orchestrator) nextQuestions(sess *Session, filled map[string]any) []string {
	s, err := o.registry.GetSchema(sess.Mode.Kind())
	if err != nil {
		return nil
	}
	missing := o.phases.RequiredMissing(sess.Mode, sess.CreationPhase, filled)
	best := ""
	bestPriority := -1
	for _, name := range missing {
		f, ok := s.Field(name)
		if !ok {
			continue
		}
		if f.Priority > bestPriority && f.Question.In(sess.Language) != "" {
			bestPriority = f.Priority
			best = f.Question.In(sess.Language)
		}
	}
	if best == "" {
		return nil
	}
	return []string{best}
}

func (o *Orchestrator) captureMessage(sess *Session, count int, contradicted bool) string {
	switch {
	case contradicted:
		return msg(sess.Language,
			"Got it, I've updated what you told me before.",
			"Entendido, actualicé lo que me habías dicho antes.")
	case count == 0:
		return msg(sess.Language,
			"Tell me more about your "+string(sess.Mode.Kind())+".",
			"Cuéntame más sobre tu "+string(sess.Mode.Kind())+".")
	case count == 1:
		return msg(sess.Language, "Noted, one detail captured.", "Anotado, un detalle capturado.")
	default:
		return msg(sess.Language,
			fmt.Sprintf("Noted, %d details captured.", count),
			fmt.Sprintf("Anotado, %d detalles capturados.", count))
	}
}
