// Package orchestrator is the top-level session state machine. It owns
// the concurrent session map and routes each message through the
// classifier, extractor, validator, editor and phase engine, emitting
// structured results. User-visible failures are data (Success=false),
// never errors.
package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"mythforge/internal/editor"
	"mythforge/internal/entity"
	"mythforge/internal/perception"
	"mythforge/internal/phase"
	"mythforge/internal/validate"
)

// SessionPhase is the lifecycle state of a session.
type SessionPhase string

const (
	PhaseGathering  SessionPhase = "gathering"
	PhaseGenerating SessionPhase = "generating"
	PhaseReviewing  SessionPhase = "reviewing"
	PhaseAdjusting  SessionPhase = "adjusting"
	PhaseConfirmed  SessionPhase = "confirmed"
	PhaseError      SessionPhase = "error"
)

// Session holds all mutable state for one creation flow. One message is
// fully processed before the next is accepted for the same session; the
// per-session mutex enforces that without blocking other sessions.
type Session struct {
	mu sync.Mutex

	ID            string
	Mode          phase.Mode
	Phase         SessionPhase
	CreationPhase string
	Language      string

	Extracted        map[string]perception.ExtractedField
	PendingQuestions []string
	Errors           []validate.Issue
	Warnings         []validate.Issue

	LastIntent *perception.DetectedIntent
	Generated  entity.Entity
	Parent     entity.Entity

	editor  *editor.Editor
	history []string

	ClarificationRounds int
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Active              bool
}

func newSession(mode phase.Mode, maxHistory int, defaultLang string) *Session {
	now := time.Now()
	return &Session{
		ID:            uuid.NewString(),
		Mode:          mode,
		Phase:         PhaseGathering,
		CreationPhase: "concept",
		Language:      defaultLang,
		Extracted:     make(map[string]perception.ExtractedField),
		editor:        editor.New(maxHistory, nil),
		CreatedAt:     now,
		UpdatedAt:     now,
		Active:        true,
	}
}

// filledValues projects the accumulated extraction map to plain values
// for completeness scoring and entity synthesis.
func (s *Session) filledValues() map[string]any {
	out := make(map[string]any, len(s.Extracted))
	for name, f := range s.Extracted {
		out[name] = f.Value
	}
	return out
}

// mergeFields overwrites earlier extractions with later ones, field by
// field.
func (s *Session) mergeFields(fields []perception.ExtractedField) int {
	merged := 0
	for _, f := range fields {
		s.Extracted[f.Field] = f
		merged++
	}
	return merged
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now()
}

// Result is the structured outcome of every orchestrator operation.
type Result struct {
	Success              bool                       `json:"success"`
	Message              string                     `json:"message"`
	SessionID            string                     `json:"sessionId,omitempty"`
	Phase                SessionPhase               `json:"phase,omitempty"`
	CreationPhase        string                     `json:"creationPhase,omitempty"`
	Completeness         float64                    `json:"completeness"`
	Questions            []string                   `json:"questions,omitempty"`
	QuickReplies         []string                   `json:"quickReplies,omitempty"`
	Entity               entity.Entity              `json:"entity,omitempty"`
	Diff                 *editor.EntityDiff         `json:"diff,omitempty"`
	Intent               *perception.DetectedIntent `json:"intent,omitempty"`
	Errors               []validate.Issue           `json:"errors,omitempty"`
	Warnings             []validate.Issue           `json:"warnings,omitempty"`
	RequiresConfirmation bool                       `json:"requiresConfirmation,omitempty"`
}

func failure(sessionID, message string) Result {
	return Result{Success: false, Message: message, SessionID: sessionID}
}

// msg picks the bilingual variant for a session language.
func msg(lang, en, es string) string {
	if lang == "es" {
		return es
	}
	return en
}
