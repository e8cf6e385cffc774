package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"mythforge/internal/entity"
	"mythforge/internal/llm"
	"mythforge/internal/perception"
	"mythforge/internal/phase"
	"mythforge/internal/prompt"
	"mythforge/internal/schema"
	"mythforge/internal/validate"
)

// Options tunes orchestrator behavior.
type Options struct {
	AutoAdvance            bool
	MaxClarificationRounds int
	MaxHistory             int
	SessionTimeout         time.Duration
	DefaultLanguage        string
}

// DefaultOptions mirrors the stock configuration.
func DefaultOptions() Options {
	return Options{
		AutoAdvance:            true,
		MaxClarificationRounds: 3,
		MaxHistory:             50,
		SessionTimeout:         30 * time.Minute,
		DefaultLanguage:        "en",
	}
}

// Orchestrator routes messages through the creation pipeline and owns
// the session map. The map is mutex-guarded; individual sessions carry
// their own lock so two sessions never block each other.
type Orchestrator struct {
	registry   *schema.Registry
	classifier *perception.Classifier
	validator  *validate.Validator
	phases     *phase.Engine
	prompts    *prompt.Builder
	llm        llm.Client
	opts       Options
	log        *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// New wires the pipeline together. A nil llm client disables the
// LLM-assisted path entirely; rule-based extraction still works.
func New(registry *schema.Registry, classifier *perception.Classifier, validator *validate.Validator,
	phases *phase.Engine, prompts *prompt.Builder, client llm.Client, opts Options, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = DefaultOptions().MaxHistory
	}
	if opts.MaxClarificationRounds <= 0 {
		opts.MaxClarificationRounds = DefaultOptions().MaxClarificationRounds
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "en"
	}
	if client == nil {
		client = llm.Unavailable{}
	}
	return &Orchestrator{
		registry:   registry,
		classifier: classifier,
		validator:  validator,
		phases:     phases,
		prompts:    prompts,
		llm:        client,
		opts:       opts,
		log:        log.Named("orchestrator"),
		sessions:   make(map[string]*Session),
	}
}

// StartSession creates a session for a creation mode. A non-nil existing
// entity starts the session directly in the adjusting phase with the
// snapshot loaded. Parent is the owning universe for character mode.
func (o *Orchestrator) StartSession(mode phase.Mode, parent, existing entity.Entity) Result {
	sess := newSession(mode, o.opts.MaxHistory, o.opts.DefaultLanguage)
	sess.Parent = parent

	if existing != nil {
		sess.Generated = existing.Clone()
		sess.Phase = PhaseAdjusting
		sess.CreationPhase = phase.ReviewPhaseID
		for name, v := range existing {
			sess.Extracted[name] = perception.ExtractedField{
				Field:      name,
				Value:      v,
				Confidence: 1,
				Source:     perception.SourceContext,
			}
		}
	}

	o.mu.Lock()
	o.sessions[sess.ID] = sess
	o.mu.Unlock()

	o.log.Info("session started",
		zap.String("session", sess.ID),
		zap.String("mode", string(mode)),
		zap.Bool("existing", existing != nil))

	return Result{
		Success:       true,
		SessionID:     sess.ID,
		Phase:         sess.Phase,
		CreationPhase: sess.CreationPhase,
		Message: msg(sess.Language,
			"Session started. Tell me about your "+string(mode.Kind())+".",
			"Sesión iniciada. Cuéntame sobre tu "+string(mode.Kind())+"."),
		QuickReplies: o.phases.QuickReplies(sess.Mode, sess.CreationPhase, sess.Language, nil),
	}
}

// Session returns a session by id.
func (o *Orchestrator) Session(id string) (*Session, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.sessions[id]
	return s, ok
}

// EndSession marks a session inactive. State stays in the map until
// expiry so callers can still read the generated entity.
func (o *Orchestrator) EndSession(id string) Result {
	sess, ok := o.Session(id)
	if !ok {
		return failure(id, "session not found")
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.Active = false
	sess.touch()
	o.log.Info("session ended", zap.String("session", id))
	return Result{Success: true, SessionID: id, Phase: sess.Phase, Entity: sess.Generated}
}

// ActiveSessionCount is derived on demand from the session map.
func (o *Orchestrator) ActiveSessionCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	n := 0
	for _, s := range o.sessions {
		s.mu.Lock()
		if s.Active {
			n++
		}
		s.mu.Unlock()
	}
	return n
}

// ExpireSessions drops sessions idle past the configured timeout and
// returns how many were removed. Inactive sessions expire too.
func (o *Orchestrator) ExpireSessions(now time.Time) int {
	if o.opts.SessionTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-o.opts.SessionTimeout)

	o.mu.Lock()
	defer o.mu.Unlock()
	removed := 0
	for id, s := range o.sessions {
		s.mu.Lock()
		expired := s.UpdatedAt.Before(cutoff)
		s.mu.Unlock()
		if expired {
			delete(o.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		o.log.Info("expired sessions", zap.Int("count", removed))
	}
	return removed
}

// RunExpirySweep blocks until ctx is done, expiring idle sessions on the
// given interval. Intended to run on its own goroutine.
func (o *Orchestrator) RunExpirySweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			o.ExpireSessions(now)
		}
	}
}
