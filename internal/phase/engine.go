// Package phase tracks multi-step creation progress: weighted completeness
// scoring, phase skipping, next-phase suggestion, and the generation gate.
//
// Field weights come from the schema registry so the bulk extractor and
// the phase engine always score completeness from the same table.
package phase

import (
	"strings"

	"go.uber.org/zap"

	"mythforge/internal/entity"
	"mythforge/internal/schema"
)

// Mode selects the phase table for a creation flow.
type Mode string

const (
	ModeUniverse  Mode = "universe"
	ModeCharacter Mode = "character"
	ModeEdit      Mode = "edit"
)

// Kind maps a creation mode to the entity kind it builds.
func (m Mode) Kind() entity.Kind {
	switch m {
	case ModeCharacter:
		return entity.KindCharacter
	default:
		return entity.KindUniverse
	}
}

// ReviewPhaseID is the terminal phase of every mode.
const ReviewPhaseID = "review"

// Phase is one named stage of a creation flow. SkipWhen, when set, marks
// the phase skippable for a given set of filled fields.
type Phase struct {
	ID       string
	Name     schema.Label
	Weight   float64
	SkipWhen func(filled map[string]any) bool
}

var universePhases = []Phase{
	{
		ID:     "concept",
		Name:   schema.Label{EN: "Concept", ES: "Concepto"},
		Weight: 3,
	},
	{
		ID:     "details",
		Name:   schema.Label{EN: "World details", ES: "Detalles del mundo"},
		Weight: 2,
		SkipWhen: func(filled map[string]any) bool {
			return hasValue(filled, "magicLevel") && hasValue(filled, "technologyLevel")
		},
	},
	{
		ID:     "systems",
		Name:   schema.Label{EN: "Game systems", ES: "Sistemas de juego"},
		Weight: 2,
		SkipWhen: func(filled map[string]any) bool {
			return hasValue(filled, "stats")
		},
	},
	{
		ID:     ReviewPhaseID,
		Name:   schema.Label{EN: "Review", ES: "Revisión"},
		Weight: 1,
	},
}

var characterPhases = []Phase{
	{
		ID:     "concept",
		Name:   schema.Label{EN: "Concept", ES: "Concepto"},
		Weight: 3,
	},
	{
		ID:     "identity",
		Name:   schema.Label{EN: "Identity", ES: "Identidad"},
		Weight: 2,
		SkipWhen: func(filled map[string]any) bool {
			return hasValue(filled, "race") && hasValue(filled, "archetype")
		},
	},
	{
		ID:     "statistics",
		Name:   schema.Label{EN: "Statistics", ES: "Estadísticas"},
		Weight: 2,
		SkipWhen: func(filled map[string]any) bool {
			return hasValue(filled, "stats")
		},
	},
	{
		ID:     ReviewPhaseID,
		Name:   schema.Label{EN: "Review", ES: "Revisión"},
		Weight: 1,
	},
}

var editPhases = []Phase{
	{
		ID:   ReviewPhaseID,
		Name: schema.Label{EN: "Review", ES: "Revisión"},
	},
}

// GenerateThreshold: at or above this completeness the flow jumps straight
// to review.
const GenerateThreshold = 70.0

// Engine computes phase progression over the schema registry.
type Engine struct {
	registry *schema.Registry
	log      *zap.Logger
}

// NewEngine builds a phase engine.
func NewEngine(registry *schema.Registry, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{registry: registry, log: log.Named("phase")}
}

// Phases returns the ordered phase list for a mode.
func (e *Engine) Phases(mode Mode) []Phase {
	switch mode {
	case ModeCharacter:
		return characterPhases
	case ModeEdit:
		return editPhases
	default:
		return universePhases
	}
}

// PhaseIndex returns the position of a phase id within the mode's table,
// or -1.
func (e *Engine) PhaseIndex(mode Mode, phaseID string) int {
	for i, p := range e.Phases(mode) {
		if p.ID == phaseID {
			return i
		}
	}
	return -1
}

// Completeness returns the 0-100 weighted fill score for the mode's
// schema.
func (e *Engine) Completeness(mode Mode, filled map[string]any) float64 {
	s, err := e.registry.GetSchema(mode.Kind())
	if err != nil {
		return 0
	}
	return schema.CompletenessScore(s, func(name string) bool {
		return hasValue(filled, name)
	})
}

// RequiredMissing lists the non-optional fields of a phase that are still
// unfilled.
func (e *Engine) RequiredMissing(mode Mode, phaseID string, filled map[string]any) []string {
	var missing []string
	for _, f := range e.registry.FieldsForPhase(mode.Kind(), phaseID) {
		if f.Optional {
			continue
		}
		if !hasValue(filled, f.Name) {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// SuggestNextPhase picks the phase after currentIndex the flow should move
// to: at 70% completeness it jumps straight to review; otherwise the first
// subsequent phase that is not skippable, or that still has required
// fields missing.
func (e *Engine) SuggestNextPhase(mode Mode, currentIndex int, filled map[string]any) *Phase {
	phases := e.Phases(mode)
	if len(phases) == 0 {
		return nil
	}

	if e.Completeness(mode, filled) >= GenerateThreshold {
		review := phases[len(phases)-1]
		if currentIndex < len(phases)-1 {
			return &review
		}
		return nil
	}

	return e.firstUnskipped(mode, phases, currentIndex, filled)
}

// firstUnskipped walks the table past currentIndex and returns the first
// phase that is not skippable. A skippable phase is only skipped when none
// of its required fields are still missing.
func (e *Engine) firstUnskipped(mode Mode, phases []Phase, currentIndex int, filled map[string]any) *Phase {
	for i := currentIndex + 1; i < len(phases); i++ {
		p := phases[i]
		if p.SkipWhen != nil && p.SkipWhen(filled) &&
			len(e.RequiredMissing(mode, p.ID, filled)) == 0 {
			continue
		}
		return &p
	}
	return nil
}

// CanGenerate is the hard gate before final entity synthesis: a name is
// always required, and character mode also requires a selected parent
// universe.
func (e *Engine) CanGenerate(mode Mode, filled map[string]any, hasParent bool) bool {
	if !hasValue(filled, "name") {
		return false
	}
	if mode == ModeCharacter && !hasParent {
		return false
	}
	return true
}

// QuickReplies suggests short tap-to-answer strings for the current phase
// in the requested language.
func (e *Engine) QuickReplies(mode Mode, phaseID, lang string, filled map[string]any) []string {
	var replies []string
	for _, name := range e.RequiredMissing(mode, phaseID, filled) {
		s, err := e.registry.GetSchema(mode.Kind())
		if err != nil {
			break
		}
		if f, ok := s.Field(name); ok && f.Question.In(lang) != "" {
			replies = append(replies, f.Question.In(lang))
		}
	}
	if phaseID == ReviewPhaseID || len(replies) == 0 {
		if lang == "es" {
			replies = append(replies, "Se ve bien", "Quiero cambiar algo")
		} else {
			replies = append(replies, "Looks good", "I want to change something")
		}
	}
	if len(replies) > 3 {
		replies = replies[:3]
	}
	return replies
}

func hasValue(filled map[string]any, name string) bool {
	v, ok := filled[name]
	if !ok {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}
