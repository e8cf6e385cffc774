package perception

import (
	"strings"

	"go.uber.org/zap"

	"mythforge/internal/entity"
	"mythforge/internal/schema"
)

// Config carries the tunable classification thresholds.
type Config struct {
	// DefaultLanguage is used when language detection ties or finds
	// nothing ("en" or "es").
	DefaultLanguage string

	// ConfidenceThreshold is the floor below which an intent needs
	// clarification.
	ConfidenceThreshold float64

	// FieldConfidenceFloor marks individual extractions as weak; when
	// more than half the extracted fields fall below it, the intent
	// needs clarification.
	FieldConfidenceFloor float64
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		DefaultLanguage:      "en",
		ConfidenceThreshold:  0.5,
		FieldConfidenceFloor: 0.5,
	}
}

// Classifier maps raw messages to detected intents using the ordered
// pattern table in patterns.go.
type Classifier struct {
	cfg       Config
	registry  *schema.Registry
	extractor *Extractor
	log       *zap.Logger
}

// NewClassifier builds a classifier over the given registry. A nil logger
// is replaced with a nop logger.
func NewClassifier(registry *schema.Registry, cfg Config, log *zap.Logger) *Classifier {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	return &Classifier{
		cfg:       cfg,
		registry:  registry,
		extractor: NewExtractor(registry, log),
		log:       log.Named("perception"),
	}
}

// Extractor exposes the classifier's field extractor so callers share one
// instance.
func (c *Classifier) Extractor() *Extractor {
	return c.extractor
}

// Classify normalizes the text, runs the ordered language-tagged rules,
// refines the target by keyword, extracts fields for the refined target,
// and decides whether clarification is needed. contextualTarget, when
// valid, seeds the target for messages that never name one.
func (c *Classifier) Classify(text string, contextualTarget entity.Kind) DetectedIntent {
	lang := DetectLanguage(text, c.cfg.DefaultLanguage)
	norm := normalize(strings.TrimSpace(text))

	// Unmatched input stays unknown rather than defaulting to a query so
	// the orchestrator can run bulk extraction over the free text instead
	// of answering a question nobody asked.
	intent := DetectedIntent{
		Action:     ActionUnknown,
		Language:   lang,
		Confidence: 0.3,
	}

	matched := false
	for _, rule := range intentRules {
		if rule.language != lang {
			continue
		}
		if rule.pattern.MatchString(norm) {
			intent.Action = rule.action
			intent.Target = rule.target
			intent.Confidence = 0.8
			matched = true
			break
		}
	}

	// Language scoring can tie on short messages and land on the wrong
	// side ("cambia el nombre a X" has few diacritics or stop words). When
	// no rule of the detected language matched, a rule match in the other
	// language wins and corrects the detection, at reduced confidence.
	if !matched {
		for _, rule := range intentRules {
			if rule.language == lang {
				continue
			}
			if rule.pattern.MatchString(norm) {
				intent.Action = rule.action
				intent.Target = rule.target
				intent.Confidence = 0.7
				intent.Language = rule.language
				lang = rule.language
				break
			}
		}
	}

	// Keyword pass may override the pattern's default target.
	if refined := refineTarget(norm, lang); refined != "" {
		intent.Target = refined
	}
	if intent.Target == "" && contextualTarget.Valid() {
		intent.Target = contextualTarget
	}
	if intent.Target == "" {
		intent.Target = entity.KindUniverse
	}

	intent.Fields = c.extractor.ExtractFields(text, intent.Target, lang)

	c.decideClarification(&intent)

	c.log.Debug("classified message",
		zap.String("action", string(intent.Action)),
		zap.String("target", string(intent.Target)),
		zap.String("language", intent.Language),
		zap.Float64("confidence", intent.Confidence),
		zap.Int("fields", len(intent.Fields)))

	return intent
}

func refineTarget(norm, lang string) entity.Kind {
	keywords, ok := targetKeywords[lang]
	if !ok {
		return ""
	}
	for _, kind := range targetRefinementOrder {
		for _, kw := range keywords[kind] {
			if containsWord(norm, kw) {
				return kind
			}
		}
	}
	return ""
}

func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	for idx >= 0 {
		before := idx == 0 || !isWordRune(rune(text[idx-1]))
		afterIdx := idx + len(word)
		after := afterIdx >= len(text) || !isWordRune(rune(text[afterIdx]))
		if before && after {
			return true
		}
		next := strings.Index(text[idx+1:], word)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isWordRune(r rune) bool {
	return ('a' <= r && r <= 'z') || ('0' <= r && r <= '9')
}

// decideClarification applies the clarification rules: low overall
// confidence, a create without a name, an edit with nothing extracted, or
// mostly-weak extractions.
func (c *Classifier) decideClarification(intent *DetectedIntent) {
	lang := intent.Language

	if intent.Confidence < c.cfg.ConfidenceThreshold {
		intent.NeedsClarification = true
		intent.ClarificationQuestions = append(intent.ClarificationQuestions,
			pick(lang, "Could you rephrase what you'd like to do?", "¿Podrías reformular lo que quieres hacer?"))
	}

	if intent.Action == ActionCreate && intent.Field("name") == nil {
		intent.NeedsClarification = true
		if q := c.nameQuestion(intent.Target, lang); q != "" {
			intent.ClarificationQuestions = append(intent.ClarificationQuestions, q)
		}
	}

	if intent.Action == ActionEdit && len(intent.Fields) == 0 {
		intent.NeedsClarification = true
		intent.ClarificationQuestions = append(intent.ClarificationQuestions,
			pick(lang, "What would you like to change?", "¿Qué te gustaría cambiar?"))
	}

	if len(intent.Fields) > 0 {
		weak := 0
		for _, f := range intent.Fields {
			if f.Confidence < c.cfg.FieldConfidenceFloor {
				weak++
			}
		}
		if weak*2 > len(intent.Fields) {
			intent.NeedsClarification = true
		}
	}
}

func (c *Classifier) nameQuestion(kind entity.Kind, lang string) string {
	s, err := c.registry.GetSchema(kind)
	if err != nil {
		return ""
	}
	if f, ok := s.Field("name"); ok {
		return f.Question.In(lang)
	}
	return ""
}

func pick(lang, en, es string) string {
	if lang == "es" {
		return es
	}
	return en
}
