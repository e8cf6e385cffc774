package perception

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"mythforge/internal/entity"
	"mythforge/internal/schema"
)

// Extractor pulls typed field values out of raw text using the schema's
// keyword anchors, falling back to generic name/description/theme
// heuristics when schema-based extraction finds nothing.
type Extractor struct {
	registry *schema.Registry
	log      *zap.Logger
}

// NewExtractor builds an extractor over the registry.
func NewExtractor(registry *schema.Registry, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{registry: registry, log: log.Named("extractor")}
}

var upperDiacriticFold = map[rune]rune{
	'Á': 'A', 'À': 'A', 'Ä': 'A', 'Â': 'A',
	'É': 'E', 'È': 'E', 'Ë': 'E', 'Ê': 'E',
	'Í': 'I', 'Ì': 'I', 'Ï': 'I', 'Î': 'I',
	'Ó': 'O', 'Ò': 'O', 'Ö': 'O', 'Ô': 'O',
	'Ú': 'U', 'Ù': 'U', 'Ü': 'U', 'Û': 'U',
	'Ñ': 'N',
}

// foldDiacritics strips diacritics while preserving case, so captured
// values keep their original capitalization.
func foldDiacritics(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if folded, ok := diacriticFold[r]; ok {
			b.WriteRune(folded)
			continue
		}
		if folded, ok := upperDiacriticFold[r]; ok {
			b.WriteRune(folded)
			continue
		}
		if r == '¿' || r == '¡' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ExtractFields runs schema-based keyword extraction for every field of the
// target kind, then the generic heuristics for any of name, description and
// theme that came up empty.
func (e *Extractor) ExtractFields(text string, kind entity.Kind, lang string) []ExtractedField {
	s, err := e.registry.GetSchema(kind)
	if err != nil {
		return nil
	}

	folded := foldDiacritics(text)
	norm := normalize(text)

	var out []ExtractedField
	found := make(map[string]bool)
	for i := range s.Fields {
		f := &s.Fields[i]
		if ef, ok := e.extractByKeyword(f, folded, lang); ok {
			out = append(out, ef)
			found[f.Name] = true
		}
	}

	if !found["name"] {
		if ef, ok := extractGenericName(folded); ok {
			out = append(out, ef)
		}
	}
	if !found["description"] {
		if ef, ok := extractGenericDescription(folded); ok {
			out = append(out, ef)
		}
	}
	if !found["theme"] {
		if _, hasTheme := s.Field("theme"); hasTheme {
			if ef, ok := extractTheme(norm); ok {
				out = append(out, ef)
			}
		}
	}

	return out
}

// extractByKeyword tries the field's language-tagged keyword anchors with a
// quoted pattern first, then an unquoted one.
func (e *Extractor) extractByKeyword(f *schema.FieldSchema, folded, lang string) (ExtractedField, bool) {
	keywords := f.Keywords[lang]
	if len(keywords) == 0 && lang != "en" {
		keywords = f.Keywords["en"]
	}
	for _, kw := range keywords {
		quoted := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\s*[:\s]\s*["']([^"']+)["']`)
		if m := quoted.FindStringSubmatch(folded); len(m) > 1 {
			if ef, ok := e.typedField(f, m[1], m[0], 0.9); ok {
				return ef, true
			}
		}
		unquoted := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\s*[:\s]\s*([^\s"'][^,.;\n]*)`)
		if m := unquoted.FindStringSubmatch(folded); len(m) > 1 {
			if ef, ok := e.typedField(f, m[1], m[0], 0.9); ok {
				return ef, true
			}
		}
	}
	return ExtractedField{}, false
}

var numberPattern = regexp.MustCompile(`-?\d+(\.\d+)?`)

// typedField converts a raw captured string to the field's type. Select
// fields with static options must match an option; dynamic selects keep
// the raw value for later cross-reference validation.
func (e *Extractor) typedField(f *schema.FieldSchema, raw, sourceText string, confidence float64) (ExtractedField, bool) {
	raw = strings.TrimSpace(strings.Trim(raw, `.,;:!?"'`))
	if raw == "" {
		return ExtractedField{}, false
	}

	ef := ExtractedField{
		Field:      f.Name,
		Confidence: confidence,
		Source:     SourceExplicit,
		SourceText: strings.TrimSpace(sourceText),
	}

	switch f.Type {
	case schema.TypeNumber:
		m := numberPattern.FindString(raw)
		if m == "" {
			return ExtractedField{}, false
		}
		n, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return ExtractedField{}, false
		}
		ef.Value = n
	case schema.TypeBoolean:
		switch normalize(raw) {
		case "true", "yes", "si", "on", "enabled", "activado":
			ef.Value = true
		case "false", "no", "off", "disabled", "desactivado":
			ef.Value = false
		default:
			return ExtractedField{}, false
		}
	case schema.TypeSelect:
		if f.Options != nil && f.Options.Dynamic == "" {
			v, ok := matchOption(f.Options.Static, raw)
			if !ok {
				return ExtractedField{}, false
			}
			ef.Value = v
		} else {
			ef.Value = raw
		}
	case schema.TypeMultiselect:
		parts := splitList(raw)
		if len(parts) == 0 {
			return ExtractedField{}, false
		}
		vals := make([]any, len(parts))
		for i, p := range parts {
			vals[i] = p
		}
		ef.Value = vals
	default:
		ef.Value = raw
	}
	return ef, true
}

func splitList(raw string) []string {
	fields := regexp.MustCompile(`\s*(?:,|\by\b|\band\b)\s*`).Split(raw, -1)
	var out []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// matchOption matches a raw string against option values and bilingual
// labels, diacritic- and case-insensitively.
func matchOption(options []schema.Option, raw string) (string, bool) {
	norm := normalize(raw)
	for _, o := range options {
		if norm == normalize(o.Value) || norm == normalize(o.Label.EN) || norm == normalize(o.Label.ES) {
			return o.Value, true
		}
	}
	return "", false
}

var (
	genericNameQuoted = regexp.MustCompile(`(?i)\b(?:called|named|llamado|llamada|titulado|titulada)\s+["']([^"']+)["']`)
	genericNamePlain  = regexp.MustCompile(`(?i)\b(?:called|named|llamado|llamada)\s+([A-Z][\w-]*(?:\s+[A-Z][\w-]*)*)`)
	genericDesc       = regexp.MustCompile(`(?i)\b(?:about|trata de|sobre)\s+(.{10,}?)(?:[.!?\n]|$)`)
)

func extractGenericName(folded string) (ExtractedField, bool) {
	if m := genericNameQuoted.FindStringSubmatch(folded); len(m) > 1 {
		return ExtractedField{
			Field:      "name",
			Value:      strings.TrimSpace(m[1]),
			Confidence: 0.85,
			Source:     SourceExplicit,
			SourceText: strings.TrimSpace(m[0]),
		}, true
	}
	if m := genericNamePlain.FindStringSubmatch(folded); len(m) > 1 {
		return ExtractedField{
			Field:      "name",
			Value:      strings.TrimSpace(m[1]),
			Confidence: 0.6,
			Source:     SourceInferred,
			SourceText: strings.TrimSpace(m[0]),
		}, true
	}
	return ExtractedField{}, false
}

func extractGenericDescription(folded string) (ExtractedField, bool) {
	m := genericDesc.FindStringSubmatch(folded)
	if len(m) < 2 {
		return ExtractedField{}, false
	}
	return ExtractedField{
		Field:      "description",
		Value:      strings.TrimSpace(m[1]),
		Confidence: 0.6,
		Source:     SourceInferred,
		SourceText: strings.TrimSpace(m[0]),
	}, true
}

// themeAliases maps vocabulary words (normalized) found in free text to
// canonical theme values.
var themeAliases = map[string]string{
	"fantasy":         "fantasy",
	"fantasia":        "fantasy",
	"scifi":           "scifi",
	"sci-fi":          "scifi",
	"science fiction": "scifi",
	"ciencia ficcion": "scifi",
	"horror":          "horror",
	"terror":          "horror",
	"cyberpunk":       "cyberpunk",
	"ciberpunk":       "cyberpunk",
	"steampunk":       "steampunk",
	"modern":          "modern",
	"moderno":         "modern",
	"postapocalyptic": "postapocalyptic",
	"post-apocalyptic": "postapocalyptic",
	"postapocaliptico": "postapocalyptic",
}

func extractTheme(norm string) (ExtractedField, bool) {
	for alias, value := range themeAliases {
		if strings.Contains(norm, alias) {
			return ExtractedField{
				Field:      "theme",
				Value:      value,
				Confidence: 0.85,
				Source:     SourceExplicit,
				SourceText: alias,
			}, true
		}
	}
	return ExtractedField{}, false
}

// ExtractAll runs every field's extractor unconditionally and scores
// completeness against the schema registry's weight table.
func (e *Extractor) ExtractAll(text string, kind entity.Kind, lang string) BulkExtraction {
	s, err := e.registry.GetSchema(kind)
	if err != nil {
		return BulkExtraction{}
	}

	fields := e.ExtractFields(text, kind, lang)
	filled := make(map[string]bool, len(fields))
	for _, f := range fields {
		filled[f.Field] = true
	}

	result := BulkExtraction{
		Fields: fields,
		Completeness: schema.CompletenessScore(s, func(name string) bool {
			return filled[name]
		}),
	}

	missing := make([]schema.FieldSchema, 0, len(s.Fields))
	for _, f := range s.Fields {
		if !filled[f.Name] {
			missing = append(missing, f)
		}
	}
	sort.SliceStable(missing, func(i, j int) bool {
		return missing[i].Priority > missing[j].Priority
	})
	for _, f := range missing {
		result.MissingFields = append(result.MissingFields, f.Name)
	}
	for _, f := range missing {
		if q := f.Question.In(lang); q != "" {
			result.NextQuestion = q
			break
		}
	}
	return result
}

// DetectContradictions re-extracts fields from text and flags values that
// differ from non-empty existing data. A new string that contains the old
// value is treated as elaboration, not contradiction.
func (e *Extractor) DetectContradictions(text string, existing map[string]any, kind entity.Kind, lang string) ContradictionResult {
	var result ContradictionResult
	for _, f := range e.ExtractFields(text, kind, lang) {
		old, ok := existing[f.Field]
		if !ok || isEmpty(old) {
			continue
		}
		if sameValue(old, f.Value) {
			continue
		}
		if oldS, okOld := old.(string); okOld {
			if newS, okNew := f.Value.(string); okNew {
				if strings.Contains(normalize(newS), normalize(oldS)) {
					continue
				}
			}
		}
		result.Contradictions = append(result.Contradictions, Contradiction{
			Field:      f.Field,
			OldValue:   old,
			NewValue:   f.Value,
			SourceText: f.SourceText,
		})
	}
	result.HasContradictions = len(result.Contradictions) > 0
	return result
}

func sameValue(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return normalize(as) == normalize(bs)
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
