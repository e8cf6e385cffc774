package perception

import (
	"regexp"

	"mythforge/internal/entity"
)

// intentRule is one language-tagged classification rule. Rules are matched
// in declaration order against the normalized message; the first matching
// rule of the detected language wins, with a cross-language second pass
// when none match.
type intentRule struct {
	pattern  *regexp.Regexp
	action   Action
	target   entity.Kind // default target, "" when the rule is generic
	language string
	priority int
}

// intentRules is ordered: more specific rules (explicit target words) come
// before the generic verb-only rules for the same action.
var intentRules = []intentRule{
	// --- Spanish ---
	{regexp.MustCompile(`^(quiero\s+|quisiera\s+|vamos\s+a\s+|por\s+favor[,\s]+)?crea(r)?\s+(un\s+|una\s+|el\s+|la\s+)?universo`), ActionCreate, entity.KindUniverse, "es", 10},
	{regexp.MustCompile(`^(quiero\s+|quisiera\s+|vamos\s+a\s+|por\s+favor[,\s]+)?crea(r)?\s+(un\s+|una\s+|el\s+|la\s+)?personaje`), ActionCreate, entity.KindCharacter, "es", 10},
	{regexp.MustCompile(`^(quiero\s+|quisiera\s+|vamos\s+a\s+|por\s+favor[,\s]+)?(crea(r)?|haz|hacer|construir|empezar|comenzar|nuevo|nueva)\b`), ActionCreate, "", "es", 5},
	{regexp.MustCompile(`^(cambia(r)?|edita(r)?|actualiza(r)?|modifica(r)?|pon|ajusta(r)?|renombra(r)?)\b`), ActionEdit, "", "es", 5},
	{regexp.MustCompile(`^(borra(r)?|elimina(r)?|quita(r)?|descarta(r)?)\b`), ActionDelete, "", "es", 5},
	{regexp.MustCompile(`^(si|vale|confirmo|confirmar|correcto|perfecto|listo|de acuerdo|adelante|me gusta)\b`), ActionConfirm, "", "es", 5},
	{regexp.MustCompile(`^(no\b|cancela(r)?|deshaz|deshacer|detente|espera|atras|volver)`), ActionCancel, "", "es", 5},
	{regexp.MustCompile(`^(ve\s+a|siguiente|anterior|salta(r)?|omite|continua(r)?)\b`), ActionNavigate, "", "es", 5},
	{regexp.MustCompile(`^(que|como|cual|cuales|donde|cuando|muestra(me)?|dime|ensename|estado)\b`), ActionQuery, "", "es", 3},

	// --- English ---
	{regexp.MustCompile(`^(i\s+want\s+to\s+|i'?d\s+like\s+to\s+|let'?s\s+|please\s+)?(create|make|build|start)\s+(a\s+|an\s+|the\s+)?universe`), ActionCreate, entity.KindUniverse, "en", 10},
	{regexp.MustCompile(`^(i\s+want\s+to\s+|i'?d\s+like\s+to\s+|let'?s\s+|please\s+)?(create|make|build|start)\s+(a\s+|an\s+|the\s+)?character`), ActionCreate, entity.KindCharacter, "en", 10},
	{regexp.MustCompile(`^(i\s+want\s+to\s+|i'?d\s+like\s+to\s+|let'?s\s+|please\s+)?(create|make|build|start|new)\b`), ActionCreate, "", "en", 5},
	{regexp.MustCompile(`^(change|edit|update|modify|set|adjust|rename)\b`), ActionEdit, "", "en", 5},
	{regexp.MustCompile(`^(delete|remove|drop|discard)\b`), ActionDelete, "", "en", 5},
	{regexp.MustCompile(`^(yes|yep|yeah|sure|ok(ay)?|confirm|correct|perfect|done|looks\s+good|go\s+ahead|i\s+like\s+it)\b`), ActionConfirm, "", "en", 5},
	{regexp.MustCompile(`^(no\b|cancel|undo|stop|wait|never\s*mind|go\s+back)`), ActionCancel, "", "en", 5},
	{regexp.MustCompile(`^(go\s+to|next|previous|skip|continue)\b`), ActionNavigate, "", "en", 5},
	{regexp.MustCompile(`^(what|how|which|where|when|show(\s+me)?|tell\s+me|status)\b`), ActionQuery, "", "en", 3},
}

// targetKeywords refine the rule's default target: a generic "create" match
// that mentions a character is retargeted to character.
var targetKeywords = map[string]map[entity.Kind][]string{
	"en": {
		entity.KindUniverse:  {"universe", "world", "setting", "realm"},
		entity.KindCharacter: {"character", "hero", "heroine", "protagonist", "villain", "npc"},
		entity.KindStat:      {"stat", "statistic", "attribute"},
		entity.KindRace:      {"race", "species", "folk"},
		entity.KindSkill:     {"skill", "ability", "talent"},
		entity.KindRule:      {"rule", "progression", "formula"},
	},
	"es": {
		entity.KindUniverse:  {"universo", "mundo", "ambientacion", "reino"},
		entity.KindCharacter: {"personaje", "heroe", "heroina", "protagonista", "villano"},
		entity.KindStat:      {"estadistica", "atributo"},
		entity.KindRace:      {"raza", "especie"},
		entity.KindSkill:     {"habilidad", "talento", "destreza"},
		entity.KindRule:      {"regla", "progresion", "formula"},
	},
}

// targetRefinementOrder keeps keyword refinement deterministic.
var targetRefinementOrder = []entity.Kind{
	entity.KindCharacter,
	entity.KindUniverse,
	entity.KindStat,
	entity.KindRace,
	entity.KindSkill,
	entity.KindRule,
}

// Stop words and diacritics feed independent language scoring.
var languageStopWords = map[string][]string{
	"en": {"the", "a", "an", "of", "to", "and", "is", "my", "with", "for", "that", "want", "create", "about", "it"},
	"es": {"el", "la", "los", "las", "un", "una", "de", "que", "y", "es", "mi", "con", "para", "quiero", "crear", "sobre"},
}

var spanishDiacritics = []rune{'á', 'é', 'í', 'ó', 'ú', 'ñ', 'ü', '¿', '¡'}
