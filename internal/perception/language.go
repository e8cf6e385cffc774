package perception

import (
	"strings"
)

var diacriticFold = map[rune]rune{
	'á': 'a', 'à': 'a', 'ä': 'a', 'â': 'a',
	'é': 'e', 'è': 'e', 'ë': 'e', 'ê': 'e',
	'í': 'i', 'ì': 'i', 'ï': 'i', 'î': 'i',
	'ó': 'o', 'ò': 'o', 'ö': 'o', 'ô': 'o',
	'ú': 'u', 'ù': 'u', 'ü': 'u', 'û': 'u',
	'ñ': 'n',
}

// normalize lowercases the text and strips diacritics and inverted
// punctuation. Classification and keyword matching run on this form.
func normalize(text string) string {
	lower := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if folded, ok := diacriticFold[r]; ok {
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

// DetectLanguage scores diacritic and stop-word hits per supported
// language and picks the higher score. Ties fall back to defaultLang.
func DetectLanguage(text, defaultLang string) string {
	lower := strings.ToLower(text)

	scores := map[string]int{"en": 0, "es": 0}
	for _, r := range lower {
		for _, d := range spanishDiacritics {
			if r == d {
				scores["es"] += 2
			}
		}
	}

	words := strings.FieldsFunc(normalize(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[w] = true
	}
	for lang, stops := range languageStopWords {
		for _, s := range stops {
			if wordSet[s] {
				scores[lang]++
			}
		}
	}

	switch {
	case scores["es"] > scores["en"]:
		return "es"
	case scores["en"] > scores["es"]:
		return "en"
	default:
		// Ties (including zero hits) resolve to the configured default.
		return defaultLang
	}
}
