package prompt

import (
	"mythforge/internal/entity"
)

// fewShot is one worked extraction example shown to the model.
type fewShot struct {
	kind     entity.Kind
	language string
	text     string
}

var extractionExamples = []fewShot{
	{entity.KindUniverse, "en", `"Create a universe called Aethermoor, a steampunk world" -> {"name": "Aethermoor", "theme": "steampunk"}`},
	{entity.KindUniverse, "en", `"A dark world about survival after the collapse" -> {"description": "survival after the collapse", "theme": "postapocalyptic", "tone": "dark"}`},
	{entity.KindUniverse, "es", `"Crear universo llamado 'Tierra Media' de fantasía" -> {"name": "Tierra Media", "theme": "fantasy"}`},
	{entity.KindUniverse, "es", `"Un mundo sombrío que trata de la magia prohibida" -> {"description": "la magia prohibida", "theme": "fantasy", "tone": "dark"}`},
	{entity.KindCharacter, "en", `"A character named Kira, an elf rogue at level 12" -> {"name": "Kira", "race": "elf", "archetype": "rogue", "level": 12}`},
	{entity.KindCharacter, "es", `"Un personaje llamado Darius, guerrero humano" -> {"name": "Darius", "race": "humano", "archetype": "guerrero"}`},
	{entity.KindStat, "en", `"Add a strength stat from 1 to 20" -> {"name": "Strength", "minValue": 1, "maxValue": 20}`},
	{entity.KindRace, "es", `"Una raza llamada Sombra que vive en la oscuridad" -> {"name": "Sombra", "description": "vive en la oscuridad"}`},
}

// SelectExamples picks up to max few-shot examples for a kind and
// language. Same-language examples for the exact kind come first; if
// none exist the other language's examples for that kind fill in, so
// the model always sees at least one worked case.
func SelectExamples(kind entity.Kind, language string, max int) []string {
	if max <= 0 {
		return nil
	}
	var primary, fallback []string
	for _, ex := range extractionExamples {
		if ex.kind != kind {
			continue
		}
		if ex.language == language {
			primary = append(primary, ex.text)
		} else {
			fallback = append(fallback, ex.text)
		}
	}
	out := primary
	if len(out) == 0 {
		out = fallback
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}
