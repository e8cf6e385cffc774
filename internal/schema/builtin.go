package schema

import (
	"mythforge/internal/entity"
)

func fptr(v float64) *float64 { return &v }

// ThemeVocabulary is the fixed theme set shared with the generic theme
// extraction heuristic in the perception layer.
var ThemeVocabulary = []Option{
	{Value: "fantasy", Label: Label{EN: "Fantasy", ES: "Fantasía"}},
	{Value: "scifi", Label: Label{EN: "Science Fiction", ES: "Ciencia ficción"}},
	{Value: "horror", Label: Label{EN: "Horror", ES: "Terror"}},
	{Value: "cyberpunk", Label: Label{EN: "Cyberpunk", ES: "Ciberpunk"}},
	{Value: "steampunk", Label: Label{EN: "Steampunk", ES: "Steampunk"}},
	{Value: "modern", Label: Label{EN: "Modern", ES: "Moderno"}},
	{Value: "postapocalyptic", Label: Label{EN: "Post-apocalyptic", ES: "Postapocalíptico"}},
}

func builtinSchemas() []*EntityFormSchema {
	return []*EntityFormSchema{
		universeSchema(),
		characterSchema(),
		statSchema(),
		raceSchema(),
		skillSchema(),
		ruleSchema(),
	}
}

func universeSchema() *EntityFormSchema {
	return &EntityFormSchema{
		Kind:    entity.KindUniverse,
		Version: 1,
		Fields: []FieldSchema{
			{
				Name:  "name",
				Type:  TypeString,
				Label: Label{EN: "Name", ES: "Nombre"},
				Rules: Rules{Required: true, MinLength: 2, MaxLength: 100},
				Keywords: map[string][]string{
					"en": {"name", "called", "titled"},
					"es": {"nombre", "llamado", "titulado"},
				},
				Weight:   3,
				Priority: 100,
				Question: Label{
					EN: "What is your universe called?",
					ES: "¿Cómo se llama tu universo?",
				},
				Phase: "concept",
			},
			{
				Name:  "description",
				Type:  TypeString,
				Label: Label{EN: "Description", ES: "Descripción"},
				Rules: Rules{Required: true, MinLength: 10, MaxLength: 2000},
				Keywords: map[string][]string{
					"en": {"description", "about"},
					"es": {"descripcion", "sobre"},
				},
				Weight:   2,
				Priority: 90,
				Question: Label{
					EN: "What is your universe about?",
					ES: "¿De qué trata tu universo?",
				},
				Phase: "concept",
			},
			{
				Name:    "theme",
				Type:    TypeSelect,
				Label:   Label{EN: "Theme", ES: "Temática"},
				Rules:   Rules{Required: true, OneOf: themeValues()},
				Options: &OptionSource{Static: ThemeVocabulary},
				Keywords: map[string][]string{
					"en": {"theme", "genre"},
					"es": {"tematica", "genero"},
				},
				Weight:   2,
				Priority: 80,
				Question: Label{
					EN: "What theme fits your universe best?",
					ES: "¿Qué temática encaja mejor con tu universo?",
				},
				Phase: "concept",
			},
			{
				Name:  "tone",
				Type:  TypeString,
				Label: Label{EN: "Tone", ES: "Tono"},
				Rules: Rules{MaxLength: 100},
				Keywords: map[string][]string{
					"en": {"tone", "mood"},
					"es": {"tono", "ambiente"},
				},
				Weight:   1,
				Priority: 40,
				Question: Label{
					EN: "What tone should your universe have?",
					ES: "¿Qué tono debería tener tu universo?",
				},
				Phase:    "details",
				Optional: true,
			},
			{
				Name:  "magicLevel",
				Type:  TypeNumber,
				Label: Label{EN: "Magic level", ES: "Nivel de magia"},
				Rules: Rules{MinValue: fptr(0), MaxValue: fptr(10)},
				Keywords: map[string][]string{
					"en": {"magic"},
					"es": {"magia"},
				},
				Weight:   1,
				Priority: 50,
				Default:  float64(5),
				Question: Label{
					EN: "How present is magic, from 0 to 10?",
					ES: "¿Qué tan presente es la magia, de 0 a 10?",
				},
				Phase:    "details",
				Optional: true,
			},
			{
				Name:  "technologyLevel",
				Type:  TypeNumber,
				Label: Label{EN: "Technology level", ES: "Nivel tecnológico"},
				Rules: Rules{MinValue: fptr(0), MaxValue: fptr(10)},
				Keywords: map[string][]string{
					"en": {"technology", "tech"},
					"es": {"tecnologia"},
				},
				Weight:   1,
				Priority: 50,
				Default:  float64(5),
				Question: Label{
					EN: "How advanced is the technology, from 0 to 10?",
					ES: "¿Qué tan avanzada es la tecnología, de 0 a 10?",
				},
				Phase:    "details",
				Optional: true,
			},
			{
				Name:     "stats",
				Type:     TypeArray,
				Label:    Label{EN: "Stats", ES: "Estadísticas"},
				Weight:   2,
				Priority: 60,
				Question: Label{
					EN: "Which stats should characters have?",
					ES: "¿Qué estadísticas deberían tener los personajes?",
				},
				Phase:    "systems",
				Optional: true,
			},
			{
				Name:     "races",
				Type:     TypeArray,
				Label:    Label{EN: "Races", ES: "Razas"},
				Weight:   2,
				Priority: 55,
				Question: Label{
					EN: "Which races inhabit your universe?",
					ES: "¿Qué razas habitan tu universo?",
				},
				Phase:    "systems",
				Optional: true,
			},
			{
				Name:     "rules",
				Type:     TypeArray,
				Label:    Label{EN: "Progression rules", ES: "Reglas de progresión"},
				Weight:   1,
				Priority: 30,
				Phase:    "systems",
				Optional: true,
			},
			{
				Name:     "awakeningLevels",
				Type:     TypeObject,
				Label:    Label{EN: "Awakening levels", ES: "Niveles de despertar"},
				Weight:   1,
				Priority: 20,
				Phase:    "systems",
				Optional: true,
			},
			{
				Name:     "color",
				Type:     TypeColor,
				Label:    Label{EN: "Accent color", ES: "Color de acento"},
				Rules:    Rules{Pattern: `^#[0-9a-fA-F]{6}$`},
				Weight:   0.5,
				Priority: 10,
				Phase:    "details",
				Optional: true,
			},
			{
				Name:     "icon",
				Type:     TypeIcon,
				Label:    Label{EN: "Icon", ES: "Icono"},
				Weight:   0.5,
				Priority: 10,
				Phase:    "details",
				Optional: true,
			},
			{
				Name:     "coverImage",
				Type:     TypeImage,
				Label:    Label{EN: "Cover image", ES: "Imagen de portada"},
				Weight:   0.5,
				Priority: 5,
				Phase:    "details",
				Optional: true,
			},
		},
		CrossField: []CrossFieldValidator{
			{
				Name: "fantasy_high_tech",
				Check: func(e entity.Entity) bool {
					theme, _ := e.GetString("theme")
					tech, ok := e.Get("technologyLevel")
					if theme != "fantasy" || !ok {
						return true
					}
					f, isNum := toFloat(tech)
					return !isNum || f <= 8
				},
				Message: Label{
					EN: "A fantasy theme with technology level above 8 is unusual; consider lowering it or switching theme",
					ES: "Una temática de fantasía con nivel tecnológico mayor a 8 es inusual; considera bajarlo o cambiar la temática",
				},
			},
		},
	}
}

func characterSchema() *EntityFormSchema {
	return &EntityFormSchema{
		Kind:    entity.KindCharacter,
		Version: 1,
		Fields: []FieldSchema{
			{
				Name:  "name",
				Type:  TypeString,
				Label: Label{EN: "Name", ES: "Nombre"},
				Rules: Rules{Required: true, MinLength: 2, MaxLength: 100},
				Keywords: map[string][]string{
					"en": {"name", "called", "named"},
					"es": {"nombre", "llamado", "llamada"},
				},
				Weight:   3,
				Priority: 100,
				Question: Label{
					EN: "What is your character's name?",
					ES: "¿Cómo se llama tu personaje?",
				},
				Phase: "concept",
			},
			{
				Name:  "description",
				Type:  TypeString,
				Label: Label{EN: "Description", ES: "Descripción"},
				Rules: Rules{Required: true, MinLength: 10, MaxLength: 2000},
				Keywords: map[string][]string{
					"en": {"description", "about"},
					"es": {"descripcion", "sobre"},
				},
				Weight:   2,
				Priority: 90,
				Question: Label{
					EN: "Tell me about your character",
					ES: "Cuéntame sobre tu personaje",
				},
				Phase: "concept",
			},
			{
				Name:    "race",
				Type:    TypeSelect,
				Label:   Label{EN: "Race", ES: "Raza"},
				Options: &OptionSource{Dynamic: "parent.races"},
				Keywords: map[string][]string{
					"en": {"race", "species"},
					"es": {"raza", "especie"},
				},
				Weight:   2,
				Priority: 70,
				Question: Label{
					EN: "Which race is your character?",
					ES: "¿De qué raza es tu personaje?",
				},
				Phase:    "identity",
				Optional: true,
			},
			{
				Name:  "archetype",
				Type:  TypeString,
				Label: Label{EN: "Archetype", ES: "Arquetipo"},
				Rules: Rules{MaxLength: 100},
				Keywords: map[string][]string{
					"en": {"class", "archetype", "profession"},
					"es": {"clase", "arquetipo", "profesion"},
				},
				Weight:   1,
				Priority: 60,
				Phase:    "identity",
				Optional: true,
			},
			{
				Name:  "level",
				Type:  TypeNumber,
				Label: Label{EN: "Level", ES: "Nivel"},
				Rules: Rules{MinValue: fptr(1), MaxValue: fptr(100)},
				Keywords: map[string][]string{
					"en": {"level"},
					"es": {"nivel"},
				},
				Weight:   1,
				Priority: 40,
				Default:  float64(1),
				Phase:    "statistics",
				Optional: true,
			},
			{
				Name:     "stats",
				Type:     TypeObject,
				Label:    Label{EN: "Stats", ES: "Estadísticas"},
				Weight:   2,
				Priority: 65,
				Phase:    "statistics",
				Optional: true,
			},
			{
				Name:    "awakeningLevel",
				Type:    TypeSelect,
				Label:   Label{EN: "Awakening level", ES: "Nivel de despertar"},
				Options: &OptionSource{Dynamic: "parent.awakeningLevels"},
				DependsOn: []Dependency{
					{Field: "level", Condition: CondGreaterThan, Value: float64(10)},
				},
				Weight:   0.5,
				Priority: 20,
				Phase:    "statistics",
				Optional: true,
			},
			{
				Name:  "backstory",
				Type:  TypeString,
				Label: Label{EN: "Backstory", ES: "Historia"},
				Rules: Rules{MaxLength: 5000},
				Keywords: map[string][]string{
					"en": {"backstory", "history", "past"},
					"es": {"historia", "pasado", "trasfondo"},
				},
				Weight:   1,
				Priority: 30,
				Phase:    "identity",
				Optional: true,
			},
			{
				Name:     "portrait",
				Type:     TypeImage,
				Label:    Label{EN: "Portrait", ES: "Retrato"},
				Weight:   0.5,
				Priority: 5,
				Phase:    "identity",
				Optional: true,
			},
		},
		CrossField: []CrossFieldValidator{
			{
				Name: "level_range",
				Check: func(e entity.Entity) bool {
					lvl, ok := e.Get("level")
					if !ok {
						return true
					}
					f, isNum := toFloat(lvl)
					return !isNum || (f >= 1 && f <= 100)
				},
				Message: Label{
					EN: "Character level must be between 1 and 100",
					ES: "El nivel del personaje debe estar entre 1 y 100",
				},
				Blocking: true,
			},
		},
	}
}

func statSchema() *EntityFormSchema {
	return &EntityFormSchema{
		Kind:    entity.KindStat,
		Version: 1,
		Fields: []FieldSchema{
			{
				Name:     "name",
				Type:     TypeString,
				Label:    Label{EN: "Name", ES: "Nombre"},
				Rules:    Rules{Required: true, MinLength: 2, MaxLength: 50},
				Keywords: map[string][]string{"en": {"name"}, "es": {"nombre"}},
				Weight:   3,
				Priority: 100,
				Phase:    "concept",
			},
			{
				Name:     "abbreviation",
				Type:     TypeString,
				Label:    Label{EN: "Abbreviation", ES: "Abreviatura"},
				Rules:    Rules{MaxLength: 5},
				Weight:   1,
				Priority: 50,
				Phase:    "concept",
				Optional: true,
			},
			{
				Name:     "minValue",
				Type:     TypeNumber,
				Label:    Label{EN: "Minimum value", ES: "Valor mínimo"},
				Weight:   1,
				Priority: 60,
				Default:  float64(0),
				Phase:    "concept",
				Optional: true,
			},
			{
				Name:     "maxValue",
				Type:     TypeNumber,
				Label:    Label{EN: "Maximum value", ES: "Valor máximo"},
				Weight:   1,
				Priority: 60,
				Default:  float64(100),
				Phase:    "concept",
				Optional: true,
			},
			{
				Name:     "defaultValue",
				Type:     TypeNumber,
				Label:    Label{EN: "Default value", ES: "Valor por defecto"},
				Weight:   1,
				Priority: 40,
				Default:  float64(10),
				Phase:    "concept",
				Optional: true,
			},
		},
		CrossField: []CrossFieldValidator{
			{
				Name: "min_below_max",
				Check: func(e entity.Entity) bool {
					minV, okMin := e.Get("minValue")
					maxV, okMax := e.Get("maxValue")
					if !okMin || !okMax {
						return true
					}
					a, aok := toFloat(minV)
					b, bok := toFloat(maxV)
					return !aok || !bok || a <= b
				},
				Message: Label{
					EN: "Minimum value must not exceed maximum value",
					ES: "El valor mínimo no debe superar el valor máximo",
				},
				Blocking: true,
			},
		},
	}
}

func raceSchema() *EntityFormSchema {
	return &EntityFormSchema{
		Kind:    entity.KindRace,
		Version: 1,
		Fields: []FieldSchema{
			{
				Name:     "name",
				Type:     TypeString,
				Label:    Label{EN: "Name", ES: "Nombre"},
				Rules:    Rules{Required: true, MinLength: 2, MaxLength: 50},
				Keywords: map[string][]string{"en": {"name"}, "es": {"nombre"}},
				Weight:   3,
				Priority: 100,
				Phase:    "concept",
			},
			{
				Name:     "description",
				Type:     TypeString,
				Label:    Label{EN: "Description", ES: "Descripción"},
				Rules:    Rules{MaxLength: 1000},
				Weight:   2,
				Priority: 80,
				Phase:    "concept",
				Optional: true,
			},
			{
				Name:     "bonuses",
				Type:     TypeObject,
				Label:    Label{EN: "Stat bonuses", ES: "Bonificaciones"},
				Weight:   1,
				Priority: 50,
				Phase:    "concept",
				Optional: true,
			},
		},
	}
}

func skillSchema() *EntityFormSchema {
	return &EntityFormSchema{
		Kind:    entity.KindSkill,
		Version: 1,
		Fields: []FieldSchema{
			{
				Name:     "name",
				Type:     TypeString,
				Label:    Label{EN: "Name", ES: "Nombre"},
				Rules:    Rules{Required: true, MinLength: 2, MaxLength: 50},
				Keywords: map[string][]string{"en": {"name"}, "es": {"nombre"}},
				Weight:   3,
				Priority: 100,
				Phase:    "concept",
			},
			{
				Name:     "description",
				Type:     TypeString,
				Label:    Label{EN: "Description", ES: "Descripción"},
				Rules:    Rules{MaxLength: 1000},
				Weight:   2,
				Priority: 80,
				Phase:    "concept",
				Optional: true,
			},
			{
				Name:     "relatedStat",
				Type:     TypeSelect,
				Label:    Label{EN: "Related stat", ES: "Estadística asociada"},
				Options:  &OptionSource{Dynamic: "parent.stats"},
				Weight:   1,
				Priority: 60,
				Phase:    "concept",
				Optional: true,
			},
			{
				Name:     "cost",
				Type:     TypeNumber,
				Label:    Label{EN: "Cost", ES: "Coste"},
				Rules:    Rules{MinValue: fptr(0)},
				Weight:   1,
				Priority: 40,
				Phase:    "concept",
				Optional: true,
			},
		},
	}
}

func ruleSchema() *EntityFormSchema {
	return &EntityFormSchema{
		Kind:    entity.KindRule,
		Version: 1,
		Fields: []FieldSchema{
			{
				Name:     "name",
				Type:     TypeString,
				Label:    Label{EN: "Name", ES: "Nombre"},
				Rules:    Rules{Required: true, MinLength: 2, MaxLength: 100},
				Keywords: map[string][]string{"en": {"name"}, "es": {"nombre"}},
				Weight:   3,
				Priority: 100,
				Phase:    "concept",
			},
			{
				Name:     "description",
				Type:     TypeString,
				Label:    Label{EN: "Description", ES: "Descripción"},
				Rules:    Rules{MaxLength: 1000},
				Weight:   1,
				Priority: 70,
				Phase:    "concept",
				Optional: true,
			},
			{
				Name:     "formula",
				Type:     TypeString,
				Label:    Label{EN: "Formula", ES: "Fórmula"},
				Rules:    Rules{Required: true, MaxLength: 500},
				Weight:   2,
				Priority: 90,
				Phase:    "concept",
			},
			{
				Name:     "appliesTo",
				Type:     TypeMultiselect,
				Label:    Label{EN: "Applies to", ES: "Se aplica a"},
				Options:  &OptionSource{Dynamic: "parent.stats"},
				Weight:   1,
				Priority: 50,
				Phase:    "concept",
				Optional: true,
			},
		},
	}
}

func themeValues() []string {
	out := make([]string, len(ThemeVocabulary))
	for i, o := range ThemeVocabulary {
		out[i] = o.Value
	}
	return out
}
