package schema

// CompletenessScore computes the weighted percentage of filled fields for a
// schema: sum(weight of filled) / sum(weight of all) * 100.
//
// Both the perception bulk extractor and the phase engine call this; the
// schema registry is the single source of truth for field weights.
func CompletenessScore(s *EntityFormSchema, filled func(name string) bool) float64 {
	if s == nil {
		return 0
	}
	total := s.TotalWeight()
	if total == 0 {
		return 0
	}
	var have float64
	for _, f := range s.Fields {
		if filled(f.Name) {
			have += f.Weight
		}
	}
	return have / total * 100
}
