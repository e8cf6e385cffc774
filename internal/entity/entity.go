// Package entity defines the generic in-memory representation of a game
// entity (universe, character, stat, race, skill, rule) and the dot-path
// addressing used by the validator and the incremental editor.
//
// Entities are schema-driven and vary in shape per kind and phase, so they
// are modeled as arbitrary-depth key/value maps rather than fixed structs.
package entity

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Kind selects which form schema an entity is validated against.
type Kind string

const (
	KindUniverse  Kind = "universe"
	KindCharacter Kind = "character"
	KindStat      Kind = "stat"
	KindRace      Kind = "race"
	KindSkill     Kind = "skill"
	KindRule      Kind = "rule"
)

// Kinds lists every known entity kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindUniverse, KindCharacter, KindStat, KindRace, KindSkill, KindRule}
}

// Valid reports whether k is a known entity kind.
func (k Kind) Valid() bool {
	switch k {
	case KindUniverse, KindCharacter, KindStat, KindRace, KindSkill, KindRule:
		return true
	}
	return false
}

// Entity is an arbitrary-depth JSON-like value. Nested objects are
// map[string]any, arrays are []any, scalars are string/float64/bool.
type Entity map[string]any

// New returns an empty entity.
func New() Entity {
	return Entity{}
}

// Get resolves a dot-separated path ("stats.strength") against the entity.
// The second return is false when any segment is missing or a non-map value
// is traversed.
func (e Entity) Get(path string) (any, bool) {
	if e == nil || path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var cur any = map[string]any(e)
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			if em, isEnt := cur.(Entity); isEnt {
				m = map[string]any(em)
			} else {
				return nil, false
			}
		}
		v, exists := m[p]
		if !exists {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// GetString is Get narrowed to string values.
func (e Entity) GetString(path string) (string, bool) {
	v, ok := e.Get(path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Set writes value at a dot-separated path, creating intermediate maps on
// demand. Writing through a non-map segment replaces that segment.
func (e Entity) Set(path string, value any) {
	if e == nil || path == "" {
		return
	}
	parts := strings.Split(path, ".")
	m := map[string]any(e)
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// Delete removes the value at path. Missing paths are a no-op.
func (e Entity) Delete(path string) {
	if e == nil || path == "" {
		return
	}
	parts := strings.Split(path, ".")
	m := map[string]any(e)
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			return
		}
		m = next
	}
	delete(m, parts[len(parts)-1])
}

// Clone returns a deep copy. Maps and slices are copied recursively; scalar
// values are shared (they are immutable in Go).
func (e Entity) Clone() Entity {
	if e == nil {
		return nil
	}
	return Entity(cloneValue(map[string]any(e)).(map[string]any))
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case Entity:
		return cloneValue(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// Equal reports deep equality of two entities.
func Equal(a, b Entity) bool {
	return reflect.DeepEqual(normalize(map[string]any(a)), normalize(map[string]any(b)))
}

// normalize converts Entity values nested inside maps so DeepEqual does not
// distinguish Entity from map[string]any.
func normalize(v any) any {
	switch t := v.(type) {
	case Entity:
		return normalize(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON round-trips the entity through its map form.
func (e Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any(e))
}

// FromJSON parses a JSON object into an Entity.
func FromJSON(data []byte) (Entity, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse entity: %w", err)
	}
	return Entity(m), nil
}

// SerializedSize returns the compact JSON byte length of the entity.
// Used by the size validator; entities that fail to serialize report 0.
func (e Entity) SerializedSize() int {
	data, err := json.Marshal(map[string]any(e))
	if err != nil {
		return 0
	}
	return len(data)
}
