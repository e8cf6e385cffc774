package editor

import (
	"reflect"
	"sort"
	"strings"

	"mythforge/internal/entity"
)

// DiffSummary counts the changes in a diff by operation and lists the
// affected top-level keys.
type DiffSummary struct {
	Added        int      `json:"added"`
	Updated      int      `json:"updated"`
	Deleted      int      `json:"deleted"`
	AffectedKeys []string `json:"affectedKeys"`
}

// EntityDiff is the result of comparing two entity snapshots.
type EntityDiff struct {
	HasChanges bool          `json:"hasChanges"`
	Changes    []FieldChange `json:"changes"`
	Summary    DiffSummary   `json:"summary"`
}

// GenerateDiff recursively walks both entity trees and emits one
// FieldChange per added, updated or deleted leaf. Arrays are compared by
// whole-value equality, never element-wise.
func GenerateDiff(old, new entity.Entity) EntityDiff {
	var changes []FieldChange
	diffMaps(map[string]any(old), map[string]any(new), "", &changes)

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })

	diff := EntityDiff{
		HasChanges: len(changes) > 0,
		Changes:    changes,
	}
	topKeys := make(map[string]bool)
	for _, ch := range changes {
		switch ch.Op {
		case OpAdd:
			diff.Summary.Added++
		case OpUpdate:
			diff.Summary.Updated++
		case OpDelete:
			diff.Summary.Deleted++
		}
		topKeys[strings.SplitN(ch.Path, ".", 2)[0]] = true
	}
	for k := range topKeys {
		diff.Summary.AffectedKeys = append(diff.Summary.AffectedKeys, k)
	}
	sort.Strings(diff.Summary.AffectedKeys)
	return diff
}

func diffMaps(old, new map[string]any, prefix string, changes *[]FieldChange) {
	for key, oldVal := range old {
		path := joinPath(prefix, key)
		newVal, exists := new[key]
		if !exists {
			*changes = append(*changes, FieldChange{Path: path, Op: OpDelete, OldValue: oldVal})
			continue
		}
		diffValues(oldVal, newVal, path, changes)
	}
	for key, newVal := range new {
		if _, exists := old[key]; !exists {
			*changes = append(*changes, FieldChange{Path: joinPath(prefix, key), Op: OpAdd, NewValue: newVal})
		}
	}
}

func diffValues(oldVal, newVal any, path string, changes *[]FieldChange) {
	oldMap, oldIsMap := asMap(oldVal)
	newMap, newIsMap := asMap(newVal)
	if oldIsMap && newIsMap {
		diffMaps(oldMap, newMap, path, changes)
		return
	}
	if !reflect.DeepEqual(oldVal, newVal) {
		*changes = append(*changes, FieldChange{Path: path, Op: OpUpdate, OldValue: oldVal, NewValue: newVal})
	}
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case entity.Entity:
		return map[string]any(t), true
	}
	return nil, false
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
