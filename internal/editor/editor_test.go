package editor

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mythforge/internal/entity"
)

func sampleEntity() entity.Entity {
	return entity.Entity{
		"name":        "Aethermoor",
		"description": "A floating world of brass and steam",
		"theme":       "steampunk",
		"stats": map[string]any{
			"strength": float64(10),
			"agility":  float64(12),
		},
	}
}

func TestApplyChangesUndoRestoresOriginal(t *testing.T) {
	ed := New(10, nil)
	original := sampleEntity()

	changes := []FieldChange{
		{Path: "name", Op: OpUpdate, NewValue: "Ashmoor"},
		{Path: "stats.strength", Op: OpUpdate, NewValue: float64(15)},
		{Path: "tone", Op: OpAdd, NewValue: "dark"},
		{Path: "description", Op: OpDelete},
	}
	edited := ed.ApplyChanges(original, entity.KindUniverse, changes, SourceUser, "rework")

	name, _ := edited.GetString("name")
	assert.Equal(t, "Ashmoor", name)
	_, hasDesc := edited.Get("description")
	assert.False(t, hasDesc)

	restored, ok := ed.Undo(edited)
	require.True(t, ok)
	if diff := cmp.Diff(map[string]any(original), map[string]any(restored)); diff != "" {
		t.Errorf("undo did not restore original (-want +got):\n%s", diff)
	}

	redone, ok := ed.Redo(restored)
	require.True(t, ok)
	if diff := cmp.Diff(map[string]any(edited), map[string]any(redone)); diff != "" {
		t.Errorf("redo did not restore edited state (-want +got):\n%s", diff)
	}
}

func TestUndoNestedAddLeavesNoResidue(t *testing.T) {
	ed := New(10, nil)
	original := entity.Entity{"name": "Aethermoor"}

	edited := ed.ApplyChanges(original, entity.KindUniverse, []FieldChange{
		{Path: "stats.strength", Op: OpAdd, NewValue: float64(12)},
	}, SourceUser, "add nested stat")

	v, _ := edited.Get("stats.strength")
	require.Equal(t, float64(12), v)

	restored, ok := ed.Undo(edited)
	require.True(t, ok)
	_, hasStats := restored.Get("stats")
	assert.False(t, hasStats, "undo must remove the intermediate map it created")
	if diff := cmp.Diff(map[string]any(original), map[string]any(restored)); diff != "" {
		t.Errorf("nested add undo mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyChangesDoesNotMutateInput(t *testing.T) {
	ed := New(10, nil)
	original := sampleEntity()

	ed.ApplyChanges(original, entity.KindUniverse, []FieldChange{
		{Path: "stats.strength", Op: OpUpdate, NewValue: float64(99)},
	}, SourceUser, "")

	v, _ := original.Get("stats.strength")
	assert.Equal(t, float64(10), v)
}

func TestApplyChangesRecordsEmptyChangeset(t *testing.T) {
	ed := New(10, nil)
	ed.ApplyChanges(sampleEntity(), entity.KindUniverse, nil, SourceSystem, "no-op")
	assert.Equal(t, 1, ed.History().Len())
	assert.True(t, ed.History().CanUndo())
}

func TestUndoAtEmptyHistory(t *testing.T) {
	ed := New(10, nil)
	_, ok := ed.Undo(sampleEntity())
	assert.False(t, ok)
}

func TestMoveUndo(t *testing.T) {
	ed := New(10, nil)
	original := sampleEntity()

	edited := ed.ApplyChanges(original, entity.KindUniverse, []FieldChange{
		{Path: "theme", Op: OpMove, NewPath: "style"},
	}, SourceUser, "rename field")

	_, hasOld := edited.Get("theme")
	assert.False(t, hasOld)
	style, _ := edited.GetString("style")
	assert.Equal(t, "steampunk", style)

	restored, ok := ed.Undo(edited)
	require.True(t, ok)
	if diff := cmp.Diff(map[string]any(original), map[string]any(restored)); diff != "" {
		t.Errorf("move undo mismatch (-want +got):\n%s", diff)
	}
}

func TestHistoryBound(t *testing.T) {
	const max = 5
	h := NewHistory(max)
	for i := 0; i < max*3; i++ {
		h.Record(Changeset{ID: fmt.Sprintf("cs-%d", i)})
	}
	assert.Equal(t, max, h.Len())
	assert.Equal(t, max-1, h.CurrentIndex())
	assert.Equal(t, "cs-14", h.Current().ID)
}

func TestRedoBranchDiscardedOnRecord(t *testing.T) {
	ed := New(10, nil)
	e := sampleEntity()

	e1 := ed.ApplyChanges(e, entity.KindUniverse, []FieldChange{
		{Path: "name", Op: OpUpdate, NewValue: "First"},
	}, SourceUser, "")
	_ = ed.ApplyChanges(e1, entity.KindUniverse, []FieldChange{
		{Path: "name", Op: OpUpdate, NewValue: "Second"},
	}, SourceUser, "")

	_, ok := ed.Undo(e1)
	require.True(t, ok)
	assert.True(t, ed.History().CanRedo())

	ed.ApplyChanges(e1, entity.KindUniverse, []FieldChange{
		{Path: "name", Op: OpUpdate, NewValue: "Third"},
	}, SourceUser, "")
	assert.False(t, ed.History().CanRedo())
}

func TestGenerateDiff(t *testing.T) {
	t.Run("identical entities", func(t *testing.T) {
		e := sampleEntity()
		diff := GenerateDiff(e, e.Clone())
		assert.False(t, diff.HasChanges)
		assert.Empty(t, diff.Changes)
	})

	t.Run("nested and top level changes", func(t *testing.T) {
		old := sampleEntity()
		updated := old.Clone()
		updated.Set("name", "Renamed")
		updated.Set("stats.strength", float64(18))
		updated.Delete("theme")
		updated.Set("tone", "epic")

		diff := GenerateDiff(old, updated)
		require.True(t, diff.HasChanges)
		assert.Equal(t, 1, diff.Summary.Added)
		assert.Equal(t, 2, diff.Summary.Updated)
		assert.Equal(t, 1, diff.Summary.Deleted)
		assert.Contains(t, diff.Summary.AffectedKeys, "stats")
		assert.Contains(t, diff.Summary.AffectedKeys, "tone")
	})

	t.Run("arrays compared whole", func(t *testing.T) {
		old := entity.Entity{"races": []any{"elf", "dwarf"}}
		updated := entity.Entity{"races": []any{"elf", "dwarf", "orc"}}

		diff := GenerateDiff(old, updated)
		require.Len(t, diff.Changes, 1)
		assert.Equal(t, "races", diff.Changes[0].Path)
		assert.Equal(t, OpUpdate, diff.Changes[0].Op)
	})
}
