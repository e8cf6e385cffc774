// Package editor applies and reverses field-level changes to entity
// snapshots, computes diffs between snapshots, and maintains a bounded
// linear undo/redo changeset history. One History is scoped per session;
// histories are never shared across entities.
package editor

import (
	"time"

	"github.com/google/uuid"

	"mythforge/internal/entity"
)

// ChangeOp is the operation kind of a single field change.
type ChangeOp string

const (
	OpAdd    ChangeOp = "add"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
	OpMove   ChangeOp = "move"
)

// ChangeSource records who produced a changeset.
type ChangeSource string

const (
	SourceUser       ChangeSource = "user"
	SourceAI         ChangeSource = "ai"
	SourceSystem     ChangeSource = "system"
	SourceValidation ChangeSource = "validation"
)

// FieldChange is one field-level edit addressed by dot path. NewPath is
// only set for move operations.
type FieldChange struct {
	Path       string   `json:"path"`
	Op         ChangeOp `json:"op"`
	OldValue   any      `json:"oldValue,omitempty"`
	NewValue   any      `json:"newValue,omitempty"`
	NewPath    string   `json:"newPath,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
}

// Changeset is an atomic, reversible group of field changes. Owned
// exclusively by the history; append-only except for capacity truncation.
type Changeset struct {
	ID          string        `json:"id"`
	Kind        entity.Kind   `json:"kind"`
	Timestamp   time.Time     `json:"timestamp"`
	Changes     []FieldChange `json:"changes"`
	Source      ChangeSource  `json:"source"`
	Description string        `json:"description"`
	Applied     bool          `json:"applied"`
}

// DefaultMaxHistory is the default changeset capacity.
const DefaultMaxHistory = 50

// History is a bounded linear undo/redo changeset list.
//
// Invariant: -1 <= currentIndex < len(changesets). Redo is possible only
// while currentIndex < len-1; recording a new change discards everything
// after currentIndex first.
type History struct {
	changesets   []Changeset
	currentIndex int
	maxSize      int
}

// NewHistory builds an empty history with the given capacity; a
// non-positive capacity falls back to DefaultMaxHistory.
func NewHistory(maxSize int) *History {
	if maxSize <= 0 {
		maxSize = DefaultMaxHistory
	}
	return &History{currentIndex: -1, maxSize: maxSize}
}

// Record truncates the redo branch, appends the changeset, and enforces
// capacity by dropping the oldest entries.
func (h *History) Record(cs Changeset) {
	h.changesets = append(h.changesets[:h.currentIndex+1], cs)
	h.currentIndex = len(h.changesets) - 1

	if over := len(h.changesets) - h.maxSize; over > 0 {
		h.changesets = h.changesets[over:]
		h.currentIndex -= over
	}
}

// Len returns the number of recorded changesets.
func (h *History) Len() int { return len(h.changesets) }

// CurrentIndex returns the linear undo/redo pointer.
func (h *History) CurrentIndex() int { return h.currentIndex }

// CanUndo reports whether an undo target exists.
func (h *History) CanUndo() bool { return h.currentIndex >= 0 }

// CanRedo reports whether a redo target exists.
func (h *History) CanRedo() bool { return h.currentIndex < len(h.changesets)-1 }

// Current returns the changeset at the pointer, or nil.
func (h *History) Current() *Changeset {
	if h.currentIndex < 0 || h.currentIndex >= len(h.changesets) {
		return nil
	}
	return &h.changesets[h.currentIndex]
}

// Changesets returns a copy of the recorded changesets.
func (h *History) Changesets() []Changeset {
	out := make([]Changeset, len(h.changesets))
	copy(out, h.changesets)
	return out
}

func newChangesetID() string {
	return uuid.NewString()
}
