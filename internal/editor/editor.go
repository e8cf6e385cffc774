package editor

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"mythforge/internal/entity"
)

// Editor is the only mutation entry point for entity snapshots. It owns
// one history and always works on clones; callers never edit entities
// directly.
type Editor struct {
	history *History
	log     *zap.Logger
}

// New builds an editor with its own bounded history.
func New(maxHistory int, log *zap.Logger) *Editor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Editor{
		history: NewHistory(maxHistory),
		log:     log.Named("editor"),
	}
}

// History exposes the editor's changeset history.
func (ed *Editor) History() *History { return ed.history }

// ApplyChanges returns a new, deep-cloned entity with every change applied
// in order and unconditionally records one changeset, even for an empty
// change list (a no-op changeset keeps the undo trail aligned with user
// actions).
func (ed *Editor) ApplyChanges(e entity.Entity, kind entity.Kind, changes []FieldChange, source ChangeSource, description string) entity.Entity {
	out := e.Clone()
	if out == nil {
		out = entity.New()
	}

	recorded := make([]FieldChange, 0, len(changes))
	for _, ch := range changes {
		applied := ch
		old, hadOld := out.Get(ch.Path)
		if hadOld {
			applied.OldValue = old
		}

		switch ch.Op {
		case OpAdd, OpUpdate:
			out.Set(ch.Path, ch.NewValue)
		case OpDelete:
			out.Delete(ch.Path)
		case OpMove:
			out.Delete(ch.Path)
			if applied.NewPath != "" {
				value := ch.NewValue
				if value == nil && hadOld {
					value = old
				}
				applied.NewValue = value
				out.Set(applied.NewPath, value)
			}
		}
		recorded = append(recorded, applied)
	}

	ed.history.Record(Changeset{
		ID:          newChangesetID(),
		Kind:        kind,
		Timestamp:   time.Now(),
		Changes:     recorded,
		Source:      source,
		Description: description,
		Applied:     true,
	})

	ed.log.Debug("applied changeset",
		zap.String("kind", string(kind)),
		zap.Int("changes", len(recorded)),
		zap.String("source", string(source)))

	return out
}

// Undo replays the changeset at the history pointer in reverse and
// decrements the pointer. Returns nil, false when nothing can be undone.
func (ed *Editor) Undo(e entity.Entity) (entity.Entity, bool) {
	cs := ed.history.Current()
	if cs == nil {
		return nil, false
	}

	out := e.Clone()
	if out == nil {
		out = entity.New()
	}
	for i := len(cs.Changes) - 1; i >= 0; i-- {
		ch := cs.Changes[i]
		switch ch.Op {
		case OpAdd:
			if ch.OldValue != nil {
				out.Set(ch.Path, ch.OldValue)
			} else {
				deleteAndPrune(out, ch.Path)
			}
		case OpUpdate:
			if ch.OldValue != nil {
				out.Set(ch.Path, ch.OldValue)
			} else {
				deleteAndPrune(out, ch.Path)
			}
		case OpDelete:
			if ch.OldValue != nil {
				out.Set(ch.Path, ch.OldValue)
			}
		case OpMove:
			deleteAndPrune(out, ch.NewPath)
			if ch.OldValue != nil {
				out.Set(ch.Path, ch.OldValue)
			}
		}
	}

	ed.history.currentIndex--
	return out, true
}

// Redo re-applies the changeset after the pointer and increments it.
// Returns nil, false at the history tip.
func (ed *Editor) Redo(e entity.Entity) (entity.Entity, bool) {
	if !ed.history.CanRedo() {
		return nil, false
	}
	cs := ed.history.changesets[ed.history.currentIndex+1]

	out := e.Clone()
	if out == nil {
		out = entity.New()
	}
	for _, ch := range cs.Changes {
		switch ch.Op {
		case OpAdd, OpUpdate:
			out.Set(ch.Path, ch.NewValue)
		case OpDelete:
			out.Delete(ch.Path)
		case OpMove:
			out.Delete(ch.Path)
			if ch.NewPath != "" {
				out.Set(ch.NewPath, ch.NewValue)
			}
		}
	}

	ed.history.currentIndex++
	return out, true
}

// deleteAndPrune removes the value at path, then walks back up the path
// removing any intermediate maps the removal left empty. Applying an add
// creates intermediate maps on demand; undoing it must remove them too or
// the round trip is not an identity.
func deleteAndPrune(e entity.Entity, path string) {
	e.Delete(path)
	segs := strings.Split(path, ".")
	for i := len(segs) - 1; i >= 1; i-- {
		parent := strings.Join(segs[:i], ".")
		v, ok := e.Get(parent)
		if !ok {
			return
		}
		m, isMap := v.(map[string]any)
		if !isMap || len(m) > 0 {
			return
		}
		e.Delete(parent)
	}
}
