// Package history keeps the per-view record of applied edits.
//
// A History never mutates a document on its own behalf except through Undo and Redo,
// which the view initiating the action calls. Sibling views showing the same document
// mirror the change with the Foreign* methods, which move the cursor only.
package history

import (
	"errors"
	"fmt"

	"gridform/internal/mutate"
)

// DefaultLimit is the number of entries kept when no limit is configured.
const DefaultLimit = 100

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// History is an ordered list of edits with a cursor. Entries before the cursor are
// done; the entry at the cursor is the next to redo.
type History struct {
	edits  []mutate.Edit
	cursor int
	limit  int
}

// New returns an empty history keeping at most limit entries. A limit of zero or
// less keeps everything.
func New(limit int) *History {
	return &History{limit: limit}
}

func (h *History) Len() int    { return len(h.edits) }
func (h *History) Cursor() int { return h.cursor }
func (h *History) Limit() int  { return h.limit }

// Edits returns the recorded edits, oldest first.
func (h *History) Edits() []mutate.Edit {
	return append([]mutate.Edit(nil), h.edits...)
}

// NextUndo is the edit Undo would invert, or nil.
func (h *History) NextUndo() mutate.Edit {
	if h.cursor == 0 {
		return nil
	}
	return h.edits[h.cursor-1]
}

// NextRedo is the edit Redo would re-apply, or nil.
func (h *History) NextRedo() mutate.Edit {
	if h.cursor >= len(h.edits) {
		return nil
	}
	return h.edits[h.cursor]
}

func (h *History) CanUndo() bool {
	e := h.NextUndo()
	return e != nil && e.CanUndo()
}

func (h *History) CanRedo() bool {
	e := h.NextRedo()
	return e != nil && e.CanRedo()
}

func (h *History) Clear() {
	h.edits = nil
	h.cursor = 0
}

// Push records an edit the caller has already applied.
func (h *History) Push(e mutate.Edit) {
	h.record(e)
}

// ForeignPush records an edit applied through another view.
func (h *History) ForeignPush(e mutate.Edit) {
	h.record(e)
}

func (h *History) record(e mutate.Edit) {
	if e == nil {
		return
	}
	if !e.CanUndo() {
		// Nothing before an irreversible edit can be reached by undo any more.
		h.Clear()
	}
	h.edits = append(h.edits[:h.cursor:h.cursor], e)
	h.cursor++
	h.trim()
}

// trim drops the oldest entries beyond the limit.
func (h *History) trim() {
	if h.limit <= 0 || len(h.edits) <= h.limit {
		return
	}
	drop := len(h.edits) - h.limit
	h.edits = append([]mutate.Edit(nil), h.edits[drop:]...)
	h.cursor = max(h.cursor-drop, 0)
}

// Undo inverts the next-to-undo edit and moves the cursor back. The edit is returned
// even on failure; the cursor only moves if the edit no longer counts as applied.
func (h *History) Undo() (mutate.Edit, error) {
	e := h.NextUndo()
	if e == nil {
		return nil, ErrNothingToUndo
	}
	if !e.CanUndo() {
		return e, fmt.Errorf("%s: %w", e.Describe(), mutate.ErrCannotUndo)
	}
	err := e.Undo()
	if e.CanRedo() {
		h.cursor--
	}
	return e, err
}

// Redo re-applies the next-to-redo edit and moves the cursor forward.
func (h *History) Redo() (mutate.Edit, error) {
	e := h.NextRedo()
	if e == nil {
		return nil, ErrNothingToRedo
	}
	if !e.CanRedo() {
		return e, fmt.Errorf("%s: %w", e.Describe(), mutate.ErrCannotRedo)
	}
	err := e.Redo()
	if !e.CanRedo() {
		h.cursor++
	}
	return e, err
}

// ForeignUndo mirrors an undo performed through another view. If e is not the
// next-to-undo edit but is among the done entries it is taken out of the list, since
// its effect is gone and the done section must not claim otherwise. It reports
// whether the history tracked e at all.
func (h *History) ForeignUndo(e mutate.Edit) bool {
	i := h.index(e)
	switch {
	case i < 0:
		return false
	case i == h.cursor-1:
		h.cursor--
	case i < h.cursor:
		h.edits = append(h.edits[:i:i], h.edits[i+1:]...)
		h.cursor--
	}
	return true
}

// ForeignRedo mirrors a redo performed through another view. An edit that is not the
// next-to-redo entry is moved (or inserted) at the cursor so it becomes the latest
// done entry. It reports whether e was tracked before the call.
func (h *History) ForeignRedo(e mutate.Edit) bool {
	if e == nil {
		return false
	}
	i := h.index(e)
	switch {
	case i == h.cursor:
		h.cursor++
		return true
	case i >= 0 && i < h.cursor:
		return true
	case i > h.cursor:
		h.edits = append(h.edits[:i:i], h.edits[i+1:]...)
	}
	rest := append([]mutate.Edit{e}, h.edits[h.cursor:]...)
	h.edits = append(h.edits[:h.cursor:h.cursor], rest...)
	h.cursor++
	h.trim()
	return i >= 0
}

func (h *History) index(e mutate.Edit) int {
	for i, x := range h.edits {
		if x == e {
			return i
		}
	}
	return -1
}
