package history

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"gridform/internal/mutate"
)

type fakeEdit struct {
	name       string
	applied    bool
	reversible bool
	failUndo   error
	redos      int
	undos      int
}

func applied(name string) *fakeEdit {
	return &fakeEdit{name: name, applied: true, reversible: true}
}

func (e *fakeEdit) Target() string   { return "doc" }
func (e *fakeEdit) Describe() string { return e.name }
func (e *fakeEdit) CanRedo() bool    { return !e.applied }
func (e *fakeEdit) CanUndo() bool    { return e.applied && e.reversible }

func (e *fakeEdit) Redo() error {
	e.redos++
	e.applied = true
	return nil
}

func (e *fakeEdit) Undo() error {
	e.undos++
	if e.failUndo != nil {
		return e.failUndo
	}
	e.applied = false
	return nil
}

func names(h *History) []string {
	var out []string
	for _, e := range h.Edits() {
		out = append(out, e.Describe())
	}
	return out
}

func TestHistory_UndoRedoMovesCursorAndInvokes(t *testing.T) {
	h := New(0)
	a, b := applied("a"), applied("b")
	h.Push(a)
	h.Push(b)
	require.Equal(t, 2, h.Cursor())
	require.Same(t, b, h.NextUndo())

	got, err := h.Undo()
	require.NoError(t, err)
	require.Same(t, b, got)
	require.Equal(t, 1, b.undos)
	require.Same(t, b, h.NextRedo())

	got, err = h.Redo()
	require.NoError(t, err)
	require.Same(t, b, got)
	require.Equal(t, 1, b.redos)
	require.Nil(t, h.NextRedo())
}

func TestHistory_EmptyEnds(t *testing.T) {
	h := New(0)
	_, err := h.Undo()
	require.ErrorIs(t, err, ErrNothingToUndo)
	_, err = h.Redo()
	require.ErrorIs(t, err, ErrNothingToRedo)
	require.False(t, h.CanUndo())
	require.False(t, h.CanRedo())
}

func TestHistory_PushTruncatesRedoTail(t *testing.T) {
	h := New(0)
	h.Push(applied("a"))
	h.Push(applied("b"))
	_, err := h.Undo()
	require.NoError(t, err)

	h.Push(applied("c"))
	require.Equal(t, []string{"a", "c"}, names(h))
	require.Equal(t, 2, h.Cursor())
}

func TestHistory_IrreversibleEditClears(t *testing.T) {
	h := New(0)
	h.Push(applied("a"))
	trim := &fakeEdit{name: "trim", applied: true}
	h.Push(trim)

	require.Equal(t, []string{"trim"}, names(h))
	require.False(t, h.CanUndo())
	_, err := h.Undo()
	require.ErrorIs(t, err, mutate.ErrCannotUndo)
	require.Equal(t, 0, trim.undos)
	require.Equal(t, 1, h.Cursor())
}

func TestHistory_LimitDropsOldest(t *testing.T) {
	h := New(2)
	for _, n := range []string{"a", "b", "c"} {
		h.Push(applied(n))
	}
	require.Equal(t, []string{"b", "c"}, names(h))
	require.Equal(t, 2, h.Cursor())
}

func TestHistory_FailedUndoKeepsCursor(t *testing.T) {
	h := New(0)
	boom := errors.New("boom")
	e := applied("a")
	e.failUndo = boom
	h.Push(e)

	_, err := h.Undo()
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, h.Cursor())
}

func TestHistory_ForeignOpsDoNotInvoke(t *testing.T) {
	h := New(0)
	a, b := applied("a"), applied("b")
	h.ForeignPush(a)
	h.ForeignPush(b)

	require.True(t, h.ForeignUndo(b))
	require.Equal(t, 1, h.Cursor())
	require.True(t, h.ForeignRedo(b))
	require.Equal(t, 2, h.Cursor())
	require.Zero(t, b.undos+b.redos+a.undos+a.redos)
}

func TestHistory_ForeignUndoOutOfOrderRemoves(t *testing.T) {
	h := New(0)
	a, b, c := applied("a"), applied("b"), applied("c")
	for _, e := range []*fakeEdit{a, b, c} {
		h.Push(e)
	}
	require.True(t, h.ForeignUndo(a))
	require.Equal(t, []string{"b", "c"}, names(h))
	require.Equal(t, 2, h.Cursor())
	require.Same(t, c, h.NextUndo())

	require.False(t, h.ForeignUndo(applied("unknown")))
	require.Equal(t, 2, h.Cursor())
}

func TestHistory_ForeignRedoOutOfOrderMovesToCursor(t *testing.T) {
	tests := []struct {
		name        string
		redo        func(h *History, a, b, c *fakeEdit) mutate.Edit
		want        []string
		wantCursor  int
		wantTracked bool
	}{
		{
			name:        "later redo entry",
			redo:        func(h *History, a, b, c *fakeEdit) mutate.Edit { return c },
			want:        []string{"a", "c", "b"},
			wantCursor:  2,
			wantTracked: true,
		},
		{
			name:        "unknown edit",
			redo:        func(h *History, a, b, c *fakeEdit) mutate.Edit { return applied("x") },
			want:        []string{"a", "x", "b", "c"},
			wantCursor:  2,
			wantTracked: false,
		},
		{
			name:        "already done",
			redo:        func(h *History, a, b, c *fakeEdit) mutate.Edit { return a },
			want:        []string{"a", "b", "c"},
			wantCursor:  1,
			wantTracked: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(0)
			a, b, c := applied("a"), applied("b"), applied("c")
			for _, e := range []*fakeEdit{a, b, c} {
				h.Push(e)
			}
			require.True(t, h.ForeignUndo(c))
			require.True(t, h.ForeignUndo(b))

			got := h.ForeignRedo(tt.redo(h, a, b, c))
			require.Equal(t, tt.wantTracked, got)
			require.Equal(t, tt.want, names(h))
			require.Equal(t, tt.wantCursor, h.Cursor())
		})
	}
}
