package dispatch_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"gridform/internal/dispatch"
	"gridform/internal/grid"
	"gridform/internal/history"
	"gridform/internal/model"
	"gridform/internal/mutate"
	"gridform/internal/registry"
	"gridform/internal/workspace"
)

type fixture struct {
	reg  *registry.Registry
	ws   *workspace.Workspace
	disp *dispatch.Dispatcher
	doc  *grid.Document
	seen []dispatch.Change
}

func newFixture(t *testing.T, opts ...dispatch.Option) *fixture {
	t.Helper()
	f := &fixture{reg: registry.New(nil)}
	f.ws = workspace.New(f.reg)
	doc, err := grid.NewUniform("form", 2, 2, model.DefaultSpec(), grid.NewSequenceSource("form"))
	require.NoError(t, err)
	require.NoError(t, f.reg.Register(doc))
	f.doc = doc
	opts = append(opts, dispatch.WithObserver(dispatch.ObserverFunc(func(c dispatch.Change) error {
		f.seen = append(f.seen, c)
		return nil
	})))
	f.disp = dispatch.New(f.ws, f.reg, opts...)
	return f
}

func (f *fixture) open(t *testing.T, view, doc string) *workspace.View {
	t.Helper()
	v, err := f.ws.Open(view, doc)
	require.NoError(t, err)
	return v
}

func TestDispatcher_CrossViewEquality(t *testing.T) {
	f := newFixture(t)
	v1 := f.open(t, "v1", "form")
	v2 := f.open(t, "v2", "form")
	require.True(t, v1.IsHome())
	require.False(t, v2.IsHome())

	ins := mutate.NewInsertRow(f.doc, 2, model.Fixed(10, model.UnitPixel), nil)
	require.NoError(t, f.disp.Invoke(ins, v1))
	require.Equal(t, 3, f.doc.RowCount())
	require.Same(t, ins, v1.History().NextUndo())
	require.Same(t, ins, v2.History().NextUndo(), "sibling records the same instance")

	// The sibling undoes the very mutation the origin applied.
	require.NoError(t, f.disp.Undo(v2))
	require.Equal(t, 2, f.doc.RowCount())
	require.Equal(t, 0, v1.History().Cursor())
	require.Equal(t, 0, v2.History().Cursor())

	require.NoError(t, f.disp.Redo(v1))
	require.Equal(t, 3, f.doc.RowCount())
	require.Same(t, v1.History().NextUndo(), v2.History().NextUndo())

	kinds := []dispatch.ChangeKind{}
	for _, c := range f.seen {
		kinds = append(kinds, c.Kind)
		require.Equal(t, []string{"form"}, c.Targets)
	}
	require.Equal(t, []dispatch.ChangeKind{dispatch.ChangeInvoke, dispatch.ChangeUndo, dispatch.ChangeRedo}, kinds)
	require.Equal(t, []string{"v2"}, f.seen[0].Siblings)
}

func TestDispatcher_FanOutFollowsDisplayedTree(t *testing.T) {
	f := newFixture(t)
	outer, err := grid.NewUniform("outer", 2, 2, model.DefaultSpec(), grid.NewSequenceSource("outer"))
	require.NoError(t, err)
	other, err := grid.NewUniform("other", 1, 1, model.DefaultSpec(), grid.NewSequenceSource("other"))
	require.NoError(t, err)
	require.NoError(t, outer.ReplaceComponent(grid.Placeholder("form"), outer.GridComponent(2, 2)))
	require.NoError(t, f.reg.Register(outer))
	require.NoError(t, f.reg.Register(other))

	direct := f.open(t, "direct", "form")
	nested := f.open(t, "nested", "outer")
	unrelated := f.open(t, "unrelated", "other")

	require.NoError(t, f.disp.Invoke(mutate.NewChangeGroup(f.doc, model.AxisColumn, 1, 4), direct))
	require.Equal(t, 1, nested.History().Len())
	require.Equal(t, 0, unrelated.History().Len())
	require.Equal(t, 4, f.doc.GroupOf(model.AxisColumn, 1))
}

func TestDispatcher_ReadOnlyIgnored(t *testing.T) {
	f := newFixture(t)
	v := f.open(t, "v", "form")
	f.doc.SetReadOnly(true)
	before := f.doc.Snapshot()

	require.NoError(t, f.disp.Invoke(mutate.NewInsertColumn(f.doc, 1, model.DefaultSpec(), nil), v))
	require.Equal(t, before, f.doc.Snapshot())
	require.Equal(t, 0, v.History().Len())
	require.Empty(t, f.seen)
}

func TestDispatcher_CoalescesRepeatedPropertyEdits(t *testing.T) {
	f := newFixture(t)
	v := f.open(t, "v", "form")
	bean := grid.NewBean("name", "TextField")
	require.NoError(t, f.doc.ReplaceComponent(bean, f.doc.GridComponent(1, 1)))

	require.NoError(t, f.disp.Invoke(mutate.NewSetProperty(f.doc, bean, "text", "a"), v))
	require.NoError(t, f.disp.Invoke(mutate.NewSetProperty(f.doc, bean, "text", "a"), v))
	require.Equal(t, 1, v.History().Len())

	require.NoError(t, f.disp.Invoke(mutate.NewSetProperty(f.doc, bean, "text", "ab"), v))
	require.NoError(t, f.disp.Invoke(mutate.NewSetProperty(f.doc, bean, "width", "ab"), v))
	require.Equal(t, 3, v.History().Len())

	require.NoError(t, f.disp.Undo(v))
	require.NoError(t, f.disp.Undo(v))
	got, _ := bean.Property("text")
	require.Equal(t, "a", got)
}

func TestDispatcher_FailedEditNotRecorded(t *testing.T) {
	f := newFixture(t)
	v := f.open(t, "v", "form")
	require.NoError(t, f.disp.Invoke(mutate.NewDeleteRow(f.doc, 1, nil), v))

	err := f.disp.Invoke(mutate.NewDeleteRow(f.doc, 1, nil), v)
	require.ErrorIs(t, err, grid.ErrLastRow)
	var ae *dispatch.ApplyError
	require.True(t, errors.As(err, &ae))
	require.False(t, ae.Recorded)
	require.Equal(t, dispatch.ChangeInvoke, ae.Op)
	require.Equal(t, 1, v.History().Len())
}

func TestDispatcher_GroupedLastRowDeleteLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	v1 := f.open(t, "v1", "form")
	v2 := f.open(t, "v2", "form")
	require.NoError(t, f.disp.Invoke(mutate.NewDeleteRow(f.doc, 2, nil), v1))
	require.NoError(t, f.disp.Invoke(mutate.NewChangeGroup(f.doc, model.AxisRow, 1, 7), v1))
	before := f.doc.Snapshot()
	seen := len(f.seen)

	err := f.disp.Invoke(mutate.NewDeleteRow(f.doc, 1, nil), v1)
	require.ErrorIs(t, err, grid.ErrLastRow)
	var ae *dispatch.ApplyError
	require.True(t, errors.As(err, &ae))
	require.False(t, ae.Recorded)

	require.Equal(t, model.GroupAssignment{1: 7}, f.doc.Groups(model.AxisRow))
	require.Equal(t, before, f.doc.Snapshot())
	require.Equal(t, 2, v1.History().Len())
	require.Equal(t, 2, v2.History().Len())
	require.Len(t, f.seen, seen)
}

func TestDispatcher_PartialCompositeRecordedEverywhere(t *testing.T) {
	f := newFixture(t)
	v1 := f.open(t, "v1", "form")
	v2 := f.open(t, "v2", "form")
	before := f.doc.Snapshot()

	comp := mutate.NewComposite("grow",
		mutate.NewInsertColumn(f.doc, 3, model.DefaultSpec(), nil),
		mutate.NewDeleteColumn(f.doc, 9, nil),
	)
	err := f.disp.Invoke(comp, v1)
	var ae *dispatch.ApplyError
	require.True(t, errors.As(err, &ae))
	require.True(t, ae.Recorded)
	require.ErrorIs(t, err, grid.ErrOutOfRange)
	require.Equal(t, 3, f.doc.ColumnCount())
	require.Same(t, comp, v2.History().NextUndo())

	require.NoError(t, f.disp.Undo(v2))
	require.Equal(t, before, f.doc.Snapshot())
	require.Equal(t, 0, v1.History().Cursor())
}

func TestDispatcher_StepErrors(t *testing.T) {
	f := newFixture(t)
	v := f.open(t, "v", "form")

	require.ErrorIs(t, f.disp.Undo(v), history.ErrNothingToUndo)
	require.ErrorIs(t, f.disp.Redo(v), history.ErrNothingToRedo)

	require.NoError(t, f.disp.Invoke(mutate.NewTrimRows(f.doc, nil), v))
	err := f.disp.Undo(v)
	require.ErrorIs(t, err, mutate.ErrCannotUndo)
	require.Equal(t, 1, v.History().Cursor())
}

func TestDispatcher_ObserverErrorsCombined(t *testing.T) {
	first, second := errors.New("journal down"), errors.New("cache full")
	f := newFixture(t,
		dispatch.WithObserver(dispatch.ObserverFunc(func(dispatch.Change) error { return first })),
		dispatch.WithObserver(dispatch.ObserverFunc(func(dispatch.Change) error { return second })),
	)
	v := f.open(t, "v", "form")

	err := f.disp.Invoke(mutate.NewInsertRow(f.doc, 1, model.DefaultSpec(), nil), v)
	require.ErrorIs(t, err, first)
	require.ErrorIs(t, err, second)
	require.Len(t, multierr.Errors(err), 2)
	require.Equal(t, 1, v.History().Len(), "observer failures do not undo the record")
}
