package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"gridform/internal/grid"
	"gridform/internal/model"
)

func newDoc(t *testing.T, id string) *grid.Document {
	t.Helper()
	d, err := grid.NewUniform(id, 2, 2, model.DefaultSpec(), grid.NewSequenceSource(id))
	require.NoError(t, err)
	return d
}

func nest(t *testing.T, parent, child *grid.Document) *grid.Ref {
	t.Helper()
	ref := grid.Canonical(child)
	require.NoError(t, parent.ReplaceComponent(ref, parent.GridComponent(1, 1)))
	return ref
}

func TestRegister_WalksCanonicalChildren(t *testing.T) {
	outer, inner, deepest := newDoc(t, "outer"), newDoc(t, "inner"), newDoc(t, "deepest")
	nest(t, inner, deepest)
	nest(t, outer, inner)

	r := New(nil)
	require.NoError(t, r.Register(outer))
	require.Equal(t, []string{"deepest", "inner", "outer"}, r.IDs())

	got, ok := r.Lookup("deepest")
	require.True(t, ok)
	require.Same(t, deepest, got)

	require.NoError(t, r.Register(outer), "same instance twice")
	require.Equal(t, 3, r.Len())
}

func TestRegister_ConflictingInstance(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Register(newDoc(t, "a")))
	err := r.Register(newDoc(t, "a"))
	require.ErrorIs(t, err, ErrConflict)
}

func TestGetAndRemove(t *testing.T) {
	r := New(nil)
	d := newDoc(t, "a")
	require.NoError(t, r.Register(d))

	require.True(t, r.Remove("a"))
	require.False(t, r.Remove("a"))

	_, err := r.Get("a")
	var nf NotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, "a", nf.ID)
	require.ErrorIs(t, err, grid.ErrUnknownDocument)
}

func TestPlaceholderRoundTrip(t *testing.T) {
	outer, inner := newDoc(t, "outer"), newDoc(t, "inner")
	nest(t, outer, inner)
	r := New(nil)

	ph, err := r.ToPlaceholder(grid.Canonical(outer))
	require.NoError(t, err)
	require.True(t, ph.IsPlaceholder())
	require.Equal(t, "outer", ph.DocumentID())
	require.ElementsMatch(t, []string{"inner", "outer"}, r.IDs())

	// Dropping the child entry and converting back registers it again.
	require.True(t, r.Remove("inner"))
	can, err := r.ToCanonical(ph)
	require.NoError(t, err)
	require.Same(t, outer, can.Document())
	require.ElementsMatch(t, []string{"inner", "outer"}, r.IDs())

	resolved, err := r.Resolve(ph)
	require.NoError(t, err)
	require.Same(t, outer, resolved)
}

func TestResolve_UnknownPlaceholder(t *testing.T) {
	r := New(nil)
	_, err := r.Resolve(grid.Placeholder("ghost"))
	require.ErrorIs(t, err, grid.ErrUnknownDocument)
	_, err = r.ToCanonical(grid.Placeholder("ghost"))
	require.Error(t, err)
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Register(newDoc(t, "a")))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = r.Lookup("a")
				_ = r.IDs()
			}
		}()
	}
	wg.Wait()
}

func TestRegister_RejectsPlaceholderCycles(t *testing.T) {
	a, b := newDoc(t, "a"), newDoc(t, "b")
	r := New(nil)
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	require.NoError(t, a.ReplaceComponent(grid.Placeholder("b"), a.GridComponent(1, 1)))
	err := b.ReplaceComponent(grid.Placeholder("a"), b.GridComponent(1, 1))
	require.ErrorIs(t, err, grid.ErrCycle)
}
