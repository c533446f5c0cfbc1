package mutate

import (
	"fmt"

	"gridform/internal/grid"
)

// Edit is a reversible mutation of a grid document. Redo always precedes the first
// Undo. CanRedo is false once an edit has taken effect (fully or partially) and
// CanUndo reports whether an inverse is available right now.
//
// The same Edit value is shared by every undo history that tracks it.
type Edit interface {
	Target() string
	Redo() error
	Undo() error
	CanRedo() bool
	CanUndo() bool
	Describe() string
}

// MultiTarget is implemented by edits touching more than one document.
type MultiTarget interface {
	Targets() []string
}

// TargetsOf returns every document id an edit touches.
func TargetsOf(e Edit) []string {
	if mt, ok := e.(MultiTarget); ok {
		return mt.Targets()
	}
	return []string{e.Target()}
}

// Registrar re-registers nested documents whose last live reference an edit may
// have removed.
type Registrar interface {
	grid.Resolver
	Register(d *grid.Document) error
}

// state is the applied/not-applied half of the redo/undo cycle shared by the leaf edits.
type state struct {
	applied bool
}

func (s *state) CanRedo() bool { return !s.applied }
func (s *state) CanUndo() bool { return s.applied }

func (s *state) beginRedo(what string) error {
	if s.applied {
		return fmt.Errorf("%s: %w", what, ErrCannotRedo)
	}
	return nil
}

func (s *state) beginUndo(what string) error {
	if !s.applied {
		return fmt.Errorf("%s: %w", what, ErrCannotUndo)
	}
	return nil
}

func sourceFor(doc *grid.Document, src grid.ComponentSource) grid.ComponentSource {
	if src != nil {
		return src
	}
	return doc.Source()
}

// replay wraps a component source so that an edit re-running after an undo hands out
// the same empties it created the first time. Later edits in a history may hold those
// components (an add captures the empty it displaced), so they must come back.
type replay struct {
	doc  *grid.Document
	src  grid.ComponentSource
	made []grid.Component
	next int
}

func newReplay(doc *grid.Document, src grid.ComponentSource) *replay {
	return &replay{doc: doc, src: sourceFor(doc, src)}
}

// rewind starts a new pass over the recorded components.
func (r *replay) rewind() *replay {
	r.next = 0
	return r
}

func (r *replay) NewComponent(kind string) (grid.Component, error) {
	if r.next < len(r.made) {
		c := r.made[r.next]
		if c.Kind() == kind && !r.doc.Contains(c) {
			r.next++
			return c, nil
		}
		r.made = r.made[:r.next]
	}
	c, err := r.src.NewComponent(kind)
	if err != nil {
		return nil, err
	}
	r.made = append(r.made, c)
	r.next++
	return c, nil
}
