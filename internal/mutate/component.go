package mutate

import (
	"fmt"

	"gridform/internal/grid"
)

// AddComponent puts comp into a cell, displacing whatever occupies it. The displaced
// component is captured on the first Redo, so the edit can be built before the
// document reaches the state it will apply to.
type AddComponent struct {
	state
	doc  *grid.Document
	comp grid.Component
	cell grid.Cell

	displaced   grid.Component
	displacedAt grid.Constraints
}

func NewAddComponent(doc *grid.Document, comp grid.Component, cell grid.Cell) *AddComponent {
	return &AddComponent{doc: doc, comp: comp, cell: cell}
}

func (e *AddComponent) Target() string { return e.doc.ID() }

func (e *AddComponent) Describe() string {
	return fmt.Sprintf("add %s %s at %s in %s", e.comp.Kind(), e.comp.ID(), e.cell, e.doc.ID())
}

// Displaced returns the component the edit replaced, once it has run.
func (e *AddComponent) Displaced() (grid.Component, grid.Constraints) {
	return e.displaced, e.displacedAt
}

func (e *AddComponent) Redo() error {
	if err := e.beginRedo(e.Describe()); err != nil {
		return err
	}
	if e.displaced == nil {
		occ := e.doc.GridComponent(e.cell.Col, e.cell.Row)
		if occ == nil {
			if e.doc.OverlappingComponent(e.cell.Col, e.cell.Row) != nil {
				return fmt.Errorf("%s: cell is covered by a span: %w", e.Describe(), grid.ErrOverlap)
			}
			return fmt.Errorf("%s: %w", e.Describe(), grid.ErrOutOfRange)
		}
		at, _ := e.doc.ConstraintsOf(occ)
		e.displaced, e.displacedAt = occ, at
	}
	if err := e.doc.ReplaceComponent(e.comp, e.displaced); err != nil {
		return err
	}
	e.applied = true
	return nil
}

func (e *AddComponent) Undo() error {
	if err := e.beginUndo(e.Describe()); err != nil {
		return err
	}
	if err := e.doc.ReplaceComponent(e.displaced, e.comp); err != nil {
		return err
	}
	e.applied = false
	return nil
}

// ReplaceComponent swaps a known resident component for another.
type ReplaceComponent struct {
	state
	doc      *grid.Document
	newComp  grid.Component
	oldComp  grid.Component
	previous grid.Constraints
}

func NewReplaceComponent(doc *grid.Document, newComp, oldComp grid.Component) *ReplaceComponent {
	return &ReplaceComponent{doc: doc, newComp: newComp, oldComp: oldComp}
}

func (e *ReplaceComponent) Target() string { return e.doc.ID() }

func (e *ReplaceComponent) Describe() string {
	return fmt.Sprintf("replace %s with %s in %s", e.oldComp.ID(), e.newComp.ID(), e.doc.ID())
}

func (e *ReplaceComponent) Redo() error {
	if err := e.beginRedo(e.Describe()); err != nil {
		return err
	}
	e.previous, _ = e.doc.ConstraintsOf(e.oldComp)
	if err := e.doc.ReplaceComponent(e.newComp, e.oldComp); err != nil {
		return err
	}
	e.applied = true
	return nil
}

func (e *ReplaceComponent) Undo() error {
	if err := e.beginUndo(e.Describe()); err != nil {
		return err
	}
	if err := e.doc.ReplaceComponent(e.oldComp, e.newComp); err != nil {
		return err
	}
	e.applied = false
	return nil
}

// DeleteComponent replaces a component with a fresh empty at the same constraints.
// When the component is a nested document, Undo registers it again since the delete
// may have dropped its only live reference.
type DeleteComponent struct {
	state
	doc  *grid.Document
	comp grid.Component
	src  grid.ComponentSource
	reg  Registrar

	empty  grid.Component
	nested *grid.Document
}

// NewDeleteComponent builds the edit. src may be nil (the document's source is used)
// and reg may be nil when no registry needs to know about nested documents.
func NewDeleteComponent(doc *grid.Document, comp grid.Component, src grid.ComponentSource, reg Registrar) *DeleteComponent {
	return &DeleteComponent{doc: doc, comp: comp, src: src, reg: reg}
}

func (e *DeleteComponent) Target() string { return e.doc.ID() }

func (e *DeleteComponent) Describe() string {
	return fmt.Sprintf("delete %s %s from %s", e.comp.Kind(), e.comp.ID(), e.doc.ID())
}

func (e *DeleteComponent) Redo() error {
	if err := e.beginRedo(e.Describe()); err != nil {
		return err
	}
	if e.empty == nil {
		empty, err := grid.NewEmptyFrom(sourceFor(e.doc, e.src))
		if err != nil {
			return fmt.Errorf("%s: %w", e.Describe(), err)
		}
		e.empty = empty
		if ref, ok := e.comp.(*grid.Ref); ok {
			// Keep a borrowed handle so Undo can bring the document back.
			if nd, err := ref.Resolve(e.reg); err == nil {
				e.nested = nd
			}
		}
	}
	if err := e.doc.ReplaceComponent(e.empty, e.comp); err != nil {
		return err
	}
	e.applied = true
	return nil
}

func (e *DeleteComponent) Undo() error {
	if err := e.beginUndo(e.Describe()); err != nil {
		return err
	}
	if err := e.doc.ReplaceComponent(e.comp, e.empty); err != nil {
		return err
	}
	e.applied = false
	if e.nested != nil && e.reg != nil {
		if err := e.reg.Register(e.nested); err != nil {
			return fmt.Errorf("%s: re-register %s: %w", e.Describe(), e.nested.ID(), err)
		}
	}
	return nil
}

// SetConstraints re-binds a resident component to a new cell area. The empties the
// new area swallows are kept and put back by Undo.
type SetConstraints struct {
	state
	doc  *grid.Document
	comp grid.Component
	to   grid.Constraints

	from     grid.Constraints
	captured bool
	claimed  []grid.Placement
	vacated  *replay
	refill   *replay
}

func NewSetConstraints(doc *grid.Document, comp grid.Component, to grid.Constraints) *SetConstraints {
	return &SetConstraints{doc: doc, comp: comp, to: to}
}

func (e *SetConstraints) Target() string { return e.doc.ID() }

func (e *SetConstraints) Describe() string {
	return fmt.Sprintf("constrain %s to %s in %s", e.comp.ID(), e.to, e.doc.ID())
}

func (e *SetConstraints) Redo() error {
	if err := e.beginRedo(e.Describe()); err != nil {
		return err
	}
	if !e.captured {
		from, ok := e.doc.ConstraintsOf(e.comp)
		if !ok {
			return fmt.Errorf("%s: %w", e.Describe(), grid.ErrNotResident)
		}
		e.from, e.captured = from, true
		for _, p := range e.doc.Components() {
			if p.Component != e.comp && grid.IsEmpty(p.Component) && p.Constraints.Intersects(e.to) {
				e.claimed = append(e.claimed, p)
			}
		}
		e.vacated = newReplay(e.doc, nil)
		e.refill = newReplay(e.doc, nil)
	}
	if err := e.doc.SetConstraintsWith(e.comp, e.to, e.vacated.rewind()); err != nil {
		return err
	}
	e.applied = true
	return nil
}

func (e *SetConstraints) Undo() error {
	if err := e.beginUndo(e.Describe()); err != nil {
		return err
	}
	src := e.refill.rewind()
	if err := e.doc.SetConstraintsWith(e.comp, e.from, src); err != nil {
		return err
	}
	for _, p := range e.claimed {
		if err := e.doc.PlaceWith(p.Component, p.Constraints, src); err != nil {
			return fmt.Errorf("%s: restore %s: %w", e.Describe(), p.Component.ID(), err)
		}
	}
	e.applied = false
	return nil
}

// MoveComponent is a delete at the source followed by an add at the destination,
// undone in reverse order. Because the two halves touch the documents separately,
// layout is revalidated up both ownership chains afterwards.
type MoveComponent struct {
	*Composite
	from *grid.Document
	to   *grid.Document
	comp grid.Component
	cell grid.Cell
}

func NewMoveComponent(from *grid.Document, comp grid.Component, to *grid.Document, cell grid.Cell, src grid.ComponentSource, reg Registrar) *MoveComponent {
	return &MoveComponent{
		Composite: NewComposite("move "+comp.ID(),
			NewDeleteComponent(from, comp, src, reg),
			NewAddComponent(to, comp, cell),
		),
		from: from,
		to:   to,
		comp: comp,
		cell: cell,
	}
}

func (e *MoveComponent) Describe() string {
	return fmt.Sprintf("move %s from %s to %s %s", e.comp.ID(), e.from.ID(), e.to.ID(), e.cell)
}

func (e *MoveComponent) Redo() error {
	err := e.Composite.Redo()
	e.revalidate()
	return err
}

func (e *MoveComponent) Undo() error {
	err := e.Composite.Undo()
	e.revalidate()
	return err
}

func (e *MoveComponent) revalidate() {
	e.from.Revalidate()
	if e.to != e.from {
		e.to.Revalidate()
	}
}
