package mutate

import (
	"fmt"

	"gridform/internal/grid"
	"gridform/internal/model"
)

// ChangeGroup moves one row or column into another resize group. Id 0 ungroups it.
type ChangeGroup struct {
	state
	doc   *grid.Document
	axis  model.Axis
	index int
	oldID int
	newID int
}

// NewChangeGroup records the track's current group as the id to restore on Undo.
func NewChangeGroup(doc *grid.Document, axis model.Axis, index, newID int) *ChangeGroup {
	return &ChangeGroup{
		doc:   doc,
		axis:  axis,
		index: index,
		oldID: doc.GroupOf(axis, index),
		newID: newID,
	}
}

func (e *ChangeGroup) Target() string { return e.doc.ID() }

func (e *ChangeGroup) Describe() string {
	return fmt.Sprintf("group %s %d: %d -> %d in %s", e.axis, e.index, e.oldID, e.newID, e.doc.ID())
}

// IDs returns the group ids before and after the edit.
func (e *ChangeGroup) IDs() (oldID, newID int) { return e.oldID, e.newID }

func (e *ChangeGroup) assign(id int) error {
	if n := e.doc.Count(e.axis); e.index < 1 || e.index > n {
		return fmt.Errorf("%s: %s %d of %d: %w", e.Describe(), e.axis, e.index, n, grid.ErrOutOfRange)
	}
	if id < 0 {
		return fmt.Errorf("%s: negative group id", e.Describe())
	}
	g := e.doc.Groups(e.axis).With(e.index, 0).With(e.index, id)
	return e.doc.SetGroups(e.axis, g)
}

func (e *ChangeGroup) Redo() error {
	if err := e.beginRedo(e.Describe()); err != nil {
		return err
	}
	if err := e.assign(e.newID); err != nil {
		return err
	}
	e.applied = true
	return nil
}

func (e *ChangeGroup) Undo() error {
	if err := e.beginUndo(e.Describe()); err != nil {
		return err
	}
	if err := e.assign(e.oldID); err != nil {
		return err
	}
	e.applied = false
	return nil
}

// ChangeSpec replaces a row or column spec. The previous spec is copied by value on
// the first Redo.
type ChangeSpec struct {
	state
	doc   *grid.Document
	axis  model.Axis
	index int
	spec  model.Spec

	old      model.Spec
	captured bool
}

func NewChangeRowSpec(doc *grid.Document, index int, spec model.Spec) *ChangeSpec {
	return &ChangeSpec{doc: doc, axis: model.AxisRow, index: index, spec: spec}
}

func NewChangeColumnSpec(doc *grid.Document, index int, spec model.Spec) *ChangeSpec {
	return &ChangeSpec{doc: doc, axis: model.AxisColumn, index: index, spec: spec}
}

func (e *ChangeSpec) Target() string { return e.doc.ID() }

func (e *ChangeSpec) Describe() string {
	return fmt.Sprintf("%s %d spec -> %s in %s", e.axis, e.index, e.spec, e.doc.ID())
}

func (e *ChangeSpec) Redo() error {
	if err := e.beginRedo(e.Describe()); err != nil {
		return err
	}
	if !e.captured {
		old, err := e.doc.Spec(e.axis, e.index)
		if err != nil {
			return err
		}
		e.old, e.captured = old, true
	}
	if err := e.doc.SetSpec(e.axis, e.index, e.spec); err != nil {
		return err
	}
	e.applied = true
	return nil
}

func (e *ChangeSpec) Undo() error {
	if err := e.beginUndo(e.Describe()); err != nil {
		return err
	}
	if err := e.doc.SetSpec(e.axis, e.index, e.old); err != nil {
		return err
	}
	e.applied = false
	return nil
}
