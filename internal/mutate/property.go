package mutate

import (
	"fmt"
	"reflect"

	"gridform/internal/grid"
)

// SetProperty changes one named property of a component. Two SetProperty edits are
// equal when they set the same property of the same component to the same value,
// which lets a dispatcher fold a continuous gesture into one history entry.
type SetProperty struct {
	state
	doc    *grid.Document
	holder grid.PropertyHolder
	name   string
	value  any

	old      any
	hadOld   bool
	captured bool
}

func NewSetProperty(doc *grid.Document, holder grid.PropertyHolder, name string, value any) *SetProperty {
	return &SetProperty{doc: doc, holder: holder, name: name, value: value}
}

func (e *SetProperty) Target() string { return e.doc.ID() }

func (e *SetProperty) Describe() string {
	return fmt.Sprintf("set %s.%s = %v in %s", e.holder.ID(), e.name, e.value, e.doc.ID())
}

func (e *SetProperty) Equal(other Edit) bool {
	o, ok := other.(*SetProperty)
	if !ok || o == nil {
		return false
	}
	return o.holder == e.holder && o.name == e.name && reflect.DeepEqual(o.value, e.value)
}

func (e *SetProperty) Redo() error {
	if err := e.beginRedo(e.Describe()); err != nil {
		return err
	}
	if !e.doc.Contains(e.holder) {
		return fmt.Errorf("%s: %w", e.Describe(), grid.ErrNotResident)
	}
	if !e.captured {
		e.old, e.hadOld = e.holder.Property(e.name)
		e.captured = true
	}
	e.holder.SetProperty(e.name, e.value)
	e.doc.Touch()
	e.applied = true
	return nil
}

func (e *SetProperty) Undo() error {
	if err := e.beginUndo(e.Describe()); err != nil {
		return err
	}
	if e.hadOld {
		e.holder.SetProperty(e.name, e.old)
	} else {
		e.holder.SetProperty(e.name, nil)
	}
	e.doc.Touch()
	e.applied = false
	return nil
}
