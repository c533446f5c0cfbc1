// Package dispatch applies edits exactly once and keeps every view's undo history in
// step with the shared documents.
//
// The view that initiates an action runs the real Redo or Undo. Every other open view
// displaying an affected document only has its history cursor moved, through the
// history's Foreign* methods.
package dispatch

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"gridform/internal/grid"
	"gridform/internal/history"
	"gridform/internal/mutate"
)

// View is one open editor surface with its own undo history.
type View interface {
	ID() string
	History() *history.History
}

// ViewRegistry enumerates the open views and answers whether a view's displayed
// tree contains a given document.
type ViewRegistry interface {
	OpenViews() []View
	Displays(v View, docID string) bool
}

type ChangeKind string

const (
	ChangeInvoke ChangeKind = "edit.invoke"
	ChangeUndo   ChangeKind = "edit.undo"
	ChangeRedo   ChangeKind = "edit.redo"
)

// Change describes one dispatched action after it took effect.
type Change struct {
	Kind ChangeKind
	View string
	Edit mutate.Edit
	// Targets are the documents the edit touched.
	Targets []string
	// Siblings are the other views whose histories were updated.
	Siblings []string
	// Partial is set when the edit failed part way and was recorded anyway.
	Partial bool
}

// Observer is told about every change that reached the histories.
type Observer interface {
	Changed(c Change) error
}

type ObserverFunc func(c Change) error

func (f ObserverFunc) Changed(c Change) error { return f(c) }

// ApplyError is returned when an edit's Redo or Undo failed.
type ApplyError struct {
	Op   ChangeKind
	View string
	Edit string
	// Recorded reports whether the edit still counts as applied and was kept in
	// the histories.
	Recorded bool
	Err      error
}

func (e *ApplyError) Error() string {
	if e.Edit == "" {
		return fmt.Sprintf("%s on view %s: %v", e.Op, e.View, e.Err)
	}
	return fmt.Sprintf("%s on view %s: %s: %v", e.Op, e.View, e.Edit, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

type Option func(*Dispatcher)

func WithLogger(log *zap.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observers = append(d.observers, o)
		}
	}
}

type Dispatcher struct {
	views     ViewRegistry
	docs      grid.Resolver
	log       *zap.Logger
	observers []Observer
}

// New builds a dispatcher. docs is used to find read-only targets and may be nil.
func New(views ViewRegistry, docs grid.Resolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{views: views, docs: docs, log: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddObserver registers o for every later change.
func (d *Dispatcher) AddObserver(o Observer) {
	if o != nil {
		d.observers = append(d.observers, o)
	}
}

// Invoke applies a freshly built edit on behalf of origin. Edits on read-only documents
// and property edits repeating origin's latest entry are dropped without error.
func (d *Dispatcher) Invoke(e mutate.Edit, origin View) error {
	if e == nil {
		return errors.New("invoke: nil edit")
	}
	if origin == nil {
		return errors.New("invoke: nil view")
	}
	log := d.log.With(zap.String("view", origin.ID()), zap.String("edit", e.Describe()))
	if id, ok := d.readOnlyTarget(e); ok {
		log.Debug("edit ignored on read-only document", zap.String("doc", id))
		return nil
	}
	h := origin.History()
	if coalesces(e, h.NextUndo()) {
		log.Debug("edit coalesced with previous entry")
		return nil
	}

	err := e.Redo()
	if err != nil && e.CanRedo() {
		log.Warn("edit failed", zap.Error(err))
		return &ApplyError{Op: ChangeInvoke, View: origin.ID(), Edit: e.Describe(), Err: err}
	}
	if err != nil {
		log.Error("edit partially applied", zap.Error(err))
	}

	h.Push(e)
	siblings := d.fanOut(origin, e, func(h *history.History) bool {
		h.ForeignPush(e)
		return true
	})
	log.Debug("edit invoked", zap.Strings("siblings", siblings))
	obsErr := d.notify(Change{
		Kind:     ChangeInvoke,
		View:     origin.ID(),
		Edit:     e,
		Targets:  mutate.TargetsOf(e),
		Siblings: siblings,
		Partial:  err != nil,
	})
	if err != nil {
		err = &ApplyError{Op: ChangeInvoke, View: origin.ID(), Edit: e.Describe(), Recorded: true, Err: err}
	}
	return multierr.Append(err, obsErr)
}

// Undo inverts v's next-to-undo edit and retreats the cursor of every sibling view
// that tracks it.
func (d *Dispatcher) Undo(v View) error {
	return d.step(v, ChangeUndo)
}

// Redo re-applies v's next-to-redo edit and advances the siblings.
func (d *Dispatcher) Redo(v View) error {
	return d.step(v, ChangeRedo)
}

func (d *Dispatcher) step(v View, kind ChangeKind) error {
	if v == nil {
		return fmt.Errorf("%s: nil view", kind)
	}
	h := v.History()
	next := h.NextRedo
	if kind == ChangeUndo {
		next = h.NextUndo
	}
	if e := next(); e != nil {
		if id, ok := d.readOnlyTarget(e); ok {
			d.log.Debug("history step ignored on read-only document",
				zap.String("view", v.ID()), zap.String("doc", id), zap.String("op", string(kind)))
			return nil
		}
	}

	var (
		e   mutate.Edit
		err error
	)
	if kind == ChangeUndo {
		e, err = h.Undo()
	} else {
		e, err = h.Redo()
	}
	if e == nil {
		return &ApplyError{Op: kind, View: v.ID(), Err: err}
	}
	log := d.log.With(zap.String("view", v.ID()), zap.String("edit", e.Describe()))

	// The history moved its cursor only if the edit changed side.
	moved := e.CanRedo()
	if kind == ChangeRedo {
		moved = !e.CanRedo()
	}
	if !moved {
		log.Warn("history step failed", zap.String("op", string(kind)), zap.Error(err))
		return &ApplyError{Op: kind, View: v.ID(), Edit: e.Describe(), Err: err}
	}
	if err != nil {
		log.Error("history step partially applied", zap.String("op", string(kind)), zap.Error(err))
	}

	siblings := d.fanOut(v, e, func(h *history.History) bool {
		if kind == ChangeUndo {
			return h.ForeignUndo(e)
		}
		h.ForeignRedo(e)
		return true
	})
	log.Debug("history step", zap.String("op", string(kind)), zap.Strings("siblings", siblings))
	obsErr := d.notify(Change{
		Kind:     kind,
		View:     v.ID(),
		Edit:     e,
		Targets:  mutate.TargetsOf(e),
		Siblings: siblings,
		Partial:  err != nil,
	})
	if err != nil {
		err = &ApplyError{Op: kind, View: v.ID(), Edit: e.Describe(), Recorded: true, Err: err}
	}
	return multierr.Append(err, obsErr)
}

// fanOut calls fn on the history of every open view other than origin that displays
// one of e's targets, returning the ids of the views fn reported as updated.
func (d *Dispatcher) fanOut(origin View, e mutate.Edit, fn func(*history.History) bool) []string {
	if d.views == nil {
		return nil
	}
	targets := mutate.TargetsOf(e)
	var out []string
	for _, v := range d.views.OpenViews() {
		if v == nil || v.ID() == origin.ID() {
			continue
		}
		for _, t := range targets {
			if !d.views.Displays(v, t) {
				continue
			}
			if fn(v.History()) {
				out = append(out, v.ID())
			}
			break
		}
	}
	return out
}

func (d *Dispatcher) notify(c Change) error {
	var errs error
	for _, o := range d.observers {
		if err := o.Changed(c); err != nil {
			d.log.Warn("change observer failed", zap.String("edit", c.Edit.Describe()), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (d *Dispatcher) readOnlyTarget(e mutate.Edit) (string, bool) {
	if d.docs == nil {
		return "", false
	}
	for _, id := range mutate.TargetsOf(e) {
		if doc, ok := d.docs.Lookup(id); ok && doc.ReadOnly() {
			return id, true
		}
	}
	return "", false
}

type equaler interface {
	Equal(other mutate.Edit) bool
}

// coalesces reports whether e is a SetProperty equal to prev, the entry the origin's
// history would next undo, so that a continuous gesture leaves a single entry.
func coalesces(e, prev mutate.Edit) bool {
	if prev == nil {
		return false
	}
	if _, ok := e.(*mutate.SetProperty); !ok {
		return false
	}
	eq, ok := e.(equaler)
	return ok && eq.Equal(prev)
}
