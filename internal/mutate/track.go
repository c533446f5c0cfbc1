package mutate

import (
	"fmt"

	"gridform/internal/grid"
	"gridform/internal/model"
)

// InsertTrack inserts a row or column. Its inverse is the plain structural removal.
type InsertTrack struct {
	state
	doc   *grid.Document
	axis  model.Axis
	index int
	spec  model.Spec
	src   grid.ComponentSource

	fresh *replay
}

func NewInsertRow(doc *grid.Document, index int, spec model.Spec, src grid.ComponentSource) *InsertTrack {
	return &InsertTrack{doc: doc, axis: model.AxisRow, index: index, spec: spec, src: src}
}

func NewInsertColumn(doc *grid.Document, index int, spec model.Spec, src grid.ComponentSource) *InsertTrack {
	return &InsertTrack{doc: doc, axis: model.AxisColumn, index: index, spec: spec, src: src}
}

func (e *InsertTrack) Target() string { return e.doc.ID() }

func (e *InsertTrack) Describe() string {
	return fmt.Sprintf("insert %s %d (%s) in %s", e.axis, e.index, e.spec, e.doc.ID())
}

func (e *InsertTrack) Redo() error {
	if err := e.beginRedo(e.Describe()); err != nil {
		return err
	}
	if e.fresh == nil {
		e.fresh = newReplay(e.doc, e.src)
	}
	if err := e.doc.InsertTrack(e.axis, e.index, e.spec, e.fresh.rewind()); err != nil {
		return err
	}
	e.applied = true
	return nil
}

func (e *InsertTrack) Undo() error {
	if err := e.beginUndo(e.Describe()); err != nil {
		return err
	}
	if err := e.doc.RemoveTrack(e.axis, e.index); err != nil {
		return err
	}
	e.applied = false
	return nil
}

// trackSnapshot is everything needed to rebuild a deleted row or column.
type trackSnapshot struct {
	spec  model.Spec
	group int
	items []grid.Placement
}

// DeleteTrack removes a row or column. The first Redo snapshots the track: its spec,
// its group id and every component touching it with full constraints. Later redos
// after an undo reuse that snapshot.
//
// A grouped track is ungrouped by an internal ChangeGroup that runs before the
// removal and is inverted after the track has been re-inserted.
type DeleteTrack struct {
	state
	doc   *grid.Document
	axis  model.Axis
	index int
	src   grid.ComponentSource

	snap    *trackSnapshot
	ungroup *ChangeGroup
	removed bool
	fresh   *replay
}

func NewDeleteRow(doc *grid.Document, index int, src grid.ComponentSource) *DeleteTrack {
	return &DeleteTrack{doc: doc, axis: model.AxisRow, index: index, src: src}
}

func NewDeleteColumn(doc *grid.Document, index int, src grid.ComponentSource) *DeleteTrack {
	return &DeleteTrack{doc: doc, axis: model.AxisColumn, index: index, src: src}
}

func (e *DeleteTrack) Target() string { return e.doc.ID() }

func (e *DeleteTrack) Describe() string {
	return fmt.Sprintf("delete %s %d in %s", e.axis, e.index, e.doc.ID())
}

func (e *DeleteTrack) capture() error {
	if e.snap != nil {
		return fmt.Errorf("%s: %w", e.Describe(), ErrAlreadyCaptured)
	}
	spec, err := e.doc.Spec(e.axis, e.index)
	if err != nil {
		return err
	}
	snap := &trackSnapshot{spec: spec, group: e.doc.GroupOf(e.axis, e.index)}
	for _, p := range e.doc.Components() {
		if p.Constraints.CrossesTrack(e.axis, e.index) {
			snap.items = append(snap.items, p)
		}
	}
	e.snap = snap
	if snap.group != 0 {
		e.ungroup = NewChangeGroup(e.doc, e.axis, e.index, 0)
	}
	return nil
}

func (e *DeleteTrack) Redo() error {
	if err := e.beginRedo(e.Describe()); err != nil {
		return err
	}
	if err := e.doc.CheckRemovable(e.axis, e.index); err != nil {
		return err
	}
	if e.snap == nil {
		if err := e.capture(); err != nil {
			return err
		}
	}
	if e.ungroup != nil {
		if err := e.ungroup.Redo(); err != nil {
			return err
		}
		e.applied = true
	}
	if err := e.doc.RemoveTrack(e.axis, e.index); err != nil {
		return err
	}
	e.removed = true
	e.applied = true
	return nil
}

func (e *DeleteTrack) Undo() error {
	if err := e.beginUndo(e.Describe()); err != nil {
		return err
	}
	if e.removed {
		if e.fresh == nil {
			e.fresh = newReplay(e.doc, e.src)
		}
		src := e.fresh.rewind()
		if err := e.doc.InsertTrack(e.axis, e.index, e.snap.spec, src); err != nil {
			return err
		}
		e.removed = false
		for _, p := range e.snap.items {
			var err error
			if e.doc.Contains(p.Component) {
				err = e.doc.SetConstraintsWith(p.Component, p.Constraints, src)
			} else {
				err = e.doc.PlaceWith(p.Component, p.Constraints, src)
			}
			if err != nil {
				return fmt.Errorf("%s: restore %s: %w", e.Describe(), p.Component.ID(), err)
			}
		}
	}
	if e.ungroup != nil && e.ungroup.CanUndo() {
		if err := e.ungroup.Undo(); err != nil {
			return err
		}
	}
	e.applied = false
	return nil
}

// Removed lists the components that touched the track when it was deleted.
func (e *DeleteTrack) Removed() []grid.Placement {
	if e.snap == nil {
		return nil
	}
	return append([]grid.Placement(nil), e.snap.items...)
}

// TrimTracks deletes empty leading rows (or columns), then empty trailing ones,
// stopping at the first non-empty track or when one track is left. It cannot be
// undone: callers must treat it as a point of no return.
type TrimTracks struct {
	state
	doc     *grid.Document
	axis    model.Axis
	src     grid.ComponentSource
	deleted []*DeleteTrack
}

func NewTrimRows(doc *grid.Document, src grid.ComponentSource) *TrimTracks {
	return &TrimTracks{doc: doc, axis: model.AxisRow, src: src}
}

func NewTrimColumns(doc *grid.Document, src grid.ComponentSource) *TrimTracks {
	return &TrimTracks{doc: doc, axis: model.AxisColumn, src: src}
}

func (e *TrimTracks) Target() string { return e.doc.ID() }

func (e *TrimTracks) Describe() string {
	return fmt.Sprintf("trim %ss in %s", e.axis, e.doc.ID())
}

func (e *TrimTracks) CanUndo() bool { return false }

// Deleted reports how many tracks the trim removed.
func (e *TrimTracks) Deleted() int { return len(e.deleted) }

func (e *TrimTracks) Redo() error {
	if err := e.beginRedo(e.Describe()); err != nil {
		return err
	}
	for e.doc.Count(e.axis) > 1 && e.doc.IsTrackEmpty(e.axis, 1) {
		if err := e.deleteTrack(1); err != nil {
			return err
		}
	}
	for n := e.doc.Count(e.axis); n > 1 && e.doc.IsTrackEmpty(e.axis, n); n = e.doc.Count(e.axis) {
		if err := e.deleteTrack(n); err != nil {
			return err
		}
	}
	e.applied = true
	return nil
}

func (e *TrimTracks) deleteTrack(index int) error {
	d := &DeleteTrack{doc: e.doc, axis: e.axis, index: index, src: e.src}
	err := d.Redo()
	if !d.CanRedo() {
		e.deleted = append(e.deleted, d)
		e.applied = true
	}
	return err
}

func (e *TrimTracks) Undo() error {
	return fmt.Errorf("%s: %w", e.Describe(), ErrCannotUndo)
}
