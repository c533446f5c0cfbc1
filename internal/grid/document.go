package grid

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gridform/internal/model"
)

// Placement is a resident component together with its constraints.
type Placement struct {
	Component   Component
	Constraints Constraints
}

// Document is the mutable table of a grid form: row and column specs, resize groups,
// and the components placed in its cells.
//
// Every cell in range is either the primary cell of exactly one component or covered
// by exactly one component's span. Cells without real content hold an *Empty.
type Document struct {
	id   string
	rows []model.Spec
	cols []model.Spec

	rowGroups model.GroupAssignment
	colGroups model.GroupAssignment

	items []Placement
	src   ComponentSource

	// parent is the document whose cell holds this one canonically. It is a
	// back-reference only; ownership of nested documents runs top-down.
	parent *Document
	// res resolves placeholders when checking nesting for cycles.
	res Resolver

	readOnly  bool
	revision  uint64
	layoutRev uint64
}

// New builds a document with the given column and row specs, every cell holding an
// empty placeholder from src. src is also the default source for later insertions.
func New(id string, cols, rows []model.Spec, src ComponentSource) (*Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("document id is required")
	}
	if src == nil {
		return nil, errors.New("component source is required")
	}
	if len(cols) == 0 || len(rows) == 0 {
		return nil, fmt.Errorf("document %s: needs at least one row and one column", id)
	}
	for _, sp := range append(append([]model.Spec{}, cols...), rows...) {
		if err := sp.Validate(); err != nil {
			return nil, fmt.Errorf("document %s: %w", id, err)
		}
	}
	d := &Document{
		id:        id,
		rows:      append([]model.Spec(nil), rows...),
		cols:      append([]model.Spec(nil), cols...),
		rowGroups: model.GroupAssignment{},
		colGroups: model.GroupAssignment{},
		src:       src,
	}
	items, err := d.fill(nil, len(d.cols), len(d.rows), src)
	if err != nil {
		return nil, err
	}
	d.items = items
	return d, nil
}

// NewUniform builds a cols x rows document where every track uses spec.
func NewUniform(id string, cols, rows int, spec model.Spec, src ComponentSource) (*Document, error) {
	if cols < 1 || rows < 1 {
		return nil, fmt.Errorf("document %s: needs at least one row and one column", id)
	}
	cs := make([]model.Spec, cols)
	rs := make([]model.Spec, rows)
	for i := range cs {
		cs[i] = spec
	}
	for i := range rs {
		rs[i] = spec
	}
	return New(id, cs, rs, src)
}

func (d *Document) ID() string   { return d.id }
func (d *Document) Kind() string { return KindForm }

// Source is the default component source used to refill cells.
func (d *Document) Source() ComponentSource { return d.src }

func (d *Document) ReadOnly() bool     { return d.readOnly }
func (d *Document) SetReadOnly(v bool) { d.readOnly = v }

// Revision increases on every structural or content mutation.
func (d *Document) Revision() uint64 { return d.revision }

// LayoutRevision increases each time Revalidate reaches this document.
func (d *Document) LayoutRevision() uint64 { return d.layoutRev }

// Parent is the document holding this one canonically, if any.
func (d *Document) Parent() *Document { return d.parent }

// Revalidate marks this document and every canonical ancestor as needing fresh layout.
func (d *Document) Revalidate() {
	for x := d; x != nil; x = x.parent {
		x.layoutRev++
	}
}

func (d *Document) touch() { d.revision++ }

// Touch records a content change made on a resident component, such as a property
// edit, that the document's own mutators do not see.
func (d *Document) Touch() { d.touch() }

// SetResolver binds the resolver used to follow placeholders when nesting is checked
// for cycles. Without one only canonical nesting is followed.
func (d *Document) SetResolver(res Resolver) { d.res = res }

func (d *Document) RowCount() int    { return len(d.rows) }
func (d *Document) ColumnCount() int { return len(d.cols) }

func (d *Document) Count(a model.Axis) int {
	if a == model.AxisRow {
		return len(d.rows)
	}
	return len(d.cols)
}

func (d *Document) specs(a model.Axis) *[]model.Spec {
	if a == model.AxisRow {
		return &d.rows
	}
	return &d.cols
}

func (d *Document) groupsRef(a model.Axis) *model.GroupAssignment {
	if a == model.AxisRow {
		return &d.rowGroups
	}
	return &d.colGroups
}

// Specs returns a copy of the track specs along a.
func (d *Document) Specs(a model.Axis) []model.Spec {
	return append([]model.Spec(nil), (*d.specs(a))...)
}

func (d *Document) Spec(a model.Axis, index int) (model.Spec, error) {
	s := *d.specs(a)
	if index < 1 || index > len(s) {
		return model.Spec{}, fmt.Errorf("%s %d of %d: %w", a, index, len(s), ErrOutOfRange)
	}
	return s[index-1], nil
}

func (d *Document) RowSpec(index int) (model.Spec, error)    { return d.Spec(model.AxisRow, index) }
func (d *Document) ColumnSpec(index int) (model.Spec, error) { return d.Spec(model.AxisColumn, index) }

// SetSpec replaces the spec of one track. No structural shift happens.
func (d *Document) SetSpec(a model.Axis, index int, spec model.Spec) error {
	s := *d.specs(a)
	if index < 1 || index > len(s) {
		return fmt.Errorf("set %s spec %d of %d: %w", a, index, len(s), ErrOutOfRange)
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	s[index-1] = spec
	d.touch()
	return nil
}

func (d *Document) SetRowSpec(index int, spec model.Spec) error {
	return d.SetSpec(model.AxisRow, index, spec)
}

func (d *Document) SetColumnSpec(index int, spec model.Spec) error {
	return d.SetSpec(model.AxisColumn, index, spec)
}

// Groups returns a copy of the group assignment along a.
func (d *Document) Groups(a model.Axis) model.GroupAssignment {
	return d.groupsRef(a).Clone()
}

func (d *Document) GroupOf(a model.Axis, index int) int {
	return d.groupsRef(a).Of(index)
}

// SetGroups replaces the whole group assignment along a.
func (d *Document) SetGroups(a model.Axis, g model.GroupAssignment) error {
	n := d.Count(a)
	for idx, id := range g {
		if idx < 1 || idx > n {
			return fmt.Errorf("%s group index %d of %d: %w", a, idx, n, ErrOutOfRange)
		}
		if id < 0 {
			return fmt.Errorf("%s group id %d for index %d: must not be negative", a, id, idx)
		}
	}
	*d.groupsRef(a) = g.Clone()
	d.touch()
	return nil
}

// InsertRow inserts a row at index, shifting rows at or after it down by one.
// New cells are filled with empties from src (nil means the document's own source).
func (d *Document) InsertRow(index int, spec model.Spec, src ComponentSource) error {
	return d.InsertTrack(model.AxisRow, index, spec, src)
}

func (d *Document) InsertColumn(index int, spec model.Spec, src ComponentSource) error {
	return d.InsertTrack(model.AxisColumn, index, spec, src)
}

func (d *Document) InsertTrack(a model.Axis, index int, spec model.Spec, src ComponentSource) error {
	n := d.Count(a)
	if index < 1 || index > n+1 {
		return fmt.Errorf("insert %s %d of %d: %w", a, index, n, ErrOutOfRange)
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	if src == nil {
		src = d.src
	}

	next := make([]Placement, 0, len(d.items))
	for _, p := range d.items {
		c := p.Constraints
		switch {
		case c.Start(a) >= index:
			c = c.with(a, c.Start(a)+1, c.Span(a))
		case c.End(a) >= index:
			// The insertion point falls inside the span.
			c = c.with(a, c.Start(a), c.Span(a)+1)
		}
		next = append(next, Placement{Component: p.Component, Constraints: c})
	}

	cols, rows := len(d.cols), len(d.rows)
	if a == model.AxisRow {
		rows++
	} else {
		cols++
	}
	filled, err := d.fill(next, cols, rows, src)
	if err != nil {
		return err
	}

	specs := d.specs(a)
	s := make([]model.Spec, 0, len(*specs)+1)
	s = append(s, (*specs)[:index-1]...)
	s = append(s, spec)
	s = append(s, (*specs)[index-1:]...)
	*specs = s

	g := d.groupsRef(a)
	*g = g.Shift(index, 1)
	d.items = filled
	d.touch()
	return nil
}

// RemoveRow deletes row index. Components lying entirely within it are dropped, spans
// through it shrink. The row must not carry a resize group; clearing it is the caller's job.
func (d *Document) RemoveRow(index int) error {
	return d.RemoveTrack(model.AxisRow, index)
}

func (d *Document) RemoveColumn(index int) error {
	return d.RemoveTrack(model.AxisColumn, index)
}

// CheckRemovable reports whether track index along a exists and is not the last one
// left. It ignores resize groups.
func (d *Document) CheckRemovable(a model.Axis, index int) error {
	n := d.Count(a)
	if n <= 1 {
		if a == model.AxisRow {
			return fmt.Errorf("remove row %d: %w", index, ErrLastRow)
		}
		return fmt.Errorf("remove column %d: %w", index, ErrLastColumn)
	}
	if index < 1 || index > n {
		return fmt.Errorf("remove %s %d of %d: %w", a, index, n, ErrOutOfRange)
	}
	return nil
}

func (d *Document) RemoveTrack(a model.Axis, index int) error {
	if err := d.CheckRemovable(a, index); err != nil {
		return err
	}
	if g := d.GroupOf(a, index); g != 0 {
		return fmt.Errorf("remove %s %d (group %d): %w", a, index, g, ErrGroupedRemoval)
	}

	next := make([]Placement, 0, len(d.items))
	var dropped []Component
	for _, p := range d.items {
		c := p.Constraints
		switch {
		case c.Start(a) == index && c.Span(a) == 1:
			dropped = append(dropped, p.Component)
			continue
		case c.CrossesTrack(a, index):
			c = c.with(a, c.Start(a), c.Span(a)-1)
		case c.Start(a) > index:
			c = c.with(a, c.Start(a)-1, c.Span(a))
		}
		next = append(next, Placement{Component: p.Component, Constraints: c})
	}

	specs := d.specs(a)
	s := make([]model.Spec, 0, len(*specs)-1)
	s = append(s, (*specs)[:index-1]...)
	s = append(s, (*specs)[index:]...)
	*specs = s

	g := d.groupsRef(a)
	*g = g.Shift(index+1, -1)
	d.items = next
	for _, c := range dropped {
		d.release(c)
	}
	d.touch()
	return nil
}

// GridComponent returns the component whose primary cell is (col,row). It returns nil
// when the cell is only covered by another component's span or is out of range.
func (d *Document) GridComponent(col, row int) Component {
	for _, p := range d.items {
		if p.Constraints.Col == col && p.Constraints.Row == row {
			return p.Component
		}
	}
	return nil
}

// OverlappingComponent returns whichever component covers (col,row), primary or spanned.
func (d *Document) OverlappingComponent(col, row int) Component {
	for _, p := range d.items {
		if p.Constraints.Covers(col, row) {
			return p.Component
		}
	}
	return nil
}

func (d *Document) find(c Component) int {
	for i, p := range d.items {
		if p.Component == c {
			return i
		}
	}
	return -1
}

func (d *Document) Contains(c Component) bool { return c != nil && d.find(c) >= 0 }

func (d *Document) ConstraintsOf(c Component) (Constraints, bool) {
	i := d.find(c)
	if i < 0 {
		return Constraints{}, false
	}
	return d.items[i].Constraints, true
}

// Components lists resident components in row-major order of their primary cells.
func (d *Document) Components() []Placement {
	out := append([]Placement(nil), d.items...)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Constraints, out[j].Constraints
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Col < b.Col
	})
	return out
}

// ComponentByID finds a resident component by id.
func (d *Document) ComponentByID(id string) (Component, bool) {
	for _, p := range d.items {
		if p.Component.ID() == id {
			return p.Component, true
		}
	}
	return nil, false
}

// Children returns the nested documents placed in this one, row-major.
func (d *Document) Children() []*Ref {
	var out []*Ref
	for _, p := range d.Components() {
		if r, ok := p.Component.(*Ref); ok {
			out = append(out, r)
		}
	}
	return out
}

// IsTrackEmpty reports whether every component touching track index along a is empty.
func (d *Document) IsTrackEmpty(a model.Axis, index int) bool {
	for _, p := range d.items {
		if p.Constraints.CrossesTrack(a, index) && !IsEmpty(p.Component) {
			return false
		}
	}
	return true
}

// ReplaceComponent puts newComp where oldComp is, keeping oldComp's constraints.
func (d *Document) ReplaceComponent(newComp, oldComp Component) error {
	if newComp == nil {
		return fmt.Errorf("replace in %s: nil component", d.id)
	}
	if newComp == oldComp {
		return nil
	}
	i := d.find(oldComp)
	if i < 0 {
		return fmt.Errorf("replace %s in %s: %w", describe(oldComp), d.id, ErrNotResident)
	}
	if d.find(newComp) >= 0 {
		return fmt.Errorf("replace with %s in %s: %w", describe(newComp), d.id, ErrAlreadyResident)
	}
	if err := d.checkAdopt(newComp); err != nil {
		return err
	}
	d.items[i].Component = newComp
	d.release(oldComp)
	d.adopt(newComp)
	d.touch()
	return nil
}

// SetConstraints moves a resident component. The new area may only overlap empties,
// which are discarded; cells left uncovered receive new empties.
func (d *Document) SetConstraints(comp Component, c Constraints) error {
	return d.SetConstraintsWith(comp, c, nil)
}

// SetConstraintsWith is SetConstraints drawing refill empties from src
// (nil means the document's own source).
func (d *Document) SetConstraintsWith(comp Component, c Constraints, src ComponentSource) error {
	if src == nil {
		src = d.src
	}
	i := d.find(comp)
	if i < 0 {
		return fmt.Errorf("constrain %s in %s: %w", describe(comp), d.id, ErrNotResident)
	}
	next, err := d.claim(c, i)
	if err != nil {
		return fmt.Errorf("constrain %s in %s: %w", describe(comp), d.id, err)
	}
	next = append(next, Placement{Component: comp, Constraints: c})
	filled, err := d.fill(next, len(d.cols), len(d.rows), src)
	if err != nil {
		return err
	}
	d.items = filled
	d.touch()
	return nil
}

// Place installs a component that is not yet resident, under the same overlap rule as
// SetConstraints.
func (d *Document) Place(comp Component, c Constraints) error {
	return d.PlaceWith(comp, c, nil)
}

func (d *Document) PlaceWith(comp Component, c Constraints, src ComponentSource) error {
	if src == nil {
		src = d.src
	}
	if comp == nil {
		return fmt.Errorf("place in %s: nil component", d.id)
	}
	if d.find(comp) >= 0 {
		return fmt.Errorf("place %s in %s: %w", describe(comp), d.id, ErrAlreadyResident)
	}
	if err := d.checkAdopt(comp); err != nil {
		return err
	}
	next, err := d.claim(c, -1)
	if err != nil {
		return fmt.Errorf("place %s in %s: %w", describe(comp), d.id, err)
	}
	next = append(next, Placement{Component: comp, Constraints: c})
	filled, err := d.fill(next, len(d.cols), len(d.rows), src)
	if err != nil {
		return err
	}
	d.items = filled
	d.adopt(comp)
	d.touch()
	return nil
}

// claim returns the current placements minus skip and minus every empty intersecting c.
// It fails if c is out of range or intersects a non-empty component.
func (d *Document) claim(c Constraints, skip int) ([]Placement, error) {
	if err := c.validIn(len(d.cols), len(d.rows)); err != nil {
		return nil, err
	}
	next := make([]Placement, 0, len(d.items))
	for i, p := range d.items {
		if i == skip {
			continue
		}
		if p.Constraints.Intersects(c) {
			if !IsEmpty(p.Component) {
				return nil, fmt.Errorf("%w: %s at %s", ErrOverlap, p.Component.ID(), p.Constraints)
			}
			continue
		}
		next = append(next, p)
	}
	return next, nil
}

// fill returns items plus a new 1x1 empty for every cell of a cols x rows grid that
// items leave uncovered. It does not touch d.
func (d *Document) fill(items []Placement, cols, rows int, src ComponentSource) ([]Placement, error) {
	out := items
	for r := 1; r <= rows; r++ {
		for c := 1; c <= cols; c++ {
			covered := false
			for _, p := range items {
				if p.Constraints.Covers(c, r) {
					covered = true
					break
				}
			}
			if covered {
				continue
			}
			e, err := NewEmptyFrom(src)
			if err != nil {
				return nil, fmt.Errorf("fill %s at (%d,%d): %w", d.id, c, r, err)
			}
			out = append(out, Placement{Component: e, Constraints: At(c, r)})
		}
	}
	return out, nil
}

func (d *Document) checkAdopt(c Component) error {
	r, ok := c.(*Ref)
	if !ok {
		return nil
	}
	ancestors := map[string]bool{}
	for a := d; a != nil; a = a.parent {
		if a.id == r.DocumentID() {
			return fmt.Errorf("nest %s in %s: %w", r.DocumentID(), d.id, ErrCycle)
		}
		ancestors[a.id] = true
	}
	if target, err := r.Resolve(d.res); err == nil {
		var hit string
		Walk(target, d.res, func(x *Document) bool {
			if ancestors[x.id] {
				hit = x.id
				return false
			}
			return hit == ""
		})
		if hit != "" {
			return fmt.Errorf("nest %s in %s (reaches %s): %w", r.DocumentID(), d.id, hit, ErrCycle)
		}
	}
	if r.doc != nil && r.doc.parent != nil && r.doc.parent != d {
		return fmt.Errorf("nest %s in %s (held by %s): %w", r.DocumentID(), d.id, r.doc.parent.id, ErrAlreadyOwned)
	}
	return nil
}

func (d *Document) adopt(c Component) {
	if r, ok := c.(*Ref); ok && r.doc != nil {
		r.doc.parent = d
	}
}

func (d *Document) release(c Component) {
	if r, ok := c.(*Ref); ok && r.doc != nil && r.doc.parent == d {
		r.doc.parent = nil
	}
}

// Validate checks the structural invariants.
func (d *Document) Validate() error {
	if len(d.rows) == 0 || len(d.cols) == 0 {
		return InvariantError{DocumentID: d.id, Detail: "document has no rows or no columns"}
	}
	for _, p := range d.items {
		if err := p.Constraints.validIn(len(d.cols), len(d.rows)); err != nil {
			return InvariantError{DocumentID: d.id, Detail: fmt.Sprintf("%s: %v", p.Component.ID(), err)}
		}
	}
	for r := 1; r <= len(d.rows); r++ {
		for c := 1; c <= len(d.cols); c++ {
			n := 0
			for _, p := range d.items {
				if p.Constraints.Covers(c, r) {
					n++
				}
			}
			if n != 1 {
				return InvariantError{DocumentID: d.id, Detail: fmt.Sprintf("cell (%d,%d) covered %d times", c, r, n)}
			}
		}
	}
	for _, a := range []model.Axis{model.AxisRow, model.AxisColumn} {
		for idx, id := range *d.groupsRef(a) {
			if idx < 1 || idx > d.Count(a) || id <= 0 {
				return InvariantError{DocumentID: d.id, Detail: fmt.Sprintf("%s group entry %d=%d", a, idx, id)}
			}
		}
	}
	return nil
}

func describe(c Component) string {
	if c == nil {
		return "<nil>"
	}
	return c.Kind() + " " + c.ID()
}
