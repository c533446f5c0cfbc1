package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"gridform/internal/dispatch"
	"gridform/internal/grid"
	"gridform/internal/history"
	"gridform/internal/model"
	"gridform/internal/mutate"
	"gridform/internal/registry"
	"gridform/internal/store"
	"gridform/internal/workspace"
)

type Option func(*runner)

func WithLogger(log *zap.Logger) Option {
	return func(r *runner) {
		if log != nil {
			r.log = log
		}
	}
}

// WithHistoryLimit bounds every view's undo history.
func WithHistoryLimit(n int) Option {
	return func(r *runner) {
		if n > 0 {
			r.limit = n
		}
	}
}

func WithRunID(id string) Option {
	return func(r *runner) { r.runID = strings.TrimSpace(id) }
}

// WithJournal appends the run's events to j once every step has run.
func WithJournal(j store.Journal) Option {
	return func(r *runner) { r.journal = j }
}

func WithClock(now func() time.Time) Option {
	return func(r *runner) {
		if now != nil {
			r.now = now
		}
	}
}

type runner struct {
	file    *File
	log     *zap.Logger
	limit   int
	runID   string
	journal store.Journal
	now     func() time.Time

	docs    map[string]*grid.Document
	created map[string]grid.Component
	reg     *registry.Registry
	ws      *workspace.Workspace
	disp    *dispatch.Dispatcher
	rec     *recorder
}

// Run executes f against fresh documents and returns their final state. A step that
// fails without declaring expectError, or that succeeds although it declares one,
// aborts the run.
func Run(ctx context.Context, f *File, opts ...Option) (*Result, error) {
	if f == nil {
		return nil, errors.New("run: nil scenario")
	}
	r := &runner{
		file:    f,
		log:     zap.NewNop(),
		limit:   history.DefaultLimit,
		now:     time.Now,
		docs:    map[string]*grid.Document{},
		created: map[string]grid.Component{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runID == "" {
		id, err := store.NewID("run")
		if err != nil {
			return nil, err
		}
		r.runID = id
	}
	r.log = r.log.With(zap.String("run", r.runID))

	if err := r.setup(); err != nil {
		return nil, err
	}
	res := &Result{Name: f.Name, RunID: r.runID}
	for i, s := range f.Steps {
		out, err := r.step(i+1, s)
		res.Steps = append(res.Steps, out)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, s.Op, err)
		}
	}
	r.collect(res)

	if r.journal != nil && len(res.Events) > 0 {
		if err := r.journal.Append(ctx, res.Events...); err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		r.log.Debug("events journaled", zap.Int("count", len(res.Events)), zap.String("backend", string(r.journal.Backend())))
	}
	return res, nil
}

func (r *runner) setup() error {
	for _, def := range r.file.Documents {
		d, err := buildDocument(def)
		if err != nil {
			return err
		}
		r.docs[def.ID] = d
	}
	for _, def := range r.file.Documents {
		d := r.docs[def.ID]
		for _, c := range def.Components {
			if err := r.place(d, c); err != nil {
				return fmt.Errorf("document %s: %w", def.ID, err)
			}
		}
	}

	r.reg = registry.New(r.log)
	for _, def := range r.file.Documents {
		d := r.docs[def.ID]
		if d.Parent() != nil {
			continue
		}
		if err := r.reg.Register(d); err != nil {
			return err
		}
	}
	for _, def := range r.file.Documents {
		r.docs[def.ID].SetReadOnly(def.ReadOnly)
	}

	r.ws = workspace.New(r.reg, workspace.WithHistoryLimit(r.limit), workspace.WithLogger(r.log))
	for _, v := range r.file.Views {
		if _, err := r.ws.Open(v.ID, v.Document); err != nil {
			return err
		}
	}
	r.rec = newRecorder(r.runID, r.now)
	r.disp = dispatch.New(r.ws, r.reg, dispatch.WithLogger(r.log), dispatch.WithObserver(r.rec))
	return nil
}

func buildDocument(def DocumentDef) (*grid.Document, error) {
	cols, err := parseSpecs(def.Cols)
	if err != nil {
		return nil, fmt.Errorf("document %s cols: %w", def.ID, err)
	}
	rows, err := parseSpecs(def.Rows)
	if err != nil {
		return nil, fmt.Errorf("document %s rows: %w", def.ID, err)
	}
	return grid.New(def.ID, cols, rows, grid.NewSequenceSource(def.ID))
}

// parseSpecs decodes a track list; an empty list is one default track.
func parseSpecs(in []string) ([]model.Spec, error) {
	if len(in) == 0 {
		return []model.Spec{model.DefaultSpec()}, nil
	}
	out := make([]model.Spec, 0, len(in))
	for i, s := range in {
		spec, err := parseSpec(s)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, spec)
	}
	return out, nil
}

func parseSpec(s string) (model.Spec, error) {
	if strings.TrimSpace(s) == "" {
		return model.DefaultSpec(), nil
	}
	return model.ParseSpec(s)
}

func cellOf(col, row int) grid.Cell { return grid.Cell{Col: col, Row: row} }

func area(col, row, colSpan, rowSpan int) grid.Constraints {
	return grid.At(col, row).Spanning(max(colSpan, 1), max(rowSpan, 1))
}

func (r *runner) place(d *grid.Document, c ComponentDef) error {
	var comp grid.Component
	switch {
	case c.Embed != "" && c.Placeholder:
		comp = grid.Placeholder(c.Embed)
	case c.Embed != "":
		comp = grid.Canonical(r.docs[c.Embed])
	default:
		b, err := r.newBean(d, c.ID, c.Class)
		if err != nil {
			return err
		}
		for k, v := range c.Properties {
			b.SetProperty(k, v)
		}
		comp = b
	}
	return d.Place(comp, area(c.Col, c.Row, c.ColSpan, c.RowSpan))
}

// newBean creates a bean with the given id, or asks the document's source for one.
func (r *runner) newBean(d *grid.Document, id, class string) (grid.PropertyHolder, error) {
	if strings.TrimSpace(id) != "" {
		b := grid.NewBean(id, class)
		r.created[id] = b
		return b, nil
	}
	c, err := d.Source().NewComponent(class)
	if err != nil {
		return nil, err
	}
	b, ok := c.(grid.PropertyHolder)
	if !ok {
		return nil, fmt.Errorf("source returned %s for class %s", c.Kind(), class)
	}
	r.created[b.ID()] = b
	return b, nil
}

func (r *runner) step(n int, s Step) (StepOutcome, error) {
	out := StepOutcome{Index: n, Op: s.Op}
	err := r.perform(s, &out)
	if err != nil {
		out.Error = err.Error()
	}
	if s.ExpectError != "" {
		if err == nil {
			return out, fmt.Errorf("expected an error containing %q", s.ExpectError)
		}
		if !strings.Contains(err.Error(), s.ExpectError) {
			return out, fmt.Errorf("expected an error containing %q: %w", s.ExpectError, err)
		}
		out.Expected = true
		r.log.Debug("step failed as expected", zap.Int("step", n), zap.Error(err))
		return out, nil
	}
	return out, err
}

func (r *runner) perform(s Step, out *StepOutcome) error {
	switch s.Op {
	case OpUndo, OpRedo:
		v, err := r.view(s.View)
		if err != nil {
			return err
		}
		out.View = v.ID()
		if next := r.nextFor(v, s.Op); next != nil {
			out.Describe = next.Describe()
		}
		if s.Op == OpUndo {
			return r.disp.Undo(v)
		}
		return r.disp.Redo(v)
	}

	doc, err := r.document(s, nil)
	if err != nil {
		return err
	}
	e, err := r.build(s, doc)
	if err != nil {
		return err
	}
	out.Describe = e.Describe()
	v, err := r.viewFor(s.View, doc)
	if err != nil {
		return err
	}
	out.View = v.ID()
	return r.disp.Invoke(e, v)
}

func (r *runner) nextFor(v *workspace.View, op string) mutate.Edit {
	if op == OpUndo {
		return v.History().NextUndo()
	}
	return v.History().NextRedo()
}

func (r *runner) view(id string) (*workspace.View, error) {
	v, ok := r.ws.View(id)
	if !ok {
		return nil, fmt.Errorf("view %s: %w", id, workspace.ErrViewMissing)
	}
	return v, nil
}

// viewFor picks the view an edit is issued from: the named one, else the home view of
// doc, else any view whose tree displays doc.
func (r *runner) viewFor(id string, doc *grid.Document) (*workspace.View, error) {
	if id != "" {
		return r.view(id)
	}
	var shown *workspace.View
	for _, v := range r.ws.Views() {
		if v.DocumentID() == doc.ID() && v.IsHome() {
			return v, nil
		}
		if shown == nil && r.ws.Displays(v, doc.ID()) {
			shown = v
		}
	}
	if shown == nil {
		return nil, fmt.Errorf("no open view displays %s", doc.ID())
	}
	return shown, nil
}

// document resolves the document a step edits: its own doc, the enclosing
// composite's, the view's, or the only one declared.
func (r *runner) document(s Step, parent *grid.Document) (*grid.Document, error) {
	if s.Doc != "" {
		return r.docs[s.Doc], nil
	}
	if parent != nil {
		return parent, nil
	}
	if s.View != "" {
		v, err := r.view(s.View)
		if err != nil {
			return nil, err
		}
		return r.reg.Get(v.DocumentID())
	}
	if len(r.file.Documents) == 1 {
		return r.docs[r.file.Documents[0].ID], nil
	}
	return nil, fmt.Errorf("%s: doc is required when the scenario has several documents", s.Op)
}

func (r *runner) component(doc *grid.Document, id string) (grid.Component, error) {
	if c, ok := doc.ComponentByID(id); ok {
		return c, nil
	}
	if c, ok := r.created[id]; ok {
		return c, nil
	}
	return nil, mutate.NotFoundError{Kind: "component", ID: id}
}

func (r *runner) build(s Step, doc *grid.Document) (mutate.Edit, error) {
	switch s.Op {
	case OpInsertRow, OpInsertColumn:
		spec, err := parseSpec(s.Spec)
		if err != nil {
			return nil, err
		}
		if s.Op == OpInsertRow {
			return mutate.NewInsertRow(doc, s.Index, spec, nil), nil
		}
		return mutate.NewInsertColumn(doc, s.Index, spec, nil), nil
	case OpDeleteRow:
		return mutate.NewDeleteRow(doc, s.Index, nil), nil
	case OpDeleteColumn:
		return mutate.NewDeleteColumn(doc, s.Index, nil), nil
	case OpRowSpec, OpColumnSpec:
		if strings.TrimSpace(s.Spec) == "" {
			return nil, fmt.Errorf("%s: spec is required", s.Op)
		}
		spec, err := model.ParseSpec(s.Spec)
		if err != nil {
			return nil, err
		}
		if s.Op == OpRowSpec {
			return mutate.NewChangeRowSpec(doc, s.Index, spec), nil
		}
		return mutate.NewChangeColumnSpec(doc, s.Index, spec), nil
	case OpGroupRow:
		return mutate.NewChangeGroup(doc, model.AxisRow, s.Index, s.Group), nil
	case OpGroupColumn:
		return mutate.NewChangeGroup(doc, model.AxisColumn, s.Index, s.Group), nil
	case OpAdd:
		b, err := r.newBean(doc, s.Component, s.Class)
		if err != nil {
			return nil, err
		}
		return r.addAt(doc, b, s), nil
	case OpEmbed:
		var ref *grid.Ref
		if s.Placeholder {
			ref = grid.Placeholder(s.Embed)
		} else {
			ref = grid.Canonical(r.docs[s.Embed])
		}
		return r.addAt(doc, ref, s), nil
	case OpDelete:
		c, err := r.component(doc, s.Component)
		if err != nil {
			return nil, err
		}
		return mutate.NewDeleteComponent(doc, c, nil, r.reg), nil
	case OpMove:
		c, err := r.component(doc, s.Component)
		if err != nil {
			return nil, err
		}
		to := doc
		if s.To != "" {
			to = r.docs[s.To]
		}
		return mutate.NewMoveComponent(doc, c, to, cellOf(s.Col, s.Row), nil, r.reg), nil
	case OpConstrain:
		c, err := r.component(doc, s.Component)
		if err != nil {
			return nil, err
		}
		return mutate.NewSetConstraints(doc, c, area(s.Col, s.Row, s.ColSpan, s.RowSpan)), nil
	case OpSet:
		c, err := r.component(doc, s.Component)
		if err != nil {
			return nil, err
		}
		h, ok := c.(grid.PropertyHolder)
		if !ok {
			return nil, fmt.Errorf("set: %s %s has no properties", c.Kind(), c.ID())
		}
		return mutate.NewSetProperty(doc, h, s.Property, s.Value), nil
	case OpTrimRows:
		return mutate.NewTrimRows(doc, nil), nil
	case OpTrimColumns:
		return mutate.NewTrimColumns(doc, nil), nil
	case OpComposite:
		name := s.Name
		if name == "" {
			name = "composite"
		}
		c := mutate.NewComposite(name)
		for i, child := range s.Steps {
			cd, err := r.document(child, doc)
			if err != nil {
				return nil, err
			}
			e, err := r.build(child, cd)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", name, i, err)
			}
			c.Add(e)
		}
		return c, nil
	}
	return nil, fmt.Errorf("unsupported op %q", s.Op)
}

// addAt adds comp at the step's cell, widening it afterwards when a span is given.
func (r *runner) addAt(doc *grid.Document, comp grid.Component, s Step) mutate.Edit {
	add := mutate.NewAddComponent(doc, comp, cellOf(s.Col, s.Row))
	if max(s.ColSpan, 1) == 1 && max(s.RowSpan, 1) == 1 {
		return add
	}
	return mutate.NewComposite(add.Describe(), add,
		mutate.NewSetConstraints(doc, comp, area(s.Col, s.Row, s.ColSpan, s.RowSpan)))
}

func (r *runner) collect(res *Result) {
	for _, def := range r.file.Documents {
		res.Documents = append(res.Documents, r.docs[def.ID].Snapshot())
	}
	for _, v := range r.ws.Views() {
		st := ViewState{ID: v.ID(), Document: v.DocumentID(), Home: v.IsHome(), Cursor: v.History().Cursor()}
		for _, e := range v.History().Edits() {
			st.Entries = append(st.Entries, e.Describe())
		}
		res.Views = append(res.Views, st)
	}
	res.Events = r.rec.events()
}
