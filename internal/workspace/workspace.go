// Package workspace is the set of open views of an embedding application.
//
// The first view opened on a document is its home and holds the canonical ref; views
// opened later on the same document hold placeholders resolved through the registry.
package workspace

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gridform/internal/dispatch"
	"gridform/internal/grid"
	"gridform/internal/history"
	"gridform/internal/registry"
)

var (
	ErrViewExists  = errors.New("view already open")
	ErrViewMissing = errors.New("view not open")
)

// View is one open editor surface showing a top-level document.
type View struct {
	id   string
	root *grid.Ref
	hist *history.History
}

func (v *View) ID() string                 { return v.id }
func (v *View) History() *history.History { return v.hist }

// Root is the ref the view displays: canonical in the home view, a placeholder
// elsewhere.
func (v *View) Root() *grid.Ref    { return v.root }
func (v *View) DocumentID() string { return v.root.DocumentID() }
func (v *View) IsHome() bool       { return !v.root.IsPlaceholder() }

type Option func(*Workspace)

// WithHistoryLimit sets the undo history limit of views opened afterwards.
func WithHistoryLimit(n int) Option {
	return func(w *Workspace) { w.limit = n }
}

func WithLogger(log *zap.Logger) Option {
	return func(w *Workspace) {
		if log != nil {
			w.log = log
		}
	}
}

// Workspace implements dispatch.ViewRegistry.
type Workspace struct {
	reg   *registry.Registry
	views []*View
	limit int
	log   *zap.Logger
}

var _ dispatch.ViewRegistry = (*Workspace)(nil)

func New(reg *registry.Registry, opts ...Option) *Workspace {
	w := &Workspace{reg: reg, limit: history.DefaultLimit, log: zap.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workspace) Registry() *registry.Registry { return w.reg }

// Open shows a registered document in a new view.
func (w *Workspace) Open(viewID, docID string) (*View, error) {
	viewID = strings.TrimSpace(viewID)
	if viewID == "" {
		return nil, errors.New("open: view id is required")
	}
	if _, ok := w.View(viewID); ok {
		return nil, fmt.Errorf("open %s: %w", viewID, ErrViewExists)
	}
	doc, err := w.reg.Get(docID)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", viewID, err)
	}
	root := grid.Canonical(doc)
	if home := w.home(docID); home != nil {
		if root, err = w.reg.ToPlaceholder(root); err != nil {
			return nil, fmt.Errorf("open %s: %w", viewID, err)
		}
	}
	v := &View{id: viewID, root: root, hist: history.New(w.limit)}
	w.views = append(w.views, v)
	w.log.Debug("view opened", zap.String("view", viewID), zap.String("doc", docID), zap.Bool("home", v.IsHome()))
	return v, nil
}

// Close removes a view. A closing home view hands the canonical ref to another view
// showing the same document; documents no open view displays any more are removed
// from the registry.
func (w *Workspace) Close(viewID string) error {
	idx := -1
	for i, v := range w.views {
		if v.id == viewID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("close %s: %w", viewID, ErrViewMissing)
	}
	closed := w.views[idx]
	shown := w.treeIDs(closed)
	w.views = append(w.views[:idx:idx], w.views[idx+1:]...)

	if closed.IsHome() {
		for _, v := range w.views {
			if v.DocumentID() != closed.DocumentID() {
				continue
			}
			root, err := w.reg.ToCanonical(v.root)
			if err != nil {
				return fmt.Errorf("close %s: hand home to %s: %w", viewID, v.id, err)
			}
			v.root = root
			w.log.Debug("home view moved", zap.String("doc", v.DocumentID()), zap.String("view", v.id))
			break
		}
	}
	for _, id := range shown {
		if w.displayedAnywhere(id) {
			continue
		}
		w.reg.Remove(id)
	}
	w.log.Debug("view closed", zap.String("view", viewID))
	return nil
}

func (w *Workspace) View(id string) (*View, bool) {
	for _, v := range w.views {
		if v.id == id {
			return v, true
		}
	}
	return nil, false
}

// Views returns the open views in the order they were opened.
func (w *Workspace) Views() []*View {
	return append([]*View(nil), w.views...)
}

func (w *Workspace) OpenViews() []dispatch.View {
	out := make([]dispatch.View, 0, len(w.views))
	for _, v := range w.views {
		out = append(out, v)
	}
	return out
}

// Displays reports whether docID appears anywhere in the tree v displays.
func (w *Workspace) Displays(v dispatch.View, docID string) bool {
	wv, ok := w.View(v.ID())
	if !ok {
		return false
	}
	for _, id := range w.treeIDs(wv) {
		if id == docID {
			return true
		}
	}
	return false
}

func (w *Workspace) home(docID string) *View {
	for _, v := range w.views {
		if v.DocumentID() == docID && v.IsHome() {
			return v
		}
	}
	return nil
}

func (w *Workspace) treeIDs(v *View) []string {
	root, err := w.reg.Resolve(v.root)
	if err != nil {
		return []string{v.DocumentID()}
	}
	var ids []string
	grid.Walk(root, w.reg, func(d *grid.Document) bool {
		ids = append(ids, d.ID())
		return true
	})
	return ids
}

func (w *Workspace) displayedAnywhere(docID string) bool {
	for _, v := range w.views {
		if w.Displays(v, docID) {
			return true
		}
	}
	return false
}
