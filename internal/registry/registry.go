// Package registry maps document ids to the single live instance of each document.
//
// Entries are created when a document is opened or embedded and removed explicitly
// with Remove once no view shows the document any more.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"gridform/internal/grid"
)

// ErrConflict is returned when a second, different instance is registered under an
// id that is already taken.
var ErrConflict = errors.New("document id already registered to another instance")

// NotFoundError reports an id with no registered document. It matches
// grid.ErrUnknownDocument under errors.Is.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("document not registered: %s", e.ID)
}

func (e NotFoundError) Is(target error) bool {
	return target == grid.ErrUnknownDocument
}

// Registry is safe for concurrent use so diagnostics can read it while edits run.
type Registry struct {
	mu   sync.RWMutex
	docs map[string]*grid.Document
	log  *zap.Logger
}

func New(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{docs: make(map[string]*grid.Document), log: log}
}

// Register records d and every canonical document nested beneath it, and binds each
// to r so placeholder nesting is checked for cycles. Registering the same instance
// again is a no-op.
func (r *Registry) Register(d *grid.Document) error {
	if d == nil {
		return errors.New("register: nil document")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerTree(d)
}

// registerTree expects r.mu to be held.
func (r *Registry) registerTree(root *grid.Document) error {
	var errs error
	grid.Walk(root, nil, func(d *grid.Document) bool {
		cur, ok := r.docs[d.ID()]
		switch {
		case ok && cur != d:
			errs = multierr.Append(errs, fmt.Errorf("register %s: %w", d.ID(), ErrConflict))
			return false
		case !ok:
			r.docs[d.ID()] = d
			d.SetResolver(r)
			r.log.Debug("document registered", zap.String("doc", d.ID()))
		}
		return true
	})
	return errs
}

func (r *Registry) Lookup(id string) (*grid.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.docs[id]
	return d, ok
}

// Get is Lookup returning a NotFoundError for unknown ids.
func (r *Registry) Get(id string) (*grid.Document, error) {
	if d, ok := r.Lookup(id); ok {
		return d, nil
	}
	return nil, NotFoundError{ID: id}
}

// Remove drops the entry for id. Nested documents keep their own entries.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return false
	}
	delete(r.docs, id)
	r.log.Debug("document removed", zap.String("doc", id))
	return true
}

// Resolve returns the document a ref stands for.
func (r *Registry) Resolve(ref *grid.Ref) (*grid.Document, error) {
	if ref == nil {
		return nil, errors.New("resolve: nil ref")
	}
	if d := ref.Document(); d != nil {
		return d, nil
	}
	return r.Get(ref.DocumentID())
}

// ToPlaceholder makes sure the document behind ref and its canonical subtree are
// registered, then returns a placeholder for it.
func (r *Registry) ToPlaceholder(ref *grid.Ref) (*grid.Ref, error) {
	if ref == nil {
		return nil, errors.New("to placeholder: nil ref")
	}
	if ref.IsPlaceholder() {
		return ref, nil
	}
	if err := r.Register(ref.Document()); err != nil {
		return nil, err
	}
	return grid.Placeholder(ref.DocumentID()), nil
}

// ToCanonical resolves ref through the registry and returns a canonical ref, after
// re-registering every canonical document nested beneath it.
func (r *Registry) ToCanonical(ref *grid.Ref) (*grid.Ref, error) {
	d, err := r.Resolve(ref)
	if err != nil {
		return nil, err
	}
	if err := r.Register(d); err != nil {
		return nil, err
	}
	if !ref.IsPlaceholder() {
		return ref, nil
	}
	return grid.Canonical(d), nil
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.docs))
	for id := range r.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}
