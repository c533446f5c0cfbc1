package grid

import "fmt"

// Resolver maps a document id to its live instance.
type Resolver interface {
	Lookup(id string) (*Document, bool)
}

// Ref is a nested document occupying a cell. It is either canonical (it carries the
// document itself) or a placeholder that only names the document and is resolved
// through a Resolver on demand.
type Ref struct {
	docID string
	doc   *Document
}

func Canonical(d *Document) *Ref {
	return &Ref{docID: d.ID(), doc: d}
}

func Placeholder(docID string) *Ref {
	return &Ref{docID: docID}
}

func (r *Ref) ID() string   { return r.docID }
func (r *Ref) Kind() string { return KindForm }

func (r *Ref) DocumentID() string  { return r.docID }
func (r *Ref) IsPlaceholder() bool { return r.doc == nil }

// Document returns the carried document, or nil for a placeholder.
func (r *Ref) Document() *Document { return r.doc }

func (r *Ref) Resolve(res Resolver) (*Document, error) {
	if r.doc != nil {
		return r.doc, nil
	}
	if res == nil {
		return nil, fmt.Errorf("resolve placeholder %s: no resolver", r.docID)
	}
	d, ok := res.Lookup(r.docID)
	if !ok {
		return nil, fmt.Errorf("resolve placeholder %s: %w", r.docID, ErrUnknownDocument)
	}
	return d, nil
}

// Walk visits d and every document nested beneath it, depth first. Placeholders are
// resolved with res; unresolvable placeholders are skipped. fn returning false stops
// descent below that document.
func Walk(d *Document, res Resolver, fn func(*Document) bool) {
	seen := map[string]bool{}
	var walk func(*Document)
	walk = func(x *Document) {
		if x == nil || seen[x.ID()] {
			return
		}
		seen[x.ID()] = true
		if !fn(x) {
			return
		}
		for _, ch := range x.Children() {
			nd, err := ch.Resolve(res)
			if err != nil {
				continue
			}
			walk(nd)
		}
	}
	walk(d)
}
