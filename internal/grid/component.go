package grid

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

const (
	KindEmpty = "empty"
	KindForm  = "form"
)

// Component is anything that can occupy a cell.
type Component interface {
	ID() string
	Kind() string
}

// PropertyHolder is a component with named, editable properties.
type PropertyHolder interface {
	Component
	Property(name string) (any, bool)
	SetProperty(name string, v any)
}

// Empty is the placeholder occupying cells without real content.
type Empty struct {
	id string
}

func NewEmpty(id string) *Empty { return &Empty{id: id} }

func (e *Empty) ID() string   { return e.id }
func (e *Empty) Kind() string { return KindEmpty }

// IsEmpty reports whether c is an empty placeholder. A nil component counts as empty.
func IsEmpty(c Component) bool {
	if c == nil {
		return true
	}
	_, ok := c.(*Empty)
	return ok
}

// Bean is a real component: a class name plus a bag of properties.
type Bean struct {
	id    string
	class string
	props map[string]any
}

func NewBean(id, class string) *Bean {
	return &Bean{id: id, class: class, props: map[string]any{}}
}

func (b *Bean) ID() string    { return b.id }
func (b *Bean) Kind() string  { return b.class }
func (b *Bean) Class() string { return b.class }

func (b *Bean) Property(name string) (any, bool) {
	v, ok := b.props[name]
	return v, ok
}

// SetProperty assigns v to name. A nil value removes the property.
func (b *Bean) SetProperty(name string, v any) {
	if v == nil {
		delete(b.props, name)
		return
	}
	b.props[name] = v
}

func (b *Bean) PropertyNames() []string {
	out := make([]string, 0, len(b.props))
	for k := range b.props {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ComponentSource produces default components for new cells. kind is KindEmpty
// or a bean class name.
type ComponentSource interface {
	NewComponent(kind string) (Component, error)
}

// SequenceSource hands out components with ids of the form <prefix>-<n>.
type SequenceSource struct {
	mu     sync.Mutex
	prefix string
	next   map[string]int
}

func NewSequenceSource(prefix string) *SequenceSource {
	return &SequenceSource{prefix: strings.TrimSpace(prefix), next: map[string]int{}}
}

func (s *SequenceSource) NewComponent(kind string) (Component, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return nil, fmt.Errorf("component source: missing kind")
	}
	if kind == KindForm {
		return nil, fmt.Errorf("component source: forms are embedded, not created")
	}
	s.mu.Lock()
	s.next[kind]++
	n := s.next[kind]
	s.mu.Unlock()

	id := fmt.Sprintf("%s-%d", strings.ToLower(shortClass(kind)), n)
	if s.prefix != "" {
		id = s.prefix + "." + id
	}
	if kind == KindEmpty {
		return NewEmpty(id), nil
	}
	return NewBean(id, kind), nil
}

// NewEmptyFrom asks src for an empty placeholder.
func NewEmptyFrom(src ComponentSource) (Component, error) {
	c, err := src.NewComponent(KindEmpty)
	if err != nil {
		return nil, err
	}
	if !IsEmpty(c) {
		return nil, fmt.Errorf("component source returned %s for an empty cell", c.Kind())
	}
	return c, nil
}

func shortClass(class string) string {
	if i := strings.LastIndexAny(class, "./"); i >= 0 && i < len(class)-1 {
		return class[i+1:]
	}
	return class
}
