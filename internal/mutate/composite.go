package mutate

import (
	"fmt"
	"strings"
)

// Composite applies an ordered list of edits as one unit: forward on Redo, reverse on
// Undo. A failing sub-edit stops the run; sub-edits already applied stay applied and
// only that prefix is inverted by a later Undo.
type Composite struct {
	name  string
	edits []Edit
	done  int

	// ran is set once any sub-edit took effect.
	ran bool
}

func NewComposite(name string, edits ...Edit) *Composite {
	return &Composite{name: strings.TrimSpace(name), edits: append([]Edit(nil), edits...)}
}

// Add appends an edit. It must be called before the composite first runs.
func (c *Composite) Add(e Edit) {
	c.edits = append(c.edits, e)
}

func (c *Composite) Edits() []Edit { return append([]Edit(nil), c.edits...) }

func (c *Composite) Len() int { return len(c.edits) }

func (c *Composite) Target() string {
	if len(c.edits) == 0 {
		return ""
	}
	return c.edits[0].Target()
}

func (c *Composite) Targets() []string {
	var out []string
	seen := map[string]bool{}
	for _, e := range c.edits {
		for _, t := range TargetsOf(e) {
			if t != "" && !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

func (c *Composite) Describe() string {
	name := c.name
	if name == "" {
		name = "composite"
	}
	return fmt.Sprintf("%s (%d edits)", name, len(c.edits))
}

func (c *Composite) CanRedo() bool { return !c.ran }

func (c *Composite) CanUndo() bool {
	if !c.ran {
		return false
	}
	for _, e := range c.edits[:c.done] {
		if !e.CanUndo() {
			return false
		}
	}
	return true
}

func (c *Composite) Redo() error {
	if c.ran {
		return fmt.Errorf("%s: %w", c.Describe(), ErrCannotRedo)
	}
	c.done = 0
	for _, e := range c.edits {
		if err := e.Redo(); err != nil {
			step := c.done + 1
			if !e.CanRedo() {
				c.done++
			}
			c.ran = c.done > 0
			return fmt.Errorf("%s: step %d: %w", c.Describe(), step, err)
		}
		c.done++
	}
	c.ran = true
	return nil
}

func (c *Composite) Undo() error {
	if !c.ran {
		return fmt.Errorf("%s: %w", c.Describe(), ErrCannotUndo)
	}
	for i := c.done - 1; i >= 0; i-- {
		if err := c.edits[i].Undo(); err != nil {
			c.done = i
			if !c.edits[i].CanRedo() {
				c.done = i + 1
			}
			c.ran = c.done > 0
			return fmt.Errorf("%s: undo step %d: %w", c.Describe(), i+1, err)
		}
	}
	c.done = 0
	c.ran = false
	return nil
}
