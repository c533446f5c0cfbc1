package grid

import (
	"fmt"

	"gridform/internal/model"
)

type Cell struct {
	Col int `json:"col" yaml:"col"`
	Row int `json:"row" yaml:"row"`
}

func (c Cell) String() string { return fmt.Sprintf("(%d,%d)", c.Col, c.Row) }

// Constraints bind a component to a primary cell and the number of tracks it spans.
// Empty alignments defer to the row/column spec.
type Constraints struct {
	Col     int             `json:"col" yaml:"col"`
	Row     int             `json:"row" yaml:"row"`
	ColSpan int             `json:"colSpan" yaml:"colSpan"`
	RowSpan int             `json:"rowSpan" yaml:"rowSpan"`
	HAlign  model.Alignment `json:"hAlign,omitempty" yaml:"hAlign,omitempty"`
	VAlign  model.Alignment `json:"vAlign,omitempty" yaml:"vAlign,omitempty"`
}

func At(col, row int) Constraints {
	return Constraints{Col: col, Row: row, ColSpan: 1, RowSpan: 1}
}

func (c Constraints) Spanning(colSpan, rowSpan int) Constraints {
	c.ColSpan, c.RowSpan = colSpan, rowSpan
	return c
}

func (c Constraints) Primary() Cell { return Cell{Col: c.Col, Row: c.Row} }

func (c Constraints) String() string {
	return fmt.Sprintf("%d,%d %dx%d", c.Col, c.Row, c.ColSpan, c.RowSpan)
}

func (c Constraints) Start(a model.Axis) int {
	if a == model.AxisRow {
		return c.Row
	}
	return c.Col
}

func (c Constraints) Span(a model.Axis) int {
	if a == model.AxisRow {
		return c.RowSpan
	}
	return c.ColSpan
}

// End is the last track covered along a.
func (c Constraints) End(a model.Axis) int { return c.Start(a) + c.Span(a) - 1 }

func (c Constraints) with(a model.Axis, start, span int) Constraints {
	if a == model.AxisRow {
		c.Row, c.RowSpan = start, span
	} else {
		c.Col, c.ColSpan = start, span
	}
	return c
}

func (c Constraints) Covers(col, row int) bool {
	return col >= c.Col && col < c.Col+c.ColSpan && row >= c.Row && row < c.Row+c.RowSpan
}

func (c Constraints) Intersects(o Constraints) bool {
	return c.Col < o.Col+o.ColSpan && o.Col < c.Col+c.ColSpan &&
		c.Row < o.Row+o.RowSpan && o.Row < c.Row+c.RowSpan
}

// CrossesTrack reports whether the constraints occupy track index along a.
func (c Constraints) CrossesTrack(a model.Axis, index int) bool {
	return index >= c.Start(a) && index <= c.End(a)
}

func (c Constraints) Cells() []Cell {
	out := make([]Cell, 0, c.ColSpan*c.RowSpan)
	for r := c.Row; r < c.Row+c.RowSpan; r++ {
		for col := c.Col; col < c.Col+c.ColSpan; col++ {
			out = append(out, Cell{Col: col, Row: r})
		}
	}
	return out
}

func (c Constraints) validIn(cols, rows int) error {
	if c.ColSpan < 1 || c.RowSpan < 1 {
		return fmt.Errorf("%w: span %dx%d", ErrBadConstraints, c.ColSpan, c.RowSpan)
	}
	if c.Col < 1 || c.Row < 1 || c.Col+c.ColSpan-1 > cols || c.Row+c.RowSpan-1 > rows {
		return fmt.Errorf("%w: %s outside %dx%d", ErrOutOfRange, c, cols, rows)
	}
	return nil
}
