package grid

import "gridform/internal/model"

// CellSnapshot is one placement with the component reduced to comparable values.
// Empties carry no id so that equal layouts compare equal regardless of which
// empty instances fill them.
type CellSnapshot struct {
	Constraints Constraints    `json:"constraints"`
	Kind        string         `json:"kind"`
	Component   string         `json:"component,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
}

// Snapshot is a value copy of a document's structure, suitable for diffing and output.
type Snapshot struct {
	ID        string         `json:"id"`
	ReadOnly  bool           `json:"readOnly,omitempty"`
	Cols      []model.Spec   `json:"cols"`
	Rows      []model.Spec   `json:"rows"`
	ColGroups map[int]int    `json:"colGroups,omitempty"`
	RowGroups map[int]int    `json:"rowGroups,omitempty"`
	Cells     []CellSnapshot `json:"cells"`
	Nested    []string       `json:"nested,omitempty"`
}

func (d *Document) Snapshot() Snapshot {
	s := Snapshot{
		ID:       d.id,
		ReadOnly: d.readOnly,
		Cols:     d.Specs(model.AxisColumn),
		Rows:     d.Specs(model.AxisRow),
	}
	if len(d.colGroups) > 0 {
		s.ColGroups = map[int]int(d.colGroups.Clone())
	}
	if len(d.rowGroups) > 0 {
		s.RowGroups = map[int]int(d.rowGroups.Clone())
	}
	for _, p := range d.Components() {
		cs := CellSnapshot{Constraints: p.Constraints, Kind: p.Component.Kind()}
		if !IsEmpty(p.Component) {
			cs.Component = p.Component.ID()
		}
		if b, ok := p.Component.(*Bean); ok {
			for _, k := range b.PropertyNames() {
				if cs.Properties == nil {
					cs.Properties = map[string]any{}
				}
				cs.Properties[k], _ = b.Property(k)
			}
		}
		if r, ok := p.Component.(*Ref); ok {
			s.Nested = append(s.Nested, r.DocumentID())
		}
		s.Cells = append(s.Cells, cs)
	}
	return s
}
