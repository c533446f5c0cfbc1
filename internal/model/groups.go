package model

import "sort"

// GroupAssignment maps a 1-based row or column index to its resize group.
// Group id 0 means ungrouped and is never stored.
type GroupAssignment map[int]int

func (g GroupAssignment) Of(index int) int {
	return g[index]
}

func (g GroupAssignment) Clone() GroupAssignment {
	out := make(GroupAssignment, len(g))
	for k, v := range g {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

// With returns a copy where index is assigned to id. id 0 clears the assignment.
func (g GroupAssignment) With(index, id int) GroupAssignment {
	out := g.Clone()
	delete(out, index)
	if id != 0 {
		out[index] = id
	}
	return out
}

// Shift returns a copy where every index >= from is moved by delta.
// Callers shifting down must clear the index being vacated first.
func (g GroupAssignment) Shift(from, delta int) GroupAssignment {
	out := make(GroupAssignment, len(g))
	for k, v := range g {
		if v == 0 {
			continue
		}
		if k >= from {
			k += delta
		}
		out[k] = v
	}
	return out
}

// Indexes returns the assigned indexes in ascending order.
func (g GroupAssignment) Indexes() []int {
	out := make([]int, 0, len(g))
	for k, v := range g {
		if v != 0 {
			out = append(out, k)
		}
	}
	sort.Ints(out)
	return out
}

// Members returns the indexes assigned to id, ascending.
func (g GroupAssignment) Members(id int) []int {
	var out []int
	for _, k := range g.Indexes() {
		if g[k] == id {
			out = append(out, k)
		}
	}
	return out
}
