package scenario

import (
	"fmt"
	"io"
	"strings"

	"gridform/internal/format"
	"gridform/internal/grid"
	"gridform/internal/store"
)

// Result is the state after a run.
type Result struct {
	Name      string          `json:"name,omitempty"`
	RunID     string          `json:"runId"`
	Documents []grid.Snapshot `json:"documents"`
	Views     []ViewState     `json:"views"`
	Steps     []StepOutcome   `json:"steps"`
	Events    []store.Event   `json:"events"`
}

// ViewState is one view's history. Entries before Cursor can be undone, the rest
// redone.
type ViewState struct {
	ID       string   `json:"id"`
	Document string   `json:"document"`
	Home     bool     `json:"home"`
	Cursor   int      `json:"cursor"`
	Entries  []string `json:"entries"`
}

type StepOutcome struct {
	Index    int    `json:"index"`
	Op       string `json:"op"`
	View     string `json:"view,omitempty"`
	Describe string `json:"describe,omitempty"`
	Error    string `json:"error,omitempty"`
	// Expected marks a failure the scenario asked for.
	Expected bool `json:"expected,omitempty"`
}

// Snapshot returns the final state of document id.
func (r *Result) Snapshot(id string) (grid.Snapshot, bool) {
	for _, s := range r.Documents {
		if s.ID == id {
			return s, true
		}
	}
	return grid.Snapshot{}, false
}

func (r *Result) View(id string) (ViewState, bool) {
	for _, v := range r.Views {
		if v.ID == id {
			return v, true
		}
	}
	return ViewState{}, false
}

func (r *Result) WriteText(w io.Writer, st format.Styles) error {
	var b strings.Builder
	title := r.Name
	if title == "" {
		title = "scenario"
	}
	fmt.Fprintf(&b, "%s %s\n\n", st.Title.Render(title), st.Muted.Render(r.RunID))

	for _, s := range r.Documents {
		b.WriteString(format.DocumentTable(s, st))
		b.WriteString("\n\n")
	}

	for _, v := range r.Views {
		role := "placeholder"
		if v.Home {
			role = "home"
		}
		fmt.Fprintf(&b, "%s %s\n", st.Header.Render("view "+v.ID), st.Muted.Render(fmt.Sprintf("%s, %s, cursor %d/%d", v.Document, role, v.Cursor, len(v.Entries))))
		if len(v.Entries) == 0 {
			b.WriteString(st.Muted.Render("  (empty history)") + "\n")
		}
		for i, e := range v.Entries {
			mark := "  "
			if i == v.Cursor-1 {
				mark = st.Marker.Render("▸ ")
			}
			line := fmt.Sprintf("%s%d. %s", mark, i+1, e)
			if i >= v.Cursor {
				line = st.Muted.Render(line)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	if len(r.Steps) > 0 {
		b.WriteString(st.Header.Render("steps") + "\n")
	}
	for _, s := range r.Steps {
		status := "ok"
		switch {
		case s.Expected:
			status = "failed as expected"
		case s.Error != "":
			status = "failed"
		}
		line := fmt.Sprintf("  %d. %-13s %-6s %s", s.Index, s.Op, s.View, s.Describe)
		fmt.Fprintf(&b, "%s %s\n", strings.TrimRight(line, " "), st.Muted.Render("["+status+"]"))
		if s.Error != "" {
			b.WriteString(st.Muted.Render("     "+s.Error) + "\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
