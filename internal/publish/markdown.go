package publish

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gridform/internal/grid"
	"gridform/internal/scenario"
)

// RenderIndexMarkdown summarizes a run: its documents, every view's history and the
// outcome of each step.
func RenderIndexMarkdown(res *scenario.Result) (string, error) {
	if res == nil {
		return "", fmt.Errorf("missing result")
	}
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	title := strings.TrimSpace(res.Name)
	if title == "" {
		title = "Scenario"
	}
	writeLn("# " + title)
	writeLn("")
	writeLn("- Run: " + res.RunID)
	writeLn(fmt.Sprintf("- Steps: %d", len(res.Steps)))
	writeLn(fmt.Sprintf("- Events: %d", len(res.Events)))
	writeLn("")

	writeLn("## Documents")
	writeLn("")
	for _, d := range res.Documents {
		writeLn(fmt.Sprintf("- [%s](documents/%s.md) (%d×%d)", d.ID, d.ID, len(d.Cols), len(d.Rows)))
	}
	writeLn("")

	writeLn("## Views")
	for _, v := range res.Views {
		writeLn("")
		role := "placeholder"
		if v.Home {
			role = "home"
		}
		writeLn(fmt.Sprintf("### %s", v.ID))
		writeLn("")
		writeLn(fmt.Sprintf("Shows `%s` (%s), cursor %d of %d.", v.Document, role, v.Cursor, len(v.Entries)))
		if len(v.Entries) == 0 {
			continue
		}
		writeLn("")
		for i, e := range v.Entries {
			box := "[x]"
			if i >= v.Cursor {
				box = "[ ]"
			}
			writeLn(fmt.Sprintf("- %s %s", box, e))
		}
	}
	writeLn("")

	if len(res.Steps) > 0 {
		writeLn("## Steps")
		writeLn("")
		writeLn("| # | op | view | edit | result |")
		writeLn("|---|----|------|------|--------|")
		for _, s := range res.Steps {
			result := "ok"
			switch {
			case s.Expected:
				result = "failed as expected: " + s.Error
			case s.Error != "":
				result = "failed: " + s.Error
			}
			writeLn(fmt.Sprintf("| %d | %s | %s | %s | %s |", s.Index, s.Op, s.View, cell(s.Describe), cell(result)))
		}
	}
	return buf.String(), nil
}

// RenderDocumentMarkdown draws one document as a markdown table followed by its
// components with their properties.
func RenderDocumentMarkdown(s grid.Snapshot) string {
	var buf bytes.Buffer
	writeLn := func(line string) {
		buf.WriteString(line)
		buf.WriteString("\n")
	}

	writeLn("# " + s.ID)
	writeLn("")
	if s.ReadOnly {
		writeLn("Read-only.")
		writeLn("")
	}

	cols, rows := len(s.Cols), len(s.Rows)
	labels := make([][]string, rows)
	for r := range labels {
		labels[r] = make([]string, cols)
	}
	for _, c := range s.Cells {
		k := c.Constraints
		label := ""
		if c.Kind != grid.KindEmpty {
			label = "`" + c.Component + "`"
			if k.ColSpan > 1 || k.RowSpan > 1 {
				label += fmt.Sprintf(" %d×%d", k.ColSpan, k.RowSpan)
			}
		}
		for r := k.Row; r < k.Row+k.RowSpan && r <= rows; r++ {
			for cc := k.Col; cc < k.Col+k.ColSpan && cc <= cols; cc++ {
				if r == k.Row && cc == k.Col {
					labels[r-1][cc-1] = label
				} else {
					labels[r-1][cc-1] = "↳"
				}
			}
		}
	}

	header := []string{""}
	sep := []string{"---"}
	for i, sp := range s.Cols {
		header = append(header, fmt.Sprintf("%d `%s`%s", i+1, sp, groupNote(s.ColGroups, i+1)))
		sep = append(sep, "---")
	}
	writeLn("| " + strings.Join(header, " | ") + " |")
	writeLn("| " + strings.Join(sep, " | ") + " |")
	for r := 0; r < rows; r++ {
		line := []string{fmt.Sprintf("%d `%s`%s", r+1, s.Rows[r], groupNote(s.RowGroups, r+1))}
		line = append(line, labels[r]...)
		writeLn("| " + strings.Join(line, " | ") + " |")
	}

	var comps []grid.CellSnapshot
	for _, c := range s.Cells {
		if c.Kind != grid.KindEmpty {
			comps = append(comps, c)
		}
	}
	if len(comps) > 0 {
		writeLn("")
		writeLn("## Components")
		writeLn("")
		for _, c := range comps {
			line := fmt.Sprintf("- `%s` %s at %s", c.Component, c.Kind, c.Constraints)
			if c.Kind == grid.KindForm {
				line = fmt.Sprintf("- `%s` nested form at %s, see [%s](%s.md)", c.Component, c.Constraints, c.Component, c.Component)
			}
			writeLn(line)
			names := make([]string, 0, len(c.Properties))
			for k := range c.Properties {
				names = append(names, k)
			}
			sort.Strings(names)
			for _, k := range names {
				writeLn(fmt.Sprintf("  - %s: %v", k, c.Properties[k]))
			}
		}
	}
	return buf.String()
}

func groupNote(g map[int]int, index int) string {
	if id := g[index]; id != 0 {
		return fmt.Sprintf(" g%d", id)
	}
	return ""
}

// cell keeps a value on one table line.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
