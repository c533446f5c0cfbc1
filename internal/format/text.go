package format

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"gridform/internal/grid"
)

// TextWriter is implemented by payloads that have a human-readable rendering.
type TextWriter interface {
	WriteText(w io.Writer, st Styles) error
}

// Styles carries the lipgloss renderer and styles used by text output.
type Styles struct {
	r *lipgloss.Renderer

	Title  lipgloss.Style
	Header lipgloss.Style
	Muted  lipgloss.Style
	Cell   lipgloss.Style
	Marker lipgloss.Style
}

// MaxCellWidth is the widest a grid cell label may render.
const MaxCellWidth = 18

// NewStyles builds styles for w. Colors are dropped when noColor is set, when
// NO_COLOR is present, or when termenv detects no color support for w.
func NewStyles(w io.Writer, noColor bool) Styles {
	r := lipgloss.NewRenderer(w, termenv.WithColorCache(true))
	if noColor || strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		r.SetColorProfile(termenv.Ascii)
	}
	return Styles{
		r:      r,
		Title:  r.NewStyle().Bold(true),
		Header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Muted:  r.NewStyle().Faint(true),
		Cell:   r.NewStyle().Padding(0, 1),
		Marker: r.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

// WriteText renders v if it implements TextWriter.
func WriteText(w io.Writer, v any, noColor bool) error {
	tw, ok := v.(TextWriter)
	if !ok {
		return fmt.Errorf("text output is not available for %T", v)
	}
	return tw.WriteText(w, NewStyles(w, noColor))
}

// Truncate shortens s to at most width terminal cells.
func Truncate(s string, width int) string {
	if xansi.StringWidth(s) <= width {
		return s
	}
	return xansi.Truncate(s, width, "…")
}

// DocumentTable draws a snapshot as a grid: one table row per document row, a header
// with the column specs and a leading column with the row specs. Components show
// their id (and span, when larger than one cell); covered cells show a marker.
func DocumentTable(s grid.Snapshot, st Styles) string {
	cols, rows := len(s.Cols), len(s.Rows)
	labels := make([][]string, rows)
	for r := range labels {
		labels[r] = make([]string, cols)
	}
	for _, c := range s.Cells {
		k := c.Constraints
		label := st.Muted.Render("·")
		if c.Kind != grid.KindEmpty {
			label = c.Component
			if c.Kind == grid.KindForm {
				label = "[" + label + "]"
			}
			if k.ColSpan > 1 || k.RowSpan > 1 {
				label = fmt.Sprintf("%s %dx%d", label, k.ColSpan, k.RowSpan)
			}
			label = Truncate(label, MaxCellWidth)
		}
		for r := k.Row; r < k.Row+k.RowSpan && r <= rows; r++ {
			for cc := k.Col; cc < k.Col+k.ColSpan && cc <= cols; cc++ {
				if r == k.Row && cc == k.Col {
					labels[r-1][cc-1] = label
				} else {
					labels[r-1][cc-1] = st.Marker.Render("↳")
				}
			}
		}
	}

	headers := []string{""}
	for i, sp := range s.Cols {
		headers = append(headers, Truncate(fmt.Sprintf("%d %s%s", i+1, sp, groupSuffix(s.ColGroups, i+1)), MaxCellWidth))
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(st.Muted).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow || col == 0 {
				return st.Header.Padding(0, 1)
			}
			return st.Cell
		})
	for r := 0; r < rows; r++ {
		line := []string{Truncate(fmt.Sprintf("%d %s%s", r+1, s.Rows[r], groupSuffix(s.RowGroups, r+1)), MaxCellWidth)}
		line = append(line, labels[r]...)
		t.Row(line...)
	}

	title := st.Title.Render(s.ID)
	if s.ReadOnly {
		title += " " + st.Muted.Render("(read-only)")
	}
	if len(s.Nested) > 0 {
		nested := append([]string(nil), s.Nested...)
		sort.Strings(nested)
		title += " " + st.Muted.Render("nests "+strings.Join(nested, ", "))
	}
	return title + "\n" + t.Render()
}

func groupSuffix(groups map[int]int, index int) string {
	if g := groups[index]; g != 0 {
		return fmt.Sprintf(" g%d", g)
	}
	return ""
}
