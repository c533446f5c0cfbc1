package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"gridform/internal/format"
	"gridform/internal/model"
)

type specResult struct {
	Input      string `json:"input"`
	Normalized string `json:"normalized"`
	model.Spec
}

type specList []specResult

func (l specList) WriteText(w io.Writer, st format.Styles) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(st.Muted).
		Headers("input", "normalized", "size", "align", "grow").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.Header.Padding(0, 1)
			}
			return st.Cell
		})
	for _, s := range l {
		t.Row(s.Input, s.Normalized, string(s.SizeType), string(s.Alignment), fmt.Sprintf("%g", s.ResizeWeight))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func newSpecCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "spec <encoded>...",
		Short: "Parse placement specs and print their normalized form",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := make(specList, 0, len(args))
			for _, in := range args {
				s, err := model.ParseSpec(in)
				if err != nil {
					return writeErr(cmd, fmt.Errorf("%q: %w", in, err))
				}
				out = append(out, specResult{Input: in, Normalized: s.String(), Spec: s})
			}
			return writeOut(cmd, app, out)
		},
	}
}
