package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"gridform/internal/format"
	"gridform/internal/store"
)

// eventList renders journal events one per line.
type eventList []store.Event

func (l eventList) WriteText(w io.Writer, st format.Styles) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, st.Muted.Render("(no events)"))
		return err
	}
	var b strings.Builder
	for _, e := range l {
		line := fmt.Sprintf("%s %s #%d %-10s %-8s %s",
			st.Muted.Render(e.IssuedAt.Format("2006-01-02 15:04:05")),
			e.RunID, e.Seq, e.Type, e.ViewID, e.Describe)
		if e.Partial {
			line += " " + st.Marker.Render("(partial)")
		}
		b.WriteString(line + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func newJournalCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the edit journal",
	}

	var (
		docID string
		runID string
		limit int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List journaled events (oldest-first)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJournal(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer func() { _ = j.Close() }()

			evs, err := j.List(cmd.Context(), store.Query{DocumentID: docID, RunID: runID, Limit: limit})
			if err != nil {
				return writeErr(cmd, err)
			}
			if evs == nil {
				evs = []store.Event{}
			}
			return writeOut(cmd, app, eventList(evs))
		},
	}
	listCmd.Flags().StringVar(&docID, "doc", "", "Only events touching this document")
	listCmd.Flags().StringVar(&runID, "run", "", "Only events of this run")
	listCmd.Flags().IntVar(&limit, "limit", 200, "Max events to return, most recent kept (0 = all)")

	cmd.AddCommand(listCmd)
	return cmd
}
