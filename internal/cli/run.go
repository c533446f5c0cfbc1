package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gridform/internal/scenario"
	"gridform/internal/store"
)

func newRunCmd(app *App) *cobra.Command {
	var (
		journal bool
		runID   string
	)

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario through the dispatcher and print the resulting state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := scenario.Load(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			opts := []scenario.Option{
				scenario.WithLogger(app.log),
				scenario.WithHistoryLimit(app.HistoryLimit),
				scenario.WithRunID(runID),
			}
			if journal {
				j, err := openJournal(cmd, app)
				if err != nil {
					return writeErr(cmd, err)
				}
				defer func() { _ = j.Close() }()
				opts = append(opts, scenario.WithJournal(j))
			}

			res, err := scenario.Run(cmd.Context(), f, opts...)
			if err != nil {
				return writeErr(cmd, err)
			}
			app.log.Info("scenario finished", zap.String("run", res.RunID), zap.Int("steps", len(res.Steps)), zap.Int("events", len(res.Events)))
			return writeOut(cmd, app, res)
		},
	}

	cmd.Flags().BoolVar(&journal, "journal", false, "Append every dispatched action to the edit journal")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run id recorded in the journal (default: generated)")

	return cmd
}

func openJournal(cmd *cobra.Command, app *App) (store.Journal, error) {
	dir, err := app.journalDir()
	if err != nil {
		return nil, err
	}
	backend := store.ResolveJournalBackend(dir, app.Config.JournalBackend)
	app.log.Debug("opening journal", zap.String("dir", dir), zap.String("backend", string(backend)))
	return store.OpenJournal(cmd.Context(), dir, backend)
}
