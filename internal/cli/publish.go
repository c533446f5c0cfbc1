package cli

import (
	"github.com/spf13/cobra"

	"gridform/internal/publish"
	"gridform/internal/scenario"
)

func newPublishCmd(app *App) *cobra.Command {
	var (
		to        string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "publish <scenario.yaml>",
		Short: "Run a scenario and write the result as markdown pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := scenario.Load(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := scenario.Run(cmd.Context(), f,
				scenario.WithLogger(app.log),
				scenario.WithHistoryLimit(app.HistoryLimit),
			)
			if err != nil {
				return writeErr(cmd, err)
			}
			out, err := publish.WriteResultPages(res, to, publish.WriteOptions{Overwrite: overwrite})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, out)
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Output directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing files")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
