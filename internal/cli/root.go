package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gridform/internal/format"
	"gridform/internal/logging"
	"gridform/internal/store"
)

type App struct {
	Format       string
	PrettyJSON   bool
	NoColor      bool
	LogLevel     string
	HistoryLimit int
	JournalDir   string

	Config store.Config
	log    *zap.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{log: zap.NewNop()}

	cmd := &cobra.Command{
		Use:          "gridform",
		Short:        "Run grid form editing scenarios with multi-view undo/redo",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Run a scenario and print the documents as tables
  gridform run form.yaml --format text

  # Keep a journal of every dispatched edit
  gridform run form.yaml --journal
  gridform journal list --doc form

  # Normalize placement specs
  gridform spec "left:bounded(40pt):grow(0.5)" 20px
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.configure(cmd)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		_ = app.log.Sync()
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.Format, "format", "", "Output format (json|edn|text; default from config, else json)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().BoolVar(&app.NoColor, "no-color", envOr("NO_COLOR", "") != "", "Disable colors in text output")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level on stderr (debug|info|warn|error)")
	cmd.PersistentFlags().IntVar(&app.HistoryLimit, "history-limit", 0, "Undo entries kept per view (0 = config or built-in default)")
	cmd.PersistentFlags().StringVar(&app.JournalDir, "journal-dir", "", "Journal directory (default: journalDir from config, else ~/.gridform/journal)")

	cmd.AddCommand(newRunCmd(app))
	cmd.AddCommand(newSpecCmd(app))
	cmd.AddCommand(newJournalCmd(app))
	cmd.AddCommand(newPublishCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

// configure layers config file, environment and flags, in that order of precedence
// from lowest to highest, and builds the logger.
func (app *App) configure(cmd *cobra.Command) error {
	cfg, err := store.LoadConfig()
	if err != nil {
		return writeErr(cmd, fmt.Errorf("load config: %w", err))
	}
	app.Config = cfg.WithEnv()

	flags := cmd.Flags()
	if !flags.Changed("format") {
		app.Format = app.Config.Format
	}
	if app.Format == "" {
		app.Format = "json"
	}
	if !flags.Changed("log-level") {
		app.LogLevel = app.Config.LogLevel
	}
	if !flags.Changed("history-limit") {
		app.HistoryLimit = app.Config.HistoryLimit
	}
	if !flags.Changed("journal-dir") {
		app.JournalDir = app.Config.JournalDir
	}

	log, err := logging.New(app.LogLevel)
	if err != nil {
		return writeErr(cmd, err)
	}
	app.log = log
	return nil
}

func (app *App) journalDir() (string, error) {
	cfg := app.Config
	cfg.JournalDir = app.JournalDir
	return cfg.JournalPath()
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// writeOut prints v wrapped in the {"data": ...} envelope, or as text when the
// payload has a text rendering and text output was asked for.
func writeOut(cmd *cobra.Command, app *App, v any) error {
	if app.Format == "text" {
		return format.WriteText(cmd.OutOrStdout(), v, app.NoColor)
	}
	return format.Write(cmd.OutOrStdout(), map[string]any{"data": v}, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
