// Package cli wires the expertedit commands. Running the binary with no
// subcommand starts the interactive TUI; the subcommands cover the scriptable
// paths (pull, push, status, discard, history) plus the built-in docs.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/config"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/expert"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/model"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/tui"
)

type App struct {
	ConfigPath string
	StateDir   string
	DebugLog   string

	closeLog func()
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "expertedit",
		Short:        "Terminal editor for CXone Expert custom site CSS/HTML",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive editor
  expertedit

  # Scriptable commands
  expertedit pull --app css --dir ./backup
  expertedit push --app css --item all styles.css
  expertedit status --json

  # Inspect the local save journal
  expertedit history list
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if app.closeLog != nil {
			app.closeLog()
		}
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("EXPERTEDIT_CONFIG_PATH", ""), "Path to config file (default: .expertedit.yaml in cwd or home)")
	cmd.PersistentFlags().StringVar(&app.StateDir, "state-dir", envOr("EXPERTEDIT_STATE_DIR", ""), "Path to local state dir (overrides state.dir)")
	cmd.PersistentFlags().StringVar(&app.DebugLog, "debug-log", envOr("EXPERTEDIT_DEBUG_LOG", ""), "Append debug logs to this file")

	cmd.AddCommand(newPullCmd(app))
	cmd.AddCommand(newPushCmd(app))
	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newDiscardCmd(app))
	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

func runTUI(app *App) error {
	cfg, log, err := loadConfig(app)
	if err != nil {
		return err
	}
	return tui.Run(cfg, log)
}

// loadConfig resolves the config file plus the persistent-flag overrides and
// opens the debug log when one was requested. Errors here are misconfiguration;
// commands report them and stop.
func loadConfig(app *App) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(app.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if app.StateDir != "" {
		cfg.StateDir = app.StateDir
	}

	log := slog.New(slog.DiscardHandler)
	if app.DebugLog != "" {
		f, err := os.OpenFile(app.DebugLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open debug log: %w", err)
		}
		log = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
		app.closeLog = func() { _ = f.Close() }
	}
	return cfg, log, nil
}

func newExpertClient(cfg *config.Config, log *slog.Logger) (*expert.Client, error) {
	if err := cfg.RequireSite(); err != nil {
		return nil, err
	}
	return expert.NewClient(expert.Options{
		BaseURL:       cfg.Site.BaseURL,
		Cookie:        cfg.Site.Cookie,
		UserAgent:     cfg.Site.UserAgent,
		FetchTimeout:  cfg.Tuning.LoadTimeout,
		SubmitTimeout: cfg.Tuning.SaveTimeout,
	}, log)
}

// appSpecs returns the apps a command should operate on. An empty id means
// both; anything else must name one of the two built-in apps.
func appSpecs(cfg *config.Config, id string) ([]model.AppSpec, error) {
	css := model.DefaultCSSApp(cfg.Site.CSSPath)
	html := model.DefaultHTMLApp(cfg.Site.HTMLPath)
	switch id {
	case "":
		return []model.AppSpec{css, html}, nil
	case string(model.AppCSS):
		return []model.AppSpec{css}, nil
	case string(model.AppHTML):
		return []model.AppSpec{html}, nil
	default:
		return nil, fmt.Errorf("unknown app %q (want css or html)", id)
	}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
