package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	session "github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/app"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/formatter"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/history"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/toast"
)

// newPushCmd saves one file's content to the server through the same
// orchestrator the TUI uses, so a scripted push gets the full treatment:
// fresh token, formatter, field isolation, journal entry. It deliberately
// runs without a snapshot store; push must not disturb in-progress TUI edits.
func newPushCmd(app *App) *cobra.Command {
	var appID string
	var itemID string

	cmd := &cobra.Command{
		Use:   "push FILE",
		Short: "Save one file's content to the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(app)
			if err != nil {
				return err
			}
			specs, err := appSpecs(cfg, appID)
			if err != nil {
				return err
			}
			if len(specs) != 1 {
				return fmt.Errorf("push needs exactly one app, got %q", appID)
			}
			spec := specs[0]
			if _, ok := spec.Item(itemID); !ok {
				return fmt.Errorf("unknown item %q in app %s", itemID, spec.ID)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			client, err := newExpertClient(cfg, log)
			if err != nil {
				return err
			}
			// A dead journal loses history, not the push itself.
			journal, err := history.Open(cmd.Context(), cfg.StateScopeDir())
			if err != nil {
				log.Warn("history journal unavailable", "err", err)
				journal = nil
			} else {
				defer journal.Close()
			}

			sess := session.NewSession(session.Config{
				Spec:      spec,
				Client:    client,
				Formatter: formatter.New(cfg.Formatter),
				Journal:   journal,
				Notify:    cliNotify(cmd.OutOrStdout()),
				Log:       log,
			})
			defer sess.Close()

			if _, err := sess.Load(cmd.Context()); err != nil {
				return fmt.Errorf("load %s: %w", spec.ID, err)
			}
			sess.SetContent(itemID, string(data))
			return sess.SaveOne(cmd.Context(), itemID)
		},
	}

	cmd.Flags().StringVar(&appID, "app", "", "App to push into (css|html)")
	cmd.Flags().StringVar(&itemID, "item", "", "Item id within the app (e.g. all, head)")
	_ = cmd.MarkFlagRequired("app")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

// cliNotify adapts session notifications to colored terminal lines.
func cliNotify(out io.Writer) session.NotifyFunc {
	styles := map[toast.Kind]*color.Color{
		toast.KindSuccess: color.New(color.FgGreen),
		toast.KindWarning: color.New(color.FgYellow),
		toast.KindError:   color.New(color.FgRed),
		toast.KindInfo:    color.New(color.Faint),
	}
	return func(kind toast.Kind, text string) {
		c := styles[kind]
		if c == nil {
			c = styles[toast.KindInfo]
		}
		_, _ = c.Fprintln(out, text)
	}
}
