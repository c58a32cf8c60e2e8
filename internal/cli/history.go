package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/history"
)

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the local save journal",
	}
	cmd.AddCommand(newHistoryListCmd(app))
	cmd.AddCommand(newHistoryShowCmd(app))
	return cmd
}

type saveRow struct {
	ID      int64  `json:"id"`
	App     string `json:"app"`
	Item    string `json:"item"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
	Bytes   int64  `json:"bytes"`
	SHA256  string `json:"sha256"`
	SavedAt string `json:"savedAt"`
}

func newHistoryListCmd(app *App) *cobra.Command {
	var appID string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journaled saves, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(app)
			if err != nil {
				return err
			}
			j, err := history.Open(cmd.Context(), cfg.StateScopeDir())
			if err != nil {
				return err
			}
			defer j.Close()

			saves, err := j.List(cmd.Context(), appID, limit)
			if err != nil {
				return err
			}

			if asJSON {
				rows := make([]saveRow, 0, len(saves))
				for _, s := range saves {
					rows = append(rows, saveRow{
						ID:      s.ID,
						App:     s.App,
						Item:    s.Item,
						Outcome: s.Outcome,
						Detail:  s.Detail,
						Bytes:   s.Bytes,
						SHA256:  s.SHA256,
						SavedAt: s.SavedAt.UTC().Format(time.RFC3339),
					})
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			if len(saves) == 0 {
				_, _ = color.New(color.Faint).Fprintln(cmd.OutOrStdout(), "no journaled saves")
				return nil
			}
			bold := color.New(color.Bold)
			faint := color.New(color.Faint)
			saved := color.New(color.FgGreen)
			failed := color.New(color.FgRed)
			for _, s := range saves {
				_, _ = faint.Fprintf(cmd.OutOrStdout(), "%-4d ", s.ID)
				_, _ = bold.Fprintf(cmd.OutOrStdout(), "%s/%s ", s.App, s.Item)
				oc := saved
				if s.Outcome == history.OutcomeFailed {
					oc = failed
				}
				_, _ = oc.Fprint(cmd.OutOrStdout(), s.Outcome)
				_, _ = faint.Fprintf(cmd.OutOrStdout(), "  %s  %d bytes  %.12s\n",
					s.SavedAt.Local().Format("2006-01-02 15:04:05"), s.Bytes, s.SHA256)
				if s.Detail != "" {
					_, _ = faint.Fprintf(cmd.OutOrStdout(), "     %s\n", s.Detail)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&appID, "app", "", "Only this app (css|html)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print machine-readable JSON")
	return cmd
}

// newHistoryShowCmd prints a journaled save's exact transmitted content to
// stdout, so `history show 3 > restore.css` round-trips a past save.
func newHistoryShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the content of one journaled save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid save id %q", args[0])
			}
			cfg, _, err := loadConfig(app)
			if err != nil {
				return err
			}
			j, err := history.Open(cmd.Context(), cfg.StateScopeDir())
			if err != nil {
				return err
			}
			defer j.Close()

			_, content, err := j.Show(cmd.Context(), id)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), content)
			return err
		},
	}
	return cmd
}
