package cli

import (
	"encoding/json"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/store"
)

type itemStatus struct {
	App   string `json:"app"`
	Item  string `json:"item"`
	Dirty bool   `json:"dirty"`
	Bytes int    `json:"bytes"`
}

// newStatusCmd reports what edit state is persisted locally, without talking
// to the server. Only items the snapshot recorded are listed; an item that
// never made it to disk has nothing to report.
func newStatusCmd(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show locally persisted edit state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(app)
			if err != nil {
				return err
			}
			specs, _ := appSpecs(cfg, "")
			st := store.Open(cfg.StateScopeDir(), log)

			var rows []itemStatus
			for _, spec := range specs {
				snap := st.LoadAppState(spec.ID)
				if snap == nil {
					continue
				}
				for _, it := range spec.Items {
					content, ok := snap.Content[it.ID]
					if !ok {
						continue
					}
					rows = append(rows, itemStatus{
						App:   string(spec.ID),
						Item:  it.ID,
						Dirty: snap.IsDirty[it.ID],
						Bytes: len(content),
					})
				}
			}

			if asJSON {
				if rows == nil {
					rows = []itemStatus{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			if len(rows) == 0 {
				_, _ = color.New(color.Faint).Fprintln(cmd.OutOrStdout(), "no local edit state")
				return nil
			}
			bold := color.New(color.Bold)
			dirty := color.New(color.FgYellow)
			faint := color.New(color.Faint)
			for _, r := range rows {
				if r.Dirty {
					_, _ = dirty.Fprint(cmd.OutOrStdout(), "* ")
				} else {
					_, _ = faint.Fprint(cmd.OutOrStdout(), "  ")
				}
				_, _ = bold.Fprintf(cmd.OutOrStdout(), "%s/%s", r.App, r.Item)
				_, _ = faint.Fprintf(cmd.OutOrStdout(), "  %d bytes\n", r.Bytes)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print machine-readable JSON")
	return cmd
}
