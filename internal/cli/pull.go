package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// newPullCmd fetches the server's current content and writes one file per
// item. Pull is a read-only export: it never looks at or touches local edit
// snapshots, so a later TUI session still restores whatever was in progress.
func newPullCmd(app *App) *cobra.Command {
	var appID string
	var dir string

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Fetch server content and write per-item files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(app)
			if err != nil {
				return err
			}
			specs, err := appSpecs(cfg, appID)
			if err != nil {
				return err
			}
			client, err := newExpertClient(cfg, log)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}

			bold := color.New(color.Bold)
			faint := color.New(color.Faint)
			for _, spec := range specs {
				page, err := client.FetchEditPage(cmd.Context(), spec.Path, spec.FieldNames())
				if err != nil {
					return fmt.Errorf("fetch %s: %w", spec.ID, err)
				}
				for _, it := range spec.Items {
					content := page.Fields[it.FieldName]
					name := fmt.Sprintf("%s-%s.%s", spec.ID, it.ID, it.Language)
					path := filepath.Join(dir, name)
					if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
						return fmt.Errorf("write %s: %w", path, err)
					}
					_, _ = bold.Fprint(cmd.OutOrStdout(), path)
					_, _ = faint.Fprintf(cmd.OutOrStdout(), "  %d bytes\n", len(content))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&appID, "app", "", "Only this app (css|html); default both")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write files into")
	return cmd
}
