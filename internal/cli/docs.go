package cli

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/docs"
)

// newDocsCmd prints the embedded documentation. Without an argument it lists
// the topics; with one it prints the topic's raw markdown, pager-friendly.
func newDocsCmd(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show the built-in documentation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				topics := docs.List()
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(topics)
				}
				bold := color.New(color.Bold)
				faint := color.New(color.Faint)
				for _, t := range topics {
					_, _ = bold.Fprintf(cmd.OutOrStdout(), "%-16s", t.Name)
					_, _ = faint.Fprintln(cmd.OutOrStdout(), t.Title)
				}
				_, _ = faint.Fprintln(cmd.OutOrStdout(), "\nexpertedit docs <topic> prints one page")
				return nil
			}

			body, ok := docs.Read(args[0])
			if !ok {
				return fmt.Errorf("unknown docs topic %q (run `expertedit docs` for the list)", args[0])
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), body)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print machine-readable JSON (topic list only)")
	return cmd
}
