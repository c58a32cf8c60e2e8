package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/model"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/store"
)

// newDiscardCmd drops persisted edit snapshots. This is the explicit,
// user-driven escape hatch; it asks first unless --yes is given because a
// discarded snapshot is gone for good.
func newDiscardCmd(app *App) *cobra.Command {
	var appID string
	var yes bool

	cmd := &cobra.Command{
		Use:   "discard",
		Short: "Drop locally persisted edits",
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
			st := store.Open(cfg.StateScopeDir(), log)

			var present []model.AppID
			for _, spec := range specs {
				if st.HasAppState(spec.ID) {
					present = append(present, spec.ID)
				}
			}
			if len(present) == 0 {
				_, _ = color.New(color.Faint).Fprintln(cmd.OutOrStdout(), "nothing to discard")
				return nil
			}

			names := make([]string, len(present))
			for i, id := range present {
				names[i] = string(id)
			}
			if !yes {
				fmt.Fprintf(cmd.OutOrStdout(), "Discard local edits for %s? [y/N] ", strings.Join(names, ", "))
				line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				switch strings.ToLower(strings.TrimSpace(line)) {
				case "y", "yes":
				default:
					_, _ = color.New(color.Faint).Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}

			for _, id := range present {
				if err := st.ClearAppState(id); err != nil {
					return fmt.Errorf("discard %s: %w", id, err)
				}
			}
			_, _ = color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "discarded local edits for %s\n", strings.Join(names, ", "))
			return nil
		},
	}

	cmd.Flags().StringVar(&appID, "app", "", "Only this app (css|html); default both")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	return cmd
}
