package commands

import (
	"errors"
	"fmt"

	"github.com/nulzo/vision-grader/internal/cli"
	"github.com/nulzo/vision-grader/internal/strategy"
	"github.com/spf13/cobra"
)

// Strategies only outlive a CLI run with the redis backend.
func newStrategyCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Inspect or clear cached endpoint strategies",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show [slot...]",
		Short: "Print the cached strategy of each slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			slots, err := parseSlots(args)
			if err != nil {
				return err
			}
			_, app, err := root.load(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(cmd, app)

			out := cmd.OutOrStdout()
			for _, slot := range slots {
				s, err := app.Engine.Strategy(cmd.Context(), slot)
				switch {
				case errors.Is(err, strategy.ErrNotFound):
					fmt.Fprintf(out, "%s %s: %s\n", cli.Arrow(), slot, cli.Style("no cached strategy", cli.DimCode))
				case err != nil:
					return err
				default:
					fmt.Fprintf(out, "%s %s:\n%s\n", cli.Arrow(), slot, cli.PrettyFormat(s))
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear [slot...]",
		Short: "Forget cached strategies (all slots when none given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			slots, err := parseSlots(args)
			if err != nil {
				return err
			}
			_, app, err := root.load(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(cmd, app)

			if len(args) == 0 {
				if err := app.Engine.ConfigChanged(cmd.Context()); err != nil {
					return err
				}
			} else {
				for _, slot := range slots {
					if err := app.Engine.Invalidate(cmd.Context(), slot); err != nil {
						return err
					}
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s cleared %d slot(s)\n", cli.CheckMark(), len(slots))
			return nil
		},
	})

	return cmd
}
