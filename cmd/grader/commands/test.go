package commands

import (
	"fmt"

	"github.com/nulzo/vision-grader/internal/cli"
	"github.com/nulzo/vision-grader/internal/engine"
	"github.com/nulzo/vision-grader/internal/strategy"
	"github.com/spf13/cobra"
)

func newTestCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test [slot...]",
		Short: "Run a text-only connection test against each slot",
		Args:  cobra.MaximumNArgs(len(strategy.Slots)),
		RunE: func(cmd *cobra.Command, args []string) error {
			slots, err := parseSlots(args)
			if err != nil {
				return err
			}

			cfg, app, err := root.load(cmd.Context())
			if err != nil {
				return err
			}
			defer closeApp(cmd, app)

			out := cmd.OutOrStdout()
			failed := 0
			for _, slot := range slots {
				ep, err := cfg.Slot(slot)
				if err != nil {
					return err
				}

				msg, err := app.Engine.TestConnection(cmd.Context(), slot, ep)
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s %s\n", cli.CrossMark(), engine.Friendly(err))
					continue
				}
				fmt.Fprintf(out, "%s %s\n", cli.CheckMark(), msg)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d slots failed", failed, len(slots))
			}
			return nil
		},
	}
}

// parseSlots returns every slot when args is empty.
func parseSlots(args []string) ([]strategy.Slot, error) {
	if len(args) == 0 {
		return strategy.Slots, nil
	}
	slots := make([]strategy.Slot, 0, len(args))
	for _, a := range args {
		s, err := strategy.ParseSlot(a)
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, nil
}
