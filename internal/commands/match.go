package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMatchCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match stored transactions against the customer directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := newLogger()

			if flags.customersPath == "" {
				return fmt.Errorf("--customers is required for matching")
			}
			if flags.projectID == "" {
				return fmt.Errorf("--project is required: the in-memory store has no rows to match")
			}

			p, cleanup, err := buildPipeline(ctx, flags, log)
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := p.MatchUnmatched(ctx)
			if err != nil {
				return err
			}
			printSummary(cmd, summary)
			return nil
		},
	}
	return cmd
}
