package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newStatsCmd creates the stats command.
func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			p, err := openPipeline(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			stats, err := p.Stats(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Indexed chunks: %d\n", stats.TotalChunks)
			return nil
		},
	}
}
