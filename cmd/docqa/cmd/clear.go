package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newClearCmd creates the clear command.
func newClearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all indexed documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				return fmt.Errorf("refusing to clear the index without --force")
			}
			ctx := cmd.Context()

			p, err := openPipeline(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			if err := p.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Index cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Confirm clearing the index")
	return cmd
}
