package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newSearchCmd creates the search command.
func newSearchCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search \"query\"",
		Short: "Retrieve passages without generating an answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, err := openPipeline(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			results, err := p.Search(ctx, args[0], topK)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No results.")
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(out, "[%d] %s, page %d (similarity %.2f)\n",
					i+1, r.Metadata.DocumentTitle, r.Metadata.PageNumber, r.Similarity)
				fmt.Fprintf(out, "    %s\n", r.Text)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 0, "Maximum number of results (default from config)")
	return cmd
}
