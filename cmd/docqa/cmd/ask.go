package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newAskCmd creates the ask command.
func newAskCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "ask \"question\"",
		Short: "Answer a question from the indexed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, err := openPipeline(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			answer, err := p.Ask(ctx, args[0], topK)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, answer.Answer)
			if len(answer.Citations) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Sources:")
				for _, c := range answer.Citations {
					fmt.Fprintf(out, "  [%d] %s, page %d (%s, similarity %.2f)\n",
						c.SourceNumber, c.DocumentTitle, c.PageNumber, c.Filename, c.Similarity)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 0, "Maximum number of supporting passages (default from config)")
	return cmd
}
