package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newIngestCmd creates the ingest command.
func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <path>...",
		Short: "Index PDF documents",
		Long: `Ingest one or more PDF files or directories into the index.
Directories are swept non-recursively; files that fail to parse are
skipped and logged.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, err := openPipeline(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			total := struct{ documents, pages, chunks int }{}
			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					return fmt.Errorf("stat %s: %w", path, err)
				}

				if info.IsDir() {
					stats, err := p.ProcessDirectory(ctx, path)
					if err != nil {
						return err
					}
					total.documents += stats.Documents
					total.pages += stats.Pages
					total.chunks += stats.Chunks
					continue
				}

				stats, err := p.ProcessDocument(ctx, path)
				if err != nil {
					return err
				}
				total.documents += stats.Documents
				total.pages += stats.Pages
				total.chunks += stats.Chunks
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d document(s): %d pages, %d chunks\n",
				total.documents, total.pages, total.chunks)
			return nil
		},
	}
}
