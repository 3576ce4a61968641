package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa/internal/mcp"
	"github.com/docqa/docqa/internal/pipeline"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline to MCP clients over stdio",
		Long: `Run an MCP server exposing ask, search, and stats tools over stdio.
Stdout carries JSON-RPC exclusively; logs go to the log file only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// Stdio is owned by the protocol: re-route logging to file
			// only before anything can write to the terminal.
			if err := applyLogging(cfg, false); err != nil {
				return err
			}

			p, err := pipeline.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			server, err := mcp.NewServer(p)
			if err != nil {
				return err
			}

			slog.Info("serving MCP over stdio")
			return server.Serve(ctx)
		},
	}
}
