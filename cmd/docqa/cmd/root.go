// Package cmd provides the CLI commands for docqa.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa/internal/config"
	"github.com/docqa/docqa/internal/logging"
	"github.com/docqa/docqa/internal/pipeline"
	"github.com/docqa/docqa/pkg/version"
)

var (
	configPath string
	dataDir    string
	debugMode  bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the docqa CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docqa",
		Short: "Question answering over local document collections",
		Long: `docqa indexes PDF documents and answers natural-language questions
about them, grounding every answer in retrieved passages with page-level
citations.

Retrieval is hybrid (semantic + keyword) with LLM query expansion; both
embeddings and generation run locally through Ollama.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("docqa version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: <data-dir>/config.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory for the index and logs (default: .docqa)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.docqa/logs/")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = teardownLogging

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// setupLogging installs a stderr-only bootstrap logger so config loading
// itself can log. applyLogging replaces it once the config is known.
func setupLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.Config{Level: "info", WriteToStderr: true}
	if debugMode {
		logCfg = logging.DebugConfig()
	}

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	loggingCleanup = cleanup
	return nil
}

// applyLogging re-configures the default logger from the loaded config,
// replacing the bootstrap logger. With stderr disabled (MCP serving,
// where stdout and stderr belong to the client) a log file is always
// used, falling back to the default path when none is configured.
func applyLogging(cfg *config.Config, stderr bool) error {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.FilePath = cfg.Logging.File
	logCfg.WriteToStderr = stderr
	if debugMode {
		logCfg.Level = "debug"
	}
	if !stderr && logCfg.FilePath == "" {
		logCfg.FilePath = logging.DefaultLogPath()
	}

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	if loggingCleanup != nil {
		loggingCleanup()
	}
	loggingCleanup = cleanup
	return nil
}

func teardownLogging(_ *cobra.Command, _ []string) {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

// loadConfig loads the effective configuration, applying the --config
// and --data-dir flags.
func loadConfig() (*config.Config, error) {
	dir := dataDir
	if dir == "" {
		dir = ".docqa"
	}
	path := configPath
	if path == "" {
		path = filepath.Join(dir, config.DefaultConfigName)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

// openPipeline loads config and assembles the pipeline with the shipped
// collaborators. Callers own the returned pipeline and must Close it.
func openPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := applyLogging(cfg, true); err != nil {
		return nil, err
	}

	p, err := pipeline.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	slog.Debug("pipeline ready", slog.String("data_dir", cfg.DataDir))
	return p, nil
}
