package cmd

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docqa/docqa/internal/config"
	"github.com/docqa/docqa/pkg/version"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"ingest", "ask", "search", "stats", "clear", "serve", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_Help(t *testing.T) {
	out, err := runCommand(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "docqa")
	assert.Contains(t, out, "ingest")
}

func TestVersionCmd(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, version.Version)
}

func TestVersionCmd_Short(t *testing.T) {
	out, err := runCommand(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version.Version, strings.TrimSpace(out))
}

func TestVersionCmd_JSON(t *testing.T) {
	out, err := runCommand(t, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)
}

func TestApplyLogging_UsesConfiguredFileAndLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "docqa.log")
	cfg := config.NewConfig()
	cfg.Logging.Level = "debug"
	cfg.Logging.File = logPath

	require.NoError(t, applyLogging(cfg, false))
	slog.Debug("configured file logging")
	teardownLogging(nil, nil)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "configured file logging")
}

func TestApplyLogging_StderrSuppressedFallsBackToFile(t *testing.T) {
	// Serving over stdio: no configured file must still yield file-only
	// logging rather than silence or stderr noise.
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := config.NewConfig()
	require.Empty(t, cfg.Logging.File)
	require.NoError(t, applyLogging(cfg, false))
	slog.Info("fallback file logging")
	teardownLogging(nil, nil)

	data, err := os.ReadFile(filepath.Join(home, ".docqa", "logs", "docqa.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "fallback file logging")
}

func TestClearCmd_RequiresForce(t *testing.T) {
	_, err := runCommand(t, "clear")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")
}

func TestIngestCmd_RequiresArgs(t *testing.T) {
	_, err := runCommand(t, "ingest")
	assert.Error(t, err)
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	_, err := runCommand(t, "ask")
	assert.Error(t, err)
}
