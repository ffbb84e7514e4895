package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loom/internal/config"
	"loom/internal/testsupport"
)

// setupCLIConfig writes a config file backed by temp directories and returns
// its path alongside the parsed config for direct store access in tests.
func setupCLIConfig(t *testing.T) (string, *config.Config) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath, cfg
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
