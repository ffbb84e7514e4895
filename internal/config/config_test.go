package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loom/internal/config"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = filepath.Join(cfg.Paths.DataDir, "logs")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.toml")
	cfg, path, exists, err := config.Load(missing)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config to report exists=false")
	}
	if path != missing {
		t.Fatalf("unexpected resolved path: %q", path)
	}
	if cfg.Workflow.Workers != 2 {
		t.Fatalf("expected default workers, got %d", cfg.Workflow.Workers)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/data"
log_dir = "` + dir + `/logs"

[workflow]
workers = 4
lease_stale_after = 120

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Workflow.Workers != 4 {
		t.Fatalf("expected 4 workers, got %d", cfg.Workflow.Workers)
	}
	if cfg.Workflow.LeaseStaleAfter != 120 {
		t.Fatalf("expected lease_stale_after 120, got %d", cfg.Workflow.LeaseStaleAfter)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsShortLease(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = cfg.Paths.DataDir
	cfg.Workflow.QueuePollInterval = 30
	cfg.Workflow.LeaseStaleAfter = 10
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for lease shorter than poll interval")
	}
	if !strings.Contains(err.Error(), "lease_stale_after") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsUnknownLogFormat(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = cfg.Paths.DataDir
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown log format")
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist", dir)
		}
	}
}

func TestWriteSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[workflow]") {
		t.Fatal("sample config missing workflow section")
	}
}
