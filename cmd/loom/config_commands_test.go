package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "loom", "config.toml")

	stdout, _, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration to")

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	requireContains(t, string(data), "[paths]")
}

func TestConfigInitRefusesExisting(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(target, []byte("# existing\n"), 0o644); err != nil {
		t.Fatalf("write existing: %v", err)
	}

	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected error for existing config file")
	}

	stdout, _, err := runCLI(t, "", "config", "init", "--path", target, "--overwrite")
	if err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration to")
}

func TestConfigShow(t *testing.T) {
	configPath, cfg := setupCLIConfig(t)

	stdout, _, err := runCLI(t, configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, stdout, "Config path: "+configPath)
	requireContains(t, stdout, cfg.Paths.DataDir)
	requireContains(t, stdout, "heuristic extractor")
}
