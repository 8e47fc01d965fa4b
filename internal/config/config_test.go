package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"doorman/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
snapshot_dir = "` + filepath.Join(dir, "snaps") + `"

[schedule]
poll_interval = 120
jitter = 0.1

[logging]
level = "debug"
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be reported as existing")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Schedule.PollInterval != 120 {
		t.Fatalf("expected poll interval 120, got %d", cfg.Schedule.PollInterval)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
	if cfg.Paths.DataDir != filepath.Join(dir, "data") {
		t.Fatalf("unexpected data dir %q", cfg.Paths.DataDir)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Page.SidebarWidth != 360 {
		t.Fatalf("expected default sidebar width, got %d", cfg.Page.SidebarWidth)
	}
}

func TestLoadRejectsBadSchedule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[schedule]
working_hours_start = 23
working_hours_end = 6
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for inverted working hours")
	}
}

func TestLoadRejectsBadJitter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[schedule]\njitter = 1.5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for jitter >= 1")
	}
}

func TestSampleConfigParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load cleanly: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
}

func TestSocketPathInsideDataDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = "/tmp/doorman-test"
	if got := cfg.SocketPath(); !strings.HasPrefix(got, cfg.Paths.DataDir) {
		t.Fatalf("socket path %q not inside data dir", got)
	}
}
