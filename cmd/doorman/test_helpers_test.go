package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"doorman/internal/config"
	"doorman/internal/daemon"
	"doorman/internal/decision"
	"doorman/internal/ipc"
	"doorman/internal/logging"
	"doorman/internal/reconcile"
	"doorman/internal/sched"
)

type idleRunner struct{}

func (idleRunner) RunCycle(ctx context.Context) (reconcile.CycleReport, error) {
	return reconcile.CycleReport{}, nil
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *decision.Store
	daemon     *daemon.Daemon
	socketPath string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.SnapshotDir = filepath.Join(base, "snapshots")
	cfg.Paths.APIBind = ""
	cfg.Notifications.NtfyTopic = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	configPath := filepath.Join(homeDir, ".config", "doorman", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, &cfg)

	store, err := decision.OpenPath(filepath.Join(cfg.Paths.DataDir, "decisions.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	logger := logging.NewNop()
	d, err := daemon.New(&cfg, store, idleRunner{}, sched.New(cfg.Schedule), nil, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socketPath := filepath.Join(cfg.Paths.DataDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		_ = store.Close()
	})

	return &cliTestEnv{
		cfg:        &cfg,
		store:      store,
		daemon:     d,
		socketPath: socketPath,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nsnapshot_dir = %q\napi_bind = %q\n",
		cfg.Paths.DataDir,
		cfg.Paths.SnapshotDir,
		cfg.Paths.APIBind,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
