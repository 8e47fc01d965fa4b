package main

import (
	"context"
	"os"
	"strings"
	"testing"

	"doorman/internal/decision"
)

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Daemon")
	requireContains(t, out, "stopped")
	requireContains(t, out, "Dependencies")
}

func TestRequestsListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	if _, _, err := env.store.UpsertPending(ctx, "mario rossi", "Mario Rossi", nil); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	out, _, err := runCLI(t, []string{"requests"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("requests: %v", err)
	}
	requireContains(t, out, "Mario Rossi")
	requireContains(t, out, "pending")

	out, _, err = runCLI(t, []string{"requests", "show", "mario rossi"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("requests show: %v", err)
	}
	requireContains(t, out, "Mario Rossi")
	requireContains(t, out, "Status:      pending")

	_, _, err = runCLI(t, []string{"requests", "show", "nobody"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected error for unknown record")
	}
}

func TestRequestsEmptyList(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"requests"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("requests: %v", err)
	}
	requireContains(t, out, "No requests found")
}

func TestDecideCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	if _, _, err := env.store.UpsertPending(ctx, "anna bianchi", "Anna Bianchi", nil); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	out, _, err := runCLI(t, []string{"decide", "anna bianchi", "approve"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	requireContains(t, out, "Recorded approved for Anna Bianchi")

	record, err := env.store.Get(ctx, "anna bianchi")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.Status != decision.StatusApproved {
		t.Fatalf("store status %s, want approved", record.Status)
	}

	_, _, err = runCLI(t, []string{"decide", "anna bianchi", "decline"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected error for second verdict")
	}
}

func TestPauseResumeCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"pause"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	requireContains(t, out, "Polling paused")
	if !env.daemon.Paused() {
		t.Fatal("daemon should be paused")
	}

	out, _, err = runCLI(t, []string{"resume"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	requireContains(t, out, "Polling resumed")
	if env.daemon.Paused() {
		t.Fatal("daemon should be resumed")
	}
}

func TestHealthCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"health"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	requireContains(t, out, "Decision Database")
	requireContains(t, out, "Integrity")
}

func TestLogsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	logPath := env.daemon.LogPath()
	content := "line one\nline two\nline three\n"
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "line two")
	requireContains(t, out, "line three")
	if strings.Contains(out, "line one") {
		t.Fatal("limit must drop older lines")
	}
}

func TestDialErrorMentionsSocket(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"pause"}, env.cfg.Paths.DataDir+"/missing.sock", env.configPath)
	if err == nil {
		t.Fatal("expected dial error")
	}
	requireContains(t, err.Error(), "missing.sock")
}
