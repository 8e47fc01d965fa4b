package ipc

import (
	"context"
	"path/filepath"
	"testing"

	"doorman/internal/config"
	"doorman/internal/daemon"
	"doorman/internal/decision"
	"doorman/internal/logging"
	"doorman/internal/reconcile"
	"doorman/internal/sched"
)

type stubRunner struct{}

func (stubRunner) RunCycle(ctx context.Context) (reconcile.CycleReport, error) {
	return reconcile.CycleReport{}, nil
}

type fixture struct {
	daemon *daemon.Daemon
	store  *decision.Store
	client *Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.SnapshotDir = filepath.Join(cfg.Paths.DataDir, "snapshots")
	cfg.Paths.APIBind = ""
	cfg.Notifications.NtfyTopic = ""

	store, err := decision.OpenPath(filepath.Join(cfg.Paths.DataDir, "decisions.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	d, err := daemon.New(&cfg, store, stubRunner{}, sched.New(cfg.Schedule), nil, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := filepath.Join(cfg.Paths.DataDir, "doorman.sock")
	server, err := NewServer(ctx, socket, d, logging.NewNop())
	if err != nil {
		t.Fatalf("new ipc server: %v", err)
	}
	server.Serve()
	t.Cleanup(server.Close)

	client, err := Dial(socket)
	if err != nil {
		t.Fatalf("dial ipc: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return &fixture{daemon: d, store: store, client: client}
}

func TestStatusOverSocket(t *testing.T) {
	fx := newFixture(t)

	if _, _, err := fx.store.UpsertPending(context.Background(), "mario rossi", "Mario Rossi", nil); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	status, err := fx.client.Status()
	if err != nil {
		t.Fatalf("status call: %v", err)
	}
	if status.Running {
		t.Fatal("daemon was never started")
	}
	if status.Records["pending"] != 1 {
		t.Fatalf("expected 1 pending record, got %d", status.Records["pending"])
	}
	if status.DBPath == "" {
		t.Fatal("expected db path in status")
	}
}

func TestDecideOverSocket(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	if _, _, err := fx.store.UpsertPending(ctx, "anna bianchi", "Anna Bianchi", nil); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	resp, err := fx.client.Decide("anna bianchi", "decline")
	if err != nil {
		t.Fatalf("decide call: %v", err)
	}
	if resp.Record.Status != string(decision.StatusDeclined) {
		t.Fatalf("expected declined, got %s", resp.Record.Status)
	}

	// The verdict must be visible in the store, not just the response.
	record, err := fx.store.Get(ctx, "anna bianchi")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.Status != decision.StatusDeclined {
		t.Fatalf("store status %s, want declined", record.Status)
	}

	if _, err := fx.client.Decide("anna bianchi", "approve"); err == nil {
		t.Fatal("second verdict must return an rpc error")
	}
	if _, err := fx.client.Decide("nobody", "approve"); err == nil {
		t.Fatal("unknown record must return an rpc error")
	}
}

func TestRequestListFilterOverSocket(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"mario rossi", "anna bianchi"} {
		if _, _, err := fx.store.UpsertPending(ctx, name, name, nil); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
	if _, err := fx.client.Decide("mario rossi", "approve"); err != nil {
		t.Fatalf("decide: %v", err)
	}

	resp, err := fx.client.RequestList([]string{"approved"})
	if err != nil {
		t.Fatalf("list call: %v", err)
	}
	if len(resp.Records) != 1 || resp.Records[0].IdentityKey != "mario rossi" {
		t.Fatalf("unexpected filtered records: %+v", resp.Records)
	}

	all, err := fx.client.RequestList(nil)
	if err != nil {
		t.Fatalf("unfiltered list: %v", err)
	}
	if len(all.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all.Records))
	}

	if _, err := fx.client.RequestList([]string{"bogus"}); err == nil {
		t.Fatal("unknown status must return an rpc error")
	}
}

func TestRequestDescribeOverSocket(t *testing.T) {
	fx := newFixture(t)

	if _, _, err := fx.store.UpsertPending(context.Background(), "luca verdi", "Luca Verdi", nil); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	resp, err := fx.client.RequestDescribe("luca verdi")
	if err != nil {
		t.Fatalf("describe call: %v", err)
	}
	if resp.Record.DisplayName != "Luca Verdi" {
		t.Fatalf("unexpected display name %q", resp.Record.DisplayName)
	}

	if _, err := fx.client.RequestDescribe("missing person"); err == nil {
		t.Fatal("missing record must return an rpc error")
	}
}

func TestPauseResumeOverSocket(t *testing.T) {
	fx := newFixture(t)

	if _, err := fx.client.Pause(); err != nil {
		t.Fatalf("pause call: %v", err)
	}
	if !fx.daemon.Paused() {
		t.Fatal("daemon should be paused")
	}
	if _, err := fx.client.Resume(); err != nil {
		t.Fatalf("resume call: %v", err)
	}
	if fx.daemon.Paused() {
		t.Fatal("daemon should be resumed")
	}
}

func TestDatabaseHealthOverSocket(t *testing.T) {
	fx := newFixture(t)

	health, err := fx.client.DatabaseHealth()
	if err != nil {
		t.Fatalf("health call: %v", err)
	}
	if !health.DatabaseExists || !health.TableExists {
		t.Fatalf("expected healthy database, got %+v", health)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
}

func TestNotificationOverSocket(t *testing.T) {
	fx := newFixture(t)

	// No topic configured, so the noop service reports success.
	resp, err := fx.client.TestNotification()
	if err != nil {
		t.Fatalf("test notification call: %v", err)
	}
	if !resp.Sent {
		t.Fatalf("expected sent=true, got %+v", resp)
	}
}
