package decision

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "decisions.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestUpsertPendingIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bounds := image.Rect(0, 120, 800, 340)
	record, created, err := store.UpsertPending(ctx, "mario rossi", "Mario Rossi", &bounds)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !created {
		t.Fatal("expected first upsert to create a record")
	}
	if record.Status != StatusPending {
		t.Fatalf("expected pending status, got %s", record.Status)
	}
	if record.CardBounds == nil || *record.CardBounds != bounds {
		t.Fatalf("expected card bounds %v, got %v", bounds, record.CardBounds)
	}

	again, created, err := store.UpsertPending(ctx, "mario rossi", "Mario Rossi", nil)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created {
		t.Fatal("second upsert must not create a new record")
	}
	if again.ID != record.ID {
		t.Fatalf("expected same record id %d, got %d", record.ID, again.ID)
	}
	if !again.FirstSeenAt.Equal(record.FirstSeenAt) {
		t.Fatal("first_seen_at must not change on re-observation")
	}
}

func TestUpsertPendingDoesNotResurrectDecided(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, _, err := store.UpsertPending(ctx, "anna bianchi", "Anna Bianchi", nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := store.ApplyDecision(ctx, "anna bianchi", DecisionApprove); err != nil {
		t.Fatalf("decide: %v", err)
	}

	record, created, err := store.UpsertPending(ctx, "anna bianchi", "Anna Bianchi", nil)
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if created {
		t.Fatal("upsert after decision must not create a record")
	}
	if record.Status != StatusApproved {
		t.Fatalf("upsert must not reset status, got %s", record.Status)
	}
}

func TestTransitionsAreMonotonic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, _, err := store.UpsertPending(ctx, "luca verdi", "Luca Verdi", nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Executing straight from pending skips the decision step.
	if _, err := store.MarkExecuted(ctx, "luca verdi"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition executing pending record, got %v", err)
	}

	record, err := store.ApplyDecision(ctx, "luca verdi", DecisionDecline)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if record.Status != StatusDeclined {
		t.Fatalf("expected declined, got %s", record.Status)
	}
	if record.DecidedAt == nil {
		t.Fatal("expected decided_at to be set")
	}

	// A second verdict, even the same one, is rejected.
	if _, err := store.ApplyDecision(ctx, "luca verdi", DecisionApprove); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition re-deciding, got %v", err)
	}

	record, err = store.MarkExecuted(ctx, "luca verdi")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if record.Status != StatusExecuted {
		t.Fatalf("expected executed, got %s", record.Status)
	}
	if record.ExecutedAt == nil {
		t.Fatal("expected executed_at to be set")
	}

	// Executed is terminal.
	if _, err := store.MarkExecuted(ctx, "luca verdi"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition re-executing, got %v", err)
	}
	if _, err := store.ApplyDecision(ctx, "luca verdi", DecisionDecline); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition deciding executed record, got %v", err)
	}
}

func TestTransitionUnknownKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.ApplyDecision(ctx, "nobody", DecisionApprove); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for missing record, got %v", err)
	}
	if _, err := store.MarkExecuted(ctx, "nobody"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for missing record, got %v", err)
	}
}

func TestConcurrentDecisionsSingleWinner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, _, err := store.UpsertPending(ctx, "race", "Race Case", nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	const contenders = 8
	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			verdict := DecisionApprove
			if slot%2 == 1 {
				verdict = DecisionDecline
			}
			_, errs[slot] = store.ApplyDecision(ctx, "race", verdict)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrInvalidTransition):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winning decision, got %d", winners)
	}
}

func TestListActionableOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	keys := []string{"first seen", "second seen", "third seen"}
	for _, key := range keys {
		if _, _, err := store.UpsertPending(ctx, key, key, nil); err != nil {
			t.Fatalf("upsert %q: %v", key, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	// Decide out of observation order.
	if _, err := store.ApplyDecision(ctx, "third seen", DecisionApprove); err != nil {
		t.Fatalf("decide: %v", err)
	}
	if _, err := store.ApplyDecision(ctx, "first seen", DecisionDecline); err != nil {
		t.Fatalf("decide: %v", err)
	}

	actionable, err := store.ListActionable(ctx)
	if err != nil {
		t.Fatalf("list actionable: %v", err)
	}
	if len(actionable) != 2 {
		t.Fatalf("expected 2 actionable records, got %d", len(actionable))
	}
	if actionable[0].IdentityKey != "first seen" || actionable[1].IdentityKey != "third seen" {
		t.Fatalf("expected first-observed ordering, got %q then %q",
			actionable[0].IdentityKey, actionable[1].IdentityKey)
	}
}

func TestArchiveStalePendingKeepsRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, _, err := store.UpsertPending(ctx, "stale", "Stale Pending", nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, _, err := store.UpsertPending(ctx, "fresh", "Fresh Pending", nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	archived, err := store.ArchiveStalePending(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if archived != 0 {
		t.Fatalf("nothing is older than an hour yet, archived %d", archived)
	}

	archived, err = store.ArchiveStalePending(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if archived != 2 {
		t.Fatalf("expected both pending records archived, got %d", archived)
	}

	// Archived records disappear from listings but the row survives.
	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no listed records after archival, got %d", len(records))
	}

	record, err := store.Get(ctx, "stale")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record == nil || !record.Archived {
		t.Fatal("expected archived record to remain retrievable by key")
	}
}

func TestStatsAndHealth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := map[string]Decision{
		"a pending":  "",
		"b approved": DecisionApprove,
		"c declined": DecisionDecline,
		"d executed": DecisionApprove,
	}
	for key, verdict := range seed {
		if _, _, err := store.UpsertPending(ctx, key, key, nil); err != nil {
			t.Fatalf("upsert %q: %v", key, err)
		}
		if verdict == "" {
			continue
		}
		if _, err := store.ApplyDecision(ctx, key, verdict); err != nil {
			t.Fatalf("decide %q: %v", key, err)
		}
	}
	if _, err := store.MarkExecuted(ctx, "d executed"); err != nil {
		t.Fatalf("execute: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	want := HealthSummary{Total: 4, Pending: 1, Actionable: 2, Executed: 1}
	if health != want {
		t.Fatalf("health = %+v, want %+v", health, want)
	}
}

func TestCheckHealth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, _, err := store.UpsertPending(ctx, "somebody", "Somebody", nil); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	health := CheckHealth(ctx, store.Path())
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists || !health.IntegrityCheck {
		t.Fatalf("expected healthy database, got %+v", health)
	}
	if health.TotalRecords != 1 {
		t.Fatalf("expected 1 record, got %d", health.TotalRecords)
	}

	missing := CheckHealth(ctx, filepath.Join(t.TempDir(), "absent.db"))
	if missing.DatabaseExists {
		t.Fatal("expected missing database to report not existing")
	}
}
