package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"doorman/internal/config"
	"doorman/internal/decision"
	"doorman/internal/logging"
	"doorman/internal/notify"
	"doorman/internal/reconcile"
	"doorman/internal/sched"
)

// CycleRunner executes one reconciliation cycle. Satisfied by
// *reconcile.Engine; a separate interface keeps the loop testable.
type CycleRunner interface {
	RunCycle(ctx context.Context) (reconcile.CycleReport, error)
}

// Daemon owns the poll loop and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *decision.Store
	runner CycleRunner

	mu        sync.Mutex
	scheduler *sched.Scheduler
	notifier  notify.Service
	lastCycle *reconcile.CycleReport
	lastError string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	wake    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	api     *apiServer
}

// Status represents daemon runtime information.
type Status struct {
	Running   bool
	Paused    bool
	PID       int
	DBPath    string
	LockPath  string
	Records   decision.HealthSummary
	LastCycle *reconcile.CycleReport
	LastError string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *decision.Store, runner CycleRunner, scheduler *sched.Scheduler, notifier notify.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || runner == nil || scheduler == nil {
		return nil, errors.New("daemon requires config, store, runner, and scheduler")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notify.NewService(cfg)
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "doormand.lock")
	return &Daemon{
		cfg:       cfg,
		logger:    logger.With(logging.String(logging.FieldComponent, "daemon")),
		store:     store,
		runner:    runner,
		notifier:  notifier,
		scheduler: scheduler,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
		wake:      make(chan struct{}, 1),
	}, nil
}

// Start acquires the instance lock and launches the poll loop and the
// control API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another doorman daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	api, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		return fmt.Errorf("configure api server: %w", err)
	}
	d.api = api
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		return err
	}

	d.running.Store(true)
	d.wg.Add(1)
	go d.loop(d.ctx)

	d.logger.Info("doorman daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the loop down, letting an in-flight cycle finish its current
// actuation, and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("doorman daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// loop is the single cooperative cycle driver. Nothing else invokes
// RunCycle; pause and working hours only gate this loop.
func (d *Daemon) loop(ctx context.Context) {
	defer d.wg.Done()

	timer := time.NewTimer(d.currentScheduler().ErrorRetryDelay())
	defer timer.Stop()

	// First cycle runs shortly after startup instead of a full interval out.
	resetTimer(timer, 2*time.Second)

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-d.wake:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		scheduler := d.currentScheduler()

		if scheduler.Paused() {
			d.logger.Debug("paused, skipping cycle")
			resetTimer(timer, scheduler.NextDelay())
			continue
		}
		if wait := scheduler.UntilWorkingHours(time.Now()); wait > 0 {
			d.logger.Info("outside working hours, sleeping",
				logging.Duration("until_window", wait))
			resetTimer(timer, wait)
			continue
		}

		report, err := d.runner.RunCycle(ctx)
		d.recordCycle(&report, err)

		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			d.logger.Error("cycle failed", logging.Error(err))
			if notifyErr := d.currentNotifier().NotifyError(ctx, err, "poll cycle"); notifyErr != nil {
				d.logger.Warn("error notification failed", logging.Error(notifyErr))
			}
			resetTimer(timer, scheduler.ErrorRetryDelay())
			continue
		}

		d.housekeeping(ctx)

		if err := d.currentNotifier().NotifyRunSummary(ctx, notify.RunSummary{
			CycleID:  report.CycleID,
			Seen:     report.Seen,
			Notified: report.Notified,
			Executed: report.Executed,
			Errors:   report.Errors,
			Duration: report.Duration,
		}); err != nil {
			d.logger.Warn("run summary notification failed", logging.Error(err))
		}

		if report.Executed > 0 {
			// The list reflowed under us; look again soon instead of
			// leaving freshly revealed cards waiting a full interval.
			resetTimer(timer, scheduler.ErrorRetryDelay())
			continue
		}
		resetTimer(timer, scheduler.NextDelay())
	}
}

// housekeeping prunes old snapshots and archives stale pending records
// between cycles.
func (d *Daemon) housekeeping(ctx context.Context) {
	if maxAge := time.Duration(d.cfg.Retention.SnapshotMaxAgeHours) * time.Hour; maxAge > 0 {
		if removed, err := reconcile.PruneSnapshots(d.cfg.Paths.SnapshotDir, maxAge); err != nil {
			d.logger.Warn("snapshot pruning failed", logging.Error(err))
		} else if removed > 0 {
			d.logger.Info("pruned snapshots", logging.Int("removed", removed))
		}
	}

	if maxAge := time.Duration(d.cfg.Retention.PendingMaxAgeHours) * time.Hour; maxAge > 0 {
		cutoff := time.Now().Add(-maxAge)
		if archived, err := d.store.ArchiveStalePending(ctx, cutoff); err != nil {
			d.logger.Warn("stale pending archival failed", logging.Error(err))
		} else if archived > 0 {
			d.logger.Info("archived stale pending records", logging.Int64("archived", archived))
		}
	}
}

func (d *Daemon) recordCycle(report *reconcile.CycleReport, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastCycle = report
	if err != nil {
		d.lastError = err.Error()
	} else {
		d.lastError = ""
	}
}

func (d *Daemon) currentScheduler() *sched.Scheduler {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scheduler
}

func (d *Daemon) currentNotifier() notify.Service {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.notifier
}

// ApplyConfig swaps in schedule settings from a reloaded configuration.
// Only schedule and notification settings take effect without a restart;
// path and page geometry changes require one.
func (d *Daemon) ApplyConfig(cfg *config.Config) {
	d.mu.Lock()
	replacement := sched.New(cfg.Schedule)
	if d.scheduler.Paused() {
		// An operator pause outlives a config reload.
		replacement.Pause()
	}
	d.scheduler = replacement
	d.notifier = notify.NewService(cfg)
	d.mu.Unlock()
	d.logger.Info("configuration reloaded")
}

// Pause suspends cycle execution.
func (d *Daemon) Pause() {
	d.currentScheduler().Pause()
	d.logger.Info("polling paused")
}

// Resume lifts a pause and wakes the loop.
func (d *Daemon) Resume() {
	d.currentScheduler().Resume()
	d.logger.Info("polling resumed")
	d.Wake()
}

// Paused reports whether cycle execution is suspended.
func (d *Daemon) Paused() bool {
	return d.currentScheduler().Paused()
}

// Wake nudges the loop to run a cycle without waiting out the timer.
func (d *Daemon) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Decide applies an operator decision for an identity. This is the
// inbound decision path; it wakes the loop so the actuation happens on
// the next cycle rather than after a full jittered interval.
func (d *Daemon) Decide(ctx context.Context, identityKey, verdict string) (*decision.Record, error) {
	parsed, ok := decision.ParseDecision(verdict)
	if !ok {
		return nil, fmt.Errorf("unknown decision %q (want approve or decline)", verdict)
	}
	identityKey = strings.TrimSpace(identityKey)
	if identityKey == "" {
		return nil, errors.New("identity key required")
	}

	record, err := d.store.ApplyDecision(ctx, identityKey, parsed)
	if err != nil {
		return nil, err
	}
	d.logger.Info("decision applied",
		logging.String(logging.FieldIdentity, identityKey),
		logging.String("decision", string(parsed)))
	d.Wake()
	return record, nil
}

// ListRecords returns decision records filtered by optional statuses.
func (d *Daemon) ListRecords(ctx context.Context, statuses []decision.Status) ([]*decision.Record, error) {
	return d.store.List(ctx, statuses...)
}

// GetRecord fetches one decision record by identity key.
func (d *Daemon) GetRecord(ctx context.Context, identityKey string) (*decision.Record, error) {
	record, err := d.store.Get(ctx, identityKey)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("no record for %q", identityKey)
	}
	return record, nil
}

// Status reports current daemon state.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:  d.running.Load(),
		Paused:   d.Paused(),
		PID:      os.Getpid(),
		DBPath:   d.store.Path(),
		LockPath: d.lockPath,
	}
	if health, err := d.store.Health(ctx); err == nil {
		status.Records = health
	}
	d.mu.Lock()
	status.LastCycle = d.lastCycle
	status.LastError = d.lastError
	d.mu.Unlock()
	return status
}

// TestNotification sends a test notification through the configured sink.
func (d *Daemon) TestNotification(ctx context.Context) error {
	return d.currentNotifier().TestNotification(ctx)
}

// DatabaseHealth runs diagnostics against the decision database file.
func (d *Daemon) DatabaseHealth(ctx context.Context) decision.DatabaseHealth {
	return decision.CheckHealth(ctx, d.store.Path())
}

// LogPath returns the daemon log file location, empty when file logging
// is disabled.
func (d *Daemon) LogPath() string {
	if d.cfg.Paths.DataDir == "" {
		return ""
	}
	return filepath.Join(d.cfg.Paths.DataDir, "doorman.log")
}

func resetTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}
