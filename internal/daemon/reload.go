package daemon

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"log/slog"

	"github.com/fsnotify/fsnotify"

	"doorman/internal/config"
	"doorman/internal/logging"
)

const reloadDebounce = 500 * time.Millisecond

// WatchConfig re-reads the configuration file whenever it changes and
// applies schedule and notification settings to the daemon without a
// restart. Editors tend to fire several events per save, so changes are
// debounced. The watcher runs until ctx is cancelled.
func WatchConfig(ctx context.Context, path string, d *Daemon, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory rather than the file: editors that replace the
	// file on save would otherwise drop the watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	log := logger.With(logging.String(logging.FieldComponent, "reload"))
	target := filepath.Clean(path)

	go func() {
		defer watcher.Close()

		var (
			mu      sync.Mutex
			pending *time.Timer
		)
		defer func() {
			mu.Lock()
			if pending != nil {
				pending.Stop()
			}
			mu.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				mu.Lock()
				if pending != nil {
					pending.Stop()
				}
				pending = time.AfterFunc(reloadDebounce, func() {
					reloadConfig(path, d, log)
				})
				mu.Unlock()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("config watcher error", logging.Error(err))
			}
		}
	}()

	log.Info("watching configuration", logging.String("path", target))
	return nil
}

func reloadConfig(path string, d *Daemon, log *slog.Logger) {
	cfg, resolvedPath, _, err := config.Load(path)
	if err != nil {
		log.Warn("config reload failed, keeping previous settings",
			logging.String("path", path),
			logging.Error(err))
		return
	}
	d.ApplyConfig(cfg)
	log.Info("configuration reloaded", logging.String("path", resolvedPath))
}
