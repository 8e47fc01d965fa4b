package reconcile

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"doorman/internal/textutil"
)

// SaveSnapshot writes a card crop as a PNG named after the identity key
// and observation time. An empty directory disables snapshots.
func SaveSnapshot(dir, identityKey string, crop image.Image, observedAt time.Time) (string, error) {
	if dir == "" || crop == nil {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s.png", textutil.SanitizeToken(identityKey), observedAt.UTC().Format("20060102T150405"))
	path := filepath.Join(dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, crop); err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return path, nil
}

// PruneSnapshots deletes snapshot PNGs older than maxAge and returns how
// many were removed.
func PruneSnapshots(dir string, maxAge time.Duration) (int, error) {
	if dir == "" || maxAge <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read snapshot dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
