package logs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			t.Fatalf("write log: %v", err)
		}
	}
}

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doorman.log")
	writeLines(t, path, "one", "two", "three", "four")

	result, err := Tail(context.Background(), path, TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[0] != "three" || result.Lines[1] != "four" {
		t.Fatalf("unexpected lines %v", result.Lines)
	}
	if result.Offset <= 0 {
		t.Fatalf("expected positive offset, got %d", result.Offset)
	}
}

func TestTailResumesFromOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doorman.log")
	writeLines(t, path, "first")

	initial, err := Tail(context.Background(), path, TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}

	writeLines(t, path, "second", "third")
	next, err := Tail(context.Background(), path, TailOptions{Offset: initial.Offset})
	if err != nil {
		t.Fatalf("resume tail: %v", err)
	}
	if len(next.Lines) != 2 || next.Lines[0] != "second" {
		t.Fatalf("unexpected lines %v", next.Lines)
	}
}

func TestTailMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.log")
	result, err := Tail(context.Background(), path, TailOptions{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestTailTruncationRestartsFromTop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doorman.log")
	writeLines(t, path, "a long line that will be truncated away")

	initial, err := Tail(context.Background(), path, TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}

	if err := os.WriteFile(path, []byte("fresh\n"), 0o644); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	result, err := Tail(context.Background(), path, TailOptions{Offset: initial.Offset})
	if err != nil {
		t.Fatalf("tail after truncate: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "fresh" {
		t.Fatalf("unexpected lines %v", result.Lines)
	}
}

func TestTailFollowWaitsForLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doorman.log")
	writeLines(t, path, "seed")

	initial, err := Tail(context.Background(), path, TailOptions{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}

	go func() {
		time.Sleep(300 * time.Millisecond)
		writeLines(t, path, "late arrival")
	}()

	result, err := Tail(context.Background(), path, TailOptions{
		Offset: initial.Offset,
		Follow: true,
		Wait:   2 * time.Second,
	})
	if err != nil {
		t.Fatalf("follow tail: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "late arrival" {
		t.Fatalf("unexpected lines %v", result.Lines)
	}
}
