package notify

import (
	"context"
	"errors"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"doorman/internal/config"
)

type captured struct {
	method  string
	headers http.Header
	body    []byte
}

func newNtfyServer(t *testing.T) (*httptest.Server, *[]captured) {
	t.Helper()
	var requests []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, captured{method: r.Method, headers: r.Header.Clone(), body: body})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func serviceFor(url string) Service {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	cfg.Notifications.RequestTimeout = 5
	cfg.Notifications.NewRequest = true
	cfg.Notifications.Executed = true
	cfg.Notifications.RunSummary = true
	cfg.Notifications.Errors = true
	return NewService(&cfg)
}

func TestNoopWhenTopicUnset(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	service := NewService(&cfg)
	if _, ok := service.(noopService); !ok {
		t.Fatalf("expected noop service, got %T", service)
	}
	if err := service.NotifyNewRequest(context.Background(), "Mario Rossi", nil); err != nil {
		t.Fatalf("noop must not error: %v", err)
	}
}

func TestNotifyNewRequestWithSnapshot(t *testing.T) {
	server, requests := newNtfyServer(t)
	service := serviceFor(server.URL)

	snapshot := image.NewRGBA(image.Rect(0, 0, 10, 10))
	if err := service.NotifyNewRequest(context.Background(), "Mario Rossi", snapshot); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(*requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*requests))
	}
	req := (*requests)[0]
	if req.method != http.MethodPut {
		t.Errorf("snapshot notification should PUT, got %s", req.method)
	}
	if got := req.headers.Get("Filename"); got != "mario_rossi.png" {
		t.Errorf("filename header %q", got)
	}
	if req.headers.Get("Title") == "" || req.headers.Get("X-Message") == "" {
		t.Error("expected title and message headers on attachment upload")
	}
	if len(req.body) == 0 || string(req.body[1:4]) != "PNG" {
		t.Error("expected PNG body")
	}
}

func TestNotifyNewRequestWithoutSnapshot(t *testing.T) {
	server, requests := newNtfyServer(t)
	service := serviceFor(server.URL)

	if err := service.NotifyNewRequest(context.Background(), "Anna Bianchi", nil); err != nil {
		t.Fatalf("notify: %v", err)
	}
	req := (*requests)[0]
	if req.method != http.MethodPost {
		t.Errorf("plain notification should POST, got %s", req.method)
	}
	if got := string(req.body); got != "New membership request: Anna Bianchi" {
		t.Errorf("body %q", got)
	}
}

func TestEventGating(t *testing.T) {
	server, requests := newNtfyServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.NewRequest = false
	cfg.Notifications.Executed = false
	cfg.Notifications.RunSummary = false
	cfg.Notifications.Errors = false
	service := NewService(&cfg)

	ctx := context.Background()
	_ = service.NotifyNewRequest(ctx, "x", nil)
	_ = service.NotifyExecuted(ctx, "x", "approve")
	_ = service.NotifyRunSummary(ctx, RunSummary{})
	_ = service.NotifyError(ctx, errors.New("boom"), "cycle")

	if len(*requests) != 0 {
		t.Fatalf("disabled events must not send, got %d requests", len(*requests))
	}

	// The test notification ignores gating; it exists to verify delivery.
	if err := service.TestNotification(ctx); err != nil {
		t.Fatalf("test notification: %v", err)
	}
	if len(*requests) != 1 {
		t.Fatalf("expected test notification to send, got %d requests", len(*requests))
	}
}

func TestNotifyRunSummary(t *testing.T) {
	server, requests := newNtfyServer(t)
	service := serviceFor(server.URL)

	summary := RunSummary{Seen: 4, Notified: 2, Executed: 1, Errors: 1, Duration: 3*time.Second + 400*time.Millisecond}
	if err := service.NotifyRunSummary(context.Background(), summary); err != nil {
		t.Fatalf("notify: %v", err)
	}
	req := (*requests)[0]
	if got := req.headers.Get("Priority"); got != "high" {
		t.Errorf("cycle with errors should be high priority, got %q", got)
	}
	if got := string(req.body); got != "Cycle done in 3s: 4 seen, 2 new, 1 executed, 1 errors" {
		t.Errorf("body %q", got)
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic blocked", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	service := serviceFor(server.URL)
	if err := service.NotifyExecuted(context.Background(), "Mario Rossi", "approve"); err == nil {
		t.Fatal("expected error from 403 response")
	}
}
