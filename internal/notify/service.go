package notify

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"doorman/internal/config"
	"doorman/internal/textutil"
)

const userAgent = "Doorman-Go/0.1.0"

// RunSummary describes one completed reconciliation cycle.
type RunSummary struct {
	CycleID  string
	Seen     int
	Notified int
	Executed int
	Errors   int
	Duration time.Duration
}

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	// NotifyNewRequest announces a newly observed pending request, with the
	// card snapshot attached when available.
	NotifyNewRequest(ctx context.Context, displayName string, snapshot image.Image) error
	NotifyExecuted(ctx context.Context, displayName, decision string) error
	NotifyRunSummary(ctx context.Context, summary RunSummary) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		events:   cfg.Notifications,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	events   config.Notifications
}

func (n *ntfyService) NotifyNewRequest(ctx context.Context, displayName string, snapshot image.Image) error {
	if !n.events.NewRequest {
		return nil
	}
	displayName = strings.TrimSpace(displayName)
	data := payload{
		title:    "Doorman - New Request",
		message:  fmt.Sprintf("New membership request: %s", displayName),
		tags:     []string{"doorman", "request", "pending"},
		priority: "high",
	}
	if snapshot != nil {
		filename := textutil.SanitizeToken(displayName) + ".png"
		return n.sendWithAttachment(ctx, data, filename, snapshot)
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyExecuted(ctx context.Context, displayName, decision string) error {
	if !n.events.Executed {
		return nil
	}
	displayName = strings.TrimSpace(displayName)
	decision = strings.TrimSpace(decision)
	data := payload{
		title:   "Doorman - Request Handled",
		message: fmt.Sprintf("Applied %s for: %s", decision, displayName),
		tags:    []string{"doorman", "request", "executed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunSummary(ctx context.Context, summary RunSummary) error {
	if !n.events.RunSummary {
		return nil
	}
	duration := summary.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	data := payload{
		title: "Doorman - Cycle Complete",
		message: fmt.Sprintf("Cycle done in %s: %d seen, %d new, %d executed, %d errors",
			duration, summary.Seen, summary.Notified, summary.Executed, summary.Errors),
		tags: []string{"doorman", "cycle", "completed"},
	}
	if summary.Errors > 0 {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.events.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Doorman - Error",
		message:  builder.String(),
		tags:     []string{"doorman", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Doorman - Test",
		message:  "Notification system test",
		tags:     []string{"doorman", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	applyHeaders(req, data)
	return n.do(req)
}

// sendWithAttachment publishes the message as headers and the PNG snapshot
// as the request body, which ntfy turns into an inline attachment.
func (n *ntfyService) sendWithAttachment(ctx context.Context, data payload, filename string, snapshot image.Image) error {
	var body bytes.Buffer
	if err := png.Encode(&body, snapshot); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, n.endpoint, &body)
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Filename", filename)
	req.Header.Set("X-Message", data.message)
	applyHeaders(req, data)
	return n.do(req)
}

func applyHeaders(req *http.Request, data payload) {
	req.Header.Set("User-Agent", userAgent)
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}
}

func (n *ntfyService) do(req *http.Request) error {
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyNewRequest(context.Context, string, image.Image) error { return nil }
func (noopService) NotifyExecuted(context.Context, string, string) error        { return nil }
func (noopService) NotifyRunSummary(context.Context, RunSummary) error          { return nil }
func (noopService) NotifyError(context.Context, error, string) error            { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
