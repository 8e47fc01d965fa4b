package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client implements Surface against the bridge HTTP API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	captureTimeout time.Duration
	clickTimeout   time.Duration
}

// NewClient constructs a bridge client. Capture gets its own timeout
// because full-page screenshots can take several seconds on long lists.
func NewClient(baseURL string, captureTimeoutSeconds, clickTimeoutSeconds int) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("bridge base URL required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse bridge URL: %w", err)
	}
	return &Client{
		baseURL:        baseURL,
		httpClient:     &http.Client{},
		captureTimeout: time.Duration(captureTimeoutSeconds) * time.Second,
		clickTimeout:   time.Duration(clickTimeoutSeconds) * time.Second,
	}, nil
}

// CapturePage fetches a full-page PNG screenshot from the bridge.
func (c *Client) CapturePage(ctx context.Context) (image.Image, error) {
	ctx, cancel := withTimeout(ctx, c.captureTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/screenshot?full=1", nil)
	if err != nil {
		return nil, fmt.Errorf("build capture request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("capture page: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("capture page: bridge returned %s", resp.Status)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

// Click asks the bridge to press the page at an absolute coordinate.
func (c *Client) Click(ctx context.Context, at image.Point) error {
	payload := struct {
		X int `json:"x"`
		Y int `json:"y"`
	}{X: at.X, Y: at.Y}
	return c.postJSON(ctx, "/click", payload, c.clickTimeout)
}

// Navigate loads a URL in the bridge's browser session.
func (c *Client) Navigate(ctx context.Context, target string) error {
	payload := struct {
		URL string `json:"url"`
	}{URL: target}
	return c.postJSON(ctx, "/navigate", payload, c.captureTimeout)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, timeout time.Duration) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bridge %s: %w", path, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("bridge %s: returned %s", path, resp.Status)
	}
	return nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<20))
	_ = body.Close()
}
