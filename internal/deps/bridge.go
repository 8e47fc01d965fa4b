package deps

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const bridgeProbeTimeout = 3 * time.Second

// CheckBridge probes the browser bridge with a short HTTP request. The
// bridge runs out of process, so a failed probe is a reachability problem
// rather than a missing binary.
func CheckBridge(ctx context.Context, baseURL string) Status {
	result := Status{
		Name:        "Browser bridge",
		Description: "Remote-controlled browser used for capture and clicks",
	}

	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		result.Detail = "bridge URL not configured"
		return result
	}
	result.Command = baseURL

	probeCtx, cancel := context.WithTimeout(ctx, bridgeProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, baseURL+"/status", nil)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		result.Detail = fmt.Sprintf("bridge unreachable: %v", err)
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		result.Detail = fmt.Sprintf("bridge returned status %d", resp.StatusCode)
		return result
	}
	result.Available = true
	return result
}
