// Package summary posts keypoint snapshots to an external narrative
// summarizer. The calls are fire-and-forget color for the UI; they carry no
// scoring responsibility and their failures never disturb the frame loop.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"formcoach/internal/domain"
)

// minInterval rate-limits outbound calls regardless of frame cadence.
const minInterval = 1000 * time.Millisecond

const requestTimeout = 5 * time.Second

// Client forwards skeleton snapshots to the summarizer endpoint.
type Client struct {
	url    string
	client *http.Client

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// New creates a summarizer client for the given endpoint.
func New(url string) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: requestTimeout},
		now:    time.Now,
	}
}

type snapshot struct {
	SessionID string          `json:"session_id"`
	Timestamp int64           `json:"ts"`
	Keypoints domain.Skeleton `json:"keypoints"`
}

// Observe forwards the latest skeleton at most once per second. The send
// happens on its own goroutine so the frame loop never blocks; delivery
// failures are logged and dropped.
func (c *Client) Observe(sessionID string, sk domain.Skeleton) {
	if len(sk) == 0 {
		return
	}

	c.mu.Lock()
	now := c.now()
	if now.Sub(c.last) < minInterval {
		c.mu.Unlock()
		return
	}
	c.last = now
	c.mu.Unlock()

	body, err := json.Marshal(snapshot{
		SessionID: sessionID,
		Timestamp: now.UnixMilli(),
		Keypoints: sk,
	})
	if err != nil {
		slog.Warn("Failed to encode summarizer snapshot", "error", err)
		return
	}

	go c.send(body)
}

func (c *Client) send(body []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		slog.Warn("Failed to build summarizer request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		slog.Warn("Summarizer call failed", "error", err)
		return
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		slog.Warn("Summarizer returned error status", "status", resp.StatusCode)
	}
}
