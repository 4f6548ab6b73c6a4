// Package estimator provides the client for the external pose-estimation
// service. The service receives a JPEG frame and returns detected keypoints;
// an empty skeleton means no subject was found.
package estimator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"formcoach/internal/domain"
)

// Estimator estimates a skeleton from one encoded video frame.
type Estimator interface {
	Estimate(ctx context.Context, frame []byte) (domain.Skeleton, error)
}

// HTTPEstimator calls a pose-estimation service over JSON/HTTP.
type HTTPEstimator struct {
	url    string
	client *http.Client
}

// DefaultTimeout bounds one inference round trip. Frames arrive continuously,
// so a slow estimate is worth less than the next frame.
const DefaultTimeout = 10 * time.Second

// NewHTTP creates an estimator client for the given endpoint.
func NewHTTP(url string, timeout time.Duration) *HTTPEstimator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPEstimator{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type estimateRequest struct {
	Image []byte `json:"image"` // base64-encoded JPEG via encoding/json
}

type estimateResponse struct {
	Keypoints []domain.Keypoint `json:"keypoints"`
}

// Estimate posts the frame and decodes the returned keypoints.
func (e *HTTPEstimator) Estimate(ctx context.Context, frame []byte) (domain.Skeleton, error) {
	body, err := json.Marshal(estimateRequest{Image: frame})
	if err != nil {
		return nil, fmt.Errorf("encode estimate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build estimate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call pose estimator: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pose estimator returned status %d", resp.StatusCode)
	}

	var out estimateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode estimate response: %w", err)
	}
	return out.Keypoints, nil
}
