// Package model talks to the external regression model service over HTTP.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hydrotech/groundwater-serve/internal/domain"
)

// Client implements service.Predictor against the model's HTTP surface.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	ready      atomic.Bool
}

// NewClient creates a model client. baseURL points at the model service root.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Predict posts a feature vector and returns the raw predicted level in
// meters. Transport and non-200 failures wrap domain.ErrModelUnavailable.
func (c *Client) Predict(ctx context.Context, features domain.FeatureVector) (float64, error) {
	body, err := json.Marshal(predictRequest{Features: features})
	if err != nil {
		return 0, fmt.Errorf("encode predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("%w: status %d: %s", domain.ErrModelUnavailable, resp.StatusCode, b)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode predict response: %w", err)
	}

	c.ready.Store(true)
	return out.PredictedLevelM, nil
}

// CheckReadiness reports whether the model service is reachable. After the
// first successful prediction the cached flag answers without a probe.
func (c *Client) CheckReadiness(ctx context.Context) error {
	if c.ready.Load() {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("create readiness request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", domain.ErrModelUnavailable, resp.StatusCode)
	}
	c.ready.Store(true)
	return nil
}

// Model service wire types.

type predictRequest struct {
	Features domain.FeatureVector `json:"features"`
}

type predictResponse struct {
	PredictedLevelM float64 `json:"predicted_level_m"`
}
