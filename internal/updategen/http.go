package updategen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fedagg/internal/domain/model"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// apiError mirrors the server's error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// submitUpdates posts one round to /aggregate and decodes the result.
func submitUpdates(ctx context.Context, client *HTTPClient, cfg *Config, roundID string, updates []model.ClientUpdate) (model.AggregatedModel, error) {
	body, err := json.Marshal(updates)
	if err != nil {
		return model.AggregatedModel{}, fmt.Errorf("failed to marshal updates: %w", err)
	}

	q := url.Values{}
	q.Set("clip", strconv.FormatFloat(cfg.Clip, 'g', -1, 64))
	q.Set("noise", strconv.FormatFloat(cfg.Noise, 'g', -1, 64))
	target := cfg.BaseURL + "/aggregate?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return model.AggregatedModel{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Round-ID", roundID)

	resp, err := client.client.Do(req)
	if err != nil {
		return model.AggregatedModel{}, fmt.Errorf("failed to submit updates: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.AggregatedModel{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Code != "" {
			return model.AggregatedModel{}, fmt.Errorf("server rejected round (%d %s): %s", resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return model.AggregatedModel{}, fmt.Errorf("server rejected round with status %d", resp.StatusCode)
	}

	var out model.AggregatedModel
	if err := json.Unmarshal(data, &out); err != nil {
		return model.AggregatedModel{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

// newRoundID returns a fresh round identifier.
func newRoundID() string {
	return uuid.NewString()
}
