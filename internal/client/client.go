// Package client calls the prediction service.
//
// Every call is a single round trip bounded by a fixed timeout. Nothing is
// retried: a failed call is reported to the caller as is.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opensource-finance/lendscore/internal/domain"
)

// DefaultTimeout bounds one call when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// ErrUnavailable wraps network and timeout failures.
var ErrUnavailable = errors.New("prediction service unavailable")

// APIError is a non-2xx response from the prediction service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("prediction service returned %d: %s", e.StatusCode, e.Message)
}

// Status is the body of GET /status.
type Status struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Failed  []string `json:"failed,omitempty"`
}

// Client is a prediction service client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the service at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Predict posts a feature vector and returns the service's prediction.
func (c *Client) Predict(ctx context.Context, vector domain.FeatureVector) (*domain.PredictionResult, error) {
	body, err := json.Marshal(vector)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	var result domain.PredictionResult
	if err := c.do(ctx, http.MethodPost, "/predict", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Status returns the service's artifact status. A 503 status is returned
// as a Status together with an *APIError.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var status Status
	err := c.do(ctx, http.MethodGet, "/status", nil, &status)
	var apiErr *APIError
	if err != nil && !errors.As(err, &apiErr) {
		return nil, err
	}
	return &status, err
}

// Columns returns the training columns the service's model expects.
func (c *Client) Columns(ctx context.Context) ([]string, error) {
	var resp struct {
		Columns []string `json:"columns"`
	}
	if err := c.do(ctx, http.MethodGet, "/columns", nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Columns) == 0 {
		return nil, errors.New("prediction service returned no columns")
	}
	return resp.Columns, nil
}

// do performs one request. For non-2xx responses out is still decoded when
// possible, and an *APIError carrying the "error" or "message" field is
// returned.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = json.Unmarshal(data, out)

		var e struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil {
			if e.Error != "" {
				msg = e.Error
			} else if e.Message != "" {
				msg = e.Message
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
