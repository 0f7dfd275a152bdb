package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"ev-forecast-lab/internal/domain"
)

// DefaultHTTPTimeout bounds a single prediction call.
const DefaultHTTPTimeout = 10 * time.Second

// maxResponseBytes caps how much of a response body we read.
const maxResponseBytes = 1 << 20

// HTTPModel calls a model service that serves the fitted regressor
// over JSON. One POST per forecast step, no retries: the model is
// deterministic, so a failed call fails the entity's forecast instead
// of being retried.
type HTTPModel struct {
	endpoint   string
	id         string
	timeout    time.Duration
	httpClient *http.Client
}

// Compile-time interface check.
var _ Model = (*HTTPModel)(nil)

// HTTPOption configures an HTTPModel.
type HTTPOption func(*HTTPModel)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(m *HTTPModel) {
		m.timeout = d
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(m *HTTPModel) {
		m.httpClient = c
	}
}

// WithID overrides the model identity recorded in run metadata.
func WithID(id string) HTTPOption {
	return func(m *HTTPModel) {
		m.id = id
	}
}

// NewHTTPModel creates a client for the model service at endpoint.
func NewHTTPModel(endpoint string, opts ...HTTPOption) *HTTPModel {
	m := &HTTPModel{
		endpoint:   strings.TrimRight(endpoint, "/"),
		id:         "http",
		timeout:    DefaultHTTPTimeout,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// predictRequest is the wire format of one prediction call. Columns
// carries the training feature order so the service can align inputs
// without relying on map iteration order.
type predictRequest struct {
	Columns  []string           `json:"columns"`
	Features map[string]float64 `json:"features"`
}

// predictResponse is the wire format of the service reply.
type predictResponse struct {
	Prediction float64 `json:"prediction"`
}

// healthResponse is the wire format of the liveness reply.
type healthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model,omitempty"`
}

// Predict posts one feature vector to the service's /predict endpoint.
func (m *HTTPModel) Predict(ctx context.Context, features domain.FeatureVector) (float64, error) {
	payload, err := json.Marshal(predictRequest{
		Columns:  domain.FeatureNames,
		Features: features.Named(),
	})
	if err != nil {
		return 0, fmt.Errorf("marshal predict request: %w", err)
	}

	body, err := m.post(ctx, "/predict", payload)
	if err != nil {
		return 0, err
	}

	var decoded predictResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return 0, fmt.Errorf("decode predict response: %w", err)
	}
	if math.IsNaN(decoded.Prediction) || math.IsInf(decoded.Prediction, 0) {
		return 0, fmt.Errorf("model service returned non-finite prediction %v", decoded.Prediction)
	}
	return decoded.Prediction, nil
}

// Health checks the model service liveness endpoint.
func (m *HTTPModel) Health(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, m.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call model service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model service unhealthy: status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var decoded healthResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}
	if decoded.Status != "ok" {
		return fmt.Errorf("model service unhealthy: status %q", decoded.Status)
	}
	return nil
}

// ID returns the configured model identity.
func (m *HTTPModel) ID() string {
	return m.id
}

// post sends a JSON payload and returns the response body on HTTP 200.
func (m *HTTPModel) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, m.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call model service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model service returned status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

// truncate shortens a response body for error messages.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
