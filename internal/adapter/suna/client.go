// Package suna provides an HTTP client for the Suna Core execution
// engine API.
package suna

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rcarraroia/renum/internal/port/agentruntime"
	"github.com/rcarraroia/renum/internal/resilience"
)

// Client talks to the Suna Core API. It implements agentruntime.Runtime.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a Suna Core client authenticated with the service key.
func NewClient(baseURL, serviceKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// StartRun submits a run to the engine and returns its run ID.
func (c *Client) StartRun(ctx context.Context, req agentruntime.StartRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal start request: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, "/api/runs", body)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}

	var resp struct {
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("unmarshal start response: %w", err)
	}
	if resp.RunID == "" {
		return "", fmt.Errorf("engine returned no run_id")
	}
	return resp.RunID, nil
}

// GetRun fetches the current state of a run.
func (c *Client) GetRun(ctx context.Context, runID string) (*agentruntime.RunStatus, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/runs/"+runID, nil)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	var st agentruntime.RunStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal run status: %w", err)
	}
	return &st, nil
}

// CancelRun asks the engine to stop a run.
func (c *Client) CancelRun(ctx context.Context, runID string) error {
	if _, err := c.do(ctx, http.MethodPost, "/api/runs/"+runID+"/cancel", nil); err != nil {
		return fmt.Errorf("cancel run: %w", err)
	}
	return nil
}

// Health checks that the engine is reachable.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodGet, "/api/health", nil); err != nil {
		return fmt.Errorf("engine health: %w", err)
	}
	return nil
}

// BreakerState reports the circuit state for health endpoints, or
// "closed" when no breaker is attached.
func (c *Client) BreakerState() resilience.State {
	if c.breaker == nil {
		return resilience.StateClosed
	}
	return c.breaker.State()
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func(ctx context.Context) error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.serviceKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.serviceKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("suna API error %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(ctx, call); err != nil {
			return nil, err
		}
		return result, nil
	}
	if err := call(ctx); err != nil {
		return nil, err
	}
	return result, nil
}
