package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/loykin/longrun/internal/operation"
)

// Client provides HTTP client functionality to communicate with a longrun daemon.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger // Optional logger for client operations
}

// DefaultConfig returns default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080/api",
		Timeout: 10 * time.Second,
	}
}

// New creates a new longrun API client.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8080/api"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: config.BaseURL,
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the daemon is running and reachable.
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/operations", nil)
	if err != nil {
		c.logger.Debug("Failed to create request for reachability check", "error", err)
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("Daemon unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	isReachable := resp.StatusCode != http.StatusNotFound
	c.logger.Debug("Daemon reachability check", "reachable", isReachable, "status", resp.StatusCode)
	return isReachable
}

// StartOperation starts a new operation and returns its id.
func (c *Client) StartOperation(ctx context.Context, req StartRequest) (string, error) {
	c.logger.Debug("Starting operation", "duration", req.Duration)

	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	body, err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/start", data)
	if err != nil {
		return "", err
	}
	var sr StartResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	c.logger.Debug("Operation started", "id", sr.ID)
	return sr.ID, nil
}

// Pause pauses a running operation.
func (c *Client) Pause(ctx context.Context, id string) error {
	return c.signal(ctx, "pause", id)
}

// Resume resumes a paused operation.
func (c *Client) Resume(ctx context.Context, id string) error {
	return c.signal(ctx, "resume", id)
}

// Cancel requests cancellation of an operation.
func (c *Client) Cancel(ctx context.Context, id string) error {
	return c.signal(ctx, "cancel", id)
}

func (c *Client) signal(ctx context.Context, verb, id string) error {
	c.logger.Debug("Signalling operation", "verb", verb, "id", id)
	u := fmt.Sprintf("%s/%s?id=%s", c.baseURL, verb, url.QueryEscape(id))
	_, err := c.doRequest(ctx, http.MethodPost, u, nil)
	return err
}

// ListOperations fetches the full operation list.
func (c *Client) ListOperations(ctx context.Context) ([]operation.Record, error) {
	body, err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/operations", nil)
	if err != nil {
		return nil, err
	}
	var recs []operation.Record
	if err := json.Unmarshal(body, &recs); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return recs, nil
}

// doRequest performs an HTTP request with common error handling and returns
// the response body for 200 responses.
func (c *Client) doRequest(ctx context.Context, method, u string, body []byte) ([]byte, error) {
	var rd *bytes.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err, "url", u)
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return buf.Bytes(), nil
}

// handleErrorResponse handles HTTP error responses.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	var errorResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
		c.logger.Error("Failed to decode error response", "status", resp.StatusCode)
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	c.logger.Error("API request failed", "error", errorResp.Error, "status", resp.StatusCode)
	return fmt.Errorf("API error: %s", errorResp.Error)
}
