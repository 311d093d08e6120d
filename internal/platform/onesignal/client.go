// Package onesignal is the HTTP client for the OneSignal REST API.
package onesignal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tinywideclouds/go-device-service/pkg/device"
)

const (
	DefaultBaseURL = "https://onesignal.com/api/v1/"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 2048

	// RequestIDHeader carries a per-call id so log lines can be matched with
	// the upstream request.
	RequestIDHeader = "X-Request-Id"
)

// Config holds what the client needs to reach one OneSignal account.
type Config struct {
	BaseURL string
	// APIKey is the REST API key, sent as "Authorization: Basic <key>".
	APIKey  string
	Timeout time.Duration
}

// Client implements device.APIClient over net/http.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ device.APIClient = (*Client)(nil)

// NewClient validates cfg and builds a client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("onesignal api key is required")
	}

	base := cfg.BaseURL
	if strings.TrimSpace(base) == "" {
		base = DefaultBaseURL
	}
	// Relative resolution drops the last segment unless the base ends in "/".
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid onesignal base url: %w", err)
	}

	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    parsed,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger.With("component", "OneSignalClient"),
	}, nil
}

func (c *Client) Post(ctx context.Context, path string, body any) (device.Result, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

func (c *Client) Put(ctx context.Context, path string, body any) (device.Result, error) {
	return c.do(ctx, http.MethodPut, path, nil, body)
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (device.Result, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (device.Result, error) {
	fail := func(status int, cause error) *device.TransportError {
		return &device.TransportError{Method: method, Path: path, StatusCode: status, Err: cause}
	}

	ref, err := url.Parse(path)
	if err != nil {
		return nil, fail(0, fmt.Errorf("invalid path: %w", err))
	}
	endpoint := c.baseURL.ResolveReference(ref)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fail(0, fmt.Errorf("failed to marshal request body: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, fail(0, fmt.Errorf("failed to create request: %w", err))
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Authorization", "Basic "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("OneSignal transport error", "request_id", requestID, "method", method, "path", path, "err", err)
		return nil, fail(0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	c.logger.Debug("OneSignal call complete",
		"request_id", requestID,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		tErr := fail(resp.StatusCode, nil)
		tErr.Errors = parseErrors(raw)
		tErr.Body = truncate(raw)
		c.logger.Warn("OneSignal rejected request", "request_id", requestID, "method", method, "path", path, "status", resp.StatusCode, "errors", tErr.Errors)
		return nil, tErr
	}

	result := device.Result{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		tErr := fail(resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
		tErr.Body = truncate(raw)
		return nil, tErr
	}
	return result, nil
}

// parseErrors extracts OneSignal's "errors" field, which is either a list of
// messages, a single message or an object keyed by error kind.
func parseErrors(raw []byte) []string {
	var envelope struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.Errors) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(envelope.Errors, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(envelope.Errors, &single); err == nil {
		return []string{single}
	}
	var keyed map[string]any
	if err := json.Unmarshal(envelope.Errors, &keyed); err == nil {
		out := make([]string, 0, len(keyed))
		for k, v := range keyed {
			out = append(out, fmt.Sprintf("%s: %v", k, v))
		}
		sort.Strings(out)
		return out
	}
	return nil
}

func truncate(raw []byte) string {
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}
	return strings.TrimSpace(string(raw))
}
