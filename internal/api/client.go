// Package api is the HTTP boundary to the remote ShareCycle platform.
// It owns the request wrapper (auth header injection, JSON codec, error
// message extraction) and typed wrappers for every endpoint the console
// consumes. All business logic lives server-side; callers catch errors
// and map them to user-facing feedback themselves.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sharecycle-console/internal/common/logger"
	"github.com/sharecycle-console/internal/observability"
)

const userAgent = "sharecycle-console/1.0"

// TokenSource supplies the current session bearer token. An empty string
// means no session.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource for a fixed token, used by tests and
// one-off calls.
type StaticToken string

func (s StaticToken) Token() string { return string(s) }

// APIError carries the HTTP status and the human-readable message
// extracted from the response body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string { return e.Message }

// RequestOptions tune a single request.
type RequestOptions struct {
	// Token overrides the client's token source for this request.
	Token string
	// SkipAuth suppresses the Authorization header entirely.
	SkipAuth bool
}

// Client is the generic request wrapper. Every request is bounded by the
// HTTP client timeout so a hung call cannot hold a pending-action lock
// forever.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, log logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		tokens: tokens,
		logger: log,
	}
}

// BaseURL returns the configured platform base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Request performs an HTTP call against the platform. body, when non-nil,
// is JSON-encoded; out, when non-nil, receives the decoded JSON response.
// 204 responses and non-JSON content types leave out untouched.
func (c *Client) Request(ctx context.Context, method, path string, body any, out any, opts *RequestOptions) error {
	var reader io.Reader
	hasBody := body != nil
	if hasBody {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	if hasBody && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())

	skipAuth := opts != nil && opts.SkipAuth
	if !skipAuth {
		token := ""
		if opts != nil {
			token = opts.Token
		}
		if token == "" && c.tokens != nil {
			token = c.tokens.Token()
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	observability.APIRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.APIRequestsTotal.WithLabelValues(method, "transport_error").Inc()
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		observability.APIRequestsTotal.WithLabelValues(method, "http_error").Inc()
		msg := extractErrorMessage(resp)
		c.logger.Debug("API request failed", "method", method, "path", path, "status", resp.StatusCode, "message", msg)
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	observability.APIRequestsTotal.WithLabelValues(method, "ok").Inc()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}
	return nil
}

// extractErrorMessage turns a non-2xx response into a single display
// string: JSON {message}, then plain body text, then HTTP status text,
// then a generic fallback.
func extractErrorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return msg
		}
	}

	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}

	if text := http.StatusText(resp.StatusCode); text != "" {
		if resp.StatusCode == http.StatusUnauthorized {
			return "Unauthorized. Please sign in again."
		}
		return text
	}

	return fmt.Sprintf("Request failed with status %d", resp.StatusCode)
}
