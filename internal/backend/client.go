// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend is the HTTP client for the chat completion backend.
//
// One turn is one POST {base}/chat with a JSON body and a JSON reply.
// There is no streaming and no retry: a failed turn is reported to the
// caller, who shows it and lets the user send again.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// Configuration constants for the backend API.
const (
	// DefaultBaseURL is where a locally started backend listens.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds one round trip at the transport level.
	DefaultTimeout = 120 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	chatPath = "/chat"
)

// Error variables for backend failures.
var (
	// ErrMalformedReply indicates a 2xx reply that is not {"response": string, ...}.
	ErrMalformedReply = errors.New("malformed backend reply")

	// ErrInvalidBaseURL indicates a base URL that is not absolute http(s).
	ErrInvalidBaseURL = errors.New("invalid backend URL")

	// ErrEmptyMessage is returned when a request has no message text.
	ErrEmptyMessage = errors.New("message is empty")
)

// StatusError represents a non-success HTTP status from the backend.
type StatusError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend error (HTTP %d)", e.Status)
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// Request is the body of a chat call. Only Message is required by the
// minimal backend; the rest are sent when set.
type Request struct {
	Message string `json:"message"`
	UserID  string `json:"userId,omitempty"`
	Model   string `json:"model,omitempty"`
	Role    string `json:"role,omitempty"`
}

// Reply is a well-formed backend answer.
type Reply struct {
	Response string
	Sources  []string
}

type wireReply struct {
	Response *string  `json:"response"`
	Sources  []string `json:"sources"`
}

// apiErrorResponse covers the {"detail": ...} shape of FastAPI errors.
type apiErrorResponse struct {
	Detail json.RawMessage `json:"detail"`
	Error  string          `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat backend. It is safe for concurrent use.
type Client struct {
	mu      sync.RWMutex
	baseURL string

	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the transport timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithRateLimit throttles the client to perMinute requests. Zero disables it.
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		if perMinute > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.SetBaseURL(baseURL); err != nil {
		return nil, err
	}
	return c, nil
}

// SetBaseURL changes the backend address for subsequent requests.
func (c *Client) SetBaseURL(raw string) error {
	normalized, err := NormalizeBaseURL(raw)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.baseURL = normalized
	c.mu.Unlock()
	return nil
}

// BaseURL returns the current backend address.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// NormalizeBaseURL validates raw and strips trailing slashes. An empty
// value yields DefaultBaseURL.
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultBaseURL, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

// Complete sends one chat request and returns the backend's reply.
//
// Errors are a *StatusError for non-2xx replies, ErrMalformedReply for
// undecodable bodies, or the transport error.
func (c *Client) Complete(ctx context.Context, req Request) (Reply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return Reply{}, ErrEmptyMessage
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Reply{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL()+chatPath, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	c.logRequest(httpReq)
	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("backend request failed", "path", chatPath, "duration", time.Since(start), "err", err)
		return Reply{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logResponse(resp, time.Since(start))

	data, err := readResponse(resp)
	if err != nil {
		return Reply{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Reply{}, handleErrorResponse(resp.StatusCode, data)
	}

	return decodeReply(data)
}

func decodeReply(data []byte) (Reply, error) {
	var wr wireReply
	if err := json.Unmarshal(data, &wr); err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if wr.Response == nil {
		return Reply{}, fmt.Errorf("%w: missing response field", ErrMalformedReply)
	}

	reply := Reply{Response: *wr.Response}
	if len(wr.Sources) > 0 {
		reply.Sources = wr.Sources
	}
	return reply, nil
}

// readResponse reads the body up to MaxResponseSize.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(data) > MaxResponseSize {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", ErrMalformedReply, MaxResponseSize)
	}
	return data, nil
}

// handleErrorResponse extracts a short message from an error body.
func handleErrorResponse(status int, data []byte) error {
	var apiErr apiErrorResponse
	msg := ""
	if err := json.Unmarshal(data, &apiErr); err == nil {
		var detail string
		if json.Unmarshal(apiErr.Detail, &detail) == nil {
			msg = detail
		} else if apiErr.Error != "" {
			msg = apiErr.Error
		}
	}
	return &StatusError{Status: status, Message: msg}
}

// =============================================================================
// Request/Response Logging (without message bodies)
// =============================================================================

func (c *Client) logRequest(req *http.Request) {
	c.logger.Debug("backend request", "method", req.Method, "path", req.URL.Path)
}

func (c *Client) logResponse(resp *http.Response, duration time.Duration) {
	if resp.StatusCode >= 300 {
		c.logger.Warn("backend response", "status", resp.StatusCode, "duration", duration)
		return
	}
	c.logger.Debug("backend response", "status", resp.StatusCode, "duration", duration)
}
