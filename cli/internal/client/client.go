// ABOUTME: HTTP client for the job board API behind the edge gateway
// ABOUTME: Attaches the session credential and invalidates the session on 401

package client

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
	"strings"
	"sync"
	"time"

	"github.com/codersneeded/miniapp/cli/internal/models"
	"github.com/codersneeded/miniapp/cli/internal/session"
)

// DefaultTimeout bounds every request, including resolution-phase calls.
const DefaultTimeout = 30 * time.Second

// ErrUnauthorized is returned alongside the response when the backend answers 401.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is a non-2xx backend answer.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend error: %s", e.Message)
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match 401 answers.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// Client is the API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      session.Store

	mu             sync.RWMutex
	onUnauthorized func()
}

// New creates a client for the API rooted at baseURL (e.g. http://localhost:3000/api).
func New(baseURL string, store session.Store) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		store: store,
	}
}

// SetTimeout replaces the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.httpClient.Timeout = d
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// OnUnauthorized registers the hook fired after a 401 on an ordinary call.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// Response is a fully read backend answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// sentWith is the stored credential the request carried, if any.
	sentWith models.Credential
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("invalid response from backend: %w", err)
	}
	return nil
}

// Err returns a StatusError for non-2xx answers.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return handleErrorResponse(r)
}

// Request issues method against path, relative to the API root. body may be
// nil, []byte, string, io.Reader, *Multipart or any JSON-encodable value.
// A 401 clears the session and fires the unauthorized hook, unless the
// session changed while the request was out. The response is returned
// together with ErrUnauthorized.
func (c *Client) Request(ctx context.Context, method, path string, body interface{}, headers http.Header) (*Response, error) {
	resp, err := c.do(ctx, method, path, body, headers)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidate(resp.sentWith, true)
		return resp, ErrUnauthorized
	}
	return resp, nil
}

// invalidate drops the session a 401 rejected. A credential saved after the
// request went out is left alone.
func (c *Client) invalidate(sent models.Credential, fireHook bool) {
	var current models.Credential
	if rec, err := c.store.Load(); err == nil && rec != nil {
		current = rec.Credential
	}
	if current != sent {
		slog.Debug("Ignoring 401 for a superseded credential")
		return
	}
	if err := c.store.Clear(); err != nil {
		slog.Warn("Failed to clear session after 401", "error", err)
	}
	if !fireHook {
		return
	}
	c.mu.RLock()
	hook := c.onUnauthorized
	c.mu.RUnlock()
	if hook != nil {
		hook()
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, headers http.Header) (*Response, error) {
	reader, contentType, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	sent := c.authorize(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.handleRequestError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.handleRequestError(ctx, err)
	}

	slog.Debug("API request",
		"method", method,
		"url", req.URL.Redacted(),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data, sentWith: sent}, nil
}

// authorize attaches the stored credential, if any, and returns it.
func (c *Client) authorize(req *http.Request) models.Credential {
	if req.Header.Get("Authorization") != "" {
		return ""
	}
	rec, err := c.store.Load()
	if err != nil {
		slog.Debug("Session unavailable, sending request anonymously", "error", err)
		return ""
	}
	if rec == nil || rec.Credential == "" {
		return ""
	}
	req.Header.Set("Authorization", "Bearer "+string(rec.Credential))
	return rec.Credential
}

// endpoint joins path onto the API root with exactly one trailing separator.
func (c *Client) endpoint(path string) string {
	p, query, _ := strings.Cut(path, "?")
	p = strings.Trim(p, "/")
	u := c.baseURL + "/"
	if p != "" {
		u += p + "/"
	}
	if query != "" {
		u += "?" + query
	}
	return u
}

// handleRequestError converts context errors to user-friendly messages
func (c *Client) handleRequestError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("request canceled")
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("request timed out")
	}
	return fmt.Errorf("cannot connect to backend at %s: %w", c.baseURL, err)
}

// handleErrorResponse parses API error responses. The gateway answers with
// {error, message}; the backend with {detail}.
func handleErrorResponse(resp *Response) error {
	var payload struct {
		Error   string          `json:"error"`
		Message string          `json:"message"`
		Detail  json.RawMessage `json:"detail"`
	}
	serr := &StatusError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return serr
	}
	switch {
	case len(payload.Detail) > 0:
		var detail string
		if json.Unmarshal(payload.Detail, &detail) == nil {
			serr.Message = detail
		} else {
			serr.Message = string(payload.Detail)
		}
	case payload.Error != "" && payload.Message != "":
		serr.Message = payload.Error + ": " + payload.Message
	default:
		serr.Message = payload.Error
	}
	return serr
}

func encodeBody(body interface{}) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return bytes.NewReader(b), "", nil
	case string:
		return strings.NewReader(b), "text/plain; charset=utf-8", nil
	case *Multipart:
		return b.encode()
	case io.Reader:
		return b, "", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// HealthResponse is the gateway /healthz answer.
type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Proxy   bool   `json:"proxy"`
}

// Health queries the gateway's /healthz, which sits beside the /api prefix.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/api") + "/healthz"
	u.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.handleRequestError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.handleRequestError(ctx, err)
	}
	r := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}
	if err := r.Err(); err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := r.Decode(&health); err != nil {
		return nil, err
	}
	return &health, nil
}
