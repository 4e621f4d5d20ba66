package client

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

	"github.com/sheharfix/civicsync/internal/common"
	"github.com/sheharfix/civicsync/internal/logging"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// RequestIDHeaderName carries a per-request id for backend log correlation.
const RequestIDHeaderName = "X-Request-ID"

const maxErrorBody = 512

// Request is one logical backend call. Path is relative to the base URL
// and may carry a query string.
type Request struct {
	Method string
	Path   string
	Body   []byte
	Header http.Header
}

// HTTPClient talks JSON to the issue backend. It makes a single attempt per
// call; retrying is left to the caller.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     logging.Logger
}

type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client. Its Timeout is used
// as is.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) { h.http = c }
}

func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPClient) {
		if d > 0 {
			h.http.Timeout = d
		}
	}
}

func WithTokenSource(ts TokenSource) HTTPOption {
	return func(h *HTTPClient) { h.tokens = ts }
}

func WithLogger(l logging.Logger) HTTPOption {
	return func(h *HTTPClient) { h.log = l }
}

func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     logging.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *HTTPClient) BaseURL() string { return c.baseURL }

// Do sends req and returns the raw JSON body. An empty 2xx body yields nil
// bytes and no error.
func (c *HTTPClient) Do(ctx context.Context, req Request) ([]byte, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", common.ErrNetwork, err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set(RequestIDHeaderName, uuid.NewString())
	c.authorize(ctx, hreq)
	for k, vs := range req.Header {
		hreq.Header.Del(k)
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(hreq)
	if err != nil {
		c.log.Warn(ctx, "request failed", "method", req.Method, "path", req.Path, "error", err)
		return nil, fmt.Errorf("%w (%w): %s %s: %w", common.ErrNetwork, common.ErrUnavailable, req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w (%w): read %s %s: %w", common.ErrNetwork, common.ErrUnavailable, req.Method, req.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug(ctx, "backend error", "method", req.Method, "path", req.Path, "status", resp.StatusCode)
		return nil, &common.StatusError{Kind: common.ErrNetwork, StatusCode: resp.StatusCode, Body: snippet(data)}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s %s", common.ErrDecode, req.Method, req.Path)
	}
	return data, nil
}

func (c *HTTPClient) authorize(ctx context.Context, r *http.Request) {
	if c.tokens == nil {
		return
	}
	if tok := c.tokens.Token(ctx); tok != "" {
		r.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+tok)
	}
}

// Decode unmarshals a response body into T. A nil or malformed body is a
// common.ErrDecode failure.
func Decode[T any](data []byte) (T, error) {
	var v T
	if len(bytes.TrimSpace(data)) == 0 {
		return v, fmt.Errorf("%w: empty body", common.ErrDecode)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w: %v", common.ErrDecode, err)
	}
	return v, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}
