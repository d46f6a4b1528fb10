// Package transport issues single HTTP requests to the scoring service with a
// bounded wait and reports failures without collapsing their cause: a request
// either times out, never gets a response, or gets an error response.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const (
	// CacheBustParam is attached to every request so intermediaries never serve a stale answer.
	CacheBustParam = "_t"
	// HeaderRequestID correlates client and server logs.
	HeaderRequestID = "X-Request-ID"
)

// FailureKind tells apart the ways a request can fail.
type FailureKind string

// Failure kinds.
const (
	FailureTimeout FailureKind = "timeout"
	FailureNetwork FailureKind = "network"
	FailureServer  FailureKind = "server-error"
)

// Error is a failed request. For FailureServer, StatusCode and Body are set and
// Detail holds the structured message from the body, if there was one.
type Error struct {
	Err        error
	Kind       FailureKind
	Method     string
	Path       string
	Detail     string
	RequestID  string
	Body       []byte
	StatusCode int
}

func (e *Error) Error() string {
	switch e.Kind {
	case FailureServer:
		if e.Detail != "" {
			return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Detail)
		}
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	default:
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Request describes one call.
type Request struct {
	Body    any
	Method  string
	Path    string
	Timeout time.Duration
}

// Response is a successful (2xx) answer.
type Response struct {
	RequestID  string
	Body       []byte
	Duration   time.Duration
	StatusCode int
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Doer performs a single request.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Client is the resty-backed Doer.
type Client struct {
	http  *resty.Client
	now   func() time.Time
	newID func() string
}

// Option configures a Client.
type Option func(*Client)

// WithClock overrides the clock used for the cache-busting parameter.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithRequestIDs overrides request ID generation.
func WithRequestIDs(newID func() string) Option {
	return func(c *Client) {
		c.newID = newID
	}
}

// New creates a client rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http:  resty.New().SetBaseURL(baseURL),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http.
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetLogger(slogAdapter{}).
		SetRetryCount(0)

	return c
}

// Do issues req, enforcing req.Timeout when it is positive.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	requestID := c.newID()
	r := c.http.R().
		SetContext(ctx).
		SetHeader(HeaderRequestID, requestID).
		SetQueryParam(CacheBustParam, strconv.FormatInt(c.now().UnixMilli(), 10))
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	start := time.Now()
	resp, err := r.Execute(req.Method, req.Path)
	elapsed := time.Since(start)

	if err != nil {
		kind := classify(ctx, err)
		slog.Debug("Request failed",
			"method", req.Method,
			"path", req.Path,
			"kind", kind,
			"duration", elapsed,
			"request_id", requestID,
			"error", err)
		return nil, &Error{
			Kind:      kind,
			Method:    req.Method,
			Path:      req.Path,
			RequestID: requestID,
			Err:       err,
		}
	}

	body := resp.Body()
	slog.Debug("Request completed",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode(),
		"duration", elapsed,
		"request_id", requestID)

	if !resp.IsSuccess() {
		return nil, &Error{
			Kind:       FailureServer,
			Method:     req.Method,
			Path:       req.Path,
			RequestID:  requestID,
			StatusCode: resp.StatusCode(),
			Body:       body,
			Detail:     ExtractDetail(body),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       body,
		RequestID:  requestID,
		Duration:   elapsed,
	}, nil
}

// classify decides whether a request that got no response timed out.
func classify(ctx context.Context, err error) FailureKind {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureNetwork
}

// slogAdapter routes resty's internal logging through slog.
type slogAdapter struct{}

func (slogAdapter) Errorf(format string, v ...any) {
	slog.Error("resty: " + fmt.Sprintf(format, v...))
}

func (slogAdapter) Warnf(format string, v ...any) {
	slog.Warn("resty: " + fmt.Sprintf(format, v...))
}

func (slogAdapter) Debugf(format string, v ...any) {
	slog.Debug("resty: " + fmt.Sprintf(format, v...))
}
