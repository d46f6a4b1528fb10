// Package testutil provides test doubles for the scoring service.
package testutil

import (
	"context"
	"sync"

	"github.com/Veraticus/fraudwatch/internal/transport"
)

// MockDoer is a transport.Doer driven by DoFn. It records every request.
type MockDoer struct {
	DoFn     func(ctx context.Context, req transport.Request) (*transport.Response, error)
	requests []transport.Request
	mu       sync.Mutex
}

// Do records req and delegates to DoFn. A nil DoFn answers 200 with "{}".
func (m *MockDoer) Do(ctx context.Context, req transport.Request) (*transport.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.DoFn != nil {
		return m.DoFn(ctx, req)
	}
	return &transport.Response{StatusCode: 200, Body: []byte("{}")}, nil
}

// Requests returns a copy of the recorded requests.
func (m *MockDoer) Requests() []transport.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]transport.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns how many requests were made.
func (m *MockDoer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// JSON builds a successful response carrying body.
func JSON(body string) *transport.Response {
	return &transport.Response{StatusCode: 200, Body: []byte(body)}
}

// Timeout is a transport timeout for path.
func Timeout(path string) error {
	return &transport.Error{Kind: transport.FailureTimeout, Method: "POST", Path: path, Err: context.DeadlineExceeded}
}

// Unreachable is a transport network failure for path.
func Unreachable(path string) error {
	return &transport.Error{Kind: transport.FailureNetwork, Method: "POST", Path: path, Err: context.Canceled}
}

// ServerError is an error response for path with the given status and body.
func ServerError(path string, status int, body string) error {
	return &transport.Error{
		Kind:       transport.FailureServer,
		Method:     "POST",
		Path:       path,
		StatusCode: status,
		Body:       []byte(body),
		Detail:     transport.ExtractDetail([]byte(body)),
	}
}
