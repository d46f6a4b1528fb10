// Package availability tracks whether the scoring service is awake.
//
// The service sleeps when idle and can take minutes to answer its first
// request. The Monitor derives a three-valued status from a startup probe and
// from the outcome of every later request, and publishes changes to
// subscribers.
package availability

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Veraticus/fraudwatch/internal/transport"
)

// HealthPath is the liveness endpoint, relative to the service root.
const HealthPath = "/health"

// Status is the derived availability of the scoring service.
type Status string

// Status values.
const (
	StatusChecking Status = "checking"
	StatusAwake    Status = "awake"
	StatusSleeping Status = "sleeping"
)

func (s Status) String() string {
	return string(s)
}

// Ticket orders observations by the time their request was dispatched.
type Ticket uint64

// Outcome is what a completed request says about the service.
type Outcome int

// Request outcomes.
const (
	// OutcomeSuccess is any 2xx answer.
	OutcomeSuccess Outcome = iota
	// OutcomeRejected is a 4xx answer: the service is up but refused the request.
	OutcomeRejected
	// OutcomeTimeout is a request that got no answer within its budget.
	OutcomeTimeout
	// OutcomeNetwork is a request that failed before any answer arrived.
	OutcomeNetwork
	// OutcomeServerError is a 5xx answer or an unreadable reply.
	OutcomeServerError
)

var outcomeNames = map[Outcome]string{
	OutcomeSuccess:     "success",
	OutcomeRejected:    "rejected",
	OutcomeTimeout:     "timeout",
	OutcomeNetwork:     "network",
	OutcomeServerError: "server_error",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// OutcomeOf classifies the error returned by a request. A nil error is a success.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}

	var terr *transport.Error
	if errors.As(err, &terr) {
		switch terr.Kind {
		case transport.FailureTimeout:
			return OutcomeTimeout
		case transport.FailureNetwork:
			return OutcomeNetwork
		case transport.FailureServer:
			if terr.StatusCode >= http.StatusBadRequest && terr.StatusCode < http.StatusInternalServerError {
				return OutcomeRejected
			}
			return OutcomeServerError
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return OutcomeNetwork
	default:
		return OutcomeServerError
	}
}

// Recorder receives status changes and probe timings, e.g. for metrics.
type Recorder interface {
	RecordStatus(from, to string)
	RecordProbe(d time.Duration)
}

// Monitor owns the backend status. It is safe for concurrent use.
type Monitor struct {
	doer         transport.Doer
	recorder     Recorder
	subscribers  map[int]func(Status)
	status       Status
	probeTimeout time.Duration
	issued       Ticket
	lastSuccess  Ticket
	nextSub      int
	mu           sync.Mutex
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithProbeTimeout sets how long the probe waits for the service to wake.
func WithProbeTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		m.probeTimeout = d
	}
}

// WithRecorder reports status changes and probe timings to r.
func WithRecorder(r Recorder) Option {
	return func(m *Monitor) {
		m.recorder = r
	}
}

// NewMonitor creates a monitor in the checking state.
func NewMonitor(doer transport.Doer, opts ...Option) *Monitor {
	m := &Monitor{
		doer:         doer,
		status:       StatusChecking,
		probeTimeout: 120 * time.Second,
		subscribers:  make(map[int]func(Status)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Status returns the current status.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Subscribe registers fn to be called with every new status. The returned
// function removes the subscription.
func (m *Monitor) Subscribe(fn func(Status)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// Begin issues the ticket for a request about to be dispatched.
func (m *Monitor) Begin() Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued++
	return m.issued
}

// Observe folds the outcome of the request dispatched under ticket into the status.
//
// Successes and rejections prove the service is up and always apply. A timeout
// downgrades to sleeping unless a request dispatched later has already
// succeeded. Network and 5xx failures say nothing about a running service, so
// they only resolve checking.
func (m *Monitor) Observe(ticket Ticket, outcome Outcome) {
	switch outcome {
	case OutcomeSuccess, OutcomeRejected:
		m.markAwake(ticket)
	case OutcomeTimeout:
		m.markSleeping(ticket, false)
	default:
		m.markSleeping(ticket, true)
	}
}

// Probe asks the service whether it is up, waiting long enough for a cold
// start, and returns the resulting status. Any failure counts as asleep,
// except when ctx ended first: that says nothing about the service, so it
// only resolves checking.
func (m *Monitor) Probe(ctx context.Context) Status {
	ticket := m.Begin()
	slog.Debug("Probing backend", "ticket", ticket, "timeout", m.probeTimeout)

	start := time.Now()
	_, err := m.doer.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		Path:    HealthPath,
		Timeout: m.probeTimeout,
	})
	if m.recorder != nil {
		m.recorder.RecordProbe(time.Since(start))
	}

	switch {
	case err != nil && ctx.Err() != nil:
		slog.Debug("Backend probe abandoned", "ticket", ticket, "error", err)
		m.markSleeping(ticket, true)
	case err != nil:
		slog.Debug("Backend probe failed", "ticket", ticket, "error", err)
		m.markSleeping(ticket, false)
	default:
		m.markAwake(ticket)
	}
	return m.Status()
}

func (m *Monitor) markAwake(ticket Ticket) {
	m.mu.Lock()
	if ticket > m.lastSuccess {
		m.lastSuccess = ticket
	}
	m.transition(StatusAwake, ticket)
}

// markSleeping downgrades the status. With onlyChecking set it leaves awake and
// sleeping alone.
func (m *Monitor) markSleeping(ticket Ticket, onlyChecking bool) {
	m.mu.Lock()
	if m.lastSuccess > ticket || (onlyChecking && m.status != StatusChecking) {
		m.mu.Unlock()
		return
	}
	m.transition(StatusSleeping, ticket)
}

// transition must be called with mu held and releases it before notifying.
func (m *Monitor) transition(to Status, ticket Ticket) {
	from := m.status
	if from == to {
		m.mu.Unlock()
		return
	}
	m.status = to

	subs := make([]func(Status), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	slog.Debug("Backend status changed", "from", from, "to", to, "ticket", ticket)
	if m.recorder != nil {
		m.recorder.RecordStatus(string(from), string(to))
	}
	for _, fn := range subs {
		fn(to)
	}
}
