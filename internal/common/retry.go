package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrMaxRetries indicates that all retry attempts have been exhausted.
var ErrMaxRetries = errors.New("max retries exceeded")

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// RetryPolicy configures retry behavior for operations.
type RetryPolicy struct {
	// Retryable decides whether a failed attempt is worth repeating.
	// Nil means IsRetryable.
	Retryable func(error) bool
	// OnRetry is called before each wait, with the attempt that just failed.
	OnRetry     func(attempt int, err error)
	MaxAttempts int
	Delay       time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// NoRetry is a policy that runs an operation exactly once.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

// FixedDelay retries up to maxAttempts times total, waiting delay between attempts,
// but only for errors matching retryable.
func FixedDelay(maxAttempts int, delay time.Duration, retryable func(error) bool) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Delay:       delay,
		MaxDelay:    delay,
		Multiplier:  1,
		Retryable:   retryable,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.Delay <= 0 {
		p.Delay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2.0
	}
	if p.Retryable == nil {
		p.Retryable = IsRetryable
	}
	return p
}

// WithRetry executes an operation with configurable retry behavior.
// A non-retryable failure is returned unchanged. When every attempt fails the
// result wraps both ErrMaxRetries and the last failure.
func WithRetry(ctx context.Context, operation func() error, policy RetryPolicy) error {
	policy = policy.withDefaults()
	delay := policy.Delay

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		if !policy.Retryable(err) {
			return err
		}

		if attempt == policy.MaxAttempts {
			if policy.MaxAttempts == 1 {
				return err
			}
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, policy.MaxAttempts, err)
		}

		slog.Warn("Operation failed, retrying",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"delay", delay,
			"error", err)

		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			delay = time.Duration(float64(delay) * policy.Multiplier)
			if delay > policy.MaxDelay {
				delay = policy.MaxDelay
			}
		}
	}

	return ErrMaxRetries
}
