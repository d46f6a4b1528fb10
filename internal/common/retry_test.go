package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func timeoutErr() error {
	return &OperationError{Kind: KindTimeout, Message: "timed out"}
}

func TestWithRetry(t *testing.T) {
	t.Run("success on first attempt", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return nil
		}, FixedDelay(2, time.Millisecond, IsTimeout))

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries a retryable failure once then succeeds", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			if calls == 1 {
				return timeoutErr()
			}
			return nil
		}, FixedDelay(2, time.Millisecond, IsTimeout))

		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("does not retry a non-retryable failure", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return errBoom
		}, FixedDelay(2, time.Millisecond, IsTimeout))

		require.ErrorIs(t, err, errBoom)
		assert.NotErrorIs(t, err, ErrMaxRetries)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausted attempts keep the last error reachable", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return timeoutErr()
		}, FixedDelay(2, time.Millisecond, IsTimeout))

		require.Error(t, err)
		assert.Equal(t, 2, calls)
		assert.ErrorIs(t, err, ErrMaxRetries)
		assert.True(t, IsKind(err, KindTimeout))
	})

	t.Run("single attempt policy returns the error unchanged", func(t *testing.T) {
		original := timeoutErr()
		err := WithRetry(context.Background(), func() error { return original }, NoRetry())
		assert.Same(t, original, err)
	})

	t.Run("waits the configured delay between attempts", func(t *testing.T) {
		var stamps []time.Time
		_ = WithRetry(context.Background(), func() error {
			stamps = append(stamps, time.Now())
			return timeoutErr()
		}, FixedDelay(2, 30*time.Millisecond, IsTimeout))

		require.Len(t, stamps, 2)
		assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 30*time.Millisecond)
	})

	t.Run("on retry hook sees the failed attempt", func(t *testing.T) {
		var seen []int
		policy := FixedDelay(3, time.Millisecond, IsTimeout)
		policy.OnRetry = func(attempt int, _ error) { seen = append(seen, attempt) }

		_ = WithRetry(context.Background(), func() error { return timeoutErr() }, policy)
		assert.Equal(t, []int{1, 2}, seen)
	})

	t.Run("context cancellation interrupts the wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		done := make(chan error, 1)
		go func() {
			done <- WithRetry(ctx, func() error {
				calls++
				return timeoutErr()
			}, FixedDelay(2, time.Hour, IsTimeout))
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, 1, calls)
		case <-time.After(5 * time.Second):
			t.Fatal("retry did not stop on cancellation")
		}
	})

	t.Run("default predicate honours RetryableError", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return &RetryableError{Err: errBoom, Retryable: false}
		}, RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond})

		require.ErrorIs(t, err, errBoom)
		assert.Equal(t, 1, calls)
	})
}

func TestFixedDelay(t *testing.T) {
	p := FixedDelay(2, 3*time.Second, IsTimeout)
	assert.Equal(t, 2, p.MaxAttempts)
	assert.Equal(t, 3*time.Second, p.Delay)
	assert.Equal(t, 3*time.Second, p.MaxDelay)
	assert.Equal(t, 1.0, p.Multiplier)
}
