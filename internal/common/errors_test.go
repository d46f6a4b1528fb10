package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("predict: %w", &OperationError{
		Kind:      KindNetwork,
		Operation: "predict",
		Message:   "Could not reach the scoring service",
		Err:       cause,
	})

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindNetwork, kind)
	assert.True(t, IsKind(err, KindNetwork))
	assert.False(t, IsKind(err, KindTimeout))
	assert.ErrorIs(t, err, cause)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "Could not reach the scoring service", opErr.Error())
}

func TestKindOf_PlainError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&OperationError{Kind: KindTimeout}))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(&RetryableError{Err: errBoom, Retryable: true}))
	assert.False(t, IsRetryable(&OperationError{Kind: KindServer}))
	assert.False(t, IsRetryable(errBoom))
}

func TestUserError(t *testing.T) {
	err := NewUserError("could not read input file", errBoom)
	assert.Equal(t, "could not read input file: boom", err.Error())
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, "just this", NewUserError("just this", nil).Error())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSetupLogger(t *testing.T) {
	previous := slog.Default()
	defer slog.SetDefault(previous)

	var buf bytes.Buffer
	require.NoError(t, setupLogger(&buf, slog.LevelInfo, "json"))
	slog.Debug("hidden")
	slog.Info("shown", "operation", "predict")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"operation":"predict"`)

	assert.ErrorIs(t, setupLogger(&buf, slog.LevelInfo, "xml"), ErrInvalidConfig)
}
