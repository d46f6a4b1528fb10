// Package scoring runs the operations a user can perform against the fraud
// scoring service. Each operation validates its input, dispatches one request
// (two for a single prediction that timed out), keeps the availability status
// current, and returns either a typed result or a *common.OperationError.
package scoring

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/fraudwatch/internal/availability"
	"github.com/Veraticus/fraudwatch/internal/common"
	"github.com/Veraticus/fraudwatch/internal/config"
	"github.com/Veraticus/fraudwatch/internal/model"
	"github.com/Veraticus/fraudwatch/internal/transport"
)

// Operation names, used in logs, metrics and errors.
const (
	OpPredictSingle     = "predict_single"
	OpPredictBatch      = "predict_batch"
	OpApprove           = "approve"
	OpModelInfo         = "model_info"
	OpFeatureImportance = "feature_importance"
	OpModelHealth       = "model_health"
)

// ColdStartMessage is shown whenever the service did not answer in time.
const ColdStartMessage = "Server is still waking up. This can take up to 2 minutes on first use. " +
	"Please wait a moment and try again."

var genericMessages = map[string]string{
	OpPredictSingle:     "Failed to predict transaction",
	OpPredictBatch:      "Failed to predict batch transactions",
	OpApprove:           "Failed to approve transaction",
	OpModelInfo:         "Failed to fetch model information",
	OpFeatureImportance: "Failed to fetch feature importance",
	OpModelHealth:       "Health check failed",
}

// Observer is told about every request so it can keep the backend status current.
type Observer interface {
	Begin() availability.Ticket
	Observe(ticket availability.Ticket, outcome availability.Outcome)
}

// Recorder receives per-operation measurements.
type Recorder interface {
	RecordOperation(operation, outcome string, d time.Duration)
	RecordRetry(operation string)
}

// Client performs scoring operations. It is safe for concurrent use.
type Client struct {
	doer     transport.Doer
	observer Observer
	recorder Recorder
	prefix   string
	timeouts config.Timeouts
	retry    config.RetryConfig
}

// Option configures a Client.
type Option func(*Client)

// WithRecorder reports operation outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// New creates a client that sends requests through doer and reports their
// outcomes to observer, usually an *availability.Monitor.
func New(doer transport.Doer, observer Observer, cfg config.Config, opts ...Option) *Client {
	c := &Client{
		doer:     doer,
		observer: observer,
		prefix:   cfg.API.Prefix,
		timeouts: cfg.Timeouts,
		retry:    cfg.Retry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PredictSingle scores one transaction. A timed-out attempt is retried once
// after the configured delay, since the first request may only have woken
// the service.
func (c *Client) PredictSingle(ctx context.Context, input model.TransactionInput) (*model.PredictionResult, error) {
	if err := input.Validate(); err != nil {
		return nil, c.invalid(OpPredictSingle, err)
	}

	var result model.PredictionResult
	policy := common.FixedDelay(c.retry.MaxAttempts, c.retry.Delay, common.IsTimeout)
	err := c.call(ctx, OpPredictSingle, transport.Request{
		Method:  http.MethodPost,
		Path:    c.prefix + "/predictions/single",
		Body:    input,
		Timeout: c.timeouts.Predict,
	}, policy, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// PredictBatch scores between 1 and 100 transactions in one request.
func (c *Client) PredictBatch(ctx context.Context, inputs []model.TransactionInput) (*model.BatchPredictionResult, error) {
	batch := model.BatchRequest{Transactions: inputs}
	if len(inputs) == 0 {
		return nil, c.invalid(OpPredictBatch, common.ErrNoTransactions)
	}
	if err := batch.Validate(); err != nil {
		return nil, c.invalid(OpPredictBatch, err)
	}

	var result model.BatchPredictionResult
	err := c.call(ctx, OpPredictBatch, transport.Request{
		Method:  http.MethodPost,
		Path:    c.prefix + "/predictions/batch",
		Body:    batch,
		Timeout: c.timeouts.Predict,
	}, common.NoRetry(), &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Approve marks a transaction as approved by the operator.
func (c *Client) Approve(ctx context.Context, input model.TransactionInput) (*model.ApprovalResult, error) {
	if err := input.Validate(); err != nil {
		return nil, c.invalid(OpApprove, err)
	}

	var result model.ApprovalResult
	err := c.call(ctx, OpApprove, transport.Request{
		Method:  http.MethodPost,
		Path:    c.prefix + "/predictions/approve",
		Body:    input,
		Timeout: c.timeouts.Predict,
	}, common.NoRetry(), &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchModelInfo returns the deployed model's metadata.
func (c *Client) FetchModelInfo(ctx context.Context) (*model.ModelInfo, error) {
	var result model.ModelInfo
	if err := c.get(ctx, OpModelInfo, "/model/info", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchFeatureImportance returns the model's features ranked by importance.
func (c *Client) FetchFeatureImportance(ctx context.Context) (*model.FeatureImportance, error) {
	var result model.FeatureImportance
	if err := c.get(ctx, OpFeatureImportance, "/model/feature-importance", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchHealth returns the model service's readiness report.
func (c *Client) FetchHealth(ctx context.Context) (*model.HealthReport, error) {
	var result model.HealthReport
	if err := c.get(ctx, OpModelHealth, "/model/health", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, operation, path string, out any) error {
	return c.call(ctx, operation, transport.Request{
		Method:  http.MethodGet,
		Path:    c.prefix + path,
		Timeout: c.timeouts.Light,
	}, common.NoRetry(), out)
}

// call dispatches req under policy, reports every attempt to the observer and
// decodes the successful payload into out.
func (c *Client) call(ctx context.Context, operation string, req transport.Request, policy common.RetryPolicy, out any) error {
	start := time.Now()
	policy.OnRetry = func(attempt int, _ error) {
		slog.Info("Scoring service did not answer in time, retrying",
			"operation", operation,
			"attempt", attempt,
			"delay", policy.Delay)
		if c.recorder != nil {
			c.recorder.RecordRetry(operation)
		}
	}

	var resp *transport.Response
	err := common.WithRetry(ctx, func() error {
		ticket := c.observer.Begin()
		r, err := c.doer.Do(ctx, req)
		c.observer.Observe(ticket, availability.OutcomeOf(err))
		if err != nil {
			return c.failure(operation, err)
		}
		resp = r
		return nil
	}, policy)

	if err == nil {
		if decodeErr := resp.Decode(out); decodeErr != nil {
			err = &common.OperationError{
				Kind:      common.KindServer,
				Operation: operation,
				Message:   genericMessages[operation],
				Err:       decodeErr,
			}
		}
	}

	err = c.finish(operation, err)
	c.record(operation, err, time.Since(start))
	return err
}

// finish reduces whatever the retry loop returned to a single *common.OperationError.
func (c *Client) finish(operation string, err error) error {
	if err == nil {
		return nil
	}

	var opErr *common.OperationError
	if errors.As(err, &opErr) {
		slog.Debug("Scoring operation failed",
			"operation", operation,
			"kind", opErr.Kind,
			"status", opErr.StatusCode,
			"error", opErr.Err)
		return opErr
	}

	// Only a context that ended during the retry wait gets here.
	return &common.OperationError{
		Kind:      common.KindNetwork,
		Operation: operation,
		Message:   genericMessages[operation],
		Err:       err,
	}
}

// failure maps a transport failure to the error shown to the user.
func (c *Client) failure(operation string, err error) *common.OperationError {
	opErr := &common.OperationError{
		Kind:      common.KindNetwork,
		Operation: operation,
		Message:   genericMessages[operation],
		Err:       err,
	}

	var terr *transport.Error
	if !errors.As(err, &terr) {
		return opErr
	}

	switch terr.Kind {
	case transport.FailureTimeout:
		opErr.Kind = common.KindTimeout
		opErr.Message = ColdStartMessage
	case transport.FailureServer:
		opErr.Kind = common.KindServer
		opErr.StatusCode = terr.StatusCode
		opErr.Detail = terr.Detail
		if terr.Detail != "" {
			opErr.Message = terr.Detail
		}
	}
	return opErr
}

func (c *Client) invalid(operation string, err error) error {
	slog.Debug("Rejected invalid input", "operation", operation, "error", err)
	opErr := &common.OperationError{
		Kind:      common.KindValidation,
		Operation: operation,
		Message:   err.Error(),
		Err:       err,
	}
	c.record(operation, opErr, 0)
	return opErr
}

func (c *Client) record(operation string, err error, d time.Duration) {
	if c.recorder == nil {
		return
	}
	outcome := "success"
	if kind, ok := common.KindOf(err); ok {
		outcome = string(kind)
	}
	c.recorder.RecordOperation(operation, outcome, d)
}
