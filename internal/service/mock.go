package service

import (
	"context"
	"sync"

	"github.com/Veraticus/fraudwatch/internal/availability"
	"github.com/Veraticus/fraudwatch/internal/model"
)

// MockScorer is a Scorer for tests. Unset functions return zero results.
type MockScorer struct {
	PredictSingleFn          func(ctx context.Context, input model.TransactionInput) (*model.PredictionResult, error)
	PredictBatchFn           func(ctx context.Context, inputs []model.TransactionInput) (*model.BatchPredictionResult, error)
	ApproveFn                func(ctx context.Context, input model.TransactionInput) (*model.ApprovalResult, error)
	FetchModelInfoFn         func(ctx context.Context) (*model.ModelInfo, error)
	FetchFeatureImportanceFn func(ctx context.Context) (*model.FeatureImportance, error)
	FetchHealthFn            func(ctx context.Context) (*model.HealthReport, error)
}

// PredictSingle implements Scorer.
func (m *MockScorer) PredictSingle(ctx context.Context, input model.TransactionInput) (*model.PredictionResult, error) {
	if m.PredictSingleFn != nil {
		return m.PredictSingleFn(ctx, input)
	}
	return &model.PredictionResult{}, nil
}

// PredictBatch implements Scorer.
func (m *MockScorer) PredictBatch(ctx context.Context, inputs []model.TransactionInput) (*model.BatchPredictionResult, error) {
	if m.PredictBatchFn != nil {
		return m.PredictBatchFn(ctx, inputs)
	}
	return &model.BatchPredictionResult{}, nil
}

// Approve implements Scorer.
func (m *MockScorer) Approve(ctx context.Context, input model.TransactionInput) (*model.ApprovalResult, error) {
	if m.ApproveFn != nil {
		return m.ApproveFn(ctx, input)
	}
	return &model.ApprovalResult{}, nil
}

// FetchModelInfo implements Scorer.
func (m *MockScorer) FetchModelInfo(ctx context.Context) (*model.ModelInfo, error) {
	if m.FetchModelInfoFn != nil {
		return m.FetchModelInfoFn(ctx)
	}
	return &model.ModelInfo{}, nil
}

// FetchFeatureImportance implements Scorer.
func (m *MockScorer) FetchFeatureImportance(ctx context.Context) (*model.FeatureImportance, error) {
	if m.FetchFeatureImportanceFn != nil {
		return m.FetchFeatureImportanceFn(ctx)
	}
	return &model.FeatureImportance{}, nil
}

// FetchHealth implements Scorer.
func (m *MockScorer) FetchHealth(ctx context.Context) (*model.HealthReport, error) {
	if m.FetchHealthFn != nil {
		return m.FetchHealthFn(ctx)
	}
	return &model.HealthReport{}, nil
}

// MockStatusSource is a StatusSource with a settable status.
type MockStatusSource struct {
	ProbeFn     func(ctx context.Context) availability.Status
	subscribers []func(availability.Status)
	status      availability.Status
	mu          sync.Mutex
}

// NewMockStatusSource returns a source reporting status.
func NewMockStatusSource(status availability.Status) *MockStatusSource {
	return &MockStatusSource{status: status}
}

// Status implements StatusSource.
func (m *MockStatusSource) Status() availability.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Subscribe implements StatusSource. Unsubscribing is a no-op.
func (m *MockStatusSource) Subscribe(fn func(availability.Status)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
	return func() {}
}

// Probe implements StatusSource.
func (m *MockStatusSource) Probe(ctx context.Context) availability.Status {
	if m.ProbeFn != nil {
		s := m.ProbeFn(ctx)
		m.Set(s)
		return s
	}
	return m.Status()
}

// Set changes the status and notifies subscribers.
func (m *MockStatusSource) Set(status availability.Status) {
	m.mu.Lock()
	m.status = status
	subs := append([]func(availability.Status){}, m.subscribers...)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(status)
	}
}
