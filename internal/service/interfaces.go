// Package service defines the interfaces the terminal surfaces depend on.
package service

import (
	"context"

	"github.com/Veraticus/fraudwatch/internal/availability"
	"github.com/Veraticus/fraudwatch/internal/model"
)

// Scorer performs operations against the fraud scoring service.
// Every error it returns is a *common.OperationError.
type Scorer interface {
	PredictSingle(ctx context.Context, input model.TransactionInput) (*model.PredictionResult, error)
	PredictBatch(ctx context.Context, inputs []model.TransactionInput) (*model.BatchPredictionResult, error)
	Approve(ctx context.Context, input model.TransactionInput) (*model.ApprovalResult, error)
	FetchModelInfo(ctx context.Context) (*model.ModelInfo, error)
	FetchFeatureImportance(ctx context.Context) (*model.FeatureImportance, error)
	FetchHealth(ctx context.Context) (*model.HealthReport, error)
}

// StatusSource publishes the scoring service's availability.
type StatusSource interface {
	Status() availability.Status
	Subscribe(fn func(availability.Status)) (unsubscribe func())
	Probe(ctx context.Context) availability.Status
}
