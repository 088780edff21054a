package storage

import (
	"context"

	"geosem/internal/model"
)

// Store persists fitted weight records keyed by model ID.
type Store interface {
	Init(ctx context.Context) error
	SaveWeights(ctx context.Context, record model.WeightRecord) error
	GetWeights(ctx context.Context, id string) (model.WeightRecord, bool, error)
	ListWeights(ctx context.Context) ([]model.WeightSummary, error)
	DeleteWeights(ctx context.Context, id string) (bool, error)
}
