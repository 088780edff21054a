package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"geosem/internal/model"
)

var ErrNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	weights     map[string]model.WeightRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.weights = make(map[string]model.WeightRecord)
	return nil
}

func (s *MemoryStore) SaveWeights(_ context.Context, record model.WeightRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.weights[record.ID] = copyRecord(record)
	return nil
}

func (s *MemoryStore) GetWeights(_ context.Context, id string) (model.WeightRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.WeightRecord{}, false, ErrNotInitialized
	}
	record, ok := s.weights[id]
	if !ok {
		return model.WeightRecord{}, false, nil
	}
	return copyRecord(record), true, nil
}

// ListWeights returns summaries ordered by creation time, oldest first.
func (s *MemoryStore) ListWeights(_ context.Context) ([]model.WeightSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	out := make([]model.WeightSummary, 0, len(s.weights))
	for _, record := range s.weights {
		out = append(out, record.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) DeleteWeights(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return false, ErrNotInitialized
	}
	_, ok := s.weights[id]
	delete(s.weights, id)
	return ok, nil
}
