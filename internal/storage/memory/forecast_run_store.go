package memory

import (
	"context"
	"sort"
	"sync"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage"
)

// ForecastRunStore is an in-memory implementation of storage.ForecastRunStore.
type ForecastRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ForecastRun // keyed by run_id
}

// NewForecastRunStore creates a new in-memory forecast run store.
func NewForecastRunStore() *ForecastRunStore {
	return &ForecastRunStore{
		data: make(map[string]*domain.ForecastRun),
	}
}

// Compile-time interface check.
var _ storage.ForecastRunStore = (*ForecastRunStore)(nil)

// Insert records a completed run. Returns ErrDuplicateKey if run_id exists.
func (s *ForecastRunStore) Insert(_ context.Context, run *domain.ForecastRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}
	cp := *run
	s.data[run.RunID] = &cp
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ForecastRunStore) GetByID(_ context.Context, runID string) (*domain.ForecastRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

// List retrieves all runs, ordered by started_at DESC.
func (s *ForecastRunStore) List(_ context.Context) ([]*domain.ForecastRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ForecastRun, 0, len(s.data))
	for _, run := range s.data {
		cp := *run
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt != result[j].StartedAt {
			return result[i].StartedAt > result[j].StartedAt
		}
		return result[i].RunID < result[j].RunID
	})
	return result, nil
}
