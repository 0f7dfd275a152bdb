package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage"
)

// RunAggregateStore is an in-memory implementation of storage.RunAggregateStore.
type RunAggregateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunAggregate // keyed by (run_id, entity_name)
}

// NewRunAggregateStore creates a new in-memory run aggregate store.
func NewRunAggregateStore() *RunAggregateStore {
	return &RunAggregateStore{
		data: make(map[string]*domain.RunAggregate),
	}
}

// Compile-time interface check.
var _ storage.RunAggregateStore = (*RunAggregateStore)(nil)

// aggregateKey generates a unique key for an aggregate.
func aggregateKey(runID, entityName string) string {
	return fmt.Sprintf("%s|%s", runID, entityName)
}

// Insert adds a new aggregate. Returns ErrDuplicateKey if (run_id, entity_name) exists.
func (s *RunAggregateStore) Insert(_ context.Context, a *domain.RunAggregate) error {
	if a == nil || a.RunID == "" || a.EntityName == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := aggregateKey(a.RunID, a.EntityName)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}
	cp := *a
	s.data[key] = &cp
	return nil
}

// InsertBulk adds multiple aggregates. Fails entire batch on duplicate.
func (s *RunAggregateStore) InsertBulk(_ context.Context, aggregates []*domain.RunAggregate) error {
	if len(aggregates) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(aggregates))
	for _, a := range aggregates {
		if a == nil || a.RunID == "" || a.EntityName == "" {
			return storage.ErrInvalidInput
		}
		key := aggregateKey(a.RunID, a.EntityName)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, a := range aggregates {
		cp := *a
		s.data[aggregateKey(a.RunID, a.EntityName)] = &cp
	}

	return nil
}

// GetByRun retrieves all aggregates of a run, ordered by entity ASC.
func (s *RunAggregateStore) GetByRun(_ context.Context, runID string) ([]*domain.RunAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RunAggregate
	for _, a := range s.data {
		if a.RunID == runID {
			cp := *a
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EntityName < result[j].EntityName
	})
	return result, nil
}
