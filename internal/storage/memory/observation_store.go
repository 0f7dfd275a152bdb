package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage"
)

// ObservationStore is an in-memory implementation of storage.ObservationStore.
type ObservationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SeriesPoint // keyed by (entity_name, month_index)
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{
		data: make(map[string]*domain.SeriesPoint),
	}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// observationKey generates a unique key for an observation.
func observationKey(entityName string, monthIndex int) string {
	return fmt.Sprintf("%s|%d", entityName, monthIndex)
}

// InsertBulk adds multiple observations. Fails entire batch on duplicate.
func (s *ObservationStore) InsertBulk(_ context.Context, points []*domain.SeriesPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(points))

	// First pass: check for duplicates (existing + intra-batch)
	for _, p := range points {
		if p == nil || p.EntityName == "" {
			return storage.ErrInvalidInput
		}
		key := observationKey(p.EntityName, p.MonthIndex)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range points {
		cp := *p
		s.data[observationKey(p.EntityName, p.MonthIndex)] = &cp
	}

	return nil
}

// GetByEntity retrieves all observations for an entity, ordered by month ASC.
func (s *ObservationStore) GetByEntity(_ context.Context, entityName string) ([]*domain.SeriesPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SeriesPoint
	for _, p := range s.data {
		if p.EntityName == entityName {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].MonthIndex < result[j].MonthIndex
	})
	return result, nil
}

// CountByEntity returns the observation count per entity name.
func (s *ObservationStore) CountByEntity(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, p := range s.data {
		counts[p.EntityName]++
	}
	return counts, nil
}
