package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage"
)

// ForecastPointStore is an in-memory implementation of storage.ForecastPointStore.
type ForecastPointStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ForecastPoint // keyed by (run_id, entity_name, month_index)
}

// NewForecastPointStore creates a new in-memory forecast point store.
func NewForecastPointStore() *ForecastPointStore {
	return &ForecastPointStore{
		data: make(map[string]*domain.ForecastPoint),
	}
}

// Compile-time interface check.
var _ storage.ForecastPointStore = (*ForecastPointStore)(nil)

// forecastPointKey generates a unique key for a forecast point.
func forecastPointKey(runID, entityName string, monthIndex int) string {
	return fmt.Sprintf("%s|%s|%d", runID, entityName, monthIndex)
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *ForecastPointStore) InsertBulk(_ context.Context, points []*domain.ForecastPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.RunID == "" || p.EntityName == "" {
			return storage.ErrInvalidInput
		}
		key := forecastPointKey(p.RunID, p.EntityName, p.MonthIndex)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		cp := *p
		s.data[forecastPointKey(p.RunID, p.EntityName, p.MonthIndex)] = &cp
	}

	return nil
}

// GetByRun retrieves all points of a run, ordered by entity ASC, month ASC.
func (s *ForecastPointStore) GetByRun(_ context.Context, runID string) ([]*domain.ForecastPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ForecastPoint
	for _, p := range s.data {
		if p.RunID == runID {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].EntityName != result[j].EntityName {
			return result[i].EntityName < result[j].EntityName
		}
		return result[i].MonthIndex < result[j].MonthIndex
	})
	return result, nil
}

// GetByRunAndEntity retrieves one entity's points within a run, ordered by month ASC.
func (s *ForecastPointStore) GetByRunAndEntity(_ context.Context, runID, entityName string) ([]*domain.ForecastPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ForecastPoint
	for _, p := range s.data {
		if p.RunID == runID && p.EntityName == entityName {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].MonthIndex < result[j].MonthIndex
	})
	return result, nil
}
