package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage"
)

// CombinedPointStore is an in-memory implementation of storage.CombinedPointStore.
type CombinedPointStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CombinedPoint // keyed by (run_id, entity_name, month_index, source)
}

// NewCombinedPointStore creates a new in-memory combined point store.
func NewCombinedPointStore() *CombinedPointStore {
	return &CombinedPointStore{
		data: make(map[string]*domain.CombinedPoint),
	}
}

// Compile-time interface check.
var _ storage.CombinedPointStore = (*CombinedPointStore)(nil)

// combinedPointKey generates a unique key for a combined point.
func combinedPointKey(runID, entityName string, monthIndex int, source domain.SeriesSource) string {
	return fmt.Sprintf("%s|%s|%d|%s", runID, entityName, monthIndex, source)
}

// sourceOrder ranks HISTORICAL before FORECAST for sorted reads.
func sourceOrder(s domain.SeriesSource) int {
	if s == domain.SourceHistorical {
		return 0
	}
	return 1
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *CombinedPointStore) InsertBulk(_ context.Context, points []*domain.CombinedPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.RunID == "" || p.EntityName == "" || !p.Source.IsValid() {
			return storage.ErrInvalidInput
		}
		key := combinedPointKey(p.RunID, p.EntityName, p.MonthIndex, p.Source)

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
		s.data[combinedPointKey(p.RunID, p.EntityName, p.MonthIndex, p.Source)] = &cp
	}

	return nil
}

// GetByRunAndEntity retrieves one entity's combined series within a run,
// ordered by month ASC with HISTORICAL before FORECAST.
func (s *CombinedPointStore) GetByRunAndEntity(_ context.Context, runID, entityName string) ([]*domain.CombinedPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CombinedPoint
	for _, p := range s.data {
		if p.RunID == runID && p.EntityName == entityName {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].MonthIndex != result[j].MonthIndex {
			return result[i].MonthIndex < result[j].MonthIndex
		}
		return sourceOrder(result[i].Source) < sourceOrder(result[j].Source)
	})
	return result, nil
}

// EntitiesByRun lists the distinct entities persisted for a run, ordered by name ASC.
func (s *CombinedPointStore) EntitiesByRun(_ context.Context, runID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, p := range s.data {
		if p.RunID == runID {
			seen[p.EntityName] = struct{}{}
		}
	}

	result := make([]string, 0, len(seen))
	for name := range seen {
		result = append(result, name)
	}
	sort.Strings(result)
	return result, nil
}
