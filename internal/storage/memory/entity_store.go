package memory

import (
	"context"
	"sort"
	"sync"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage"
)

// EntityStore is an in-memory implementation of storage.EntityStore.
type EntityStore struct {
	mu     sync.RWMutex
	byName map[string]*domain.Entity
	byCode map[int]string // code -> name, enforces code uniqueness
}

// NewEntityStore creates a new in-memory entity store.
func NewEntityStore() *EntityStore {
	return &EntityStore{
		byName: make(map[string]*domain.Entity),
		byCode: make(map[int]string),
	}
}

// Compile-time interface check.
var _ storage.EntityStore = (*EntityStore)(nil)

// Insert adds a new entity. Returns ErrDuplicateKey if the name or the
// code is already registered.
func (s *EntityStore) Insert(_ context.Context, e *domain.Entity) error {
	if e == nil || e.Name == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[e.Name]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.byCode[e.Code]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *e
	s.byName[e.Name] = &cp
	s.byCode[e.Code] = e.Name
	return nil
}

// GetByName retrieves an entity by name. Returns ErrNotFound if not registered.
func (s *EntityStore) GetByName(_ context.Context, name string) (*domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.byName[name]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// List retrieves all entities, ordered by code ASC.
func (s *EntityStore) List(_ context.Context) ([]*domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Entity, 0, len(s.byName))
	for _, e := range s.byName {
		cp := *e
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Code < result[j].Code
	})
	return result, nil
}
