package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage"
)

// EntityStore implements storage.EntityStore using PostgreSQL.
type EntityStore struct {
	pool *Pool
}

// NewEntityStore creates a new EntityStore.
func NewEntityStore(pool *Pool) *EntityStore {
	return &EntityStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EntityStore = (*EntityStore)(nil)

// Insert adds a new entity. Returns ErrDuplicateKey if the name or the
// code is already registered.
func (s *EntityStore) Insert(ctx context.Context, e *domain.Entity) error {
	if e == nil || e.Name == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO entities (name, code) VALUES ($1, $2)
	`

	_, err := s.pool.Exec(ctx, query, e.Name, e.Code)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

// GetByName retrieves an entity by its canonical name. Returns ErrNotFound if not registered.
func (s *EntityStore) GetByName(ctx context.Context, name string) (*domain.Entity, error) {
	query := `
		SELECT name, code, created_at
		FROM entities
		WHERE name = $1
	`

	row := s.pool.QueryRow(ctx, query, name)
	e, err := scanEntity(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get entity by name: %w", err)
	}
	return e, nil
}

// List retrieves all entities, ordered by code ASC.
func (s *EntityStore) List(ctx context.Context) ([]*domain.Entity, error) {
	query := `
		SELECT name, code, created_at
		FROM entities
		ORDER BY code ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var result []*domain.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return result, nil
}

// scanEntity scans one entity row.
func scanEntity(row pgx.Row) (*domain.Entity, error) {
	var e domain.Entity
	if err := row.Scan(&e.Name, &e.Code, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
