package postgres

import (
	"context"
	"fmt"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage"
)

// ObservationStore implements storage.ObservationStore using PostgreSQL.
type ObservationStore struct {
	pool *Pool
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(pool *Pool) *ObservationStore {
	return &ObservationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// InsertBulk adds multiple observations atomically. Fails entire batch
// on any duplicate (entity_name, month_index).
func (s *ObservationStore) InsertBulk(ctx context.Context, points []*domain.SeriesPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO observations (entity_name, month_index, value, source)
		VALUES ($1, $2, $3, $4)
	`

	for _, p := range points {
		if p == nil || p.EntityName == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			p.EntityName,
			p.MonthIndex,
			p.Value,
			string(p.Source),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert observation in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByEntity retrieves all observations for an entity, ordered by month ASC.
func (s *ObservationStore) GetByEntity(ctx context.Context, entityName string) ([]*domain.SeriesPoint, error) {
	query := `
		SELECT entity_name, month_index, value, source, created_at
		FROM observations
		WHERE entity_name = $1
		ORDER BY month_index ASC
	`

	rows, err := s.pool.Query(ctx, query, entityName)
	if err != nil {
		return nil, fmt.Errorf("get observations by entity: %w", err)
	}
	defer rows.Close()

	var result []*domain.SeriesPoint
	for rows.Next() {
		var p domain.SeriesPoint
		var source string
		if err := rows.Scan(&p.EntityName, &p.MonthIndex, &p.Value, &source, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		p.Source = domain.SeriesSource(source)
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return result, nil
}

// CountByEntity returns the observation count per entity name.
func (s *ObservationStore) CountByEntity(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT entity_name, COUNT(*)
		FROM observations
		GROUP BY entity_name
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count observations: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("scan observation count: %w", err)
		}
		counts[name] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation counts: %w", err)
	}
	return counts, nil
}
