package clickhouse

import (
	"context"
	"fmt"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage"
)

// CombinedPointStore implements storage.CombinedPointStore using ClickHouse.
type CombinedPointStore struct {
	conn *Conn
}

// NewCombinedPointStore creates a new CombinedPointStore.
func NewCombinedPointStore(conn *Conn) *CombinedPointStore {
	return &CombinedPointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CombinedPointStore = (*CombinedPointStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (run_id, entity_name, month_index, source).
func (s *CombinedPointStore) InsertBulk(ctx context.Context, points []*domain.CombinedPoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		runID      string
		entityName string
		monthIndex int
		source     domain.SeriesSource
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		if p == nil || p.RunID == "" || p.EntityName == "" || !p.Source.IsValid() {
			return storage.ErrInvalidInput
		}
		k := key{p.RunID, p.EntityName, p.MonthIndex, p.Source}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.RunID, p.EntityName, p.MonthIndex, p.Source)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO combined_points (
			run_id, entity_name, month_index, value, cumulative, source
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.RunID, p.EntityName, int32(p.MonthIndex),
			p.Value, p.Cumulative, string(p.Source),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunAndEntity retrieves one entity's combined series within a run,
// ordered by month ASC with HISTORICAL before FORECAST.
func (s *CombinedPointStore) GetByRunAndEntity(ctx context.Context, runID, entityName string) ([]*domain.CombinedPoint, error) {
	// 'HISTORICAL' sorts after 'FORECAST' lexically, so DESC puts
	// observed rows first on a month collision.
	query := `
		SELECT run_id, entity_name, month_index, value, cumulative, source
		FROM combined_points
		WHERE run_id = ? AND entity_name = ?
		ORDER BY month_index ASC, source DESC
	`

	rows, err := s.conn.Query(ctx, query, runID, entityName)
	if err != nil {
		return nil, fmt.Errorf("query by run and entity: %w", err)
	}
	defer rows.Close()

	var points []*domain.CombinedPoint
	for rows.Next() {
		var p domain.CombinedPoint
		var monthIndex int32
		var source string

		err := rows.Scan(
			&p.RunID, &p.EntityName, &monthIndex,
			&p.Value, &p.Cumulative, &source,
		)
		if err != nil {
			return nil, fmt.Errorf("scan combined point row: %w", err)
		}

		p.MonthIndex = int(monthIndex)
		p.Source = domain.SeriesSource(source)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate combined point rows: %w", err)
	}

	return points, nil
}

// EntitiesByRun lists the distinct entities persisted for a run, ordered by name ASC.
func (s *CombinedPointStore) EntitiesByRun(ctx context.Context, runID string) ([]string, error) {
	query := `
		SELECT DISTINCT entity_name
		FROM combined_points
		WHERE run_id = ?
		ORDER BY entity_name ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query entities by run: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan entity name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity names: %w", err)
	}

	return names, nil
}

// exists checks if a point with the given key exists.
func (s *CombinedPointStore) exists(ctx context.Context, runID, entityName string, monthIndex int, source domain.SeriesSource) (bool, error) {
	query := `
		SELECT count(*) FROM combined_points
		WHERE run_id = ? AND entity_name = ? AND month_index = ? AND source = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, runID, entityName, int32(monthIndex), string(source)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
