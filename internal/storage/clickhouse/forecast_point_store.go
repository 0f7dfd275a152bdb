package clickhouse

import (
	"context"
	"fmt"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage"
)

// ForecastPointStore implements storage.ForecastPointStore using ClickHouse.
type ForecastPointStore struct {
	conn *Conn
}

// NewForecastPointStore creates a new ForecastPointStore.
func NewForecastPointStore(conn *Conn) *ForecastPointStore {
	return &ForecastPointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ForecastPointStore = (*ForecastPointStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (run_id, entity_name, month_index). ClickHouse MergeTree does not
// enforce uniqueness, so duplicates are rejected by explicit checks
// before the batch is sent.
func (s *ForecastPointStore) InsertBulk(ctx context.Context, points []*domain.ForecastPoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		runID      string
		entityName string
		monthIndex int
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		if p == nil || p.RunID == "" || p.EntityName == "" {
			return storage.ErrInvalidInput
		}
		k := key{p.RunID, p.EntityName, p.MonthIndex}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.RunID, p.EntityName, p.MonthIndex)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO forecast_points (
			run_id, entity_name, month_index, predicted, months_since_start, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.RunID, p.EntityName, int32(p.MonthIndex),
			p.Predicted, int32(p.MonthsSinceStart), uint64(p.CreatedAt),
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

// GetByRun retrieves all points of a run, ordered by entity ASC, month ASC.
func (s *ForecastPointStore) GetByRun(ctx context.Context, runID string) ([]*domain.ForecastPoint, error) {
	query := `
		SELECT run_id, entity_name, month_index, predicted, months_since_start, created_at
		FROM forecast_points
		WHERE run_id = ?
		ORDER BY entity_name ASC, month_index ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run: %w", err)
	}
	defer rows.Close()

	return scanForecastPoints(rows)
}

// GetByRunAndEntity retrieves one entity's points within a run, ordered by month ASC.
func (s *ForecastPointStore) GetByRunAndEntity(ctx context.Context, runID, entityName string) ([]*domain.ForecastPoint, error) {
	query := `
		SELECT run_id, entity_name, month_index, predicted, months_since_start, created_at
		FROM forecast_points
		WHERE run_id = ? AND entity_name = ?
		ORDER BY month_index ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, entityName)
	if err != nil {
		return nil, fmt.Errorf("query by run and entity: %w", err)
	}
	defer rows.Close()

	return scanForecastPoints(rows)
}

// exists checks if a point with the given key exists.
func (s *ForecastPointStore) exists(ctx context.Context, runID, entityName string, monthIndex int) (bool, error) {
	query := `
		SELECT count(*) FROM forecast_points
		WHERE run_id = ? AND entity_name = ? AND month_index = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, runID, entityName, int32(monthIndex)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanForecastPoints scans multiple rows.
func scanForecastPoints(rows chRows) ([]*domain.ForecastPoint, error) {
	var points []*domain.ForecastPoint

	for rows.Next() {
		var p domain.ForecastPoint
		var monthIndex, monthsSinceStart int32
		var createdAt uint64

		err := rows.Scan(
			&p.RunID, &p.EntityName, &monthIndex,
			&p.Predicted, &monthsSinceStart, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan forecast point row: %w", err)
		}

		p.MonthIndex = int(monthIndex)
		p.MonthsSinceStart = int(monthsSinceStart)
		p.CreatedAt = int64(createdAt)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate forecast point rows: %w", err)
	}

	return points, nil
}
