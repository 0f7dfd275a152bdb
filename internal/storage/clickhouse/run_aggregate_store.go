package clickhouse

import (
	"context"
	"fmt"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage"
)

// RunAggregateStore implements storage.RunAggregateStore using ClickHouse.
type RunAggregateStore struct {
	conn *Conn
}

// NewRunAggregateStore creates a new RunAggregateStore.
func NewRunAggregateStore(conn *Conn) *RunAggregateStore {
	return &RunAggregateStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RunAggregateStore = (*RunAggregateStore)(nil)

// Insert adds a new aggregate. Returns ErrDuplicateKey if (run_id, entity_name) exists.
func (s *RunAggregateStore) Insert(ctx context.Context, a *domain.RunAggregate) error {
	if a == nil || a.RunID == "" || a.EntityName == "" {
		return storage.ErrInvalidInput
	}

	// ReplacingMergeTree would silently replace; we want append-only semantics.
	exists, err := s.exists(ctx, a.RunID, a.EntityName)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO run_aggregates (
			run_id, entity_name,
			history_months, forecast_months,
			final_value, final_cumulative, forecast_total, growth_pct
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = s.conn.Exec(ctx, query,
		a.RunID, a.EntityName,
		int32(a.HistoryMonths), int32(a.ForecastMonths),
		a.FinalValue, a.FinalCumulative, a.ForecastTotal, a.GrowthPct,
	)
	if err != nil {
		return fmt.Errorf("insert run aggregate: %w", err)
	}
	return nil
}

// InsertBulk adds multiple aggregates atomically. Fails entire batch on any duplicate.
func (s *RunAggregateStore) InsertBulk(ctx context.Context, aggregates []*domain.RunAggregate) error {
	if len(aggregates) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{})
	for _, a := range aggregates {
		if a == nil || a.RunID == "" || a.EntityName == "" {
			return storage.ErrInvalidInput
		}
		key := a.RunID + "|" + a.EntityName
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, a := range aggregates {
		exists, err := s.exists(ctx, a.RunID, a.EntityName)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO run_aggregates (
			run_id, entity_name,
			history_months, forecast_months,
			final_value, final_cumulative, forecast_total, growth_pct
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, a := range aggregates {
		err = batch.Append(
			a.RunID, a.EntityName,
			int32(a.HistoryMonths), int32(a.ForecastMonths),
			a.FinalValue, a.FinalCumulative, a.ForecastTotal, a.GrowthPct,
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

// GetByRun retrieves all aggregates of a run, ordered by entity ASC.
func (s *RunAggregateStore) GetByRun(ctx context.Context, runID string) ([]*domain.RunAggregate, error) {
	query := `
		SELECT run_id, entity_name,
		       history_months, forecast_months,
		       final_value, final_cumulative, forecast_total, growth_pct
		FROM run_aggregates
		WHERE run_id = ?
		ORDER BY entity_name ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query aggregates by run: %w", err)
	}
	defer rows.Close()

	return scanRunAggregates(rows)
}

// exists checks if an aggregate with the given key exists.
func (s *RunAggregateStore) exists(ctx context.Context, runID, entityName string) (bool, error) {
	query := `
		SELECT count(*) FROM run_aggregates
		WHERE run_id = ? AND entity_name = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, runID, entityName).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the minimal row iteration interface shared by scan helpers.
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanRunAggregates scans multiple rows.
func scanRunAggregates(rows chRows) ([]*domain.RunAggregate, error) {
	var aggregates []*domain.RunAggregate

	for rows.Next() {
		var a domain.RunAggregate
		var historyMonths, forecastMonths int32

		err := rows.Scan(
			&a.RunID, &a.EntityName,
			&historyMonths, &forecastMonths,
			&a.FinalValue, &a.FinalCumulative, &a.ForecastTotal, &a.GrowthPct,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run aggregate row: %w", err)
		}

		a.HistoryMonths = int(historyMonths)
		a.ForecastMonths = int(forecastMonths)
		aggregates = append(aggregates, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run aggregate rows: %w", err)
	}

	return aggregates, nil
}
