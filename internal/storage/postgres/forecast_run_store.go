package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage"
)

// ForecastRunStore implements storage.ForecastRunStore using PostgreSQL.
type ForecastRunStore struct {
	pool *Pool
}

// NewForecastRunStore creates a new ForecastRunStore.
func NewForecastRunStore(pool *Pool) *ForecastRunStore {
	return &ForecastRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ForecastRunStore = (*ForecastRunStore)(nil)

// Insert records a completed run. Returns ErrDuplicateKey if run_id exists.
func (s *ForecastRunStore) Insert(ctx context.Context, run *domain.ForecastRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO forecast_runs (
			run_id, started_at, horizon, model_id,
			entities_requested, entities_succeeded, entities_failed
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		run.RunID,
		run.StartedAt,
		run.Horizon,
		run.ModelID,
		run.EntitiesRequested,
		run.EntitiesSucceeded,
		run.EntitiesFailed,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert forecast run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ForecastRunStore) GetByID(ctx context.Context, runID string) (*domain.ForecastRun, error) {
	query := `
		SELECT run_id, started_at, horizon, model_id,
		       entities_requested, entities_succeeded, entities_failed, created_at
		FROM forecast_runs
		WHERE run_id = $1
	`

	row := s.pool.QueryRow(ctx, query, runID)
	run, err := scanForecastRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get forecast run by id: %w", err)
	}
	return run, nil
}

// List retrieves all runs, ordered by started_at DESC.
func (s *ForecastRunStore) List(ctx context.Context) ([]*domain.ForecastRun, error) {
	query := `
		SELECT run_id, started_at, horizon, model_id,
		       entities_requested, entities_succeeded, entities_failed, created_at
		FROM forecast_runs
		ORDER BY started_at DESC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list forecast runs: %w", err)
	}
	defer rows.Close()

	var result []*domain.ForecastRun
	for rows.Next() {
		run, err := scanForecastRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan forecast run: %w", err)
		}
		result = append(result, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate forecast runs: %w", err)
	}
	return result, nil
}

// scanForecastRun scans one forecast run row.
func scanForecastRun(row pgx.Row) (*domain.ForecastRun, error) {
	var run domain.ForecastRun
	err := row.Scan(
		&run.RunID,
		&run.StartedAt,
		&run.Horizon,
		&run.ModelID,
		&run.EntitiesRequested,
		&run.EntitiesSucceeded,
		&run.EntitiesFailed,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
