package storage

import (
	"context"

	"ev-forecast-lab/internal/domain"
)

// EntityStore provides access to the entity registry.
type EntityStore interface {
	// Insert adds a new entity. Returns ErrDuplicateKey if the name or
	// the code is already registered.
	Insert(ctx context.Context, e *domain.Entity) error

	// GetByName retrieves an entity by its canonical name. Returns
	// ErrNotFound if not registered.
	GetByName(ctx context.Context, name string) (*domain.Entity, error)

	// List retrieves all entities, ordered by code ASC.
	List(ctx context.Context) ([]*domain.Entity, error)
}

// ObservationStore provides access to historical monthly observations.
type ObservationStore interface {
	// InsertBulk adds multiple observations atomically. Fails entire
	// batch on any duplicate (entity_name, month_index).
	InsertBulk(ctx context.Context, points []*domain.SeriesPoint) error

	// GetByEntity retrieves all observations for an entity, ordered by
	// month ASC.
	GetByEntity(ctx context.Context, entityName string) ([]*domain.SeriesPoint, error)

	// CountByEntity returns the observation count per entity name.
	CountByEntity(ctx context.Context) (map[string]int, error)
}

// ForecastRunStore provides access to forecast run metadata.
type ForecastRunStore interface {
	// Insert records a completed run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.ForecastRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.ForecastRun, error)

	// List retrieves all runs, ordered by started_at DESC.
	List(ctx context.Context) ([]*domain.ForecastRun, error)
}

// ForecastPointStore provides access to predicted points.
type ForecastPointStore interface {
	// InsertBulk adds multiple points atomically. Fails entire batch on
	// any duplicate (run_id, entity_name, month_index).
	InsertBulk(ctx context.Context, points []*domain.ForecastPoint) error

	// GetByRun retrieves all points of a run, ordered by entity ASC, month ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.ForecastPoint, error)

	// GetByRunAndEntity retrieves one entity's points within a run,
	// ordered by month ASC.
	GetByRunAndEntity(ctx context.Context, runID, entityName string) ([]*domain.ForecastPoint, error)
}

// CombinedPointStore provides access to assembled series rows.
type CombinedPointStore interface {
	// InsertBulk adds multiple points atomically. Fails entire batch on
	// any duplicate (run_id, entity_name, month_index, source).
	InsertBulk(ctx context.Context, points []*domain.CombinedPoint) error

	// GetByRunAndEntity retrieves one entity's combined series within a
	// run, ordered by month ASC with HISTORICAL before FORECAST.
	GetByRunAndEntity(ctx context.Context, runID, entityName string) ([]*domain.CombinedPoint, error)

	// EntitiesByRun lists the distinct entities persisted for a run,
	// ordered by name ASC.
	EntitiesByRun(ctx context.Context, runID string) ([]string, error)
}

// RunAggregateStore provides access to per-entity run summaries.
type RunAggregateStore interface {
	// Insert adds a new aggregate. Returns ErrDuplicateKey if
	// (run_id, entity_name) exists.
	Insert(ctx context.Context, a *domain.RunAggregate) error

	// InsertBulk adds multiple aggregates atomically. Fails entire
	// batch on any duplicate.
	InsertBulk(ctx context.Context, aggregates []*domain.RunAggregate) error

	// GetByRun retrieves all aggregates of a run, ordered by entity ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.RunAggregate, error)
}
