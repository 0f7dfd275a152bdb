package metrics

import (
	"context"
	"errors"
	"fmt"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage"
)

// ErrNoPoints is returned when no combined points are available for aggregation.
var ErrNoPoints = errors.New("no combined points available for aggregation")

// Aggregator computes per-entity run aggregates from combined series points.
type Aggregator struct {
	combinedStore  storage.CombinedPointStore
	aggregateStore storage.RunAggregateStore
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(combinedStore storage.CombinedPointStore, aggregateStore storage.RunAggregateStore) *Aggregator {
	return &Aggregator{
		combinedStore:  combinedStore,
		aggregateStore: aggregateStore,
	}
}

// ComputeForEntity computes the aggregate for one entity of a run.
// Loads the entity's combined timeline, splits it by source, and rolls up
// the final levels and forecast growth. Returns ErrNoPoints if the run
// holds no points for the entity.
func (a *Aggregator) ComputeForEntity(ctx context.Context, runID, entityName string) (*domain.RunAggregate, error) {
	points, err := a.combinedStore.GetByRunAndEntity(ctx, runID, entityName)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, ErrNoPoints
	}

	agg := &domain.RunAggregate{
		RunID:      runID,
		EntityName: entityName,
	}

	// Points arrive ordered by month, observed rows first on a collision,
	// so the last historical point carries the pre-forecast cumulative level.
	histCumulative := 0.0
	forecastTotal := 0.0
	for _, p := range points {
		switch p.Source {
		case domain.SourceHistorical:
			agg.HistoryMonths++
			histCumulative = p.Cumulative
		case domain.SourceForecast:
			agg.ForecastMonths++
			forecastTotal += p.Value
		default:
			return nil, fmt.Errorf("combined point %s month %d: unknown source %q",
				entityName, p.MonthIndex, p.Source)
		}
	}

	last := points[len(points)-1]
	agg.FinalValue = last.Value
	agg.FinalCumulative = last.Cumulative
	agg.ForecastTotal = forecastTotal
	agg.GrowthPct = PctChange(agg.FinalCumulative, histCumulative) * 100

	return agg, nil
}

// ComputeForRun computes aggregates for every entity of a run, ordered by
// entity name.
func (a *Aggregator) ComputeForRun(ctx context.Context, runID string) ([]*domain.RunAggregate, error) {
	entities, err := a.combinedStore.EntitiesByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, ErrNoPoints
	}

	aggregates := make([]*domain.RunAggregate, 0, len(entities))
	for _, name := range entities {
		agg, err := a.ComputeForEntity(ctx, runID, name)
		if err != nil {
			return nil, fmt.Errorf("aggregate entity %s: %w", name, err)
		}
		aggregates = append(aggregates, agg)
	}

	return aggregates, nil
}

// ComputeAndStore computes and persists aggregates for a run.
// Returns storage.ErrDuplicateKey if aggregates already exist (append-only).
func (a *Aggregator) ComputeAndStore(ctx context.Context, runID string) ([]*domain.RunAggregate, error) {
	aggregates, err := a.ComputeForRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	if err := a.aggregateStore.InsertBulk(ctx, aggregates); err != nil {
		return nil, err
	}

	return aggregates, nil
}
