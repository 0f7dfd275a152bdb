// Package orchestrator provides E2E forecast run orchestration.
// It coordinates: entity resolution → history loading → forecasting →
// persistence → metrics aggregation
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/forecast"
	"ev-forecast-lab/internal/idhash"
	"ev-forecast-lab/internal/metrics"
	"ev-forecast-lab/internal/model"
	"ev-forecast-lab/internal/series"
	"ev-forecast-lab/internal/storage"
)

// Orchestrator coordinates one full forecast run.
// Flow: resolve entities → load observations → forecast → persist → aggregate
type Orchestrator struct {
	// Stores
	entityStore        storage.EntityStore
	observationStore   storage.ObservationStore
	forecastRunStore   storage.ForecastRunStore
	forecastPointStore storage.ForecastPointStore
	combinedPointStore storage.CombinedPointStore
	runAggregateStore  storage.RunAggregateStore

	// Model
	model model.Model

	// Options
	horizon        int
	workers        int
	entities       []string
	skipAggregates bool
	verbose        bool

	now func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	EntityStore        storage.EntityStore
	ObservationStore   storage.ObservationStore
	ForecastRunStore   storage.ForecastRunStore
	ForecastPointStore storage.ForecastPointStore
	CombinedPointStore storage.CombinedPointStore
	RunAggregateStore  storage.RunAggregateStore

	// Model produces one prediction per forecast step.
	Model model.Model

	// Horizon is the number of months to forecast per entity.
	Horizon int

	// Workers bounds concurrent entities during forecasting.
	Workers int

	// Entities optionally restricts the run to the named entities.
	// Empty means every registered entity.
	Entities []string

	// Options
	SkipAggregates bool // Skip the per-entity rollup phase
	Verbose        bool

	// Now overrides the clock, used by tests for reproducible run IDs.
	Now func() time.Time
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		entityStore:        opts.EntityStore,
		observationStore:   opts.ObservationStore,
		forecastRunStore:   opts.ForecastRunStore,
		forecastPointStore: opts.ForecastPointStore,
		combinedPointStore: opts.CombinedPointStore,
		runAggregateStore:  opts.RunAggregateStore,
		model:              opts.Model,
		horizon:            opts.Horizon,
		workers:            opts.Workers,
		entities:           opts.Entities,
		skipAggregates:     opts.SkipAggregates,
		verbose:            opts.Verbose,
		now:                now,
	}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	RunID             string
	EntitiesRequested int
	EntitiesSucceeded int
	EntitiesFailed    int
	ForecastPoints    int
	CombinedPoints    int
	AggregatesCreated int
	Errors            []string
}

// Run executes the full forecast run.
// Phases:
//  1. Resolve the requested entities
//  2. Load each entity's observation history
//  3. Forecast every entity (failures stay isolated per entity)
//  4. Persist forecast and combined points under one run ID
//  5. Compute per-entity aggregates
//  6. Record the run
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}

	// Phase 1: Resolve entities
	o.log("Phase 1: Resolving entities...")
	entities, unknown, err := o.resolveEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (resolve entities) failed: %w", err)
	}
	result.EntitiesRequested = len(entities) + len(unknown)
	for _, name := range unknown {
		result.EntitiesFailed++
		result.Errors = append(result.Errors, fmt.Sprintf("forecast %s: %v", name, forecast.ErrUnknownEntity))
	}
	o.log("  Resolved %d entities (%d unknown)", len(entities), len(unknown))

	if result.EntitiesRequested == 0 {
		return result, nil
	}

	// Phase 2: Load observation histories
	o.log("Phase 2: Loading observations...")
	requests, err := o.loadHistories(ctx, entities)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (load observations) failed: %w", err)
	}

	// Phase 3: Forecast
	startedAt := o.now().UnixMilli()
	requested := make([]string, 0, result.EntitiesRequested)
	for _, e := range entities {
		requested = append(requested, e.Name)
	}
	requested = append(requested, unknown...)
	runID := idhash.ComputeRunID(startedAt, o.model.ID(), o.horizon, requested)
	result.RunID = runID

	o.log("Phase 3: Forecasting run %s (%d entities, horizon %d)...", runID, len(requests), o.horizon)
	runner := forecast.NewRunner(forecast.RunnerOptions{
		Model:   o.model,
		Horizon: o.horizon,
		Workers: o.workers,
		Verbose: o.verbose,
	})
	outcomes := runner.RunMany(ctx, requests)

	for _, out := range outcomes {
		if out.Err != nil {
			result.EntitiesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("forecast %s: %v", out.EntityName, out.Err))
			continue
		}
		result.EntitiesSucceeded++
	}
	o.log("  Forecasted %d entities (%d failed)", result.EntitiesSucceeded, result.EntitiesFailed)

	// Phase 4: Persist points
	o.log("Phase 4: Persisting points...")
	if err := o.persistOutcomes(ctx, runID, startedAt, outcomes, result); err != nil {
		return nil, fmt.Errorf("phase 4 (persist points) failed: %w", err)
	}
	o.log("  Persisted %d forecast points, %d combined points", result.ForecastPoints, result.CombinedPoints)

	// Phase 5: Metrics aggregation
	if !o.skipAggregates && result.EntitiesSucceeded > 0 {
		o.log("Phase 5: Computing aggregates...")
		aggsCreated, aggErrors := o.runAggregation(ctx, runID)
		result.AggregatesCreated = aggsCreated
		result.Errors = append(result.Errors, aggErrors...)
		o.log("  Created %d aggregates (%d errors)", aggsCreated, len(aggErrors))
	} else {
		o.log("Phase 5: Skipping aggregates")
	}

	// Phase 6: Record the run
	o.log("Phase 6: Recording run...")
	run := &domain.ForecastRun{
		RunID:             runID,
		StartedAt:         startedAt,
		Horizon:           o.horizon,
		ModelID:           o.model.ID(),
		EntitiesRequested: result.EntitiesRequested,
		EntitiesSucceeded: result.EntitiesSucceeded,
		EntitiesFailed:    result.EntitiesFailed,
	}
	if err := o.forecastRunStore.Insert(ctx, run); err != nil {
		return nil, fmt.Errorf("phase 6 (record run) failed: %w", err)
	}

	o.log("Run %s completed: %d/%d entities, %d forecast points, %d aggregates",
		runID, result.EntitiesSucceeded, result.EntitiesRequested,
		result.ForecastPoints, result.AggregatesCreated)

	return result, nil
}

// resolveEntities loads the requested entities, or every registered
// entity when no subset was named. Unknown names are returned separately
// so they fail in isolation instead of aborting the run.
func (o *Orchestrator) resolveEntities(ctx context.Context) ([]*domain.Entity, []string, error) {
	if len(o.entities) == 0 {
		all, err := o.entityStore.List(ctx)
		return all, nil, err
	}

	resolved := make([]*domain.Entity, 0, len(o.entities))
	var unknown []string
	for _, name := range o.entities {
		e, err := o.entityStore.GetByName(ctx, name)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				unknown = append(unknown, name)
				continue
			}
			return nil, nil, err
		}
		resolved = append(resolved, e)
	}
	return resolved, unknown, nil
}

// loadHistories builds one forecast request per entity from stored
// observations. Entities without observations still get a request; the
// forecast runner rejects them per entity.
func (o *Orchestrator) loadHistories(ctx context.Context, entities []*domain.Entity) ([]forecast.Request, error) {
	requests := make([]forecast.Request, 0, len(entities))
	for _, e := range entities {
		points, err := o.observationStore.GetByEntity(ctx, e.Name)
		if err != nil {
			return nil, fmt.Errorf("load observations for %s: %w", e.Name, err)
		}

		history := make([]domain.SeriesPoint, len(points))
		for i, p := range points {
			history[i] = *p
		}
		requests = append(requests, forecast.Request{Entity: *e, History: history})
	}
	return requests, nil
}

// persistOutcomes stamps successful outcomes with the run identity and
// bulk-inserts their points.
func (o *Orchestrator) persistOutcomes(ctx context.Context, runID string, startedAt int64, outcomes []forecast.Outcome, result *RunResult) error {
	var forecastPoints []*domain.ForecastPoint
	var combinedPoints []*domain.CombinedPoint

	for _, out := range outcomes {
		if out.Err != nil {
			continue
		}

		for i := range out.Result.Forecasts {
			fp := out.Result.Forecasts[i]
			fp.RunID = runID
			fp.CreatedAt = startedAt
			forecastPoints = append(forecastPoints, &fp)
		}

		combined := out.Result.Combined.Points
		series.StampRunID(combined, runID)
		for i := range combined {
			combinedPoints = append(combinedPoints, &combined[i])
		}
	}

	if err := o.forecastPointStore.InsertBulk(ctx, forecastPoints); err != nil {
		return fmt.Errorf("insert forecast points: %w", err)
	}
	if err := o.combinedPointStore.InsertBulk(ctx, combinedPoints); err != nil {
		return fmt.Errorf("insert combined points: %w", err)
	}

	result.ForecastPoints = len(forecastPoints)
	result.CombinedPoints = len(combinedPoints)
	return nil
}

// runAggregation computes per-entity rollups for the run.
func (o *Orchestrator) runAggregation(ctx context.Context, runID string) (int, []string) {
	aggregator := metrics.NewAggregator(o.combinedPointStore, o.runAggregateStore)

	aggregates, err := aggregator.ComputeAndStore(ctx, runID)
	if err != nil {
		// Skip no points (nothing persisted for the run)
		if errors.Is(err, metrics.ErrNoPoints) {
			return 0, nil
		}
		return 0, []string{fmt.Sprintf("aggregate run %s: %v", runID, err)}
	}

	return len(aggregates), nil
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
