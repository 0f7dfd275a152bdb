package replay

import (
	"context"
	"fmt"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/forecast"
	"ev-forecast-lab/internal/model"
	"ev-forecast-lab/internal/storage"
)

// Runner rebuilds forecast inputs from storage and replays stored runs
// through a fresh forecast pass.
type Runner struct {
	runStore      storage.ForecastRunStore
	combinedStore storage.CombinedPointStore
	entityStore   storage.EntityStore
	model         model.Model
}

// NewRunner creates a replay runner. The model identity is checked
// against the stored run record before any entity is replayed.
func NewRunner(runStore storage.ForecastRunStore, combinedStore storage.CombinedPointStore, entityStore storage.EntityStore, m model.Model) *Runner {
	return &Runner{
		runStore:      runStore,
		combinedStore: combinedStore,
		entityStore:   entityStore,
		model:         m,
	}
}

// RebuildHistory extracts the historical input series from stored
// combined rows. Points arrive month ASC from the store; only
// HISTORICAL rows carry observed values, FORECAST rows are dropped.
func RebuildHistory(points []*domain.CombinedPoint) []domain.SeriesPoint {
	history := make([]domain.SeriesPoint, 0, len(points))
	for _, p := range points {
		if p.Source != domain.SourceHistorical {
			continue
		}
		history = append(history, domain.SeriesPoint{
			EntityName: p.EntityName,
			MonthIndex: p.MonthIndex,
			Value:      p.Value,
			Source:     domain.SourceHistorical,
		})
	}
	return history
}

// Run replays a single entity of a stored run through the engine.
func (r *Runner) Run(ctx context.Context, runID, entityName string, engine Engine) error {
	run, err := r.loadRun(ctx, runID)
	if err != nil {
		return err
	}
	return r.replayEntity(ctx, run, entityName, engine)
}

// RunAll replays every entity persisted for a run, in name ASC order.
// The first failing entity aborts the replay.
func (r *Runner) RunAll(ctx context.Context, runID string, engine Engine) error {
	run, err := r.loadRun(ctx, runID)
	if err != nil {
		return err
	}

	names, err := r.combinedStore.EntitiesByRun(ctx, runID)
	if err != nil {
		return err
	}

	for _, name := range names {
		if err := r.replayEntity(ctx, run, name, engine); err != nil {
			return err
		}
	}
	return nil
}

// loadRun fetches the run record and checks model identity.
func (r *Runner) loadRun(ctx context.Context, runID string) (*domain.ForecastRun, error) {
	run, err := r.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.ModelID != r.model.ID() {
		return nil, fmt.Errorf("%w: run recorded %q, replaying with %q",
			ErrModelMismatch, run.ModelID, r.model.ID())
	}
	return run, nil
}

// replayEntity re-derives one entity's forecast from stored data.
//
// Steps:
//  1. Load the entity record (its code feeds the feature vector)
//  2. Rebuild the historical series from stored combined rows
//  3. Re-run the forecast with the stored horizon
//  4. Stream the regenerated series to the engine
func (r *Runner) replayEntity(ctx context.Context, run *domain.ForecastRun, entityName string, engine Engine) error {
	entity, err := r.entityStore.GetByName(ctx, entityName)
	if err != nil {
		return err
	}

	stored, err := r.combinedStore.GetByRunAndEntity(ctx, run.RunID, entityName)
	if err != nil {
		return err
	}

	history := RebuildHistory(stored)
	if len(history) == 0 {
		return fmt.Errorf("%w: %s in run %s", ErrNoHistory, entityName, run.RunID)
	}

	runner := forecast.NewRunner(forecast.RunnerOptions{
		Model:   r.model,
		Horizon: run.Horizon,
	})
	result, err := runner.Run(ctx, *entity, history)
	if err != nil {
		return err
	}

	return engine.OnSeries(ctx, &EntityReplay{
		RunID:      run.RunID,
		EntityName: entityName,
		History:    history,
		Forecasts:  result.Forecasts,
		Combined:   result.Combined,
	})
}
