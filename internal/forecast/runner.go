package forecast

import (
	"context"
	"fmt"
	"log"
	"sync"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/model"
	"ev-forecast-lab/internal/series"
)

// Request names one entity's forecast work within a batch.
type Request struct {
	Entity  domain.Entity
	History []domain.SeriesPoint // monthly observations, any order
}

// Result is one entity's completed forecast.
type Result struct {
	Entity    domain.Entity
	Forecasts []domain.ForecastPoint
	Combined  *domain.CombinedSeries
}

// Outcome pairs one requested entity with its result or failure.
// Exactly one of Result and Err is set.
type Outcome struct {
	EntityName string
	Result     *Result
	Err        error
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	// Model produces one prediction per step.
	Model model.Model

	// Horizon is the number of months to forecast per entity.
	Horizon int

	// Workers bounds concurrent entities in RunMany. Values below 1
	// mean 1. More than one worker requires a Model that is safe for
	// concurrent use.
	Workers int

	// Verbose enables progress logging.
	Verbose bool
}

// Runner executes autoregressive forecasts over one or many entities.
// Entities are independent: a failure in one never aborts the rest of
// a batch.
type Runner struct {
	model   model.Model
	horizon int
	workers int
	verbose bool
}

// NewRunner creates a runner from options.
func NewRunner(opts RunnerOptions) *Runner {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		model:   opts.Model,
		horizon: opts.Horizon,
		workers: workers,
		verbose: opts.Verbose,
	}
}

// Horizon reports the configured steps per entity.
func (r *Runner) Horizon() int {
	return r.horizon
}

// Run forecasts a single entity.
//
// Steps:
//  1. Sort the history and validate sufficiency
//  2. Seed the trailing window from the newest observations
//  3. Execute horizon sequential steps, feeding each prediction back
//  4. Assemble the combined historical+forecast series
//
// A model failure or a non-finite prediction aborts the remaining
// steps and surfaces as a *PredictionError recording the failed step;
// no forecast points beyond the last good step are emitted.
func (r *Runner) Run(ctx context.Context, entity domain.Entity, history []domain.SeriesPoint) (*Result, error) {
	if r.horizon <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHorizon, r.horizon)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: %s has no observations", ErrUnknownEntity, entity.Name)
	}
	if len(history) < MinHistory {
		return nil, fmt.Errorf("%w: %s has %d observations, need %d",
			ErrInsufficientHistory, entity.Name, len(history), MinHistory)
	}

	sorted := series.SortedPoints(history)
	values := make([]float64, len(sorted))
	for i, p := range sorted {
		values[i] = p.Value
	}

	window, err := NewWindow(values)
	if err != nil {
		return nil, err
	}

	first := sorted[0]
	last := sorted[len(sorted)-1]
	stepper := NewStepper(StepperOptions{
		Entity:           entity,
		Model:            r.model,
		Window:           window,
		LastMonthIndex:   last.MonthIndex,
		MonthsSinceStart: last.MonthIndex - first.MonthIndex,
	})

	forecasts := make([]domain.ForecastPoint, 0, r.horizon)
	for step := 1; step <= r.horizon; step++ {
		if err := ctx.Err(); err != nil {
			return nil, &PredictionError{EntityName: entity.Name, Step: step, Err: err}
		}
		point, err := stepper.Step(ctx)
		if err != nil {
			return nil, &PredictionError{EntityName: entity.Name, Step: step, Err: err}
		}
		forecasts = append(forecasts, point)
	}

	return &Result{
		Entity:    entity,
		Forecasts: forecasts,
		Combined:  series.Assemble(entity.Name, sorted, forecasts),
	}, nil
}

// RunMany forecasts a batch of entities.
//
// Steps:
//  1. Fan requests out to the worker pool
//  2. Run each entity independently
//  3. Record exactly one outcome per requested entity, in request order
//
// A failed or cancelled entity is recorded in its outcome and never
// aborts the batch.
func (r *Runner) RunMany(ctx context.Context, requests []Request) []Outcome {
	outcomes := make([]Outcome, len(requests))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				req := requests[i]
				result, err := r.Run(ctx, req.Entity, req.History)
				outcomes[i] = Outcome{EntityName: req.Entity.Name, Result: result, Err: err}
				if err != nil {
					r.log("entity %s failed: %v", req.Entity.Name, err)
				} else {
					r.log("entity %s: %d forecast points", req.Entity.Name, len(result.Forecasts))
				}
			}
		}()
	}

	for i := range requests {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// log prints progress output when verbose mode is enabled.
func (r *Runner) log(format string, args ...interface{}) {
	if r.verbose {
		log.Printf("[forecast] "+format, args...)
	}
}
