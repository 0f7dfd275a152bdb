// Package evaluation scores forecast models against held-out months of
// observed history. The trailing holdout is never shown to the model;
// its forecasts are compared both to the held-out actuals and to a
// naive baseline over the same months.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/forecast"
	"ev-forecast-lab/internal/lookup"
	"ev-forecast-lab/internal/metrics"
	"ev-forecast-lab/internal/model"
	"ev-forecast-lab/internal/series"
)

// DefaultHoldout is the number of trailing months withheld for scoring.
const DefaultHoldout = 6

// ErrInvalidHoldout is returned for holdouts below one month.
var ErrInvalidHoldout = errors.New("holdout must be at least one month")

// ErrHistoryTooShort is returned when an entity cannot supply both a
// viable training head and the full holdout.
var ErrHistoryTooShort = errors.New("history too short for holdout evaluation")

// EntityScore holds one entity's holdout metrics.
type EntityScore struct {
	EntityName    string
	TrainMonths   int
	HoldoutMonths int

	MAE  float64
	RMSE float64
	MAPE float64
	R2   float64

	// BaselineMAE is the naive model's error over the same holdout.
	// MAERatio divides the model's MAE by it; below 1 means the model
	// beats the baseline. The ratio is 0 when the baseline is exact.
	BaselineMAE float64
	MAERatio    float64
}

// Options for creating Evaluator.
type Options struct {
	// Model is the candidate under evaluation.
	Model model.Model

	// Holdout is the number of trailing months to withhold. Zero means
	// DefaultHoldout.
	Holdout int

	Verbose bool
}

// Evaluator runs holdout evaluations.
type Evaluator struct {
	model   model.Model
	holdout int
	verbose bool
}

// New creates a new Evaluator.
func New(opts Options) *Evaluator {
	holdout := opts.Holdout
	if holdout == 0 {
		holdout = DefaultHoldout
	}
	return &Evaluator{
		model:   opts.Model,
		holdout: holdout,
		verbose: opts.Verbose,
	}
}

// EvaluateEntity scores the model on one entity.
//
// Steps:
//  1. Sort the history and split off the trailing holdout
//  2. Forecast the holdout months from the training head alone
//  3. Forecast the same months with the naive baseline
//  4. Compare both against the held-out actuals
func (e *Evaluator) EvaluateEntity(ctx context.Context, entity domain.Entity, history []domain.SeriesPoint) (*EntityScore, error) {
	if e.holdout < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHoldout, e.holdout)
	}

	sorted := series.SortedPoints(history)
	head, tail := lookup.SplitTail(sorted, e.holdout)
	if len(tail) < e.holdout || len(head) < forecast.MinHistory {
		return nil, fmt.Errorf("%w: %s has %d observations, need %d training + %d holdout",
			ErrHistoryTooShort, entity.Name, len(sorted), forecast.MinHistory, e.holdout)
	}

	predicted, err := e.forecastValues(ctx, e.model, entity, head)
	if err != nil {
		return nil, err
	}

	baseline, err := e.forecastValues(ctx, model.NewNaiveModel(), entity, head)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}

	actual := make([]float64, len(tail))
	for i, p := range tail {
		actual[i] = p.Value
	}

	score := &EntityScore{
		EntityName:    entity.Name,
		TrainMonths:   len(head),
		HoldoutMonths: e.holdout,
		MAE:           metrics.MAE(actual, predicted),
		RMSE:          metrics.RMSE(actual, predicted),
		MAPE:          metrics.MAPE(actual, predicted),
		R2:            metrics.R2(actual, predicted),
		BaselineMAE:   metrics.MAE(actual, baseline),
	}
	if score.BaselineMAE > 0 {
		score.MAERatio = score.MAE / score.BaselineMAE
	}

	e.log("entity %s: MAE %.4f (baseline %.4f), MAPE %.2f%%, R2 %.4f",
		entity.Name, score.MAE, score.BaselineMAE, score.MAPE, score.R2)

	return score, nil
}

// EvaluateMany scores every requested entity, isolating failures.
func (e *Evaluator) EvaluateMany(ctx context.Context, requests []forecast.Request) *Report {
	report := &Report{
		ModelID:   e.model.ID(),
		Holdout:   e.holdout,
		Requested: len(requests),
	}

	for _, req := range requests {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("evaluate %s: %v", req.Entity.Name, err))
			continue
		}

		score, err := e.EvaluateEntity(ctx, req.Entity, req.History)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("evaluate %s: %v", req.Entity.Name, err))
			continue
		}
		report.Scores = append(report.Scores, *score)
	}

	return report
}

// forecastValues runs an autoregressive forecast over the holdout months
// and returns the raw predictions.
func (e *Evaluator) forecastValues(ctx context.Context, m model.Model, entity domain.Entity, head []domain.SeriesPoint) ([]float64, error) {
	runner := forecast.NewRunner(forecast.RunnerOptions{
		Model:   m,
		Horizon: e.holdout,
	})

	result, err := runner.Run(ctx, entity, head)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(result.Forecasts))
	for i, fp := range result.Forecasts {
		values[i] = fp.Predicted
	}
	return values, nil
}

func (e *Evaluator) log(format string, args ...interface{}) {
	if e.verbose {
		log.Printf("[evaluation] "+format, args...)
	}
}
