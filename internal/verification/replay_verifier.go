package verification

import (
	"context"
	"errors"
	"fmt"

	"ev-forecast-lab/internal/model"
	"ev-forecast-lab/internal/replay"
	"ev-forecast-lab/internal/storage"
)

// ErrEntityNotInRun is returned when a run holds no stored series for
// the requested entity.
var ErrEntityNotInRun = errors.New("entity has no stored series in run")

// ReplayVerifier implements Verifier by re-running stored forecasts and
// comparing the regenerated series against the persisted rows.
type ReplayVerifier struct {
	combinedStore storage.CombinedPointStore
	forecastStore storage.ForecastPointStore
	runner        *replay.Runner
}

// ReplayVerifierOptions contains the stores and model for verification.
type ReplayVerifierOptions struct {
	RunStore      storage.ForecastRunStore
	CombinedStore storage.CombinedPointStore
	ForecastStore storage.ForecastPointStore
	EntityStore   storage.EntityStore

	// Model must carry the same identity as the one that produced the
	// runs under verification.
	Model model.Model
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		combinedStore: opts.CombinedStore,
		forecastStore: opts.ForecastStore,
		runner:        replay.NewRunner(opts.RunStore, opts.CombinedStore, opts.EntityStore, opts.Model),
	}
}

// Compile-time interface check.
var _ Verifier = (*ReplayVerifier)(nil)

// captureEngine keeps the single replayed series handed to it.
type captureEngine struct {
	series *replay.EntityReplay
}

func (e *captureEngine) OnSeries(_ context.Context, r *replay.EntityReplay) error {
	e.series = r
	return nil
}

// VerifyEntity re-derives one entity's forecast and compares it against
// the stored rows.
func (v *ReplayVerifier) VerifyEntity(ctx context.Context, runID, entityName string) (*VerificationResult, error) {
	// 1. Load stored rows
	stored, err := v.combinedStore.GetByRunAndEntity(ctx, runID, entityName)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("%w: %s in run %s", ErrEntityNotInRun, entityName, runID)
	}

	storedForecasts, err := v.forecastStore.GetByRunAndEntity(ctx, runID, entityName)
	if err != nil {
		return nil, err
	}

	// 2. Replay the forecast
	capture := &captureEngine{}
	if err := v.runner.Run(ctx, runID, entityName, capture); err != nil {
		return nil, err
	}

	// 3. Compare series rows and predictions
	divergences := ComparePoints(stored, capture.series.Combined.Points)
	divergences = append(divergences, CompareForecastPoints(storedForecasts, capture.series.Forecasts)...)

	return &VerificationResult{
		EntityName:    entityName,
		Match:         len(divergences) == 0,
		Divergences:   divergences,
		StoredFinal:   stored[len(stored)-1].Cumulative,
		ReplayedFinal: capture.series.Combined.LastCumulative(),
	}, nil
}

// VerifyRun verifies every entity persisted for a run, in name ASC
// order. A failed entity is recorded as a divergence; the remaining
// entities still verify.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationReport, error) {
	names, err := v.combinedStore.EntitiesByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		RunID:         runID,
		TotalEntities: len(names),
		Results:       make([]VerificationResult, 0, len(names)),
	}

	for _, name := range names {
		result, err := v.VerifyEntity(ctx, runID, name)
		if err != nil {
			report.Results = append(report.Results, VerificationResult{
				EntityName: name,
				Match:      false,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentEntities++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedEntities++
		} else {
			report.DivergentEntities++
		}
	}

	return report, nil
}
