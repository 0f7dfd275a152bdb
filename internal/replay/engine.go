// Package replay re-executes stored forecast runs from persisted data.
// Each entity's historical input is rebuilt from the run's HISTORICAL
// combined rows, the forecast is re-run with the stored horizon and the
// same model, and every regenerated series streams to an Engine.
package replay

import (
	"context"

	"ev-forecast-lab/internal/domain"
)

// EntityReplay is one entity's regenerated forecast within a stored run.
type EntityReplay struct {
	RunID      string
	EntityName string

	// History is the input series rebuilt from the stored HISTORICAL
	// combined rows, ordered by month ASC.
	History []domain.SeriesPoint

	// Forecasts are the regenerated predictions. RunID is not stamped
	// on them; replays never persist.
	Forecasts []domain.ForecastPoint

	// Combined is the regenerated historical+forecast series.
	Combined *domain.CombinedSeries
}

// Engine consumes regenerated series during a replay.
type Engine interface {
	// OnSeries is called once per replayed entity. RunAll guarantees
	// calls arrive in entity name ASC order.
	OnSeries(ctx context.Context, replay *EntityReplay) error
}
