// Package series assembles observed history and forecast output into
// the single chronological view the rest of the system consumes.
package series

import (
	"ev-forecast-lab/internal/domain"
)

// Assemble merges observations with forecast points into one series
// sorted by month and computes the running cumulative total across the
// historical/forecast boundary. Historical points order before
// forecast points in the same month; in practice the sources never
// collide because forecasting starts after the newest observation.
//
// The returned series is a snapshot: cumulative totals are computed
// once here and never adjusted in place afterwards.
func Assemble(entityName string, history []domain.SeriesPoint, forecasts []domain.ForecastPoint) *domain.CombinedSeries {
	points := make([]domain.CombinedPoint, 0, len(history)+len(forecasts))

	for _, p := range history {
		points = append(points, domain.CombinedPoint{
			EntityName: entityName,
			MonthIndex: p.MonthIndex,
			Value:      p.Value,
			Source:     domain.SourceHistorical,
		})
	}
	for _, p := range forecasts {
		points = append(points, domain.CombinedPoint{
			EntityName: entityName,
			MonthIndex: p.MonthIndex,
			Value:      p.Predicted,
			Source:     domain.SourceForecast,
		})
	}

	SortCombined(points)

	running := 0.0
	for i := range points {
		running += points[i].Value
		points[i].Cumulative = running
	}

	return &domain.CombinedSeries{
		EntityName: entityName,
		Points:     points,
	}
}

// StampRunID sets the owning run on every point before persistence.
func StampRunID(points []domain.CombinedPoint, runID string) {
	for i := range points {
		points[i].RunID = runID
	}
}
