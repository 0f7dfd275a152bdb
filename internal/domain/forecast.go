package domain

// ForecastPoint represents one predicted month emitted by the engine.
// Corresponds to forecast_points table in ClickHouse.
type ForecastPoint struct {
	RunID            string  // owning forecast run, stamped at persist time
	EntityName       string  // forecasted entity
	MonthIndex       int     // calendar month of the prediction
	Predicted        float64 // model output for the month
	MonthsSinceStart int     // entity-local step counter carried into features
	CreatedAt        int64   // record creation timestamp (ms)
}

// CombinedPoint is one row of the merged historical+forecast series.
// Corresponds to combined_points table in ClickHouse.
type CombinedPoint struct {
	RunID      string       // owning forecast run, stamped at persist time
	EntityName string       // owning entity
	MonthIndex int          // calendar month
	Value      float64      // observed value or prediction
	Cumulative float64      // running total over the sorted series
	Source     SeriesSource // HISTORICAL | FORECAST
}

// CombinedSeries is the assembled output for one entity.
// Read-only after assembly; cumulative totals are never recomputed in place.
type CombinedSeries struct {
	EntityName string
	Points     []CombinedPoint
}

// LastCumulative returns the final running total, or 0 for an empty series.
func (s *CombinedSeries) LastCumulative() float64 {
	if s == nil || len(s.Points) == 0 {
		return 0
	}
	return s.Points[len(s.Points)-1].Cumulative
}
