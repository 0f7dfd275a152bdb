package domain

// RunAggregate summarizes one entity's combined series within a run.
// Corresponds to run_aggregates table in ClickHouse.
type RunAggregate struct {
	RunID      string // owning forecast run
	EntityName string // summarized entity

	// Counts
	HistoryMonths  int // HISTORICAL points in the combined series
	ForecastMonths int // FORECAST points in the combined series

	// Levels
	FinalValue      float64 // last monthly value at the end of the horizon
	FinalCumulative float64 // running total at the end of the horizon
	ForecastTotal   float64 // sum of predicted monthly values

	// Growth over the forecast window:
	// (final cumulative - cumulative at last historical month) relative
	// to the historical cumulative, in percent. 0 when no history total.
	GrowthPct float64

	CreatedAt int64 // record creation timestamp (ms)
}
