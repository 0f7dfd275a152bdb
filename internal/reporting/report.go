package reporting

import "time"

// Report represents the forecast run report structure.
type Report struct {
	// Metadata
	GeneratedAt time.Time

	// Run Summary
	RunSummary RunSummary

	// Data Summary
	DataSummary DataSummary

	// Data Quality (pre-run sufficiency checks)
	DataQuality DataQualitySection

	// Per-entity aggregates (sorted by entity name)
	EntityRows []EntityAggregateRow

	// Top entities ranked by final cumulative count
	TopEntities []EntityAggregateRow

	// Failures carried over from the run (one message per failed entity)
	Failures []string
}

// RunSummary identifies the run being reported on.
type RunSummary struct {
	RunID             string
	ModelID           string
	Horizon           int
	StartedAt         int64 // Unix ms
	EntitiesRequested int
	EntitiesSucceeded int
	EntitiesFailed    int
}

// DataSummary describes the observed history behind the run.
type DataSummary struct {
	TotalEntities     int
	TotalObservations int

	// Observed calendar range as month indices (year*12 + month-1).
	// Both are 0 when no observations exist.
	MonthRangeStart int
	MonthRangeEnd   int
}

// DataQualitySection contains pre-run checks and integrity errors.
type DataQualitySection struct {
	Checks          []CheckRow
	IntegrityErrors []string
	AllChecksPassed bool
}

// CheckRow represents one data-quality criterion.
type CheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// EntityAggregateRow represents one row in the per-entity results table.
type EntityAggregateRow struct {
	EntityName      string
	HistoryMonths   int
	ForecastMonths  int
	FinalValue      float64
	FinalCumulative float64
	ForecastTotal   float64
	GrowthPct       float64
}
