package domain

// ForecastRun represents one completed batch forecast.
// Corresponds to forecast_runs table in PostgreSQL.
type ForecastRun struct {
	RunID             string // PRIMARY KEY, deterministic hash
	StartedAt         int64  // Unix timestamp in milliseconds
	Horizon           int    // forecast steps per entity
	ModelID           string // identity of the model that produced predictions
	EntitiesRequested int
	EntitiesSucceeded int
	EntitiesFailed    int
	CreatedAt         int64 // record creation timestamp (ms)
}
