package domain

// FeatureNames lists the model input columns in training order.
// The order is part of the fitted model's contract and must match
// FeatureVector.Values exactly.
var FeatureNames = []string{
	"months_since_start",
	"county_encoded",
	"ev_total_lag1",
	"ev_total_lag2",
	"ev_total_lag3",
	"ev_total_roll_mean_3",
	"ev_total_pct_change_1",
	"ev_total_pct_change_3",
	"ev_growth_slope",
}

// FeatureVector holds one step's model inputs.
// Field order mirrors FeatureNames; a new feature must be added to both.
type FeatureVector struct {
	MonthsSinceStart int     // months elapsed since the entity's first observation
	EntityCode       int     // training-time entity encoding
	Lag1             float64 // most recent trailing value
	Lag2             float64 // second most recent
	Lag3             float64 // third most recent
	RollingMean3     float64 // mean of Lag1..Lag3
	PctChange1       float64 // (Lag1-Lag2)/Lag2, 0 when Lag2 == 0
	PctChange3       float64 // (Lag1-Lag3)/Lag3, 0 when Lag3 == 0
	GrowthSlope      float64 // OLS slope of 6 trailing cumulative values, 0 when fewer
}

// Values returns the features as an ordered slice matching FeatureNames.
func (f FeatureVector) Values() []float64 {
	return []float64{
		float64(f.MonthsSinceStart),
		float64(f.EntityCode),
		f.Lag1,
		f.Lag2,
		f.Lag3,
		f.RollingMean3,
		f.PctChange1,
		f.PctChange3,
		f.GrowthSlope,
	}
}

// Named returns the features keyed by their training column names.
func (f FeatureVector) Named() map[string]float64 {
	values := f.Values()
	named := make(map[string]float64, len(FeatureNames))
	for i, name := range FeatureNames {
		named[name] = values[i]
	}
	return named
}
