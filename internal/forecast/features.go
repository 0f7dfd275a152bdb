package forecast

import (
	"fmt"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/metrics"
)

// DeriveFeatures computes the model feature vector from the current
// window state. The semantics mirror the training pipeline exactly:
//
//   - lags are the three newest values, newest first
//   - the rolling mean averages exactly those three lags
//   - percent changes guard their base: a zero base yields 0
//   - the growth slope is the OLS slope of the window-local cumulative
//     sums against step indices, and only when the window is full;
//     a partial window yields 0
//
// Returns ErrInsufficientHistory when the window holds fewer than
// MinHistory values.
func DeriveFeatures(w *Window, monthsSinceStart, entityCode int) (domain.FeatureVector, error) {
	n := len(w.values)
	if n < MinHistory {
		return domain.FeatureVector{}, fmt.Errorf("%w: window holds %d values, need %d", ErrInsufficientHistory, n, MinHistory)
	}

	lag1 := w.values[n-1]
	lag2 := w.values[n-2]
	lag3 := w.values[n-3]

	fv := domain.FeatureVector{
		MonthsSinceStart: monthsSinceStart,
		EntityCode:       entityCode,
		Lag1:             lag1,
		Lag2:             lag2,
		Lag3:             lag3,
		RollingMean3:     (lag1 + lag2 + lag3) / 3,
		PctChange1:       metrics.PctChange(lag1, lag2),
		PctChange3:       metrics.PctChange(lag1, lag3),
	}
	if len(w.cumsum) == WindowCap {
		fv.GrowthSlope = metrics.SlopeIndexed(w.cumsum)
	}
	return fv, nil
}
