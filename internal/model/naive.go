package model

import (
	"context"

	"ev-forecast-lab/internal/domain"
)

// NaiveModel is a dependency-free baseline regressor. It projects the
// newest value forward by half the average monthly step observed over
// the last three months:
//
//	y = lag1 + (lag1 - lag3) / 2
//
// Evaluation scores the fitted model against this baseline; it also
// serves offline runs when no model service is reachable.
type NaiveModel struct{}

// Compile-time interface check.
var _ Model = (*NaiveModel)(nil)

// NewNaiveModel creates the baseline model.
func NewNaiveModel() *NaiveModel {
	return &NaiveModel{}
}

// Predict extrapolates from the lag features alone.
func (m *NaiveModel) Predict(_ context.Context, features domain.FeatureVector) (float64, error) {
	return features.Lag1 + (features.Lag1-features.Lag3)/2, nil
}

// ID returns the baseline identity.
func (m *NaiveModel) ID() string {
	return "naive"
}
