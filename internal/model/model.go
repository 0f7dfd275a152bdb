// Package model provides clients for the fitted regression model that
// powers forecast steps. The engine treats the model as a black box:
// one feature vector in, one predicted monthly value out.
package model

import (
	"context"

	"ev-forecast-lab/internal/domain"
)

// Model is a fitted monthly regressor. Predict is called once per
// forecast step with features in the exact training column order.
// Implementations must be safe for concurrent use when shared across
// forecast workers.
type Model interface {
	// Predict returns the predicted monthly value for one feature vector.
	Predict(ctx context.Context, features domain.FeatureVector) (float64, error)

	// ID identifies the model in run metadata and replay checks.
	ID() string
}
