package forecast

import (
	"errors"
	"fmt"
)

// Sentinel errors for forecast preparation and execution.
var (
	// ErrInsufficientHistory indicates an entity has fewer observations
	// than the feature lags require.
	ErrInsufficientHistory = errors.New("insufficient history for feature derivation")

	// ErrUnknownEntity indicates an entity with no observations at all.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrNonFinitePrediction indicates the model returned NaN or an
	// infinity. Feeding such a value back into the window would poison
	// every later step, so the forecast stops immediately.
	ErrNonFinitePrediction = errors.New("model returned non-finite prediction")

	// ErrInvalidHorizon indicates a non-positive forecast horizon.
	ErrInvalidHorizon = errors.New("forecast horizon must be positive")
)

// PredictionError reports a model failure partway through an entity's
// forecast. Step is the 1-based step that failed; everything before it
// completed and nothing after it was attempted.
type PredictionError struct {
	EntityName string
	Step       int
	Err        error
}

// Error implements the error interface.
func (e *PredictionError) Error() string {
	return fmt.Sprintf("forecast for %s failed at step %d: %v", e.EntityName, e.Step, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PredictionError) Unwrap() error {
	return e.Err
}

// StepsCompleted reports how many steps succeeded before the failure.
func (e *PredictionError) StepsCompleted() int {
	return e.Step - 1
}
