package forecast

import (
	"context"
	"fmt"
	"math"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/model"
)

// StepperOptions configures a single-entity stepper.
type StepperOptions struct {
	Entity domain.Entity
	Model  model.Model

	// Window is the seeded trailing window; the stepper owns it after
	// construction.
	Window *Window

	// LastMonthIndex is the month index of the newest observation.
	LastMonthIndex int

	// MonthsSinceStart is the step counter value at the newest
	// observation: its month index minus the first observation's.
	MonthsSinceStart int
}

// Stepper advances one entity's autoregressive forecast a month at a
// time. Each step feeds the previous prediction back into the window,
// so steps are strictly sequential; a Stepper must not be shared
// across goroutines.
type Stepper struct {
	entity           domain.Entity
	model            model.Model
	window           *Window
	monthIndex       int
	monthsSinceStart int
	steps            int
}

// NewStepper creates a stepper positioned at the entity's newest
// observation.
func NewStepper(opts StepperOptions) *Stepper {
	return &Stepper{
		entity:           opts.Entity,
		model:            opts.Model,
		window:           opts.Window,
		monthIndex:       opts.LastMonthIndex,
		monthsSinceStart: opts.MonthsSinceStart,
	}
}

// Step advances the forecast one month.
//
// Steps:
//  1. Advance the calendar month and the entity step counter
//  2. Derive the feature vector from the current window
//  3. Invoke the model once
//  4. Reject non-finite predictions
//  5. Feed the prediction back into the window
//
// The stepper's state advances only when the step succeeds, so a
// failed step leaves it at its last good position.
func (s *Stepper) Step(ctx context.Context) (domain.ForecastPoint, error) {
	monthIndex := s.monthIndex + 1
	monthsSinceStart := s.monthsSinceStart + 1

	features, err := DeriveFeatures(s.window, monthsSinceStart, s.entity.Code)
	if err != nil {
		return domain.ForecastPoint{}, err
	}

	predicted, err := s.model.Predict(ctx, features)
	if err != nil {
		return domain.ForecastPoint{}, fmt.Errorf("model %s: %w", s.model.ID(), err)
	}
	if math.IsNaN(predicted) || math.IsInf(predicted, 0) {
		return domain.ForecastPoint{}, fmt.Errorf("%w: %v at month %s",
			ErrNonFinitePrediction, predicted, domain.FormatMonth(monthIndex))
	}

	s.window.Push(predicted)
	s.monthIndex = monthIndex
	s.monthsSinceStart = monthsSinceStart
	s.steps++

	return domain.ForecastPoint{
		EntityName:       s.entity.Name,
		MonthIndex:       monthIndex,
		Predicted:        predicted,
		MonthsSinceStart: monthsSinceStart,
	}, nil
}

// Steps reports how many steps have completed.
func (s *Stepper) Steps() int {
	return s.steps
}

// Window exposes the live window for inspection.
func (s *Stepper) Window() *Window {
	return s.window
}
