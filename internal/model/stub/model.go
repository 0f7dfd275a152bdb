// Package stub provides a scripted model implementation for tests and
// offline demos.
package stub

import (
	"context"
	"sync"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/model"
)

// Model is a scripted model.Model. Use the constructors to script its
// behavior; every call is recorded for later inspection. Safe for
// concurrent use, though sequence playback is ordered by global call
// count, so concurrent tests should use one stub per entity.
type Model struct {
	mu       sync.Mutex
	id       string
	constant float64
	sequence []float64
	fn       func(domain.FeatureVector) float64
	failAt   int // 1-based call number that starts failing, 0 = never
	failErr  error
	calls    []domain.FeatureVector
}

// Compile-time interface check.
var _ model.Model = (*Model)(nil)

// NewConstant returns a stub that predicts v on every call.
func NewConstant(v float64) *Model {
	return &Model{id: "stub", constant: v}
}

// NewSequence returns a stub that replays values in call order,
// repeating the final value once exhausted.
func NewSequence(values ...float64) *Model {
	return &Model{id: "stub", sequence: append([]float64(nil), values...)}
}

// NewFunc returns a stub that computes predictions from the features.
func NewFunc(fn func(domain.FeatureVector) float64) *Model {
	return &Model{id: "stub", fn: fn}
}

// WithID overrides the reported model identity.
func (m *Model) WithID(id string) *Model {
	m.id = id
	return m
}

// FailAt makes call number n (1-based) and every later call return err.
func (m *Model) FailAt(n int, err error) *Model {
	m.failAt = n
	m.failErr = err
	return m
}

// Predict returns the scripted prediction and records the features.
func (m *Model) Predict(_ context.Context, features domain.FeatureVector) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, features)
	call := len(m.calls)

	if m.failAt > 0 && call >= m.failAt {
		return 0, m.failErr
	}
	if m.fn != nil {
		return m.fn(features), nil
	}
	if len(m.sequence) > 0 {
		idx := call - 1
		if idx >= len(m.sequence) {
			idx = len(m.sequence) - 1
		}
		return m.sequence[idx], nil
	}
	return m.constant, nil
}

// ID returns the scripted identity.
func (m *Model) ID() string {
	return m.id
}

// Calls returns a copy of the feature vectors received so far.
func (m *Model) Calls() []domain.FeatureVector {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.FeatureVector, len(m.calls))
	copy(out, m.calls)
	return out
}
