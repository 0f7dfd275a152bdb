// Package forecast implements the autoregressive forecast engine: a
// bounded trailing window per entity, feature derivation that mirrors
// the training pipeline, and steppers that feed each prediction back
// into the window for the next month.
package forecast

import "fmt"

const (
	// MinHistory is the fewest observations the lag features require.
	MinHistory = 3

	// WindowCap bounds the trailing window length. The growth slope is
	// only defined over a full window.
	WindowCap = 6
)

// Window holds one entity's trailing monthly values together with a
// window-local cumulative sum. Both slices advance FIFO as predictions
// are pushed in, never exceeding WindowCap entries. The cumulative sum
// is local to the window: it starts from the oldest retained value,
// not from the beginning of the entity's history.
type Window struct {
	values []float64
	cumsum []float64
}

// NewWindow seeds a window from historical values ordered oldest
// first. Only the trailing WindowCap values are retained and the
// cumulative sums run over those retained values. Returns
// ErrInsufficientHistory when fewer than MinHistory values are given.
func NewWindow(values []float64) (*Window, error) {
	if len(values) < MinHistory {
		return nil, fmt.Errorf("%w: have %d values, need %d", ErrInsufficientHistory, len(values), MinHistory)
	}

	retained := values
	if len(retained) > WindowCap {
		retained = retained[len(retained)-WindowCap:]
	}

	w := &Window{
		values: make([]float64, len(retained)),
		cumsum: make([]float64, len(retained)),
	}
	copy(w.values, retained)

	running := 0.0
	for i, v := range retained {
		running += v
		w.cumsum[i] = running
	}
	return w, nil
}

// Push appends a predicted value, extending the cumulative sum from
// its current tail, and evicts the oldest slot once the window is
// full.
func (w *Window) Push(v float64) {
	tail := 0.0
	if n := len(w.cumsum); n > 0 {
		tail = w.cumsum[n-1]
	}

	w.values = append(w.values, v)
	w.cumsum = append(w.cumsum, tail+v)

	if len(w.values) > WindowCap {
		w.values = w.values[1:]
		w.cumsum = w.cumsum[1:]
	}
}

// Len reports how many values the window currently holds.
func (w *Window) Len() int {
	return len(w.values)
}

// Values returns a copy of the trailing values, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.values))
	copy(out, w.values)
	return out
}

// CumSums returns a copy of the window-local cumulative sums.
func (w *Window) CumSums() []float64 {
	out := make([]float64, len(w.cumsum))
	copy(out, w.cumsum)
	return out
}
