package lookup

import (
	"errors"

	"ev-forecast-lab/internal/domain"
)

// ErrNoSeriesData is returned when a lookup has no observations to serve.
var ErrNoSeriesData = errors.New("no series data available")

// ValueAt returns the series value in effect at the target month: the
// closest observation at or before target. If the series starts after
// target, returns the first available value. Points must be sorted by
// month ascending. Returns ErrNoSeriesData if the slice is empty.
func ValueAt(target int, points []domain.SeriesPoint) (float64, error) {
	p, err := PointAt(target, points)
	if err != nil {
		return 0, err
	}
	return p.Value, nil
}

// PointAt is ValueAt returning the full observation.
func PointAt(target int, points []domain.SeriesPoint) (domain.SeriesPoint, error) {
	if len(points) == 0 {
		return domain.SeriesPoint{}, ErrNoSeriesData
	}

	// Find closest observation at or before target
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].MonthIndex <= target {
			return points[i], nil
		}
	}

	// If no observation before target, use first available
	return points[0], nil
}

// SplitTail splits a sorted series into a training head and a trailing
// holdout of k observations. k of zero or less keeps everything in the
// head; k at or beyond the series length moves everything into the
// holdout. Both returned slices alias the input.
func SplitTail(points []domain.SeriesPoint, k int) (head, tail []domain.SeriesPoint) {
	if k <= 0 {
		return points, nil
	}
	if k >= len(points) {
		return nil, points
	}
	cut := len(points) - k
	return points[:cut], points[cut:]
}
