package series

import (
	"errors"
	"fmt"
	"sort"

	"ev-forecast-lab/internal/domain"
)

// ErrNonMonotonic indicates month indices that repeat or regress
// within a single entity's series.
var ErrNonMonotonic = errors.New("series months are not strictly increasing")

// sourceRank orders historical points before forecast points when a
// month collides.
func sourceRank(s domain.SeriesSource) int {
	if s == domain.SourceHistorical {
		return 0
	}
	return 1
}

// SortCombined sorts combined points in place into canonical order:
// month ascending, historical before forecast on ties.
func SortCombined(points []domain.CombinedPoint) {
	sort.Slice(points, func(i, j int) bool {
		if points[i].MonthIndex != points[j].MonthIndex {
			return points[i].MonthIndex < points[j].MonthIndex
		}
		return sourceRank(points[i].Source) < sourceRank(points[j].Source)
	})
}

// SortedPoints returns a copy of observations sorted by month ascending.
// The input is left untouched.
func SortedPoints(points []domain.SeriesPoint) []domain.SeriesPoint {
	sorted := make([]domain.SeriesPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MonthIndex < sorted[j].MonthIndex
	})
	return sorted
}

// ValidateMonotonic checks that month indices strictly increase through
// a combined series. Returns ErrNonMonotonic naming the first offender.
func ValidateMonotonic(points []domain.CombinedPoint) error {
	for i := 1; i < len(points); i++ {
		if points[i].MonthIndex <= points[i-1].MonthIndex {
			return fmt.Errorf("%w: month %s at position %d follows %s",
				ErrNonMonotonic,
				domain.FormatMonth(points[i].MonthIndex), i,
				domain.FormatMonth(points[i-1].MonthIndex))
		}
	}
	return nil
}
