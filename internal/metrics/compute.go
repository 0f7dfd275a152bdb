package metrics

import "math"

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// Sum returns the total of all values.
func Sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

// PctChange returns the relative change from base to current.
// Returns 0 when base is 0 so feature rows never divide by zero.
func PctChange(current, base float64) float64 {
	if base == 0 {
		return 0
	}
	return (current - base) / base
}

// SlopeIndexed returns the least-squares slope of values regressed against
// their indices 0..n-1. Returns 0 for fewer than 2 values or a degenerate fit.
func SlopeIndexed(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// MAE returns the mean absolute error between actual and predicted.
// Returns 0 when the slices are empty or their lengths differ.
func MAE(actual, predicted []float64) float64 {
	n := len(actual)
	if n == 0 || n != len(predicted) {
		return 0
	}
	sum := 0.0
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(n)
}

// RMSE returns the root mean squared error between actual and predicted.
// Returns 0 when the slices are empty or their lengths differ.
func RMSE(actual, predicted []float64) float64 {
	n := len(actual)
	if n == 0 || n != len(predicted) {
		return 0
	}
	sumSq := 0.0
	for i := range actual {
		diff := actual[i] - predicted[i]
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n))
}

// MAPE returns the mean absolute percentage error in percent.
// Months with a zero actual are excluded from the mean; returns 0 when no
// usable pairs remain or the lengths differ.
func MAPE(actual, predicted []float64) float64 {
	n := len(actual)
	if n == 0 || n != len(predicted) {
		return 0
	}
	sum := 0.0
	used := 0
	for i := range actual {
		if actual[i] == 0 {
			continue
		}
		sum += math.Abs((actual[i] - predicted[i]) / actual[i])
		used++
	}
	if used == 0 {
		return 0
	}
	return sum / float64(used) * 100
}

// R2 returns the coefficient of determination of predicted against actual.
// Returns 0 when the actuals have no variance, the slices are empty, or
// their lengths differ.
func R2(actual, predicted []float64) float64 {
	n := len(actual)
	if n == 0 || n != len(predicted) {
		return 0
	}
	mean := Mean(actual)

	var ssRes, ssTot float64
	for i := range actual {
		resid := actual[i] - predicted[i]
		ssRes += resid * resid
		dev := actual[i] - mean
		ssTot += dev * dev
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}
