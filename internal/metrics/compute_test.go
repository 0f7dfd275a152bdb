package metrics

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMean_Basic(t *testing.T) {
	got := Mean([]float64{10, 12, 14})
	if !almostEqual(got, 12) {
		t.Errorf("expected mean 12, got %f", got)
	}
}

func TestMean_Empty(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Errorf("expected 0 for empty input, got %f", got)
	}
}

func TestSum_Basic(t *testing.T) {
	got := Sum([]float64{1.5, 2.5, -1})
	if !almostEqual(got, 3) {
		t.Errorf("expected sum 3, got %f", got)
	}
}

func TestPctChange_Basic(t *testing.T) {
	// (110 - 100) / 100 = 0.10
	got := PctChange(110, 100)
	if !almostEqual(got, 0.10) {
		t.Errorf("expected 0.10, got %f", got)
	}
}

func TestPctChange_ZeroBase(t *testing.T) {
	// A zero base must produce 0, never Inf or NaN.
	got := PctChange(5, 0)
	if got != 0 {
		t.Errorf("expected 0 for zero base, got %f", got)
	}
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Errorf("expected finite result for zero base, got %f", got)
	}
}

func TestPctChange_NegativeChange(t *testing.T) {
	// (80 - 100) / 100 = -0.20
	got := PctChange(80, 100)
	if !almostEqual(got, -0.20) {
		t.Errorf("expected -0.20, got %f", got)
	}
}

func TestSlopeIndexed_PerfectLine(t *testing.T) {
	// y = x over indices 0..5 → slope exactly 1
	got := SlopeIndexed([]float64{0, 1, 2, 3, 4, 5})
	if !almostEqual(got, 1.0) {
		t.Errorf("expected slope 1.0, got %f", got)
	}
}

func TestSlopeIndexed_SteeperLine(t *testing.T) {
	// y = 3x + 2 → slope 3 regardless of intercept
	got := SlopeIndexed([]float64{2, 5, 8, 11})
	if !almostEqual(got, 3.0) {
		t.Errorf("expected slope 3.0, got %f", got)
	}
}

func TestSlopeIndexed_Flat(t *testing.T) {
	got := SlopeIndexed([]float64{7, 7, 7, 7})
	if !almostEqual(got, 0) {
		t.Errorf("expected slope 0 for a flat series, got %f", got)
	}
}

func TestSlopeIndexed_TooFewValues(t *testing.T) {
	if got := SlopeIndexed([]float64{42}); got != 0 {
		t.Errorf("expected 0 for a single value, got %f", got)
	}
	if got := SlopeIndexed(nil); got != 0 {
		t.Errorf("expected 0 for empty input, got %f", got)
	}
}

func TestMAE_Basic(t *testing.T) {
	// |10-12| + |20-19| + |30-30| = 3, over 3 points → 1
	got := MAE([]float64{10, 20, 30}, []float64{12, 19, 30})
	if !almostEqual(got, 1.0) {
		t.Errorf("expected MAE 1.0, got %f", got)
	}
}

func TestMAE_LengthMismatch(t *testing.T) {
	got := MAE([]float64{1, 2}, []float64{1})
	if got != 0 {
		t.Errorf("expected 0 for mismatched lengths, got %f", got)
	}
}

func TestRMSE_Basic(t *testing.T) {
	// residuals 3 and -4 → sqrt((9+16)/2) = sqrt(12.5)
	got := RMSE([]float64{0, 0}, []float64{3, -4})
	if !almostEqual(got, math.Sqrt(12.5)) {
		t.Errorf("expected RMSE %f, got %f", math.Sqrt(12.5), got)
	}
}

func TestRMSE_PerfectPrediction(t *testing.T) {
	got := RMSE([]float64{5, 6, 7}, []float64{5, 6, 7})
	if !almostEqual(got, 0) {
		t.Errorf("expected RMSE 0, got %f", got)
	}
}

func TestMAPE_Basic(t *testing.T) {
	// |100-90|/100 = 0.10, |200-220|/200 = 0.10 → mean 0.10 → 10%
	got := MAPE([]float64{100, 200}, []float64{90, 220})
	if !almostEqual(got, 10.0) {
		t.Errorf("expected MAPE 10%%, got %f", got)
	}
}

func TestMAPE_SkipsZeroActuals(t *testing.T) {
	// The zero actual is excluded; only |100-110|/100 = 10% counts.
	got := MAPE([]float64{0, 100}, []float64{5, 110})
	if !almostEqual(got, 10.0) {
		t.Errorf("expected MAPE 10%% with zero actual skipped, got %f", got)
	}
}

func TestMAPE_AllZeroActuals(t *testing.T) {
	got := MAPE([]float64{0, 0}, []float64{1, 2})
	if got != 0 {
		t.Errorf("expected 0 when every actual is zero, got %f", got)
	}
}

func TestR2_PerfectPrediction(t *testing.T) {
	got := R2([]float64{1, 2, 3, 4}, []float64{1, 2, 3, 4})
	if !almostEqual(got, 1.0) {
		t.Errorf("expected R2 1.0 for perfect prediction, got %f", got)
	}
}

func TestR2_MeanPrediction(t *testing.T) {
	// Predicting the mean everywhere gives R2 exactly 0.
	got := R2([]float64{1, 2, 3}, []float64{2, 2, 2})
	if !almostEqual(got, 0) {
		t.Errorf("expected R2 0 for mean prediction, got %f", got)
	}
}

func TestR2_NoVariance(t *testing.T) {
	// Constant actuals have no variance to explain.
	got := R2([]float64{5, 5, 5}, []float64{5, 5, 5})
	if got != 0 {
		t.Errorf("expected 0 for constant actuals, got %f", got)
	}
}

func TestR2_WorseThanMean(t *testing.T) {
	// Predictions worse than the mean drive R2 negative.
	got := R2([]float64{1, 2, 3}, []float64{10, 10, 10})
	if got >= 0 {
		t.Errorf("expected negative R2, got %f", got)
	}
}
