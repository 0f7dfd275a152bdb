// Package verification checks stored forecast runs against fresh
// replays. A run verifies when every entity's regenerated series
// matches its persisted rows within FloatTolerance.
package verification

import (
	"context"
	"fmt"
	"math"

	"ev-forecast-lab/internal/domain"
)

// FloatTolerance bounds float comparison during verification.
// Replayed values must match stored values within 1e-7.
const FloatTolerance = 1e-7

// FieldDivergence records a single field mismatch between a stored row
// and its replayed counterpart.
type FieldDivergence struct {
	Field    string
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult holds the outcome of verifying one entity.
type VerificationResult struct {
	EntityName  string
	Match       bool
	Divergences []FieldDivergence

	// Final cumulative totals of the stored and replayed series.
	StoredFinal   float64
	ReplayedFinal float64
}

// VerificationReport aggregates verification across a whole run.
type VerificationReport struct {
	RunID             string
	TotalEntities     int
	MatchedEntities   int
	DivergentEntities int
	Results           []VerificationResult
}

// Verifier verifies stored forecast runs by replaying them.
type Verifier interface {
	// VerifyEntity re-derives one entity's series and compares it to
	// the stored rows.
	VerifyEntity(ctx context.Context, runID, entityName string) (*VerificationResult, error)

	// VerifyRun verifies every entity persisted for a run.
	VerifyRun(ctx context.Context, runID string) (*VerificationReport, error)
}

// ComparePoints compares stored combined rows against a regenerated
// series row by row. RunID and CreatedAt are excluded from comparison:
// replays never stamp them.
func ComparePoints(stored []*domain.CombinedPoint, replayed []domain.CombinedPoint) []FieldDivergence {
	var divergences []FieldDivergence

	if len(stored) != len(replayed) {
		return append(divergences, FieldDivergence{
			Field:    "PointCount",
			Expected: len(stored),
			Actual:   len(replayed),
		})
	}

	for i := range stored {
		s, r := stored[i], replayed[i]

		if s.MonthIndex != r.MonthIndex {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Points[%d].MonthIndex", i),
				Expected: s.MonthIndex,
				Actual:   r.MonthIndex,
			})
			// Remaining fields of a misaligned row are noise.
			continue
		}

		month := domain.FormatMonth(s.MonthIndex)

		if s.Source != r.Source {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Source[%s]", month),
				Expected: s.Source,
				Actual:   r.Source,
			})
			continue
		}

		if !floatEquals(s.Value, r.Value) {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Value[%s]", month),
				Expected: s.Value,
				Actual:   r.Value,
			})
		}

		if !floatEquals(s.Cumulative, r.Cumulative) {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Cumulative[%s]", month),
				Expected: s.Cumulative,
				Actual:   r.Cumulative,
			})
		}
	}

	return divergences
}

// CompareForecastPoints compares stored predictions against regenerated
// ones. MonthsSinceStart participates: the counter feeds the feature
// vector, so a drifted value is a real determinism break.
func CompareForecastPoints(stored []*domain.ForecastPoint, replayed []domain.ForecastPoint) []FieldDivergence {
	var divergences []FieldDivergence

	if len(stored) != len(replayed) {
		return append(divergences, FieldDivergence{
			Field:    "ForecastCount",
			Expected: len(stored),
			Actual:   len(replayed),
		})
	}

	for i := range stored {
		s, r := stored[i], replayed[i]

		if s.MonthIndex != r.MonthIndex {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Forecasts[%d].MonthIndex", i),
				Expected: s.MonthIndex,
				Actual:   r.MonthIndex,
			})
			continue
		}

		month := domain.FormatMonth(s.MonthIndex)

		if !floatEquals(s.Predicted, r.Predicted) {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("Predicted[%s]", month),
				Expected: s.Predicted,
				Actual:   r.Predicted,
			})
		}

		if s.MonthsSinceStart != r.MonthsSinceStart {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("MonthsSinceStart[%s]", month),
				Expected: s.MonthsSinceStart,
				Actual:   r.MonthsSinceStart,
			})
		}
	}

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
