package decision

import (
	"errors"

	"ev-forecast-lab/internal/evaluation"
)

// ErrNoScores is returned when the evaluation produced no scored entities.
var ErrNoScores = errors.New("evaluation produced no scored entities")

// BuildInput rolls a holdout evaluation report up into decision input.
// The verdict is judged on batch means, so at least one entity must
// have been scored.
func BuildInput(report *evaluation.Report) (*Input, error) {
	if report == nil || len(report.Scores) == 0 {
		return nil, ErrNoScores
	}

	input := &Input{
		ModelID:      report.ModelID,
		Holdout:      report.Holdout,
		MeanR2:       report.MeanR2(),
		MeanMAPE:     report.MeanMAPE(),
		MeanMAERatio: report.MeanMAERatio(),
		Coverage:     report.Coverage(),
		Failures:     len(report.Errors),
	}

	// Validate before returning (fail fast)
	if err := input.Validate(); err != nil {
		return nil, err
	}

	return input, nil
}
