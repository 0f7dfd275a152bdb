package decision

import "fmt"

// Gate thresholds. ACCEPT requires every accept criterion to pass;
// any reject trigger firing forces REJECT; everything in between
// lands in REVIEW for a human look.
const (
	AcceptMinR2       = 0.70
	AcceptMaxMAPE     = 15.0
	AcceptMaxMAERatio = 1.0
	AcceptMinCoverage = 0.80

	RejectMaxR2       = 0.0
	RejectMinMAPE     = 40.0
	RejectMinMAERatio = 1.25
	RejectMaxCoverage = 0.50
)

// Evaluator evaluates adoption criteria.
type Evaluator struct{}

// NewEvaluator creates a new decision evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate produces a Result from evaluation rollups.
// ACCEPT if ALL accept criteria pass and NO reject trigger fires.
// REJECT if ANY reject trigger fires.
// REVIEW otherwise.
func (e *Evaluator) Evaluate(input *Input) (*Result, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	acceptCriteria := e.evaluateAcceptCriteria(input)
	rejectTriggers := e.evaluateRejectTriggers(input)

	allAcceptPass := true
	for _, c := range acceptCriteria {
		if !c.Pass {
			allAcceptPass = false
			break
		}
	}

	anyTriggered := false
	for _, c := range rejectTriggers {
		if !c.Pass { // Pass=false means triggered
			anyTriggered = true
			break
		}
	}

	verdict := VerdictReview
	switch {
	case anyTriggered:
		verdict = VerdictReject
	case allAcceptPass:
		verdict = VerdictAccept
	}

	return &Result{
		Verdict:        verdict,
		ModelID:        input.ModelID,
		AcceptCriteria: acceptCriteria,
		RejectTriggers: rejectTriggers,
	}, nil
}

// evaluateAcceptCriteria evaluates the 4 accept criteria.
func (e *Evaluator) evaluateAcceptCriteria(input *Input) []CriterionResult {
	criteria := make([]CriterionResult, 4)

	// 1. MeanR2 >= 0.70
	criteria[0] = CriterionResult{
		Name:      "Explains holdout variance",
		Threshold: fmt.Sprintf("mean R2 >= %.2f", AcceptMinR2),
		Actual:    fmt.Sprintf("%.4f", input.MeanR2),
		Pass:      input.MeanR2 >= AcceptMinR2,
	}

	// 2. MeanMAPE <= 15%
	criteria[1] = CriterionResult{
		Name:      "Holdout error within budget",
		Threshold: fmt.Sprintf("mean MAPE <= %.0f%%", AcceptMaxMAPE),
		Actual:    fmt.Sprintf("%.2f%%", input.MeanMAPE),
		Pass:      input.MeanMAPE <= AcceptMaxMAPE,
	}

	// 3. MeanMAERatio < 1.0 (strictly better than the naive baseline)
	criteria[2] = CriterionResult{
		Name:      "Beats naive baseline",
		Threshold: fmt.Sprintf("MAE ratio < %.2f", AcceptMaxMAERatio),
		Actual:    fmt.Sprintf("%.4f", input.MeanMAERatio),
		Pass:      input.MeanMAERatio < AcceptMaxMAERatio,
	}

	// 4. Coverage >= 80%
	criteria[3] = CriterionResult{
		Name:      "Evaluation coverage",
		Threshold: fmt.Sprintf(">= %.0f%%", AcceptMinCoverage*100),
		Actual:    fmt.Sprintf("%.0f%% (%d failed)", input.Coverage*100, input.Failures),
		Pass:      input.Coverage >= AcceptMinCoverage,
	}

	return criteria
}

// evaluateRejectTriggers evaluates the 4 reject triggers.
// Pass=true means NOT triggered, Pass=false means triggered.
func (e *Evaluator) evaluateRejectTriggers(input *Input) []CriterionResult {
	checks := make([]CriterionResult, 4)

	// 1. MeanR2 < 0 means worse than predicting the holdout mean.
	triggered1 := input.MeanR2 < RejectMaxR2
	checks[0] = CriterionResult{
		Name:      "Worse than predicting the mean",
		Threshold: fmt.Sprintf("mean R2 < %.2f", RejectMaxR2),
		Actual:    fmt.Sprintf("%.4f", input.MeanR2),
		Pass:      !triggered1, // Pass means NOT triggered
	}

	// 2. MeanMAPE > 40% triggers REJECT
	triggered2 := input.MeanMAPE > RejectMinMAPE
	checks[1] = CriterionResult{
		Name:      "Holdout error blowout",
		Threshold: fmt.Sprintf("mean MAPE > %.0f%%", RejectMinMAPE),
		Actual:    fmt.Sprintf("%.2f%%", input.MeanMAPE),
		Pass:      !triggered2,
	}

	// 3. MeanMAERatio >= 1.25 means clearly losing to the baseline.
	triggered3 := input.MeanMAERatio >= RejectMinMAERatio
	checks[2] = CriterionResult{
		Name:      "Loses to naive baseline",
		Threshold: fmt.Sprintf("MAE ratio >= %.2f", RejectMinMAERatio),
		Actual:    fmt.Sprintf("%.4f", input.MeanMAERatio),
		Pass:      !triggered3,
	}

	// 4. Coverage < 50% triggers REJECT
	triggered4 := input.Coverage < RejectMaxCoverage
	checks[3] = CriterionResult{
		Name:      "Coverage collapse",
		Threshold: fmt.Sprintf("< %.0f%%", RejectMaxCoverage*100),
		Actual:    fmt.Sprintf("%.0f%% (%d failed)", input.Coverage*100, input.Failures),
		Pass:      !triggered4,
	}

	return checks
}
