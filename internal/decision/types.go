package decision

import "errors"

// Validation sentinels for decision input.
var (
	ErrNilInput         = errors.New("decision input is nil")
	ErrEmptyModelID     = errors.New("model id is empty")
	ErrInvalidHoldout   = errors.New("holdout must be at least one month")
	ErrInvalidCoverage  = errors.New("coverage must be between 0 and 1")
	ErrNegativeFailures = errors.New("failure count cannot be negative")
)

// Verdict represents the final model adoption outcome.
type Verdict string

const (
	VerdictAccept Verdict = "ACCEPT"
	VerdictReview Verdict = "REVIEW"
	VerdictReject Verdict = "REJECT"
)

// Input contains the evaluation rollups a verdict is judged on.
type Input struct {
	// Model identity and holdout length for context in the report
	ModelID string
	Holdout int

	// Mean holdout metrics across scored entities
	MeanR2       float64
	MeanMAPE     float64
	MeanMAERatio float64

	// Coverage is the fraction of requested entities that produced a score
	Coverage float64

	// Failures counts entities that could not be evaluated
	Failures int
}

// Validate checks the input for structural problems before evaluation.
func (in *Input) Validate() error {
	if in == nil {
		return ErrNilInput
	}
	if in.ModelID == "" {
		return ErrEmptyModelID
	}
	if in.Holdout < 1 {
		return ErrInvalidHoldout
	}
	if in.Coverage < 0 || in.Coverage > 1 {
		return ErrInvalidCoverage
	}
	if in.Failures < 0 {
		return ErrNegativeFailures
	}
	return nil
}

// CriterionResult represents pass/fail for one criterion.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// Result contains the final verdict with checklist.
type Result struct {
	Verdict Verdict
	ModelID string

	AcceptCriteria []CriterionResult // all must pass for ACCEPT
	RejectTriggers []CriterionResult // any firing forces REJECT
}
