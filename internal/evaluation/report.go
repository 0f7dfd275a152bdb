package evaluation

import "ev-forecast-lab/internal/metrics"

// Report aggregates holdout scores across a batch of entities.
type Report struct {
	ModelID   string
	Holdout   int
	Requested int
	Scores    []EntityScore
	Errors    []string
}

// Coverage returns the fraction of requested entities that produced a
// score, 0 when nothing was requested.
func (r *Report) Coverage() float64 {
	if r.Requested == 0 {
		return 0
	}
	return float64(len(r.Scores)) / float64(r.Requested)
}

// MeanMAE returns the mean MAE across scored entities.
func (r *Report) MeanMAE() float64 {
	return metrics.Mean(r.column(func(s EntityScore) float64 { return s.MAE }))
}

// MeanMAPE returns the mean MAPE across scored entities.
func (r *Report) MeanMAPE() float64 {
	return metrics.Mean(r.column(func(s EntityScore) float64 { return s.MAPE }))
}

// MeanR2 returns the mean R2 across scored entities.
func (r *Report) MeanR2() float64 {
	return metrics.Mean(r.column(func(s EntityScore) float64 { return s.R2 }))
}

// MeanMAERatio returns the mean model-to-baseline MAE ratio across
// scored entities.
func (r *Report) MeanMAERatio() float64 {
	return metrics.Mean(r.column(func(s EntityScore) float64 { return s.MAERatio }))
}

func (r *Report) column(get func(EntityScore) float64) []float64 {
	values := make([]float64, len(r.Scores))
	for i, s := range r.Scores {
		values[i] = get(s)
	}
	return values
}
