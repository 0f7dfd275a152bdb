package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/reporting"
	"ev-forecast-lab/internal/storage"
)

// Output file names written by ReportPipeline.
const (
	ReportFileName        = "FORECAST_REPORT.md"
	AggregatesCSVFileName = "run_aggregates.csv"
	CombinedCSVFileName   = "combined_series.csv"
)

// ReportPipeline renders report artifacts for one stored run.
type ReportPipeline struct {
	reportGen     *reporting.Generator
	combinedStore storage.CombinedPointStore
	sufficiency   *SufficiencyChecker
	outputDir     string
	failures      []string
	clock         func() time.Time
}

// NewReportPipeline creates a new report pipeline writing into outputDir.
func NewReportPipeline(
	runStore storage.ForecastRunStore,
	entityStore storage.EntityStore,
	obsStore storage.ObservationStore,
	aggStore storage.RunAggregateStore,
	combinedStore storage.CombinedPointStore,
	outputDir string,
) *ReportPipeline {
	return &ReportPipeline{
		reportGen:     reporting.NewGenerator(runStore, entityStore, obsStore, aggStore),
		combinedStore: combinedStore,
		outputDir:     outputDir,
		clock:         func() time.Time { return time.Now().UTC() },
	}
}

// WithSufficiencyChecker attaches pre-run data checks whose results are
// embedded in the report's data-quality section.
func (p *ReportPipeline) WithSufficiencyChecker(checker *SufficiencyChecker) *ReportPipeline {
	p.sufficiency = checker
	return p
}

// WithClock sets a custom clock function for deterministic output.
func (p *ReportPipeline) WithClock(clock func() time.Time) *ReportPipeline {
	p.clock = clock
	p.reportGen = p.reportGen.WithClock(clock)
	return p
}

// WithTopN sets how many entities the report's top table ranks.
func (p *ReportPipeline) WithTopN(n int) *ReportPipeline {
	p.reportGen = p.reportGen.WithTopN(n)
	return p
}

// WithFailures attaches per-entity failure messages from the run that
// produced the data. Run metadata only keeps counts, so the messages
// must come from the caller that executed the forecast.
func (p *ReportPipeline) WithFailures(failures []string) *ReportPipeline {
	p.failures = append(p.failures, failures...)
	return p
}

// Run renders the report for runID and writes output files:
//   - FORECAST_REPORT.md
//   - run_aggregates.csv
//   - combined_series.csv
func (p *ReportPipeline) Run(ctx context.Context, runID string) error {
	// Ensure output directory exists
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return err
	}

	// 1. Run data checks first (if configured)
	var dataQuality reporting.DataQualitySection
	if p.sufficiency != nil {
		suffResult, err := p.sufficiency.Check(ctx)
		if err != nil {
			return err
		}
		dataQuality = convertToDataQuality(suffResult)
	}

	// 2. Generate the report
	report, err := p.reportGen.Generate(ctx, runID)
	if err != nil {
		return err
	}
	report.DataQuality = dataQuality
	report.Failures = p.failures

	// 3. Write FORECAST_REPORT.md
	reportMD := reporting.RenderMarkdown(report)
	reportPath := filepath.Join(p.outputDir, ReportFileName)
	if err := os.WriteFile(reportPath, []byte(reportMD), 0644); err != nil {
		return err
	}

	// 4. Write run_aggregates.csv
	aggCSV := reporting.RenderAggregatesCSV(report.EntityRows)
	aggPath := filepath.Join(p.outputDir, AggregatesCSVFileName)
	if err := os.WriteFile(aggPath, []byte(aggCSV), 0644); err != nil {
		return err
	}

	// 5. Write combined_series.csv covering every persisted entity,
	// in name order
	entities, err := p.combinedStore.EntitiesByRun(ctx, runID)
	if err != nil {
		return err
	}

	var combined []*domain.CombinedPoint
	for _, name := range entities {
		points, err := p.combinedStore.GetByRunAndEntity(ctx, runID, name)
		if err != nil {
			return err
		}
		combined = append(combined, points...)
	}

	combinedCSV := reporting.RenderCombinedCSV(combined)
	combinedPath := filepath.Join(p.outputDir, CombinedCSVFileName)
	if err := os.WriteFile(combinedPath, []byte(combinedCSV), 0644); err != nil {
		return err
	}

	return nil
}

// convertToDataQuality maps checker output into the report section.
func convertToDataQuality(result *SufficiencyResult) reporting.DataQualitySection {
	section := reporting.DataQualitySection{
		Checks:          make([]reporting.CheckRow, len(result.Checks)),
		IntegrityErrors: result.Errors,
		AllChecksPassed: result.AllPass,
	}
	for i, check := range result.Checks {
		section.Checks[i] = reporting.CheckRow{
			Name:      check.Name,
			Threshold: check.Threshold,
			Actual:    check.Actual,
			Pass:      check.Pass,
		}
	}
	return section
}
