package reporting

import (
	"fmt"
	"strings"
	"time"

	"ev-forecast-lab/internal/domain"
)

// RenderMarkdown renders a report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Forecast Run Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Run Summary
	sb.WriteString("## Run Summary\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Run ID | `%s` |\n", r.RunSummary.RunID))
	sb.WriteString(fmt.Sprintf("| Model | `%s` |\n", r.RunSummary.ModelID))
	sb.WriteString(fmt.Sprintf("| Horizon | %d months |\n", r.RunSummary.Horizon))
	sb.WriteString(fmt.Sprintf("| Started | %s |\n", time.UnixMilli(r.RunSummary.StartedAt).UTC().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("| Entities Requested | %d |\n", r.RunSummary.EntitiesRequested))
	sb.WriteString(fmt.Sprintf("| Entities Succeeded | %d |\n", r.RunSummary.EntitiesSucceeded))
	sb.WriteString(fmt.Sprintf("| Entities Failed | %d |\n", r.RunSummary.EntitiesFailed))
	sb.WriteString("\n")

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Entities | %d |\n", r.DataSummary.TotalEntities))
	sb.WriteString(fmt.Sprintf("| Total Observations | %d |\n", r.DataSummary.TotalObservations))
	if r.DataSummary.TotalObservations > 0 {
		sb.WriteString(fmt.Sprintf("| First Observed Month | %s |\n", domain.FormatMonth(r.DataSummary.MonthRangeStart)))
		sb.WriteString(fmt.Sprintf("| Last Observed Month | %s |\n", domain.FormatMonth(r.DataSummary.MonthRangeEnd)))
	}
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality.Checks) > 0 {
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range r.DataQuality.Checks {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, status))
		}
		sb.WriteString("\n")

		// Overall status
		if r.DataQuality.AllChecksPassed {
			sb.WriteString("**All checks passed.**\n\n")
		} else {
			sb.WriteString("**Some checks failed.** Results below may be partial.\n\n")
		}
	} else if len(r.DataQuality.IntegrityErrors) == 0 {
		sb.WriteString("No data quality checks performed.\n\n")
	}

	// Integrity errors (always shown if present, even without checks)
	if len(r.DataQuality.IntegrityErrors) > 0 {
		sb.WriteString("### Integrity Errors\n\n")
		for _, err := range r.DataQuality.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}

	// Per-entity results
	sb.WriteString("## Entity Results\n\n")
	if len(r.EntityRows) > 0 {
		sb.WriteString("| Entity | History | Forecast | Final Monthly | Final Cumulative | Forecast Total | Growth % |\n")
		sb.WriteString("|--------|---------|----------|---------------|------------------|----------------|----------|\n")
		for _, row := range r.EntityRows {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.2f | %.2f | %.2f | %.2f |\n",
				row.EntityName, row.HistoryMonths, row.ForecastMonths,
				row.FinalValue, row.FinalCumulative, row.ForecastTotal, row.GrowthPct))
		}
	} else {
		sb.WriteString("No entity results available.\n")
	}
	sb.WriteString("\n")

	// Top entities
	sb.WriteString(fmt.Sprintf("## Top %d Entities by Final Cumulative\n\n", len(r.TopEntities)))
	if len(r.TopEntities) > 0 {
		sb.WriteString("| Rank | Entity | Final Cumulative | Growth % |\n")
		sb.WriteString("|------|--------|------------------|----------|\n")
		for i, row := range r.TopEntities {
			sb.WriteString(fmt.Sprintf("| %d | %s | %.2f | %.2f |\n",
				i+1, row.EntityName, row.FinalCumulative, row.GrowthPct))
		}
	} else {
		sb.WriteString("No ranking available.\n")
	}
	sb.WriteString("\n")

	// Failures
	sb.WriteString("## Failures\n\n")
	if len(r.Failures) > 0 {
		for _, f := range r.Failures {
			sb.WriteString(fmt.Sprintf("- %s\n", f))
		}
	} else {
		sb.WriteString("No failures.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
