package reporting

import (
	"fmt"
	"strings"

	"ev-forecast-lab/internal/domain"
)

// RenderAggregatesCSV renders per-entity aggregate rows as a CSV string.
func RenderAggregatesCSV(rows []EntityAggregateRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("entity_name,history_months,forecast_months,")
	sb.WriteString("final_value,final_cumulative,forecast_total,growth_pct\n")

	// Rows
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%.6f,%.6f,%.6f,%.6f\n",
			row.EntityName,
			row.HistoryMonths,
			row.ForecastMonths,
			row.FinalValue,
			row.FinalCumulative,
			row.ForecastTotal,
			row.GrowthPct,
		))
	}

	return sb.String()
}

// RenderCombinedCSV renders combined series points as a CSV string.
// Points are written in the order given; callers sort first.
func RenderCombinedCSV(points []*domain.CombinedPoint) string {
	var sb strings.Builder

	// Header
	sb.WriteString("run_id,entity_name,month_index,month,value,cumulative,source\n")

	// Rows
	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%s,%.6f,%.6f,%s\n",
			p.RunID,
			p.EntityName,
			p.MonthIndex,
			domain.FormatMonth(p.MonthIndex),
			p.Value,
			p.Cumulative,
			p.Source,
		))
	}

	return sb.String()
}
