package reporting

import (
	"context"
	"sort"
	"time"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage"
)

// DefaultTopN is the number of entities shown in the top-entities table.
const DefaultTopN = 5

// Generator produces reports from stored run data.
type Generator struct {
	runStore    storage.ForecastRunStore
	entityStore storage.EntityStore
	obsStore    storage.ObservationStore
	aggStore    storage.RunAggregateStore

	topN int
	now  func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	runStore storage.ForecastRunStore,
	entityStore storage.EntityStore,
	obsStore storage.ObservationStore,
	aggStore storage.RunAggregateStore,
) *Generator {
	return &Generator{
		runStore:    runStore,
		entityStore: entityStore,
		obsStore:    obsStore,
		aggStore:    aggStore,
		topN:        DefaultTopN,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithTopN sets how many entities the top table ranks. Values below 1
// keep the default.
func (g *Generator) WithTopN(n int) *Generator {
	if n >= 1 {
		g.topN = n
	}
	return g
}

// Generate produces a complete report for one stored run.
//
// Data quality checks and failure messages live with the callers that
// have them (the pre-run pipeline and the orchestrator result); Generate
// fills everything derivable from the stores alone.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	// Load run metadata
	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	// Load per-entity aggregates
	aggs, err := g.aggStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	// Generate data summary
	dataSummary, err := g.generateDataSummary(ctx)
	if err != nil {
		return nil, err
	}

	// Build the per-entity table and the top-N ranking
	rows := g.generateEntityRows(aggs)
	top := g.generateTopEntities(rows)

	return &Report{
		GeneratedAt: g.now(),
		RunSummary: RunSummary{
			RunID:             run.RunID,
			ModelID:           run.ModelID,
			Horizon:           run.Horizon,
			StartedAt:         run.StartedAt,
			EntitiesRequested: run.EntitiesRequested,
			EntitiesSucceeded: run.EntitiesSucceeded,
			EntitiesFailed:    run.EntitiesFailed,
		},
		DataSummary: *dataSummary,
		EntityRows:  rows,
		TopEntities: top,
	}, nil
}

// generateDataSummary computes registry and observation counts plus the
// observed calendar range.
func (g *Generator) generateDataSummary(ctx context.Context) (*DataSummary, error) {
	entities, err := g.entityStore.List(ctx)
	if err != nil {
		return nil, err
	}

	summary := &DataSummary{TotalEntities: len(entities)}

	first := true
	for _, e := range entities {
		points, err := g.obsStore.GetByEntity(ctx, e.Name)
		if err != nil {
			return nil, err
		}
		summary.TotalObservations += len(points)

		for _, p := range points {
			if first {
				summary.MonthRangeStart = p.MonthIndex
				summary.MonthRangeEnd = p.MonthIndex
				first = false
				continue
			}
			if p.MonthIndex < summary.MonthRangeStart {
				summary.MonthRangeStart = p.MonthIndex
			}
			if p.MonthIndex > summary.MonthRangeEnd {
				summary.MonthRangeEnd = p.MonthIndex
			}
		}
	}

	return summary, nil
}

// generateEntityRows builds sorted per-entity rows from aggregates.
func (g *Generator) generateEntityRows(aggs []*domain.RunAggregate) []EntityAggregateRow {
	rows := make([]EntityAggregateRow, len(aggs))
	for i, agg := range aggs {
		rows[i] = EntityAggregateRow{
			EntityName:      agg.EntityName,
			HistoryMonths:   agg.HistoryMonths,
			ForecastMonths:  agg.ForecastMonths,
			FinalValue:      agg.FinalValue,
			FinalCumulative: agg.FinalCumulative,
			ForecastTotal:   agg.ForecastTotal,
			GrowthPct:       agg.GrowthPct,
		}
	}

	// Sort by entity name
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].EntityName < rows[j].EntityName
	})
	return rows
}

// generateTopEntities ranks rows by final cumulative count, descending.
// Name breaks ties so the ranking is stable.
func (g *Generator) generateTopEntities(rows []EntityAggregateRow) []EntityAggregateRow {
	top := make([]EntityAggregateRow, len(rows))
	copy(top, rows)

	sort.Slice(top, func(i, j int) bool {
		if top[i].FinalCumulative != top[j].FinalCumulative {
			return top[i].FinalCumulative > top[j].FinalCumulative
		}
		return top[i].EntityName < top[j].EntityName
	})

	if len(top) > g.topN {
		top = top[:g.topN]
	}
	return top
}
