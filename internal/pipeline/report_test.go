package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage/memory"
)

type pipelineStores struct {
	entities *memory.EntityStore
	obs      *memory.ObservationStore
	runs     *memory.ForecastRunStore
	aggs     *memory.RunAggregateStore
	combined *memory.CombinedPointStore
}

func setupPipelineStores(t *testing.T) *pipelineStores {
	t.Helper()
	ctx := context.Background()

	s := &pipelineStores{
		entities: memory.NewEntityStore(),
		obs:      memory.NewObservationStore(),
		runs:     memory.NewForecastRunStore(),
		aggs:     memory.NewRunAggregateStore(),
		combined: memory.NewCombinedPointStore(),
	}

	jan := domain.MonthIndexOf(2024, 1)
	seedEntityHistory(t, s.entities, s.obs, "King", 0, jan, 4)

	run := &domain.ForecastRun{
		RunID:             "run-1",
		StartedAt:         1700000000000,
		Horizon:           2,
		ModelID:           "gateway-v1",
		EntitiesRequested: 1,
		EntitiesSucceeded: 1,
	}
	if err := s.runs.Insert(ctx, run); err != nil {
		t.Fatalf("Insert run failed: %v", err)
	}

	agg := &domain.RunAggregate{
		RunID:           "run-1",
		EntityName:      "King",
		HistoryMonths:   4,
		ForecastMonths:  2,
		FinalValue:      15,
		FinalCumulative: 75,
		ForecastTotal:   29,
		GrowthPct:       63.0,
	}
	if err := s.aggs.Insert(ctx, agg); err != nil {
		t.Fatalf("Insert aggregate failed: %v", err)
	}

	points := []*domain.CombinedPoint{
		{RunID: "run-1", EntityName: "King", MonthIndex: jan + 3, Value: 13, Cumulative: 46, Source: domain.SourceHistorical},
		{RunID: "run-1", EntityName: "King", MonthIndex: jan + 4, Value: 14, Cumulative: 60, Source: domain.SourceForecast},
		{RunID: "run-1", EntityName: "King", MonthIndex: jan + 5, Value: 15, Cumulative: 75, Source: domain.SourceForecast},
	}
	if err := s.combined.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk combined failed: %v", err)
	}

	return s
}

func TestReportPipeline_WritesArtifacts(t *testing.T) {
	s := setupPipelineStores(t)
	outputDir := t.TempDir()

	pipeline := NewReportPipeline(s.runs, s.entities, s.obs, s.aggs, s.combined, outputDir).
		WithSufficiencyChecker(NewSufficiencyChecker(s.entities, s.obs)).
		WithClock(func() time.Time { return time.UnixMilli(1700000000000).UTC() })

	if err := pipeline.Run(context.Background(), "run-1"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// FORECAST_REPORT.md
	reportBytes, err := os.ReadFile(filepath.Join(outputDir, ReportFileName))
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	report := string(reportBytes)
	for _, want := range []string{
		"# Forecast Run Report",
		"| Run ID | `run-1` |",
		"**All checks passed.**",
		"| King | 4 | 2 |",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}

	// run_aggregates.csv
	aggBytes, err := os.ReadFile(filepath.Join(outputDir, AggregatesCSVFileName))
	if err != nil {
		t.Fatalf("aggregates CSV not written: %v", err)
	}
	if !strings.HasPrefix(string(aggBytes), "entity_name,") {
		t.Errorf("unexpected aggregates CSV header: %s", string(aggBytes))
	}
	if !strings.Contains(string(aggBytes), "King,4,2,") {
		t.Errorf("aggregates CSV missing King row: %s", string(aggBytes))
	}

	// combined_series.csv: header + 3 points
	combinedBytes, err := os.ReadFile(filepath.Join(outputDir, CombinedCSVFileName))
	if err != nil {
		t.Fatalf("combined CSV not written: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(combinedBytes)), "\n")
	if len(lines) != 4 {
		t.Errorf("expected 4 combined CSV lines, got %d", len(lines))
	}
}

func TestReportPipeline_FailedChecksStillReport(t *testing.T) {
	s := setupPipelineStores(t)
	ctx := context.Background()

	// Add a too-short entity so the sufficiency check fails.
	seedEntityHistory(t, s.entities, s.obs, "Garfield", 1, domain.MonthIndexOf(2024, 1), 2)

	outputDir := t.TempDir()
	pipeline := NewReportPipeline(s.runs, s.entities, s.obs, s.aggs, s.combined, outputDir).
		WithSufficiencyChecker(NewSufficiencyChecker(s.entities, s.obs)).
		WithFailures([]string{"Garfield: insufficient history: 2 observations, need at least 3"})

	if err := pipeline.Run(ctx, "run-1"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	reportBytes, err := os.ReadFile(filepath.Join(outputDir, ReportFileName))
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	report := string(reportBytes)

	if !strings.Contains(report, "**Some checks failed.**") {
		t.Error("report should flag failed checks")
	}
	if !strings.Contains(report, "### Integrity Errors") {
		t.Error("report should list integrity errors")
	}
	if !strings.Contains(report, "- Garfield: insufficient history") {
		t.Error("report should carry the run failure message")
	}
}

func TestReportPipeline_UnknownRun(t *testing.T) {
	s := setupPipelineStores(t)

	pipeline := NewReportPipeline(s.runs, s.entities, s.obs, s.aggs, s.combined, t.TempDir())
	if err := pipeline.Run(context.Background(), "no-such-run"); err == nil {
		t.Error("expected error for unknown run")
	}
}

func TestLoadFixtures_Deterministic(t *testing.T) {
	ctx := context.Background()

	entityStore := memory.NewEntityStore()
	obsStore := memory.NewObservationStore()
	if err := LoadFixtures(ctx, entityStore, obsStore); err != nil {
		t.Fatalf("LoadFixtures failed: %v", err)
	}

	entities, err := entityStore.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entities) != 7 {
		t.Fatalf("expected 7 fixture counties, got %d", len(entities))
	}

	// Codes follow alphabetical label encoding.
	for i, e := range entities {
		if e.Code != i {
			t.Errorf("expected code %d for %s, got %d", i, e.Name, e.Code)
		}
		if i > 0 && entities[i-1].Name >= e.Name {
			t.Errorf("expected alphabetical order, got %s before %s", entities[i-1].Name, e.Name)
		}
	}

	// Garfield is the deliberately short series.
	garfield, err := obsStore.GetByEntity(ctx, "Garfield")
	if err != nil {
		t.Fatalf("GetByEntity failed: %v", err)
	}
	if len(garfield) != 2 {
		t.Errorf("expected 2 Garfield observations, got %d", len(garfield))
	}

	king, err := obsStore.GetByEntity(ctx, "King")
	if err != nil {
		t.Fatalf("GetByEntity failed: %v", err)
	}
	if len(king) != 18 {
		t.Errorf("expected 18 King observations, got %d", len(king))
	}

	// Loading into fresh stores produces identical values.
	entityStore2 := memory.NewEntityStore()
	obsStore2 := memory.NewObservationStore()
	if err := LoadFixtures(ctx, entityStore2, obsStore2); err != nil {
		t.Fatalf("second LoadFixtures failed: %v", err)
	}
	king2, err := obsStore2.GetByEntity(ctx, "King")
	if err != nil {
		t.Fatalf("GetByEntity failed: %v", err)
	}
	for i := range king {
		if king[i].Value != king2[i].Value || king[i].MonthIndex != king2[i].MonthIndex {
			t.Fatalf("fixture values differ at %d: %+v vs %+v", i, king[i], king2[i])
		}
	}
}
