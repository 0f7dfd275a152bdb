package pipeline

import (
	"context"
	"strings"
	"testing"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage/memory"
)

func seedEntityHistory(t *testing.T, entityStore *memory.EntityStore, obsStore *memory.ObservationStore, name string, code int, startMonth, months int) {
	t.Helper()
	ctx := context.Background()

	if err := entityStore.Insert(ctx, &domain.Entity{Name: name, Code: code}); err != nil {
		t.Fatalf("Insert entity %s failed: %v", name, err)
	}

	points := make([]*domain.SeriesPoint, months)
	for i := 0; i < months; i++ {
		points[i] = &domain.SeriesPoint{
			EntityName: name,
			MonthIndex: startMonth + i,
			Value:      float64(10 + i),
			Source:     domain.SourceHistorical,
		}
	}
	if err := obsStore.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk for %s failed: %v", name, err)
	}
}

func TestSufficiencyChecker_AllPass(t *testing.T) {
	entityStore := memory.NewEntityStore()
	obsStore := memory.NewObservationStore()

	jan := domain.MonthIndexOf(2024, 1)
	seedEntityHistory(t, entityStore, obsStore, "King", 0, jan, 6)
	seedEntityHistory(t, entityStore, obsStore, "Pierce", 1, jan, 6)

	checker := NewSufficiencyChecker(entityStore, obsStore)
	result, err := checker.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if !result.AllPass {
		t.Errorf("expected all checks to pass, got %+v", result.Checks)
	}
	if len(result.Checks) != 5 {
		t.Errorf("expected 5 checks, got %d", len(result.Checks))
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected no integrity errors, got %v", result.Errors)
	}
}

func TestSufficiencyChecker_EmptyRegistry(t *testing.T) {
	checker := NewSufficiencyChecker(memory.NewEntityStore(), memory.NewObservationStore())
	result, err := checker.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if result.AllPass {
		t.Error("expected checks to fail for an empty registry")
	}
	if result.Checks[0].Pass {
		t.Errorf("expected registry check to fail, got %+v", result.Checks[0])
	}
}

func TestSufficiencyChecker_ShortHistory(t *testing.T) {
	entityStore := memory.NewEntityStore()
	obsStore := memory.NewObservationStore()

	jan := domain.MonthIndexOf(2024, 1)
	seedEntityHistory(t, entityStore, obsStore, "King", 0, jan, 6)
	seedEntityHistory(t, entityStore, obsStore, "Garfield", 1, jan, 2)

	checker := NewSufficiencyChecker(entityStore, obsStore)
	result, err := checker.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if result.AllPass {
		t.Error("expected the history check to fail")
	}
	if result.Checks[1].Pass {
		t.Errorf("expected minimum-history check to fail, got %+v", result.Checks[1])
	}

	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "Garfield") && strings.Contains(e, "2 observations") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an integrity error naming Garfield, got %v", result.Errors)
	}
}

func TestSufficiencyChecker_CalendarGap(t *testing.T) {
	entityStore := memory.NewEntityStore()
	obsStore := memory.NewObservationStore()
	ctx := context.Background()

	if err := entityStore.Insert(ctx, &domain.Entity{Name: "King", Code: 0}); err != nil {
		t.Fatalf("Insert entity failed: %v", err)
	}

	// January, February, then April: March is missing.
	jan := domain.MonthIndexOf(2024, 1)
	points := []*domain.SeriesPoint{
		{EntityName: "King", MonthIndex: jan, Value: 10, Source: domain.SourceHistorical},
		{EntityName: "King", MonthIndex: jan + 1, Value: 11, Source: domain.SourceHistorical},
		{EntityName: "King", MonthIndex: jan + 3, Value: 13, Source: domain.SourceHistorical},
	}
	if err := obsStore.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	checker := NewSufficiencyChecker(entityStore, obsStore)
	result, err := checker.Check(ctx)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if result.AllPass {
		t.Error("expected the gap check to fail")
	}
	if result.Checks[3].Pass {
		t.Errorf("expected calendar-gap check to fail, got %+v", result.Checks[3])
	}

	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "1-month gap") && strings.Contains(e, "2024-02") && strings.Contains(e, "2024-04") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a gap error naming the surrounding months, got %v", result.Errors)
	}
}

func TestCheckDuplicateMonths_Detects(t *testing.T) {
	// Stores reject duplicate (entity, month) rows, so the fail path is
	// exercised against crafted input directly.
	checker := NewSufficiencyChecker(nil, nil)

	jan := domain.MonthIndexOf(2024, 1)
	byEntity := map[string][]*domain.SeriesPoint{
		"King": {
			{EntityName: "King", MonthIndex: jan, Value: 10},
			{EntityName: "King", MonthIndex: jan, Value: 12},
			{EntityName: "King", MonthIndex: jan + 1, Value: 11},
		},
	}

	check, errors := checker.checkDuplicateMonths([]string{"King"}, byEntity)
	if check.Pass {
		t.Errorf("expected duplicate check to fail, got %+v", check)
	}
	if len(errors) != 1 || !strings.Contains(errors[0], "2 rows for 2024-01") {
		t.Errorf("unexpected duplicate errors: %v", errors)
	}
}

func TestCheckUniqueCodes_Detects(t *testing.T) {
	checker := NewSufficiencyChecker(nil, nil)

	entities := []*domain.Entity{
		{Name: "King", Code: 7},
		{Name: "Pierce", Code: 7},
		{Name: "Clark", Code: 2},
	}

	check, errors := checker.checkUniqueCodes(entities)
	if check.Pass {
		t.Errorf("expected code check to fail, got %+v", check)
	}
	if len(errors) != 1 || !strings.Contains(errors[0], "code 7") {
		t.Errorf("unexpected code errors: %v", errors)
	}
}

func TestSufficiencyChecker_Fixtures(t *testing.T) {
	entityStore := memory.NewEntityStore()
	obsStore := memory.NewObservationStore()

	if err := LoadFixtures(context.Background(), entityStore, obsStore); err != nil {
		t.Fatalf("LoadFixtures failed: %v", err)
	}

	checker := NewSufficiencyChecker(entityStore, obsStore)
	result, err := checker.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	// Garfield is deliberately short, so the history check fails and
	// everything else passes.
	if result.AllPass {
		t.Error("expected fixture data to fail the history check")
	}
	for i, check := range result.Checks {
		wantPass := i != 1
		if check.Pass != wantPass {
			t.Errorf("check %d (%s): expected pass=%t, got %t", i, check.Name, wantPass, check.Pass)
		}
	}
}
