package pipeline

import (
	"context"
	"fmt"
	"sort"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/forecast"
	"ev-forecast-lab/internal/storage"
)

// SufficiencyCheck represents one data sufficiency criterion.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult contains all 5 checks.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool
	Errors  []string // data integrity errors
}

// SufficiencyChecker validates observed history before a forecast run.
type SufficiencyChecker struct {
	entityStore storage.EntityStore
	obsStore    storage.ObservationStore
}

// NewSufficiencyChecker creates a new sufficiency checker.
func NewSufficiencyChecker(
	entityStore storage.EntityStore,
	obsStore storage.ObservationStore,
) *SufficiencyChecker {
	return &SufficiencyChecker{
		entityStore: entityStore,
		obsStore:    obsStore,
	}
}

// Check performs all 5 sufficiency checks.
func (c *SufficiencyChecker) Check(ctx context.Context) (*SufficiencyResult, error) {
	result := &SufficiencyResult{
		Checks:  make([]SufficiencyCheck, 0, 5),
		AllPass: true,
		Errors:  []string{},
	}

	// Load the registry and every entity's observations once; the
	// individual checks work over the loaded data.
	entities, err := c.entityStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	byEntity := make(map[string][]*domain.SeriesPoint, len(entities))
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		points, err := c.obsStore.GetByEntity(ctx, e.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to load observations for %s: %w", e.Name, err)
		}
		byEntity[e.Name] = points
		names = append(names, e.Name)
	}
	sort.Strings(names)

	// Check 1: registry non-empty
	check1 := c.checkRegistryNonEmpty(entities)
	result.Checks = append(result.Checks, check1)
	if !check1.Pass {
		result.AllPass = false
	}

	// Check 2: every entity has enough history to forecast
	check2, historyErrors := c.checkMinimumHistory(names, byEntity)
	result.Checks = append(result.Checks, check2)
	if !check2.Pass {
		result.AllPass = false
		result.Errors = append(result.Errors, historyErrors...)
	}

	// Check 3: no duplicate (entity, month) rows
	check3, duplicateErrors := c.checkDuplicateMonths(names, byEntity)
	result.Checks = append(result.Checks, check3)
	if !check3.Pass {
		result.AllPass = false
		result.Errors = append(result.Errors, duplicateErrors...)
	}

	// Check 4: no calendar gaps inside any entity's series
	check4, gapErrors := c.checkCalendarGaps(names, byEntity)
	result.Checks = append(result.Checks, check4)
	if !check4.Pass {
		result.AllPass = false
		result.Errors = append(result.Errors, gapErrors...)
	}

	// Check 5: entity codes unique
	check5, codeErrors := c.checkUniqueCodes(entities)
	result.Checks = append(result.Checks, check5)
	if !check5.Pass {
		result.AllPass = false
		result.Errors = append(result.Errors, codeErrors...)
	}

	return result, nil
}

// checkRegistryNonEmpty: at least one registered entity.
func (c *SufficiencyChecker) checkRegistryNonEmpty(entities []*domain.Entity) SufficiencyCheck {
	count := len(entities)
	return SufficiencyCheck{
		Name:      "Registry non-empty",
		Threshold: ">= 1 entity",
		Actual:    fmt.Sprintf("%d", count),
		Pass:      count >= 1,
	}
}

// checkMinimumHistory: every entity has at least the minimum history a
// forecast needs.
func (c *SufficiencyChecker) checkMinimumHistory(names []string, byEntity map[string][]*domain.SeriesPoint) (SufficiencyCheck, []string) {
	shortCount := 0
	var errors []string

	for _, name := range names {
		count := len(byEntity[name])
		if count < forecast.MinHistory {
			shortCount++
			errors = append(errors, fmt.Sprintf("entity %s has %d observations, need %d", name, count, forecast.MinHistory))
		}
	}

	return SufficiencyCheck{
		Name:      "Minimum history per entity",
		Threshold: fmt.Sprintf(">= %d observations", forecast.MinHistory),
		Actual:    fmt.Sprintf("%d entities below minimum", shortCount),
		Pass:      shortCount == 0,
	}, errors
}

// checkDuplicateMonths: duplicate (entity, month) row count == 0.
func (c *SufficiencyChecker) checkDuplicateMonths(names []string, byEntity map[string][]*domain.SeriesPoint) (SufficiencyCheck, []string) {
	duplicateCount := 0
	var errors []string

	for _, name := range names {
		seen := make(map[int]int)
		for _, p := range byEntity[name] {
			seen[p.MonthIndex]++
		}

		// Sort months for deterministic output
		months := make([]int, 0, len(seen))
		for m := range seen {
			months = append(months, m)
		}
		sort.Ints(months)

		for _, m := range months {
			if seen[m] > 1 {
				duplicateCount++
				errors = append(errors, fmt.Sprintf("entity %s has %d rows for %s", name, seen[m], domain.FormatMonth(m)))
			}
		}
	}

	return SufficiencyCheck{
		Name:      "Duplicate (entity, month) rows",
		Threshold: "= 0",
		Actual:    fmt.Sprintf("%d", duplicateCount),
		Pass:      duplicateCount == 0,
	}, errors
}

// checkCalendarGaps: consecutive observed months inside an entity's
// series must be adjacent on the calendar.
func (c *SufficiencyChecker) checkCalendarGaps(names []string, byEntity map[string][]*domain.SeriesPoint) (SufficiencyCheck, []string) {
	gapCount := 0
	var errors []string

	for _, name := range names {
		points := byEntity[name]

		// Stores return month ASC; sort locally so the check does not
		// depend on that contract.
		months := make([]int, len(points))
		for i, p := range points {
			months[i] = p.MonthIndex
		}
		sort.Ints(months)

		for i := 1; i < len(months); i++ {
			diff := months[i] - months[i-1]
			if diff > 1 {
				gapCount++
				errors = append(errors, fmt.Sprintf("entity %s has a %d-month gap between %s and %s",
					name, diff-1, domain.FormatMonth(months[i-1]), domain.FormatMonth(months[i])))
			}
		}
	}

	return SufficiencyCheck{
		Name:      "Calendar gaps",
		Threshold: "= 0",
		Actual:    fmt.Sprintf("%d", gapCount),
		Pass:      gapCount == 0,
	}, errors
}

// checkUniqueCodes: no two entities share a code.
func (c *SufficiencyChecker) checkUniqueCodes(entities []*domain.Entity) (SufficiencyCheck, []string) {
	byCode := make(map[int][]string)
	for _, e := range entities {
		byCode[e.Code] = append(byCode[e.Code], e.Name)
	}

	// Sort codes for deterministic output
	codes := make([]int, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	collisionCount := 0
	var errors []string
	for _, code := range codes {
		names := byCode[code]
		if len(names) > 1 {
			collisionCount++
			sort.Strings(names)
			errors = append(errors, fmt.Sprintf("code %d shared by %d entities: %v", code, len(names), names))
		}
	}

	return SufficiencyCheck{
		Name:      "Unique entity codes",
		Threshold: "= 0 collisions",
		Actual:    fmt.Sprintf("%d", collisionCount),
		Pass:      collisionCount == 0,
	}, errors
}
