package pipeline

import (
	"context"

	"ev-forecast-lab/internal/domain"
	"ev-forecast-lab/internal/storage"
)

// fixtureCounty describes one synthetic county series. Codes follow the
// label-encoding convention: counties sorted alphabetically, numbered
// from zero.
type fixtureCounty struct {
	Name  string
	Code  int
	Base  float64 // monthly registrations in the first fixture month
	Slope float64 // added registrations per month
	Count int     // number of observed months
}

// fixtureStart is the first observed month of every fixture series.
var fixtureStart = domain.MonthIndexOf(2023, 1)

// fixtureCounties is the deterministic demo dataset. Garfield is
// deliberately short (2 observations) so batch runs have one entity
// that fails the minimum-history requirement while the rest proceed.
var fixtureCounties = []fixtureCounty{
	{Name: "Clark", Code: 0, Base: 180, Slope: 12, Count: 18},
	{Name: "Garfield", Code: 1, Base: 2, Slope: 1, Count: 2},
	{Name: "King", Code: 2, Base: 2100, Slope: 95, Count: 18},
	{Name: "Kitsap", Code: 3, Base: 90, Slope: 7, Count: 18},
	{Name: "Pierce", Code: 4, Base: 310, Slope: 21, Count: 18},
	{Name: "Snohomish", Code: 5, Base: 540, Slope: 33, Count: 18},
	{Name: "Thurston", Code: 6, Base: 120, Slope: 9, Count: 18},
}

// LoadFixtures populates the registry and observation stores with the
// deterministic demo dataset.
func LoadFixtures(
	ctx context.Context,
	entityStore storage.EntityStore,
	obsStore storage.ObservationStore,
) error {
	var points []*domain.SeriesPoint

	for _, c := range fixtureCounties {
		entity := &domain.Entity{Name: c.Name, Code: c.Code}
		if err := entityStore.Insert(ctx, entity); err != nil {
			return err
		}

		for i := 0; i < c.Count; i++ {
			points = append(points, &domain.SeriesPoint{
				EntityName: c.Name,
				MonthIndex: fixtureStart + i,
				Value:      fixtureValue(c, i),
				Source:     domain.SourceHistorical,
			})
		}
	}

	return obsStore.InsertBulk(ctx, points)
}

// fixtureValue produces the i-th monthly value of a county series:
// linear growth plus a small deterministic wiggle so the series are not
// perfectly straight lines.
func fixtureValue(c fixtureCounty, i int) float64 {
	wiggle := float64((i*7)%5) - 2
	return c.Base + c.Slope*float64(i) + wiggle
}

// FixtureEntityNames returns the fixture county names in registry
// (code) order.
func FixtureEntityNames() []string {
	names := make([]string, len(fixtureCounties))
	for i, c := range fixtureCounties {
		names[i] = c.Name
	}
	return names
}
