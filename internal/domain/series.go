package domain

import "fmt"

// SeriesPoint represents one monthly observation of the target series.
// Corresponds to observations table in PostgreSQL.
type SeriesPoint struct {
	EntityName string       // owning entity
	MonthIndex int          // year*12 + (month-1), strictly increasing per entity
	Value      float64      // EV count for the month, non-negative
	Source     SeriesSource // HISTORICAL for observations
	CreatedAt  int64        // record creation timestamp (ms)
}

// MonthIndexOf encodes a calendar month as a monotonic integer.
// January is month 1.
func MonthIndexOf(year, month int) int {
	return year*12 + (month - 1)
}

// YearOf returns the calendar year of a month index.
func YearOf(index int) int {
	return index / 12
}

// MonthOf returns the calendar month (1-12) of a month index.
func MonthOf(index int) int {
	return index%12 + 1
}

// FormatMonth renders a month index as "YYYY-MM".
func FormatMonth(index int) string {
	return fmt.Sprintf("%04d-%02d", YearOf(index), MonthOf(index))
}
