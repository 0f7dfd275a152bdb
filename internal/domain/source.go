package domain

// SeriesSource tags whether a point was observed or predicted.
type SeriesSource string

const (
	SourceHistorical SeriesSource = "HISTORICAL"
	SourceForecast   SeriesSource = "FORECAST"
)

// String returns the string representation of SeriesSource.
func (s SeriesSource) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s SeriesSource) IsValid() bool {
	return s == SourceHistorical || s == SourceForecast
}
