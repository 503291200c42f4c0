package weather

import (
	"time"
)

// Snapshot is the current-conditions view for a city at the moment of query.
// Field names match what the frontend and the saved-city records expect.
type Snapshot struct {
	City        string  `json:"city"`
	Temperature float64 `json:"temperature"` // °C
	Description string  `json:"description"`
	Humidity    float64 `json:"humidity"` // percent
	WindSpeed   float64 `json:"windSpeed"` // m/s
	Icon        string  `json:"icon"`
}

// ForecastSample is one raw 3-hour forecast entry as reported by the provider.
type ForecastSample struct {
	Timestamp   time.Time
	TempMin     float64
	TempMax     float64
	Description string
	Icon        string
}

// ForecastDay is the aggregated summary for one future calendar day.
type ForecastDay struct {
	Date        string  `json:"date"` // YYYY-MM-DD, UTC
	TempMin     float64 `json:"temp_min"`
	TempMax     float64 `json:"temp_max"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}
