package weather

import (
	"context"
	"errors"
)

// ErrCityNotFound is returned when the provider does not know the requested city.
var ErrCityNotFound = errors.New("city not found")

// Provider abstracts the external weather data source.
type Provider interface {
	// FetchCurrent returns the current conditions for a city.
	FetchCurrent(ctx context.Context, city string) (Snapshot, error)
	// FetchForecast returns the raw chronological 3-hour forecast feed for a city.
	FetchForecast(ctx context.Context, city string) ([]ForecastSample, error)
}
