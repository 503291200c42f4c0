package weather

import (
	"context"
	"sync"
	"time"
)

// Service orchestrates the provider and the forecast aggregation.
type Service struct {
	provider Provider

	// now is swappable in tests; defaults to time.Now.
	now func() time.Time
}

// NewService creates a new Service backed by the given provider.
func NewService(provider Provider) *Service {
	return &Service{
		provider: provider,
		now:      time.Now,
	}
}

// Search fetches current conditions and the raw forecast feed for a city
// concurrently, then aggregates the feed into daily entries. Both provider
// calls must succeed; either failure aborts the whole operation.
func (s *Service) Search(ctx context.Context, city string) (Snapshot, []ForecastDay, error) {
	var (
		wg       sync.WaitGroup
		snapshot Snapshot
		samples  []ForecastSample
		curErr   error
		fcErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		snapshot, curErr = s.provider.FetchCurrent(ctx, city)
	}()
	go func() {
		defer wg.Done()
		samples, fcErr = s.provider.FetchForecast(ctx, city)
	}()
	wg.Wait()

	if curErr != nil {
		return Snapshot{}, nil, curErr
	}
	if fcErr != nil {
		return Snapshot{}, nil, fcErr
	}

	return snapshot, AggregateForecast(samples, s.now()), nil
}
