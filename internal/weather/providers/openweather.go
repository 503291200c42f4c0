package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/weathervault/weathervault/internal/weather"
)

// OpenWeatherProvider implements the weather.Provider interface for
// OpenWeatherMap. It serves both the current-conditions endpoint and the
// 5-day / 3-hour forecast endpoint.
type OpenWeatherProvider struct {
	apiKey      string
	currentURL  string
	forecastURL string
	client      *http.Client
	circuit     *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenWeatherProvider{
		apiKey:      apiKey,
		currentURL:  "https://api.openweathermap.org/data/2.5/weather",
		forecastURL: "https://api.openweathermap.org/data/2.5/forecast",
		client:      client,
		circuit:     cb,
	}
}

// WithBaseURLs overrides the provider endpoints. Used in tests.
func (p *OpenWeatherProvider) WithBaseURLs(currentURL, forecastURL string) *OpenWeatherProvider {
	p.currentURL = currentURL
	p.forecastURL = forecastURL
	return p
}

func (p *OpenWeatherProvider) buildRequest(baseURL, city string) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", city)
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")

		return http.NewRequest(http.MethodGet, fmt.Sprintf("%s?%s", baseURL, values.Encode()), nil)
	}
}

// FetchCurrent returns the current conditions for a city.
func (p *OpenWeatherProvider) FetchCurrent(ctx context.Context, city string) (weather.Snapshot, error) {
	if p.apiKey == "" {
		return weather.Snapshot{}, fmt.Errorf("openweather api key is not configured")
	}

	resp, err := doRequest(ctx, p.client, p.circuit, p.buildRequest(p.currentURL, city))
	if err != nil {
		return weather.Snapshot{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Name string `json:"name"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Weather []struct {
			Description string `json:"description"`
			Icon        string `json:"icon"`
		} `json:"weather"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Snapshot{}, fmt.Errorf("decode current weather: %w", err)
	}

	snapshot := weather.Snapshot{
		City:        payload.Name,
		Temperature: payload.Main.Temp,
		Humidity:    payload.Main.Humidity,
		WindSpeed:   payload.Wind.Speed,
	}
	if len(payload.Weather) > 0 {
		snapshot.Description = payload.Weather[0].Description
		snapshot.Icon = payload.Weather[0].Icon
	}

	return snapshot, nil
}

// FetchForecast returns the raw chronological 3-hour forecast feed for a city.
func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, city string) ([]weather.ForecastSample, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}

	resp, err := doRequest(ctx, p.client, p.circuit, p.buildRequest(p.forecastURL, city))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				TempMin float64 `json:"temp_min"`
				TempMax float64 `json:"temp_max"`
			} `json:"main"`
			Weather []struct {
				Description string `json:"description"`
				Icon        string `json:"icon"`
			} `json:"weather"`
		} `json:"list"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode forecast: %w", err)
	}

	samples := make([]weather.ForecastSample, 0, len(payload.List))
	for _, item := range payload.List {
		s := weather.ForecastSample{
			Timestamp: time.Unix(item.Dt, 0).UTC(),
			TempMin:   item.Main.TempMin,
			TempMax:   item.Main.TempMax,
		}
		if len(item.Weather) > 0 {
			s.Description = item.Weather[0].Description
			s.Icon = item.Weather[0].Icon
		}
		samples = append(samples, s)
	}

	return samples, nil
}
