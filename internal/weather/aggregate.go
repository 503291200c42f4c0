package weather

import "time"

// maxForecastDays caps the aggregated forecast length. The provider feed
// covers 5 calendar days at 3-hour resolution.
const maxForecastDays = 5

// AggregateForecast collapses raw 3-hour samples into one entry per future
// UTC calendar day. Samples dated today are dropped entirely; only strictly
// future days are reported. The first sample seen for a date seeds the entry
// (its description and icon stick), subsequent samples on the same date only
// widen the running min/max temperature. At most the first five distinct
// dates are kept; fewer is returned as-is, never padded.
func AggregateForecast(samples []ForecastSample, now time.Time) []ForecastDay {
	today := now.UTC().Format(time.DateOnly)

	var days []ForecastDay
	index := make(map[string]int)

	for _, s := range samples {
		date := s.Timestamp.UTC().Format(time.DateOnly)
		if date == today {
			continue
		}

		if i, ok := index[date]; ok {
			if s.TempMin < days[i].TempMin {
				days[i].TempMin = s.TempMin
			}
			if s.TempMax > days[i].TempMax {
				days[i].TempMax = s.TempMax
			}
			continue
		}

		if len(days) >= maxForecastDays {
			// Later dates past the cap are ignored, but samples for
			// already-open dates above still widen their min/max.
			continue
		}

		index[date] = len(days)
		days = append(days, ForecastDay{
			Date:        date,
			TempMin:     s.TempMin,
			TempMax:     s.TempMax,
			Description: s.Description,
			Icon:        s.Icon,
		})
	}

	return days
}
