package reconcile

import (
	"fmt"
	"time"

	"CropVol/internal/domain/models"
)

// Align places forecast f on the last K dates of vol, K being the forecast length.
// Values keep their original order; nothing is matched by value.
func Align(vol models.VolatilitySeries, f models.ForecastSeries) (models.AlignedForecast, error) {
	m := len(vol.Dates)
	k := len(f.Values)
	if len(vol.Values) != m {
		return models.AlignedForecast{}, fmt.Errorf("volatility series %q: %d dates for %d values", vol.Region, m, len(vol.Values))
	}
	if k > m {
		return models.AlignedForecast{}, &models.InsufficientHistoryError{Region: f.Region, Forecast: f.Name, K: k, M: m}
	}

	out := models.AlignedForecast{
		Name:   f.Name,
		Label:  f.Label,
		Color:  f.Color,
		Region: f.Region,
		Dates:  make([]time.Time, k),
		Values: make([]float64, k),
	}
	copy(out.Dates, vol.Dates[m-k:])
	copy(out.Values, f.Values)
	return out, nil
}
