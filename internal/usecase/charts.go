package usecase

import (
	"context"
	"fmt"
	"time"

	"CropVol/internal/domain/models"
	"CropVol/pkg/util"
)

const (
	chartTemplate  = "plotly_dark"
	chartHoverMode = "x unified"

	colorPrice      = "cyan"
	colorReturns    = "green"
	colorVolatility = "magenta"
	colorOverlay    = "red"
)

// Charts analyzes one region and returns its chart payloads.
func (p *VolatilityPipeline) Charts(ctx context.Context, dataset, region string) ([]models.Chart, error) {
	a, err := p.Analyze(ctx, dataset, region, false)
	if err != nil {
		return nil, err
	}
	return BuildCharts(a), nil
}

// BuildCharts turns an analysis into dashboard charts: price, log returns,
// conditional volatility, volatility against each forecast, then one chart per
// meteorological series. Stages that failed produce no chart.
func BuildCharts(a *models.RegionAnalysis) []models.Chart {
	var out []models.Chart
	if a.Prices != nil {
		out = append(out, chart("price", fmt.Sprintf("Modal Price - %s", a.Region), "Price (Rs./Quintal)",
			trace("Modal Price", colorPrice, a.Prices.Dates, a.Prices.Values)))
	}
	if a.Returns != nil {
		out = append(out, chart("returns", fmt.Sprintf("Log Returns - %s", a.Region), "Log Return",
			trace("Log Returns", colorReturns, a.Returns.Dates, a.Returns.Values)))
	}
	if a.Volatility != nil {
		vol := trace("Conditional Volatility", colorVolatility, a.Volatility.Dates, a.Volatility.Values)
		out = append(out, chart("volatility", fmt.Sprintf("Conditional Volatility - %s", a.Region), "Volatility", vol))

		for _, f := range a.Forecasts {
			overlay := vol
			overlay.Color = colorOverlay
			out = append(out, chart("forecast-"+f.Name,
				fmt.Sprintf("Conditional Volatility and %s Forecast - %s", f.Label, a.Region), "Volatility",
				overlay, trace(f.Label+" Forecast", f.Color, f.Dates, f.Values)))
		}
	}
	for _, m := range a.Meteo {
		y := m.Label
		if m.Unit != "" {
			y = fmt.Sprintf("%s (%s)", m.Label, m.Unit)
		}
		out = append(out, chart("meteo-"+m.Name, fmt.Sprintf("%s - %s", m.Label, a.Region), y,
			trace(m.Label, "", m.Dates, m.Values)))
	}
	return out
}

func chart(id, title, yTitle string, traces ...models.Trace) models.Chart {
	return models.Chart{
		ID:         id,
		Title:      title,
		XAxisTitle: "Date",
		YAxisTitle: yTitle,
		Template:   chartTemplate,
		HoverMode:  chartHoverMode,
		Traces:     traces,
	}
}

func trace(label, color string, dates []time.Time, values []float64) models.Trace {
	return models.Trace{Label: label, Color: color, Dates: util.FormatDates(dates), Values: values}
}
