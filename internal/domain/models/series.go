package models

import "time"

// Table is a wide, date-indexed table as read from a price or meteorological workbook.
// Missing cells are NaN.
type Table struct {
	DateColumn string
	Dates      []time.Time
	Columns    []string
	Values     map[string][]float64
}

// Has reports whether the table carries the given column.
func (t *Table) Has(column string) bool {
	_, ok := t.Values[column]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Dates) }

// DateWindow is a closed date interval. A zero bound leaves that side open.
type DateWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether d lies within the window, bounds included.
func (w DateWindow) Contains(d time.Time) bool {
	if !w.Start.IsZero() && d.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && d.After(w.End) {
		return false
	}
	return true
}

// PriceSeries is a monthly price level series for one region, ascending by date.
type PriceSeries struct {
	Dataset string      `json:"dataset"`
	Region  string      `json:"region"`
	Dates   []time.Time `json:"dates"`
	Values  []float64   `json:"values"`
}

// ReturnSeries is the log-return series derived from a PriceSeries.
type ReturnSeries struct {
	Dataset string      `json:"dataset"`
	Region  string      `json:"region"`
	Dates   []time.Time `json:"dates"`
	Values  []float64   `json:"values"`
}

// Len returns the number of observations.
func (r ReturnSeries) Len() int { return len(r.Values) }

// VolatilitySeries is the in-sample conditional volatility path (sigma, not variance)
// together with the quality report of the fit that produced it.
type VolatilitySeries struct {
	Dataset string      `json:"dataset"`
	Region  string      `json:"region"`
	Dates   []time.Time `json:"dates"`
	Values  []float64   `json:"values"`
	Fit     FitReport   `json:"fit"`
}

// MeteoSeries is one meteorological covariate for a region after cleaning.
type MeteoSeries struct {
	Name   string      `json:"name"`
	Label  string      `json:"label"`
	Unit   string      `json:"unit,omitempty"`
	Region string      `json:"region"`
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// ForecastSeries is an externally produced forecast, indexed by position only.
type ForecastSeries struct {
	Name   string    `json:"name"`
	Label  string    `json:"label"`
	Color  string    `json:"color"`
	Region string    `json:"region"`
	Values []float64 `json:"values"`
}

// AlignedForecast is a ForecastSeries placed on the trailing dates of a volatility series.
type AlignedForecast struct {
	Name   string      `json:"name"`
	Label  string      `json:"label"`
	Color  string      `json:"color"`
	Region string      `json:"region"`
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// RollingSeries is a rolling-window statistic over a return series.
type RollingSeries struct {
	Window int         `json:"window"`
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}
