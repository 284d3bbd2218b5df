package models

// Trace is one line of a time-series chart.
type Trace struct {
	Label  string    `json:"label"`
	Color  string    `json:"color"`
	Dates  []string  `json:"dates"`
	Values []float64 `json:"values"`
}

// Chart is a rendering-agnostic payload consumed by the dashboard.
type Chart struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	XAxisTitle string  `json:"x_axis_title"`
	YAxisTitle string  `json:"y_axis_title"`
	Template   string  `json:"template"`
	HoverMode  string  `json:"hover_mode"`
	Traces     []Trace `json:"traces"`
}
