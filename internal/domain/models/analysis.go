package models

import "time"

// RegionAnalysis is the consolidated per-region view of the volatility pipeline.
// Errors are keyed by pipeline stage; a failed stage never hides the others.
type RegionAnalysis struct {
	Dataset    string            `json:"dataset"`
	Region     string            `json:"region"`
	Timestamp  time.Time         `json:"timestamp"`
	Prices     *PriceSeries      `json:"prices,omitempty"`
	Returns    *ReturnSeries     `json:"returns,omitempty"`
	Volatility *VolatilitySeries `json:"volatility,omitempty"`
	Forecasts  []AlignedForecast `json:"forecasts,omitempty"`
	Meteo      []MeteoSeries     `json:"meteo,omitempty"`
	Realized   *RollingSeries    `json:"realized_volatility,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// RegionFit is one row of a dataset-wide fit report.
type RegionFit struct {
	Region    string     `json:"region"`
	Fit       *FitReport `json:"fit,omitempty"`
	LastSigma float64    `json:"last_sigma,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// DatasetReport summarizes fits for every whitelisted region of a dataset.
type DatasetReport struct {
	RunID     string        `json:"run_id"`
	Dataset   string        `json:"dataset"`
	Timestamp time.Time     `json:"timestamp"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Regions   []RegionFit   `json:"regions"`
	Warnings  []string      `json:"warnings,omitempty"`
}

// Failed returns the number of regions whose fit errored.
func (r *DatasetReport) Failed() int {
	n := 0
	for _, rf := range r.Regions {
		if rf.Error != "" {
			n++
		}
	}
	return n
}

// Done drops an empty error map so it is omitted from JSON.
func (a *RegionAnalysis) Done() *RegionAnalysis {
	if len(a.Errors) == 0 {
		a.Errors = nil
	}
	return a
}
