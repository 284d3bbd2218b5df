package models

// Requests for the volatility HTTP endpoints. Defined in domain for consistency and reuse.

type DatasetRequest struct {
	Dataset string `query:"dataset" json:"dataset" validate:"required"`
	Refresh bool   `query:"refresh" json:"refresh"`
}

type RegionRequest struct {
	Dataset string `query:"dataset" json:"dataset" validate:"required"`
	Region  string `query:"region" json:"region" validate:"required"`
	Refresh bool   `query:"refresh" json:"refresh"`
}

type ForecastRequest struct {
	Dataset string `query:"dataset" json:"dataset" validate:"required"`
	Region  string `query:"region" json:"region" validate:"required"`
	Source  string `query:"source" json:"source" default:"lstm" validate:"required"`
}

// SeriesRequest selects a rolling series; a zero window uses the configured one.
type SeriesRequest struct {
	Dataset string `query:"dataset" json:"dataset" validate:"required"`
	Region  string `query:"region" json:"region" validate:"required"`
	Window  int    `query:"window" json:"window" validate:"omitempty,gte=2,lte=120"`
}
