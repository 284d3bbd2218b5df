package service

import (
	"context"
	"time"

	"CropVol/internal/domain/models"
)

// VolatilityEstimator fits a conditional volatility model to one region's returns.
type VolatilityEstimator interface {
	Fit(ctx context.Context, returns models.ReturnSeries) (models.VolatilitySeries, error)
}

// FreshFunc observes a completed fit once, inside the flight that produced it.
// ctx is detached from the caller and bounded by the fit timeout.
type FreshFunc func(ctx context.Context, vs models.VolatilitySeries, took time.Duration)
