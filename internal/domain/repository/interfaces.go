package repository

import (
	"context"

	"CropVol/internal/domain/models"
)

// TableSource reads a wide date-indexed table from a workbook sheet.
type TableSource interface {
	LoadTable(ctx context.Context, src models.TableSource) (*models.Table, error)
}

// ForecastSource reads out-of-band forecast columns, one per region.
type ForecastSource interface {
	LoadForecasts(ctx context.Context, src models.ForecastSource) (map[string][]float64, error)
}

// FitPublisher announces fresh volatility fits to downstream consumers.
type FitPublisher interface {
	PublishFit(ctx context.Context, ev models.FitEvent) error
	Close() error
}

// FitHistory keeps an audit trail of fits, newest first per region.
type FitHistory interface {
	SaveFit(ctx context.Context, ev models.FitEvent) error
	RecentFits(ctx context.Context, dataset, region string, limit int) ([]models.FitEvent, error)
}

type Metrics interface {
	RecordFit(dataset, outcome string, seconds float64)
	RecordCache(result string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
