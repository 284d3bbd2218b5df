package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"CropVol/internal/domain/models"
	domrepo "CropVol/internal/domain/repository"
	domsvc "CropVol/internal/domain/service"
	"CropVol/internal/services/cleaning"
	"CropVol/internal/services/features"
	"CropVol/internal/services/reconcile"
	applogger "CropVol/pkg/logger"
)

// FitCache fits return series, sharing results across callers.
type FitCache interface {
	Fit(ctx context.Context, rs models.ReturnSeries, onFresh domsvc.FreshFunc) (models.VolatilitySeries, bool, error)
	Invalidate(ctx context.Context, rs models.ReturnSeries) error
}

// Stage names used as keys of RegionAnalysis.Errors.
const (
	StagePrices     = "prices"
	StageReturns    = "returns"
	StageVolatility = "volatility"
	StageRealized   = "realized"
	stageForecast   = "forecast:"
	stageMeteo      = "meteo:"
)

// VolatilityPipeline runs clean -> transform -> estimate -> reconcile for the
// regions of a configured dataset.
type VolatilityPipeline struct {
	catalog        *Catalog
	tables         domrepo.TableSource
	forecasts      domrepo.ForecastSource
	fits           FitCache
	publisher      domrepo.FitPublisher
	history        domrepo.FitHistory
	metrics        domrepo.Metrics
	log            *applogger.Logger
	workers        int
	realizedWindow int
}

type PipelineOption func(*VolatilityPipeline)

// WithWorkers bounds how many regions AnalyzeAll fits at once.
func WithWorkers(n int) PipelineOption {
	return func(p *VolatilityPipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithRealizedWindow sets the rolling window of the realized volatility baseline.
func WithRealizedWindow(n int) PipelineOption {
	return func(p *VolatilityPipeline) {
		if n > 1 {
			p.realizedWindow = n
		}
	}
}

func WithPublisher(pub domrepo.FitPublisher) PipelineOption {
	return func(p *VolatilityPipeline) { p.publisher = pub }
}

// WithHistory records every fresh fit in h.
func WithHistory(h domrepo.FitHistory) PipelineOption {
	return func(p *VolatilityPipeline) { p.history = h }
}

func WithMetrics(m domrepo.Metrics) PipelineOption {
	return func(p *VolatilityPipeline) { p.metrics = m }
}

func WithLogger(l *applogger.Logger) PipelineOption {
	return func(p *VolatilityPipeline) { p.log = l }
}

func NewVolatilityPipeline(catalog *Catalog, tables domrepo.TableSource, forecasts domrepo.ForecastSource, fits FitCache, opts ...PipelineOption) *VolatilityPipeline {
	p := &VolatilityPipeline{
		catalog:        catalog,
		tables:         tables,
		forecasts:      forecasts,
		fits:           fits,
		log:            applogger.Nop(),
		workers:        4,
		realizedWindow: 12,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *VolatilityPipeline) Datasets() []models.Dataset {
	return p.catalog.List()
}

// priceTable loads and cleans the dataset's price table. Whitelisted regions
// absent from the workbook are returned so callers can surface them.
func (p *VolatilityPipeline) priceTable(ctx context.Context, ds models.Dataset) (*models.Table, []string, error) {
	raw, err := p.tables.LoadTable(ctx, ds.Price)
	if err != nil {
		return nil, nil, err
	}
	t, missing := cleaning.Clean(raw, ds.Regions, ds.PriceWindow)
	if len(missing) > 0 {
		p.log.Warn("whitelisted regions missing from price table",
			applogger.String("dataset", ds.Name),
			applogger.String("path", ds.Price.Path),
			applogger.Strings("regions", missing),
		)
	}
	return t, missing, nil
}

func (p *VolatilityPipeline) prices(t *models.Table, ds models.Dataset, region string) (models.PriceSeries, error) {
	ps, skipped, err := features.PriceSeriesFromTable(t, ds.Name, region)
	if err != nil {
		return ps, err
	}
	if skipped > 0 {
		p.log.Debug("missing price cells skipped",
			applogger.String("dataset", ds.Name),
			applogger.String("region", region),
			applogger.Int("rows", skipped),
		)
	}
	return ps, nil
}

// Prices returns the cleaned monthly price series of one region.
func (p *VolatilityPipeline) Prices(ctx context.Context, dataset, region string) (models.PriceSeries, error) {
	ds, err := p.catalog.Region(dataset, region)
	if err != nil {
		return models.PriceSeries{}, err
	}
	t, _, err := p.priceTable(ctx, ds)
	if err != nil {
		return models.PriceSeries{}, err
	}
	return p.prices(t, ds, region)
}

// Returns returns the log-return series of one region.
func (p *VolatilityPipeline) Returns(ctx context.Context, dataset, region string) (models.ReturnSeries, error) {
	ps, err := p.Prices(ctx, dataset, region)
	if err != nil {
		return models.ReturnSeries{}, err
	}
	return features.LogReturns(ps)
}

// Volatility returns the fitted conditional volatility of one region. With
// refresh the memoized fit is discarded first.
func (p *VolatilityPipeline) Volatility(ctx context.Context, dataset, region string, refresh bool) (models.VolatilitySeries, error) {
	rs, err := p.Returns(ctx, dataset, region)
	if err != nil {
		return models.VolatilitySeries{}, err
	}
	return p.fit(ctx, rs, refresh, "")
}

// Realized returns the rolling sample volatility of one region's returns.
// A non-positive window falls back to the pipeline's realized window.
func (p *VolatilityPipeline) Realized(ctx context.Context, dataset, region string, window int) (*models.RollingSeries, error) {
	if window <= 0 {
		window = p.realizedWindow
	}
	rs, err := p.Returns(ctx, dataset, region)
	if err != nil {
		return nil, err
	}
	if rs.Len() < window {
		return nil, &models.InsufficientDataError{Region: region, Have: rs.Len(), Need: window}
	}
	return features.RollingVolatility(rs, window), nil
}

// Forecast aligns the named forecast source onto the region's volatility dates.
func (p *VolatilityPipeline) Forecast(ctx context.Context, dataset, region, source string) (models.AlignedForecast, error) {
	ds, err := p.catalog.Region(dataset, region)
	if err != nil {
		return models.AlignedForecast{}, err
	}
	src, ok := ds.Forecast(source)
	if !ok {
		return models.AlignedForecast{}, &models.DataAvailabilityError{
			Resource: fmt.Sprintf("forecast %q in dataset %q", source, dataset),
		}
	}
	vs, err := p.Volatility(ctx, dataset, region, false)
	if err != nil {
		return models.AlignedForecast{}, err
	}
	return p.align(ctx, vs, src)
}

func (p *VolatilityPipeline) align(ctx context.Context, vs models.VolatilitySeries, src models.ForecastSource) (models.AlignedForecast, error) {
	cols, err := p.forecasts.LoadForecasts(ctx, src)
	if err != nil {
		return models.AlignedForecast{}, err
	}
	vals, ok := cols[vs.Region]
	if !ok {
		return models.AlignedForecast{}, &models.DataAvailabilityError{
			Resource: fmt.Sprintf("forecast %q column %q", src.Name, vs.Region),
		}
	}
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.AlignedForecast{}, &models.DomainError{
				Region: vs.Region, Index: i, Value: v, Reason: fmt.Sprintf("forecast %q has a missing value", src.Name),
			}
		}
	}
	return reconcile.Align(vs, models.ForecastSeries{
		Name:   src.Name,
		Label:  src.Label,
		Color:  src.Color,
		Region: vs.Region,
		Values: vals,
	})
}

// Meteo returns the cleaned meteorological covariates of one region. Sources
// that fail are reported by name and do not hide the others.
func (p *VolatilityPipeline) Meteo(ctx context.Context, dataset, region string) ([]models.MeteoSeries, map[string]error, error) {
	ds, err := p.catalog.Region(dataset, region)
	if err != nil {
		return nil, nil, err
	}
	out, errs := p.meteo(ctx, ds, region)
	return out, errs, nil
}

func (p *VolatilityPipeline) meteo(ctx context.Context, ds models.Dataset, region string) ([]models.MeteoSeries, map[string]error) {
	var out []models.MeteoSeries
	errs := map[string]error{}
	window := ds.MeteoWindow
	if window.Start.IsZero() && window.End.IsZero() {
		window = cleaning.DefaultWindow
	}
	for _, src := range ds.Meteo {
		raw, err := p.tables.LoadTable(ctx, src.Table)
		if err != nil {
			errs[src.Name] = err
			continue
		}
		t, _ := cleaning.Clean(raw, []string{region}, window)
		ms, err := features.MeteoSeriesFromTable(t, src, region)
		if err != nil {
			errs[src.Name] = err
			continue
		}
		out = append(out, ms)
	}
	return out, errs
}

// Analyze runs every stage for one region. Only an unknown dataset or region
// is returned as an error; stage failures are recorded in the result.
func (p *VolatilityPipeline) Analyze(ctx context.Context, dataset, region string, refresh bool) (*models.RegionAnalysis, error) {
	ds, err := p.catalog.Region(dataset, region)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res := &models.RegionAnalysis{
		Dataset:   dataset,
		Region:    region,
		Timestamp: start.UTC(),
		Errors:    map[string]string{},
	}
	defer p.observe("analyze", start)

	meteo, merrs := p.meteo(ctx, ds, region)
	res.Meteo = meteo
	for name, err := range merrs {
		p.stageError(res, stageMeteo+name, err)
	}

	t, missing, err := p.priceTable(ctx, ds)
	if err != nil {
		p.stageError(res, StagePrices, err)
		return res.Done(), nil
	}
	for _, m := range missing {
		if m == region {
			res.Warnings = append(res.Warnings, fmt.Sprintf("region %q is not present in the price table", region))
		}
	}

	ps, err := p.prices(t, ds, region)
	if err != nil {
		p.stageError(res, StagePrices, err)
		return res.Done(), nil
	}
	res.Prices = &ps

	rs, err := features.LogReturns(ps)
	if err != nil {
		p.stageError(res, StageReturns, err)
		return res.Done(), nil
	}
	res.Returns = &rs
	if rv := features.RollingVolatility(rs, p.realizedWindow); rv != nil {
		res.Realized = rv
	} else {
		res.Warnings = append(res.Warnings, fmt.Sprintf("fewer than %d returns, no realized volatility baseline", p.realizedWindow))
	}

	vs, err := p.fit(ctx, rs, refresh, "")
	if err != nil {
		p.stageError(res, StageVolatility, err)
		return res.Done(), nil
	}
	res.Volatility = &vs
	if vs.Fit.Warning != "" {
		res.Warnings = append(res.Warnings, vs.Fit.Warning)
	}

	for _, src := range ds.Forecasts {
		af, err := p.align(ctx, vs, src)
		if err != nil {
			p.stageError(res, stageForecast+src.Name, err)
			continue
		}
		res.Forecasts = append(res.Forecasts, af)
	}
	return res.Done(), nil
}

// fit runs the memoized estimator and announces fresh fits.
func (p *VolatilityPipeline) fit(ctx context.Context, rs models.ReturnSeries, refresh bool, runID string) (models.VolatilitySeries, error) {
	if refresh {
		if err := p.fits.Invalidate(ctx, rs); err != nil {
			p.log.Warn("fit invalidate failed", applogger.String("region", rs.Region), applogger.Error(err))
		}
	}
	vs, _, err := p.fits.Fit(ctx, rs, func(ctx context.Context, vs models.VolatilitySeries, took time.Duration) {
		p.log.Info("volatility fitted",
			applogger.String("dataset", vs.Dataset),
			applogger.String("region", vs.Region),
			applogger.Bool("converged", vs.Fit.Converged),
			applogger.Float64("log_likelihood", vs.Fit.LogLikelihood),
			applogger.Int("iterations", vs.Fit.Iterations),
			applogger.Duration("duration_ms", took),
		)
		p.publish(ctx, vs, runID, took)
	})
	return vs, err
}

func (p *VolatilityPipeline) publish(ctx context.Context, vs models.VolatilitySeries, runID string, took time.Duration) {
	if p.publisher == nil && p.history == nil {
		return
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	ev := models.FitEvent{
		RunID:          runID,
		Dataset:        vs.Dataset,
		Region:         vs.Region,
		DatasetVersion: vs.Fit.DatasetVersion,
		Converged:      vs.Fit.Converged,
		LogLikelihood:  vs.Fit.LogLikelihood,
		Iterations:     vs.Fit.Iterations,
		Params:         vs.Fit.Params,
		DurationMillis: took.Milliseconds(),
		FittedAt:       time.Now().UTC(),
	}
	if n := len(vs.Values); n > 0 {
		ev.LastSigma = vs.Values[n-1]
	}
	if p.history != nil {
		if err := p.history.SaveFit(ctx, ev); err != nil {
			p.log.Warn("fit history save failed",
				applogger.String("dataset", vs.Dataset),
				applogger.String("region", vs.Region),
				applogger.Error(err),
			)
			p.recordError("history")
		}
	}
	if p.publisher != nil {
		if err := p.publisher.PublishFit(ctx, ev); err != nil {
			p.log.Warn("fit event publish failed",
				applogger.String("dataset", vs.Dataset),
				applogger.String("region", vs.Region),
				applogger.Error(err),
			)
			p.recordError("publish")
		}
	}
}

// History returns the most recent recorded fits of a whitelisted region.
func (p *VolatilityPipeline) History(ctx context.Context, dataset, region string, limit int) ([]models.FitEvent, error) {
	if _, err := p.catalog.Region(dataset, region); err != nil {
		return nil, err
	}
	if p.history == nil {
		return []models.FitEvent{}, nil
	}
	return p.history.RecentFits(ctx, dataset, region, limit)
}

func (p *VolatilityPipeline) stageError(res *models.RegionAnalysis, stage string, err error) {
	res.Errors[stage] = err.Error()
	p.recordError(ErrorKind(err))
	p.log.Warn("analysis stage failed",
		applogger.String("dataset", res.Dataset),
		applogger.String("region", res.Region),
		applogger.String("stage", stage),
		applogger.Error(err),
	)
}

func (p *VolatilityPipeline) recordError(kind string) {
	if p.metrics != nil {
		p.metrics.RecordError(kind)
	}
}

func (p *VolatilityPipeline) observe(op string, start time.Time) {
	if p.metrics != nil {
		p.metrics.RecordLatency(op, time.Since(start).Seconds())
	}
}

// ErrorKind classifies err by its typed cause for metrics and HTTP mapping.
func ErrorKind(err error) string {
	var (
		da *models.DataAvailabilityError
		de *models.DomainError
		ie *models.InsufficientDataError
		ce *models.ConvergenceError
		he *models.InsufficientHistoryError
	)
	switch {
	case errors.As(err, &da):
		return "data_availability"
	case errors.As(err, &de):
		return "domain"
	case errors.As(err, &ie):
		return "insufficient_data"
	case errors.As(err, &ce):
		return "convergence"
	case errors.As(err, &he):
		return "insufficient_history"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}
