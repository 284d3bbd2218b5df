package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"CropVol/internal/domain/models"
	"CropVol/internal/services/features"
	applogger "CropVol/pkg/logger"
)

// AnalyzeAll fits every whitelisted region of dataset on a bounded worker pool.
// The price table is read once; a failing region is reported in its row and
// never cancels the others.
func (p *VolatilityPipeline) AnalyzeAll(ctx context.Context, dataset string, refresh bool) (*models.DatasetReport, error) {
	ds, err := p.catalog.Get(dataset)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	defer p.observe("analyze_all", start)

	report := &models.DatasetReport{
		RunID:     uuid.NewString(),
		Dataset:   dataset,
		Timestamp: start.UTC(),
	}

	t, missing, err := p.priceTable(ctx, ds)
	if err != nil {
		return nil, err
	}
	for _, m := range missing {
		report.Warnings = append(report.Warnings, fmt.Sprintf("region %q is not present in the price table", m))
	}

	rows := make([]models.RegionFit, len(ds.Regions))
	var mu sync.Mutex
	failed := 0

	g := new(errgroup.Group)
	g.SetLimit(p.workers)
	for i, region := range ds.Regions {
		g.Go(func() error {
			row := p.fitRegion(ctx, t, ds, region, refresh, report.RunID)
			mu.Lock()
			rows[i] = row
			if row.Error != "" {
				failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report.Regions = rows
	report.Elapsed = time.Since(start)
	p.log.Info("dataset analyzed",
		applogger.String("run_id", report.RunID),
		applogger.String("dataset", dataset),
		applogger.Int("regions", len(rows)),
		applogger.Int("failed", failed),
		applogger.Duration("duration_ms", report.Elapsed),
	)
	return report, nil
}

func (p *VolatilityPipeline) fitRegion(ctx context.Context, t *models.Table, ds models.Dataset, region string, refresh bool, runID string) models.RegionFit {
	row := models.RegionFit{Region: region}
	if err := ctx.Err(); err != nil {
		row.Error = err.Error()
		return row
	}
	ps, err := p.prices(t, ds, region)
	if err != nil {
		p.recordError(ErrorKind(err))
		row.Error = err.Error()
		return row
	}
	rs, err := features.LogReturns(ps)
	if err != nil {
		p.recordError(ErrorKind(err))
		row.Error = err.Error()
		return row
	}
	vs, err := p.fit(ctx, rs, refresh, runID)
	if vs.Fit.Model != "" {
		fit := vs.Fit
		row.Fit = &fit
	}
	if err != nil {
		p.recordError(ErrorKind(err))
		row.Error = err.Error()
		return row
	}
	if n := len(vs.Values); n > 0 {
		row.LastSigma = vs.Values[n-1]
	}
	return row
}
