package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"CropVol/internal/domain/models"
	domrepo "CropVol/internal/domain/repository"
	domsvc "CropVol/internal/domain/service"
	pkgcache "CropVol/pkg/cache"
	applogger "CropVol/pkg/logger"
)

const fitKeyPrefix = "fit"

// FitMemo memoizes EGARCH fits by (dataset, region, dataset version), where the
// version is a fingerprint of the return series. Concurrent requests for the same
// key share one fit; failed fits are never stored.
type FitMemo struct {
	estimator domsvc.VolatilityEstimator
	store     pkgcache.Service
	metrics   domrepo.Metrics
	log       *applogger.Logger
	ttl       time.Duration
	timeout   time.Duration
	group     singleflight.Group
}

type FitMemoOption func(*FitMemo)

// WithFitTTL sets how long fitted series stay in the store. Zero keeps them until evicted.
func WithFitTTL(ttl time.Duration) FitMemoOption {
	return func(m *FitMemo) { m.ttl = ttl }
}

// WithFitTimeout bounds a single fit independently of the caller that started it.
func WithFitTimeout(d time.Duration) FitMemoOption {
	return func(m *FitMemo) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func WithFitMetrics(mx domrepo.Metrics) FitMemoOption {
	return func(m *FitMemo) { m.metrics = mx }
}

func WithFitLogger(l *applogger.Logger) FitMemoOption {
	return func(m *FitMemo) { m.log = l }
}

func NewFitMemo(est domsvc.VolatilityEstimator, store pkgcache.Service, opts ...FitMemoOption) *FitMemo {
	m := &FitMemo{
		estimator: est,
		store:     store,
		timeout:   time.Minute,
		ttl:       24 * time.Hour,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Version returns the dataset version used to key fits of rs.
func Version(rs models.ReturnSeries) string {
	return pkgcache.Fingerprint(rs.Dates, rs.Values)
}

func fitKey(rs models.ReturnSeries, version string) string {
	return pkgcache.GenerateKeyWithParams(fitKeyPrefix, rs.Dataset, rs.Region, version)
}

// Fit returns the memoized volatility series for rs, fitting it on a miss.
// onFresh, when set, runs exactly once per successful fit even if every caller
// has gone away. The boolean is true for exactly one receiver of a fresh fit.
func (m *FitMemo) Fit(ctx context.Context, rs models.ReturnSeries, onFresh domsvc.FreshFunc) (models.VolatilitySeries, bool, error) {
	version := Version(rs)
	key := fitKey(rs, version)

	var cached models.VolatilitySeries
	if err := m.store.Get(ctx, key, &cached); err == nil {
		m.record("hit")
		return cached, false, nil
	} else if !errors.Is(err, pkgcache.ErrCacheMiss) && m.log != nil {
		m.log.Warn("fit cache read failed", applogger.String("key", key), applogger.Error(err))
	}
	m.record("miss")

	ch := m.group.DoChan(key, func() (interface{}, error) {
		fitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()

		start := time.Now()
		vs, err := m.estimator.Fit(fitCtx, rs)
		took := time.Since(start)
		vs.Fit.DatasetVersion = version
		if m.metrics != nil {
			m.metrics.RecordFit(rs.Dataset, fitOutcome(vs, err), took.Seconds())
		}
		if err != nil {
			var ce *models.ConvergenceError
			if errors.As(err, &ce) {
				return &fitResult{vs: vs}, err
			}
			return nil, err
		}
		if serr := m.store.Set(fitCtx, key, vs, m.ttl); serr != nil && m.log != nil {
			m.log.Warn("fit cache write failed", applogger.String("key", key), applogger.Error(serr))
		}
		if onFresh != nil {
			onFresh(fitCtx, vs, took)
		}
		return &fitResult{vs: vs}, nil
	})

	select {
	case <-ctx.Done():
		return models.VolatilitySeries{}, false, fmt.Errorf("fit %s/%s: %w", rs.Dataset, rs.Region, ctx.Err())
	case res := <-ch:
		r, ok := res.Val.(*fitResult)
		if !ok {
			return models.VolatilitySeries{}, false, res.Err
		}
		fresh := res.Err == nil && r.claimed.CompareAndSwap(false, true)
		return r.vs, fresh, res.Err
	}
}

// Invalidate drops the memoized fit for rs so the next call refits.
func (m *FitMemo) Invalidate(ctx context.Context, rs models.ReturnSeries) error {
	return m.store.Delete(ctx, fitKey(rs, Version(rs)))
}

func (m *FitMemo) record(result string) {
	if m.metrics != nil {
		m.metrics.RecordCache(result)
	}
}

// fitResult is shared by every receiver of one flight; the first to claim it
// reports the fit as fresh.
type fitResult struct {
	vs      models.VolatilitySeries
	claimed atomic.Bool
}

func fitOutcome(vs models.VolatilitySeries, err error) string {
	switch {
	case err != nil && !vs.Fit.Converged && vs.Fit.Status != "":
		return "not_converged"
	case err != nil:
		return "error"
	case !vs.Fit.Converged:
		return "not_converged"
	default:
		return "ok"
	}
}
