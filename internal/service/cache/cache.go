package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"CropVol/internal/domain/models"
	domrepo "CropVol/internal/domain/repository"
)

// CachingSource keeps parsed workbooks and forecast tables in memory. File
// sources are keyed by path and modification time, so an edited file is
// re-read on the next request; URL sources expire after ttl.
// Returned tables are shared and must not be mutated.
type CachingSource struct {
	tables    domrepo.TableSource
	forecasts domrepo.ForecastSource
	cache     *versionedStore
	ttl       time.Duration
}

func NewCachingSource(tables domrepo.TableSource, forecasts domrepo.ForecastSource, ttl time.Duration) *CachingSource {
	return &CachingSource{tables: tables, forecasts: forecasts, cache: newVersionedStore(), ttl: ttl}
}

func (s *CachingSource) LoadTable(ctx context.Context, src models.TableSource) (*models.Table, error) {
	source := "table:" + src.Path + "#" + src.Sheet
	version, err := fileVersion(src.Path)
	if err != nil {
		return nil, &models.DataAvailabilityError{Resource: src.Path, Err: err}
	}
	if v, ok := s.cache.get(source, version); ok {
		return v.(*models.Table), nil
	}
	t, err := s.tables.LoadTable(ctx, src)
	if err != nil {
		return nil, err
	}
	s.cache.put(source, version, t, s.ttl)
	return t, nil
}

func (s *CachingSource) LoadForecasts(ctx context.Context, src models.ForecastSource) (map[string][]float64, error) {
	source := "forecast:" + src.Name
	version := src.URL
	if src.Path != "" {
		v, err := fileVersion(src.Path)
		if err != nil {
			return nil, &models.DataAvailabilityError{Resource: src.Path, Err: err}
		}
		version = src.Path + "@" + v
	}
	if v, ok := s.cache.get(source, version); ok {
		return v.(map[string][]float64), nil
	}
	cols, err := s.forecasts.LoadForecasts(ctx, src)
	if err != nil {
		return nil, err
	}
	s.cache.put(source, version, cols, s.ttl)
	return cols, nil
}

// fileVersion identifies a file revision by modification time and size.
func fileVersion(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%d", fi.ModTime().UnixNano(), fi.Size()), nil
}

var (
	_ domrepo.TableSource    = (*CachingSource)(nil)
	_ domrepo.ForecastSource = (*CachingSource)(nil)
)
