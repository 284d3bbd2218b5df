package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CropVol/internal/domain/models"
)

type countingTables struct{ calls atomic.Int32 }

func (c *countingTables) LoadTable(_ context.Context, src models.TableSource) (*models.Table, error) {
	c.calls.Add(1)
	return &models.Table{DateColumn: src.DateColumn, Values: map[string][]float64{}}, nil
}

type countingForecasts struct{ calls atomic.Int32 }

func (c *countingForecasts) LoadForecasts(context.Context, models.ForecastSource) (map[string][]float64, error) {
	c.calls.Add(1)
	return map[string][]float64{"Indore": {1, 2}}, nil
}

func TestCachingSource_TableKeyedByModTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	tables := &countingTables{}
	src := NewCachingSource(tables, &countingForecasts{}, time.Minute)
	ts := models.TableSource{Path: path, DateColumn: "Date"}

	_, err := src.LoadTable(context.Background(), ts)
	require.NoError(t, err)
	_, err = src.LoadTable(context.Background(), ts)
	require.NoError(t, err)
	assert.Equal(t, int32(1), tables.calls.Load())

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	_, err = src.LoadTable(context.Background(), ts)
	require.NoError(t, err)
	assert.Equal(t, int32(2), tables.calls.Load())
	assert.Equal(t, 1, src.cache.len())
}

func TestCachingSource_MissingFile(t *testing.T) {
	src := NewCachingSource(&countingTables{}, &countingForecasts{}, time.Minute)
	_, err := src.LoadTable(context.Background(), models.TableSource{Path: filepath.Join(t.TempDir(), "none.xlsx")})
	var de *models.DataAvailabilityError
	assert.ErrorAs(t, err, &de)
}

func TestCachingSource_URLForecastExpires(t *testing.T) {
	fc := &countingForecasts{}
	src := NewCachingSource(&countingTables{}, fc, 30*time.Millisecond)
	fs := models.ForecastSource{Name: "lstm", URL: "http://model/forecast"}

	_, err := src.LoadForecasts(context.Background(), fs)
	require.NoError(t, err)
	_, err = src.LoadForecasts(context.Background(), fs)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fc.calls.Load())

	time.Sleep(50 * time.Millisecond)
	_, err = src.LoadForecasts(context.Background(), fs)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fc.calls.Load())
}
