package repository

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CropVol/internal/domain/models"
)

func TestParseForecastCSV(t *testing.T) {
	in := "Indore, Ujjain\n4100,3900\n,3950\n4200,\n"
	got, err := parseForecastCSV(strings.NewReader(in), "lstm.csv")
	require.NoError(t, err)

	require.Len(t, got["Indore"], 3)
	assert.Equal(t, 4100.0, got["Indore"][0])
	assert.True(t, math.IsNaN(got["Indore"][1]))
	assert.Equal(t, 4200.0, got["Indore"][2])
	assert.Equal(t, []float64{3900, 3950}, got["Ujjain"])
}

func TestParseForecastCSV_Empty(t *testing.T) {
	_, err := parseForecastCSV(strings.NewReader(""), "empty.csv")
	var de *models.DataAvailabilityError
	assert.True(t, errors.As(err, &de))
}

func TestCSVForecastStore_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lstm.csv")
	require.NoError(t, os.WriteFile(path, []byte("Bihar\n1.5\n2.5\n"), 0o644))

	got, err := NewCSVForecastStore().LoadForecasts(context.Background(), models.ForecastSource{Name: "lstm", Path: path})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5}, got["Bihar"])

	_, err = NewCSVForecastStore().LoadForecasts(context.Background(), models.ForecastSource{Path: path + ".missing"})
	var de *models.DataAvailabilityError
	assert.True(t, errors.As(err, &de))
}

func TestHTTPForecastStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"columns":{"Indore":[0.1,null,0.3,null],"Dewas":[0.2]}}`))
	}))
	defer srv.Close()

	got, err := NewHTTPForecastStore(time.Second, 1).LoadForecasts(context.Background(), models.ForecastSource{URL: srv.URL})
	require.NoError(t, err)
	require.Len(t, got["Indore"], 3)
	assert.Equal(t, 0.1, got["Indore"][0])
	assert.True(t, math.IsNaN(got["Indore"][1]))
	assert.Equal(t, []float64{0.2}, got["Dewas"])
}

func TestHTTPForecastStore_Failure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPForecastStore(time.Second, 2).LoadForecasts(context.Background(), models.ForecastSource{URL: srv.URL})
	var de *models.DataAvailabilityError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 2, calls)
}

func TestForecastStore_Dispatch(t *testing.T) {
	store := NewForecastStore(NewCSVForecastStore(), NewHTTPForecastStore(time.Second, 1))
	_, err := store.LoadForecasts(context.Background(), models.ForecastSource{Name: "none"})
	var de *models.DataAvailabilityError
	assert.True(t, errors.As(err, &de))
}
