package api

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "CropVol/internal/domain/models"
    svccache "CropVol/internal/service/cache"
    "CropVol/internal/service/ratelimit"
    "CropVol/internal/services/volatility"
    "CropVol/internal/usecase"
    pkgcache "CropVol/pkg/cache"
    xlogger "CropVol/pkg/logger"
)

type staticTables map[string]*models.Table

func (s staticTables) LoadTable(_ context.Context, src models.TableSource) (*models.Table, error) {
    if t, ok := s[src.Path]; ok {
        return t, nil
    }
    return nil, &models.DataAvailabilityError{Resource: src.Path}
}

type staticForecasts map[string]map[string][]float64

func (s staticForecasts) LoadForecasts(_ context.Context, src models.ForecastSource) (map[string][]float64, error) {
    if f, ok := s[src.Name]; ok {
        return f, nil
    }
    return nil, &models.DataAvailabilityError{Resource: src.Name}
}

type envelope struct {
    Status  int             `json:"status"`
    Message string          `json:"message"`
    Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) *echo.Echo {
    t.Helper()
    e := echo.New()
    NewVolatilityEchoHandler(xlogger.Nop(), testPipeline(t), limiter, nil).RegisterRoutes(e)
    return e
}

func testPipeline(t *testing.T, opts ...usecase.PipelineOption) *usecase.VolatilityPipeline {
    t.Helper()
    prices := &models.Table{DateColumn: "Price Date", Columns: []string{"Indore", "Dewas"}, Values: map[string][]float64{
        "Indore": {100, 110, 121, 109, 98, 92, 101},
        "Dewas":  {50, -1, 52, 51, 49, 48, 47},
    }}
    for i := 0; i < 7; i++ {
        prices.Dates = append(prices.Dates, time.Date(2020, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC))
    }
    ds := models.Dataset{
        Name:      "soybean-mp",
        Commodity: "soybean",
        Level:     "district",
        Regions:   []string{"Indore", "Dewas"},
        Price:     models.TableSource{Path: "prices.xlsx", DateColumn: "Price Date"},
        Forecasts: []models.ForecastSource{
            {Name: "lstm", Label: "LSTM", Color: "orange", Path: "lstm.csv"},
            {Name: "sarimax", Label: "SARIMAX", Color: "yellow", Path: "sarimax.csv"},
        },
    }
    store := pkgcache.NewMemoryCache()
    t.Cleanup(func() { _ = store.Close() })
    return usecase.NewVolatilityPipeline(
        usecase.NewCatalog([]models.Dataset{ds}),
        staticTables{"prices.xlsx": prices},
        staticForecasts{
            "lstm":    {"Indore": {0.1, 0.2}},
            "sarimax": {"Indore": {1, 2, 3, 4, 5, 6, 7, 8}},
        },
        svccache.NewFitMemo(volatility.New(), store),
        opts...,
    )
}

func get(t *testing.T, e *echo.Echo, target string) (*httptest.ResponseRecorder, envelope) {
    t.Helper()
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
    var env envelope
    if rec.Body.Len() > 0 {
        require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
    }
    return rec, env
}

func TestHealthAndDatasets(t *testing.T) {
    e := newTestServer(t, nil)

    rec, env := get(t, e, "/healthz")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, http.StatusOK, env.Status)
    assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))


    rec, env = get(t, e, "/api/datasets")
    require.Equal(t, http.StatusOK, rec.Code)
    var ds []datasetInfo
    require.NoError(t, json.Unmarshal(env.Data, &ds))
    require.Len(t, ds, 1)
    assert.Equal(t, "soybean-mp", ds[0].Name)
    assert.Equal(t, []string{"Indore", "Dewas"}, ds[0].Regions)
    assert.Equal(t, []string{"lstm", "sarimax"}, ds[0].Forecasts)
}

func TestVolatilityEndpoint(t *testing.T) {
    e := newTestServer(t, nil)

    rec, env := get(t, e, "/api/volatility?dataset=soybean-mp&region=Indore")
    require.Equal(t, http.StatusOK, rec.Code)
    var vs models.VolatilitySeries
    require.NoError(t, json.Unmarshal(env.Data, &vs))
    assert.Equal(t, "Indore", vs.Region)
    assert.NotEmpty(t, vs.Values)
    assert.Equal(t, len(vs.Dates), len(vs.Values))
    assert.Equal(t, volatility.ModelName, vs.Fit.Model)
}

func TestErrorMapping(t *testing.T) {
    e := newTestServer(t, nil)

    cases := []struct {
        name   string
        target string
        status int
        code   string
    }{
        {"missing region", "/api/analysis?dataset=soybean-mp", http.StatusBadRequest, "ERR_REQUIRED"},
        {"window too small", "/api/realized?dataset=soybean-mp&region=Indore&window=1", http.StatusBadRequest, "ERR_GTE"},
        {"unknown dataset", "/api/volatility?dataset=maize&region=Indore", http.StatusNotFound, "ERR_DATA_UNAVAILABLE"},
        {"unknown region", "/api/volatility?dataset=soybean-mp&region=Bhopal", http.StatusNotFound, "ERR_DATA_UNAVAILABLE"},
        {"non-positive price", "/api/volatility?dataset=soybean-mp&region=Dewas", http.StatusUnprocessableEntity, "ERR_DOMAIN"},
        {"forecast too long", "/api/forecast?dataset=soybean-mp&region=Indore&source=sarimax", http.StatusUnprocessableEntity, "ERR_INSUFFICIENT_HISTORY"},
        {"unknown forecast", "/api/forecast?dataset=soybean-mp&region=Indore&source=prophet", http.StatusNotFound, "ERR_DATA_UNAVAILABLE"},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            rec, env := get(t, e, tc.target)
            require.Equal(t, tc.status, rec.Code)
            assert.Equal(t, tc.status, env.Status)
            var errs []struct {
                Code string `json:"code"`
            }
            require.NoError(t, json.Unmarshal(env.Data, &errs))
            require.NotEmpty(t, errs)
            assert.Equal(t, tc.code, errs[0].Code)
        })
    }
}

func TestForecastDefaultSource(t *testing.T) {
    e := newTestServer(t, nil)

    rec, env := get(t, e, "/api/forecast?dataset=soybean-mp&region=Indore")
    require.Equal(t, http.StatusOK, rec.Code)
    var af models.AlignedForecast
    require.NoError(t, json.Unmarshal(env.Data, &af))
    assert.Equal(t, "lstm", af.Name)
    assert.Equal(t, []float64{0.1, 0.2}, af.Values)
    assert.Len(t, af.Dates, 2)
}

func TestReportAndCharts(t *testing.T) {
    e := newTestServer(t, nil)

    rec, env := get(t, e, "/api/report?dataset=soybean-mp")
    require.Equal(t, http.StatusOK, rec.Code)
    var rep models.DatasetReport
    require.NoError(t, json.Unmarshal(env.Data, &rep))
    require.Len(t, rep.Regions, 2)
    assert.Empty(t, rep.Regions[0].Error)
    assert.NotEmpty(t, rep.Regions[1].Error)

    rec, env = get(t, e, "/api/charts?dataset=soybean-mp&region=Indore")
    require.Equal(t, http.StatusOK, rec.Code)
    var charts []models.Chart
    require.NoError(t, json.Unmarshal(env.Data, &charts))
    assert.Equal(t, "price", charts[0].ID)
}

func TestRateLimit(t *testing.T) {
    e := newTestServer(t, ratelimit.New(0.001, 1))

    rec, _ := get(t, e, "/api/volatility?dataset=soybean-mp&region=Indore")
    assert.Equal(t, http.StatusOK, rec.Code)
    rec, _ = get(t, e, "/api/volatility?dataset=soybean-mp&region=Indore")
    assert.Equal(t, http.StatusTooManyRequests, rec.Code)

    // Metadata endpoints are not limited.
    rec, _ = get(t, e, "/api/datasets")
    assert.Equal(t, http.StatusOK, rec.Code)
}
