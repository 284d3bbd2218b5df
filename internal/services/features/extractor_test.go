package features

import (
    "errors"
    "math"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "CropVol/internal/domain/models"
)

func monthly(values ...float64) models.PriceSeries {
    ps := models.PriceSeries{Dataset: "test", Region: "Indore", Values: values}
    start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
    for i := range values {
        ps.Dates = append(ps.Dates, start.AddDate(0, i, 0))
    }
    return ps
}

func TestLogReturns_Length(t *testing.T) {
    tests := []struct {
        name   string
        prices []float64
        want   int
    }{
        {"minimum", []float64{10, 11, 12, 13}, 1},
        {"seven points", []float64{100, 110, 121, 109, 98, 92, 101}, 4},
        {"twelve points", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, 9},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            rs, err := LogReturns(monthly(tt.prices...))
            require.NoError(t, err)
            assert.Len(t, rs.Values, tt.want)
            assert.Len(t, rs.Dates, tt.want)
        })
    }
}

func TestLogReturns_ReconstructsPriceRatios(t *testing.T) {
    prices := []float64{100, 110, 121, 109, 98, 92, 101}
    rs, err := LogReturns(monthly(prices...))
    require.NoError(t, err)

    cum := 0.0
    for i, r := range rs.Values {
        cum += r
        assert.InDelta(t, prices[i+1]/prices[0], math.Exp(cum), 1e-12)
    }
}

func TestLogReturns_DatesAreThoseOfLaterPrice(t *testing.T) {
    ps := monthly(100, 110, 121, 109, 98)
    rs, err := LogReturns(ps)
    require.NoError(t, err)
    assert.Equal(t, ps.Dates[1:3], rs.Dates)
}

func TestLogReturns_ScaleInvariant(t *testing.T) {
    base := []float64{3200, 3350, 3100, 2980, 3400, 3600}
    scaled := make([]float64, len(base))
    for i, v := range base {
        scaled[i] = v * 7.5
    }
    a, err := LogReturns(monthly(base...))
    require.NoError(t, err)
    b, err := LogReturns(monthly(scaled...))
    require.NoError(t, err)
    assert.InDeltaSlice(t, a.Values, b.Values, 1e-12)
}

func TestLogReturns_Errors(t *testing.T) {
    _, err := LogReturns(monthly(100, 0, 120, 130, 140))
    var de *models.DomainError
    require.True(t, errors.As(err, &de))
    assert.Equal(t, 1, de.Index)

    _, err = LogReturns(monthly(100, -5, 120, 130))
    assert.True(t, errors.As(err, &de))

    _, err = LogReturns(monthly(100, math.NaN(), 120, 130))
    assert.True(t, errors.As(err, &de))

    _, err = LogReturns(monthly(100, 110, 120))
    var ie *models.InsufficientDataError
    require.True(t, errors.As(err, &ie))
    assert.Equal(t, 3, ie.Have)
    assert.Equal(t, 4, ie.Need)
}

func TestPriceSeriesFromTable(t *testing.T) {
    d := func(m time.Month) time.Time { return time.Date(2021, m, 1, 0, 0, 0, 0, time.UTC) }
    tbl := &models.Table{
        Dates:   []time.Time{d(1), d(2), d(3)},
        Columns: []string{"Sagar"},
        Values:  map[string][]float64{"Sagar": {4100, math.NaN(), 4300}},
    }

    ps, skipped, err := PriceSeriesFromTable(tbl, "soybean-mp", "Sagar")
    require.NoError(t, err)
    assert.Equal(t, 1, skipped)
    assert.Equal(t, []float64{4100, 4300}, ps.Values)
    assert.Equal(t, []time.Time{d(1), d(3)}, ps.Dates)

    _, _, err = PriceSeriesFromTable(tbl, "soybean-mp", "Guna")
    var dae *models.DataAvailabilityError
    assert.True(t, errors.As(err, &dae))
}

func TestRealizedVolatility(t *testing.T) {
    rets := []float64{0.01, -0.01, 0.01, -0.01, 0.02}
    out := RealizedVolatility(rets, 4)
    require.Len(t, out, 5)
    assert.True(t, math.IsNaN(out[0]))
    assert.True(t, math.IsNaN(out[2]))
    assert.InDelta(t, math.Sqrt(0.0004/3), out[3], 1e-12)

    rs := models.ReturnSeries{Values: rets, Dates: make([]time.Time, len(rets))}
    roll := RollingVolatility(rs, 4)
    require.NotNil(t, roll)
    assert.Len(t, roll.Values, 2)
    assert.Nil(t, RollingVolatility(rs, 10))
}
