package features

import (
    "fmt"
    "math"
    "time"

    "CropVol/internal/domain/models"
)

// ProvisionalTail is the number of trailing returns dropped because the
// most recent periods are still provisionally reported.
const ProvisionalTail = 2

// MinPrices is the shortest price series that yields a non-empty return series.
const MinPrices = ProvisionalTail + 2

// LogReturns computes r_i = ln(p_i) - ln(p_{i-1}) for i = 1..N-1 and drops the
// last ProvisionalTail values, giving N-3 returns dated by p_i.
func LogReturns(p models.PriceSeries) (models.ReturnSeries, error) {
    n := len(p.Values)
    if n < MinPrices {
        return models.ReturnSeries{}, &models.InsufficientDataError{Region: p.Region, Have: n, Need: MinPrices}
    }
    if len(p.Dates) != n {
        return models.ReturnSeries{}, fmt.Errorf("price series %q: %d dates for %d values", p.Region, len(p.Dates), n)
    }
    for i, v := range p.Values {
        if !(v > 0) || math.IsInf(v, 0) {
            return models.ReturnSeries{}, &models.DomainError{
                Region: p.Region,
                Index:  i,
                Value:  v,
                Reason: "price level must be strictly positive and finite",
            }
        }
    }

    m := n - 1 - ProvisionalTail
    out := models.ReturnSeries{
        Dataset: p.Dataset,
        Region:  p.Region,
        Dates:   make([]time.Time, m),
        Values:  make([]float64, m),
    }
    for i := 1; i <= m; i++ {
        out.Values[i-1] = math.Log(p.Values[i]) - math.Log(p.Values[i-1])
        out.Dates[i-1] = p.Dates[i]
    }
    return out, nil
}

// PriceSeriesFromTable extracts one region column, skipping rows whose cell is
// missing. The second result is the number of rows skipped.
func PriceSeriesFromTable(t *models.Table, dataset, region string) (models.PriceSeries, int, error) {
    col, ok := t.Values[region]
    if !ok {
        return models.PriceSeries{}, 0, &models.DataAvailabilityError{Resource: fmt.Sprintf("price column %q", region)}
    }
    ps := models.PriceSeries{Dataset: dataset, Region: region}
    skipped := 0
    for i, v := range col {
        if math.IsNaN(v) {
            skipped++
            continue
        }
        ps.Dates = append(ps.Dates, t.Dates[i])
        ps.Values = append(ps.Values, v)
    }
    return ps, skipped, nil
}

// MeteoSeriesFromTable extracts a covariate column the same way, dropping missing cells.
func MeteoSeriesFromTable(t *models.Table, src models.MeteoSource, region string) (models.MeteoSeries, error) {
    col, ok := t.Values[region]
    if !ok {
        return models.MeteoSeries{}, &models.DataAvailabilityError{Resource: fmt.Sprintf("%s column %q", src.Name, region)}
    }
    ms := models.MeteoSeries{Name: src.Name, Label: src.Label, Unit: src.Unit, Region: region}
    for i, v := range col {
        if math.IsNaN(v) {
            continue
        }
        ms.Dates = append(ms.Dates, t.Dates[i])
        ms.Values = append(ms.Values, v)
    }
    return ms, nil
}

// RealizedVolatility computes the rolling sample standard deviation of returns over
// window observations. Entries before the first full window are NaN.
func RealizedVolatility(logReturns []float64, window int) []float64 {
    out := make([]float64, len(logReturns))
    for i := range out {
        out[i] = math.NaN()
    }
    if window <= 1 || len(logReturns) < window {
        return out
    }
    sum := 0.0
    sum2 := 0.0
    for i, r := range logReturns {
        sum += r
        sum2 += r * r
        if i >= window {
            old := logReturns[i-window]
            sum -= old
            sum2 -= old * old
        }
        if i < window-1 {
            continue
        }
        n := float64(window)
        mean := sum / n
        variance := (sum2 - n*mean*mean) / (n - 1)
        if variance < 0 {
            variance = 0
        }
        out[i] = math.Sqrt(variance)
    }
    return out
}

// RollingVolatility applies RealizedVolatility to a return series and keeps only
// the dates with a full window. It returns nil when no window fits.
func RollingVolatility(rs models.ReturnSeries, window int) *models.RollingSeries {
    vals := RealizedVolatility(rs.Values, window)
    out := &models.RollingSeries{Window: window}
    for i, v := range vals {
        if math.IsNaN(v) {
            continue
        }
        out.Dates = append(out.Dates, rs.Dates[i])
        out.Values = append(out.Values, v)
    }
    if len(out.Values) == 0 {
        return nil
    }
    return out
}
