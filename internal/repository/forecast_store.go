package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"CropVol/internal/domain/models"
	domrepo "CropVol/internal/domain/repository"
	xhttp "CropVol/pkg/http"
	"CropVol/pkg/util"
)

// CSVForecastStore reads forecast tables whose header row names the regions and
// whose rows are forecast steps in order. There is no date column.
type CSVForecastStore struct{}

func NewCSVForecastStore() *CSVForecastStore { return &CSVForecastStore{} }

func (s *CSVForecastStore) LoadForecasts(ctx context.Context, src models.ForecastSource) (map[string][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(src.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &models.DataAvailabilityError{Resource: src.Path, Err: err}
		}
		return nil, fmt.Errorf("open forecast %s: %w", src.Path, err)
	}
	defer f.Close()
	return parseForecastCSV(f, src.Path)
}

func parseForecastCSV(r io.Reader, name string) (map[string][]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &models.DataAvailabilityError{Resource: name + ": empty forecast file"}
		}
		return nil, fmt.Errorf("read forecast header %s: %w", name, err)
	}
	cols := make([]string, len(header))
	out := make(map[string][]float64, len(header))
	for i, h := range header {
		cols[i] = util.NormalizeHeader(h)
		if cols[i] != "" {
			out[cols[i]] = nil
		}
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read forecast %s: %w", name, err)
		}
		for i, col := range cols {
			if col == "" {
				continue
			}
			v := math.NaN()
			if i < len(rec) {
				v, _ = util.ParseFloat(rec[i])
			}
			out[col] = append(out[col], v)
		}
	}
	for col, vals := range out {
		out[col] = trimTrailingNaN(vals)
	}
	return out, nil
}

// trimTrailingNaN drops blank cells after a column's last value; shorter columns
// are padded that way when regions forecast different horizons.
func trimTrailingNaN(vals []float64) []float64 {
	n := len(vals)
	for n > 0 && math.IsNaN(vals[n-1]) {
		n--
	}
	return vals[:n]
}

// HTTPForecastStore fetches forecasts from a model service answering
// GET <url> with {"columns": {"<region>": [...]}}.
type HTTPForecastStore struct {
	client *xhttp.Client
}

type forecastResponse struct {
	Columns map[string][]*float64 `json:"columns"`
}

func NewHTTPForecastStore(timeout time.Duration, attempts int) *HTTPForecastStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPForecastStore{client: xhttp.NewClient(
		xhttp.WithTimeout(timeout),
		xhttp.WithRetries(attempts, 50*time.Millisecond),
	)}
}

func (s *HTTPForecastStore) LoadForecasts(ctx context.Context, src models.ForecastSource) (map[string][]float64, error) {
	var resp forecastResponse
	if err := s.client.GetJSON(ctx, &xhttp.RequestOptions{URL: src.URL}, &resp); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &models.DataAvailabilityError{Resource: src.URL, Err: err}
	}

	out := make(map[string][]float64, len(resp.Columns))
	for col, vals := range resp.Columns {
		conv := make([]float64, len(vals))
		for i, v := range vals {
			if v == nil {
				conv[i] = math.NaN()
				continue
			}
			conv[i] = *v
		}
		out[util.NormalizeHeader(col)] = trimTrailingNaN(conv)
	}
	return out, nil
}

// ForecastStore dispatches on the source: a URL goes to the model service,
// a path to the CSV reader.
type ForecastStore struct {
	csv  domrepo.ForecastSource
	http domrepo.ForecastSource
}

func NewForecastStore(csvStore *CSVForecastStore, httpStore *HTTPForecastStore) *ForecastStore {
	return &ForecastStore{csv: csvStore, http: httpStore}
}

func (s *ForecastStore) LoadForecasts(ctx context.Context, src models.ForecastSource) (map[string][]float64, error) {
	switch {
	case src.URL != "":
		return s.http.LoadForecasts(ctx, src)
	case src.Path != "":
		return s.csv.LoadForecasts(ctx, src)
	default:
		return nil, &models.DataAvailabilityError{Resource: fmt.Sprintf("forecast %q: no path or url", src.Name)}
	}
}

var (
	_ domrepo.ForecastSource = (*CSVForecastStore)(nil)
	_ domrepo.ForecastSource = (*HTTPForecastStore)(nil)
	_ domrepo.ForecastSource = (*ForecastStore)(nil)
)
