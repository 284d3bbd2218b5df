package cleaning

import (
	"sort"
	"time"

	"CropVol/internal/domain/models"
	"CropVol/pkg/util"
)

// DefaultWindow is the closed interval meteorological covariates are restricted to.
var DefaultWindow = models.DateWindow{
	Start: time.Date(2012, time.February, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, time.October, 31, 0, 0, 0, 0, time.UTC),
}

// Clean restricts t to the whitelisted region columns and to rows dated inside window.
// Columns keep whitelist order; rows are sorted ascending by date and dates are
// normalized to midnight UTC. The second result lists whitelisted regions that
// were absent from t. The input table is not modified.
func Clean(t *models.Table, regions []string, window models.DateWindow) (*models.Table, []string) {
	out := &models.Table{
		DateColumn: t.DateColumn,
		Values:     make(map[string][]float64),
	}

	var missing []string
	seen := make(map[string]bool, len(regions))
	for _, r := range regions {
		if seen[r] {
			continue
		}
		seen[r] = true
		if !t.Has(r) {
			missing = append(missing, r)
			continue
		}
		out.Columns = append(out.Columns, r)
	}

	rows := make([]int, 0, len(t.Dates))
	for i, d := range t.Dates {
		if d.IsZero() {
			continue
		}
		if window.Contains(util.Midnight(d)) {
			rows = append(rows, i)
		}
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return t.Dates[rows[a]].Before(t.Dates[rows[b]])
	})

	out.Dates = make([]time.Time, len(rows))
	for j, i := range rows {
		out.Dates[j] = util.Midnight(t.Dates[i])
	}
	for _, col := range out.Columns {
		src := t.Values[col]
		vals := make([]float64, len(rows))
		for j, i := range rows {
			vals[j] = src[i]
		}
		out.Values[col] = vals
	}
	return out, missing
}
