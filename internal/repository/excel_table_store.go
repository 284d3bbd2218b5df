package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"CropVol/internal/domain/models"
	domrepo "CropVol/internal/domain/repository"
	applogger "CropVol/pkg/logger"
	"CropVol/pkg/util"
)

// headerScanRows bounds how far down a sheet the header row is searched for.
const headerScanRows = 10

// Serial day numbers outside this range are not treated as Excel dates.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// ExcelTableStore reads wide date-indexed tables from .xlsx workbooks.
type ExcelTableStore struct {
	log *applogger.Logger
}

func NewExcelTableStore(log *applogger.Logger) *ExcelTableStore {
	if log == nil {
		log = applogger.Nop()
	}
	return &ExcelTableStore{log: log}
}

// LoadTable reads src.Sheet (the first sheet when empty). The header is the first
// row, within the first few, that contains src.DateColumn. Rows whose date cell
// cannot be parsed are skipped; unparseable value cells become NaN.
func (s *ExcelTableStore) LoadTable(ctx context.Context, src models.TableSource) (*models.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(src.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &models.DataAvailabilityError{Resource: src.Path, Err: err}
		}
		return nil, fmt.Errorf("open workbook %s: %w", src.Path, err)
	}
	defer f.Close()

	sheet := src.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &models.DataAvailabilityError{Resource: src.Path + ": no sheets"}
		}
		sheet = sheets[0]
	} else if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return nil, &models.DataAvailabilityError{Resource: fmt.Sprintf("%s: sheet %q", src.Path, sheet)}
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, src.Path, err)
	}

	headerRow, dateIdx := findHeader(rows, src.DateColumn)
	if headerRow < 0 {
		return nil, &models.DataAvailabilityError{
			Resource: fmt.Sprintf("%s: date column %q", src.Path, src.DateColumn),
		}
	}

	header := rows[headerRow]
	t := &models.Table{DateColumn: src.DateColumn, Values: make(map[string][]float64)}
	colIdx := make([]int, 0, len(header))
	for i, h := range header {
		name := util.NormalizeHeader(h)
		if i == dateIdx || name == "" || t.Has(name) {
			continue
		}
		t.Columns = append(t.Columns, name)
		t.Values[name] = nil
		colIdx = append(colIdx, i)
	}

	skipped := 0
	for _, row := range rows[headerRow+1:] {
		if dateIdx >= len(row) {
			skipped++
			continue
		}
		d, ok := parseDateCell(row[dateIdx])
		if !ok {
			skipped++
			continue
		}
		t.Dates = append(t.Dates, d)
		for j, name := range t.Columns {
			v := math.NaN()
			if i := colIdx[j]; i < len(row) {
				v, _ = util.ParseFloat(row[i])
			}
			t.Values[name] = append(t.Values[name], v)
		}
	}

	s.log.Debug("workbook loaded",
		applogger.String("path", src.Path),
		applogger.String("sheet", sheet),
		applogger.Int("rows", t.Len()),
		applogger.Int("columns", len(t.Columns)),
		applogger.Int("skipped_rows", skipped),
	)
	return t, nil
}

func findHeader(rows [][]string, dateColumn string) (int, int) {
	want := strings.ToLower(util.NormalizeHeader(dateColumn))
	for r := 0; r < len(rows) && r < headerScanRows; r++ {
		for c, cell := range rows[r] {
			if strings.ToLower(util.NormalizeHeader(cell)) == want {
				return r, c
			}
		}
	}
	return -1, -1
}

// parseDateCell accepts Excel serial day numbers as well as textual dates.
func parseDateCell(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v < minExcelSerial || v > maxExcelSerial {
			return time.Time{}, false
		}
		d, err := excelize.ExcelDateToTime(v, false)
		if err != nil {
			return time.Time{}, false
		}
		return util.Midnight(d), true
	}
	return util.ParseDate(s)
}

var _ domrepo.TableSource = (*ExcelTableStore)(nil)
