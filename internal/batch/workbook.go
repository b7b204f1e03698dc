package batch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var errMissingValue = errors.New("missing value")

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
	"1/2/2006",
	"02-01-2006",
}

// sheet is the first worksheet of a workbook, with its header row indexed by
// lower-cased column name.
type sheet struct {
	file    *excelize.File
	columns map[string]int
	rows    [][]string
}

func openSheet(path string) (*sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to read rows from %s: %w", path, err)
	}
	if len(rows) == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("workbook %s has no header row", path)
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columns[normalizeHeader(name)] = i
	}
	return &sheet{file: f, columns: columns, rows: rows[1:]}, nil
}

func (s *sheet) Close() error {
	return s.file.Close()
}

func (s *sheet) require(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, ok := s.columns[normalizeHeader(name)]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

func normalizeHeader(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// row reads cells by column name. GetRows drops trailing empty cells, so
// short rows read as blank.
type row struct {
	sheet  *sheet
	cells  []string
	number int
}

func (r row) text(column string) string {
	idx, ok := r.sheet.columns[normalizeHeader(column)]
	if !ok || idx >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[idx])
}

func (r row) isBlank() bool {
	for _, c := range r.cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (r row) decimalCell(column string) (decimal.Decimal, error) {
	raw := r.text(column)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%s: %w", column, errMissingValue)
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid number %q", column, raw)
	}
	return d, nil
}

func (r row) decimalCellOr(column string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if r.text(column) == "" {
		return fallback, nil
	}
	return r.decimalCell(column)
}

func (r row) int64Cell(column string) (int64, error) {
	d, err := r.decimalCell(column)
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("%s: %s is not a whole number", column, d)
	}
	return d.IntPart(), nil
}

func (r row) intCellOr(column string, fallback int) (int, error) {
	if r.text(column) == "" {
		return fallback, nil
	}
	v, err := r.int64Cell(column)
	return int(v), err
}

// dateCell accepts Excel serial dates and the common text layouts.
func (r row) dateCell(column string) (time.Time, error) {
	raw := r.text(column)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s: %w", column, errMissingValue)
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: invalid serial date %q: %w", column, raw, err)
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%s: unrecognised date %q", column, raw)
}
