package drive

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/xuri/excelize/v2"
)

// RowError reports a sheet row that could not be turned into an override.
type RowError struct {
	Row    int    `json:"row"`
	Symbol string `json:"symbol,omitempty"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

type periodColumn int

const (
	colSymbol periodColumn = iota
	colLeadTime
	colFrequency
	colOptimalQty
	colNotes
)

var periodHeaderAliases = map[string]periodColumn{
	"symbol":                 colSymbol,
	"sku":                    colSymbol,
	"delivery_time_days":     colLeadTime,
	"lead_time":              colLeadTime,
	"lead_time_days":         colLeadTime,
	"order_frequency_days":   colFrequency,
	"order_frequency":        colFrequency,
	"optimal_order_quantity": colOptimalQty,
	"optimal_qty":            colOptimalQty,
	"notes":                  colNotes,
}

// ParsePeriodSheet reads the first sheet of an XLSX workbook. The first
// row is a header naming at least symbol, lead time and order frequency.
// Invalid rows are reported and skipped; range checks are left to the
// caller.
func ParsePeriodSheet(r io.Reader) ([]domain.StockPeriodOverride, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("xlsx has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	var (
		columns   map[periodColumn]int
		periods   []domain.StockPeriodOverride
		rowErrors []RowError
		rowNum    int
	)

	for rows.Next() {
		rowNum++
		record, err := rows.Columns()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read row %d: %w", rowNum, err)
		}

		if columns == nil {
			columns, err = mapPeriodHeader(record)
			if err != nil {
				return nil, nil, err
			}
			continue
		}

		if isBlank(record) {
			continue
		}

		period, rowErr := parsePeriodRow(record, columns)
		if rowErr != "" {
			rowErrors = append(rowErrors, RowError{Row: rowNum, Symbol: period.Symbol, Reason: rowErr})
			continue
		}
		periods = append(periods, period)
	}

	if err := rows.Error(); err != nil {
		return nil, nil, fmt.Errorf("error iterating rows in sheet %s: %w", sheet, err)
	}
	if columns == nil {
		return nil, nil, fmt.Errorf("sheet %s is empty", sheet)
	}

	return periods, rowErrors, nil
}

func mapPeriodHeader(header []string) (map[periodColumn]int, error) {
	columns := make(map[periodColumn]int)
	for i, name := range header {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
		if col, ok := periodHeaderAliases[key]; ok {
			if _, seen := columns[col]; !seen {
				columns[col] = i
			}
		}
	}

	for _, required := range []periodColumn{colSymbol, colLeadTime, colFrequency} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("period sheet header must name symbol, lead time and order frequency columns")
		}
	}
	return columns, nil
}

func parsePeriodRow(record []string, columns map[periodColumn]int) (domain.StockPeriodOverride, string) {
	cell := func(col periodColumn) string {
		i, ok := columns[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	period := domain.StockPeriodOverride{
		Symbol: strings.TrimSpace(cell(colSymbol)),
		Notes:  cell(colNotes),
	}
	if period.Symbol == "" {
		return period, "missing symbol"
	}

	lead, err := parseDays(cell(colLeadTime))
	if err != nil {
		return period, "lead time: " + err.Error()
	}
	freq, err := parseDays(cell(colFrequency))
	if err != nil {
		return period, "order frequency: " + err.Error()
	}
	period.DeliveryTimeDays = lead
	period.OrderFrequencyDays = freq

	if raw := cell(colOptimalQty); raw != "" {
		qty, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil || qty < 0 {
			return period, fmt.Sprintf("invalid optimal order quantity %q", raw)
		}
		period.OptimalOrderQuantity = &qty
	}

	return period, ""
}

func parseDays(raw string) (int, error) {
	if raw == "" {
		return 0, fmt.Errorf("missing value")
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	if v != float64(int(v)) {
		return 0, fmt.Errorf("%q is not a whole number of days", raw)
	}
	return int(v), nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
