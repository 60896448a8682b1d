package postgres

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/lib/pq"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// rotationSortColumns whitelists the numeric fields a snapshot can be
// sorted by, plus symbol and name.
var rotationSortColumns = map[string]string{
	"frozen_value":              "frozen_value",
	"days_no_movement":          "days_no_movement",
	"stock":                     "stock",
	"net_price":                 "net_price",
	"gross_price":               "gross_price",
	"yearly_quantity":           "yearly_quantity",
	"yearly_value":              "yearly_value",
	"avg_daily_sales":           "avg_daily_sales",
	"days_of_stock":             "days_of_stock",
	"product_age_days":          "product_age_days",
	"total_deliveries":          "total_deliveries",
	"days_since_last_zero":      "days_since_last_zero",
	"sales_after_last_delivery": "sales_after_last_delivery",
	"symbol":                    "symbol",
	"name":                      "name",
}

// buildRotationFilterClause constructs SQL filter clauses for snapshot queries
func buildRotationFilterClause(filter *domain.DeadStockFilter, alias string, startIndex int) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	var (
		clauses []string
		args    []interface{}
	)
	a := normalizeAlias(alias)
	idx := startIndex

	if filter.MinDays != nil {
		clauses = append(clauses, fmt.Sprintf("%sdays_no_movement >= $%d", a, idx))
		args = append(args, *filter.MinDays)
		idx++
	}

	if filter.MinValue != nil {
		clauses = append(clauses, fmt.Sprintf("%sfrozen_value >= $%d", a, idx))
		args = append(args, *filter.MinValue)
		idx++
	}

	if category := strings.TrimSpace(filter.Category); category != "" {
		clauses = append(clauses, fmt.Sprintf("%scategory = $%d", a, idx))
		args = append(args, category)
		idx++
	}

	if brand := strings.TrimSpace(filter.Brand); brand != "" {
		clauses = append(clauses, fmt.Sprintf("%sbrand = $%d", a, idx))
		args = append(args, brand)
		idx++
	}

	if len(filter.RotationStatus) > 0 {
		statuses := make([]string, len(filter.RotationStatus))
		for i, s := range filter.RotationStatus {
			statuses[i] = string(s)
		}
		clauses = append(clauses, fmt.Sprintf("%srotation_status = ANY($%d)", a, idx))
		args = append(args, pq.Array(statuses))
		idx++
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		clauses = append(clauses, fmt.Sprintf("(%[1]ssymbol ILIKE $%[2]d OR %[1]sname ILIKE $%[2]d)", a, idx))
		args = append(args, "%"+search+"%")
	}

	if len(clauses) == 0 {
		return "", nil
	}

	return " AND " + strings.Join(clauses, " AND "), args
}

// buildRotationOrderClause maps sort_by/sort_dir to a safe ORDER BY.
// Missing days of stock means infinite, so it sorts as the largest value.
func buildRotationOrderClause(sortBy, sortDir, alias string) string {
	a := normalizeAlias(alias)
	column, ok := rotationSortColumns[strings.ToLower(strings.TrimSpace(sortBy))]
	if !ok {
		column = "frozen_value"
		if sortDir == "" {
			sortDir = "desc"
		}
	}

	dir := "DESC"
	if strings.EqualFold(strings.TrimSpace(sortDir), "asc") {
		dir = "ASC"
	}

	nulls := "NULLS LAST"
	if column == "days_of_stock" && dir == "DESC" {
		nulls = "NULLS FIRST"
	}

	return fmt.Sprintf(" ORDER BY %s%s %s %s, %ssymbol ASC", a, column, dir, nulls, a)
}

func normalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func normalizeAlias(alias string) string {
	if alias == "" {
		return ""
	}
	if !strings.HasSuffix(alias, ".") {
		return alias + "."
	}
	return alias
}
