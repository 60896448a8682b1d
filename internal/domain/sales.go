package domain

import "time"

// SalesFilter narrows a sales history extraction. Empty fields match
// everything; Symbol matches as a substring.
type SalesFilter struct {
	WarehouseIDs []int  `json:"warehouse_ids"`
	Category     string `json:"category,omitempty"`
	Brand        string `json:"brand,omitempty"`
	Symbol       string `json:"symbol,omitempty"`
	Days         int    `json:"days"`
}

// DailyProductSales is the net of sales and returns for one product on one day.
type DailyProductSales struct {
	Symbol     string    `json:"symbol"`
	Name       string    `json:"name"`
	Brand      string    `json:"brand"`
	Category   string    `json:"category"`
	Date       time.Time `json:"date"`
	Quantity   float64   `json:"quantity"`
	NetValue   float64   `json:"net_value"`
	GrossValue float64   `json:"gross_value"`
}

// ISOWeek identifies one ISO-8601 week. Key renders as "2024-07".
type ISOWeek struct {
	Year int    `json:"year"`
	Week int    `json:"week"`
	Key  string `json:"key"`
}

// SeasonalityPoint is one week of a product's seasonality profile.
type SeasonalityPoint struct {
	ISOWeek
	Sales          float64 `json:"sales"`
	Index          float64 `json:"index"`
	PrevYearSales  float64 `json:"prev_year_sales"`
	PrevYear2Sales float64 `json:"prev_year_2_sales"`
	TrendPct       float64 `json:"trend_pct"`
}

// TrendDirection summarises the year over year change.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// YearlyTrend compares calendar-year totals of the last three years.
type YearlyTrend struct {
	Years     map[int]float64 `json:"years"`
	ChangePct float64         `json:"change_pct"`
	Direction TrendDirection  `json:"direction"`
}

// SeasonalityProduct is the weekly seasonality index of one product.
type SeasonalityProduct struct {
	Symbol         string             `json:"symbol"`
	Name           string             `json:"name"`
	Brand          string             `json:"brand"`
	Category       string             `json:"category"`
	TotalSold      float64            `json:"total_sold"`
	AvgWeeklySales float64            `json:"avg_weekly_sales"`
	PeakWeek       string             `json:"peak_week,omitempty"`
	LowWeek        string             `json:"low_week,omitempty"`
	Weeks          []SeasonalityPoint `json:"weeks"`
	Trend          YearlyTrend        `json:"trend"`
}

// SeasonalityReport is the seasonality index over the trailing 52 weeks.
type SeasonalityReport struct {
	Items         []SeasonalityProduct `json:"items"`
	TotalProducts int                  `json:"total_products"`
	PeriodStart   time.Time            `json:"period_start"`
	PeriodEnd     time.Time            `json:"period_end"`
	Weeks         []ISOWeek            `json:"weeks"`
	Categories    []string             `json:"categories"`
	Brands        []string             `json:"brands"`
	Filter        SalesFilter          `json:"filter"`
}

// SalesPeriodTotal is the net of sales and returns over one period.
type SalesPeriodTotal struct {
	Period     string  `json:"period"`
	NetValue   float64 `json:"net_value"`
	GrossValue float64 `json:"gross_value"`
	Quantity   float64 `json:"quantity"`
}

// SalesSummary totals sales per day, ISO week, month and year.
type SalesSummary struct {
	Daily   []SalesPeriodTotal `json:"daily"`
	Weekly  []SalesPeriodTotal `json:"weekly"`
	Monthly []SalesPeriodTotal `json:"monthly"`
	Yearly  []SalesPeriodTotal `json:"yearly"`
	Filter  SalesFilter        `json:"filter"`
}
