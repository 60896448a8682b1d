// Package seasonality turns daily sales history into a weekly seasonality
// index and period totals.
package seasonality

import (
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

// Settings tune the seasonality index.
type Settings struct {
	WindowWeeks       int     // weeks in the index window
	PriorYears        int     // earlier years compared week by week and year by year
	TrendThresholdPct float64 // year over year change reported as up or down
	MaxProducts       int     // products returned, best sellers first
}

// DefaultSettings returns a 52 week window compared with the two years before.
func DefaultSettings() Settings {
	return Settings{
		WindowWeeks:       52,
		PriorYears:        2,
		TrendThresholdPct: 10,
		MaxProducts:       500,
	}
}

func (s Settings) Validate() error {
	if s.WindowWeeks <= 0 || s.PriorYears < 1 {
		return fmt.Errorf("window weeks (%d) must be positive and prior years (%d) at least 1", s.WindowWeeks, s.PriorYears)
	}
	if s.TrendThresholdPct < 0 || s.MaxProducts <= 0 {
		return fmt.Errorf("invalid trend threshold %.1f or product limit %d", s.TrendThresholdPct, s.MaxProducts)
	}
	return nil
}

// Calculator computes seasonality indexes from daily product sales.
type Calculator struct {
	settings Settings
}

func NewCalculator(s Settings) (*Calculator, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid seasonality settings: %w", err)
	}
	return &Calculator{settings: s}, nil
}

// LookbackDays is the history Compute needs on now: the window and the same
// weeks of every prior year, or back to January 1 of the oldest trend year
// when that is further.
func (c *Calculator) LookbackDays(now time.Time) int {
	end := dayOf(now)
	days := c.settings.WindowWeeks * 7 * (1 + c.settings.PriorYears)
	jan := time.Date(end.Year()-c.settings.PriorYears, time.January, 1, 0, 0, 0, 0, end.Location())
	if d := int(end.Sub(jan).Hours()/24) + 1; d > days {
		days = d
	}
	return days
}

// Weeks lists the ISO weeks of the window ending on now, oldest first.
func (c *Calculator) Weeks(now time.Time) []domain.ISOWeek {
	end := dayOf(now)
	weeks := make([]domain.ISOWeek, 0, c.settings.WindowWeeks)
	for i := c.settings.WindowWeeks - 1; i >= 0; i-- {
		weeks = append(weeks, isoWeekOf(end.AddDate(0, 0, -7*i)))
	}
	return weeks
}

type productSeries struct {
	info     domain.DailyProductSales
	window   map[string]float64 // inside the index window
	weekly   map[string]float64 // every week of the history
	years    map[int]float64
	total    float64
	inWindow bool
}

// Compute builds the report for the window ending on now. Products without
// a sale or return inside the window are left out. Sales after now are
// ignored.
func (c *Calculator) Compute(sales []domain.DailyProductSales, now time.Time) domain.SeasonalityReport {
	end := dayOf(now)
	start := end.AddDate(0, 0, -7*c.settings.WindowWeeks)
	firstYear := end.Year() - c.settings.PriorYears

	// 1. Bucket every day into its ISO week and calendar year
	series := map[string]*productSeries{}
	for _, s := range sales {
		day := time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), 0, 0, 0, 0, end.Location())
		if day.After(end) {
			continue
		}

		p, ok := series[s.Symbol]
		if !ok {
			p = &productSeries{
				info:   s,
				window: map[string]float64{},
				weekly: map[string]float64{},
				years:  map[int]float64{},
			}
			series[s.Symbol] = p
		}

		key := isoWeekOf(day).Key
		p.weekly[key] += s.Quantity
		if !day.Before(start) {
			p.window[key] += s.Quantity
			p.total += s.Quantity
			p.inWindow = true
		}
		if day.Year() >= firstYear {
			p.years[day.Year()] += s.Quantity
		}
	}

	// 2. Index each product against its own weekly average
	weeks := c.Weeks(now)
	items := make([]domain.SeasonalityProduct, 0, len(series))
	categories := map[string]bool{}
	brands := map[string]bool{}
	for symbol, p := range series {
		if !p.inWindow {
			continue
		}
		items = append(items, c.indexProduct(symbol, p, weeks, end.Year()))
		if p.info.Category != "" {
			categories[p.info.Category] = true
		}
		if p.info.Brand != "" {
			brands[p.info.Brand] = true
		}
	}

	// 3. Best sellers first
	sort.Slice(items, func(i, j int) bool {
		if items[i].TotalSold != items[j].TotalSold {
			return items[i].TotalSold > items[j].TotalSold
		}
		return items[i].Symbol < items[j].Symbol
	})

	total := len(items)
	if len(items) > c.settings.MaxProducts {
		items = items[:c.settings.MaxProducts]
	}

	return domain.SeasonalityReport{
		Items:         items,
		TotalProducts: total,
		PeriodStart:   start,
		PeriodEnd:     end,
		Weeks:         weeks,
		Categories:    sortedKeys(categories),
		Brands:        sortedKeys(brands),
	}
}

func (c *Calculator) indexProduct(symbol string, p *productSeries, weeks []domain.ISOWeek, year int) domain.SeasonalityProduct {
	avg := 0.0
	if p.total > 0 {
		avg = p.total / float64(c.settings.WindowWeeks)
	}

	points := make([]domain.SeasonalityPoint, len(weeks))
	for i, w := range weeks {
		sold := p.window[w.Key]
		prev := p.weekly[weekKey(w.Year-1, w.Week)]
		point := domain.SeasonalityPoint{
			ISOWeek:        w,
			Sales:          round(sold, 0),
			PrevYearSales:  round(prev, 0),
			PrevYear2Sales: round(p.weekly[weekKey(w.Year-2, w.Week)], 0),
			TrendPct:       changePct(sold, prev, 0),
		}
		if avg > 0 {
			point.Index = round(sold/avg, 2)
		}
		points[i] = point
	}

	peak, low := extremeWeeks(p.window)

	years := make(map[int]float64, c.settings.PriorYears+1)
	for y := year - c.settings.PriorYears; y <= year; y++ {
		years[y] = round(p.years[y], 0)
	}
	change := changePct(p.years[year], p.years[year-1], 1)
	direction := domain.TrendStable
	switch {
	case change > c.settings.TrendThresholdPct:
		direction = domain.TrendUp
	case change < -c.settings.TrendThresholdPct:
		direction = domain.TrendDown
	}

	return domain.SeasonalityProduct{
		Symbol:         symbol,
		Name:           p.info.Name,
		Brand:          p.info.Brand,
		Category:       p.info.Category,
		TotalSold:      round(p.total, 0),
		AvgWeeklySales: round(avg, 2),
		PeakWeek:       peak,
		LowWeek:        low,
		Weeks:          points,
		Trend:          domain.YearlyTrend{Years: years, ChangePct: change, Direction: direction},
	}
}

// changePct is the change of current over previous in percent. Growth from
// nothing counts as 100.
func changePct(current, previous float64, places int32) float64 {
	if previous > 0 {
		return round((current-previous)/previous*100, places)
	}
	if current == 0 {
		return 0
	}
	return 100
}

// extremeWeeks returns the best and worst weeks that sold anything. Ties go
// to the earlier week.
func extremeWeeks(weeks map[string]float64) (peak, low string) {
	keys := make([]string, 0, len(weeks))
	for k, v := range weeks {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		if peak == "" || weeks[k] > weeks[peak] {
			peak = k
		}
		if low == "" || weeks[k] < weeks[low] {
			low = k
		}
	}
	return peak, low
}

func isoWeekOf(t time.Time) domain.ISOWeek {
	y, w := t.ISOWeek()
	return domain.ISOWeek{Year: y, Week: w, Key: weekKey(y, w)}
}

func weekKey(year, week int) string {
	return fmt.Sprintf("%d-%02d", year, week)
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
