package rotation

import (
	"math"
	"time"
)

// MetricsCalculator derives turnover metrics for a single product.
type MetricsCalculator struct {
	lookbackDays int
}

// NewMetricsCalculator creates a calculator for the given sales window.
func NewMetricsCalculator(lookbackDays int) *MetricsCalculator {
	if lookbackDays <= 0 {
		lookbackDays = 365
	}
	return &MetricsCalculator{lookbackDays: lookbackDays}
}

// Calculate computes all metrics for one product. Values are not rounded.
func (mc *MetricsCalculator) Calculate(in Input, tl Timeline, now time.Time) Metrics {
	m := Metrics{}

	// 1. Average daily sale rate over the lookback window
	if in.Aggregate.YearlyQuantity > 0 {
		m.AvgDailySales = in.Aggregate.YearlyQuantity / float64(mc.lookbackDays)
	}

	// 2. Days of stock, infinite without velocity
	if m.AvgDailySales > 0 {
		m.DaysOfStock = math.Max(0, in.Product.Stock) / m.AvgDailySales
	} else {
		m.DaysOfStock = math.Inf(1)
	}

	// 3. Days since the most recent sale or stock change
	m.DaysNoMovement = mc.lookbackDays
	if last := latest(in.Aggregate.LastSaleDate, in.Product.LastStockChange); last != nil {
		m.DaysNoMovement = max(0, daysBetween(*last, now))
	}

	// 4. Product age
	m.ProductAgeDays = productAge(in, now)

	// 5. Frozen capital
	if in.Product.Stock > 0 && in.Product.NetPrice > 0 {
		m.FrozenValue = in.Product.Stock * in.Product.NetPrice
	}

	// 6. Days since the last zero-stock crossing
	if tl.LastZeroDate != nil {
		d := max(0, daysBetween(*tl.LastZeroDate, now))
		m.DaysSinceLastZero = &d
	}

	return m
}

// productAge returns the age of a single delivery, the quantity-weighted
// age of several, or the first-seen age when no delivery is known.
func productAge(in Input, now time.Time) *int {
	switch len(in.Deliveries) {
	case 0:
		if in.Product.FirstSeen == nil {
			return nil
		}
		age := max(0, daysBetween(*in.Product.FirstSeen, now))
		return &age
	case 1:
		age := max(0, daysBetween(in.Deliveries[0].Date, now))
		return &age
	}

	var weighted, totalQty, plain float64
	for _, d := range in.Deliveries {
		days := float64(max(0, daysBetween(d.Date, now)))
		weighted += d.Quantity * days
		totalQty += d.Quantity
		plain += days
	}

	var age int
	if totalQty > 0 {
		age = int(weighted / totalQty)
	} else {
		age = int(plain / float64(len(in.Deliveries)))
	}
	return &age
}

func latest(candidates ...*time.Time) *time.Time {
	var out *time.Time
	for _, c := range candidates {
		if c == nil || c.IsZero() {
			continue
		}
		if out == nil || c.After(*out) {
			out = c
		}
	}
	return out
}
