package rotation

import (
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
)

// Thresholds holds the day-count boundaries of the classification tree.
type Thresholds struct {
	NewProductDays        int     // age at or below which a product is NEW
	IntroPeriodDays       int     // upper age bound of the NEW_* buckets
	NewSellingDays        float64 // days of stock at or below which an intro product is selling
	VeryFastDays          float64 // days of stock for VERY_FAST
	FastDays              float64 // days of stock for FAST
	NormalDays            float64 // days of stock for NORMAL
	SlowDays              float64 // days of stock for SLOW
	RepeatedMinDeliveries int     // deliveries needed to flag REPEATED_NO_SALES
}

// DefaultThresholds returns the retailer's tuned boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		NewProductDays:        30,
		IntroPeriodDays:       90,
		NewSellingDays:        90,
		VeryFastDays:          30,
		FastDays:              90,
		NormalDays:            180,
		SlowDays:              365,
		RepeatedMinDeliveries: 2,
	}
}

// Validate checks that the boundaries are positive and ascending.
func (t Thresholds) Validate() error {
	if t.NewProductDays <= 0 || t.IntroPeriodDays <= t.NewProductDays {
		return fmt.Errorf("age thresholds must satisfy 0 < new (%d) < intro (%d)", t.NewProductDays, t.IntroPeriodDays)
	}
	if t.NewSellingDays <= 0 {
		return fmt.Errorf("new selling threshold must be positive, got %.0f", t.NewSellingDays)
	}
	if !(t.VeryFastDays > 0 && t.VeryFastDays < t.FastDays && t.FastDays < t.NormalDays && t.NormalDays < t.SlowDays) {
		return fmt.Errorf("rotation thresholds must be ascending: %.0f/%.0f/%.0f/%.0f",
			t.VeryFastDays, t.FastDays, t.NormalDays, t.SlowDays)
	}
	if t.RepeatedMinDeliveries < 1 {
		return fmt.Errorf("repeated delivery minimum must be at least 1, got %d", t.RepeatedMinDeliveries)
	}
	return nil
}

// Input is everything the engine needs to analyse one product.
type Input struct {
	Product        domain.Product
	Aggregate      domain.SalesAggregate
	Sales          []domain.SaleEvent
	Deliveries     []domain.DeliveryEvent
	DeliveryMethod domain.DeliveryMethod
}

// Timeline is the result of replaying a product's events.
type Timeline struct {
	Events                 []domain.TimelineEvent
	HadZeroStock           bool
	LastZeroDate           *time.Time
	SalesAfterLastDelivery float64
	DeliveryCount          int
	LastDeliveryDate       *time.Time
}

// ZeroSignal classifies the zero-stock observation. Without deliveries a
// zero crossing is implied by the clamp and carries no information.
func (t Timeline) ZeroSignal() domain.ZeroStockSignal {
	switch {
	case !t.HadZeroStock:
		return domain.ZeroStockNone
	case t.DeliveryCount == 0:
		return domain.ZeroStockUnbacked
	default:
		return domain.ZeroStockObserved
	}
}

// Metrics are the derived turnover figures of one product.
type Metrics struct {
	AvgDailySales     float64
	DaysOfStock       float64 // +Inf when there is no sales velocity
	DaysNoMovement    int
	ProductAgeDays    *int
	FrozenValue       float64
	DaysSinceLastZero *int
}

// DaysOfStockInfinite reports whether the product has no measurable velocity.
func (m Metrics) DaysOfStockInfinite() bool {
	return math.IsInf(m.DaysOfStock, 1)
}

// Classification pairs the category tag with its recommendation text.
type Classification struct {
	Status         domain.RotationStatus
	Recommendation string
}

// MalformedEvent describes a delivery or sale dropped before simulation.
type MalformedEvent struct {
	Symbol   string
	Kind     domain.TimelineEventKind
	Date     time.Time
	Quantity float64
	Reason   string
}

func (e MalformedEvent) Error() string {
	return fmt.Sprintf("malformed %s event for %s on %s (qty %.2f): %s",
		e.Kind, e.Symbol, e.Date.Format("2006-01-02"), e.Quantity, e.Reason)
}
