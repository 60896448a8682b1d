package rotation

import "github.com/andresuchdata/stock-rotation/backend-go/internal/domain"

// Facts are the classifier inputs for one product.
type Facts struct {
	ZeroSignal             domain.ZeroStockSignal
	Deliveries             int
	SalesAfterLastDelivery float64
	AgeDays                *int
	YearlyQuantity         float64
	DaysOfStock            float64 // +Inf when there is no velocity
	FrozenValue            float64
	DaysNoMovement         int
	DaysSinceLastZero      *int
}

// Classifier applies the ordered rotation decision tree.
type Classifier struct {
	t Thresholds
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(t Thresholds) *Classifier {
	return &Classifier{t: t}
}

// Thresholds returns the boundaries in use.
func (c *Classifier) Thresholds() Thresholds {
	return c.t
}

// Classify returns the first matching category and its recommendation.
func (c *Classifier) Classify(f Facts) Classification {
	status := c.status(f)
	return Classification{
		Status:         status,
		Recommendation: recommend(status, f, c.t),
	}
}

func (c *Classifier) status(f Facts) domain.RotationStatus {
	t := c.t

	// 1. Restocked after running out, yet nothing sold since
	if f.ZeroSignal == domain.ZeroStockObserved &&
		f.Deliveries >= t.RepeatedMinDeliveries &&
		f.SalesAfterLastDelivery == 0 &&
		f.AgeDays != nil && *f.AgeDays > t.NewProductDays {
		return domain.StatusRepeatedNoSales
	}

	if f.AgeDays != nil {
		age := *f.AgeDays

		// 2. Grace period
		if age <= t.NewProductDays {
			return domain.StatusNew
		}

		// 3-5. Introductory period
		if age <= t.IntroPeriodDays {
			switch {
			case f.YearlyQuantity <= 0:
				return domain.StatusNewNoSales
			case f.DaysOfStock <= t.NewSellingDays:
				return domain.StatusNewSelling
			default:
				return domain.StatusNewSlow
			}
		}
	}

	// 6. Established products by days of stock
	switch {
	case f.DaysOfStock <= t.VeryFastDays:
		return domain.StatusVeryFast
	case f.DaysOfStock <= t.FastDays:
		return domain.StatusFast
	case f.DaysOfStock <= t.NormalDays:
		return domain.StatusNormal
	case f.DaysOfStock <= t.SlowDays:
		return domain.StatusSlow
	case !isInf(f.DaysOfStock):
		return domain.StatusVerySlow
	default:
		return domain.StatusDead
	}
}
