package rotation

import (
	"fmt"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

// recommend renders the fixed template of a category with the product's
// own figures.
func recommend(status domain.RotationStatus, f Facts, t Thresholds) string {
	switch status {
	case domain.StatusRepeatedNoSales:
		msg := fmt.Sprintf("Repeat purchase error: %d deliveries and no sales since the last one", f.Deliveries)
		if f.DaysSinceLastZero != nil {
			msg += fmt.Sprintf(", %d days since stock ran out", *f.DaysSinceLastZero)
		}
		return msg + ". Do not reorder; clear the remaining " + money(f.FrozenValue) + "."
	case domain.StatusNew:
		return fmt.Sprintf("New product (%s). Monitor sales for the first %d days.", ageText(f.AgeDays), t.NewProductDays)
	case domain.StatusNewNoSales:
		return fmt.Sprintf("New product with no sales (%s, %d deliveries). Urgent marketing action needed.",
			ageText(f.AgeDays), f.Deliveries)
	case domain.StatusNewSelling:
		return fmt.Sprintf("New product selling well (%s of stock). Keep going.", daysText(f.DaysOfStock))
	case domain.StatusNewSlow:
		return fmt.Sprintf("New product selling slowly (%s of stock). Consider a promotion.", daysText(f.DaysOfStock))
	case domain.StatusVeryFast:
		return fmt.Sprintf("Very fast rotation (%s of stock). Increase order quantities.", daysText(f.DaysOfStock))
	case domain.StatusFast:
		return fmt.Sprintf("Fast rotation (%s of stock). Maintain stock levels.", daysText(f.DaysOfStock))
	case domain.StatusNormal:
		return fmt.Sprintf("Normal rotation (%s of stock). No action needed.", daysText(f.DaysOfStock))
	case domain.StatusSlow:
		return fmt.Sprintf("Slow rotation (%s of stock). Consider a promotion.", daysText(f.DaysOfStock))
	case domain.StatusVerySlow:
		return fmt.Sprintf("Very slow rotation (%s of stock, %s frozen). Lower prices.",
			daysText(f.DaysOfStock), money(f.FrozenValue))
	default:
		return fmt.Sprintf("Dead stock: no sales in %d days, %s frozen (%s, %d deliveries). Immediate action required.",
			f.DaysNoMovement, money(f.FrozenValue), ageText(f.AgeDays), f.Deliveries)
	}
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func daysText(v float64) string {
	if isInf(v) {
		return "unlimited days"
	}
	return fmt.Sprintf("%.0f days", v)
}

func ageText(age *int) string {
	if age == nil {
		return "age unknown"
	}
	return fmt.Sprintf("age %d days", *age)
}
