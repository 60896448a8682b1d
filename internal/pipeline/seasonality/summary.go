package seasonality

import (
	"fmt"
	"sort"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

type periodTotals map[string]*totals

type totals struct {
	net, gross, qty decimal.Decimal
}

func (p periodTotals) add(key string, s domain.DailyProductSales) {
	t, ok := p[key]
	if !ok {
		t = &totals{}
		p[key] = t
	}
	t.net = t.net.Add(decimal.NewFromFloat(s.NetValue))
	t.gross = t.gross.Add(decimal.NewFromFloat(s.GrossValue))
	t.qty = t.qty.Add(decimal.NewFromFloat(s.Quantity))
}

func (p periodTotals) sorted() []domain.SalesPeriodTotal {
	out := make([]domain.SalesPeriodTotal, 0, len(p))
	for key, t := range p {
		out = append(out, domain.SalesPeriodTotal{
			Period:     key,
			NetValue:   t.net.Round(2).InexactFloat64(),
			GrossValue: t.gross.Round(2).InexactFloat64(),
			Quantity:   t.qty.Round(2).InexactFloat64(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// Summarize totals sales per day, ISO week ("2024-W07"), month and year.
// Periods are listed oldest first.
func Summarize(sales []domain.DailyProductSales) domain.SalesSummary {
	daily, weekly, monthly, yearly := periodTotals{}, periodTotals{}, periodTotals{}, periodTotals{}

	for _, s := range sales {
		y, w := s.Date.ISOWeek()
		daily.add(s.Date.Format("2006-01-02"), s)
		weekly.add(fmt.Sprintf("%d-W%02d", y, w), s)
		monthly.add(s.Date.Format("2006-01"), s)
		yearly.add(s.Date.Format("2006"), s)
	}

	return domain.SalesSummary{
		Daily:   daily.sorted(),
		Weekly:  weekly.sorted(),
		Monthly: monthly.sorted(),
		Yearly:  yearly.sorted(),
	}
}
