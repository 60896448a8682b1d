package proposal

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

// Settings are the replenishment defaults applied when a product has no
// custom stock period.
type Settings struct {
	RecentWindowDays    int     // sales window behind RecentSalesQty
	DefaultLeadTimeDays int     // delivery time when no override exists
	MinStockDays        int     // order frequency when no override exists
	OKMarginRatio       float64 // share above the minimum still reported as OK
	EstimatedCostRatio  float64 // purchase cost as a share of net retail price
	DefaultVATRate      float64 // percent, used when nothing better is known
}

// DefaultSettings returns the retailer's replenishment defaults.
func DefaultSettings() Settings {
	return Settings{
		RecentWindowDays:    90,
		DefaultLeadTimeDays: 7,
		MinStockDays:        30,
		OKMarginRatio:       0.2,
		EstimatedCostRatio:  0.6,
		DefaultVATRate:      23,
	}
}

// Validate rejects settings that would make every proposal meaningless.
func (s Settings) Validate() error {
	if s.RecentWindowDays <= 0 {
		return fmt.Errorf("recent window must be positive, got %d", s.RecentWindowDays)
	}
	if s.DefaultLeadTimeDays < 0 || s.MinStockDays <= 0 {
		return fmt.Errorf("lead time (%d) and min stock days (%d) must be non-negative and positive",
			s.DefaultLeadTimeDays, s.MinStockDays)
	}
	if s.OKMarginRatio < 0 || s.EstimatedCostRatio <= 0 || s.DefaultVATRate < 0 {
		return fmt.Errorf("invalid pricing ratios: margin %.2f, cost %.2f, vat %.2f",
			s.OKMarginRatio, s.EstimatedCostRatio, s.DefaultVATRate)
	}
	return nil
}

// Calculator computes purchase proposals from the local product mirror.
type Calculator struct {
	settings Settings
}

// NewCalculator creates a proposal calculator.
func NewCalculator(s Settings) (*Calculator, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid proposal settings: %w", err)
	}
	return &Calculator{settings: s}, nil
}

// Settings returns the defaults the calculator was built with.
func (c *Calculator) Settings() Settings {
	return c.settings
}

// Compute builds proposals for products tagged with params.CategoryTag.
// A zero params.MinStockDays falls back to the configured default.
func (c *Calculator) Compute(products []domain.Product, overrides map[string]domain.StockPeriodOverride, params domain.ProposalParams) domain.ProposalResult {
	if params.MinStockDays <= 0 {
		params.MinStockDays = c.settings.MinStockDays
	}
	tag := strings.ToUpper(strings.TrimSpace(params.CategoryTag))

	type row struct {
		rec  domain.ProposalRecord
		diff float64
	}
	rows := make([]row, 0, len(products))
	summary := domain.ProposalSummary{}
	total := decimal.Zero

	for _, p := range products {
		if tag != "" && strings.ToUpper(strings.TrimSpace(p.Purpose)) != tag {
			continue
		}
		if p.Stock < 0 {
			continue
		}

		override, hasOverride := overrides[p.Symbol]
		rec, diff := c.proposeOne(p, override, hasOverride, params.MinStockDays)

		switch rec.Status {
		case domain.ProposalBelow:
			summary.BelowMinimum++
		case domain.ProposalOK:
			summary.OK++
		default:
			summary.Excess++
		}
		total = total.Add(decimal.NewFromFloat(rec.OrderValue))
		rows = append(rows, row{rec: rec, diff: diff})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := rows[i].rec.Status.SortRank(), rows[j].rec.Status.SortRank()
		if ri != rj {
			return ri < rj
		}
		return rows[i].diff < rows[j].diff
	})

	items := make([]domain.ProposalRecord, len(rows))
	for i, r := range rows {
		items[i] = r.rec
	}
	summary.TotalProducts = len(items)
	summary.TotalOrderValue = total.Round(2).InexactFloat64()

	return domain.ProposalResult{
		Items:   items,
		Summary: summary,
		Params:  params,
	}
}

func (c *Calculator) proposeOne(p domain.Product, o domain.StockPeriodOverride, hasOverride bool, minStockDays int) (domain.ProposalRecord, float64) {
	// 1. Replenishment parameters, overrides first
	leadTime := c.settings.DefaultLeadTimeDays
	frequency := minStockDays
	if hasOverride {
		if o.DeliveryTimeDays > 0 {
			leadTime = o.DeliveryTimeDays
		}
		if o.OrderFrequencyDays > 0 {
			frequency = o.OrderFrequencyDays
		}
	}

	// 2. Average daily usage over the recent window
	usage := 0.0
	if p.RecentSalesQty > 0 {
		usage = p.RecentSalesQty / float64(c.settings.RecentWindowDays)
	}

	// 3. Minimum stock covers lead time plus one ordering cycle
	minStock := usage * float64(leadTime+frequency)
	diff := roundFloat(p.Stock-minStock, 6)

	// 4. Status against the minimum; the OK band stops short of the margin
	status := domain.ProposalExcess
	switch {
	case diff < 0:
		status = domain.ProposalBelow
	case diff < roundFloat(minStock*c.settings.OKMarginRatio, 6):
		status = domain.ProposalOK
	}

	// 5. Quantity to order, always whole pieces
	qty := 0.0
	if status == domain.ProposalBelow {
		qty = math.Ceil(-diff)
	}

	// 6. Purchase price, estimated when nothing was recorded
	net, vat, gross, estimated := c.purchasePrice(p)
	orderValue := decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(gross))

	rec := domain.ProposalRecord{
		Symbol:             p.Symbol,
		Name:               p.Name,
		Brand:              p.Brand,
		Stock:              round2(p.Stock),
		RecentSalesQty:     round2(p.RecentSalesQty),
		AvgDailyUsage:      round2(usage),
		LeadTimeDays:       leadTime,
		OrderFrequencyDays: frequency,
		MinStock:           round2(minStock),
		Difference:         round2(diff),
		Status:             status,
		QuantityToOrder:    qty,
		PurchaseNet:        round2(net),
		VATRate:            round2(vat),
		PurchaseGross:      round2(gross),
		OrderValue:         orderValue.Round(2).InexactFloat64(),
		CostEstimated:      estimated,
		HasCustomPeriod:    hasOverride,
	}
	if hasOverride {
		rec.OptimalOrderQuantity = o.OptimalOrderQuantity
		rec.Notes = o.Notes
	}
	return rec, diff
}

// purchasePrice resolves net cost, VAT rate and gross cost for a product.
func (c *Calculator) purchasePrice(p domain.Product) (net, vat, gross float64, estimated bool) {
	if p.VATRate != nil && *p.VATRate > 0 {
		vat = *p.VATRate
	} else if p.NetPrice > 0 && p.GrossPrice > 0 {
		vat = (p.GrossPrice/p.NetPrice - 1) * 100
	}

	if p.PurchaseCost != nil && *p.PurchaseCost > 0 {
		net = *p.PurchaseCost
	} else {
		net = math.Max(0, p.NetPrice) * c.settings.EstimatedCostRatio
		estimated = true
		if vat <= 0 {
			vat = c.settings.DefaultVATRate
		}
	}

	gross = net * (1 + vat/100)
	return net, vat, gross, estimated
}

func roundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
