package warehouse

import (
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
)

type productRow struct {
	Symbol       string          `db:"symbol"`
	Name         sql.NullString  `db:"name"`
	Brand        sql.NullString  `db:"brand"`
	Category     sql.NullString  `db:"category"`
	Purpose      sql.NullString  `db:"purpose"`
	Size         sql.NullString  `db:"size"`
	Color        sql.NullString  `db:"color"`
	Season       sql.NullString  `db:"season"`
	Stock        sql.NullFloat64 `db:"stock"`
	NetPrice     sql.NullFloat64 `db:"net_price"`
	GrossPrice   sql.NullFloat64 `db:"gross_price"`
	PurchaseCost sql.NullFloat64 `db:"purchase_cost"`
	VATRate      sql.NullFloat64 `db:"vat_rate"`
}

type aggregateRow struct {
	Symbol   string          `db:"symbol"`
	Quantity sql.NullFloat64 `db:"quantity"`
	Value    sql.NullFloat64 `db:"value"`
	LastSale sql.NullTime    `db:"last_sale"`
}

type quantityRow struct {
	Symbol   string          `db:"symbol"`
	Quantity sql.NullFloat64 `db:"quantity"`
}

type dailyRow struct {
	Symbol    string          `db:"symbol"`
	Day       time.Time       `db:"day"`
	Quantity  sql.NullFloat64 `db:"quantity"`
	Reference sql.NullString  `db:"reference"`
}

type salesRow struct {
	Symbol     string          `db:"symbol"`
	Name       sql.NullString  `db:"name"`
	Brand      sql.NullString  `db:"brand"`
	Category   sql.NullString  `db:"category"`
	Day        time.Time       `db:"day"`
	Quantity   sql.NullFloat64 `db:"quantity"`
	NetValue   sql.NullFloat64 `db:"net_value"`
	GrossValue sql.NullFloat64 `db:"gross_value"`
}

// toDailySales trims warehouse text and treats NULL sums as zero.
func toDailySales(rows []salesRow) []domain.DailyProductSales {
	out := make([]domain.DailyProductSales, 0, len(rows))
	for _, r := range rows {
		symbol := strings.TrimSpace(r.Symbol)
		if symbol == "" {
			continue
		}
		out = append(out, domain.DailyProductSales{
			Symbol:     symbol,
			Name:       strings.TrimSpace(r.Name.String),
			Brand:      strings.TrimSpace(r.Brand.String),
			Category:   strings.TrimSpace(r.Category.String),
			Date:       r.Day,
			Quantity:   r.Quantity.Float64,
			NetValue:   r.NetValue.Float64,
			GrossValue: r.GrossValue.Float64,
		})
	}
	return out
}

type firstSaleRow struct {
	Symbol    string    `db:"symbol"`
	FirstSale time.Time `db:"first_sale"`
}

type priceRow struct {
	Symbol string          `db:"symbol"`
	Price  sql.NullFloat64 `db:"price"`
}

// rawHistory is the unprocessed result of the extraction queries.
type rawHistory struct {
	products   []productRow
	aggregates []aggregateRow
	recent     []quantityRow
	sales      []dailyRow
	receipts   []dailyRow
	firstSales []firstSaleRow
	prices     []priceRow
}

// assemble turns query rows into a History and applies the two-tier
// delivery strategy: receipts first, then the first-sale proxy.
func assemble(raw rawHistory) *History {
	h := &History{
		Products:        make([]domain.Product, 0, len(raw.products)),
		Aggregates:      make(map[string]domain.SalesAggregate, len(raw.aggregates)),
		RecentQty:       make(map[string]float64, len(raw.recent)),
		Sales:           make(map[string][]domain.SaleEvent),
		Deliveries:      make(map[string][]domain.DeliveryEvent),
		DeliveryMethods: make(map[string]domain.DeliveryMethod, len(raw.products)),
	}

	for _, r := range raw.aggregates {
		symbol := normalizeSymbol(r.Symbol)
		if symbol == "" {
			continue
		}
		agg := domain.SalesAggregate{
			Symbol:         symbol,
			YearlyQuantity: r.Quantity.Float64,
			YearlyValue:    r.Value.Float64,
		}
		if r.LastSale.Valid {
			last := r.LastSale.Time
			agg.LastSaleDate = &last
		}
		h.Aggregates[symbol] = agg
	}

	for _, r := range raw.recent {
		if symbol := normalizeSymbol(r.Symbol); symbol != "" {
			h.RecentQty[symbol] = r.Quantity.Float64
		}
	}

	for _, r := range raw.sales {
		symbol := normalizeSymbol(r.Symbol)
		if symbol == "" {
			continue
		}
		h.Sales[symbol] = append(h.Sales[symbol], domain.SaleEvent{
			Symbol:   symbol,
			Date:     r.Day,
			Quantity: r.Quantity.Float64,
		})
	}

	for _, r := range raw.receipts {
		symbol := normalizeSymbol(r.Symbol)
		if symbol == "" {
			continue
		}
		h.Deliveries[symbol] = append(h.Deliveries[symbol], domain.DeliveryEvent{
			Symbol:    symbol,
			Date:      r.Day,
			Quantity:  r.Quantity.Float64,
			Reference: r.Reference.String,
		})
	}

	firstSale := make(map[string]time.Time, len(raw.firstSales))
	for _, r := range raw.firstSales {
		if symbol := normalizeSymbol(r.Symbol); symbol != "" && !r.FirstSale.IsZero() {
			firstSale[symbol] = r.FirstSale
		}
	}

	prices := make(map[string]float64, len(raw.prices))
	for _, r := range raw.prices {
		if symbol := normalizeSymbol(r.Symbol); symbol != "" && r.Price.Valid && r.Price.Float64 > 0 {
			prices[symbol] = r.Price.Float64
		}
	}

	seen := make(map[string]bool, len(raw.products))
	for _, r := range raw.products {
		symbol := normalizeSymbol(r.Symbol)
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true

		p := domain.Product{
			Symbol:         symbol,
			Name:           strings.TrimSpace(r.Name.String),
			Brand:          strings.TrimSpace(r.Brand.String),
			Category:       strings.TrimSpace(r.Category.String),
			Purpose:        strings.TrimSpace(r.Purpose.String),
			Size:           strings.TrimSpace(r.Size.String),
			Color:          strings.TrimSpace(r.Color.String),
			Season:         strings.TrimSpace(r.Season.String),
			Stock:          r.Stock.Float64,
			NetPrice:       r.NetPrice.Float64,
			GrossPrice:     r.GrossPrice.Float64,
			PurchaseCost:   positive(r.PurchaseCost),
			VATRate:        positive(r.VATRate),
			RecentSalesQty: h.RecentQty[symbol],
		}
		if price, ok := prices[symbol]; ok {
			p.PurchaseCost = &price
		}
		h.Products = append(h.Products, p)

		switch {
		case len(h.Deliveries[symbol]) > 0:
			h.DeliveryMethods[symbol] = domain.DeliveryMethodReceipts
		case !firstSale[symbol].IsZero():
			h.Deliveries[symbol] = []domain.DeliveryEvent{{
				Symbol:   symbol,
				Date:     firstSale[symbol],
				Quantity: 1,
			}}
			h.DeliveryMethods[symbol] = domain.DeliveryMethodSalesProxy
		default:
			h.DeliveryMethods[symbol] = domain.DeliveryMethodNone
		}
	}

	sort.SliceStable(h.Products, func(i, j int) bool {
		return h.Products[i].Symbol < h.Products[j].Symbol
	})

	return h
}

func normalizeSymbol(s string) string {
	return strings.TrimSpace(s)
}

func positive(v sql.NullFloat64) *float64 {
	if !v.Valid || v.Float64 <= 0 {
		return nil
	}
	f := v.Float64
	return &f
}
