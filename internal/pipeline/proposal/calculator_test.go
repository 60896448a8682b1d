package proposal

import (
	"testing"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 {
	return &v
}

func newTestCalculator(t *testing.T) *Calculator {
	t.Helper()
	c, err := NewCalculator(DefaultSettings())
	require.NoError(t, err)
	return c
}

func supplement(symbol string, stock, recent float64) domain.Product {
	return domain.Product{
		Symbol:         symbol,
		Name:           symbol + " caps",
		Purpose:        "Suplementy",
		Stock:          stock,
		RecentSalesQty: recent,
		NetPrice:       20,
		GrossPrice:     24.6,
	}
}

func TestCalculator_BelowMinimumScenario(t *testing.T) {
	res := newTestCalculator(t).Compute(
		[]domain.Product{supplement("SUP-1", 50, 180)},
		nil,
		domain.ProposalParams{CategoryTag: "SUPLEMENTY", MinStockDays: 30},
	)

	require.Len(t, res.Items, 1)
	rec := res.Items[0]
	assert.Equal(t, 2.0, rec.AvgDailyUsage)
	assert.Equal(t, 74.0, rec.MinStock)
	assert.Equal(t, -24.0, rec.Difference)
	assert.Equal(t, domain.ProposalBelow, rec.Status)
	assert.Equal(t, 24.0, rec.QuantityToOrder)
	assert.Equal(t, 7, rec.LeadTimeDays)
	assert.Equal(t, 30, rec.OrderFrequencyDays)
	assert.False(t, rec.HasCustomPeriod)
}

func TestCalculator_StatusBands(t *testing.T) {
	tests := []struct {
		name  string
		stock float64
		want  domain.ProposalStatus
		order float64
	}{
		{"fractional shortfall rounds up", 73.5, domain.ProposalBelow, 1},
		{"exactly at minimum", 74, domain.ProposalOK, 0},
		{"inside the margin", 88.7, domain.ProposalOK, 0},
		{"exactly at the margin", 88.8, domain.ProposalExcess, 0},
		{"above the margin", 89, domain.ProposalExcess, 0},
	}

	c := newTestCalculator(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := c.Compute([]domain.Product{supplement("SUP-1", tc.stock, 180)}, nil,
				domain.ProposalParams{CategoryTag: "SUPLEMENTY", MinStockDays: 30})
			require.Len(t, res.Items, 1)
			assert.Equal(t, tc.want, res.Items[0].Status)
			assert.Equal(t, tc.order, res.Items[0].QuantityToOrder)
		})
	}
}

func TestCalculator_NoSalesIsExcess(t *testing.T) {
	c := newTestCalculator(t)
	params := domain.ProposalParams{CategoryTag: "SUPLEMENTY"}

	res := c.Compute([]domain.Product{supplement("SUP-1", 5, 0), supplement("SUP-2", 0, 0)}, nil, params)

	require.Len(t, res.Items, 2)
	// an empty shelf with no demand has a zero minimum and a zero-width OK band
	assert.Equal(t, "SUP-2", res.Items[0].Symbol)
	assert.Equal(t, domain.ProposalExcess, res.Items[0].Status)
	assert.Equal(t, 0.0, res.Items[0].MinStock)
	assert.Equal(t, domain.ProposalExcess, res.Items[1].Status)
	assert.Equal(t, 0, res.Summary.OK)
	assert.Equal(t, 2, res.Summary.Excess)
	assert.Equal(t, 30, res.Params.MinStockDays)
}

func TestCalculator_OverridesReplaceDefaults(t *testing.T) {
	overrides := map[string]domain.StockPeriodOverride{
		"SUP-1": {Symbol: "SUP-1", DeliveryTimeDays: 14, OrderFrequencyDays: 16, OptimalOrderQuantity: floatPtr(48), Notes: "pallet"},
	}

	res := newTestCalculator(t).Compute([]domain.Product{supplement("SUP-1", 10, 180)}, overrides,
		domain.ProposalParams{CategoryTag: "SUPLEMENTY", MinStockDays: 30})

	require.Len(t, res.Items, 1)
	rec := res.Items[0]
	assert.Equal(t, 60.0, rec.MinStock)
	assert.Equal(t, 50.0, rec.QuantityToOrder)
	assert.True(t, rec.HasCustomPeriod)
	require.NotNil(t, rec.OptimalOrderQuantity)
	assert.Equal(t, 48.0, *rec.OptimalOrderQuantity)
	assert.Equal(t, "pallet", rec.Notes)
}

func TestCalculator_PurchasePrice(t *testing.T) {
	c := newTestCalculator(t)

	t.Run("estimated from retail price", func(t *testing.T) {
		p := supplement("SUP-1", 50, 180)
		p.GrossPrice = 0
		net, vat, gross, estimated := c.purchasePrice(p)
		assert.True(t, estimated)
		assert.InDelta(t, 12.0, net, 1e-9)
		assert.Equal(t, 23.0, vat)
		assert.InDelta(t, 14.76, gross, 1e-9)
	})

	t.Run("recorded cost with derived vat", func(t *testing.T) {
		p := supplement("SUP-1", 50, 180)
		p.NetPrice, p.GrossPrice = 100, 108
		p.PurchaseCost = floatPtr(50)
		net, vat, gross, estimated := c.purchasePrice(p)
		assert.False(t, estimated)
		assert.Equal(t, 50.0, net)
		assert.InDelta(t, 8.0, vat, 1e-9)
		assert.InDelta(t, 54.0, gross, 1e-9)
	})

	t.Run("recorded vat wins", func(t *testing.T) {
		p := supplement("SUP-1", 50, 180)
		p.PurchaseCost = floatPtr(10)
		p.VATRate = floatPtr(5)
		_, vat, gross, _ := c.purchasePrice(p)
		assert.Equal(t, 5.0, vat)
		assert.InDelta(t, 10.5, gross, 1e-9)
	})
}

func TestCalculator_SortingAndSummary(t *testing.T) {
	products := []domain.Product{
		supplement("EXCESS", 500, 90),
		supplement("OK", 74, 180),
		supplement("BELOW-SMALL", 70, 180),
		supplement("BELOW-BIG", 10, 180),
		{Symbol: "OTHER", Purpose: "OBUWIE", Stock: 1, RecentSalesQty: 900},
		{Symbol: "NEGATIVE", Purpose: "SUPLEMENTY", Stock: -3},
	}

	res := newTestCalculator(t).Compute(products, nil, domain.ProposalParams{CategoryTag: "suplementy"})

	symbols := make([]string, len(res.Items))
	for i, it := range res.Items {
		symbols[i] = it.Symbol
	}
	assert.Equal(t, []string{"BELOW-BIG", "BELOW-SMALL", "OK", "EXCESS"}, symbols)
	assert.Equal(t, 4, res.Summary.TotalProducts)
	assert.Equal(t, 2, res.Summary.BelowMinimum)
	assert.Equal(t, 1, res.Summary.OK)
	assert.Equal(t, 1, res.Summary.Excess)
	// (64 + 4) pieces at 14.76 gross each
	assert.InDelta(t, 1003.68, res.Summary.TotalOrderValue, 0.001)
}

func TestSettings_Validate(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())

	s := DefaultSettings()
	s.RecentWindowDays = 0
	_, err := NewCalculator(s)
	assert.Error(t, err)
}
