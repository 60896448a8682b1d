package rotation

import (
	"testing"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestMetricsCalculator_RateAndDaysOfStock(t *testing.T) {
	mc := NewMetricsCalculator(365)
	in := Input{
		Product:   domain.Product{Symbol: "SKU-1", Stock: 50, NetPrice: 4},
		Aggregate: domain.SalesAggregate{YearlyQuantity: 365},
	}

	m := mc.Calculate(in, Timeline{}, testNow)

	assert.Equal(t, 1.0, m.AvgDailySales)
	assert.Equal(t, 50.0, m.DaysOfStock)
	assert.False(t, m.DaysOfStockInfinite())
	assert.InDelta(t, 200.0, m.FrozenValue, 0.01)
}

func TestMetricsCalculator_NoSalesIsInfinite(t *testing.T) {
	m := NewMetricsCalculator(365).Calculate(Input{
		Product: domain.Product{Symbol: "SKU-1", Stock: 100, NetPrice: 10},
	}, Timeline{}, testNow)

	assert.Equal(t, 0.0, m.AvgDailySales)
	assert.True(t, m.DaysOfStockInfinite())
	assert.InDelta(t, 1000.0, m.FrozenValue, 0.01)
	assert.Equal(t, 365, m.DaysNoMovement, "no activity defaults to the full window")
}

func TestMetricsCalculator_DaysNoMovementUsesMostRecentActivity(t *testing.T) {
	tests := []struct {
		name        string
		lastSale    *time.Time
		stockChange *time.Time
		want        int
	}{
		{"stock change is newer", timePtr(daysAgo(20)), timePtr(daysAgo(5)), 5},
		{"sale is newer", timePtr(daysAgo(3)), timePtr(daysAgo(40)), 3},
		{"only sale", timePtr(daysAgo(12)), nil, 12},
		{"only stock change", nil, timePtr(daysAgo(7)), 7},
		{"neither", nil, nil, 365},
	}

	mc := NewMetricsCalculator(365)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := mc.Calculate(Input{
				Product:   domain.Product{Symbol: "SKU-1", Stock: 1, LastStockChange: tc.stockChange},
				Aggregate: domain.SalesAggregate{LastSaleDate: tc.lastSale},
			}, Timeline{}, testNow)
			assert.Equal(t, tc.want, m.DaysNoMovement)
		})
	}
}

func TestMetricsCalculator_ProductAge(t *testing.T) {
	tests := []struct {
		name       string
		deliveries []domain.DeliveryEvent
		firstSeen  *time.Time
		want       *int
	}{
		{"single delivery", []domain.DeliveryEvent{delivery(40, 6)}, nil, intPtr(40)},
		{"weighted by quantity", []domain.DeliveryEvent{delivery(100, 10), delivery(10, 5)}, nil, intPtr(70)},
		{"zero quantities fall back to plain mean", []domain.DeliveryEvent{delivery(100, 0), delivery(20, 0)}, nil, intPtr(60)},
		{"first seen fallback", nil, timePtr(daysAgo(12)), intPtr(12)},
		{"unknown", nil, nil, nil},
	}

	mc := NewMetricsCalculator(365)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := mc.Calculate(Input{
				Product:    domain.Product{Symbol: "SKU-1", Stock: 1, FirstSeen: tc.firstSeen},
				Deliveries: tc.deliveries,
			}, Timeline{}, testNow)
			if tc.want == nil {
				assert.Nil(t, m.ProductAgeDays)
				return
			}
			require.NotNil(t, m.ProductAgeDays)
			assert.Equal(t, *tc.want, *m.ProductAgeDays)
		})
	}
}

func TestMetricsCalculator_MissingPriceFreezesNothing(t *testing.T) {
	m := NewMetricsCalculator(365).Calculate(Input{
		Product: domain.Product{Symbol: "SKU-1", Stock: 10, NetPrice: -3},
	}, Timeline{}, testNow)

	assert.Equal(t, 0.0, m.FrozenValue)
}

func TestMetricsCalculator_DaysSinceLastZero(t *testing.T) {
	zero := daysAgo(50)
	m := NewMetricsCalculator(365).Calculate(Input{
		Product: domain.Product{Symbol: "SKU-1", Stock: 1},
	}, Timeline{HadZeroStock: true, LastZeroDate: &zero}, testNow)

	require.NotNil(t, m.DaysSinceLastZero)
	assert.Equal(t, 50, *m.DaysSinceLastZero)
}

func TestDaysBetween(t *testing.T) {
	late := time.Date(2026, 10, 14, 23, 59, 0, 0, time.UTC)
	early := time.Date(2026, 10, 15, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, 1, daysBetween(late, early))
	assert.Equal(t, 0, daysBetween(testNow, testNow))
}

func intPtr(v int) *int {
	return &v
}
