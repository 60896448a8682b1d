package rotation

import (
	"testing"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultThresholds(), 365)
	require.NoError(t, err)
	return e
}

func TestEngine_DeadStockScenario(t *testing.T) {
	rec, malformed, err := newTestEngine(t).Analyze(Input{
		Product:        domain.Product{Symbol: "SKU-DEAD", Stock: 100, NetPrice: 10.00},
		Deliveries:     []domain.DeliveryEvent{delivery(120, 100)},
		DeliveryMethod: domain.DeliveryMethodReceipts,
	}, testNow)

	require.NoError(t, err)
	assert.Empty(t, malformed)
	assert.InDelta(t, 1000.00, rec.FrozenValue, 0.01)
	assert.Nil(t, rec.DaysOfStock)
	assert.True(t, rec.DaysOfStockInfinite())
	require.NotNil(t, rec.ProductAgeDays)
	assert.Equal(t, 120, *rec.ProductAgeDays)
	assert.Equal(t, domain.StatusDead, rec.RotationStatus)
	assert.Equal(t, domain.DeliveryMethodReceipts, rec.DeliveryMethod)
}

func TestEngine_FastScenario(t *testing.T) {
	lastSale := daysAgo(1)
	rec, _, err := newTestEngine(t).Analyze(Input{
		Product:    domain.Product{Symbol: "SKU-FAST", Stock: 50, NetPrice: 2},
		Aggregate:  domain.SalesAggregate{YearlyQuantity: 365, LastSaleDate: &lastSale},
		Deliveries: []domain.DeliveryEvent{delivery(200, 415)},
		Sales:      []domain.SaleEvent{sale(100, 200), sale(1, 165)},
	}, testNow)

	require.NoError(t, err)
	assert.Equal(t, 1.0, rec.AvgDailySales)
	require.NotNil(t, rec.DaysOfStock)
	assert.Equal(t, 50.0, *rec.DaysOfStock)
	assert.Equal(t, domain.StatusFast, rec.RotationStatus)
	assert.Equal(t, 1, rec.DaysNoMovement)
	assert.False(t, rec.HadZeroStock)
}

func TestEngine_RepeatedNoSalesScenario(t *testing.T) {
	rec, _, err := newTestEngine(t).Analyze(Input{
		Product:    domain.Product{Symbol: "SKU-REP", Stock: 5, NetPrice: 8},
		Aggregate:  domain.SalesAggregate{YearlyQuantity: 10, LastSaleDate: timePtr(daysAgo(50))},
		Deliveries: []domain.DeliveryEvent{delivery(100, 10), delivery(10, 5)},
		Sales:      []domain.SaleEvent{sale(50, 10)},
	}, testNow)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusRepeatedNoSales, rec.RotationStatus)
	assert.True(t, rec.HadZeroStock)
	assert.Equal(t, domain.ZeroStockObserved, rec.ZeroStockSignal)
	require.NotNil(t, rec.LastZeroDate)
	assert.True(t, rec.LastZeroDate.Equal(daysAgo(50)))
	require.NotNil(t, rec.DaysSinceLastZero)
	assert.Equal(t, 50, *rec.DaysSinceLastZero)
	assert.Equal(t, 2, rec.TotalDeliveries)
	assert.Equal(t, 0.0, rec.SalesAfterLastDelivery)
	require.NotNil(t, rec.ProductAgeDays)
	assert.Equal(t, 70, *rec.ProductAgeDays)
	assert.Contains(t, rec.Recommendation, "Do not reorder")
}

func TestEngine_NoDeliveriesIsLowConfidence(t *testing.T) {
	firstSeen := daysAgo(45)
	rec, _, err := newTestEngine(t).Analyze(Input{
		Product:        domain.Product{Symbol: "SKU-NODEL", Stock: 3, NetPrice: 1, FirstSeen: &firstSeen},
		Aggregate:      domain.SalesAggregate{YearlyQuantity: 2},
		Sales:          []domain.SaleEvent{sale(40, 1), sale(20, 1)},
		DeliveryMethod: domain.DeliveryMethodSalesProxy,
	}, testNow)

	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryMethodNone, rec.DeliveryMethod)
	assert.Equal(t, domain.ZeroStockUnbacked, rec.ZeroStockSignal)
	assert.False(t, rec.HadZeroStock)
	assert.Nil(t, rec.LastZeroDate)
	require.NotNil(t, rec.ProductAgeDays)
	assert.Equal(t, 45, *rec.ProductAgeDays)
	assert.Equal(t, domain.StatusNewSlow, rec.RotationStatus)
}

func TestEngine_SkipsProductsWithoutStock(t *testing.T) {
	_, _, err := newTestEngine(t).Analyze(Input{Product: domain.Product{Symbol: "SKU-0"}}, testNow)
	assert.ErrorIs(t, err, ErrNotInStock)

	_, _, err = newTestEngine(t).Analyze(Input{Product: domain.Product{Stock: 1}}, testNow)
	assert.Error(t, err)
}

func TestEngine_DropsMalformedEvents(t *testing.T) {
	rec, malformed, err := newTestEngine(t).Analyze(Input{
		Product:    domain.Product{Symbol: "SKU-BAD", Stock: 4, NetPrice: 1},
		Deliveries: []domain.DeliveryEvent{delivery(200, 4), {Symbol: "SKU-BAD", Quantity: 9}},
		Sales:      []domain.SaleEvent{sale(3, -2)},
	}, testNow)

	require.NoError(t, err)
	assert.Len(t, malformed, 2)
	assert.Equal(t, 1, rec.TotalDeliveries)
	assert.Equal(t, domain.StatusDead, rec.RotationStatus)
}

func TestEngine_IsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	in := Input{
		Product:    domain.Product{Symbol: "SKU-1", Stock: 12, NetPrice: 3.33},
		Aggregate:  domain.SalesAggregate{YearlyQuantity: 40, YearlyValue: 133.2},
		Deliveries: []domain.DeliveryEvent{delivery(300, 30), delivery(60, 20)},
		Sales:      []domain.SaleEvent{sale(200, 30), sale(30, 8)},
	}

	first, _, err := e.Analyze(in, testNow)
	require.NoError(t, err)
	second, _, err := e.Analyze(in, testNow.Add(time.Minute))
	require.NoError(t, err)

	second.AnalyzedAt = first.AnalyzedAt
	assert.Equal(t, first, second)
}

func TestEngine_StatusAlwaysEnumerated(t *testing.T) {
	e := newTestEngine(t)
	for stock := 1; stock <= 40; stock += 3 {
		for age := 1; age <= 400; age += 37 {
			rec, _, err := e.Analyze(Input{
				Product:    domain.Product{Symbol: "SKU", Stock: float64(stock), NetPrice: 1.5},
				Aggregate:  domain.SalesAggregate{YearlyQuantity: float64(age % 50)},
				Deliveries: []domain.DeliveryEvent{delivery(age, float64(stock))},
			}, testNow)
			require.NoError(t, err)
			assert.True(t, rec.RotationStatus.Valid())
			assert.GreaterOrEqual(t, rec.FrozenValue, 0.0)
			assert.InDelta(t, float64(stock)*1.5, rec.FrozenValue, 0.01)
			if rec.DaysOfStock != nil {
				assert.Greater(t, *rec.DaysOfStock, 0.0)
			}
		}
	}
}

func TestNewEngine_RejectsInvalidThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.SlowDays = 0
	_, err := NewEngine(th, 365)
	assert.Error(t, err)
}
