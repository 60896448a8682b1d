package rotation

import (
	"math/rand"
	"testing"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return testNow.AddDate(0, 0, -n)
}

func delivery(day int, qty float64) domain.DeliveryEvent {
	return domain.DeliveryEvent{Symbol: "SKU-1", Date: daysAgo(day), Quantity: qty}
}

func sale(day int, qty float64) domain.SaleEvent {
	return domain.SaleEvent{Symbol: "SKU-1", Date: daysAgo(day), Quantity: qty}
}

func TestSimulateTimeline_SameDayDeliveryBeforeSale(t *testing.T) {
	sameDay := daysAgo(3)
	deliveries := []domain.DeliveryEvent{{Date: sameDay.Add(6 * time.Hour), Quantity: 5}}
	sales := []domain.SaleEvent{{Date: sameDay, Quantity: 2}}

	tl := SimulateTimeline(deliveries, sales)

	require.Len(t, tl.Events, 2)
	assert.Equal(t, domain.EventDelivery, tl.Events[0].Kind)
	assert.Equal(t, 5.0, tl.Events[0].StockAfter)
	assert.Equal(t, domain.EventSale, tl.Events[1].Kind)
	assert.Equal(t, 3.0, tl.Events[1].StockAfter)
	assert.False(t, tl.HadZeroStock)
	assert.Nil(t, tl.LastZeroDate)
	assert.Equal(t, 0.0, tl.SalesAfterLastDelivery, "same-day sales are not after the delivery")
}

func TestSimulateTimeline_SaleExceedingHoldingsClampsAtZero(t *testing.T) {
	tl := SimulateTimeline(
		[]domain.DeliveryEvent{delivery(30, 3), delivery(10, 4)},
		[]domain.SaleEvent{sale(20, 5), sale(5, 1)},
	)

	require.Len(t, tl.Events, 4)
	assert.Equal(t, []float64{3, 0, 4, 3}, stocks(tl))
	assert.True(t, tl.HadZeroStock)
	require.NotNil(t, tl.LastZeroDate)
	assert.True(t, tl.LastZeroDate.Equal(daysAgo(20)))
	assert.Equal(t, 1.0, tl.SalesAfterLastDelivery)
	assert.Equal(t, domain.ZeroStockObserved, tl.ZeroSignal())
}

func TestSimulateTimeline_NoDeliveriesIsUnbacked(t *testing.T) {
	tl := SimulateTimeline(nil, []domain.SaleEvent{sale(40, 1), sale(2, 2)})

	assert.True(t, tl.HadZeroStock)
	assert.Equal(t, 0, tl.DeliveryCount)
	assert.Nil(t, tl.LastDeliveryDate)
	assert.Equal(t, 0.0, tl.SalesAfterLastDelivery)
	assert.Equal(t, domain.ZeroStockUnbacked, tl.ZeroSignal())
}

func TestSimulateTimeline_EmptyInput(t *testing.T) {
	tl := SimulateTimeline(nil, nil)

	assert.Empty(t, tl.Events)
	assert.False(t, tl.HadZeroStock)
	assert.Equal(t, domain.ZeroStockNone, tl.ZeroSignal())
}

func TestSimulateTimeline_SalesAfterLastDelivery(t *testing.T) {
	tl := SimulateTimeline(
		[]domain.DeliveryEvent{delivery(10, 5), delivery(100, 10)},
		[]domain.SaleEvent{sale(50, 10), sale(10, 2), sale(5, 3)},
	)

	require.NotNil(t, tl.LastDeliveryDate)
	assert.True(t, tl.LastDeliveryDate.Equal(daysAgo(10)))
	assert.Equal(t, 3.0, tl.SalesAfterLastDelivery)
	assert.Equal(t, 2, tl.DeliveryCount)
}

func TestSimulateTimeline_UnsortedInputIsOrdered(t *testing.T) {
	tl := SimulateTimeline(
		[]domain.DeliveryEvent{delivery(1, 1), delivery(60, 10)},
		[]domain.SaleEvent{sale(30, 2), sale(90, 1)},
	)

	for i := 1; i < len(tl.Events); i++ {
		assert.False(t, tl.Events[i].Date.Before(tl.Events[i-1].Date))
	}
	assert.Equal(t, domain.EventSale, tl.Events[0].Kind)
	assert.True(t, tl.HadZeroStock, "a sale before any delivery hits the floor")
}

// With no zero crossing the running delivered total must stay strictly
// above the running sold total at every prefix.
func TestSimulateTimeline_PrefixProperty(t *testing.T) {
	for seed := int64(1); seed <= 200; seed++ {
		rng := rand.New(rand.NewSource(seed))

		var deliveries []domain.DeliveryEvent
		var sales []domain.SaleEvent
		for i := 0; i < 1+rng.Intn(6); i++ {
			deliveries = append(deliveries, delivery(rng.Intn(120), float64(1+rng.Intn(20))))
		}
		for i := 0; i < rng.Intn(10); i++ {
			sales = append(sales, sale(rng.Intn(120), float64(1+rng.Intn(8))))
		}

		tl := SimulateTimeline(deliveries, sales)

		var delivered, sold float64
		exceeded := false
		for _, e := range tl.Events {
			if e.Kind == domain.EventDelivery {
				delivered += e.Quantity
			} else {
				sold += e.Quantity
			}
			if sold >= delivered {
				exceeded = true
			}
			if !tl.HadZeroStock {
				require.Greater(t, delivered, sold, "seed %d", seed)
			}
		}
		if exceeded {
			assert.True(t, tl.HadZeroStock, "seed %d", seed)
		}
	}
}

func TestSplitMalformed(t *testing.T) {
	deliveries := []domain.DeliveryEvent{delivery(5, 2), {Symbol: "SKU-1", Quantity: 3}}
	sales := []domain.SaleEvent{sale(4, -1), sale(3, 1)}

	validD, validS, malformed := splitMalformed("SKU-1", deliveries, sales)

	assert.Len(t, validD, 1)
	assert.Len(t, validS, 1)
	require.Len(t, malformed, 2)
	assert.Equal(t, "missing date", malformed[0].Reason)
	assert.Equal(t, domain.EventSale, malformed[1].Kind)
	assert.Contains(t, malformed[1].Error(), "SKU-1")
}

func stocks(tl Timeline) []float64 {
	out := make([]float64, len(tl.Events))
	for i, e := range tl.Events {
		out[i] = e.StockAfter
	}
	return out
}
