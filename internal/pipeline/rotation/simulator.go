package rotation

import (
	"sort"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
)

// SimulateTimeline replays deliveries and sales in date order, tracking a
// running stock level that starts at zero and never goes below it.
//
// Events on the same calendar day are ordered deliveries first; ties
// within a kind keep their timestamp and then input order.
func SimulateTimeline(deliveries []domain.DeliveryEvent, sales []domain.SaleEvent) Timeline {
	events := make([]domain.TimelineEvent, 0, len(deliveries)+len(sales))
	for _, d := range deliveries {
		events = append(events, domain.TimelineEvent{Date: d.Date, Kind: domain.EventDelivery, Quantity: d.Quantity})
	}
	for _, s := range sales {
		events = append(events, domain.TimelineEvent{Date: s.Date, Kind: domain.EventSale, Quantity: s.Quantity})
	}

	sort.SliceStable(events, func(i, j int) bool {
		di, dj := dayOf(events[i].Date), dayOf(events[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		if ri, rj := kindRank(events[i].Kind), kindRank(events[j].Kind); ri != rj {
			return ri < rj
		}
		return events[i].Date.Before(events[j].Date)
	})

	tl := Timeline{Events: events, DeliveryCount: len(deliveries)}

	var stock float64
	for i := range events {
		e := &events[i]
		switch e.Kind {
		case domain.EventDelivery:
			stock += e.Quantity
			date := e.Date
			tl.LastDeliveryDate = &date
		case domain.EventSale:
			stock -= e.Quantity
			if stock < 0 {
				stock = 0
			}
		}
		e.StockAfter = stock

		if stock <= 0 {
			date := e.Date
			tl.HadZeroStock = true
			tl.LastZeroDate = &date
		}
	}

	if tl.LastDeliveryDate != nil {
		cutoff := dayOf(*tl.LastDeliveryDate)
		for _, e := range events {
			if e.Kind == domain.EventSale && dayOf(e.Date).After(cutoff) {
				tl.SalesAfterLastDelivery += e.Quantity
			}
		}
	}

	return tl
}

func kindRank(kind domain.TimelineEventKind) int {
	if kind == domain.EventDelivery {
		return 0
	}
	return 1
}

// splitMalformed drops events with a missing date or an unusable quantity.
func splitMalformed(symbol string, deliveries []domain.DeliveryEvent, sales []domain.SaleEvent) ([]domain.DeliveryEvent, []domain.SaleEvent, []MalformedEvent) {
	var malformed []MalformedEvent

	validDeliveries := make([]domain.DeliveryEvent, 0, len(deliveries))
	for _, d := range deliveries {
		if reason := eventProblem(d.Date, d.Quantity); reason != "" {
			malformed = append(malformed, MalformedEvent{Symbol: symbol, Kind: domain.EventDelivery, Date: d.Date, Quantity: d.Quantity, Reason: reason})
			continue
		}
		validDeliveries = append(validDeliveries, d)
	}

	validSales := make([]domain.SaleEvent, 0, len(sales))
	for _, s := range sales {
		if reason := eventProblem(s.Date, s.Quantity); reason != "" {
			malformed = append(malformed, MalformedEvent{Symbol: symbol, Kind: domain.EventSale, Date: s.Date, Quantity: s.Quantity, Reason: reason})
			continue
		}
		validSales = append(validSales, s)
	}

	return validDeliveries, validSales, malformed
}

func eventProblem(date time.Time, qty float64) string {
	switch {
	case date.IsZero():
		return "missing date"
	case !validQuantity(qty):
		return "negative or non-finite quantity"
	default:
		return ""
	}
}
