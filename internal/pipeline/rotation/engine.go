package rotation

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
)

// ErrNotInStock marks products excluded from the snapshot because they
// hold no stock.
var ErrNotInStock = errors.New("product has no stock")

// Engine runs simulation, metrics and classification for one product.
type Engine struct {
	metrics    *MetricsCalculator
	classifier *Classifier
}

// NewEngine creates an engine with the given thresholds and sales window.
func NewEngine(t Thresholds, lookbackDays int) (*Engine, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rotation thresholds: %w", err)
	}
	return &Engine{
		metrics:    NewMetricsCalculator(lookbackDays),
		classifier: NewClassifier(t),
	}, nil
}

// Analyze builds the rotation record of one product. Malformed events are
// dropped from the input and returned alongside the record.
func (e *Engine) Analyze(in Input, now time.Time) (domain.RotationRecord, []MalformedEvent, error) {
	p := in.Product
	if strings.TrimSpace(p.Symbol) == "" {
		return domain.RotationRecord{}, nil, errors.New("product symbol is empty")
	}
	if math.IsNaN(p.Stock) || math.IsInf(p.Stock, 0) {
		return domain.RotationRecord{}, nil, fmt.Errorf("product %s has non-finite stock", p.Symbol)
	}
	if p.Stock <= 0 {
		return domain.RotationRecord{}, nil, ErrNotInStock
	}

	deliveries, sales, malformed := splitMalformed(p.Symbol, in.Deliveries, in.Sales)
	in.Deliveries = deliveries
	in.Sales = sales

	method := in.DeliveryMethod
	if len(deliveries) == 0 {
		method = domain.DeliveryMethodNone
	} else if method == "" || method == domain.DeliveryMethodNone {
		method = domain.DeliveryMethodReceipts
	}

	tl := SimulateTimeline(deliveries, sales)
	m := e.metrics.Calculate(in, tl, now)
	signal := tl.ZeroSignal()

	cls := e.classifier.Classify(Facts{
		ZeroSignal:             signal,
		Deliveries:             tl.DeliveryCount,
		SalesAfterLastDelivery: tl.SalesAfterLastDelivery,
		AgeDays:                m.ProductAgeDays,
		YearlyQuantity:         in.Aggregate.YearlyQuantity,
		DaysOfStock:            m.DaysOfStock,
		FrozenValue:            m.FrozenValue,
		DaysNoMovement:         m.DaysNoMovement,
		DaysSinceLastZero:      m.DaysSinceLastZero,
	})

	record := domain.RotationRecord{
		Symbol:                 p.Symbol,
		Name:                   p.Name,
		Brand:                  p.Brand,
		Category:               p.Category,
		Size:                   p.Size,
		Color:                  p.Color,
		Season:                 p.Season,
		Stock:                  p.Stock,
		NetPrice:               p.NetPrice,
		GrossPrice:             p.GrossPrice,
		FrozenValue:            m.FrozenValue,
		YearlyQuantity:         in.Aggregate.YearlyQuantity,
		YearlyValue:            in.Aggregate.YearlyValue,
		AvgDailySales:          m.AvgDailySales,
		DaysNoMovement:         m.DaysNoMovement,
		LastSaleDate:           in.Aggregate.LastSaleDate,
		LastStockChange:        p.LastStockChange,
		ProductAgeDays:         m.ProductAgeDays,
		HadZeroStock:           signal == domain.ZeroStockObserved,
		ZeroStockSignal:        signal,
		TotalDeliveries:        tl.DeliveryCount,
		DeliveryMethod:         method,
		SalesAfterLastDelivery: tl.SalesAfterLastDelivery,
		RotationStatus:         cls.Status,
		Recommendation:         cls.Recommendation,
		FirstSeen:              p.FirstSeen,
		AnalyzedAt:             now,
	}

	if !m.DaysOfStockInfinite() {
		dos := m.DaysOfStock
		record.DaysOfStock = &dos
	}
	if signal == domain.ZeroStockObserved {
		record.LastZeroDate = tl.LastZeroDate
		record.DaysSinceLastZero = m.DaysSinceLastZero
	}

	return record, malformed, nil
}
