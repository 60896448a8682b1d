// Package warehouse extracts product, sales and receipt history from the
// retailer's SQL Server database.
package warehouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/config"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
)

// Source loads everything one analysis run needs.
type Source interface {
	FetchHistory(ctx context.Context, q Query) (*History, error)
}

// SalesSource serves filtered sales history for reporting.
type SalesSource interface {
	FetchDailySales(ctx context.Context, q Query, f domain.SalesFilter) ([]domain.DailyProductSales, error)
}

// Query parameterises the extraction. Document types and warehouse ids
// never appear as literals in query text outside the builders.
type Query struct {
	LookbackDays          int
	RecentWindowDays      int
	StockWarehouseIDs     []int
	SalesWarehouseIDs     []int
	AggregateWarehouseIDs []int
	RecentWarehouseIDs    []int
	SaleDocTypes          []int
	ReturnDocTypes        []int
	ExcludedSubtypes      []int
	VoidedStatus          int
}

// QueryFromConfig builds the extraction query from application config.
func QueryFromConfig(a config.AnalysisConfig, p config.ProposalConfig) Query {
	return Query{
		LookbackDays:          a.LookbackDays,
		RecentWindowDays:      a.RecentWindowDays,
		StockWarehouseIDs:     a.StockWarehouseIDs,
		SalesWarehouseIDs:     a.SalesWarehouseIDs,
		AggregateWarehouseIDs: a.AggregateWarehouseIDs,
		RecentWarehouseIDs:    p.WarehouseIDs,
		SaleDocTypes:          a.SaleDocTypes,
		ReturnDocTypes:        a.ReturnDocTypes,
		ExcludedSubtypes:      a.ExcludedSubtypes,
		VoidedStatus:          a.VoidedStatus,
	}
}

// Validate checks that every list the builders interpolate is present.
func (q Query) Validate() error {
	if q.LookbackDays <= 0 || q.RecentWindowDays <= 0 {
		return fmt.Errorf("lookback (%d) and recent window (%d) must be positive", q.LookbackDays, q.RecentWindowDays)
	}
	lists := map[string][]int{
		"stock warehouses":     q.StockWarehouseIDs,
		"sales warehouses":     q.SalesWarehouseIDs,
		"aggregate warehouses": q.AggregateWarehouseIDs,
		"recent warehouses":    q.RecentWarehouseIDs,
		"sale document types":  q.SaleDocTypes,
	}
	for name, list := range lists {
		if len(list) == 0 {
			return fmt.Errorf("%s must not be empty", name)
		}
	}
	return nil
}

func validateSalesFilter(q Query, f domain.SalesFilter) error {
	switch {
	case f.Days <= 0:
		return fmt.Errorf("%w: sales window must be positive, got %d days", domain.ErrInvalidInput, f.Days)
	case len(f.WarehouseIDs) == 0:
		return fmt.Errorf("%w: at least one warehouse is required", domain.ErrInvalidInput)
	case len(q.SaleDocTypes) == 0:
		return fmt.Errorf("invalid warehouse query: sale document types must not be empty")
	}
	return nil
}

// History is the raw material of one analysis run, keyed by symbol.
type History struct {
	Products        []domain.Product
	Aggregates      map[string]domain.SalesAggregate
	RecentQty       map[string]float64
	Sales           map[string][]domain.SaleEvent
	Deliveries      map[string][]domain.DeliveryEvent
	DeliveryMethods map[string]domain.DeliveryMethod
}

// UnavailableError wraps any connectivity or query failure against the
// warehouse. It matches domain.ErrSourceUnavailable.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("warehouse %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == domain.ErrSourceUnavailable
}

func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return err
	}
	return &UnavailableError{Op: op, Err: err}
}
