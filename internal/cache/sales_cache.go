package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/config"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
)

const salesKeyPrefix = "rotation:sales"

// SalesCache holds sales history reports keyed by report kind and filter.
type SalesCache interface {
	GetSeasonality(ctx context.Context, filter domain.SalesFilter) (*domain.SeasonalityReport, bool, error)
	SetSeasonality(ctx context.Context, filter domain.SalesFilter, report *domain.SeasonalityReport) error
	GetSummary(ctx context.Context, filter domain.SalesFilter) (*domain.SalesSummary, bool, error)
	SetSummary(ctx context.Context, filter domain.SalesFilter, summary *domain.SalesSummary) error
}

type salesCache struct {
	store kvStore
}

// NewSalesCache uses redis when caching is enabled, process memory otherwise.
func NewSalesCache(cache config.CacheConfig, sales config.SalesConfig) (SalesCache, error) {
	if !cache.Enabled {
		return NewMemorySalesCache(sales.CacheTTLSeconds, nil), nil
	}

	client, err := newRedisClient(cache)
	if err != nil {
		return nil, err
	}
	return &salesCache{store: &redisStore{client: client, ttl: ttlFromSeconds(sales.CacheTTLSeconds)}}, nil
}

// NewMemorySalesCache builds an in-process cache. A nil clock uses time.Now.
func NewMemorySalesCache(ttlSeconds int, now Clock) SalesCache {
	return &salesCache{store: newMemoryStore(ttlFromSeconds(ttlSeconds), now)}
}

func NewNoopSalesCache() SalesCache {
	return &salesCache{store: noopStore{}}
}

func (c *salesCache) GetSeasonality(ctx context.Context, filter domain.SalesFilter) (*domain.SeasonalityReport, bool, error) {
	var report domain.SeasonalityReport
	ok, err := getJSON(ctx, c.store, buildSalesKey("seasonality", filter), &report)
	if err != nil || !ok {
		return nil, false, err
	}
	return &report, true, nil
}

func (c *salesCache) SetSeasonality(ctx context.Context, filter domain.SalesFilter, report *domain.SeasonalityReport) error {
	return setJSON(ctx, c.store, buildSalesKey("seasonality", filter), report)
}

func (c *salesCache) GetSummary(ctx context.Context, filter domain.SalesFilter) (*domain.SalesSummary, bool, error) {
	var summary domain.SalesSummary
	ok, err := getJSON(ctx, c.store, buildSalesKey("summary", filter), &summary)
	if err != nil || !ok {
		return nil, false, err
	}
	return &summary, true, nil
}

func (c *salesCache) SetSummary(ctx context.Context, filter domain.SalesFilter, summary *domain.SalesSummary) error {
	return setJSON(ctx, c.store, buildSalesKey("summary", filter), summary)
}

func buildSalesKey(kind string, filter domain.SalesFilter) string {
	warehouses := make([]string, len(filter.WarehouseIDs))
	for i, id := range filter.WarehouseIDs {
		warehouses[i] = fmt.Sprint(id)
	}
	parts := []string{
		"warehouses=" + strings.Join(warehouses, ","),
		"category=" + filter.Category,
		"brand=" + filter.Brand,
		"symbol=" + filter.Symbol,
		fmt.Sprintf("days=%d", filter.Days),
	}
	return fmt.Sprintf("%s:%s:%s", salesKeyPrefix, kind, hashParts(parts))
}
