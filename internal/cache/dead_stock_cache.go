package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/config"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
)

const (
	deadStockKeyPrefix = "rotation:dead_stock"
)

// DeadStockCache caches snapshot reads. Entries are keyed by the run that
// produced them, so a read of an older run can never answer for a newer one.
// An empty run ID is never cached.
type DeadStockCache interface {
	GetPage(ctx context.Context, runID string, filter domain.DeadStockFilter) (*domain.DeadStockPage, bool, error)
	SetPage(ctx context.Context, runID string, filter domain.DeadStockFilter, page *domain.DeadStockPage) error
	GetValueReport(ctx context.Context, runID string) (*domain.RotationValueReport, bool, error)
	SetValueReport(ctx context.Context, runID string, report *domain.RotationValueReport) error
	InvalidateAll(ctx context.Context) error
}

type deadStockCache struct {
	store kvStore
}

// NewDeadStockCache returns a redis-backed cache when caching is enabled
// and a no-op cache otherwise.
func NewDeadStockCache(cfg config.CacheConfig) (DeadStockCache, error) {
	if !cfg.Enabled {
		return NewNoopDeadStockCache(), nil
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &deadStockCache{
		store: &redisStore{client: client, ttl: ttlFromSeconds(cfg.DashboardTTLSeconds)},
	}, nil
}

// NewMemoryDeadStockCache builds an in-process cache. A nil clock uses time.Now.
func NewMemoryDeadStockCache(ttlSeconds int, now Clock) DeadStockCache {
	return &deadStockCache{store: newMemoryStore(ttlFromSeconds(ttlSeconds), now)}
}

func NewNoopDeadStockCache() DeadStockCache {
	return &deadStockCache{store: noopStore{}}
}

func (c *deadStockCache) GetPage(ctx context.Context, runID string, filter domain.DeadStockFilter) (*domain.DeadStockPage, bool, error) {
	if runID == "" {
		return nil, false, nil
	}

	var page domain.DeadStockPage
	ok, err := getJSON(ctx, c.store, buildDeadStockPageKey(runID, filter), &page)
	if err != nil || !ok {
		return nil, false, err
	}
	return &page, true, nil
}

func (c *deadStockCache) SetPage(ctx context.Context, runID string, filter domain.DeadStockFilter, page *domain.DeadStockPage) error {
	if runID == "" {
		return nil
	}
	return setJSON(ctx, c.store, buildDeadStockPageKey(runID, filter), page)
}

func (c *deadStockCache) GetValueReport(ctx context.Context, runID string) (*domain.RotationValueReport, bool, error) {
	if runID == "" {
		return nil, false, nil
	}

	var report domain.RotationValueReport
	ok, err := getJSON(ctx, c.store, buildDeadStockReportKey(runID), &report)
	if err != nil || !ok {
		return nil, false, err
	}
	return &report, true, nil
}

func (c *deadStockCache) SetValueReport(ctx context.Context, runID string, report *domain.RotationValueReport) error {
	if runID == "" {
		return nil
	}
	return setJSON(ctx, c.store, buildDeadStockReportKey(runID), report)
}

func (c *deadStockCache) InvalidateAll(ctx context.Context) error {
	return c.store.deletePrefix(ctx, deadStockKeyPrefix)
}

func getJSON(ctx context.Context, store kvStore, key string, dst interface{}) (bool, error) {
	payload, ok, err := store.get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return true, nil
}

func setJSON(ctx context.Context, store kvStore, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	return store.set(ctx, key, payload)
}

func buildDeadStockPageKey(runID string, filter domain.DeadStockFilter) string {
	return fmt.Sprintf("%s:%s:page:%s", deadStockKeyPrefix, runID, deadStockFilterHash(filter))
}

func buildDeadStockReportKey(runID string) string {
	return fmt.Sprintf("%s:%s:value_report", deadStockKeyPrefix, runID)
}

func deadStockFilterHash(filter domain.DeadStockFilter) string {
	parts := []string{}

	if filter.MinDays != nil {
		parts = append(parts, fmt.Sprintf("min_days=%d", *filter.MinDays))
	}
	if filter.MinValue != nil {
		parts = append(parts, fmt.Sprintf("min_value=%.2f", *filter.MinValue))
	}
	if v := strings.TrimSpace(filter.Category); v != "" {
		parts = append(parts, "category="+v)
	}
	if v := strings.TrimSpace(filter.Brand); v != "" {
		parts = append(parts, "brand="+v)
	}
	if v := strings.TrimSpace(filter.Search); v != "" {
		parts = append(parts, "search="+strings.ToLower(v))
	}
	if len(filter.RotationStatus) > 0 {
		statuses := make([]string, len(filter.RotationStatus))
		for i, s := range filter.RotationStatus {
			statuses[i] = string(s)
		}
		sort.Strings(statuses)
		parts = append(parts, "status="+strings.Join(statuses, ","))
	}
	if filter.SortBy != "" {
		parts = append(parts, "sort_by="+strings.ToLower(filter.SortBy))
	}
	if filter.SortDir != "" {
		parts = append(parts, "sort_dir="+strings.ToLower(filter.SortDir))
	}
	if filter.Page > 0 {
		parts = append(parts, fmt.Sprintf("page=%d", filter.Page))
	}
	if filter.PageSize > 0 {
		parts = append(parts, fmt.Sprintf("page_size=%d", filter.PageSize))
	}

	return hashParts(parts)
}

func hashParts(parts []string) string {
	if len(parts) == 0 {
		return "default"
	}

	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
