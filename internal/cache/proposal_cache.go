package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/stock-rotation/backend-go/internal/config"
	"github.com/andresuchdata/stock-rotation/backend-go/internal/domain"
)

const proposalKeyPrefix = "rotation:proposals"

// ProposalCache holds computed proposal results keyed by their parameters.
type ProposalCache interface {
	Get(ctx context.Context, params domain.ProposalParams) (*domain.ProposalResult, bool, error)
	Set(ctx context.Context, params domain.ProposalParams, result *domain.ProposalResult) error
	InvalidateAll(ctx context.Context) error
}

type proposalCache struct {
	store kvStore
}

// NewProposalCache uses redis when caching is enabled. Otherwise results
// are kept in process memory for the configured TTL.
func NewProposalCache(cache config.CacheConfig, proposals config.ProposalConfig) (ProposalCache, error) {
	ttl := ttlFromSeconds(proposals.CacheTTLSeconds)
	if !cache.Enabled {
		return NewMemoryProposalCache(proposals.CacheTTLSeconds, nil), nil
	}

	client, err := newRedisClient(cache)
	if err != nil {
		return nil, err
	}
	return &proposalCache{store: &redisStore{client: client, ttl: ttl}}, nil
}

// NewMemoryProposalCache builds an in-process cache. A nil clock uses time.Now.
func NewMemoryProposalCache(ttlSeconds int, now Clock) ProposalCache {
	return &proposalCache{store: newMemoryStore(ttlFromSeconds(ttlSeconds), now)}
}

func NewNoopProposalCache() ProposalCache {
	return &proposalCache{store: noopStore{}}
}

func (c *proposalCache) Get(ctx context.Context, params domain.ProposalParams) (*domain.ProposalResult, bool, error) {
	var result domain.ProposalResult
	ok, err := getJSON(ctx, c.store, buildProposalKey(params), &result)
	if err != nil || !ok {
		return nil, false, err
	}
	return &result, true, nil
}

func (c *proposalCache) Set(ctx context.Context, params domain.ProposalParams, result *domain.ProposalResult) error {
	return setJSON(ctx, c.store, buildProposalKey(params), result)
}

func (c *proposalCache) InvalidateAll(ctx context.Context) error {
	return c.store.deletePrefix(ctx, proposalKeyPrefix)
}

func buildProposalKey(params domain.ProposalParams) string {
	parts := []string{
		"category=" + strings.ToUpper(strings.TrimSpace(params.CategoryTag)),
		fmt.Sprintf("min_stock_days=%d", params.MinStockDays),
	}
	return fmt.Sprintf("%s:%s", proposalKeyPrefix, hashParts(parts))
}
