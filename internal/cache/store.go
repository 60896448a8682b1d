package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Clock returns the current time. Tests inject a controllable one.
type Clock func() time.Time

// kvStore is the byte-level backend shared by the typed caches.
type kvStore interface {
	get(ctx context.Context, key string) ([]byte, bool, error)
	set(ctx context.Context, key string, value []byte) error
	deletePrefix(ctx context.Context, prefix string) error
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func (s *redisStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}
	return payload, true, nil
}

func (s *redisStore) set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *redisStore) deletePrefix(ctx context.Context, prefix string) error {
	return deleteKeysWithPrefix(ctx, s.client, prefix, scanBatchSize)
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// memoryStore is an in-process TTL map.
type memoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     Clock
	entries map[string]memoryEntry
}

func newMemoryStore(ttl time.Duration, now Clock) *memoryStore {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &memoryStore{ttl: ttl, now: now, entries: make(map[string]memoryEntry)}
}

func (s *memoryStore) get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (s *memoryStore) set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{value: value, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *memoryStore) deletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	return nil
}

type noopStore struct{}

func (noopStore) get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (noopStore) set(context.Context, string, []byte) error         { return nil }
func (noopStore) deletePrefix(context.Context, string) error        { return nil }
