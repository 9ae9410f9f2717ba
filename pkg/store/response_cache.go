// FILE: pkg/store/response_cache.go
// PURPOSE: TTL key-value cache that can short-circuit the pipeline

package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ResponseCache is a simple TTL store for serialized pipeline results. No
// staleness guarantee beyond the TTL and no stampede protection: concurrent
// identical requests during a cold cache may both execute the full pipeline.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
}

// CacheKey derives the lookup key from the preset, the normalized question,
// and the thresholds that change what the pipeline would produce.
func CacheKey(presetID, normalizedQuestion string, similarityThreshold float64, topK, contextTokenBudget int) string {
	payload := fmt.Sprintf("%s|%s|%.4f|%d|%d",
		presetID, normalizedQuestion, similarityThreshold, topK, contextTokenBudget)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// MemoryCache is the in-process backend.
type MemoryCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	// Purge expired items at twice the TTL; exact purge timing is not
	// load-bearing, go-cache checks expiry on read anyway.
	return &MemoryCache{
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	if v, found := m.cache.Get(key); found {
		return v.([]byte), true
	}
	return nil, false
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte) {
	m.cache.Set(key, value, cache.DefaultExpiration)
}

// RedisCache shares the cache across replicas. Errors are treated as
// misses: the cache must never fail a request.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, "guardrail:"+key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte) {
	r.client.Set(ctx, "guardrail:"+key, value, r.ttl)
}
