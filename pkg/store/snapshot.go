// FILE: pkg/store/snapshot.go
// PURPOSE: TTL snapshot of a read-mostly remote value with an explicit clock

package store

import (
	"context"
	"sync"
	"time"
)

// Snapshot caches one fetched value with a fixed TTL. The clock is injected
// so expiry can be tested without sleeping. There is deliberately no
// single-flight protection: concurrent requests racing past an expired TTL
// may each refetch, which is accepted because the refreshed value is
// idempotent.
type Snapshot[T any] struct {
	mu        sync.Mutex
	value     T
	fetchedAt time.Time
	loaded    bool

	ttl   time.Duration
	now   func() time.Time
	fetch func(ctx context.Context) (T, error)
}

func NewSnapshot[T any](ttl time.Duration, now func() time.Time, fetch func(ctx context.Context) (T, error)) *Snapshot[T] {
	if now == nil {
		now = time.Now
	}
	return &Snapshot[T]{ttl: ttl, now: now, fetch: fetch}
}

// Get returns the cached value when fresh, otherwise refetches
// synchronously. fromCache reports whether the returned value was served
// from the snapshot. When the refetch fails and a stale value exists, the
// stale value is returned alongside the error so the caller can decide.
func (s *Snapshot[T]) Get(ctx context.Context) (value T, fromCache bool, err error) {
	s.mu.Lock()
	if s.loaded && s.now().Sub(s.fetchedAt) < s.ttl {
		v := s.value
		s.mu.Unlock()
		return v, true, nil
	}
	s.mu.Unlock()

	// Fetch outside the lock: racing requests may each refetch.
	fresh, err := s.fetch(ctx)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.loaded {
			return s.value, true, err
		}
		var zero T
		return zero, false, err
	}

	s.mu.Lock()
	s.value = fresh
	s.fetchedAt = s.now()
	s.loaded = true
	s.mu.Unlock()
	return fresh, false, nil
}

// Invalidate forces the next Get to refetch.
func (s *Snapshot[T]) Invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
}
