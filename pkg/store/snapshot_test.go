package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time { return c.current }

func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func TestSnapshotServesCachedWithinTTL(t *testing.T) {
	clock := &fakeClock{current: time.Unix(1000, 0)}
	fetches := 0
	snap := NewSnapshot(time.Minute, clock.Now, func(context.Context) (int, error) {
		fetches++
		return fetches, nil
	})

	v, fromCache, err := snap.Get(context.Background())
	if err != nil || v != 1 || fromCache {
		t.Fatalf("first Get = (%d, %v, %v), want (1, false, nil)", v, fromCache, err)
	}

	clock.Advance(30 * time.Second)
	v, fromCache, err = snap.Get(context.Background())
	if err != nil || v != 1 || !fromCache {
		t.Fatalf("second Get = (%d, %v, %v), want cached (1, true, nil)", v, fromCache, err)
	}
	if fetches != 1 {
		t.Errorf("fetches = %d, want 1", fetches)
	}
}

func TestSnapshotRefetchesAfterTTL(t *testing.T) {
	clock := &fakeClock{current: time.Unix(1000, 0)}
	fetches := 0
	snap := NewSnapshot(time.Minute, clock.Now, func(context.Context) (int, error) {
		fetches++
		return fetches, nil
	})

	snap.Get(context.Background())
	clock.Advance(61 * time.Second)

	v, fromCache, err := snap.Get(context.Background())
	if err != nil || v != 2 || fromCache {
		t.Fatalf("Get after expiry = (%d, %v, %v), want fresh (2, false, nil)", v, fromCache, err)
	}
}

func TestSnapshotReturnsStaleOnFetchError(t *testing.T) {
	clock := &fakeClock{current: time.Unix(1000, 0)}
	fail := false
	snap := NewSnapshot(time.Minute, clock.Now, func(context.Context) (int, error) {
		if fail {
			return 0, errors.New("backend down")
		}
		return 42, nil
	})

	snap.Get(context.Background())
	fail = true
	clock.Advance(2 * time.Minute)

	v, fromCache, err := snap.Get(context.Background())
	if err == nil {
		t.Fatal("expected fetch error to surface")
	}
	if v != 42 || !fromCache {
		t.Errorf("Get = (%d, %v), want stale (42, true)", v, fromCache)
	}
}

func TestSnapshotErrorWithoutPriorValue(t *testing.T) {
	snap := NewSnapshot(time.Minute, nil, func(context.Context) (int, error) {
		return 0, errors.New("backend down")
	})

	v, fromCache, err := snap.Get(context.Background())
	if err == nil || fromCache || v != 0 {
		t.Errorf("Get = (%d, %v, %v), want zero value with error", v, fromCache, err)
	}
}

func TestSnapshotInvalidate(t *testing.T) {
	clock := &fakeClock{current: time.Unix(1000, 0)}
	fetches := 0
	snap := NewSnapshot(time.Hour, clock.Now, func(context.Context) (int, error) {
		fetches++
		return fetches, nil
	})

	snap.Get(context.Background())
	snap.Invalidate()

	v, fromCache, _ := snap.Get(context.Background())
	if v != 2 || fromCache {
		t.Errorf("Get after Invalidate = (%d, %v), want fresh (2, false)", v, fromCache)
	}
}
