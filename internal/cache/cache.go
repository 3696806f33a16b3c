// Package cache provides an in-process TTL cache for expensive read paths.
// The cache is never the source of truth: every entry can be recomputed
// from PostgreSQL at any time, and invalidation is by key prefix.
package cache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// TTLCache is a concurrency-safe map with per-entry expiry and a background
// janitor that sweeps expired entries.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	stop    chan struct{}
	stopped sync.Once
}

// New creates a cache and starts its janitor
func New(cleanupInterval time.Duration) *TTLCache {
	c := &TTLCache{
		entries: make(map[string]entry),
		stop:    make(chan struct{}),
	}

	go c.janitor(cleanupInterval)

	return c
}

// Get returns the live value for key, if any
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || e.expired(time.Now()) {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for ttl
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// GetOrCompute returns the cached value or computes, stores and returns a
// fresh one. Concurrent callers for the same missing key may each compute;
// last write wins, which is acceptable for idempotent reads.
func (c *TTLCache) GetOrCompute(key string, ttl time.Duration, compute func() (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := compute()
	if err != nil {
		return nil, err
	}

	c.Set(key, v, ttl)
	return v, nil
}

// Delete removes one key
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidatePrefix removes every key under the given prefix and reports how
// many entries were dropped. Matching is segment-bounded: a key matches when
// it equals the prefix or continues with the ':' delimiter, so the prefix
// "mastery:u1" never catches the sibling "mastery:u12".
func (c *TTLCache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k := range c.entries {
		if keyUnderPrefix(k, prefix) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func keyUnderPrefix(key, prefix string) bool {
	if !strings.HasPrefix(key, prefix) {
		return false
	}
	if len(key) == len(prefix) || strings.HasSuffix(prefix, ":") {
		return true
	}
	return key[len(prefix)] == ':'
}

// Len reports live entry count, counting not-yet-swept expired entries
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stop halts the janitor. The cache remains usable afterwards.
func (c *TTLCache) Stop() {
	c.stopped.Do(func() {
		close(c.stop)
	})
}

func (c *TTLCache) janitor(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *TTLCache) sweep() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
		}
	}
}
