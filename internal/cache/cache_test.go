package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *TTLCache {
	t.Helper()
	c := New(time.Hour)
	t.Cleanup(c.Stop)
	return c
}

func TestSetGet(t *testing.T) {
	c := newTestCache(t)

	c.Set("profile:u1", "value", time.Minute)

	v, ok := c.Get("profile:u1")
	require.True(t, ok)
	assert.Equal(t, "value", v)

	_, ok = c.Get("profile:u2")
	assert.False(t, ok)
}

func TestGet_ExpiredEntry(t *testing.T) {
	c := newTestCache(t)

	c.Set("k", "v", -time.Second)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestGetOrCompute(t *testing.T) {
	c := newTestCache(t)

	computed := 0
	compute := func() (any, error) {
		computed++
		return "fresh", nil
	}

	v, err := c.GetOrCompute("k", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, 1, computed)

	// Second call hits the cache.
	v, err = c.GetOrCompute("k", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, 1, computed)
}

func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	c := newTestCache(t)

	boom := errors.New("db down")
	_, err := c.GetOrCompute("k", time.Minute, func() (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	// Failure left nothing behind; next call computes again.
	v, err := c.GetOrCompute("k", time.Minute, func() (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestInvalidatePrefix(t *testing.T) {
	c := newTestCache(t)

	c.Set(Key(NamespaceJourney, "u1"), 1, time.Minute)
	c.Set(Key(NamespaceMastery, "u1"), 2, time.Minute)
	c.Set(Key(NamespaceJourney, "u2"), 3, time.Minute)

	removed := c.InvalidatePrefix(Key(NamespaceJourney, "u1"))
	assert.Equal(t, 1, removed)

	_, ok := c.Get(Key(NamespaceJourney, "u1"))
	assert.False(t, ok)

	// Other users and namespaces untouched.
	_, ok = c.Get(Key(NamespaceMastery, "u1"))
	assert.True(t, ok)
	_, ok = c.Get(Key(NamespaceJourney, "u2"))
	assert.True(t, ok)
}

func TestInvalidatePrefix_SegmentBounded(t *testing.T) {
	c := newTestCache(t)

	c.Set(Key(NamespaceMastery, "u1"), 1, time.Minute)
	c.Set(Key(NamespaceMastery, "u12"), 2, time.Minute)

	// "mastery:u1" is not a segment prefix of "mastery:u12".
	removed := c.InvalidatePrefix(Key(NamespaceMastery, "u1"))
	assert.Equal(t, 1, removed)

	_, ok := c.Get(Key(NamespaceMastery, "u1"))
	assert.False(t, ok)
	_, ok = c.Get(Key(NamespaceMastery, "u12"))
	assert.True(t, ok)
}

func TestInvalidatePrefix_WholeNamespace(t *testing.T) {
	c := newTestCache(t)

	c.Set(Key(NamespaceJourney, "u1"), 1, time.Minute)
	c.Set(Key(NamespaceJourney, "u2"), 2, time.Minute)

	removed := c.InvalidatePrefix(NamespaceJourney + ":")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, c.Len())
}

func TestSweepRemovesExpired(t *testing.T) {
	c := newTestCache(t)

	c.Set("live", 1, time.Minute)
	c.Set("dead", 2, -time.Second)
	require.Equal(t, 2, c.Len())

	c.sweep()

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("live")
	assert.True(t, ok)
}

func TestDelete(t *testing.T) {
	c := newTestCache(t)

	c.Set("k", 1, time.Minute)
	c.Delete("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "profile:u1", Key(NamespaceProfile, "u1"))
	assert.Len(t, AllNamespaces, 5)
}
