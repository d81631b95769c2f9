package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(context.Background(), "stats:general", []byte("42"), time.Minute))

	value, found, err := store.Get(context.Background(), "stats:general")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("42"), value)

	now = now.Add(2 * time.Minute)
	_, found, _ = store.Get(context.Background(), "stats:general")
	assert.False(t, found)
}

func TestMemoryStore_DeletePrefix(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	_ = store.Set(ctx, "stats:general", []byte("1"), time.Minute)
	_ = store.Set(ctx, "stats:period", []byte("2"), time.Minute)
	_ = store.Set(ctx, "other", []byte("3"), time.Minute)

	require.NoError(t, store.DeletePrefix(ctx, "stats:"))

	_, found, _ := store.Get(ctx, "stats:general")
	assert.False(t, found)
	_, found, _ = store.Get(ctx, "other")
	assert.True(t, found)
}

func TestGetOrSet(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	calls := 0
	compute := func() ([]byte, error) {
		calls++
		return []byte("computed"), nil
	}

	for i := 0; i < 3; i++ {
		value, err := GetOrSet(ctx, store, "k", time.Minute, compute)
		require.NoError(t, err)
		assert.Equal(t, []byte("computed"), value)
	}
	assert.Equal(t, 1, calls)

	_, err := GetOrSet(ctx, store, "failing", time.Minute, func() ([]byte, error) {
		return nil, errors.New("boom")
	})
	assert.Error(t, err)
	_, found, _ := store.Get(ctx, "failing")
	assert.False(t, found)
}

func TestMemoryCounter_Window(t *testing.T) {
	counter := NewMemoryCounter()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	counter.now = func() time.Time { return now }
	ctx := context.Background()

	count, ttl, err := counter.Incr(ctx, "user-1", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 24*time.Hour, ttl)

	now = now.Add(time.Hour)
	count, ttl, _ = counter.Incr(ctx, "user-1", 24*time.Hour)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 23*time.Hour, ttl)

	count, _, _ = counter.Incr(ctx, "user-2", 24*time.Hour)
	assert.Equal(t, int64(1), count)

	now = now.Add(24 * time.Hour)
	count, _, _ = counter.Incr(ctx, "user-1", 24*time.Hour)
	assert.Equal(t, int64(1), count)
	assert.Len(t, counter.windows, 1)
}
