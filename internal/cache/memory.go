package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store кэш байтовых значений с TTL. Реализации: MemoryStore и RedisStore.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// MemoryStore provides in-memory caching with TTL and invalidation support.
type MemoryStore struct {
	mu    sync.RWMutex
	cache map[string]*cacheEntry
	now   func() time.Time
	stop  chan struct{}
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryStore creates a new cache and starts its cleanup loop.
func NewMemoryStore() *MemoryStore {
	cs := &MemoryStore{
		cache: make(map[string]*cacheEntry),
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	// Start background cleanup goroutine
	go cs.cleanup(5 * time.Minute)

	return cs
}

// Get retrieves a value from cache.
func (cs *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	entry, exists := cs.cache[key]
	if !exists {
		return nil, false, nil
	}

	// Don't delete here, let cleanup handle it
	if cs.now().After(entry.expiresAt) {
		return nil, false, nil
	}

	return entry.data, true, nil
}

// Set stores a value in cache with TTL.
func (cs *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache[key] = &cacheEntry{
		data:      value,
		expiresAt: cs.now().Add(ttl),
	}
	return nil
}

// DeletePrefix removes all keys with the given prefix.
func (cs *MemoryStore) DeletePrefix(_ context.Context, prefix string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for key := range cs.cache {
		if strings.HasPrefix(key, prefix) {
			delete(cs.cache, key)
		}
	}
	return nil
}

// Close останавливает фоновую очистку.
func (cs *MemoryStore) Close() {
	close(cs.stop)
}

// cleanup removes expired entries periodically.
func (cs *MemoryStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-cs.stop:
			return
		case <-ticker.C:
			cs.mu.Lock()
			now := cs.now()
			for key, entry := range cs.cache {
				if now.After(entry.expiresAt) {
					delete(cs.cache, key)
				}
			}
			cs.mu.Unlock()
		}
	}
}

// GetOrSet retrieves a value from cache or computes it if not found.
// Ошибка кэша не мешает вычислению значения.
func GetOrSet(ctx context.Context, store Store, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error) {
	if value, found, err := store.Get(ctx, key); err == nil && found {
		return value, nil
	}

	value, err := fn()
	if err != nil {
		return nil, err
	}

	_ = store.Set(ctx, key, value, ttl)
	return value, nil
}
