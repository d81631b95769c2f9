package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter счётчик в скользящем окне: первый Incr открывает окно длиной window.
// Возвращает новое значение и время до сброса.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisCounter INCR + EXPIRE, общий для всех экземпляров.
type RedisCounter struct {
	client    redis.UniversalClient
	namespace string
}

func NewRedisCounter(client redis.UniversalClient, namespace string) *RedisCounter {
	return &RedisCounter{client: client, namespace: namespace}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	fullKey := c.namespace + ":" + key

	count, err := c.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis counter: incr %w", err)
	}
	// TTL ставится только при открытии окна.
	if count == 1 {
		if err := c.client.Expire(ctx, fullKey, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis counter: expire %w", err)
		}
		return count, window, nil
	}

	ttl, err := c.client.TTL(ctx, fullKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis counter: ttl %w", err)
	}
	if ttl < 0 {
		// Ключ без TTL (сбой между INCR и EXPIRE): восстанавливаем окно.
		if err := c.client.Expire(ctx, fullKey, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis counter: expire %w", err)
		}
		ttl = window
	}
	return count, ttl, nil
}

// MemoryCounter для одного экземпляра без Redis.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	count   int64
	resetAt time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: make(map[string]*window), now: time.Now}
}

func (c *MemoryCounter) Incr(_ context.Context, key string, d time.Duration) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	w, ok := c.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(d)}
		c.windows[key] = w
		c.gc(now)
	}
	w.count++
	return w.count, w.resetAt.Sub(now), nil
}

// gc удаляет истёкшие окна, вызывается под мьютексом.
func (c *MemoryCounter) gc(now time.Time) {
	for k, w := range c.windows {
		if !now.Before(w.resetAt) {
			delete(c.windows, k)
		}
	}
}
