package middleware

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/ignatzorin/citesignal-backend/internal/cache"
	"github.com/ignatzorin/citesignal-backend/internal/http/response"
	"github.com/ignatzorin/citesignal-backend/internal/logger"
)

// KeyFunc ключ, по которому считаются запросы.
type KeyFunc func(c *gin.Context) string

// KeyByIP считает запросы по IP клиента.
func KeyByIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// KeyByUser считает запросы по пользователю, без авторизации по IP.
func KeyByUser(c *gin.Context) string {
	if raw, ok := c.Get(ContextUserIDKey); ok {
		return fmt.Sprintf("user:%v", raw)
	}
	return KeyByIP(c)
}

// NewLimiterStore хранилище счётчиков: Redis если клиент передан, иначе память процесса.
func NewLimiterStore(client redis.UniversalClient, prefix string) (limiter.Store, error) {
	if client == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          prefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		}), nil
	}
	return sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
}

// RateLimitMiddleware ограничивает число запросов limit за period по ключу keyFn.
func RateLimitMiddleware(store limiter.Store, limit int64, period time.Duration, keyFn KeyFunc) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = time.Minute
	}
	if keyFn == nil {
		keyFn = KeyByIP
	}
	instance := limiter.New(store, limiter.Rate{Period: period, Limit: limit})

	return func(c *gin.Context) {
		lctx, err := instance.Get(c.Request.Context(), keyFn(c))
		if err != nil {
			// Недоступное хранилище лимитов не должно останавливать сервис.
			logger.L().WithError(err).Warn("rate limit: хранилище недоступно, запрос пропущен")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			response.TooManyRequests(c, "too many requests, try again later")
			return
		}
		c.Next()
	}
}

// DailyQuota ограничивает число подачи обращений одним пользователем за сутки.
func DailyQuota(counter cache.Counter, limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		count, ttl, err := counter.Incr(c.Request.Context(), "submissions:"+KeyByUser(c), 24*time.Hour)
		if err != nil {
			logger.L().WithError(err).Warn("daily quota: счётчик недоступен, запрос пропущен")
			c.Next()
			return
		}
		if count > limit {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(ttl.Seconds()))))
			response.TooManyRequests(c, fmt.Sprintf("daily limit of %d reports reached", limit))
			return
		}
		c.Next()
	}
}
