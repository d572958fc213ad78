package gateway

import (
	"context"
	"hash/fnv"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Rate limit response headers, emitted on every admitted and rejected request.
const (
	HeaderRateLimitLimit     = "X-Rate-Limit-Limit"
	HeaderRateLimitRemaining = "X-Rate-Limit-Remaining"
	HeaderRateLimitReset     = "X-Rate-Limit-Reset"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Duration
}

// Limiter counts requests per key inside a fixed window. Implementations must
// be safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

type fixedWindow struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is an in-process fixed-window limiter. Each key gets its own
// window that resets atomically once it elapses.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*fixedWindow
	now     func() time.Time
}

// NewMemoryLimiter builds an empty in-process limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*fixedWindow),
		now:     time.Now,
	}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &fixedWindow{resetAt: now.Add(window)}
		l.windows[key] = w
	}
	w.count++

	decision := Decision{Limit: limit, Reset: w.resetAt.Sub(now)}
	if w.count > limit {
		return decision, nil
	}
	decision.Allowed = true
	decision.Remaining = limit - w.count
	return decision, nil
}

// RedisLimiter is a fixed-window limiter backed by Redis INCR and EXPIRE, so
// the count is shared across gateway instances.
type RedisLimiter struct {
	cache *redis.Client
}

// NewRedisLimiter builds a limiter on the shared cache.
func NewRedisLimiter(cache *redis.Client) *RedisLimiter {
	return &RedisLimiter{cache: cache}
}

// Allow implements Limiter. The first hit in a window sets the expiry; the
// key then counts until Redis drops it.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	k := "rl:" + key
	count, err := l.cache.Incr(ctx, k).Result()
	if err != nil {
		return Decision{}, err
	}
	if count == 1 {
		l.cache.Expire(ctx, k, window)
	}

	reset := window
	if ttl, err := l.cache.PTTL(ctx, k).Result(); err == nil && ttl > 0 {
		reset = ttl
	}

	decision := Decision{Limit: limit, Reset: reset}
	if count > int64(limit) {
		return decision, nil
	}
	decision.Allowed = true
	decision.Remaining = limit - int(count)
	return decision, nil
}

// RateLimit admits at most policy.MaxRequests per window for each client of
// the route. Clients are told the budget through X-Rate-Limit-* headers;
// limiter backend errors fail open so a cache outage never blocks traffic.
func RateLimit(limiter Limiter, route string, policy AdmissionPolicy) fiber.Handler {
	policy = policy.withDefaults()
	return func(c *fiber.Ctx) error {
		if limiter == nil {
			return c.Next()
		}

		key := route + ":" + clientKey(c)
		decision, err := limiter.Allow(c.UserContext(), key, policy.MaxRequests, policy.Window)
		if err != nil {
			return c.Next()
		}

		c.Set(HeaderRateLimitLimit, strconv.Itoa(decision.Limit))
		c.Set(HeaderRateLimitRemaining, strconv.Itoa(decision.Remaining))
		c.Set(HeaderRateLimitReset, strconv.FormatInt(int64(decision.Reset.Round(time.Second).Seconds()), 10))

		if !decision.Allowed {
			retryAfter := int64(decision.Reset.Round(time.Second).Seconds())
			return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{
				"error":               "rate limit exceeded",
				"message":             "too many requests, try again later",
				"retry_after_seconds": retryAfter,
			})
		}
		return c.Next()
	}
}

// clientKey identifies a client as its IP plus a hash of its user agent, so
// distinct clients behind one NAT do not share a budget.
func clientKey(c *fiber.Ctx) string {
	h := fnv.New32a()
	h.Write([]byte(c.Get(fiber.HeaderUserAgent)))
	return c.IP() + "-" + strconv.FormatUint(uint64(h.Sum32()), 16)
}
