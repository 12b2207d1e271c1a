package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Rate limiting constants
const (
	RateLimitWindow     = time.Minute
	RateLimitKeyTTL     = 65 * time.Second
	RateLimitRedisWait  = 200 * time.Millisecond
	RateLimitKeyPrefix  = "ratelimit:"
	limiterIdleTimeout  = 10 * time.Minute
	limiterPruneTrigger = 1024
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter provides per-IP rate limiting. With a Redis client it counts
// requests in fixed one-minute windows shared by all instances; otherwise,
// and whenever Redis fails, it uses in-process token buckets.
type RateLimiter struct {
	rpm   int
	redis *redis.Client

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// NewRateLimiter creates a limiter allowing rpm requests per minute per
// client. rpm <= 0 disables limiting.
func NewRateLimiter(rpm int, redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{
		rpm:     rpm,
		redis:   redisClient,
		clients: make(map[string]*clientLimiter),
	}
}

// Allow returns whether the request is allowed and the remaining quota (best-effort)
func (r *RateLimiter) Allow(ctx context.Context, ip string) (bool, int) {
	if r == nil || r.rpm <= 0 {
		return true, -1
	}
	if r.redis != nil {
		allowed, remaining, err := r.allowRedis(ctx, ip)
		if err == nil {
			return allowed, remaining
		}
		log.Printf("WARN: redis rate limiter unavailable, using in-memory limiter: %v", err)
	}
	return r.allowInMem(ip)
}

func (r *RateLimiter) allowRedis(ctx context.Context, ip string) (bool, int, error) {
	ctx, cancel := context.WithTimeout(ctx, RateLimitRedisWait)
	defer cancel()

	key := windowKey(ip, time.Now())
	var incr *redis.IntCmd
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, RateLimitKeyTTL)
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	n := incr.Val()
	return int(n) <= r.rpm, r.rpm - int(n), nil
}

func (r *RateLimiter) allowInMem(ip string) (bool, int) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.clients) >= limiterPruneTrigger {
		for key, c := range r.clients {
			if now.Sub(c.lastSeen) > limiterIdleTimeout {
				delete(r.clients, key)
			}
		}
	}

	c, ok := r.clients[ip]
	if !ok {
		c = &clientLimiter{
			limiter: rate.NewLimiter(rate.Every(RateLimitWindow/time.Duration(r.rpm)), r.rpm),
		}
		r.clients[ip] = c
	}
	c.lastSeen = now

	allowed := c.limiter.AllowN(now, 1)
	return allowed, int(c.limiter.TokensAt(now))
}

// windowKey returns the Redis key for the window containing t
func windowKey(ip string, t time.Time) string {
	return fmt.Sprintf("%s%s:%d", RateLimitKeyPrefix, ip, t.Unix()/int64(RateLimitWindow/time.Second))
}

// RateLimit rejects requests over the per-client quota with 429
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining := limiter.Allow(c.Request.Context(), c.ClientIP())
		if remaining >= 0 {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
