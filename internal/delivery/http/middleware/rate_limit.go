package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"rsi-website-backend/config"
	"rsi-website-backend/internal/delivery/http/response"
	"rsi-website-backend/pkg/logger"
	"rsi-website-backend/pkg/security"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Time window duration
	Window time.Duration
	// Custom key extractor (default: IP-based)
	KeyFunc func(*gin.Context) string
	// Key prefix for Redis (default: "rl:ip:")
	KeyPrefix string
	// Shared counter store; nil means in-memory only
	Redis *goredis.Client
	// Security event sink; nil means the process default
	Events *security.SecurityLogger
}

// Lua script for atomic increment with TTL on first set
// KEYS[1] = counter key
// ARGV[1] = TTL in seconds
// Returns: [current_count, ttl_remaining]
const rateLimitLuaScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
return {count, ttl}
`

// ContactRateLimitConfig limits contact submissions per client IP.
func ContactRateLimitConfig(cfg *config.Config, client *goredis.Client, events *security.SecurityLogger) RateLimitConfig {
	return RateLimitConfig{
		Limit:     cfg.ContactRateLimit,
		Window:    cfg.ContactRateWindow,
		KeyPrefix: "rl:contact:",
		Redis:     client,
		Events:    events,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

// rateLimitEntry tracks request count for a key (in-memory fallback)
type rateLimitEntry struct {
	count   int
	resetAt time.Time
}

// memoryStore is a fixed-window counter per key. Expired entries are swept
// at most once per window.
type memoryStore struct {
	mu        sync.Mutex
	entries   map[string]*rateLimitEntry
	window    time.Duration
	nextSweep time.Time
}

func newMemoryStore(window time.Duration) *memoryStore {
	return &memoryStore{entries: make(map[string]*rateLimitEntry), window: window}
}

func (s *memoryStore) incr(key string, now time.Time) (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.After(s.nextSweep) {
		for k, e := range s.entries {
			if !now.Before(e.resetAt) {
				delete(s.entries, k)
			}
		}
		s.nextSweep = now.Add(s.window)
	}

	entry, ok := s.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		entry = &rateLimitEntry{resetAt: now.Add(s.window)}
		s.entries[key] = entry
	}
	entry.count++

	return entry.count, entry.resetAt
}

// RateLimitMiddleware creates a rate limiting middleware with the given config.
// Uses Redis when available and falls back to in-memory counting when Redis
// errors. Requests over the limit are rejected, never queued.
func RateLimitMiddleware(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rl:ip:"
	}
	store := newMemoryStore(cfg.Window)

	return func(c *gin.Context) {
		fullKey := cfg.KeyPrefix + cfg.KeyFunc(c)

		var count int
		var resetAt time.Time
		var err error

		if cfg.Redis != nil {
			count, resetAt, err = checkRateLimitRedis(c.Request.Context(), cfg.Redis, fullKey, cfg.Window)
			if err != nil {
				logger.Log.Warn("rate limit store unavailable, using in-memory counter", "error", err)
				count, resetAt = store.incr(fullKey, time.Now())
			}
		} else {
			count, resetAt = store.incr(fullKey, time.Now())
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Reset", resetAt.UTC().Format(time.RFC3339))

		if count > cfg.Limit {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			events := cfg.Events
			if events == nil {
				events = security.DefaultLogger()
			}
			events.LogRateLimitTriggered(c.Request.Context(), c.ClientIP(), c.GetHeader("User-Agent"), c.GetString(RequestIDKey), c.FullPath())

			response.Error(c, http.StatusTooManyRequests, "Too many submissions. Please try again later.", nil)
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(cfg.Limit-count))
		c.Next()
	}
}

// checkRateLimitRedis checks rate limit using Redis with atomic Lua script
func checkRateLimitRedis(ctx context.Context, client *goredis.Client, key string, window time.Duration) (int, time.Time, error) {
	ttlSeconds := int(window.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	result, err := client.Eval(ctx, rateLimitLuaScript, []string{key}, ttlSeconds).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis rate limit eval failed: %w", err)
	}

	// Parse result [count, ttl]
	arr, ok := result.([]interface{})
	if !ok || len(arr) < 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected redis result format")
	}

	count, _ := arr[0].(int64)
	ttl, _ := arr[1].(int64)

	return int(count), time.Now().Add(time.Duration(ttl) * time.Second), nil
}
