package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/widgetshare/internal/logging"
)

// incrWindow counts hits and starts the window on the first one.
const incrWindow = `
	local current = redis.call("INCR", KEYS[1])
	if current == 1 then
		redis.call("EXPIRE", KEYS[1], ARGV[1])
	end
	return current
`

// Evaler is the part of *redis.Client the limiter needs.
type Evaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RateLimiter allows limit requests per key in each fixed window.
type RateLimiter struct {
	redis  Evaler
	limit  int64
	window time.Duration
	prefix string
	keyFn  func(r *http.Request) string
	logger *logging.Logger
	// failOpen lets requests through when Redis errors.
	failOpen bool
}

func NewRateLimiter(client Evaler, limit int64, window time.Duration, prefix string, keyFn func(r *http.Request) string, failOpen bool, logger *logging.Logger) *RateLimiter {
	if keyFn == nil {
		keyFn = GetClientIP
	}
	if logger == nil {
		logger = logging.Default
	}
	return &RateLimiter{
		redis:    client,
		limit:    limit,
		window:   window,
		prefix:   prefix,
		keyFn:    keyFn,
		logger:   logger,
		failOpen: failOpen,
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.redis == nil {
			next.ServeHTTP(w, r)
			return
		}

		keySuffix := rl.keyFn(r)
		if keySuffix == "" {
			keySuffix = GetClientIP(r)
		}

		count, err := rl.hit(r.Context(), rl.prefix+keySuffix)
		if err != nil {
			rl.logger.Error("Rate limit Redis error", map[string]interface{}{"error": err.Error(), "prefix": rl.prefix})
			if rl.failOpen {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, http.StatusServiceUnavailable, "Rate limiting temporarily unavailable")
			return
		}

		if count > rl.limit {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int64(rl.window.Seconds())))
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) hit(ctx context.Context, key string) (int64, error) {
	ttlSeconds := int64(rl.window.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}
	result, err := rl.redis.Eval(ctx, incrWindow, []string{key}, ttlSeconds).Result()
	if err != nil {
		return 0, err
	}
	// Lua numbers come back as int64, but some proxies hand back floats.
	switch v := result.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("unexpected script result %T", result)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetClientIP extracts the client IP from the request, respecting X-Forwarded-For
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// The first entry is the client.
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
