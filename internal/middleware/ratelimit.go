package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/repohub/internal/apperror"
	"github.com/sakif/repohub/internal/auth"
	"github.com/sakif/repohub/internal/handler"
)

// RateLimiter is a fixed-window write limiter backed by Redis.
//
// FIXED WINDOW:
// The first request in a window INCRs the counter to 1 and sets its EXPIRE; every
// later request in the same window only INCRs. Once the key expires the next request
// starts a fresh window. Simple and shared across every server instance.
type RateLimiter struct {
	rdb    redis.Cmdable
	limit  int
	window time.Duration
	logger *slog.Logger
}

// NewRateLimiter allows limit writes per window per user. A nil rdb disables limiting.
func NewRateLimiter(rdb redis.Cmdable, limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{rdb: rdb, limit: limit, window: window, logger: logger}
}

// Allow counts one request for (resource, id) and reports whether it is within the limit,
// plus how long until the window resets.
func (l *RateLimiter) Allow(ctx context.Context, resource, id string) (bool, time.Duration, error) {
	key := fmt.Sprintf("rl:%s:%s", resource, id)

	cnt, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit: incr %s: %w", key, err)
	}
	if cnt == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("ratelimit: expire %s: %w", key, err)
		}
	}
	if cnt <= int64(l.limit) {
		return true, 0, nil
	}

	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = l.window
	}
	return false, ttl, nil
}

// RateLimit returns a middleware enforcing the limiter on resource. It must run after
// auth.RequireAuth: requests are keyed by the caller's user id.
//
// FAIL OPEN:
// If Redis is down the request goes through and the error is logged. Losing the
// limiter for a while is better than refusing every submission.
func RateLimit(l *RateLimiter, resource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil || l.rdb == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			allowed, retryAfter, err := l.Allow(r.Context(), resource, identity.ID)
			if err != nil {
				l.logger.Warn("rate limiter unavailable, allowing request",
					slog.String("resource", resource),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				secs := int(retryAfter.Round(time.Second).Seconds())
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				handler.WriteError(w, r, apperror.RateLimited("too many requests, try again later"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
