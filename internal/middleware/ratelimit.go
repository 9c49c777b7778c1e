package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/topupgh/topup-api/internal/pkg/response"
)

// RateLimit returns a Redis-backed fixed-window limiter keyed by client IP.
// A nil client disables limiting (Redis is optional in development).
func RateLimit(rdb *redis.Client, maxPerMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rdb == nil || maxPerMinute <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := fmt.Sprintf("ratelimit:%s:%d", clientIP(r), time.Now().Unix()/60)

			count, err := rdb.Incr(r.Context(), key).Result()
			if err != nil {
				// Limiter must never take the API down with it
				log.Warn().Err(err).Msg("Rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rdb.Expire(r.Context(), key, time.Minute)
			}

			if count > int64(maxPerMinute) {
				response.TooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
