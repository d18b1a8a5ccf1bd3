package ratelimit

import (
	"net/http"

	"github.com/leadline-ai/leadline-web/internal/logger"
)

// Middleware creates an HTTP middleware that applies rate limiting keyed by
// the request's remote address. Place after chi's RealIP middleware so the
// key reflects the actual client behind a reverse proxy.
func Middleware(limiter RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr

			if !limiter.Allow(r.Context(), key) {
				logger.Ctx(r.Context()).Warn("rate limit exceeded",
					"client", key, "path", r.URL.Path)
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
