package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/ConfabulousDev/teamdocs/internal/logger"
)

// Middleware creates an HTTP middleware that applies rate limiting by client IP.
// Run it after chi's RealIP so RemoteAddr carries the forwarded client address.
func Middleware(limiter RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r)

			if !limiter.Allow(r.Context(), key) {
				logger.Ctx(r.Context()).Warn("Rate limit exceeded", "client", key, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Rate limit exceeded. Please try again later.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey returns the rate limit key for a request: the client IP without port.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
