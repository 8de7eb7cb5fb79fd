package ratelimit

import "net/http"

// Middleware rejects requests whose key is over quota by calling onLimited.
// A nil limiter disables limiting.
func Middleware(limiter Limiter, key func(*http.Request) string, onLimited http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.Context(), key(r)) {
				onLimited(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
