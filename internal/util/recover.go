package util

import (
	"net/http"
	"runtime/debug"
)

// WithRecover turns a handler panic into a call to onPanic, after logging
// the value and stack with the request-scoped logger.
func WithRecover(onPanic func(w http.ResponseWriter, r *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				LoggerFromContext(r.Context()).Error(
					"panic recovered",
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				onPanic(w, r)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
