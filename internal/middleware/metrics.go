package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// RequestObserver is satisfied by metrics.Metrics.
type RequestObserver interface {
	RequestStarted() func(method, path, status string, d time.Duration)
}

// WithMetrics records count, latency and in-flight requests. The path label
// is the chi route pattern, so ids in URLs do not explode cardinality.
func WithMetrics(obs RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			done := obs.RequestStarted()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			path := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					path = p
				}
			}

			done(r.Method, path, strconv.Itoa(rec.status), time.Since(start))
		})
	}
}
