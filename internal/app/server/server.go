// Package server assembles the HTTP router of the breed ledger.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/atinyakov/dogify/internal/app/handler"
	"github.com/atinyakov/dogify/internal/app/service"
	"github.com/atinyakov/dogify/internal/middleware"
)

// Options carries everything the router needs besides the ledger.
type Options struct {
	Auth           service.AuthIface
	Metrics        middleware.RequestObserver
	Gatherer       prometheus.Gatherer
	TrustedSubnet  string
	MaxUploadBytes int64
	// UploadRPS and UploadBurst limit uploads per user. Zero RPS disables the limit.
	UploadRPS   float64
	UploadBurst int
}

// Init builds the router.
func Init(ledger service.LedgerIface, opts Options, logger *zap.Logger) *chi.Mux {
	get := handler.NewGet(ledger, logger)
	post := handler.NewPost(ledger, opts.MaxUploadBytes, logger)
	del := handler.NewDelete(ledger, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.Recoverer)
	if opts.Metrics != nil {
		r.Use(middleware.WithMetrics(opts.Metrics))
	}
	r.Use(middleware.WithJWT(opts.Auth, logger))
	r.Use(middleware.WithRequestLogging(logger))

	r.Get("/ping", get.Ping)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/blob/{ref}", get.Blob)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.WithGunzip, middleware.WithGZIP)

		r.Get("/breeds", get.Breeds)
		r.Post("/classify", post.Classify)

		upload := http.Handler(http.HandlerFunc(post.Upload))
		if opts.UploadRPS > 0 {
			upload = middleware.NewRateLimiter(opts.UploadRPS, opts.UploadBurst, middleware.KeyByUserOrIP).Handler(upload)
		}
		r.Method(http.MethodPost, "/images", upload)

		r.Get("/user/images", get.Images)
		r.Delete("/user/images/{id}", del.Image)

		r.With(middleware.WithSubnet(opts.TrustedSubnet)).Get("/internal/stats", get.Stats)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Route not found", http.StatusNotFound)
	})

	return r
}
