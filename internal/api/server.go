// ABOUTME: HTTP router for the read-only JSON API over the local store.
// ABOUTME: Wires chi middleware and the /api route tree to Handler methods.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// AllowedOrigins enables CORS for browser dashboards. Empty disables it.
	AllowedOrigins []string
}

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/coverage", h.GetCoverage)
		r.Get("/plan", h.GetPlan)
		r.Get("/summary", h.GetSummary)

		r.Route("/metrics", func(r chi.Router) {
			r.Get("/", h.ListMetrics)
			r.Get("/{metric}/series", h.GetSeries)
			r.Get("/{metric}/days/{day}", h.GetDay)
		})
	})

	return r
}
