package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/af-corp/taskrouter/internal/tenant"
)

// NewRouter wires the HTTP API. limits wraps the routing endpoints and may
// be nil.
func NewRouter(h *Handler, limits func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)

	r.Get("/healthz", h.Healthz)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/providers", h.Providers)
		r.Get("/categories", h.Categories)
		r.Post("/classify", h.Classify)

		r.Group(func(r chi.Router) {
			r.Use(tenant.Middleware)
			if limits != nil {
				r.Use(limits)
			}
			r.Post("/route", h.Route)
		})
	})
	return r
}
