/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the counter frontend

SECURITY NOTE:
  No authentication middleware; the service runs on the store intranet and
  the workflow layer in front of it handles attendant login.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/salespeople", h.ListSalespeople)

		r.Post("/visits", h.RecordVisit)
		r.Get("/balance", h.GetBalance)

		r.Route("/stock", func(r chi.Router) {
			r.Post("/availability", h.CheckAvailability)
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", h.Reserve)
			r.Post("/{ref}/release", h.Release)
			r.Post("/convert", h.Convert)
			r.Post("/abandon", h.Abandon)
		})

		r.Post("/sweep", h.Sweep)
	})

	return r
}
