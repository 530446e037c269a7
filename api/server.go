/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend
  5. Metrics:    Prometheus request counters/histograms
  6. Auth:       Bearer-token verification (API routes only)

ROUTE GROUPS:
  /api/groups/*         Group management and statements
  /api/subscriptions/*  Subscription ledger and dues
  /metrics              Prometheus scrape endpoint (unauthenticated)
  /healthz              Liveness probe

SEE ALSO:
  - handlers.go: handler implementations
  - auth.go:     token verification middleware
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler, verifier *TokenVerifier) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(MetricsMiddleware)

	// API routes (authenticated)
	r.Route("/api", func(r chi.Router) {
		r.Use(verifier.Middleware)

		r.Route("/groups", func(r chi.Router) {
			r.Get("/", h.ListGroups)
			r.Post("/", h.CreateGroup)
			r.Get("/{id}", h.GetGroup)
			r.Get("/{id}/members", h.ListGroupMembers)
			r.Get("/{id}/statements", h.GroupStatements)
			r.Post("/{id}/members", h.JoinGroup)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/{id}", h.GetSubscription)
			r.Get("/{id}/statement", h.GetStatement)
			r.Get("/{id}/collections", h.ListCollections)
			r.Post("/{id}/collections", h.RecordCollection)
		})
	})

	// Operational endpoints (unauthenticated)
	r.Handle("/metrics", MetricsHandler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
