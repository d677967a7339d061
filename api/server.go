/*
server.go - HTTP router and middleware configuration

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend
  5. Token:      Static bearer-token check (optional)

AUTH:
  A single static token compared as a string. When the configured token
  is empty, all endpoints are open. /api/health is always open so
  probes don't need credentials.
*/
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. token, if
// non-empty, gates every endpoint except the health probe.
func NewRouter(h *Handler, token string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(requireToken(token))

			r.Post("/refresh", h.Refresh)
			r.Get("/tables", h.Tables)
			r.Get("/stats", h.Stats)
			r.Get("/progress", h.Progress)

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/complete", h.MarkComplete)
				r.Post("/stage", h.MarkStage)
			})
		})
	})

	return r
}

// requireToken enforces the static bearer token. An empty configured
// token disables the check.
func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "Invalid or missing token", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
