package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)

		// WebSocket upgrades cannot carry an Authorization header from
		// browsers, so auth is via single-use ticket validated in the handler.
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// WS ticket requires authentication - operator must be logged in
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Scan endpoints
			r.Route("/scans", func(r chi.Router) {
				r.Post("/", s.handleRunScan)
				r.Get("/", s.handleListScans)
				r.Delete("/{handle}", s.handleCancelScan)
			})

			// Extraction artifacts
			r.Get("/extractions", s.handleListExtractions)

			// Chain-of-custody journal (only when a journal is wired)
			if s.audit != nil {
				r.Get("/audit", s.handleListAudit)
			}
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
