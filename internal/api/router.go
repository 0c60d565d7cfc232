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
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		// Light endpoints
		r.Route("/lights", func(r chi.Router) {
			r.Get("/", s.handleListLights)
			r.Post("/discover", s.handleDiscover)
			r.Post("/probe", s.handleProbe)
			r.Post("/refresh", s.handleRefresh)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetLight)
				r.Post("/color", s.handleSetColor)
				r.Post("/power", s.handleSetPower)
			})
		})

		// Mapping endpoints
		r.Route("/mappings", func(r chi.Router) {
			r.Get("/", s.handleListMappings)
			r.Post("/", s.handleCreateMapping)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetMapping)
				r.Put("/", s.handleUpdateMapping)
				r.Delete("/", s.handleDeleteMapping)
			})
		})

		// Dispatch lifecycle endpoints
		r.Route("/control", func(r chi.Router) {
			r.Post("/start", s.handleControlStart)
			r.Post("/stop", s.handleControlStop)
			r.Get("/status", s.handleControlStatus)
		})

		// Audit trail
		r.Get("/audit", s.handleListAudit)
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

// handleStatus returns a bridge-wide status snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	stats := s.lights.Stats()

	writeJSON(w, http.StatusOK, map[string]any{
		"version":  s.version,
		"lights":   len(s.lights.Lights()),
		"mappings": s.store.Count(),
		"dispatch": s.worker.Status(),
		"lifx": map[string]any{
			"packets_sent":     stats.PacketsSent,
			"packets_received": stats.PacketsReceived,
			"packets_ignored":  stats.PacketsIgnored,
			"parse_errors":     stats.ParseErrors,
		},
	})
}
