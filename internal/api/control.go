package api

import (
	"errors"
	"net/http"

	"github.com/nerrad567/luxbridge/internal/audit"
	"github.com/nerrad567/luxbridge/internal/dispatch"
)

// handleControlStart starts the dispatch worker.
func (s *Server) handleControlStart(w http.ResponseWriter, r *http.Request) {
	if err := s.worker.Start(); err != nil {
		switch {
		case errors.Is(err, dispatch.ErrAlreadyRunning):
			writeConflict(w, "dispatch already running")
		case errors.Is(err, dispatch.ErrNoMappings):
			writeConflict(w, "no enabled mappings to dispatch")
		default:
			writeInternalError(w, "failed to start dispatch")
		}
		return
	}

	status := s.worker.Status()
	s.recordAudit(r.Context(), audit.ActionStart, audit.EntityDispatch, "", map[string]any{
		"universes": status.Universes,
	})
	s.announceDispatch()
	writeJSON(w, http.StatusOK, status)
}

// handleControlStop stops the dispatch worker. Idempotent.
func (s *Server) handleControlStop(w http.ResponseWriter, r *http.Request) {
	s.worker.Stop()
	s.recordAudit(r.Context(), audit.ActionStop, audit.EntityDispatch, "", nil)
	s.announceDispatch()
	writeJSON(w, http.StatusOK, s.worker.Status())
}

// handleControlStatus returns the dispatch worker status.
func (s *Server) handleControlStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.worker.Status())
}
