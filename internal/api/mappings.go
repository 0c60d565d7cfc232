package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/luxbridge/internal/audit"
	"github.com/nerrad567/luxbridge/internal/mapping"
)

// handleListMappings returns all channel mappings.
func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	var mappings []mapping.Mapping
	if universe := parseUniverse(r.URL.Query().Get("universe")); universe > 0 {
		mappings = s.store.ByUniverse(universe)
	} else {
		mappings = s.store.List()
	}

	writeJSON(w, http.StatusOK, map[string]any{"mappings": mappings, "count": len(mappings)})
}

// handleGetMapping returns a single mapping by ID.
func (s *Server) handleGetMapping(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m, err := s.store.Get(id)
	if err != nil {
		writeMappingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// handleCreateMapping creates a new channel mapping.
//
// A running dispatch worker is restarted so the new mapping's universe
// is joined immediately.
func (s *Server) handleCreateMapping(w http.ResponseWriter, r *http.Request) {
	var m mapping.Mapping
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.store.Create(r.Context(), &m); err != nil {
		writeMappingError(w, err)
		return
	}

	s.recordAudit(r.Context(), audit.ActionCreate, audit.EntityMapping, m.ID, mappingAuditDetails(&m))
	s.restartDispatch()
	writeJSON(w, http.StatusCreated, m)
}

// handleUpdateMapping replaces an existing mapping.
func (s *Server) handleUpdateMapping(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var m mapping.Mapping
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	m.ID = id // ID comes from the path, not the body

	if err := s.store.Update(r.Context(), &m); err != nil {
		writeMappingError(w, err)
		return
	}

	s.recordAudit(r.Context(), audit.ActionUpdate, audit.EntityMapping, m.ID, mappingAuditDetails(&m))
	s.restartDispatch()
	writeJSON(w, http.StatusOK, m)
}

// handleDeleteMapping removes a mapping by ID.
func (s *Server) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.store.Delete(r.Context(), id); err != nil {
		writeMappingError(w, err)
		return
	}

	s.recordAudit(r.Context(), audit.ActionDelete, audit.EntityMapping, id, nil)
	s.restartDispatch()
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// restartDispatch applies a mapping change to a running worker.
//
// Restart failure does not fail the mutation: the mapping is already
// persisted, and a worker that cannot restart (for instance after the
// last mapping was deleted) parks itself stopped.
func (s *Server) restartDispatch() {
	if err := s.worker.RestartIfRunning(); err != nil {
		s.logger.Warn("dispatch restart after mapping change failed", "error", err)
	}
	s.announceDispatch()
}

// writeMappingError maps store errors to HTTP responses.
func writeMappingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mapping.ErrNotFound):
		writeNotFound(w, "mapping not found")
	case errors.Is(err, mapping.ErrOverlap):
		writeConflict(w, err.Error())
	case errors.Is(err, mapping.ErrInvalid), errors.Is(err, mapping.ErrInvalidMode):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		writeInternalError(w, "mapping operation failed")
	}
}

// mappingAuditDetails extracts the fields worth keeping in the audit
// trail for a mapping mutation.
func mappingAuditDetails(m *mapping.Mapping) map[string]any {
	return map[string]any{
		"light_id":      m.LightID,
		"universe":      m.Universe,
		"start_channel": m.StartChannel,
		"mode":          m.Mode,
		"enabled":       m.Enabled,
	}
}

// parseUniverse parses a universe query parameter, returning 0 when
// absent or malformed.
func parseUniverse(raw string) uint16 {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 63999 {
		return 0
	}
	return uint16(n) //nolint:gosec // range checked above
}
