package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/luxbridge/internal/audit"
	"github.com/nerrad567/luxbridge/internal/lifx"
)

// lightResponse is the JSON shape for a discovered light.
type lightResponse struct {
	ID       string        `json:"id"`
	IP       string        `json:"ip"`
	Port     int           `json:"port"`
	Label    string        `json:"label"`
	Model    string        `json:"model"`
	Vendor   uint32        `json:"vendor"`
	Product  uint32        `json:"product"`
	Power    bool          `json:"power"`
	Color    colorResponse `json:"color"`
	LastSeen time.Time     `json:"last_seen"`
}

// colorResponse is the JSON shape for an HSBK value.
type colorResponse struct {
	Hue        uint16 `json:"hue"`
	Saturation uint16 `json:"saturation"`
	Brightness uint16 `json:"brightness"`
	Kelvin     uint16 `json:"kelvin"`
}

// toLightResponse converts a device to its API representation.
func toLightResponse(d lifx.Device) lightResponse {
	return lightResponse{
		ID:      d.ID,
		IP:      d.IP,
		Port:    d.Port,
		Label:   d.Label,
		Model:   d.Model,
		Vendor:  d.Vendor,
		Product: d.Product,
		Power:   d.IsOn(),
		Color: colorResponse{
			Hue:        d.Color.Hue,
			Saturation: d.Color.Saturation,
			Brightness: d.Color.Brightness,
			Kelvin:     d.Color.Kelvin,
		},
		LastSeen: d.LastSeen,
	}
}

// handleListLights returns all known lights.
func (s *Server) handleListLights(w http.ResponseWriter, _ *http.Request) {
	devices := s.lights.Lights()

	lights := make([]lightResponse, 0, len(devices))
	for _, d := range devices {
		lights = append(lights, toLightResponse(d))
	}

	writeJSON(w, http.StatusOK, map[string]any{"lights": lights, "count": len(lights)})
}

// handleGetLight returns a single light by ID.
func (s *Server) handleGetLight(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	device, ok := s.lights.Light(id)
	if !ok {
		writeNotFound(w, "light not found")
		return
	}

	writeJSON(w, http.StatusOK, toLightResponse(device))
}

// handleDiscover runs a broadcast discovery sweep.
//
// Blocks for the dwell and settle windows (several seconds), then
// returns every light known afterwards, newly found or not.
func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	devices, err := s.lights.Discover(r.Context())
	if err != nil {
		writeInternalError(w, "discovery failed")
		return
	}
	elapsed := time.Since(start)

	s.recordAudit(r.Context(), audit.ActionDiscover, audit.EntityLights, "", map[string]any{
		"lights":     len(devices),
		"elapsed_ms": elapsed.Milliseconds(),
	})
	if s.announcer != nil {
		s.announcer.AnnounceDiscovery(len(devices), elapsed)
		for _, d := range devices {
			s.announcer.AnnounceLightState(d)
		}
	}

	lights := make([]lightResponse, 0, len(devices))
	for _, d := range devices {
		lights = append(lights, toLightResponse(d))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"lights":     lights,
		"count":      len(lights),
		"elapsed_ms": elapsed.Milliseconds(),
	})
}

// probeRequest is the body for POST /lights/probe.
type probeRequest struct {
	IP string `json:"ip"`
}

// handleProbe probes a single IP address for a light.
//
// For lights on other subnets, where broadcast discovery cannot reach.
func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	var req probeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if net.ParseIP(req.IP) == nil {
		writeBadRequest(w, "ip must be a valid IP address")
		return
	}

	device, err := s.lights.ProbeAddr(r.Context(), req.IP)
	if err != nil {
		switch {
		case errors.Is(err, lifx.ErrProbeTimeout):
			writeNotFound(w, "no device answered at "+req.IP)
		case errors.Is(err, lifx.ErrNotALight):
			writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation,
				"device at "+req.IP+" is a switch, not a light")
		default:
			writeInternalError(w, "probe failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, toLightResponse(device))
}

// handleRefresh asks every known light for a fresh state report.
// Replies arrive asynchronously and fold into the registry.
func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.lights.RefreshStates()
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "requested"})
}

// colorRequest is the body for POST /lights/{id}/color.
type colorRequest struct {
	Hue        uint16 `json:"hue"`
	Saturation uint16 `json:"saturation"`
	Brightness uint16 `json:"brightness"`
	Kelvin     uint16 `json:"kelvin"`
	DurationMs uint32 `json:"duration_ms"`
}

// handleSetColor sets a light's colour directly, outside dispatch.
func (s *Server) handleSetColor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req colorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	kelvin := req.Kelvin
	if kelvin == 0 {
		kelvin = lifx.DefaultKelvin
	}

	color := lifx.HSBK{
		Hue:        req.Hue,
		Saturation: req.Saturation,
		Brightness: req.Brightness,
		Kelvin:     kelvin,
	}
	fade := time.Duration(req.DurationMs) * time.Millisecond

	if err := s.lights.SetColor(id, color, fade); err != nil {
		writeLightError(w, err)
		return
	}
	s.announceLightState(id)

	writeJSON(w, http.StatusOK, map[string]any{"status": "sent"})
}

// powerRequest is the body for POST /lights/{id}/power.
type powerRequest struct {
	On         bool   `json:"on"`
	DurationMs uint32 `json:"duration_ms"`
}

// handleSetPower sets a light's power level directly.
func (s *Server) handleSetPower(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req powerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	fade := time.Duration(req.DurationMs) * time.Millisecond
	if err := s.lights.SetPower(id, req.On, fade); err != nil {
		writeLightError(w, err)
		return
	}
	s.announceLightState(id)

	writeJSON(w, http.StatusOK, map[string]any{"status": "sent"})
}

// writeLightError maps LIFX command errors to HTTP responses.
func writeLightError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifx.ErrInvalidDeviceID):
		writeBadRequest(w, "invalid light ID")
	case errors.Is(err, lifx.ErrDeviceNotFound):
		writeNotFound(w, "light not found")
	default:
		writeInternalError(w, "command failed")
	}
}
