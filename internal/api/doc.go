// Package api provides the HTTP REST API for luxbridge.
//
// It exposes light discovery and control, channel mapping CRUD, and
// dispatch lifecycle operations to configuration tools and
// home-automation systems.
//
// The server follows the same lifecycle pattern as other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// # Endpoints
//
//	GET    /api/v1/health              — liveness
//	GET    /api/v1/status              — bridge-wide status snapshot
//	GET    /api/v1/lights              — known lights
//	GET    /api/v1/lights/{id}         — single light
//	POST   /api/v1/lights/discover     — broadcast discovery sweep
//	POST   /api/v1/lights/probe        — unicast probe of one IP
//	POST   /api/v1/lights/refresh      — request fresh state reports
//	POST   /api/v1/lights/{id}/color   — set colour directly
//	POST   /api/v1/lights/{id}/power   — set power directly
//	GET    /api/v1/mappings            — list mappings
//	POST   /api/v1/mappings            — create mapping
//	GET    /api/v1/mappings/{id}       — single mapping
//	PUT    /api/v1/mappings/{id}       — replace mapping
//	DELETE /api/v1/mappings/{id}       — delete mapping
//	POST   /api/v1/control/start       — start dispatch
//	POST   /api/v1/control/stop        — stop dispatch
//	GET    /api/v1/control/status      — dispatch worker status
//	GET    /api/v1/audit               — audit trail (filterable)
//
// Mapping mutations restart a running dispatch worker so the new
// universe set takes effect immediately. Mutations and control
// actions are recorded in the audit trail when a repository is
// configured.
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
package api
