package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/luxbridge/internal/audit"
	"github.com/nerrad567/luxbridge/internal/dispatch"
	"github.com/nerrad567/luxbridge/internal/infrastructure/config"
	"github.com/nerrad567/luxbridge/internal/infrastructure/logging"
	"github.com/nerrad567/luxbridge/internal/lifx"
	"github.com/nerrad567/luxbridge/internal/mapping"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// LightService is the slice of the LIFX client the API uses.
type LightService interface {
	Lights() []lifx.Device
	Light(id string) (lifx.Device, bool)
	Discover(ctx context.Context) ([]lifx.Device, error)
	ProbeAddr(ctx context.Context, ip string) (lifx.Device, error)
	SetColor(id string, color lifx.HSBK, fade time.Duration) error
	SetPower(id string, on bool, fade time.Duration) error
	RefreshStates()
	Stats() lifx.Stats
}

// Announcer publishes bridge state transitions to external consumers
// (the MQTT status topics). A nil announcer disables announcements.
type Announcer interface {
	AnnounceDispatch(status dispatch.Status)
	AnnounceDiscovery(lights int, elapsed time.Duration)
	AnnounceLightState(device lifx.Device)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	Logger    *logging.Logger
	Lights    LightService
	Store     *mapping.Store
	Worker    *dispatch.Worker
	Audit     audit.Repository // optional
	Announcer Announcer        // optional
	Version   string
}

// Server is the HTTP API server for luxbridge.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	lights    LightService
	store     *mapping.Store
	worker    *dispatch.Worker
	audit     audit.Repository
	announcer Announcer
	version   string
	server    *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, lights, store, worker)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Lights == nil {
		return nil, fmt.Errorf("light service is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("mapping store is required")
	}
	if deps.Worker == nil {
		return nil, fmt.Errorf("dispatch worker is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		lights:    deps.Lights,
		store:     deps.Store,
		worker:    deps.Worker,
		audit:     deps.Audit,
		announcer: deps.Announcer,
		version:   deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// announceDispatch publishes the worker's current status, if an
// announcer is configured.
func (s *Server) announceDispatch() {
	if s.announcer != nil {
		s.announcer.AnnounceDispatch(s.worker.Status())
	}
}

// announceLightState publishes a light's registry state after a direct
// command changed it.
func (s *Server) announceLightState(id string) {
	if s.announcer == nil {
		return
	}
	if device, ok := s.lights.Light(id); ok {
		s.announcer.AnnounceLightState(device)
	}
}

// recordAudit writes an audit entry, if a repository is configured.
// Audit failures are logged and never fail the request that caused them.
func (s *Server) recordAudit(ctx context.Context, action, entityType, entityID string, details map[string]any) {
	if s.audit == nil {
		return
	}
	entry := &audit.Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("recording audit entry failed",
			"action", action,
			"entity_type", entityType,
			"error", err,
		)
	}
}
