// luxbridge - sACN to LIFX LAN bridge
//
// luxbridge receives E1.31 (sACN) DMX universes from a lighting console
// or software and drives LIFX bulbs over the LAN protocol. Mappings
// between DMX channels and lights live in SQLite and are managed over a
// REST API; status announcements go out over MQTT when a broker is
// configured.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/nerrad567/luxbridge/migrations"

	"github.com/nerrad567/luxbridge/internal/api"
	"github.com/nerrad567/luxbridge/internal/audit"
	"github.com/nerrad567/luxbridge/internal/dispatch"
	"github.com/nerrad567/luxbridge/internal/infrastructure/config"
	"github.com/nerrad567/luxbridge/internal/infrastructure/database"
	"github.com/nerrad567/luxbridge/internal/infrastructure/logging"
	"github.com/nerrad567/luxbridge/internal/infrastructure/metrics"
	"github.com/nerrad567/luxbridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/luxbridge/internal/lifx"
	"github.com/nerrad567/luxbridge/internal/mapping"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting luxbridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Load the mapping store
	store := mapping.NewStore(mapping.NewSQLiteRepository(db.DB))
	if loadErr := store.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading mappings: %w", loadErr)
	}
	log.Info("mappings loaded", "count", store.Count())

	// Start the LIFX LAN client
	lights, err := lifx.NewClient(lifx.Options{
		BindIP:          cfg.LIFX.BindIP,
		MinSendInterval: cfg.LIFX.MinSendInterval,
		DiscoveryDwell:  cfg.LIFX.DiscoveryDwell,
		DiscoverySettle: cfg.LIFX.DiscoverySettle,
		AuthorityWindow: cfg.LIFX.AuthorityWindow,
	}, log)
	if err != nil {
		return fmt.Errorf("starting LIFX client: %w", err)
	}
	defer func() {
		log.Info("closing LIFX client")
		if closeErr := lights.Close(); closeErr != nil {
			log.Error("error closing LIFX client", "error", closeErr)
		}
	}()

	// Connect to InfluxDB (optional)
	var metricsClient *metrics.Client
	if cfg.InfluxDB.Enabled {
		metricsClient, err = metrics.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := metricsClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		metricsClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Initial discovery sweep so mapped lights are addressable before
	// the first frame arrives.
	discoveryStart := time.Now()
	devices, err := lights.Discover(ctx)
	if err != nil {
		log.Warn("initial discovery failed", "error", err)
	} else {
		log.Info("discovery complete", "lights", len(devices))
		if metricsClient != nil {
			metricsClient.RecordDiscovery(len(devices), time.Since(discoveryStart))
		}
	}

	// Build the dispatch worker. The metrics sink stays nil when
	// InfluxDB is disabled; a typed nil would defeat the sink checks.
	workerCfg := dispatch.WorkerConfig{
		Store:     store,
		Lights:    lights,
		BindIP:    cfg.SACN.BindIP,
		Port:      cfg.SACN.Port,
		Fade:      cfg.FadeDuration(),
		Threshold: cfg.Dispatch.ChangeThreshold,
	}
	if metricsClient != nil {
		workerCfg.Metrics = metricsClient
	}
	worker := dispatch.NewWorker(workerCfg, log)
	defer worker.Stop()

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	var announcer api.Announcer
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", mqttClient.ClientID(),
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		announcer = &mqttAnnouncer{
			client: mqttClient,
			qos:    byte(cfg.MQTT.QoS), //nolint:gosec // QoS validated to 0-2 at config load
			log:    log,
		}

		// Remote start/stop over the broker mirrors the REST control
		// endpoints, for show controllers that only speak MQTT.
		a := announcer
		cmdTopic := mqtt.Topics{}.DispatchCommand()
		subErr := mqttClient.Subscribe(cmdTopic, byte(cfg.MQTT.QoS), func(_ string, payload []byte) error { //nolint:gosec // QoS validated to 0-2 at config load
			switch cmd := strings.TrimSpace(string(payload)); cmd {
			case "start":
				if startErr := worker.Start(); startErr != nil {
					log.Warn("dispatch start command refused", "reason", startErr)
					return nil
				}
				log.Info("dispatch started via mqtt command")
			case "stop":
				worker.Stop()
				log.Info("dispatch stopped via mqtt command")
			default:
				log.Warn("unknown dispatch command", "command", cmd)
				return nil
			}
			a.AnnounceDispatch(worker.Status())
			return nil
		})
		if subErr != nil {
			log.Warn("subscribing to dispatch commands failed", "error", subErr)
		} else {
			defer func() {
				if unsubErr := mqttClient.Unsubscribe(cmdTopic); unsubErr != nil {
					log.Warn("unsubscribing from dispatch commands", "error", unsubErr)
				}
			}()
		}
	} else {
		log.Info("MQTT disabled, status announcements off")
	}

	// Resume dispatch if any mappings are enabled. A bridge restart
	// mid-show should not need an operator to press start again.
	if startErr := worker.Start(); startErr != nil {
		log.Info("dispatch not started", "reason", startErr)
	} else {
		log.Info("dispatch running", "universes", worker.Status().Universes)
		if announcer != nil {
			announcer.AnnounceDispatch(worker.Status())
		}
	}

	// Start the REST API
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		Logger:    log,
		Lights:    lights,
		Store:     store,
		Worker:    worker,
		Audit:     audit.NewSQLiteRepository(db.DB),
		Announcer: announcer,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API listening", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, metricsClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. MQTT (if enabled)
	// 3. Dispatch worker
	// 4. InfluxDB (if enabled)
	// 5. LIFX client
	// 6. Database

	log.Info("luxbridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses LUXBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LUXBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - metricsClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, metricsClient *metrics.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if metricsClient != nil {
		if err := metricsClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// mqttAnnouncer publishes bridge state transitions to the MQTT status
// topics. Dispatch status is retained so late subscribers see the
// current state; discovery summaries are transient events.
type mqttAnnouncer struct {
	client *mqtt.Client
	qos    byte
	log    *logging.Logger
}

// AnnounceDispatch implements api.Announcer.
func (a *mqttAnnouncer) AnnounceDispatch(status dispatch.Status) {
	payload, err := json.Marshal(status)
	if err != nil {
		a.log.Error("marshalling dispatch status", "error", err)
		return
	}
	topics := mqtt.Topics{}
	if err := a.client.Publish(topics.DispatchStatus(), payload, a.qos, true); err != nil {
		a.log.Warn("publishing dispatch status", "error", err)
	}
}

// AnnounceLightState implements api.Announcer. Light states are
// retained so dashboards see the last known state without waiting for
// the next command.
func (a *mqttAnnouncer) AnnounceLightState(device lifx.Device) {
	payload, err := json.Marshal(map[string]any{
		"id":    device.ID,
		"label": device.Label,
		"ip":    device.IP,
		"power": device.IsOn(),
		"color": map[string]uint16{
			"hue":        device.Color.Hue,
			"saturation": device.Color.Saturation,
			"brightness": device.Color.Brightness,
			"kelvin":     device.Color.Kelvin,
		},
		"at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		a.log.Error("marshalling light state", "error", err)
		return
	}
	topics := mqtt.Topics{}
	if err := a.client.Publish(topics.LightState(device.ID), payload, a.qos, true); err != nil {
		a.log.Warn("publishing light state", "light", device.ID, "error", err)
	}
}

// AnnounceDiscovery implements api.Announcer.
func (a *mqttAnnouncer) AnnounceDiscovery(lights int, elapsed time.Duration) {
	payload, err := json.Marshal(map[string]any{
		"lights":     lights,
		"elapsed_ms": elapsed.Milliseconds(),
		"at":         time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		a.log.Error("marshalling discovery summary", "error", err)
		return
	}
	topics := mqtt.Topics{}
	if err := a.client.Publish(topics.Discovery(), payload, a.qos, false); err != nil {
		a.log.Warn("publishing discovery summary", "error", err)
	}
}
