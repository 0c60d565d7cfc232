package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for luxbridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	API      APIConfig      `yaml:"api"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	LIFX     LIFXConfig     `yaml:"lifx"`
	SACN     SACNConfig     `yaml:"sacn"`
	Dispatch DispatchConfig `yaml:"dispatch"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
// The broker is optional; when Enabled is false the bridge runs without
// status announcements.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// InfluxDBConfig contains InfluxDB connection settings for frame metrics.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// LIFXConfig contains LIFX LAN client settings.
type LIFXConfig struct {
	// BindIP is the local interface address the UDP socket binds to.
	// "0.0.0.0" binds all interfaces.
	BindIP string `yaml:"bind_ip"`

	// MinSendInterval is the minimum spacing between outbound packets.
	// Protects light firmware from command bursts.
	MinSendInterval time.Duration `yaml:"min_send_interval"`

	// DiscoveryDwell is how long to collect discovery responses after the
	// broadcast before requesting labels and versions.
	DiscoveryDwell time.Duration `yaml:"discovery_dwell"`

	// DiscoverySettle is how long to wait for label/version replies
	// after the per-device requests have been sent.
	DiscoverySettle time.Duration `yaml:"discovery_settle"`

	// AuthorityWindow is how long a locally issued colour command outranks
	// asynchronous device state reports.
	AuthorityWindow time.Duration `yaml:"authority_window"`
}

// UnmarshalYAML decodes duration fields from Go duration strings
// ("50ms", "5s"); yaml.v3 has no native time.Duration support.
// Absent keys keep whatever value the target already holds, so
// defaults survive partial configs.
func (c *LIFXConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		BindIP          string `yaml:"bind_ip"`
		MinSendInterval string `yaml:"min_send_interval"`
		DiscoveryDwell  string `yaml:"discovery_dwell"`
		DiscoverySettle string `yaml:"discovery_settle"`
		AuthorityWindow string `yaml:"authority_window"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.BindIP != "" {
		c.BindIP = raw.BindIP
	}

	fields := []struct {
		key string
		val string
		dst *time.Duration
	}{
		{"min_send_interval", raw.MinSendInterval, &c.MinSendInterval},
		{"discovery_dwell", raw.DiscoveryDwell, &c.DiscoveryDwell},
		{"discovery_settle", raw.DiscoverySettle, &c.DiscoverySettle},
		{"authority_window", raw.AuthorityWindow, &c.AuthorityWindow},
	}
	for _, f := range fields {
		if f.val == "" {
			continue
		}
		d, err := time.ParseDuration(f.val)
		if err != nil {
			return fmt.Errorf("lifx.%s: %w", f.key, err)
		}
		*f.dst = d
	}
	return nil
}

// SACNConfig contains sACN/E1.31 receiver settings.
type SACNConfig struct {
	// BindIP is the local interface address for multicast membership.
	// Empty or "0.0.0.0" lets the kernel choose.
	BindIP string `yaml:"bind_ip"`

	// Port is the E1.31 UDP port.
	Port int `yaml:"port"`
}

// DispatchConfig contains universe dispatcher settings.
type DispatchConfig struct {
	// FadeMs is the colour transition duration sent with each command.
	// Kept under the source frame interval so transitions look smooth.
	FadeMs int `yaml:"fade_ms"`

	// ChangeThreshold is the minimum 8-bit channel delta that triggers an
	// update. 16-bit modes always use a combined-value threshold of 1.
	ChangeThreshold int `yaml:"change_threshold"`
}

// Load reads, parses, and validates a configuration file.
//
// Missing keys fall back to defaults; environment variables
// (LUXBRIDGE_SECTION_KEY) override file values.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Validated configuration
//   - error: If the file cannot be read, parsed, or validated
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/luxbridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "luxbridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		LIFX: LIFXConfig{
			BindIP:          "0.0.0.0",
			MinSendInterval: 50 * time.Millisecond,
			DiscoveryDwell:  5 * time.Second,
			DiscoverySettle: 1500 * time.Millisecond,
			AuthorityWindow: time.Second,
		},
		SACN: SACNConfig{
			BindIP: "0.0.0.0",
			Port:   5568,
		},
		Dispatch: DispatchConfig{
			FadeMs:          20,
			ChangeThreshold: 1,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: LUXBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("LUXBRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("LUXBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("LUXBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("LUXBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("LUXBRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("LUXBRIDGE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("LUXBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Network interfaces
	if v := os.Getenv("LUXBRIDGE_LIFX_BIND_IP"); v != "" {
		cfg.LIFX.BindIP = v
	}
	if v := os.Getenv("LUXBRIDGE_SACN_BIND_IP"); v != "" {
		cfg.SACN.BindIP = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port must be 1-65535, got %d", c.API.Port))
	}

	if c.SACN.Port <= 0 || c.SACN.Port > 65535 {
		errs = append(errs, fmt.Sprintf("sacn.port must be 1-65535, got %d", c.SACN.Port))
	}

	if c.LIFX.MinSendInterval < 0 {
		errs = append(errs, "lifx.min_send_interval must not be negative")
	}
	if c.LIFX.AuthorityWindow < 0 {
		errs = append(errs, "lifx.authority_window must not be negative")
	}

	if c.Dispatch.FadeMs < 0 {
		errs = append(errs, "dispatch.fade_ms must not be negative")
	}
	if c.Dispatch.ChangeThreshold < 0 || c.Dispatch.ChangeThreshold > 255 {
		errs = append(errs, fmt.Sprintf("dispatch.change_threshold must be 0-255, got %d", c.Dispatch.ChangeThreshold))
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, fmt.Sprintf("mqtt.qos must be 0-2, got %d", c.MQTT.QoS))
		}
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a time.Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a time.Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a time.Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// FadeDuration returns the dispatcher fade duration as a time.Duration.
func (c *Config) FadeDuration() time.Duration {
	return time.Duration(c.Dispatch.FadeMs) * time.Millisecond
}
