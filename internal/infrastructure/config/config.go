package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for BlueTrace Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Database   DatabaseConfig   `yaml:"database"`
	Scanner    ScannerConfig    `yaml:"scanner"`
	Extraction ExtractionConfig `yaml:"extraction"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
	Security   SecurityConfig   `yaml:"security"`
}

// ServiceConfig contains deployment-specific identification.
type ServiceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// ScannerConfig contains settings for the external scanner microservice.
type ScannerConfig struct {
	// URL is the base URL of the scanner microservice (e.g. "http://localhost:5000").
	URL string `yaml:"url"`

	// DefaultTimeout is the scan timeout in milliseconds used when the
	// caller does not supply one.
	DefaultTimeout int `yaml:"default_timeout"`

	// IOMargin is the fixed allowance in milliseconds added on top of the
	// scan timeout for local I/O and response transfer. The orchestrator
	// never waits longer than timeout + margin on the scanner.
	IOMargin int `yaml:"io_margin"`

	// Managed configures supervision of a locally-run scanner daemon.
	Managed ManagedScannerConfig `yaml:"managed"`
}

// ManagedScannerConfig controls supervision of the scanner microservice
// when BlueTrace runs it as a child process. When disabled, the scanner
// is expected to be running externally at ScannerConfig.URL.
type ManagedScannerConfig struct {
	Enabled bool `yaml:"enabled"`

	// Binary is the path to the scanner executable.
	Binary string `yaml:"binary"`

	// Args are command-line arguments passed to the binary.
	Args []string `yaml:"args"`

	// WorkDir is the working directory for the process. Empty inherits
	// the parent's.
	WorkDir string `yaml:"work_dir"`

	// RestartOnFailure enables automatic restart when the daemon exits
	// unexpectedly.
	RestartOnFailure bool `yaml:"restart_on_failure"`

	// RestartDelay is the seconds to wait before the first restart
	// attempt; subsequent attempts back off exponentially.
	RestartDelay int `yaml:"restart_delay"`

	// MaxRestartAttempts limits restart attempts. 0 means unlimited.
	MaxRestartAttempts int `yaml:"max_restart_attempts"`

	// GracefulTimeout is the seconds to wait after SIGTERM before SIGKILL.
	GracefulTimeout int `yaml:"graceful_timeout"`

	// HealthCheckInterval is the seconds between watchdog health probes.
	HealthCheckInterval int `yaml:"health_check_interval"`
}

// ExtractionConfig contains settings for the extraction pipeline.
type ExtractionConfig struct {
	// Dir is the directory where raw device payloads are written.
	Dir string `yaml:"dir"`

	// Parallelism bounds concurrent per-device processing within one scan.
	Parallelism int `yaml:"parallelism"`
}

// MQTTConfig contains MQTT broker connection settings.
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
//
// POST /scans holds the connection open for the scan duration, so the
// write timeout bounds the longest scan the API will accept.
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

// WebSocketConfig contains WebSocket event hub settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for signal telemetry.
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

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: BLUETRACE_SECTION_KEY
// For example: BLUETRACE_DATABASE_PATH, BLUETRACE_SCANNER_URL
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			ID:   "bluetrace-001",
			Name: "BlueTrace Core",
		},
		Database: DatabaseConfig{
			Path:        "./data/bluetrace.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Scanner: ScannerConfig{
			URL:            "http://localhost:5000",
			DefaultTimeout: 60000,
			IOMargin:       2000,
			Managed: ManagedScannerConfig{
				RestartOnFailure:    true,
				RestartDelay:        5,
				GracefulTimeout:     10,
				HealthCheckInterval: 30,
			},
		},
		Extraction: ExtractionConfig{
			Dir:         "./data/extractions",
			Parallelism: 4,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "bluetrace-core",
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
				Write: 120,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 15,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BLUETRACE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("BLUETRACE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Scanner
	if v := os.Getenv("BLUETRACE_SCANNER_URL"); v != "" {
		cfg.Scanner.URL = v
	}

	// Extraction
	if v := os.Getenv("BLUETRACE_EXTRACTION_DIR"); v != "" {
		cfg.Extraction.Dir = v
	}

	// MQTT
	if v := os.Getenv("BLUETRACE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("BLUETRACE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("BLUETRACE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("BLUETRACE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("BLUETRACE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("BLUETRACE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security - JWT secret (IMPORTANT: always override in production)
	if v := os.Getenv("BLUETRACE_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Service.ID == "" {
		errs = append(errs, "service.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.BusyTimeout < 0 {
		errs = append(errs, "database.busy_timeout must not be negative")
	}

	if c.Scanner.URL == "" {
		errs = append(errs, "scanner.url is required")
	} else if !strings.HasPrefix(c.Scanner.URL, "http://") && !strings.HasPrefix(c.Scanner.URL, "https://") {
		errs = append(errs, "scanner.url must be an http(s) URL")
	}
	if c.Scanner.DefaultTimeout <= 0 {
		errs = append(errs, "scanner.default_timeout must be positive")
	}
	if c.Scanner.IOMargin <= 0 {
		errs = append(errs, "scanner.io_margin must be positive")
	}
	if c.Scanner.Managed.Enabled && c.Scanner.Managed.Binary == "" {
		errs = append(errs, "scanner.managed.binary is required when scanner.managed is enabled")
	}

	if c.Extraction.Dir == "" {
		errs = append(errs, "extraction.dir is required")
	}
	if c.Extraction.Parallelism < 1 {
		errs = append(errs, "extraction.parallelism must be at least 1")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
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
