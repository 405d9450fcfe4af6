// BlueTrace Core - BLE Forensic Extraction Platform
//
// This is the main entry point for the BlueTrace Core application.
// BlueTrace ingests Bluetooth Low Energy survey data from a companion
// scanner microservice and records it as content-addressed, hash-sealed
// extraction artifacts suitable for evidential use:
//   - Frozen first-write-wins device records
//   - SHA-256 payload sealing for chain-of-custody verification
//   - Live scan lifecycle events over WebSocket and MQTT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/bluetracehq/bluetrace/migrations"

	"github.com/bluetracehq/bluetrace/internal/api"
	"github.com/bluetracehq/bluetrace/internal/artifact"
	"github.com/bluetracehq/bluetrace/internal/audit"
	"github.com/bluetracehq/bluetrace/internal/auth"
	"github.com/bluetracehq/bluetrace/internal/extraction"
	"github.com/bluetracehq/bluetrace/internal/infrastructure/config"
	"github.com/bluetracehq/bluetrace/internal/infrastructure/database"
	"github.com/bluetracehq/bluetrace/internal/infrastructure/influxdb"
	"github.com/bluetracehq/bluetrace/internal/infrastructure/logging"
	"github.com/bluetracehq/bluetrace/internal/infrastructure/mqtt"
	"github.com/bluetracehq/bluetrace/internal/scanner"
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
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
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
	log.Info("starting BlueTrace Core",
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

	// Payload store for raw device reports
	payloads, err := extraction.NewPayloadStore(cfg.Extraction.Dir)
	if err != nil {
		return fmt.Errorf("creating payload store: %w", err)
	}
	log.Info("payload store ready", "dir", cfg.Extraction.Dir)

	// Chain-of-custody journal
	auditRepo := audit.NewSQLiteRepository(db.DB)

	// WebSocket hub is created here rather than inside the API server so
	// the orchestrator can broadcast scan events through it.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Scan event announcers: WebSocket and the custody journal always,
	// MQTT when enabled
	announcers := extraction.Announcers{hub, audit.NewRecorder(auditRepo, log)}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
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
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		announcers = append(announcers, mqtt.NewAnnouncer(mqttClient, byte(cfg.MQTT.QoS), log))
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB for signal-strength telemetry (optional)
	var telemetry extraction.TelemetryWriter
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		telemetry = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	scanClient := scanner.NewHTTPClient(cfg.Scanner.URL,
		time.Duration(cfg.Scanner.IOMargin)*time.Millisecond)

	// Supervise a locally-managed scanner daemon (optional)
	if cfg.Scanner.Managed.Enabled {
		supervisor := scanner.NewSupervisor(cfg.Scanner.Managed, scanClient.Ping, log)
		if startErr := supervisor.Start(ctx); startErr != nil {
			return fmt.Errorf("starting scanner daemon: %w", startErr)
		}
		defer func() {
			log.Info("stopping scanner daemon")
			if stopErr := supervisor.Stop(); stopErr != nil {
				log.Error("error stopping scanner daemon", "error", stopErr)
			}
		}()
		log.Info("scanner daemon supervised",
			"binary", cfg.Scanner.Managed.Binary,
			"pid", supervisor.PID(),
		)
	}

	// Scan orchestrator
	orchestrator, err := extraction.New(extraction.Deps{
		Scanner:     scanClient,
		Repo:        artifact.NewSQLiteRepository(db.DB),
		Payloads:    payloads,
		Logger:      log,
		Parallelism: cfg.Extraction.Parallelism,
		Announcer:   announcers,
		Telemetry:   telemetry,
	})
	if err != nil {
		return fmt.Errorf("creating scan orchestrator: %w", err)
	}
	log.Info("scan orchestrator ready", "scanner_url", cfg.Scanner.URL)

	// Operator authentication
	authService := auth.NewService(
		auth.NewOperatorRepository(db.DB),
		cfg.Security.JWT.Secret,
		cfg.Security.JWT.AccessTokenTTL,
	)

	// API server
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Scanner:     cfg.Scanner,
		Logger:      log,
		Scans:       orchestrator,
		Auth:        authService,
		Audit:       auditRepo,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. Scanner daemon (if managed)
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)
	// 5. Database

	log.Info("BlueTrace Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses BLUETRACE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("BLUETRACE_CONFIG"); path != "" {
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
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
