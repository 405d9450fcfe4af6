package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig writes a YAML config file into a temp dir and returns its path.
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("loads valid config", func(t *testing.T) {
		path := writeTestConfig(t, `
service:
  id: "lab-01"
  name: "Field Lab"
database:
  path: "/tmp/bluetrace-test.db"
scanner:
  url: "http://scanner:5000"
  default_timeout: 30000
extraction:
  dir: "/tmp/extractions"
  parallelism: 2
`)

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Service.ID != "lab-01" {
			t.Errorf("Service.ID = %q, want %q", cfg.Service.ID, "lab-01")
		}
		if cfg.Scanner.URL != "http://scanner:5000" {
			t.Errorf("Scanner.URL = %q, want %q", cfg.Scanner.URL, "http://scanner:5000")
		}
		if cfg.Scanner.DefaultTimeout != 30000 {
			t.Errorf("Scanner.DefaultTimeout = %d, want 30000", cfg.Scanner.DefaultTimeout)
		}
		if cfg.Extraction.Parallelism != 2 {
			t.Errorf("Extraction.Parallelism = %d, want 2", cfg.Extraction.Parallelism)
		}
	})

	t.Run("applies defaults for missing fields", func(t *testing.T) {
		path := writeTestConfig(t, `
service:
  id: "lab-02"
`)

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !cfg.Database.WALMode {
			t.Error("Database.WALMode = false, want default true")
		}
		if cfg.Scanner.IOMargin != 2000 {
			t.Errorf("Scanner.IOMargin = %d, want default 2000", cfg.Scanner.IOMargin)
		}
		if cfg.API.Port != 8080 {
			t.Errorf("API.Port = %d, want default 8080", cfg.API.Port)
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, "info")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if err == nil {
			t.Fatal("Load() error = nil, want error")
		}
	})

	t.Run("returns error for malformed YAML", func(t *testing.T) {
		path := writeTestConfig(t, "service: [unclosed")
		_, err := Load(path)
		if err == nil {
			t.Fatal("Load() error = nil, want error")
		}
	})

	t.Run("environment variables override file values", func(t *testing.T) {
		path := writeTestConfig(t, `
scanner:
  url: "http://file-value:5000"
`)
		t.Setenv("BLUETRACE_SCANNER_URL", "http://env-value:5000")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Scanner.URL != "http://env-value:5000" {
			t.Errorf("Scanner.URL = %q, want env override", cfg.Scanner.URL)
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return defaultConfig()
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "default config is valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing service id",
			mutate:  func(c *Config) { c.Service.ID = "" },
			wantErr: "service.id",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "scanner url not http",
			mutate:  func(c *Config) { c.Scanner.URL = "ftp://scanner" },
			wantErr: "scanner.url",
		},
		{
			name:    "zero scan timeout",
			mutate:  func(c *Config) { c.Scanner.DefaultTimeout = 0 },
			wantErr: "scanner.default_timeout",
		},
		{
			name:    "managed scanner without binary",
			mutate:  func(c *Config) { c.Scanner.Managed.Enabled = true },
			wantErr: "scanner.managed.binary",
		},
		{
			name:    "zero parallelism",
			mutate:  func(c *Config) { c.Extraction.Parallelism = 0 },
			wantErr: "extraction.parallelism",
		},
		{
			name:    "invalid api port",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name: "mqtt enabled without host",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.Broker.Host = ""
			},
			wantErr: "mqtt.broker.host",
		},
		{
			name: "influxdb enabled without bucket",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = "http://influx:8086"
			},
			wantErr: "influxdb.bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
