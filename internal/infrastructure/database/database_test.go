package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpen(t *testing.T) {
	t.Run("creates database file and directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "test.db")

		db, err := Open(Config{Path: path, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close()

		if db.Path() != path {
			t.Errorf("Path() = %q, want %q", db.Path(), path)
		}
	})

	t.Run("health check passes on open database", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.db")

		db, err := Open(Config{Path: path, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close()

		if err := db.HealthCheck(context.Background()); err != nil {
			t.Errorf("HealthCheck() error = %v", err)
		}
	})

	t.Run("close is idempotent on nil inner handle", func(t *testing.T) {
		db := &DB{}
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantUp      bool
		wantOK      bool
	}{
		{
			name:        "valid up migration",
			filename:    "20260301_120000_initial_schema.up.sql",
			wantVersion: "20260301_120000",
			wantUp:      true,
			wantOK:      true,
		},
		{
			name:        "valid down migration",
			filename:    "20260301_120000_initial_schema.down.sql",
			wantVersion: "20260301_120000",
			wantUp:      false,
			wantOK:      true,
		},
		{
			name:     "not sql",
			filename: "README.md",
			wantOK:   false,
		},
		{
			name:     "missing direction suffix",
			filename: "20260301_120000_initial_schema.sql",
			wantOK:   false,
		},
		{
			name:     "too few parts for version",
			filename: "schema.up.sql",
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("parseMigrationFilename(%q) ok = %v, want %v", tt.filename, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion {
				t.Errorf("version = %q, want %q", version, tt.wantVersion)
			}
			if isUp != tt.wantUp {
				t.Errorf("isUp = %v, want %v", isUp, tt.wantUp)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	got := extractMigrationName("20260301_120000_initial_schema.up.sql")
	if got != "initial_schema" {
		t.Errorf("extractMigrationName() = %q, want %q", got, "initial_schema")
	}
}
