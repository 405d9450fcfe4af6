package extraction

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPayloadStore_Write(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPayloadStore(dir)
	if err != nil {
		t.Fatalf("NewPayloadStore() error = %v", err)
	}

	path, err := store.Write("AA:BB:CC:DD:EE:FF", []byte(`{"address":"AA:BB:CC:DD:EE:FF"}`))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if filepath.Dir(path) != dir {
		t.Errorf("payload written to %q, want directory %q", path, dir)
	}
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "ble_data_AA-BB-CC-DD-EE-FF_") || !strings.HasSuffix(name, ".json") {
		t.Errorf("payload filename = %q, want ble_data_<address>_<ts>.json with sanitised address", name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading payload back: %v", err)
	}
	if string(data) != `{"address":"AA:BB:CC:DD:EE:FF"}` {
		t.Errorf("payload content = %q, want original bytes", data)
	}
}

func TestPayloadStore_WriteDistinctFiles(t *testing.T) {
	store, err := NewPayloadStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewPayloadStore() error = %v", err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		path, err := store.Write("AA:BB:CC:DD:EE:01", []byte("{}"))
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if seen[path] {
			t.Fatalf("Write() reused path %q", path)
		}
		seen[path] = true
	}
}

func TestPayloadStore_Discard(t *testing.T) {
	store, err := NewPayloadStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewPayloadStore() error = %v", err)
	}

	path, err := store.Write("AA:BB:CC:DD:EE:02", []byte("{}"))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	store.Discard(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Discard() left file in place: %v", err)
	}

	// Discarding again, or discarding nothing, must be harmless.
	store.Discard(path)
	store.Discard("")
}
