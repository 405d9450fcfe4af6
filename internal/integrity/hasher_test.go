package integrity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Known SHA-256 vectors.
const (
	emptyDigest = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	abcDigest   = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
)

func TestSumReader(t *testing.T) {
	t.Run("known vector", func(t *testing.T) {
		got, err := SumReader(strings.NewReader("abc"))
		if err != nil {
			t.Fatalf("SumReader() error = %v", err)
		}
		if got != abcDigest {
			t.Errorf("SumReader() = %q, want %q", got, abcDigest)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		got, err := SumReader(strings.NewReader(""))
		if err != nil {
			t.Fatalf("SumReader() error = %v", err)
		}
		if got != emptyDigest {
			t.Errorf("SumReader() = %q, want %q", got, emptyDigest)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		payload := `{"address":"AA:BB:CC:DD:EE:FF","rssi":-42}`
		first, err := SumReader(strings.NewReader(payload))
		if err != nil {
			t.Fatalf("first SumReader() error = %v", err)
		}
		second, err := SumReader(strings.NewReader(payload))
		if err != nil {
			t.Fatalf("second SumReader() error = %v", err)
		}
		if first != second {
			t.Errorf("digests differ: %q vs %q", first, second)
		}
	})

	t.Run("single byte differs from empty", func(t *testing.T) {
		empty, _ := SumReader(strings.NewReader(""))
		one, err := SumReader(strings.NewReader("a"))
		if err != nil {
			t.Fatalf("SumReader() error = %v", err)
		}
		if empty == one {
			t.Error("0-byte and 1-byte payloads produced identical digests")
		}
	})

	t.Run("digest is lowercase hex of fixed length", func(t *testing.T) {
		got, err := SumReader(strings.NewReader("payload"))
		if err != nil {
			t.Fatalf("SumReader() error = %v", err)
		}
		if len(got) != 64 {
			t.Errorf("digest length = %d, want 64", len(got))
		}
		if got != strings.ToLower(got) {
			t.Errorf("digest %q is not lowercase", got)
		}
	})
}

func TestSumFile(t *testing.T) {
	t.Run("matches reader digest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "payload.json")
		if err := os.WriteFile(path, []byte("abc"), 0o600); err != nil {
			t.Fatalf("writing test file: %v", err)
		}

		got, err := SumFile(path)
		if err != nil {
			t.Fatalf("SumFile() error = %v", err)
		}
		if got != abcDigest {
			t.Errorf("SumFile() = %q, want %q", got, abcDigest)
		}
	})

	t.Run("missing file returns error", func(t *testing.T) {
		_, err := SumFile(filepath.Join(t.TempDir(), "missing.json"))
		if err == nil {
			t.Fatal("SumFile() error = nil, want error")
		}
	})
}

func TestSumBytes(t *testing.T) {
	if got := SumBytes([]byte("abc")); got != abcDigest {
		t.Errorf("SumBytes() = %q, want %q", got, abcDigest)
	}
	if got := SumBytes(nil); got != emptyDigest {
		t.Errorf("SumBytes(nil) = %q, want %q", got, emptyDigest)
	}
}
