// Package integrity computes content digests that bind an extraction
// artifact to the exact bytes of its captured payload.
//
// SHA-256 is used throughout. Digests are lowercase hex-encoded and
// deterministic: identical bytes always produce identical digests, which is
// what makes the content hash usable as tamper evidence in a forensic
// chain of custody.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// SumReader streams r through SHA-256 and returns the lowercase hex digest.
//
// Memory use is bounded regardless of payload size; the reader is consumed
// to EOF. A read failure is returned wrapped, with no partial digest.
//
// Parameters:
//   - r: Source of the payload bytes
//
// Returns:
//   - string: 64-character lowercase hex digest
//   - error: If the stream cannot be fully read
func SumReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("reading payload stream: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumFile computes the SHA-256 digest of the file at path.
//
// The file is streamed, not loaded into memory.
//
// Parameters:
//   - path: Filesystem path of the payload file
//
// Returns:
//   - string: 64-character lowercase hex digest
//   - error: If the file cannot be opened or fully read
func SumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening payload file: %w", err)
	}
	defer f.Close()

	digest, err := SumReader(f)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return digest, nil
}

// SumBytes computes the SHA-256 digest of an in-memory payload.
// Convenience wrapper for payloads already held as a byte slice.
func SumBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
