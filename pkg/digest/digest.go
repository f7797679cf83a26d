// Package digest provides document digest utilities for the directory cache.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Sha3Sum256 computes the SHA3-256 digest of data.
//
// Directory consensus documents are identified by the SHA3-256 of the
// signed portion and of the whole document.
func Sha3Sum256(data []byte) [32]byte {
	return sha3.Sum256(data)
}

// Sha256Trunc16 computes the SHA-256 digest of data truncated to 16 bytes.
//
// Bridge descriptor cache keys use this truncated form: the full bridge
// line never appears in a storage key.
func Sha256Trunc16(data []byte) [16]byte {
	h := sha256.Sum256(data)
	var out [16]byte
	copy(out[:], h[:16])
	return out
}

// Decode32 decodes a hex string into a 32-byte digest.
//
// A wrong-length input is an error: stored digests are exactly 32 bytes
// and anything else indicates a corrupt cache entry.
func Decode32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("digest: invalid hex: %w", err)
	}
	if len(b) != 32 {
		return out, fmt.Errorf("digest: want 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

// Encode returns the lowercase hex encoding of a digest.
func Encode(d []byte) string {
	return hex.EncodeToString(d)
}
