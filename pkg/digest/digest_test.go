package digest

import (
	"strings"
	"testing"
)

func TestSha3Sum256_Deterministic(t *testing.T) {
	a := Sha3Sum256([]byte("network-status-consensus"))
	b := Sha3Sum256([]byte("network-status-consensus"))
	if a != b {
		t.Fatal("Sha3Sum256 not deterministic")
	}
	if a == Sha3Sum256([]byte("other")) {
		t.Fatal("distinct inputs produced the same digest")
	}
}

func TestSha256Trunc16(t *testing.T) {
	h := Sha256Trunc16([]byte("obfs4 192.0.2.3:80 cert=abc"))
	if len(Encode(h[:])) != 32 {
		t.Fatalf("Encode(trunc16) length = %d, want 32 hex chars", len(Encode(h[:])))
	}
}

func TestDecode32_RoundTrip(t *testing.T) {
	d := Sha3Sum256([]byte("doc"))
	got, err := Decode32(Encode(d[:]))
	if err != nil {
		t.Fatalf("Decode32() error = %v", err)
	}
	if got != d {
		t.Fatal("Decode32(Encode(d)) != d")
	}
}

func TestDecode32_Errors(t *testing.T) {
	if _, err := Decode32("zz"); err == nil {
		t.Error("Decode32(invalid hex) error = nil")
	}
	if _, err := Decode32(strings.Repeat("ab", 20)); err == nil {
		t.Error("Decode32(20 bytes) error = nil, want length error")
	}
}
