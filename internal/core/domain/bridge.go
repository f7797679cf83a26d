package domain

import (
	"time"

	"github.com/veildir/veildir-go/pkg/digest"
)

// BridgeLine is the canonical configuration line identifying a bridge.
//
// Bridge lines contain addresses of non-public relays. They never appear
// in storage keys or in log output; only a truncated hash of the line is
// stored.
type BridgeLine string

// CacheKeyHash returns the truncated hash under which this bridge's
// descriptor is cached.
func (b BridgeLine) CacheKeyHash() [16]byte {
	return digest.Sha256Trunc16([]byte(b))
}

// BridgeDesc is a cached bridge descriptor.
//
// Unlike the other cached documents, a bridge descriptor carries its own
// explicit expiry instead of relying on a sweep tolerance.
type BridgeDesc struct {
	Fetched time.Time
	Until   time.Time
	Content string
}
