package domain

import "time"

// MdDigest is the SHA3-256 digest identifying a microdescriptor.
type MdDigest [32]byte

// Microdesc is a cached relay microdescriptor.
//
// ListedAt records the last consensus that listed this descriptor and
// only ever moves forward; it drives the expiration sweep.
type Microdesc struct {
	Digest   MdDigest
	ListedAt time.Time
	Content  string
}
