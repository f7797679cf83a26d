package domain

import "time"

// RdDigest is the SHA-1 digest identifying a full router descriptor.
type RdDigest [20]byte

// RouterDesc is a cached full relay descriptor.
type RouterDesc struct {
	Digest    RdDigest
	Published time.Time
	Content   string
}
