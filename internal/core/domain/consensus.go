package domain

import (
	"fmt"
	"time"
)

// Lifetime is the validity window of a consensus document.
//
// A well-formed lifetime satisfies ValidAfter <= FreshUntil <= ValidUntil.
type Lifetime struct {
	ValidAfter time.Time
	FreshUntil time.Time
	ValidUntil time.Time
}

// Validate checks the ordering of the lifetime window.
func (l Lifetime) Validate() error {
	if l.ValidAfter.After(l.FreshUntil) || l.FreshUntil.After(l.ValidUntil) {
		return ErrBadLifetime.WithDetails(fmt.Sprintf(
			"valid_after=%d fresh_until=%d valid_until=%d",
			l.ValidAfter.Unix(), l.FreshUntil.Unix(), l.ValidUntil.Unix()))
	}
	return nil
}

// ConsensusMeta identifies a cached consensus without its body.
//
// The whole-document digest is the cache key; the signed-part digest is
// what directory sources advertise, so lookups by either must work.
type ConsensusMeta struct {
	Flavor           ConsensusFlavor
	Lifetime         Lifetime
	Sha3OfSignedPart [32]byte
	Sha3OfWholeDoc   [32]byte
}

// Consensus is a cached consensus document.
//
// Pending records have been downloaded but not yet validated by the
// directory layer; they are excluded from "usable latest" selection.
type Consensus struct {
	Meta    ConsensusMeta
	Pending bool
	Content []byte
}
