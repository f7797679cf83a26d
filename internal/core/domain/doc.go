// Package domain defines the core domain models for VeilDir.
//
// Domain models are pure value objects without any IO dependencies
// or framework coupling. This package contains:
//
//   - Consensus: a cached network consensus document and its lifetime
//   - AuthCert: a directory authority certificate identified by key digests
//   - Microdesc / RouterDesc: relay descriptor documents keyed by digest
//   - BridgeDesc: a cached bridge descriptor keyed by a hashed bridge line
//   - Protocols: the recommended/required protocol recommendation snapshot
//   - Errors: domain-specific error definitions
//
// All stored documents carry the metadata needed to decide expiry and
// freshness without re-parsing document bodies.
package domain
