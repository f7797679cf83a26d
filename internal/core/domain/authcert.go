package domain

import "time"

// AuthCertKeyIDs identifies a directory authority certificate by the
// fingerprints of its identity key and signing key.
type AuthCertKeyIDs struct {
	IDFingerprint [20]byte
	SKFingerprint [20]byte
}

// AuthCertMeta is the metadata of a cached authority certificate.
type AuthCertMeta struct {
	IDs       AuthCertKeyIDs
	Published time.Time
	Expires   time.Time
}

// AuthCert is a cached directory authority certificate.
type AuthCert struct {
	Meta    AuthCertMeta
	Content string
}
