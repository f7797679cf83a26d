package dircache

import (
	"time"

	"github.com/veildir/veildir-go/internal/core/domain"
)

// Store is the typed directory-document store capability.
//
// Implementations: KVStore (over any storage.Backend) and
// memory.DirStore (native maps, no backend).
type Store interface {
	// StoreConsensus upserts a consensus document keyed by its
	// whole-document digest.
	StoreConsensus(c domain.Consensus) error

	// LatestConsensus returns the consensus with the greatest
	// valid-after time for the flavor. If pending is non-nil, only
	// records whose pending flag matches are considered. Returns nil
	// when no record qualifies.
	LatestConsensus(flavor domain.ConsensusFlavor, pending *bool) (*domain.Consensus, error)

	// LatestConsensusMeta is LatestConsensus restricted to usable
	// (non-pending) records, returning metadata only.
	LatestConsensusMeta(flavor domain.ConsensusFlavor) (*domain.ConsensusMeta, error)

	// ConsensusBySha3DigestOfSignedPart finds a consensus by the digest
	// of its signed portion. Linear scan; first match wins.
	ConsensusBySha3DigestOfSignedPart(d [32]byte) (*domain.Consensus, error)

	// MarkConsensusUsable clears the pending flag of the consensus
	// identified by meta's whole-document digest. Absent record is a
	// no-op.
	MarkConsensusUsable(meta domain.ConsensusMeta) error

	// DeleteConsensus removes every consensus record whose key ends in
	// the given whole-document digest, regardless of flavor.
	DeleteConsensus(sha3OfWholeDoc [32]byte) error

	// AuthCerts returns the document text for each requested
	// certificate that is present.
	AuthCerts(ids []domain.AuthCertKeyIDs) (map[domain.AuthCertKeyIDs]string, error)

	// StoreAuthCerts upserts a batch of authority certificates.
	StoreAuthCerts(certs []domain.AuthCert) error

	// Microdescs returns the document text for each requested digest
	// that is present.
	Microdescs(digests []domain.MdDigest) (map[domain.MdDigest]string, error)

	// StoreMicrodescs upserts a batch of microdescriptors, all listed
	// at the given time.
	StoreMicrodescs(mds []domain.Microdesc) error

	// UpdateMicrodescsListed advances the last-listed time of the given
	// digests to when. The listed time never moves backward; absent
	// digests are skipped.
	UpdateMicrodescsListed(digests []domain.MdDigest, when time.Time) error

	// RouterDescs returns the document text for each requested digest
	// that is present.
	RouterDescs(digests []domain.RdDigest) (map[domain.RdDigest]string, error)

	// StoreRouterDescs upserts a batch of router descriptors.
	StoreRouterDescs(rds []domain.RouterDesc) error

	// LookupBridgeDesc returns the cached descriptor for a bridge line,
	// or nil when absent.
	LookupBridgeDesc(line domain.BridgeLine) (*domain.BridgeDesc, error)

	// StoreBridgeDesc upserts the cached descriptor for a bridge line.
	StoreBridgeDesc(line domain.BridgeLine, desc domain.BridgeDesc) error

	// DeleteBridgeDesc removes the cached descriptor for a bridge line.
	DeleteBridgeDesc(line domain.BridgeLine) error

	// UpdateProtocolRecommendations replaces the protocol
	// recommendation slot if rec is strictly newer than the stored one.
	UpdateProtocolRecommendations(rec domain.ProtoRecommendation) error

	// CachedProtocolRecommendations returns the stored recommendation,
	// or nil when the slot is empty.
	CachedProtocolRecommendations() (*domain.ProtoRecommendation, error)

	// ExpireAll removes every record past its expiry at time now and
	// returns the number of records removed. A record that fails to
	// decode aborts the sweep.
	ExpireAll(cfg ExpirationConfig, now time.Time) (int, error)
}

// ExpirationConfig holds the per-type retention tolerance added to each
// record's natural time field. Bridge descriptors ignore the config and
// use their own stored expiry.
type ExpirationConfig struct {
	Consensus  time.Duration
	AuthCert   time.Duration
	Microdesc  time.Duration
	RouterDesc time.Duration
}

// DefaultExpirationConfig returns the standard retention tolerances.
func DefaultExpirationConfig() ExpirationConfig {
	return ExpirationConfig{
		Consensus:  2 * 24 * time.Hour,
		AuthCert:   2 * 24 * time.Hour,
		Microdesc:  7 * 24 * time.Hour,
		RouterDesc: 7 * 24 * time.Hour,
	}
}
