package memory

import (
	"sync"
	"time"

	"github.com/veildir/veildir-go/internal/core/domain"
)

// consensusID keys a consensus by flavor and whole-document digest, the
// same identity the KV key scheme encodes.
type consensusID struct {
	flavor domain.ConsensusFlavor
	whole  [32]byte
}

// DirStore is the in-memory typed directory store.
//
// A read-only DirStore rejects every mutation with domain.ErrReadOnly,
// mirroring a KV store whose backend lock is not held.
type DirStore struct {
	mu sync.RWMutex

	consensuses map[consensusID]domain.Consensus
	authcerts   map[domain.AuthCertKeyIDs]domain.AuthCert
	microdescs  map[domain.MdDigest]domain.Microdesc
	routerdescs map[domain.RdDigest]domain.RouterDesc
	bridges     map[[16]byte]domain.BridgeDesc
	protocols   *domain.ProtoRecommendation

	readonly bool
}

// NewDirStore creates an empty, writable in-memory directory store.
func NewDirStore() *DirStore {
	return &DirStore{
		consensuses: make(map[consensusID]domain.Consensus),
		authcerts:   make(map[domain.AuthCertKeyIDs]domain.AuthCert),
		microdescs:  make(map[domain.MdDigest]domain.Microdesc),
		routerdescs: make(map[domain.RdDigest]domain.RouterDesc),
		bridges:     make(map[[16]byte]domain.BridgeDesc),
	}
}

// SetReadOnly flips the read-only flag.
func (s *DirStore) SetReadOnly(ro bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readonly = ro
}

func (s *DirStore) writable() error {
	if s.readonly {
		return domain.ErrReadOnly
	}
	return nil
}

// StoreConsensus upserts a consensus record.
func (s *DirStore) StoreConsensus(c domain.Consensus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}
	if err := c.Meta.Lifetime.Validate(); err != nil {
		return err
	}
	s.consensuses[consensusID{c.Meta.Flavor, c.Meta.Sha3OfWholeDoc}] = c
	return nil
}

// LatestConsensus returns the consensus with the greatest valid-after
// time, optionally filtered by pending state.
func (s *DirStore) LatestConsensus(flavor domain.ConsensusFlavor, pending *bool) (*domain.Consensus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.Consensus
	for id, c := range s.consensuses {
		if id.flavor != flavor {
			continue
		}
		if pending != nil && c.Pending != *pending {
			continue
		}
		if best == nil || c.Meta.Lifetime.ValidAfter.After(best.Meta.Lifetime.ValidAfter) {
			cc := c
			best = &cc
		}
	}
	return best, nil
}

// LatestConsensusMeta returns the metadata of the latest usable consensus.
func (s *DirStore) LatestConsensusMeta(flavor domain.ConsensusFlavor) (*domain.ConsensusMeta, error) {
	usable := false
	c, err := s.LatestConsensus(flavor, &usable)
	if err != nil || c == nil {
		return nil, err
	}
	meta := c.Meta
	return &meta, nil
}

// ConsensusBySha3DigestOfSignedPart finds a consensus by signed-part digest.
func (s *DirStore) ConsensusBySha3DigestOfSignedPart(d [32]byte) (*domain.Consensus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.consensuses {
		if c.Meta.Sha3OfSignedPart == d {
			cc := c
			return &cc, nil
		}
	}
	return nil, nil
}

// MarkConsensusUsable clears the pending flag. Absent record is a no-op.
func (s *DirStore) MarkConsensusUsable(meta domain.ConsensusMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}

	id := consensusID{meta.Flavor, meta.Sha3OfWholeDoc}
	c, ok := s.consensuses[id]
	if !ok {
		return nil
	}
	c.Pending = false
	s.consensuses[id] = c
	return nil
}

// DeleteConsensus removes the record under every flavor.
func (s *DirStore) DeleteConsensus(sha3OfWholeDoc [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}

	for id := range s.consensuses {
		if id.whole == sha3OfWholeDoc {
			delete(s.consensuses, id)
		}
	}
	return nil
}

// AuthCerts returns the text of each requested certificate that is present.
func (s *DirStore) AuthCerts(ids []domain.AuthCertKeyIDs) (map[domain.AuthCertKeyIDs]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.AuthCertKeyIDs]string, len(ids))
	for _, id := range ids {
		if cert, ok := s.authcerts[id]; ok {
			out[id] = cert.Content
		}
	}
	return out, nil
}

// StoreAuthCerts upserts a batch of certificates.
func (s *DirStore) StoreAuthCerts(certs []domain.AuthCert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}
	for _, cert := range certs {
		s.authcerts[cert.Meta.IDs] = cert
	}
	return nil
}

// Microdescs returns the text of each requested digest that is present.
func (s *DirStore) Microdescs(digests []domain.MdDigest) (map[domain.MdDigest]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.MdDigest]string, len(digests))
	for _, d := range digests {
		if md, ok := s.microdescs[d]; ok {
			out[d] = md.Content
		}
	}
	return out, nil
}

// StoreMicrodescs upserts a batch of microdescriptors.
func (s *DirStore) StoreMicrodescs(mds []domain.Microdesc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}
	for _, md := range mds {
		s.microdescs[md.Digest] = md
	}
	return nil
}

// UpdateMicrodescsListed advances last-listed times, never backward.
func (s *DirStore) UpdateMicrodescsListed(digests []domain.MdDigest, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}

	for _, d := range digests {
		md, ok := s.microdescs[d]
		if !ok {
			continue
		}
		if when.After(md.ListedAt) {
			md.ListedAt = when
			s.microdescs[d] = md
		}
	}
	return nil
}

// RouterDescs returns the text of each requested digest that is present.
func (s *DirStore) RouterDescs(digests []domain.RdDigest) (map[domain.RdDigest]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.RdDigest]string, len(digests))
	for _, d := range digests {
		if rd, ok := s.routerdescs[d]; ok {
			out[d] = rd.Content
		}
	}
	return out, nil
}

// StoreRouterDescs upserts a batch of router descriptors.
func (s *DirStore) StoreRouterDescs(rds []domain.RouterDesc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}
	for _, rd := range rds {
		s.routerdescs[rd.Digest] = rd
	}
	return nil
}

// LookupBridgeDesc returns the cached descriptor for a bridge line.
func (s *DirStore) LookupBridgeDesc(line domain.BridgeLine) (*domain.BridgeDesc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	desc, ok := s.bridges[line.CacheKeyHash()]
	if !ok {
		return nil, nil
	}
	return &desc, nil
}

// StoreBridgeDesc upserts the cached descriptor for a bridge line.
func (s *DirStore) StoreBridgeDesc(line domain.BridgeLine, desc domain.BridgeDesc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}
	s.bridges[line.CacheKeyHash()] = desc
	return nil
}

// DeleteBridgeDesc removes the cached descriptor for a bridge line.
func (s *DirStore) DeleteBridgeDesc(line domain.BridgeLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}
	delete(s.bridges, line.CacheKeyHash())
	return nil
}

// UpdateProtocolRecommendations replaces the slot only when strictly newer.
func (s *DirStore) UpdateProtocolRecommendations(rec domain.ProtoRecommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return err
	}

	if s.protocols != nil && !rec.NewerThan(*s.protocols) {
		return nil
	}
	s.protocols = &rec
	return nil
}

// CachedProtocolRecommendations returns the stored recommendation slot.
func (s *DirStore) CachedProtocolRecommendations() (*domain.ProtoRecommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.protocols == nil {
		return nil, nil
	}
	rec := *s.protocols
	return &rec, nil
}

// Counts returns the number of records per type, for diagnostics.
func (s *DirStore) Counts() (consensuses, authcerts, microdescs, routerdescs, bridges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.consensuses), len(s.authcerts), len(s.microdescs), len(s.routerdescs), len(s.bridges)
}
