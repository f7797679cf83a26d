package dircache

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/veildir/veildir-go/internal/core/domain"
	"github.com/veildir/veildir-go/internal/storage"
	"github.com/veildir/veildir-go/internal/telemetry/metric"
	"github.com/veildir/veildir-go/pkg/digest"
)

// KVStore implements Store over a flat storage.Backend.
//
// Every mutation first checks the backend's single-writer lock; without
// it the store is read-only and writes fail with domain.ErrReadOnly.
type KVStore struct {
	backend storage.Backend
	logger  *slog.Logger
	metrics *metric.Collector
}

// Option configures a KVStore.
type Option func(*KVStore)

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metric.Collector) Option {
	return func(s *KVStore) { s.metrics = c }
}

// NewKVStore creates a typed directory store over backend.
func NewKVStore(backend storage.Backend, logger *slog.Logger, opts ...Option) *KVStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &KVStore{
		backend: backend,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// writable returns domain.ErrReadOnly unless the backend lock is held.
func (s *KVStore) writable() error {
	locked, err := s.backend.IsLocked()
	if err != nil {
		return fmt.Errorf("dircache: check lock: %w", err)
	}
	if !locked {
		return domain.ErrReadOnly
	}
	return nil
}

func (s *KVStore) get(key string) (string, bool, error) {
	v, ok, err := s.backend.Get(key)
	if err != nil {
		return "", false, fmt.Errorf("dircache: get %q: %w", key, err)
	}
	return v, ok, nil
}

func (s *KVStore) set(key, value string) error {
	if err := s.backend.Set(key, value); err != nil {
		return fmt.Errorf("dircache: set %q: %w", key, err)
	}
	return nil
}

func (s *KVStore) delete(key string) error {
	if err := s.backend.Delete(key); err != nil {
		return fmt.Errorf("dircache: delete %q: %w", key, err)
	}
	return nil
}

func (s *KVStore) keys(prefix string) ([]string, error) {
	keys, err := s.backend.Keys(prefix)
	if err != nil {
		return nil, fmt.Errorf("dircache: keys %q: %w", prefix, err)
	}
	return keys, nil
}

// parseConsensusKey extracts the flavor from a consensus key.
func parseConsensusKey(key string) (domain.ConsensusFlavor, string, error) {
	rest := strings.TrimPrefix(key, consensusPrefix)
	i := strings.IndexByte(rest, ':')
	if i < 0 {
		return "", "", corrupt(key, fmt.Errorf("missing flavor separator"))
	}
	flavor, err := domain.ParseFlavor(rest[:i])
	if err != nil {
		return "", "", corrupt(key, err)
	}
	return flavor, rest[i+1:], nil
}

// StoreConsensus upserts a consensus record.
func (s *KVStore) StoreConsensus(c domain.Consensus) error {
	if err := s.writable(); err != nil {
		return err
	}
	if err := c.Meta.Lifetime.Validate(); err != nil {
		return err
	}

	value, err := encodeConsensus(c)
	if err != nil {
		return fmt.Errorf("dircache: encode consensus: %w", err)
	}
	if err := s.set(consensusKey(c.Meta.Flavor, c.Meta.Sha3OfWholeDoc), value); err != nil {
		return err
	}

	s.metrics.CountStored(metric.TypeConsensus, 1)
	s.logger.Debug("consensus stored",
		"flavor", string(c.Meta.Flavor),
		"valid_after", c.Meta.Lifetime.ValidAfter,
		"pending", c.Pending)
	return nil
}

// LatestConsensus returns the consensus with the greatest valid-after
// time, optionally filtered by pending state. Ties keep the record
// scanned first.
func (s *KVStore) LatestConsensus(flavor domain.ConsensusFlavor, pending *bool) (*domain.Consensus, error) {
	keys, err := s.keys(consensusPrefix + string(flavor) + ":")
	if err != nil {
		return nil, err
	}

	var best *domain.Consensus
	for _, key := range keys {
		raw, ok, err := s.get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		c, err := decodeConsensus(key, flavor, raw)
		if err != nil {
			return nil, err
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
func (s *KVStore) LatestConsensusMeta(flavor domain.ConsensusFlavor) (*domain.ConsensusMeta, error) {
	usable := false
	c, err := s.LatestConsensus(flavor, &usable)
	if err != nil || c == nil {
		return nil, err
	}
	meta := c.Meta
	return &meta, nil
}

// ConsensusBySha3DigestOfSignedPart finds a consensus by signed-part digest.
func (s *KVStore) ConsensusBySha3DigestOfSignedPart(d [32]byte) (*domain.Consensus, error) {
	keys, err := s.keys(consensusPrefix)
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		flavor, _, err := parseConsensusKey(key)
		if err != nil {
			return nil, err
		}
		raw, ok, err := s.get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		c, err := decodeConsensus(key, flavor, raw)
		if err != nil {
			return nil, err
		}
		if c.Meta.Sha3OfSignedPart == d {
			return &c, nil
		}
	}
	return nil, nil
}

// MarkConsensusUsable clears the pending flag of the identified record.
func (s *KVStore) MarkConsensusUsable(meta domain.ConsensusMeta) error {
	if err := s.writable(); err != nil {
		return err
	}

	key := consensusKey(meta.Flavor, meta.Sha3OfWholeDoc)
	raw, ok, err := s.get(key)
	if err != nil {
		return err
	}
	if !ok {
		// Already deleted; nothing to mark.
		return nil
	}

	c, err := decodeConsensus(key, meta.Flavor, raw)
	if err != nil {
		return err
	}
	if !c.Pending {
		return nil
	}
	c.Pending = false

	value, err := encodeConsensus(c)
	if err != nil {
		return fmt.Errorf("dircache: encode consensus: %w", err)
	}
	if err := s.set(key, value); err != nil {
		return err
	}

	s.logger.Debug("consensus marked usable", "flavor", string(meta.Flavor))
	return nil
}

// DeleteConsensus removes every consensus record whose key ends in the
// given whole-document digest, across flavors.
func (s *KVStore) DeleteConsensus(sha3OfWholeDoc [32]byte) error {
	if err := s.writable(); err != nil {
		return err
	}

	suffix := ":" + digest.Encode(sha3OfWholeDoc[:])
	keys, err := s.keys(consensusPrefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if strings.HasSuffix(key, suffix) {
			if err := s.delete(key); err != nil {
				return err
			}
		}
	}
	return nil
}

// AuthCerts returns the text of each requested certificate that is present.
func (s *KVStore) AuthCerts(ids []domain.AuthCertKeyIDs) (map[domain.AuthCertKeyIDs]string, error) {
	out := make(map[domain.AuthCertKeyIDs]string, len(ids))
	for _, id := range ids {
		key := authCertKey(id)
		raw, ok, err := s.get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rec, err := decodeAuthCert(key, raw)
		if err != nil {
			return nil, err
		}
		out[id] = rec.Content
	}
	return out, nil
}

// StoreAuthCerts upserts a batch of certificates.
func (s *KVStore) StoreAuthCerts(certs []domain.AuthCert) error {
	if err := s.writable(); err != nil {
		return err
	}
	for _, cert := range certs {
		value, err := encodeAuthCert(cert)
		if err != nil {
			return fmt.Errorf("dircache: encode authcert: %w", err)
		}
		if err := s.set(authCertKey(cert.Meta.IDs), value); err != nil {
			return err
		}
	}
	s.metrics.CountStored(metric.TypeAuthCert, len(certs))
	return nil
}

// Microdescs returns the text of each requested microdescriptor that is
// present.
func (s *KVStore) Microdescs(digests []domain.MdDigest) (map[domain.MdDigest]string, error) {
	out := make(map[domain.MdDigest]string, len(digests))
	for _, d := range digests {
		key := microdescKey(d)
		raw, ok, err := s.get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rec, err := decodeMicrodesc(key, raw)
		if err != nil {
			return nil, err
		}
		out[d] = rec.Content
	}
	return out, nil
}

// StoreMicrodescs upserts a batch of microdescriptors.
func (s *KVStore) StoreMicrodescs(mds []domain.Microdesc) error {
	if err := s.writable(); err != nil {
		return err
	}
	for _, md := range mds {
		value, err := encodeMicrodesc(md)
		if err != nil {
			return fmt.Errorf("dircache: encode microdesc: %w", err)
		}
		if err := s.set(microdescKey(md.Digest), value); err != nil {
			return err
		}
	}
	s.metrics.CountStored(metric.TypeMicrodesc, len(mds))
	return nil
}

// UpdateMicrodescsListed advances last-listed times, never backward.
func (s *KVStore) UpdateMicrodescsListed(digests []domain.MdDigest, when time.Time) error {
	if err := s.writable(); err != nil {
		return err
	}
	for _, d := range digests {
		key := microdescKey(d)
		raw, ok, err := s.get(key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		rec, err := decodeMicrodesc(key, raw)
		if err != nil {
			return err
		}
		if when.Unix() <= rec.LastListed {
			continue
		}
		rec.LastListed = when.Unix()

		value, err := encodeMicrodesc(domain.Microdesc{
			Digest:   d,
			ListedAt: time.Unix(rec.LastListed, 0).UTC(),
			Content:  rec.Content,
		})
		if err != nil {
			return fmt.Errorf("dircache: encode microdesc: %w", err)
		}
		if err := s.set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// RouterDescs returns the text of each requested descriptor that is present.
func (s *KVStore) RouterDescs(digests []domain.RdDigest) (map[domain.RdDigest]string, error) {
	out := make(map[domain.RdDigest]string, len(digests))
	for _, d := range digests {
		key := routerDescKey(d)
		raw, ok, err := s.get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rec, err := decodeRouterDesc(key, raw)
		if err != nil {
			return nil, err
		}
		out[d] = rec.Content
	}
	return out, nil
}

// StoreRouterDescs upserts a batch of router descriptors.
func (s *KVStore) StoreRouterDescs(rds []domain.RouterDesc) error {
	if err := s.writable(); err != nil {
		return err
	}
	for _, rd := range rds {
		value, err := encodeRouterDesc(rd)
		if err != nil {
			return fmt.Errorf("dircache: encode routerdesc: %w", err)
		}
		if err := s.set(routerDescKey(rd.Digest), value); err != nil {
			return err
		}
	}
	s.metrics.CountStored(metric.TypeRouterDesc, len(rds))
	return nil
}

// LookupBridgeDesc returns the cached descriptor for a bridge line.
func (s *KVStore) LookupBridgeDesc(line domain.BridgeLine) (*domain.BridgeDesc, error) {
	key := bridgeKey(line)
	raw, ok, err := s.get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	desc, err := decodeBridgeDesc(key, raw)
	if err != nil {
		return nil, err
	}
	return &desc, nil
}

// StoreBridgeDesc upserts the cached descriptor for a bridge line.
func (s *KVStore) StoreBridgeDesc(line domain.BridgeLine, desc domain.BridgeDesc) error {
	if err := s.writable(); err != nil {
		return err
	}
	value, err := encodeBridgeDesc(desc)
	if err != nil {
		return fmt.Errorf("dircache: encode bridgedesc: %w", err)
	}
	if err := s.set(bridgeKey(line), value); err != nil {
		return err
	}
	s.metrics.CountStored(metric.TypeBridge, 1)
	return nil
}

// DeleteBridgeDesc removes the cached descriptor for a bridge line.
func (s *KVStore) DeleteBridgeDesc(line domain.BridgeLine) error {
	if err := s.writable(); err != nil {
		return err
	}
	return s.delete(bridgeKey(line))
}

// UpdateProtocolRecommendations replaces the protocol slot only when rec
// is strictly newer than the stored recommendation.
func (s *KVStore) UpdateProtocolRecommendations(rec domain.ProtoRecommendation) error {
	if err := s.writable(); err != nil {
		return err
	}

	raw, ok, err := s.get(protocolsKey)
	if err != nil {
		return err
	}
	if ok {
		prev, err := decodeProtocols(protocolsKey, raw)
		if err != nil {
			return err
		}
		if !rec.NewerThan(prev) {
			return nil
		}
	}

	value, err := encodeProtocols(rec)
	if err != nil {
		return fmt.Errorf("dircache: encode protocols: %w", err)
	}
	if err := s.set(protocolsKey, value); err != nil {
		return err
	}
	s.metrics.CountStored(metric.TypeProtocols, 1)
	return nil
}

// CachedProtocolRecommendations returns the stored recommendation slot.
func (s *KVStore) CachedProtocolRecommendations() (*domain.ProtoRecommendation, error) {
	raw, ok, err := s.get(protocolsKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	rec, err := decodeProtocols(protocolsKey, raw)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ExpireAll removes every record past its expiry at time now.
//
// Expiry is each type's natural time field plus its configured
// tolerance; bridge descriptors use their own stored expiry. The first
// corrupt record aborts the sweep.
func (s *KVStore) ExpireAll(cfg ExpirationConfig, now time.Time) (int, error) {
	if err := s.writable(); err != nil {
		return 0, err
	}

	start := time.Now()
	total := 0

	sweep := func(prefix, recordType string, expiryOf func(key, raw string) (time.Time, error)) error {
		keys, err := s.keys(prefix)
		if err != nil {
			return err
		}
		removed := 0
		for _, key := range keys {
			raw, ok, err := s.get(key)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			expiry, err := expiryOf(key, raw)
			if err != nil {
				return err
			}
			if now.Before(expiry) {
				continue
			}
			if err := s.delete(key); err != nil {
				return err
			}
			removed++
		}
		total += removed
		s.metrics.CountExpired(recordType, removed)
		return nil
	}

	if err := sweep(consensusPrefix, metric.TypeConsensus, func(key, raw string) (time.Time, error) {
		flavor, _, err := parseConsensusKey(key)
		if err != nil {
			return time.Time{}, err
		}
		c, err := decodeConsensus(key, flavor, raw)
		if err != nil {
			return time.Time{}, err
		}
		return c.Meta.Lifetime.ValidUntil.Add(cfg.Consensus), nil
	}); err != nil {
		return total, err
	}

	if err := sweep(authCertPrefix, metric.TypeAuthCert, func(key, raw string) (time.Time, error) {
		rec, err := decodeAuthCert(key, raw)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(rec.Expires, 0).UTC().Add(cfg.AuthCert), nil
	}); err != nil {
		return total, err
	}

	if err := sweep(microdescPrefix, metric.TypeMicrodesc, func(key, raw string) (time.Time, error) {
		rec, err := decodeMicrodesc(key, raw)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(rec.LastListed, 0).UTC().Add(cfg.Microdesc), nil
	}); err != nil {
		return total, err
	}

	if err := sweep(routerDescPrefix, metric.TypeRouterDesc, func(key, raw string) (time.Time, error) {
		rec, err := decodeRouterDesc(key, raw)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(rec.Published, 0).UTC().Add(cfg.RouterDesc), nil
	}); err != nil {
		return total, err
	}

	if err := sweep(bridgePrefix, metric.TypeBridge, func(key, raw string) (time.Time, error) {
		desc, err := decodeBridgeDesc(key, raw)
		if err != nil {
			return time.Time{}, err
		}
		return desc.Until, nil
	}); err != nil {
		return total, err
	}

	s.metrics.ObserveSweep(time.Since(start).Seconds())
	s.logger.Info("expiration sweep completed",
		"removed", total,
		"elapsed", time.Since(start))
	return total, nil
}
