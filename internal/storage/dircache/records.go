package dircache

import (
	"encoding/json"
	"time"

	"github.com/veildir/veildir-go/internal/core/domain"
	"github.com/veildir/veildir-go/pkg/digest"
)

// Key schemes. Every directory record lives under "dir:"; the tag after
// it selects the record type. Timestamps inside records are Unix
// seconds so values stay byte-identical across backends.
const (
	consensusPrefix  = "dir:consensus:"
	authCertPrefix   = "dir:authcert:"
	microdescPrefix  = "dir:microdesc:"
	routerDescPrefix = "dir:routerdesc:"
	bridgePrefix     = "dir:bridge:"
	protocolsKey     = "dir:protocols"
)

func consensusKey(flavor domain.ConsensusFlavor, sha3OfWholeDoc [32]byte) string {
	return consensusPrefix + string(flavor) + ":" + digest.Encode(sha3OfWholeDoc[:])
}

func authCertKey(ids domain.AuthCertKeyIDs) string {
	return authCertPrefix + digest.Encode(ids.IDFingerprint[:]) + ":" + digest.Encode(ids.SKFingerprint[:])
}

func microdescKey(d domain.MdDigest) string {
	return microdescPrefix + digest.Encode(d[:])
}

func routerDescKey(d domain.RdDigest) string {
	return routerDescPrefix + digest.Encode(d[:])
}

func bridgeKey(line domain.BridgeLine) string {
	h := line.CacheKeyHash()
	return bridgePrefix + digest.Encode(h[:])
}

type storedConsensus struct {
	ValidAfter   int64  `json:"valid_after"`
	FreshUntil   int64  `json:"fresh_until"`
	ValidUntil   int64  `json:"valid_until"`
	Sha3OfSigned string `json:"sha3_of_signed"`
	Sha3OfWhole  string `json:"sha3_of_whole"`
	Pending      bool   `json:"pending"`
	Content      string `json:"content"`
}

type storedAuthCert struct {
	Published int64  `json:"published"`
	Expires   int64  `json:"expires"`
	Content   string `json:"content"`
}

type storedMicrodesc struct {
	LastListed int64  `json:"last_listed"`
	Content    string `json:"content"`
}

type storedRouterDesc struct {
	Published int64  `json:"published"`
	Content   string `json:"content"`
}

type storedBridgeDesc struct {
	Fetched int64  `json:"fetched"`
	Until   int64  `json:"until"`
	Content string `json:"content"`
}

type storedProtocols struct {
	ValidAfter int64  `json:"valid_after"`
	Protocols  string `json:"protocols"`
}

// corrupt tags a decoding failure with the offending key.
func corrupt(key string, cause error) error {
	return domain.ErrCacheCorrupted.WithDetails(key).WithCause(cause)
}

func encodeConsensus(c domain.Consensus) (string, error) {
	rec := storedConsensus{
		ValidAfter:   c.Meta.Lifetime.ValidAfter.Unix(),
		FreshUntil:   c.Meta.Lifetime.FreshUntil.Unix(),
		ValidUntil:   c.Meta.Lifetime.ValidUntil.Unix(),
		Sha3OfSigned: digest.Encode(c.Meta.Sha3OfSignedPart[:]),
		Sha3OfWhole:  digest.Encode(c.Meta.Sha3OfWholeDoc[:]),
		Pending:      c.Pending,
		Content:      string(c.Content),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeConsensus(key string, flavor domain.ConsensusFlavor, raw string) (domain.Consensus, error) {
	var rec storedConsensus
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.Consensus{}, corrupt(key, err)
	}

	signed, err := digest.Decode32(rec.Sha3OfSigned)
	if err != nil {
		return domain.Consensus{}, corrupt(key, domain.ErrBadDigest.WithCause(err))
	}
	whole, err := digest.Decode32(rec.Sha3OfWhole)
	if err != nil {
		return domain.Consensus{}, corrupt(key, domain.ErrBadDigest.WithCause(err))
	}

	lifetime := domain.Lifetime{
		ValidAfter: time.Unix(rec.ValidAfter, 0).UTC(),
		FreshUntil: time.Unix(rec.FreshUntil, 0).UTC(),
		ValidUntil: time.Unix(rec.ValidUntil, 0).UTC(),
	}
	if err := lifetime.Validate(); err != nil {
		return domain.Consensus{}, corrupt(key, err)
	}

	return domain.Consensus{
		Meta: domain.ConsensusMeta{
			Flavor:           flavor,
			Lifetime:         lifetime,
			Sha3OfSignedPart: signed,
			Sha3OfWholeDoc:   whole,
		},
		Pending: rec.Pending,
		Content: []byte(rec.Content),
	}, nil
}

func encodeAuthCert(c domain.AuthCert) (string, error) {
	raw, err := json.Marshal(storedAuthCert{
		Published: c.Meta.Published.Unix(),
		Expires:   c.Meta.Expires.Unix(),
		Content:   c.Content,
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeAuthCert(key, raw string) (storedAuthCert, error) {
	var rec storedAuthCert
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return storedAuthCert{}, corrupt(key, err)
	}
	return rec, nil
}

func encodeMicrodesc(md domain.Microdesc) (string, error) {
	raw, err := json.Marshal(storedMicrodesc{
		LastListed: md.ListedAt.Unix(),
		Content:    md.Content,
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeMicrodesc(key, raw string) (storedMicrodesc, error) {
	var rec storedMicrodesc
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return storedMicrodesc{}, corrupt(key, err)
	}
	return rec, nil
}

func encodeRouterDesc(rd domain.RouterDesc) (string, error) {
	raw, err := json.Marshal(storedRouterDesc{
		Published: rd.Published.Unix(),
		Content:   rd.Content,
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeRouterDesc(key, raw string) (storedRouterDesc, error) {
	var rec storedRouterDesc
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return storedRouterDesc{}, corrupt(key, err)
	}
	return rec, nil
}

func encodeBridgeDesc(d domain.BridgeDesc) (string, error) {
	raw, err := json.Marshal(storedBridgeDesc{
		Fetched: d.Fetched.Unix(),
		Until:   d.Until.Unix(),
		Content: d.Content,
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeBridgeDesc(key, raw string) (domain.BridgeDesc, error) {
	var rec storedBridgeDesc
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.BridgeDesc{}, corrupt(key, err)
	}
	return domain.BridgeDesc{
		Fetched: time.Unix(rec.Fetched, 0).UTC(),
		Until:   time.Unix(rec.Until, 0).UTC(),
		Content: rec.Content,
	}, nil
}

func encodeProtocols(rec domain.ProtoRecommendation) (string, error) {
	raw, err := json.Marshal(storedProtocols{
		ValidAfter: rec.ValidAfter.Unix(),
		Protocols:  rec.Protocols,
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeProtocols(key, raw string) (domain.ProtoRecommendation, error) {
	var rec storedProtocols
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.ProtoRecommendation{}, corrupt(key, err)
	}
	return domain.ProtoRecommendation{
		ValidAfter: time.Unix(rec.ValidAfter, 0).UTC(),
		Protocols:  rec.Protocols,
	}, nil
}
