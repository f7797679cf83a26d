package memory

import (
	"time"

	"github.com/veildir/veildir-go/internal/storage/dircache"
)

// ExpireAll removes every record past its expiry at time now.
//
// Same policy as the KV-backed store: each type's natural time field
// plus its tolerance, and bridge descriptors use their own expiry.
// Native records cannot be corrupt, so the sweep never aborts.
func (s *DirStore) ExpireAll(cfg dircache.ExpirationConfig, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(); err != nil {
		return 0, err
	}

	removed := 0

	for id, c := range s.consensuses {
		if !now.Before(c.Meta.Lifetime.ValidUntil.Add(cfg.Consensus)) {
			delete(s.consensuses, id)
			removed++
		}
	}
	for id, cert := range s.authcerts {
		if !now.Before(cert.Meta.Expires.Add(cfg.AuthCert)) {
			delete(s.authcerts, id)
			removed++
		}
	}
	for d, md := range s.microdescs {
		if !now.Before(md.ListedAt.Add(cfg.Microdesc)) {
			delete(s.microdescs, d)
			removed++
		}
	}
	for d, rd := range s.routerdescs {
		if !now.Before(rd.Published.Add(cfg.RouterDesc)) {
			delete(s.routerdescs, d)
			removed++
		}
	}
	for h, bd := range s.bridges {
		if !now.Before(bd.Until) {
			delete(s.bridges, h)
			removed++
		}
	}

	return removed, nil
}
