package domain

import "time"

// ProtoRecommendation is the cached protocol recommendation snapshot.
//
// There is a single slot for this record; it is replaced only by a
// recommendation with a strictly newer ValidAfter.
type ProtoRecommendation struct {
	ValidAfter time.Time
	Protocols  string
}

// NewerThan reports whether p should replace prev.
func (p ProtoRecommendation) NewerThan(prev ProtoRecommendation) bool {
	return p.ValidAfter.After(prev.ValidAfter)
}
