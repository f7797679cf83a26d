package domain

import (
	"errors"
	"testing"
	"time"
)

func TestLifetime_Validate(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		l       Lifetime
		wantErr bool
	}{
		{
			name: "well ordered",
			l:    Lifetime{ValidAfter: base, FreshUntil: base.Add(time.Hour), ValidUntil: base.Add(3 * time.Hour)},
		},
		{
			name: "degenerate but equal",
			l:    Lifetime{ValidAfter: base, FreshUntil: base, ValidUntil: base},
		},
		{
			name:    "fresh before valid-after",
			l:       Lifetime{ValidAfter: base.Add(time.Hour), FreshUntil: base, ValidUntil: base.Add(2 * time.Hour)},
			wantErr: true,
		},
		{
			name:    "valid-until before fresh",
			l:       Lifetime{ValidAfter: base, FreshUntil: base.Add(2 * time.Hour), ValidUntil: base.Add(time.Hour)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.l.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrBadLifetime) {
				t.Fatalf("Validate() error = %v, want ErrBadLifetime", err)
			}
		})
	}
}

func TestParseFlavor(t *testing.T) {
	if f, err := ParseFlavor("microdesc"); err != nil || f != FlavorMicrodesc {
		t.Fatalf("ParseFlavor(microdesc) = %v, %v", f, err)
	}
	if f, err := ParseFlavor("ns"); err != nil || f != FlavorPlain {
		t.Fatalf("ParseFlavor(ns) = %v, %v", f, err)
	}
	if _, err := ParseFlavor("bogus"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("ParseFlavor(bogus) error = %v, want ErrInvalidArgument", err)
	}
}

func TestProtoRecommendation_NewerThan(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	old := ProtoRecommendation{ValidAfter: base}
	same := ProtoRecommendation{ValidAfter: base}
	newer := ProtoRecommendation{ValidAfter: base.Add(time.Hour)}

	if !newer.NewerThan(old) {
		t.Fatal("newer.NewerThan(old) = false, want true")
	}
	if same.NewerThan(old) {
		t.Fatal("same.NewerThan(old) = true, want false")
	}
	if old.NewerThan(newer) {
		t.Fatal("old.NewerThan(newer) = true, want false")
	}
}

func TestBridgeLine_CacheKeyHash(t *testing.T) {
	a := BridgeLine("obfs4 192.0.2.3:80 cert=abc iat-mode=0")
	b := BridgeLine("obfs4 192.0.2.4:80 cert=def iat-mode=0")

	if a.CacheKeyHash() == b.CacheKeyHash() {
		t.Fatal("distinct bridge lines produced the same cache key hash")
	}
	if a.CacheKeyHash() != a.CacheKeyHash() {
		t.Fatal("cache key hash is not deterministic")
	}
}
