package logger

import "testing"

func TestRedactBridgeLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"obfs4 192.0.2.3:80 cert=abc iat-mode=0", "obfs4 ***"},
		{"snowflake 192.0.2.4:443 fingerprint=ff", "snowflake ***"},
		{"customtransport 192.0.2.5:80", "customtransport ***"},
		{"plainaddress", redactedValue},
		{"", ""},
	}

	for _, tt := range tests {
		if got := RedactBridgeLine(tt.in); got != tt.want {
			t.Errorf("RedactBridgeLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsSensitiveKey(t *testing.T) {
	if !IsSensitiveKey("bridge_line") {
		t.Error("IsSensitiveKey(bridge_line) = false, want true")
	}
	if !IsSensitiveKey("ClientSecret") {
		t.Error("IsSensitiveKey(ClientSecret) = false, want true")
	}
	if IsSensitiveKey("flavor") {
		t.Error("IsSensitiveKey(flavor) = true, want false")
	}
}
