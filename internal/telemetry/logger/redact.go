// Package logger provides structured logging for VeilDir.
package logger

import (
	"log/slog"
	"strings"
)

// Bridge lines start with a pluggable-transport name followed by the
// bridge's address. The address is a blocking-circumvention secret, so
// a value that looks like a bridge line is masked down to the
// transport name.
var bridgeTransportPrefixes = []string{
	"obfs4 ",
	"obfs3 ",
	"snowflake ",
	"webtunnel ",
	"meek_lite ",
	"scramblesuit ",
}

// Key names whose values are always fully redacted.
var sensitiveKeyPatterns = []string{
	"bridge_line",
	"bridge_addr",
	"secret",
	"password",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive checks if an attribute contains sensitive data
// and redacts it if necessary.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()

		// Value-shape detection takes priority over key names.
		for _, prefix := range bridgeTransportPrefixes {
			if strings.HasPrefix(strVal, prefix) {
				return slog.String(a.Key, strings.TrimSpace(prefix)+" ***")
			}
		}

		keyLower := strings.ToLower(a.Key)
		for _, pattern := range sensitiveKeyPatterns {
			if strings.Contains(keyLower, pattern) {
				if strVal != "" {
					return slog.String(a.Key, redactedValue)
				}
				break
			}
		}
	}

	// Handle nested groups recursively.
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// RedactBridgeLine masks a bridge line for display, keeping only the
// transport name. Use this before putting a line into an error string.
func RedactBridgeLine(line string) string {
	for _, prefix := range bridgeTransportPrefixes {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(prefix) + " ***"
		}
	}
	if line == "" {
		return line
	}
	// Unknown transport; keep only the first token.
	if i := strings.IndexByte(line, ' '); i > 0 {
		return line[:i] + " ***"
	}
	return redactedValue
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
