package logging

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// RedactedValue is the canonical placeholder used for sensitive fields in logs.
const RedactedValue = "[REDACTED]"

// selectorLen bytes of call data stay visible so logs still name the method.
const selectorLen = 4

var redactionAllowlist = map[string]struct{}{
	"service":     {},
	"env":         {},
	"message":     {},
	"severity":    {},
	"timestamp":   {},
	"error":       {},
	"reason":      {},
	"component":   {},
	"method":      {},
	"request_id":  {},
	"block":       {},
	"transaction": {},
	"operation":   {},
}

// IsAllowlisted reports whether the provided key is exempt from automatic redaction.
func IsAllowlisted(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	_, ok := redactionAllowlist[normalized]
	return ok
}

// RedactionAllowlist returns a sorted copy of the log keys that are allowed to be emitted
// without redaction.
func RedactionAllowlist() []string {
	keys := make([]string, 0, len(redactionAllowlist))
	for key := range redactionAllowlist {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MaskValue returns the canonical redacted placeholder for non-empty values. Empty values
// are returned unchanged to avoid introducing noise in logs.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// MaskField returns a slog.Attr that redacts the supplied value unless the key is
// explicitly allowlisted. The original key casing is preserved for readability.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// MaskHex renders binary payloads such as call data or key material. Unless
// the key is allowlisted only the leading selector and the length survive.
func MaskHex(key string, data []byte) slog.Attr {
	if len(data) == 0 {
		return slog.String(key, "0x")
	}
	if IsAllowlisted(key) {
		return slog.String(key, "0x"+hex.EncodeToString(data))
	}
	if len(data) <= selectorLen {
		return slog.String(key, "0x"+hex.EncodeToString(data))
	}
	return slog.String(key, fmt.Sprintf("0x%s%s(%d bytes)", hex.EncodeToString(data[:selectorLen]), RedactedValue, len(data)))
}
