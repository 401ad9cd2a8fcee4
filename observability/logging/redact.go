package logging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

// Keys whose values never reach the logs. Payment proofs and external
// references identify off-ledger settlement; the rest are credentials.
var sensitiveKeys = map[string]struct{}{
	"proof":         {},
	"externalref":   {},
	"secret":        {},
	"hmacsecret":    {},
	"token":         {},
	"authorization": {},
}

func sensitive(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskField returns a string attribute, redacted when key names a sensitive
// value. Empty values pass through.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || !sensitive(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// MaskPayload renders a transition payload for logging with sensitive keys
// replaced at any depth. Payloads that are not JSON are summarised by size.
func MaskPayload(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Sprintf("<%d bytes, not json>", len(raw))
	}
	out, err := json.Marshal(maskValue(doc))
	if err != nil {
		return fmt.Sprintf("<%d bytes>", len(raw))
	}
	return string(out)
}

// PayloadAttr is MaskPayload as a "payload" attribute.
func PayloadAttr(raw []byte) slog.Attr {
	return slog.String("payload", MaskPayload(raw))
}

func maskValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		for key, inner := range typed {
			if !sensitive(key) {
				typed[key] = maskValue(inner)
				continue
			}
			if s, ok := inner.(string); inner == nil || (ok && s == "") {
				continue
			}
			typed[key] = RedactedValue
		}
		return typed
	case []any:
		for i := range typed {
			typed[i] = maskValue(typed[i])
		}
		return typed
	default:
		return v
	}
}
