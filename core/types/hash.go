package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash is a 32-byte identifier rendered as 0x-prefixed hex.
type Hash [32]byte

func (h Hash) String() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) IsZero() bool { return h == Hash{} }

func (h Hash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash decodes a hex identifier with or without the 0x prefix.
func ParseHash(s string) (Hash, error) {
	var out Hash
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, fmt.Errorf("invalid hash: %w", err)
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("invalid hash length %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
