package events

import (
	"encoding/hex"
	"strconv"

	"github.com/holiman/uint256"
)

// FormatAmount renders a 256-bit value in decimal; nil renders as "0".
func FormatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

// FormatID renders a 32-byte identifier as 0x-prefixed hex.
func FormatID(id [32]byte) string {
	return "0x" + hex.EncodeToString(id[:])
}

// FormatUint renders an unsigned integer attribute.
func FormatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
