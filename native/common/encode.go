package common

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Encoder builds the canonical byte encoding used to derive record
// identifiers and verification hashes. Integers are fixed-width big-endian,
// variable-length values carry a uint32 length prefix and optional values a
// presence byte. Field order is fixed by the caller.
type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder { return &Encoder{buf: make([]byte, 0, 128)} }

func (e *Encoder) Uint8(v uint8) *Encoder {
	e.buf = append(e.buf, v)
	return e
}

func (e *Encoder) Bool(v bool) *Encoder {
	if v {
		return e.Uint8(1)
	}
	return e.Uint8(0)
}

func (e *Encoder) Uint32(v uint32) *Encoder {
	e.buf = binary.BigEndian.AppendUint32(e.buf, v)
	return e
}

func (e *Encoder) Uint64(v uint64) *Encoder {
	e.buf = binary.BigEndian.AppendUint64(e.buf, v)
	return e
}

// Uint256 writes 32 bytes; nil encodes as zero.
func (e *Encoder) Uint256(v *uint256.Int) *Encoder {
	var word [32]byte
	if v != nil {
		word = v.Bytes32()
	}
	e.buf = append(e.buf, word[:]...)
	return e
}

func (e *Encoder) Bytes(v []byte) *Encoder {
	e.Uint32(uint32(len(v)))
	e.buf = append(e.buf, v...)
	return e
}

func (e *Encoder) String(v string) *Encoder { return e.Bytes([]byte(v)) }

// Fixed appends raw bytes with no length prefix (accounts, hashes).
func (e *Encoder) Fixed(v []byte) *Encoder {
	e.buf = append(e.buf, v...)
	return e
}

// OptionalBytes writes a presence byte followed by the length-prefixed value.
func (e *Encoder) OptionalBytes(v []byte, present bool) *Encoder {
	e.Bool(present)
	if present {
		e.Bytes(v)
	}
	return e
}

// Encoded returns a copy of the accumulated bytes.
func (e *Encoder) Encoded() []byte { return append([]byte(nil), e.buf...) }

// Sum returns the Keccak-256 digest of the accumulated bytes.
func (e *Encoder) Sum() [32]byte {
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(e.buf))
	return out
}

// Keccak hashes arbitrary bytes into a 32-byte digest.
func Keccak(data []byte) [32]byte {
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(data))
	return out
}
