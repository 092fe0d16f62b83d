// Package types defines the scalar value types shared across the data
// processor: block-header hashes, account addresses, bloom filters and
// the 256-bit scalars used for Merkle roots and aggregate contexts.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
)

const (
	HashLength    = 32
	AddressLength = 20
	BloomLength   = 256
)

// Hash represents a 32-byte Keccak256 hash.
type Hash [HashLength]byte

// Address represents the 20-byte address of an Ethereum account.
type Address [AddressLength]byte

// Bloom represents a 2048-bit bloom filter (logsBloom header field).
type Bloom [BloomLength]byte

// BytesToHash converts bytes to Hash, left-padding if shorter than 32 bytes.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash converts a hex string to Hash.
func HexToHash(s string) Hash {
	return BytesToHash(FromHex(s))
}

// Bytes returns the byte representation of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the lowercase "0x"-prefixed hex representation.
func (h Hash) Hex() string { return fmt.Sprintf("0x%x", h[:]) }

// SetBytes sets the hash from a byte slice, left-padding if necessary.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// IsZero reports whether the hash is all zeros.
func (h Hash) IsZero() bool { return h == Hash{} }

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// MarshalJSON renders the hash as a "0x"-prefixed hex JSON string.
func (h Hash) MarshalJSON() ([]byte, error) { return marshalHexJSON(h[:]) }

// UnmarshalJSON parses a "0x"-prefixed hex JSON string into the hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	b, err := unmarshalHexJSON(data)
	if err != nil {
		return err
	}
	h.SetBytes(b)
	return nil
}

// BytesToAddress converts bytes to Address, left-padding if shorter than 20 bytes.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// HexToAddress converts a hex string to Address.
func HexToAddress(s string) Address {
	return BytesToAddress(FromHex(s))
}

// Bytes returns the byte representation of the address.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns the lowercase "0x"-prefixed hex representation.
func (a Address) Hex() string { return fmt.Sprintf("0x%x", a[:]) }

// SetBytes sets the address from a byte slice, left-padding if necessary.
func (a *Address) SetBytes(b []byte) {
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

// IsZero reports whether the address is all zeros.
func (a Address) IsZero() bool { return a == Address{} }

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// MarshalJSON renders the address as a "0x"-prefixed hex JSON string.
func (a Address) MarshalJSON() ([]byte, error) { return marshalHexJSON(a[:]) }

// UnmarshalJSON parses a "0x"-prefixed hex JSON string into the address.
func (a *Address) UnmarshalJSON(data []byte) error {
	b, err := unmarshalHexJSON(data)
	if err != nil {
		return err
	}
	a.SetBytes(b)
	return nil
}

// U256 is a 256-bit scalar, used for the aggregate function context (the
// COUNTIF comparator operands). Merkle roots and account/storage keys are
// carried as Hash. It wraps holiman/uint256.Int.
type U256 struct {
	inner uint256.Int
}

// U256FromBig32 builds a U256 from a big-endian 32-byte value.
func U256FromBig32(b [32]byte) U256 {
	var u U256
	u.inner.SetBytes(b[:])
	return u
}

// U256FromHash reinterprets a 32-byte Hash as a big-endian U256.
func U256FromHash(h Hash) U256 {
	return U256FromBig32(h)
}

// U256FromUint64 builds a U256 from a native uint64.
func U256FromUint64(v uint64) U256 {
	var u U256
	u.inner.SetUint64(v)
	return u
}

// HexToU256 parses a "0x"-prefixed (or bare) big-endian hex string.
func HexToU256(s string) U256 {
	var u U256
	u.inner.SetBytes(FromHex(s))
	return u
}

// Bytes32 returns the big-endian 32-byte representation.
func (u U256) Bytes32() [32]byte {
	return u.inner.Bytes32()
}

// Hex returns the lowercase "0x"-prefixed hex representation, no leading zeros.
func (u U256) Hex() string { return u.inner.Hex() }

// Hash reinterprets the U256 as a 32-byte Hash (big-endian).
func (u U256) Hash() Hash { return BytesToHash(u.inner.Bytes()) }

// IsZero reports whether the scalar is zero.
func (u U256) IsZero() bool { return u.inner.IsZero() }

// Cmp compares two U256 values, matching uint256.Int.Cmp semantics.
func (u U256) Cmp(other U256) int { return u.inner.Cmp(&other.inner) }

// MarshalJSON renders the scalar as a "0x"-prefixed hex JSON string.
func (u U256) MarshalJSON() ([]byte, error) { return marshalHexJSON(u.inner.Bytes()) }

// UnmarshalJSON parses a "0x"-prefixed hex JSON string into the scalar.
func (u *U256) UnmarshalJSON(data []byte) error {
	b, err := unmarshalHexJSON(data)
	if err != nil {
		return err
	}
	u.inner.SetBytes(b)
	return nil
}

// FromHex decodes a hex string, stripping an optional "0x"/"0X" prefix and
// left-padding with a zero nibble if the digit count is odd.
func FromHex(s string) []byte {
	if has0xPrefix(s) {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return b
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func marshalHexJSON(b []byte) ([]byte, error) {
	return json.Marshal(fmt.Sprintf("0x%x", b))
}

func unmarshalHexJSON(data []byte) ([]byte, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return FromHex(s), nil
}
