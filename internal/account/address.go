// Package account defines the 32-byte account address used throughout the
// engine: base58 on the wire, ed25519 curve membership distinguishing wallet
// addresses from derived internal accounts.
package account

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Address is a 32-byte account identifier.
type Address [32]byte

// ErrInvalidAddress is returned when a string does not decode to 32 bytes
// of base58.
var ErrInvalidAddress = errors.New("invalid address")

// Parse decodes a base58 address string.
func Parse(s string) (Address, error) {
	var out Address
	if s == "" {
		return out, ErrInvalidAddress
	}
	b, err := base58.Decode(s)
	if err != nil || len(b) != 32 {
		return out, ErrInvalidAddress
	}
	copy(out[:], b)
	return out, nil
}

// MustParse is Parse for known-good literals; it panics on failure.
func MustParse(s string) Address {
	addr, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("account: bad address literal %q", s))
	}
	return addr
}

// String returns the base58 encoding.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// IsZero reports whether the address is all zero bytes.
func (a Address) IsZero() bool {
	return a == Address{}
}

// OnCurve reports whether the address is a valid ed25519 point, i.e. could
// correspond to a wallet keypair. Derived internal accounts are always
// off-curve.
func (a Address) OnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(a[:])
	return err == nil
}

// Derive produces a deterministic off-curve internal address from a label,
// bumping a trailing seed byte until the hash falls off the curve so no
// keypair can ever sign for it.
func Derive(label string) Address {
	for bump := byte(0); ; bump++ {
		sum := sha256.Sum256([]byte("rabbit-launchpad|" + label + "|" + string([]byte{bump})))
		addr := Address(sum)
		if !addr.OnCurve() {
			return addr
		}
	}
}
