// Package assetid derives stable market identifiers for launched assets.
package assetid

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/mr-tron/base58"
)

// New derives the asset identifier from the launch parameters and a
// per-creator sequence number. Identical launches by the same creator get
// distinct identifiers through seq.
func New(name, symbol, creator string, seq uint64) string {
	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte(symbol))
	h.Write([]byte{0})
	h.Write([]byte(creator))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	h.Write(buf[:])
	return base58.Encode(h.Sum(nil))
}
