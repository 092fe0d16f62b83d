// Package crypto provides the single hash primitive the data processor
// needs: Keccak256, used for wire-payload commitments and the task/result
// Merkle trees. The MMR's own hashing function (Poseidon) is opaque to this
// module and is never computed here — see fetcher.MMRMeta.
package crypto

import (
	"golang.org/x/crypto/sha3"

	"github.com/herodotus-xyz/data-processor/types"
)

// Keccak256 returns the Keccak-256 digest of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash returns the Keccak-256 digest as a types.Hash.
func Keccak256Hash(data ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(data...))
}
