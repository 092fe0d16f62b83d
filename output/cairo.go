// Package output formats evaluator results the way the downstream Cairo
// prover expects: byte blobs as arrays of little-endian u64 words plus
// their true byte length, and 256-bit scalars split into two 128-bit limbs
// (felts only hold up to ~252 bits). Split128BE matches Solidity's
// Uint256Splitter.split128 exactly (a plain big-endian high/low split) since
// that is what verifies the keccak Merkle roots on-chain; Split128LE
// additionally reverses each limb's byte order, the form the prover's
// calldata for raw blob/key bytes expects.
package output

// ChunkLE splits data into 8-byte little-endian words, zero-padding the
// final word if data's length is not a multiple of 8. It also returns the
// true byte length so the padding is reversible.
func ChunkLE(data []byte) (words []uint64, byteLen int) {
	byteLen = len(data)
	n := (len(data) + 7) / 8
	words = make([]uint64, n)
	for i := 0; i < n; i++ {
		start := i * 8
		end := start + 8
		var word uint64
		for j := start; j < end && j < len(data); j++ {
			word |= uint64(data[j]) << (8 * uint(j-start))
		}
		words[i] = word
	}
	return words, byteLen
}

// Split128BE splits a big-endian 32-byte scalar into its high and low
// 128-bit halves, each still big-endian — the representation Solidity's
// Uint256Splitter.split128 produces, used for the two Merkle roots the
// on-chain verifier checks directly.
func Split128BE(value [32]byte) (low, high [16]byte) {
	copy(high[:], value[0:16])
	copy(low[:], value[16:32])
	return low, high
}

// Split128LE splits a 32-byte blob into its first and second 16-byte
// halves and reverses each half's byte order independently: low from
// bytes[0:16], high from bytes[16:32]. This is the form used for raw blob
// and trie-key bytes (RLP payloads, MPT proof words, address/slot keys)
// that the prover reassembles as little-endian felts; unlike Split128BE it
// does not swap which half is "low" and which is "high".
func Split128LE(value [32]byte) (low, high [16]byte) {
	copy(low[:], value[0:16])
	copy(high[:], value[16:32])
	reverse(low[:])
	reverse(high[:])
	return low, high
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
