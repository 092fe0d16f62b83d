package crypto

import "github.com/herodotus-xyz/data-processor/types"

// zeroPadLeaf is the padding value used to round a leaf set up to the next
// power of two: keccak256(abi.encode(uint256(0))), not a raw zero hash —
// the same "hash of the zero word" convention the on-chain verifier's
// sparse padding uses, so a padded leaf can never collide with a genuine
// all-zero commitment.
var zeroPadLeaf = Keccak256Hash(make([]byte, 32))

// MerkleTree is a sorted-pair keccak256 Merkle tree: internal nodes hash
// their children in ascending order, so the same leaf set always produces
// the same root regardless of insertion order within a pair. Leaves are
// padded with zeroPadLeaf up to the next power of two.
type MerkleTree struct {
	levels [][]types.Hash // levels[0] is the padded leaf layer, levels[len-1] is {root}
}

// NewMerkleTree builds a MerkleTree over leaves, padding to the next power
// of two with zeroPadLeaf.
func NewMerkleTree(leaves []types.Hash) *MerkleTree {
	if len(leaves) == 0 {
		return &MerkleTree{levels: [][]types.Hash{{types.Hash{}}}}
	}

	padded := make([]types.Hash, nextPowerOfTwo(len(leaves)))
	copy(padded, leaves)
	for i := len(leaves); i < len(padded); i++ {
		padded[i] = zeroPadLeaf
	}

	levels := [][]types.Hash{padded}
	for len(levels[len(levels)-1]) > 1 {
		cur := levels[len(levels)-1]
		next := make([]types.Hash, len(cur)/2)
		for i := range next {
			next[i] = hashPair(cur[2*i], cur[2*i+1])
		}
		levels = append(levels, next)
	}
	return &MerkleTree{levels: levels}
}

// Root returns the tree's root hash.
func (t *MerkleTree) Root() types.Hash {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// ProofPath returns the sibling hash at each level needed to recompute the
// root from the leaf at index, root-ward.
func (t *MerkleTree) ProofPath(index int) []types.Hash {
	var path []types.Hash
	for _, level := range t.levels[:len(t.levels)-1] {
		siblingIdx := index ^ 1
		path = append(path, level[siblingIdx])
		index /= 2
	}
	return path
}

// hashPair hashes two nodes in ascending byte order, so the resulting
// parent hash does not depend on which child was "left".
func hashPair(a, b types.Hash) types.Hash {
	if bytesLess(b.Bytes(), a.Bytes()) {
		a, b = b, a
	}
	return Keccak256Hash(a.Bytes(), b.Bytes())
}

func bytesLess(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
