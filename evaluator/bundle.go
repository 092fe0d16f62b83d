package evaluator

import (
	"github.com/herodotus-xyz/data-processor/types"
)

// ProofBundle is the raw evaluation artifact: everything the downstream
// prover needs to recheck the batch, before any Cairo-specific formatting
// (see the output package for that). It serializes directly to the bundle's
// raw JSON mode.
type ProofBundle struct {
	ResultsRoot types.Hash     `json:"results_root"`
	TasksRoot   types.Hash     `json:"tasks_root"`
	Headers     []HeaderEntry  `json:"headers"`
	MMRMeta     MMRMeta        `json:"mmr_meta"`
	Accounts    []AccountEntry `json:"accounts"`
	Storages    []StorageEntry `json:"storages"`
	Tasks       []TaskEntry    `json:"tasks"`
}

// MMRMeta is the single MMR record all header entries reference. The root
// and peaks are Poseidon hashes carried verbatim from the indexer.
type MMRMeta struct {
	MMRId    uint64   `json:"mmr_id"`
	MMRRoot  string   `json:"mmr_root"`
	MMRSize  uint64   `json:"mmr_size"`
	MMRPeaks []string `json:"mmr_peaks"`
}

// HeaderEntry is one sampled block header: its raw RLP plus the MMR leaf
// index and peak-path proving it belongs to the bundle's MMR.
type HeaderEntry struct {
	BlockNumber   uint64   `json:"block_number"`
	RLP           string   `json:"rlp"`
	MMRLeafIndex  uint64   `json:"mmr_leaf_index"`
	MMRPeaksPath  []string `json:"mmr_peaks_path"`
}

// BlockMPTProof is one MPT inclusion proof at one block: the hex-encoded
// trie nodes, root to leaf.
type BlockMPTProof struct {
	BlockNumber uint64   `json:"block_number"`
	Proof       []string `json:"proof"`
}

// AccountEntry is one sampled account: its address, its state-trie key
// (keccak256 of the address) and one MPT proof per block it was sampled
// at. Each (block, address) pair appears at most once across the bundle.
type AccountEntry struct {
	Address    types.Address   `json:"address"`
	AccountKey types.Hash      `json:"account_key"`
	Proofs     []BlockMPTProof `json:"proofs"`
}

// StorageEntry is one sampled storage slot: the account's address, the
// slot, the storage-trie key (keccak256 of the slot) and one MPT proof per
// block it was sampled at.
type StorageEntry struct {
	Address    types.Address   `json:"address"`
	Slot       types.Hash      `json:"slot"`
	StorageKey types.Hash      `json:"storage_key"`
	Proofs     []BlockMPTProof `json:"proofs"`
}

// TaskEntry is one evaluated task: its wire encodings, commitments, decimal
// result, and the Merkle sibling paths (leaf to root, sibling hash only —
// ordering is implied by sorted-pair hashing) locating its leaves in the
// tasks and results trees.
type TaskEntry struct {
	EncodedTask      string       `json:"encoded_task"`
	TaskCommitment   types.Hash   `json:"task_commitment"`
	EncodedDatalake  string       `json:"encoded_datalake"`
	Result           string       `json:"result"`
	ResultCommitment types.Hash   `json:"result_commitment"`
	TaskProof        []types.Hash `json:"task_inclusion_proof"`
	ResultProof      []types.Hash `json:"result_inclusion_proof"`
}
