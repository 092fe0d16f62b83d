package output

import (
	"encoding/json"
	"fmt"

	"github.com/herodotus-xyz/data-processor/evaluator"
	"github.com/herodotus-xyz/data-processor/types"
)

// HexWords is a sequence of little-endian u64 words, each rendered on the
// wire as a "0x"-prefixed, no-leading-zero hex string: the felt shape the
// Cairo prover's calldata deserializer expects, not a JSON number (which
// would silently lose width information for values needing a sign bit in
// some client JSON parsers).
type HexWords []uint64

// MarshalJSON renders each word as "0x"+lowercase-hex, no leading zeros.
func (w HexWords) MarshalJSON() ([]byte, error) {
	strs := make([]string, len(w))
	for i, word := range w {
		strs[i] = fmt.Sprintf("0x%x", word)
	}
	return json.Marshal(strs)
}

// ChunkedBytes is a byte blob formatted for the prover: an array of
// little-endian u64 words plus the blob's true byte length.
type ChunkedBytes struct {
	Words   HexWords `json:"words"`
	ByteLen int      `json:"byte_len"`
}

// FormatBytes chunks a byte blob into its Cairo representation.
func FormatBytes(b []byte) ChunkedBytes {
	words, n := ChunkLE(b)
	return ChunkedBytes{Words: words, ByteLen: n}
}

// formatHex chunks a "0x"-prefixed hex blob.
func formatHex(s string) ChunkedBytes {
	return FormatBytes(types.FromHex(s))
}

// Split128Hex is a 256-bit scalar split into two hex-rendered 128-bit
// limbs.
type Split128Hex struct {
	Low  string `json:"low"`
	High string `json:"high"`
}

// FormatScalarBE splits h the way the on-chain Uint256Splitter does: the
// form used for the two Merkle roots the verifier checks directly.
func FormatScalarBE(h types.Hash) Split128Hex {
	var b [32]byte
	copy(b[:], h.Bytes())
	low, high := Split128BE(b)
	return Split128Hex{Low: hexOf(low[:]), High: hexOf(high[:])}
}

// FormatScalarLE splits h and reverses each limb, the form used for raw
// trie keys and blob words the prover reassembles as little-endian felts.
func FormatScalarLE(h types.Hash) Split128Hex {
	var b [32]byte
	copy(b[:], h.Bytes())
	low, high := Split128LE(b)
	return Split128Hex{Low: hexOf(low[:]), High: hexOf(high[:])}
}

func hexOf(b []byte) string { return fmt.Sprintf("0x%x", b) }

// MPTProofFormatted is one block's MPT proof with every trie node chunked.
type MPTProofFormatted struct {
	BlockNumber uint64         `json:"block_number"`
	Proof       []ChunkedBytes `json:"proof"`
}

func formatMPTProofs(proofs []evaluator.BlockMPTProof) []MPTProofFormatted {
	out := make([]MPTProofFormatted, len(proofs))
	for i, p := range proofs {
		nodes := make([]ChunkedBytes, len(p.Proof))
		for j, n := range p.Proof {
			nodes[j] = formatHex(n)
		}
		out[i] = MPTProofFormatted{BlockNumber: p.BlockNumber, Proof: nodes}
	}
	return out
}

// MMRMetaFormatted passes the bundle's MMR meta through untouched: its
// Poseidon root and peaks are opaque to this program, so only the shape is
// preserved for the prover's MMR verifier, with no felt-splitting.
type MMRMetaFormatted struct {
	MMRId    uint64   `json:"mmr_id"`
	MMRRoot  string   `json:"mmr_root"`
	MMRSize  uint64   `json:"mmr_size"`
	MMRPeaks []string `json:"mmr_peaks"`
}

// HeaderFormatted is a block header Cairo-formatted alongside the MMR
// leaf proof that anchors it.
type HeaderFormatted struct {
	BlockNumber  uint64       `json:"block_number"`
	RLP          ChunkedBytes `json:"rlp"`
	MMRLeafIndex uint64       `json:"mmr_leaf_index"`
	MMRPeaksPath []string     `json:"mmr_peaks_path"`
}

// AccountFormatted is an account Cairo-formatted alongside its MPT proofs
// and the address's trie key (keccak(address), split for the prover's
// little-endian felt reassembly).
type AccountFormatted struct {
	Address    string              `json:"address"`
	AccountKey Split128Hex         `json:"account_key"`
	Proofs     []MPTProofFormatted `json:"proofs"`
}

// StorageFormatted is a storage slot Cairo-formatted alongside its MPT
// proofs and the slot's trie key (keccak(slot)).
type StorageFormatted struct {
	Address    string              `json:"address"`
	Slot       string              `json:"slot"`
	StorageKey Split128Hex         `json:"storage_key"`
	Proofs     []MPTProofFormatted `json:"proofs"`
}

// TaskFormatted is a single evaluated task's output: its original ABI
// encoding (chunked), the datalake it samples (chunked), its commitments
// and its sibling paths in the two Merkle trees.
type TaskFormatted struct {
	EncodedTask      ChunkedBytes `json:"encoded_task"`
	TaskCommitment   string       `json:"task_commitment"`
	EncodedDatalake  ChunkedBytes `json:"encoded_datalake"`
	Result           string       `json:"result"`
	ResultCommitment string       `json:"result_commitment"`
	TaskProof        []string     `json:"task_inclusion_proof"`
	ResultProof      []string     `json:"result_inclusion_proof"`
}

// Bundle is the complete, Cairo-formatted proof bundle: the two Merkle
// roots (split128, big-endian limbs, the on-chain Uint256Splitter form)
// plus every task, header, account and storage entry the prover needs to
// recompute them.
type Bundle struct {
	TasksRoot   Split128Hex        `json:"tasks_root"`
	ResultsRoot Split128Hex        `json:"results_root"`
	MMRMeta     MMRMetaFormatted   `json:"mmr_meta"`
	Tasks       []TaskFormatted    `json:"tasks"`
	Headers     []HeaderFormatted  `json:"headers"`
	Accounts    []AccountFormatted `json:"accounts"`
	Storages    []StorageFormatted `json:"storages"`
}

// FormatBundle converts a raw ProofBundle into its Cairo-formatted shape:
// every RLP blob chunked into little-endian u64 words with its byte
// length, every trie key split128 little-endian, both Merkle roots
// split128 big-endian.
func FormatBundle(raw *evaluator.ProofBundle) *Bundle {
	b := &Bundle{
		TasksRoot:   FormatScalarBE(raw.TasksRoot),
		ResultsRoot: FormatScalarBE(raw.ResultsRoot),
		MMRMeta: MMRMetaFormatted{
			MMRId:    raw.MMRMeta.MMRId,
			MMRRoot:  raw.MMRMeta.MMRRoot,
			MMRSize:  raw.MMRMeta.MMRSize,
			MMRPeaks: raw.MMRMeta.MMRPeaks,
		},
	}

	for _, t := range raw.Tasks {
		b.Tasks = append(b.Tasks, TaskFormatted{
			EncodedTask:      formatHex(t.EncodedTask),
			TaskCommitment:   t.TaskCommitment.Hex(),
			EncodedDatalake:  formatHex(t.EncodedDatalake),
			Result:           t.Result,
			ResultCommitment: t.ResultCommitment.Hex(),
			TaskProof:        hashesToHex(t.TaskProof),
			ResultProof:      hashesToHex(t.ResultProof),
		})
	}
	for _, h := range raw.Headers {
		b.Headers = append(b.Headers, HeaderFormatted{
			BlockNumber:  h.BlockNumber,
			RLP:          formatHex(h.RLP),
			MMRLeafIndex: h.MMRLeafIndex,
			MMRPeaksPath: h.MMRPeaksPath,
		})
	}
	for _, a := range raw.Accounts {
		b.Accounts = append(b.Accounts, AccountFormatted{
			Address:    a.Address.Hex(),
			AccountKey: FormatScalarLE(a.AccountKey),
			Proofs:     formatMPTProofs(a.Proofs),
		})
	}
	for _, s := range raw.Storages {
		b.Storages = append(b.Storages, StorageFormatted{
			Address:    s.Address.Hex(),
			Slot:       s.Slot.Hex(),
			StorageKey: FormatScalarLE(s.StorageKey),
			Proofs:     formatMPTProofs(s.Proofs),
		})
	}
	return b
}

func hashesToHex(hashes []types.Hash) []string {
	out := make([]string, len(hashes))
	for i, h := range hashes {
		out[i] = h.Hex()
	}
	return out
}
