package fetcher

// MMRMeta describes the Merkle Mountain Range every fetched header belongs
// to: one record per evaluation, shared by all headers. Its hashing is
// Poseidon-based and opaque to this program, so the root and peaks are
// carried as the indexer's own hex strings, never reparsed or recomputed.
type MMRMeta struct {
	MMRId    uint64
	MMRRoot  string
	MMRSize  uint64
	MMRPeaks []string
}

// MMRLeafProof is a single header's membership proof against the MMR: the
// header's leaf index plus the sibling hashes up its peak.
type MMRLeafProof struct {
	LeafIndex     uint64
	SiblingHashes []string
}

// MPTProof is an archive node's eth_getProof-style membership proof: the
// ordered list of RLP-encoded trie nodes from root to leaf, plus the
// terminal node's value payload (the account or storage leaf RLP the field
// decoder operates on).
type MPTProof struct {
	Nodes   [][]byte
	LeafRLP []byte
}

// HeaderResult is the fetched payload for a KindHeader key.
type HeaderResult struct {
	RLP   []byte
	Meta  MMRMeta
	Proof MMRLeafProof
}

// BlockHeader pairs a block number with its fetched header, the unit a
// range-oriented indexer request returns.
type BlockHeader struct {
	Block  uint64
	Header HeaderResult
}

// AccountResult is the fetched payload for a KindAccount key.
type AccountResult struct {
	Header  HeaderResult
	Account MPTProof
}

// StorageResult is the fetched payload for a KindStorage key. The account
// proof is read through alongside the storage proof: proving a slot always
// requires proving its account's storage root first.
type StorageResult struct {
	Header  HeaderResult
	Account MPTProof
	Storage MPTProof
}

// TransactionResult is the fetched payload for a KindTransaction key: the
// archive node's JSON transaction object, keyed by its RPC field names.
type TransactionResult struct {
	Header HeaderResult
	JSON   map[string]any
}

// ReceiptResult is the fetched payload for a KindReceipt key.
type ReceiptResult struct {
	Header HeaderResult
	JSON   map[string]any
}

// Result is the tagged union returned for any FetchKey; exactly one field
// matching key.Kind is populated.
type Result struct {
	Kind        Kind
	Header      *HeaderResult
	Account     *AccountResult
	Storage     *StorageResult
	Transaction *TransactionResult
	Receipt     *ReceiptResult
}
