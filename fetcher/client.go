package fetcher

import (
	"context"

	"github.com/herodotus-xyz/data-processor/types"
)

// RPCClient is the archive node collaborator: MPT proofs via eth_getProof,
// and the JSON transaction/receipt objects TransactionsInBlock datalakes
// sample from. Header RLP comes from the indexer instead (see
// IndexerClient), since the indexer already returns it alongside the MMR
// proof for the same block.
type RPCClient interface {
	// Proof returns an eth_getProof-shaped account proof, optionally
	// including one storage proof when slot is non-nil.
	Proof(ctx context.Context, block uint64, addr types.Address, slot *types.Hash) (MPTProof, MPTProof, error)

	// TransactionCount returns the number of transactions in the block.
	TransactionCount(ctx context.Context, block uint64) (uint64, error)

	// TransactionByIndex returns the JSON transaction object at the given
	// index within the block.
	TransactionByIndex(ctx context.Context, block, index uint64) (map[string]any, error)

	// ReceiptByIndex returns the JSON receipt object at the given index
	// within the block.
	ReceiptByIndex(ctx context.Context, block, index uint64) (map[string]any, error)
}

// IndexerClient is the MMR indexer collaborator. Its one operation is
// range-shaped because the indexer's API is: a single request for
// [from, to] returns every header's raw RLP and MMR membership proof in
// that range, plus the MMR meta they all share. Single-block lookups are
// just from == to.
type IndexerClient interface {
	HeaderRange(ctx context.Context, from, to uint64) ([]BlockHeader, error)
}
