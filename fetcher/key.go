// Package fetcher resolves FetchKeys to raw RLP (or, for transactions and
// receipts, JSON) payloads: header RLP and MMR proofs come from an indexer,
// MPT proofs, transactions and receipts from an archive node. It
// deduplicates concurrent requests for the same key and never caches a
// failure.
package fetcher

import "github.com/herodotus-xyz/data-processor/types"

// Kind identifies what a FetchKey addresses.
type Kind int

const (
	KindHeader Kind = iota
	KindAccount
	KindStorage
	KindTransaction
	KindReceipt
)

// FetchKey uniquely identifies one piece of on-chain state the compiler
// needs proven: a block header, an account leaf, a storage leaf, or (for
// TransactionsInBlock datalakes) a single transaction or receipt by index.
type FetchKey struct {
	Kind    Kind
	Block   uint64
	Address types.Address // KindAccount, KindStorage
	Slot    types.Hash    // KindStorage
	Index   uint64        // KindTransaction, KindReceipt
}

// HeaderKey builds a FetchKey for a block header.
func HeaderKey(block uint64) FetchKey { return FetchKey{Kind: KindHeader, Block: block} }

// AccountKey builds a FetchKey for an account leaf.
func AccountKey(block uint64, addr types.Address) FetchKey {
	return FetchKey{Kind: KindAccount, Block: block, Address: addr}
}

// StorageKey builds a FetchKey for a storage leaf.
func StorageKey(block uint64, addr types.Address, slot types.Hash) FetchKey {
	return FetchKey{Kind: KindStorage, Block: block, Address: addr, Slot: slot}
}

// TransactionKey builds a FetchKey for a transaction by index.
func TransactionKey(block, index uint64) FetchKey {
	return FetchKey{Kind: KindTransaction, Block: block, Index: index}
}

// ReceiptKey builds a FetchKey for a receipt by index.
func ReceiptKey(block, index uint64) FetchKey {
	return FetchKey{Kind: KindReceipt, Block: block, Index: index}
}
