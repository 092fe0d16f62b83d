package fetcher

import (
	"context"
	"sort"

	"github.com/herodotus-xyz/data-processor/errs"
	"github.com/herodotus-xyz/data-processor/log"
	"github.com/herodotus-xyz/data-processor/metrics"
)

// Fetcher resolves FetchKeys to Results, deduplicating concurrent requests
// for the same key against the same RPC/indexer collaborators and never
// caching a failed fetch.
type Fetcher struct {
	rpc     RPCClient
	indexer IndexerClient
	cache   *cache
	log     *log.Logger
	metrics *metrics.Registry
}

// New builds a Fetcher over the given archive-node and indexer
// collaborators.
func New(rpc RPCClient, indexer IndexerClient) *Fetcher {
	return &Fetcher{
		rpc:     rpc,
		indexer: indexer,
		cache:   newCache(),
		log:     log.Component("fetcher"),
		metrics: metrics.DefaultRegistry,
	}
}

// Fetch resolves a single FetchKey, blocking until the value is available
// (whether fetched by this call or by a concurrent one for the same key).
func (f *Fetcher) Fetch(ctx context.Context, key FetchKey) (Result, error) {
	entry, owns := f.cache.claim(key)
	if !owns {
		f.metrics.Counter("fetcher.cache_hit").Inc()
		select {
		case <-entry.done:
			return entry.result, entry.err
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}

	f.metrics.Counter("fetcher.cache_miss").Inc()
	result, err := f.resolve(ctx, key)
	f.cache.settle(key, entry, result, err)
	if err != nil {
		f.log.Warn("fetch failed", "kind", key.Kind, "block", key.Block, "err", err)
	}
	return result, err
}

// TransactionCount implements compiler.BlockCountResolver, so a Fetcher can
// be handed directly to a TransactionsInBlockCompiler's FetchPlan.
func (f *Fetcher) TransactionCount(ctx context.Context, block uint64) (uint64, error) {
	return f.rpc.TransactionCount(ctx, block)
}

// FetchAll resolves every key, in order, stopping at the first error. Keys
// that share a cache key (e.g. the same block header requested by several
// account fetches) only hit the collaborators once.
func (f *Fetcher) FetchAll(ctx context.Context, keys []FetchKey) ([]Result, error) {
	results := make([]Result, len(keys))
	for i, key := range keys {
		r, err := f.Fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		results[i] = r
	}
	return results, nil
}

// PrefetchHeaders warms the cache for a set of header blocks with as few
// indexer round trips as possible: the blocks are deduplicated, sorted and
// split into contiguous runs, and each run resolves through one HeaderRange
// request whose per-block results settle the corresponding cache entries.
// Blocks already present or in flight are skipped. Later Fetch calls for
// the same blocks are then pure cache hits.
func (f *Fetcher) PrefetchHeaders(ctx context.Context, blocks []uint64) error {
	if len(blocks) == 0 {
		return nil
	}
	sorted := make([]uint64, 0, len(blocks))
	seen := make(map[uint64]bool, len(blocks))
	for _, b := range blocks {
		if !seen[b] {
			seen[b] = true
			sorted = append(sorted, b)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for start := 0; start < len(sorted); {
		end := start
		for end+1 < len(sorted) && sorted[end+1] == sorted[end]+1 {
			end++
		}
		if err := f.prefetchRun(ctx, sorted[start:end+1]); err != nil {
			return err
		}
		start = end + 1
	}
	return nil
}

// prefetchRun resolves one contiguous ascending run of blocks. Only blocks
// whose cache entry this call claims are fetched; the range request spans
// the claimed blocks.
func (f *Fetcher) prefetchRun(ctx context.Context, run []uint64) error {
	type claimed struct {
		block uint64
		entry *cacheEntry
	}
	var owned []claimed
	for _, b := range run {
		entry, owns := f.cache.claim(HeaderKey(b))
		if !owns {
			f.metrics.Counter("fetcher.cache_hit").Inc()
			continue
		}
		f.metrics.Counter("fetcher.cache_miss").Inc()
		owned = append(owned, claimed{block: b, entry: entry})
	}
	if len(owned) == 0 {
		return nil
	}

	lo, hi := owned[0].block, owned[len(owned)-1].block
	f.log.Debug("prefetching header range", "from", lo, "to", hi)
	headers, err := f.indexer.HeaderRange(ctx, lo, hi)
	if err != nil {
		for _, c := range owned {
			f.cache.settle(HeaderKey(c.block), c.entry, Result{}, err)
		}
		return err
	}

	byBlock := make(map[uint64]HeaderResult, len(headers))
	for _, h := range headers {
		byBlock[h.Block] = h.Header
	}

	var firstErr error
	for _, c := range owned {
		h, ok := byBlock[c.block]
		if !ok {
			missErr := errs.New(errs.IndexerEmpty, "indexer range response missing a requested block")
			f.cache.settle(HeaderKey(c.block), c.entry, Result{}, missErr)
			if firstErr == nil {
				firstErr = missErr
			}
			continue
		}
		hdr := h
		f.cache.settle(HeaderKey(c.block), c.entry, Result{Kind: KindHeader, Header: &hdr}, nil)
	}
	return firstErr
}

func (f *Fetcher) resolve(ctx context.Context, key FetchKey) (Result, error) {
	switch key.Kind {
	case KindHeader:
		return f.resolveHeader(ctx, key)
	case KindAccount:
		return f.resolveAccount(ctx, key)
	case KindStorage:
		return f.resolveStorage(ctx, key)
	case KindTransaction:
		return f.resolveTransaction(ctx, key)
	case KindReceipt:
		return f.resolveReceipt(ctx, key)
	default:
		panic("fetcher: unknown FetchKey kind")
	}
}

// header resolves a block's header+MMR proof through the same cache entry
// a KindHeader fetch would, so account/storage/transaction/receipt fetches
// for a block already requested directly reuse its single round-trip
// instead of issuing a second one.
func (f *Fetcher) header(ctx context.Context, block uint64) (HeaderResult, error) {
	r, err := f.Fetch(ctx, HeaderKey(block))
	if err != nil {
		return HeaderResult{}, err
	}
	return *r.Header, nil
}

func (f *Fetcher) resolveHeader(ctx context.Context, key FetchKey) (Result, error) {
	headers, err := f.indexer.HeaderRange(ctx, key.Block, key.Block)
	if err != nil {
		return Result{}, err
	}
	for _, h := range headers {
		if h.Block == key.Block {
			hdr := h.Header
			return Result{Kind: KindHeader, Header: &hdr}, nil
		}
	}
	return Result{}, errs.New(errs.IndexerEmpty, "indexer returned no proof for the requested block")
}

func (f *Fetcher) resolveAccount(ctx context.Context, key FetchKey) (Result, error) {
	h, err := f.header(ctx, key.Block)
	if err != nil {
		return Result{}, err
	}
	accountProof, _, err := f.rpc.Proof(ctx, key.Block, key.Address, nil)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: KindAccount, Account: &AccountResult{Header: h, Account: accountProof}}, nil
}

func (f *Fetcher) resolveStorage(ctx context.Context, key FetchKey) (Result, error) {
	h, err := f.header(ctx, key.Block)
	if err != nil {
		return Result{}, err
	}
	slot := key.Slot
	accountProof, storageProof, err := f.rpc.Proof(ctx, key.Block, key.Address, &slot)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: KindStorage, Storage: &StorageResult{
		Header:  h,
		Account: accountProof,
		Storage: storageProof,
	}}, nil
}

func (f *Fetcher) resolveTransaction(ctx context.Context, key FetchKey) (Result, error) {
	h, err := f.header(ctx, key.Block)
	if err != nil {
		return Result{}, err
	}
	tx, err := f.rpc.TransactionByIndex(ctx, key.Block, key.Index)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: KindTransaction, Transaction: &TransactionResult{Header: h, JSON: tx}}, nil
}

func (f *Fetcher) resolveReceipt(ctx context.Context, key FetchKey) (Result, error) {
	h, err := f.header(ctx, key.Block)
	if err != nil {
		return Result{}, err
	}
	rcpt, err := f.rpc.ReceiptByIndex(ctx, key.Block, key.Index)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: KindReceipt, Receipt: &ReceiptResult{Header: h, JSON: rcpt}}, nil
}
