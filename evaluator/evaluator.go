// Package evaluator orchestrates the full compile -> fetch -> decode ->
// aggregate -> commit -> assemble pipeline: given a batch of
// ComputationalTasks and the datalakes they run against, it produces the
// raw ProofBundle the downstream prover consumes (the output package
// Cairo-formats it).
package evaluator

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/herodotus-xyz/data-processor/codec"
	"github.com/herodotus-xyz/data-processor/compiler"
	"github.com/herodotus-xyz/data-processor/crypto"
	"github.com/herodotus-xyz/data-processor/errs"
	"github.com/herodotus-xyz/data-processor/fetcher"
	"github.com/herodotus-xyz/data-processor/log"
	"github.com/herodotus-xyz/data-processor/types"

	aggregatepkg "github.com/herodotus-xyz/data-processor/aggregate"
)

var logger = log.Component("evaluator")

// taskRun is the per-task working state accumulated while evaluating a
// batch, before the two Merkle trees are built.
type taskRun struct {
	task            codec.ComputationalTask
	taskEncoded     []byte
	datalakeEncoded []byte
	commitment      types.Hash
	result          string
	fetchKeys       []fetcher.FetchKey
	fetchResults    []fetcher.Result
}

// Evaluate compiles and fetches every task's datalake, aggregates its
// values, and assembles the resulting ProofBundle. A task carries no
// datalake reference of its own, so tasks and datalakes are paired by
// position: the batch's Nth task runs against the Nth datalake.
func Evaluate(ctx context.Context, f *fetcher.Fetcher, tasks []codec.ComputationalTask, datalakes []codec.Datalake) (*ProofBundle, error) {
	if len(tasks) != len(datalakes) {
		return nil, errs.New(errs.ArityMismatch, "task and datalake batch lengths differ")
	}

	// Compile every datalake first so the union of their plans is known
	// before any proof fetch starts: the header blocks of the whole batch
	// are prefetched in contiguous ranges, one indexer round trip each.
	plans := make([][]fetcher.FetchKey, len(tasks))
	blockSet := make(map[uint64]bool)
	for i, dl := range datalakes {
		compilable, err := compiler.Compile(dl)
		if err != nil {
			return nil, err
		}
		keys, err := compilable.FetchPlan(ctx, f)
		if err != nil {
			return nil, err
		}
		plans[i] = keys
		for _, k := range keys {
			blockSet[k.Block] = true
		}
	}
	blocks := make([]uint64, 0, len(blockSet))
	for b := range blockSet {
		blocks = append(blocks, b)
	}
	if err := f.PrefetchHeaders(ctx, blocks); err != nil {
		return nil, err
	}

	runs := make([]*taskRun, len(tasks))
	for i, task := range tasks {
		dl := datalakes[i]

		compilable, err := compiler.Compile(dl)
		if err != nil {
			return nil, err
		}

		results, err := f.FetchAll(ctx, plans[i])
		if err != nil {
			return nil, err
		}

		values, err := compilable.DecodeValue(results)
		if err != nil {
			return nil, err
		}

		result, err := aggregatepkg.Run(task.Fn, values, task.Ctx)
		if err != nil {
			return nil, err
		}

		logger.Info("task evaluated", "fn", task.Fn, "values", len(values), "result", result)

		runs[i] = &taskRun{
			task:            task,
			taskEncoded:     task.Raw(),
			datalakeEncoded: dl.Raw(),
			commitment:      taskCommitment(dl, task),
			result:          result,
			fetchKeys:       plans[i],
			fetchResults:    results,
		}
	}

	return assemble(runs)
}

// assemble builds the two Merkle trees and the raw bundle: headers (one per
// distinct block sampled, whether directly or under an account/storage
// proof), accounts and storages grouped by address with one proof per
// block, and one task entry per input task carrying its sibling paths in
// both trees.
func assemble(runs []*taskRun) (*ProofBundle, error) {
	taskLeaves := make([]types.Hash, len(runs))
	resultLeaves := make([]types.Hash, len(runs))
	for i, r := range runs {
		taskLeaves[i] = r.commitment
		resultLeaves[i] = resultCommitment(r.result)
	}

	tasksTree := crypto.NewMerkleTree(taskLeaves)
	resultsTree := crypto.NewMerkleTree(resultLeaves)

	bundle := &ProofBundle{
		TasksRoot:   tasksTree.Root(),
		ResultsRoot: resultsTree.Root(),
	}

	for i, r := range runs {
		bundle.Tasks = append(bundle.Tasks, TaskEntry{
			EncodedTask:      hexOf(r.taskEncoded),
			TaskCommitment:   taskLeaves[i],
			EncodedDatalake:  hexOf(r.datalakeEncoded),
			Result:           r.result,
			ResultCommitment: resultLeaves[i],
			TaskProof:        tasksTree.ProofPath(i),
			ResultProof:      resultsTree.ProofPath(i),
		})
	}

	headers := make(map[uint64]fetcher.HeaderResult)
	accounts := make(map[types.Address]map[uint64][]string)
	storages := make(map[storageID]map[uint64][]string)
	for _, r := range runs {
		for i, key := range r.fetchKeys {
			res := r.fetchResults[i]
			switch key.Kind {
			case fetcher.KindHeader:
				headers[key.Block] = *res.Header
			case fetcher.KindAccount:
				headers[key.Block] = res.Account.Header
				addProof(ensure(accounts, key.Address), key.Block, res.Account.Account)
			case fetcher.KindStorage:
				headers[key.Block] = res.Storage.Header
				// A storage sample proves its account alongside the slot:
				// the account's storage root anchors the storage trie.
				addProof(ensure(accounts, key.Address), key.Block, res.Storage.Account)
				addProof(ensure(storages, storageID{key.Address, key.Slot}), key.Block, res.Storage.Storage)
			case fetcher.KindTransaction:
				headers[key.Block] = res.Transaction.Header
			case fetcher.KindReceipt:
				headers[key.Block] = res.Receipt.Header
			}
		}
	}

	meta, err := sharedMMRMeta(headers)
	if err != nil {
		return nil, err
	}
	bundle.MMRMeta = meta
	bundle.Headers = sortedHeaders(headers)
	bundle.Accounts = sortedAccounts(accounts)
	bundle.Storages = sortedStorages(storages)
	return bundle, nil
}

type storageID struct {
	address types.Address
	slot    types.Hash
}

// ensure returns m[k], allocating the inner per-block map on first use.
func ensure[K comparable](m map[K]map[uint64][]string, k K) map[uint64][]string {
	inner, ok := m[k]
	if !ok {
		inner = make(map[uint64][]string)
		m[k] = inner
	}
	return inner
}

// addProof records one MPT proof for one block, keeping only the first:
// dedup across tasks sampling the same (block, key).
func addProof(byBlock map[uint64][]string, block uint64, proof fetcher.MPTProof) {
	if _, ok := byBlock[block]; ok {
		return
	}
	nodes := make([]string, len(proof.Nodes))
	for i, n := range proof.Nodes {
		nodes[i] = hexOf(n)
	}
	byBlock[block] = nodes
}

// sharedMMRMeta verifies every header references the same MMR and returns
// its meta record.
func sharedMMRMeta(headers map[uint64]fetcher.HeaderResult) (MMRMeta, error) {
	var meta MMRMeta
	first := true
	for _, h := range headers {
		m := MMRMeta{
			MMRId:    h.Meta.MMRId,
			MMRRoot:  h.Meta.MMRRoot,
			MMRSize:  h.Meta.MMRSize,
			MMRPeaks: h.Meta.MMRPeaks,
		}
		if first {
			meta = m
			first = false
			continue
		}
		if m.MMRId != meta.MMRId || m.MMRSize != meta.MMRSize {
			return MMRMeta{}, errs.New(errs.IndexerAmbiguous, "fetched headers reference more than one MMR")
		}
	}
	return meta, nil
}

func sortedHeaders(headers map[uint64]fetcher.HeaderResult) []HeaderEntry {
	blocks := make([]uint64, 0, len(headers))
	for b := range headers {
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })

	out := make([]HeaderEntry, len(blocks))
	for i, b := range blocks {
		h := headers[b]
		out[i] = HeaderEntry{
			BlockNumber:  b,
			RLP:          hexOf(h.RLP),
			MMRLeafIndex: h.Proof.LeafIndex,
			MMRPeaksPath: h.Proof.SiblingHashes,
		}
	}
	return out
}

func sortedAccounts(accounts map[types.Address]map[uint64][]string) []AccountEntry {
	addrs := make([]types.Address, 0, len(accounts))
	for a := range accounts {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Hex() < addrs[j].Hex()
	})

	out := make([]AccountEntry, len(addrs))
	for i, a := range addrs {
		out[i] = AccountEntry{
			Address:    a,
			AccountKey: crypto.Keccak256Hash(a.Bytes()),
			Proofs:     sortedProofs(accounts[a]),
		}
	}
	return out
}

func sortedStorages(storages map[storageID]map[uint64][]string) []StorageEntry {
	ids := make([]storageID, 0, len(storages))
	for id := range storages {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].address != ids[j].address {
			return ids[i].address.Hex() < ids[j].address.Hex()
		}
		return ids[i].slot.Hex() < ids[j].slot.Hex()
	})

	out := make([]StorageEntry, len(ids))
	for i, id := range ids {
		out[i] = StorageEntry{
			Address:    id.address,
			Slot:       id.slot,
			StorageKey: crypto.Keccak256Hash(id.slot.Bytes()),
			Proofs:     sortedProofs(storages[id]),
		}
	}
	return out
}

func sortedProofs(byBlock map[uint64][]string) []BlockMPTProof {
	blocks := make([]uint64, 0, len(byBlock))
	for b := range byBlock {
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })

	out := make([]BlockMPTProof, len(blocks))
	for i, b := range blocks {
		out[i] = BlockMPTProof{BlockNumber: b, Proof: byBlock[b]}
	}
	return out
}

// taskCommitment hashes a datalake's own commitment together with its
// paired task's raw encoding. A task's wire bytes carry no datalake
// reference, so the pairing (established positionally, see Evaluate) has
// to be folded into the commitment the tasks_root tree leafs on, or two
// batches differing only in task/datalake pairing would commit identically.
func taskCommitment(dl codec.Datalake, task codec.ComputationalTask) types.Hash {
	dlCommitment := dl.Commit()
	return crypto.Keccak256Hash(dlCommitment.Bytes(), task.Raw())
}

// resultCommitment hashes a task's decimal (or, for MERKLE, hex) result as
// a big-endian 256-bit word, the leaf value committed into the results_root
// Merkle tree.
func resultCommitment(result string) types.Hash {
	n := new(big.Int)
	if len(result) > 1 && (result[0:2] == "0x" || result[0:2] == "0X") {
		n.SetString(result[2:], 16)
	} else {
		n.SetString(result, 10)
	}
	var word [32]byte
	n.FillBytes(word[:])
	return crypto.Keccak256Hash(word[:])
}

func hexOf(b []byte) string { return fmt.Sprintf("0x%x", b) }
