package evaluator

import (
	"bytes"
	"context"
	"testing"

	"github.com/herodotus-xyz/data-processor/codec"
	"github.com/herodotus-xyz/data-processor/crypto"
	"github.com/herodotus-xyz/data-processor/fetcher"
	"github.com/herodotus-xyz/data-processor/types"
)

// fakeRPC serves one storage value per block, keyed by block number, and a
// fixed account leaf RLP.
type fakeRPC struct {
	storageValue map[uint64]uint64
	proofCalls   int
}

func (r *fakeRPC) Proof(ctx context.Context, block uint64, addr types.Address, slot *types.Hash) (fetcher.MPTProof, fetcher.MPTProof, error) {
	r.proofCalls++
	acc := fetcher.MPTProof{Nodes: [][]byte{{0xaa}}, LeafRLP: rlpAccountLeaf()}
	if slot == nil {
		return acc, fetcher.MPTProof{}, nil
	}
	return acc, fetcher.MPTProof{Nodes: [][]byte{{0xbb}}, LeafRLP: rlpString(r.storageValue[block])}, nil
}

func (r *fakeRPC) TransactionCount(ctx context.Context, block uint64) (uint64, error) { return 0, nil }
func (r *fakeRPC) TransactionByIndex(ctx context.Context, block, index uint64) (map[string]any, error) {
	return nil, nil
}
func (r *fakeRPC) ReceiptByIndex(ctx context.Context, block, index uint64) (map[string]any, error) {
	return nil, nil
}

// fakeIndexer serves synthetic header ranges out of one MMR. headerRLP, if
// set, supplies each block's RLP; tests that never decode header fields
// leave it nil and get a one-byte placeholder.
type fakeIndexer struct {
	rangeCalls int
	headerRLP  func(block uint64) []byte
}

func (f *fakeIndexer) HeaderRange(ctx context.Context, from, to uint64) ([]fetcher.BlockHeader, error) {
	f.rangeCalls++
	headers := make([]fetcher.BlockHeader, 0, to-from+1)
	for b := from; b <= to; b++ {
		rlp := []byte{byte(b)}
		if f.headerRLP != nil {
			rlp = f.headerRLP(b)
		}
		headers = append(headers, fetcher.BlockHeader{
			Block: b,
			Header: fetcher.HeaderResult{
				RLP:   rlp,
				Meta:  fetcher.MMRMeta{MMRId: 26, MMRRoot: "0x1234", MMRSize: 4096},
				Proof: fetcher.MMRLeafProof{LeafIndex: b},
			},
		})
	}
	return headers, nil
}

// rlpString encodes a small unsigned integer as the bare RLP string a
// storage trie leaf carries (big-endian, minimal length, no leading zeros).
func rlpString(v uint64) []byte {
	var b []byte
	for v > 0 {
		b = append([]byte{byte(v)}, b...)
		v >>= 8
	}
	if len(b) == 0 {
		return []byte{0x80}
	}
	if len(b) == 1 && b[0] < 0x80 {
		return b
	}
	return append([]byte{0x80 + byte(len(b))}, b...)
}

// rlpAccountLeaf encodes a minimal 4-element [nonce, balance, storageRoot,
// codeHash] RLP list; its contents are irrelevant to the storage-sampling
// scenario this test exercises.
func rlpAccountLeaf() []byte {
	fields := [][]byte{{0x01}, {0x02}, make([]byte, 32), make([]byte, 32)}
	var body []byte
	for _, f := range fields {
		body = append(body, rlpBytesField(f)...)
	}
	return append(rlpListPrefix(len(body)), body...)
}

func rlpBytesField(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return b
	}
	return append([]byte{0x80 + byte(len(b))}, b...)
}

func rlpListPrefix(n int) []byte {
	return []byte{0xc0 + byte(n)}
}

// buildTask round-trips a ComputationalTask through the wire encoding so it
// carries the Raw() bytes Commit relies on, the same way a decoded batch
// element would.
func buildTask(t *testing.T, fn codec.AggregateFn) codec.ComputationalTask {
	t.Helper()
	encoded, err := codec.EncodeTask(codec.ComputationalTask{Fn: fn})
	if err != nil {
		t.Fatalf("EncodeTask: %v", err)
	}
	task, err := codec.DecodeTask(encoded)
	if err != nil {
		t.Fatalf("DecodeTask: %v", err)
	}
	return task
}

// buildStorageDatalake round-trips a BlockSampled storage datalake over
// [start, end] through the wire encoding.
func buildStorageDatalake(t *testing.T, addr types.Address, slot types.Hash, start, end uint64) codec.Datalake {
	t.Helper()
	encoded, err := codec.EncodeBlockSampledDatalake(codec.BlockSampledDatalake{
		BlockRangeStart: start,
		BlockRangeEnd:   end,
		Increment:       1,
		Property: codec.SampledProperty{
			Kind:    codec.KindStorage,
			Address: addr,
			Slot:    slot,
		},
	})
	if err != nil {
		t.Fatalf("EncodeBlockSampledDatalake: %v", err)
	}
	dl, err := codec.DecodeDatalake(encoded)
	if err != nil {
		t.Fatalf("DecodeDatalake: %v", err)
	}
	return dl
}

// foldPath recomputes the Merkle root from a leaf and its sibling path,
// using the same sorted-pair hashing the trees are built with.
func foldPath(leaf types.Hash, path []types.Hash) types.Hash {
	node := leaf
	for _, sibling := range path {
		a, b := node, sibling
		if bytes.Compare(b.Bytes(), a.Bytes()) < 0 {
			a, b = b, a
		}
		node = crypto.Keccak256Hash(a.Bytes(), b.Bytes())
	}
	return node
}

// TestEvaluateFourTasksSharedDatalake mirrors the batch shape spec scenario
// one describes: four aggregate tasks (avg, sum, min, max) all sampling the
// same storage slot across the same three-block range via four identical
// datalakes. Every task should see the same three values, and each
// distinct block/account/slot should be fetched and emitted exactly once
// despite being requested four times over.
func TestEvaluateFourTasksSharedDatalake(t *testing.T) {
	addr := types.HexToAddress("0x1111111111111111111111111111111111111111")
	slot := types.HexToHash("0x01")

	rpc := &fakeRPC{storageValue: map[uint64]uint64{100: 10, 101: 20, 102: 30}}
	indexer := &fakeIndexer{}
	f := fetcher.New(rpc, indexer)

	tasks := []codec.ComputationalTask{
		buildTask(t, codec.FnAverage),
		buildTask(t, codec.FnSum),
		buildTask(t, codec.FnMin),
		buildTask(t, codec.FnMax),
	}
	datalakes := []codec.Datalake{
		buildStorageDatalake(t, addr, slot, 100, 102),
		buildStorageDatalake(t, addr, slot, 100, 102),
		buildStorageDatalake(t, addr, slot, 100, 102),
		buildStorageDatalake(t, addr, slot, 100, 102),
	}

	bundle, err := Evaluate(context.Background(), f, tasks, datalakes)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if len(bundle.Tasks) != 4 {
		t.Fatalf("len(bundle.Tasks) = %d, want 4", len(bundle.Tasks))
	}
	wantResults := []string{"20", "60", "10", "30"}
	for i, want := range wantResults {
		if got := bundle.Tasks[i].Result; got != want {
			t.Errorf("bundle.Tasks[%d].Result = %q, want %q", i, got, want)
		}
	}

	if len(bundle.Headers) != 3 {
		t.Errorf("len(bundle.Headers) = %d, want 3 (deduped across 4 identical datalakes)", len(bundle.Headers))
	}
	if len(bundle.Accounts) != 1 {
		t.Fatalf("len(bundle.Accounts) = %d, want 1 (one sampled account)", len(bundle.Accounts))
	}
	if got := len(bundle.Accounts[0].Proofs); got != 3 {
		t.Errorf("account proofs = %d, want 3 (one per sampled block)", got)
	}
	if len(bundle.Storages) != 1 {
		t.Fatalf("len(bundle.Storages) = %d, want 1 (one sampled slot)", len(bundle.Storages))
	}
	if got := len(bundle.Storages[0].Proofs); got != 3 {
		t.Errorf("storage proofs = %d, want 3 (one per sampled block)", got)
	}
	if indexer.rangeCalls != 1 {
		t.Errorf("indexer range calls = %d, want 1 (contiguous prefetch)", indexer.rangeCalls)
	}
	if rpc.proofCalls != 3 {
		t.Errorf("rpc.Proof called %d times, want 3 (one per distinct block)", rpc.proofCalls)
	}

	if bundle.MMRMeta.MMRId != 26 || bundle.MMRMeta.MMRSize != 4096 {
		t.Errorf("MMRMeta = %+v, want the indexer's single MMR record", bundle.MMRMeta)
	}
	if bundle.TasksRoot == bundle.ResultsRoot {
		t.Error("tasks_root and results_root should differ (different leaf preimages)")
	}
}

// fourTaskBatch and fourHeaderDatalakeBatch are the production calldata
// fixtures the codec tests also decode: four tasks (avg, sum, min, max, no
// context) and four identical BlockSampled datalakes sampling
// header.base_fee_per_gas over [10399990, 10400000] with increment 1.
const fourTaskBatch = "0x0000000000000000000000000000000000000000000000000000000000000020000000000000000000000000000000000000000000000000000000000000000400000000000000000000000000000000000000000000000000000000000000800000000000000000000000000000000000000000000000000000000000000100000000000000000000000000000000000000000000000000000000000000018000000000000000000000000000000000000000000000000000000000000002000000000000000000000000000000000000000000000000000000000000000060617667000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000400000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000006073756d00000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000040000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000606d696e00000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000040000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000606d6178000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000400000000000000000000000000000000000000000000000000000000000000000"

const fourHeaderDatalakeBatch = "0x00000000000000000000000000000000000000000000000000000000000000200000000000000000000000000000000000000000000000000000000000000004000000000000000000000000000000000000000000000000000000000000008000000000000000000000000000000000000000000000000000000000000001800000000000000000000000000000000000000000000000000000000000000280000000000000000000000000000000000000000000000000000000000000038000000000000000000000000000000000000000000000000000000000000000e0000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000009eb0f600000000000000000000000000000000000000000000000000000000009eb100000000000000000000000000000000000000000000000000000000000000000100000000000000000000000000000000000000000000000000000000000000a00000000000000000000000000000000000000000000000000000000000000002010f00000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000e0000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000009eb0f600000000000000000000000000000000000000000000000000000000009eb100000000000000000000000000000000000000000000000000000000000000000100000000000000000000000000000000000000000000000000000000000000a00000000000000000000000000000000000000000000000000000000000000002010f00000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000e0000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000009eb0f600000000000000000000000000000000000000000000000000000000009eb100000000000000000000000000000000000000000000000000000000000000000100000000000000000000000000000000000000000000000000000000000000a00000000000000000000000000000000000000000000000000000000000000002010f00000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000e0000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000009eb0f600000000000000000000000000000000000000000000000000000000009eb100000000000000000000000000000000000000000000000000000000000000000100000000000000000000000000000000000000000000000000000000000000a00000000000000000000000000000000000000000000000000000000000000002010f000000000000000000000000000000000000000000000000000000000000"

// buildHeaderRLP encodes a minimal 16-field header whose last element is a
// base fee derived from the block number, so a base_fee_per_gas sample
// over [10399990, 10400000] decodes to the values 1..11.
func buildHeaderRLP(block uint64) []byte {
	var body []byte
	for i := 0; i < 15; i++ {
		body = append(body, rlpBytesField([]byte{0x01})...)
	}
	body = append(body, rlpString(block-10399990+1)...)
	return append(rlpListPrefix(len(body)), body...)
}

// TestEvaluateFourAggregatesOverHeaderRange drives the full pipeline with
// the production calldata fixtures: decode both batches, evaluate, and
// check the four in-order results plus the deduplicated header set (11
// distinct blocks shared by all four identical datalakes) resolved through
// a single contiguous range request.
func TestEvaluateFourAggregatesOverHeaderRange(t *testing.T) {
	tasks, err := codec.DecodeTasks(types.FromHex(fourTaskBatch))
	if err != nil {
		t.Fatalf("DecodeTasks: %v", err)
	}
	datalakes, err := codec.DecodeDatalakes(types.FromHex(fourHeaderDatalakeBatch))
	if err != nil {
		t.Fatalf("DecodeDatalakes: %v", err)
	}
	if len(tasks) != 4 || len(datalakes) != 4 {
		t.Fatalf("decoded %d tasks, %d datalakes, want 4 and 4", len(tasks), len(datalakes))
	}
	for i, dl := range datalakes[1:] {
		if dl.Commit() != datalakes[0].Commit() {
			t.Fatalf("datalake %d commitment differs from datalake 0", i+1)
		}
	}

	indexer := &fakeIndexer{headerRLP: buildHeaderRLP}
	f := fetcher.New(&fakeRPC{}, indexer)

	bundle, err := Evaluate(context.Background(), f, tasks, datalakes)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	wantResults := []string{"6", "66", "1", "11"} // avg, sum, min, max of 1..11
	if len(bundle.Tasks) != 4 {
		t.Fatalf("len(bundle.Tasks) = %d, want 4", len(bundle.Tasks))
	}
	for i, want := range wantResults {
		if got := bundle.Tasks[i].Result; got != want {
			t.Errorf("bundle.Tasks[%d].Result = %q, want %q", i, got, want)
		}
	}

	if len(bundle.Headers) != 11 {
		t.Errorf("len(bundle.Headers) = %d, want 11 (deduped across 4 identical datalakes)", len(bundle.Headers))
	}
	if indexer.rangeCalls != 1 {
		t.Errorf("indexer range calls = %d, want 1 (one contiguous prefetch)", indexer.rangeCalls)
	}
	if len(bundle.Accounts) != 0 || len(bundle.Storages) != 0 {
		t.Errorf("header-only batch should carry no account/storage entries, got %d/%d", len(bundle.Accounts), len(bundle.Storages))
	}
	if bundle.TasksRoot.IsZero() || bundle.ResultsRoot.IsZero() {
		t.Error("bundle roots should be populated")
	}
	if bundle.Headers[0].BlockNumber != 10399990 || bundle.Headers[10].BlockNumber != 10400000 {
		t.Errorf("headers not in ascending block order: first %d, last %d", bundle.Headers[0].BlockNumber, bundle.Headers[10].BlockNumber)
	}
}

// TestEvaluateRootsRecomputableFromBundleLeaves asserts the invariant that
// the stored roots match a recomputation from the bundle's own leaves, and
// that every task entry's sibling paths fold its leaves back to the roots.
func TestEvaluateRootsRecomputableFromBundleLeaves(t *testing.T) {
	addr := types.HexToAddress("0x3333333333333333333333333333333333333333")
	slot := types.HexToHash("0x05")

	rpc := &fakeRPC{storageValue: map[uint64]uint64{200: 4, 201: 5}}
	f := fetcher.New(rpc, &fakeIndexer{})

	tasks := []codec.ComputationalTask{
		buildTask(t, codec.FnSum),
		buildTask(t, codec.FnMax),
		buildTask(t, codec.FnMin),
	}
	datalakes := []codec.Datalake{
		buildStorageDatalake(t, addr, slot, 200, 201),
		buildStorageDatalake(t, addr, slot, 200, 201),
		buildStorageDatalake(t, addr, slot, 200, 201),
	}

	bundle, err := Evaluate(context.Background(), f, tasks, datalakes)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	taskLeaves := make([]types.Hash, len(bundle.Tasks))
	resultLeaves := make([]types.Hash, len(bundle.Tasks))
	for i, task := range bundle.Tasks {
		taskLeaves[i] = task.TaskCommitment
		resultLeaves[i] = task.ResultCommitment
	}
	if got := crypto.NewMerkleTree(taskLeaves).Root(); got != bundle.TasksRoot {
		t.Errorf("recomputed tasks_root = %s, want %s", got.Hex(), bundle.TasksRoot.Hex())
	}
	if got := crypto.NewMerkleTree(resultLeaves).Root(); got != bundle.ResultsRoot {
		t.Errorf("recomputed results_root = %s, want %s", got.Hex(), bundle.ResultsRoot.Hex())
	}

	for i, task := range bundle.Tasks {
		if got := foldPath(task.TaskCommitment, task.TaskProof); got != bundle.TasksRoot {
			t.Errorf("task %d: task inclusion proof folds to %s, want tasks_root %s", i, got.Hex(), bundle.TasksRoot.Hex())
		}
		if got := foldPath(task.ResultCommitment, task.ResultProof); got != bundle.ResultsRoot {
			t.Errorf("task %d: result inclusion proof folds to %s, want results_root %s", i, got.Hex(), bundle.ResultsRoot.Hex())
		}
	}
}

// TestEvaluateRejectsMismatchedBatchLengths guards the arity invariant
// between the task batch and its accompanying datalake batch.
func TestEvaluateRejectsMismatchedBatchLengths(t *testing.T) {
	f := fetcher.New(&fakeRPC{}, &fakeIndexer{})
	tasks := []codec.ComputationalTask{buildTask(t, codec.FnSum)}
	if _, err := Evaluate(context.Background(), f, tasks, nil); err == nil {
		t.Fatal("Evaluate with mismatched task/datalake lengths should error")
	}
}

// TestTaskCommitmentBindsDatalakePairing asserts that pairing a task with a
// different (but otherwise identical in content) datalake changes the task
// commitment: the commitment must bind the positional pairing, not just the
// task's own bytes, or two batches differing only in pairing would produce
// identical tasks_root commitments.
func TestTaskCommitmentBindsDatalakePairing(t *testing.T) {
	addr := types.HexToAddress("0x2222222222222222222222222222222222222222")
	slot := types.HexToHash("0x02")

	task := buildTask(t, codec.FnSum)
	dlA := buildStorageDatalake(t, addr, slot, 1, 1)
	dlB := buildStorageDatalake(t, addr, slot, 2, 2)

	if taskCommitment(dlA, task) == taskCommitment(dlB, task) {
		t.Error("taskCommitment should differ when the paired datalake differs")
	}
}
