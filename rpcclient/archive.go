// Package rpcclient implements the fetcher's RPCClient and IndexerClient
// collaborators: a JSON-RPC archive-node client built on go-ethereum's
// rpc.Client, and a small REST client for the MMR indexer.
package rpcclient

import (
	"context"
	"fmt"

	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/herodotus-xyz/data-processor/errs"
	"github.com/herodotus-xyz/data-processor/fetcher"
	"github.com/herodotus-xyz/data-processor/rlp"
	"github.com/herodotus-xyz/data-processor/types"
)

// ArchiveClient implements fetcher.RPCClient over a go-ethereum JSON-RPC
// connection to an archive node.
type ArchiveClient struct {
	client *gethrpc.Client
}

// Dial connects to an archive node's JSON-RPC endpoint (http(s):// or
// ws(s)://).
func Dial(ctx context.Context, url string) (*ArchiveClient, error) {
	c, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, errs.Wrap(errs.Transport, "dial archive node", err)
	}
	return &ArchiveClient{client: c}, nil
}

// NewArchiveClient wraps an already-dialed go-ethereum rpc.Client.
func NewArchiveClient(c *gethrpc.Client) *ArchiveClient {
	return &ArchiveClient{client: c}
}

func blockTag(block uint64) string {
	return fmt.Sprintf("0x%x", block)
}

// eip1186Proof mirrors the eth_getProof JSON response shape.
type eip1186Proof struct {
	AccountProof []string `json:"accountProof"`
	Balance      string   `json:"balance"`
	CodeHash     string   `json:"codeHash"`
	Nonce        string   `json:"nonce"`
	StorageHash  string   `json:"storageHash"`
	StorageProof []struct {
		Key   string   `json:"key"`
		Value string   `json:"value"`
		Proof []string `json:"proof"`
	} `json:"storageProof"`
}

// Proof fetches an eth_getProof account (and, when slot is non-nil,
// storage) proof, unwrapping each trie node's leaf payload. The MPT nodes
// returned on the wire are themselves RLP: the last node in each proof is
// the terminal [path, value] leaf pair, and its second element is the
// account/storage payload the field decoder operates on.
func (c *ArchiveClient) Proof(ctx context.Context, block uint64, addr types.Address, slot *types.Hash) (fetcher.MPTProof, fetcher.MPTProof, error) {
	var keys []string
	if slot != nil {
		keys = []string{slot.Hex()}
	}

	var resp eip1186Proof
	if err := c.client.CallContext(ctx, &resp, "eth_getProof", addr.Hex(), keys, blockTag(block)); err != nil {
		return fetcher.MPTProof{}, fetcher.MPTProof{}, errs.Wrap(errs.Transport, "eth_getProof", err)
	}
	if len(resp.AccountProof) == 0 {
		return fetcher.MPTProof{}, fetcher.MPTProof{}, errs.New(errs.NoAccount, "eth_getProof returned an empty accountProof")
	}
	if slot != nil && len(resp.StorageProof) == 0 {
		return fetcher.MPTProof{}, fetcher.MPTProof{}, errs.New(errs.NoStorage, "eth_getProof returned an empty storageProof for a requested slot")
	}

	accountNodes := make([][]byte, len(resp.AccountProof))
	for i, n := range resp.AccountProof {
		accountNodes[i] = types.FromHex(n)
	}
	accountLeaf, err := leafPayload(accountNodes)
	if err != nil {
		return fetcher.MPTProof{}, fetcher.MPTProof{}, err
	}
	accountProof := fetcher.MPTProof{Nodes: accountNodes, LeafRLP: accountLeaf}

	if slot == nil || len(resp.StorageProof) == 0 {
		return accountProof, fetcher.MPTProof{}, nil
	}

	storageNodes := make([][]byte, len(resp.StorageProof[0].Proof))
	for i, n := range resp.StorageProof[0].Proof {
		storageNodes[i] = types.FromHex(n)
	}
	storageLeaf, err := leafPayload(storageNodes)
	if err != nil {
		return fetcher.MPTProof{}, fetcher.MPTProof{}, err
	}
	return accountProof, fetcher.MPTProof{Nodes: storageNodes, LeafRLP: storageLeaf}, nil
}

// leafPayload decodes the terminal proof node (a 2-element [path, value]
// list) and returns its value element, the RLP blob the field decoder
// operates on.
func leafPayload(nodes [][]byte) ([]byte, error) {
	if len(nodes) == 0 {
		return nil, errs.New(errs.MalformedRlp, "empty MPT proof")
	}
	items, err := rlp.DecodeList(nodes[len(nodes)-1])
	if err != nil {
		return nil, errs.Wrap(errs.MalformedRlp, "decode terminal trie node", err)
	}
	if len(items) != 2 {
		return nil, errs.New(errs.MalformedRlp, "terminal trie node is not a leaf/extension pair")
	}
	return items[1], nil
}

// TransactionCount fetches a block's transaction count via
// eth_getBlockTransactionCountByNumber.
func (c *ArchiveClient) TransactionCount(ctx context.Context, block uint64) (uint64, error) {
	var hexCount string
	if err := c.client.CallContext(ctx, &hexCount, "eth_getBlockTransactionCountByNumber", blockTag(block)); err != nil {
		return 0, errs.Wrap(errs.Transport, "eth_getBlockTransactionCountByNumber", err)
	}
	return parseHexUint(hexCount)
}

// TransactionByIndex fetches a transaction's JSON object via
// eth_getTransactionByBlockNumberAndIndex.
func (c *ArchiveClient) TransactionByIndex(ctx context.Context, block, index uint64) (map[string]any, error) {
	var tx map[string]any
	if err := c.client.CallContext(ctx, &tx, "eth_getTransactionByBlockNumberAndIndex", blockTag(block), blockTag(index)); err != nil {
		return nil, errs.Wrap(errs.Transport, "eth_getTransactionByBlockNumberAndIndex", err)
	}
	if tx == nil {
		return nil, errs.New(errs.FieldAbsent, "transaction index out of range")
	}
	return tx, nil
}

// ReceiptByIndex fetches a receipt's JSON object. Archive nodes do not all
// expose a by-block-and-index receipt call, so this resolves the
// transaction hash first and fetches the receipt by hash.
func (c *ArchiveClient) ReceiptByIndex(ctx context.Context, block, index uint64) (map[string]any, error) {
	tx, err := c.TransactionByIndex(ctx, block, index)
	if err != nil {
		return nil, err
	}
	hash, _ := tx["hash"].(string)
	if hash == "" {
		return nil, errs.New(errs.FieldAbsent, "transaction object missing hash")
	}

	var receipt map[string]any
	if err := c.client.CallContext(ctx, &receipt, "eth_getTransactionReceipt", hash); err != nil {
		return nil, errs.Wrap(errs.Transport, "eth_getTransactionReceipt", err)
	}
	if receipt == nil {
		return nil, errs.New(errs.FieldAbsent, "receipt not found for transaction")
	}
	return receipt, nil
}

func parseHexUint(s string) (uint64, error) {
	b := types.FromHex(s)
	var v uint64
	for _, x := range b {
		v = (v << 8) | uint64(x)
	}
	return v, nil
}
