package codec

import (
	"encoding/json"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/herodotus-xyz/data-processor/crypto"
	"github.com/herodotus-xyz/data-processor/errs"
	"github.com/herodotus-xyz/data-processor/types"
)

// Datalake is the decoded, tagged-union form of a single datalake. Exactly
// one of BlockSampled, DynamicLayout or Transactions is populated, per Kind.
type Datalake struct {
	Kind          DatalakeKind
	BlockSampled  BlockSampledDatalake
	DynamicLayout DynamicLayoutDatalake
	Transactions  TransactionsInBlockDatalake

	// raw carries the original encoded bytes so Commit can hash exactly what
	// was received, independent of how this package re-serializes it.
	raw []byte
}

// DatalakeKind identifies which datalake variant a Datalake holds.
type DatalakeKind int

const (
	DatalakeBlockSampled DatalakeKind = iota
	DatalakeDynamicLayout
	DatalakeTransactionsInBlock
)

// BlockSampledDatalake samples one property across a range of blocks.
type BlockSampledDatalake struct {
	BlockRangeStart uint64
	BlockRangeEnd   uint64
	Increment       uint64
	Property        SampledProperty
}

// TransactionsInBlockDatalake samples one transaction/receipt property
// across every transaction index in a single block.
type TransactionsInBlockDatalake struct {
	TargetBlock uint64
	Increment   uint64
	Property    TransactionsCollection
}

// DynamicLayoutDatalake is the deprecated, decode-only datalake variant:
// it samples a run of consecutive storage slots starting at a dynamically
// discovered base slot. Retained only so a batch containing one still
// decodes; neither the compiler nor the fetcher plans work for it.
type DynamicLayoutDatalake struct {
	BlockNumber    uint64
	AccountAddress types.Address
	SlotIndex      uint64
	InitialKey     uint64
	KeyBoundary    uint64
	Increment      uint64
}

type blockSampledTuple struct {
	Tag             *big.Int
	BlockRangeStart *big.Int
	BlockRangeEnd   *big.Int
	Increment       *big.Int
	SampledProperty []byte
}

type dynamicLayoutTuple struct {
	Tag            *big.Int
	BlockNumber    *big.Int
	AccountAddress ethcommon.Address
	SlotIndex      *big.Int
	InitialKey     *big.Int
	KeyBoundary    *big.Int
	Increment      *big.Int
}

type transactionsTuple struct {
	Tag             *big.Int
	TargetBlock     *big.Int
	Increment       *big.Int
	SampledProperty []byte
}

// DecodeDatalake decodes a single ABI-encoded datalake tuple, dispatching on
// its leading tag word. DynamicLayout decodes successfully (it is part of
// the wire format other producers still emit) but is otherwise inert: the
// compiler and fetcher never plan work for it.
func DecodeDatalake(encoded []byte) (Datalake, error) {
	tag, err := peekTag(encoded)
	if err != nil {
		return Datalake{}, err
	}

	switch datalakeTag(tag) {
	case tagBlockSampled:
		var t blockSampledTuple
		if err := unpackInto(blockSampledArguments, &t, encoded, "decode BlockSampled datalake"); err != nil {
			return Datalake{}, err
		}
		prop, err := unpackSampledProperty(t.SampledProperty)
		if err != nil {
			return Datalake{}, err
		}
		return Datalake{
			Kind: DatalakeBlockSampled,
			BlockSampled: BlockSampledDatalake{
				BlockRangeStart: t.BlockRangeStart.Uint64(),
				BlockRangeEnd:   t.BlockRangeEnd.Uint64(),
				Increment:       t.Increment.Uint64(),
				Property:        prop,
			},
			raw: encoded,
		}, nil

	case tagDynamicLayout:
		var t dynamicLayoutTuple
		if err := unpackInto(dynamicLayoutArguments, &t, encoded, "decode DynamicLayout datalake"); err != nil {
			return Datalake{}, err
		}
		return Datalake{
			Kind: DatalakeDynamicLayout,
			DynamicLayout: DynamicLayoutDatalake{
				BlockNumber:    t.BlockNumber.Uint64(),
				AccountAddress: types.BytesToAddress(t.AccountAddress.Bytes()),
				SlotIndex:      t.SlotIndex.Uint64(),
				InitialKey:     t.InitialKey.Uint64(),
				KeyBoundary:    t.KeyBoundary.Uint64(),
				Increment:      t.Increment.Uint64(),
			},
			raw: encoded,
		}, nil

	case tagTransactionsInBlock:
		var t transactionsTuple
		if err := unpackInto(transactionsArguments, &t, encoded, "decode TransactionsInBlock datalake"); err != nil {
			return Datalake{}, err
		}
		prop, err := DeserializeTransactionsCollection(t.SampledProperty)
		if err != nil {
			return Datalake{}, err
		}
		return Datalake{
			Kind: DatalakeTransactionsInBlock,
			Transactions: TransactionsInBlockDatalake{
				TargetBlock: t.TargetBlock.Uint64(),
				Increment:   t.Increment.Uint64(),
				Property:    prop,
			},
			raw: encoded,
		}, nil

	default:
		return Datalake{}, errs.New(errs.InvalidEncoding, "unknown datalake tag")
	}
}

// EncodeBlockSampledDatalake ABI-encodes a BlockSampled datalake tuple.
func EncodeBlockSampledDatalake(d BlockSampledDatalake) ([]byte, error) {
	encoded, err := blockSampledArguments.Pack(
		big.NewInt(int64(tagBlockSampled)),
		new(big.Int).SetUint64(d.BlockRangeStart),
		new(big.Int).SetUint64(d.BlockRangeEnd),
		new(big.Int).SetUint64(d.Increment),
		packSampledProperty(d.Property),
	)
	if err != nil {
		return nil, wrapInvalidEncoding("encode BlockSampled datalake", err)
	}
	return encoded, nil
}

// EncodeTransactionsInBlockDatalake ABI-encodes a TransactionsInBlock
// datalake tuple.
func EncodeTransactionsInBlockDatalake(d TransactionsInBlockDatalake) ([]byte, error) {
	encoded, err := transactionsArguments.Pack(
		big.NewInt(int64(tagTransactionsInBlock)),
		new(big.Int).SetUint64(d.TargetBlock),
		new(big.Int).SetUint64(d.Increment),
		d.Property.Serialize(),
	)
	if err != nil {
		return nil, wrapInvalidEncoding("encode TransactionsInBlock datalake", err)
	}
	return encoded, nil
}

// EncodeDatalake ABI-encodes a decoded Datalake back to its wire tuple,
// dispatching on Kind. DynamicLayout is decode-only (per DecodeDatalake)
// and cannot be re-encoded from its Go representation.
func EncodeDatalake(d Datalake) ([]byte, error) {
	switch d.Kind {
	case DatalakeBlockSampled:
		return EncodeBlockSampledDatalake(d.BlockSampled)
	case DatalakeTransactionsInBlock:
		return EncodeTransactionsInBlockDatalake(d.Transactions)
	case DatalakeDynamicLayout:
		return nil, errs.New(errs.InvalidEncoding, "DynamicLayout datalakes are decode-only and cannot be encoded")
	default:
		return nil, errs.New(errs.InvalidEncoding, "unknown datalake kind")
	}
}

// Commit returns the keccak256 commitment of the datalake's original
// encoding, which is hashed together with a task's Raw encoding to form
// that task's tasks_root leaf.
func (d Datalake) Commit() types.Hash {
	return crypto.Keccak256Hash(d.raw)
}

// Raw returns the datalake's original ABI-encoded bytes.
func (d Datalake) Raw() []byte { return d.raw }

// MarshalJSON renders only the active variant's fields, with a "kind"
// discriminant and, for decoded datalakes, the wire commitment — the shape
// the CLI's decode subcommands print.
func (d Datalake) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	switch d.Kind {
	case DatalakeBlockSampled:
		out["kind"] = "block_sampled"
		out["block_range_start"] = d.BlockSampled.BlockRangeStart
		out["block_range_end"] = d.BlockSampled.BlockRangeEnd
		out["increment"] = d.BlockSampled.Increment
		out["sampled_property"] = d.BlockSampled.Property.String()
	case DatalakeDynamicLayout:
		out["kind"] = "dynamic_layout"
		out["block_number"] = d.DynamicLayout.BlockNumber
		out["account_address"] = d.DynamicLayout.AccountAddress.Hex()
		out["slot_index"] = d.DynamicLayout.SlotIndex
		out["initial_key"] = d.DynamicLayout.InitialKey
		out["key_boundary"] = d.DynamicLayout.KeyBoundary
		out["increment"] = d.DynamicLayout.Increment
	case DatalakeTransactionsInBlock:
		out["kind"] = "transactions_in_block"
		out["target_block"] = d.Transactions.TargetBlock
		out["increment"] = d.Transactions.Increment
		out["sampled_property"] = d.Transactions.Property.String()
	}
	if d.raw != nil {
		out["commitment"] = d.Commit().Hex()
	}
	return json.Marshal(out)
}

func peekTag(encoded []byte) (uint64, error) {
	if len(encoded) < 32 {
		return 0, errs.New(errs.InvalidEncoding, "datalake tuple shorter than one word")
	}
	return new(big.Int).SetBytes(encoded[:32]).Uint64(), nil
}
