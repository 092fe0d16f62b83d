// Package codec implements the ABI wire format the prover pipeline uses to
// batch ComputationalTasks and their datalakes into a single calldata blob:
// an outer "bytes[]" array whose elements are themselves ABI encodings,
// tagged by an embedded integer discriminant so a single array can carry a
// mix of datalake variants.
package codec

import (
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/herodotus-xyz/data-processor/errs"
)

// bytesArrayArguments is the outer "bytes[]" container every batch (tasks or
// datalakes) is wrapped in before transport.
var bytesArrayArguments = abi.Arguments{arg("elements", "bytes[]")}

// taskArguments encodes a single ComputationalTask. The fields are
// flattened top-level arguments, not a tuple: the wire carries the head
// words directly, with no leading tuple offset. The aggregate function
// identifier is a raw, NUL-padded bytes32 (not an ABI dynamic string: the
// id is short and fixed-width so it fits a single EVM word); the context
// blob is empty for every aggregate but COUNTIF. Tasks carry no datalake
// reference of their own; a batch's Nth task is evaluated against the Nth
// datalake in the accompanying batch, matched by position.
var taskArguments = abi.Arguments{
	arg("aggregateFnId", "bytes32"),
	arg("aggregateFnCtx", "bytes"),
}

// blockSampledArguments encodes a BlockSampled datalake.
var blockSampledArguments = abi.Arguments{
	arg("tag", "uint256"),
	arg("blockRangeStart", "uint256"),
	arg("blockRangeEnd", "uint256"),
	arg("increment", "uint256"),
	arg("sampledProperty", "bytes"),
}

// dynamicLayoutArguments encodes a (deprecated, decode-only) DynamicLayout
// datalake.
var dynamicLayoutArguments = abi.Arguments{
	arg("tag", "uint256"),
	arg("blockNumber", "uint256"),
	arg("accountAddress", "address"),
	arg("slotIndex", "uint256"),
	arg("initialKey", "uint256"),
	arg("keyBoundary", "uint256"),
	arg("increment", "uint256"),
}

// transactionsArguments encodes a TransactionsInBlock datalake.
var transactionsArguments = abi.Arguments{
	arg("tag", "uint256"),
	arg("targetBlock", "uint256"),
	arg("increment", "uint256"),
	arg("sampledProperty", "bytes"),
}

// datalakeTag is the first word of every datalake encoding, identifying
// which of the three variants the remaining bytes decode as.
type datalakeTag uint64

const (
	tagBlockSampled        datalakeTag = 0
	tagDynamicLayout       datalakeTag = 1
	tagTransactionsInBlock datalakeTag = 2
)

func arg(name, typ string) abi.Argument {
	t, err := abi.NewType(typ, "", nil)
	if err != nil {
		panic("codec: invalid built-in abi type: " + err.Error())
	}
	return abi.Argument{Name: name, Type: t}
}

// unpackInto ABI-decodes data through args and copies the values into the
// struct dst points at, field-matched by argument name.
func unpackInto(args abi.Arguments, dst any, data []byte, context string) error {
	values, err := args.Unpack(data)
	if err != nil {
		return wrapInvalidEncoding(context, err)
	}
	if err := args.Copy(dst, values); err != nil {
		return wrapInvalidEncoding(context, err)
	}
	return nil
}

// wrapInvalidEncoding adapts a go-ethereum abi error into our taxonomy.
func wrapInvalidEncoding(context string, err error) error {
	return errs.Wrap(errs.InvalidEncoding, context, err)
}
