package compiler

import (
	"context"
	"fmt"

	"github.com/herodotus-xyz/data-processor/codec"
	"github.com/herodotus-xyz/data-processor/errs"
	"github.com/herodotus-xyz/data-processor/fetcher"
)

// TransactionsInBlockCompiler compiles a TransactionsInBlock datalake. Its
// plan is two-phase: the transaction count for the target block is not
// known until the block itself is fetched, so FetchPlan resolves it via
// BlockCountResolver before enumerating indices.
type TransactionsInBlockCompiler struct {
	Datalake codec.TransactionsInBlockDatalake
}

// FetchPlan resolves the block's transaction count, then returns one
// FetchKey per sampled index, stepping by Increment.
func (c TransactionsInBlockCompiler) FetchPlan(ctx context.Context, resolve BlockCountResolver) ([]fetcher.FetchKey, error) {
	d := c.Datalake
	if d.Increment == 0 {
		return nil, errs.New(errs.InvalidEncoding, "transactions_in_block increment must be nonzero")
	}

	count, err := resolve.TransactionCount(ctx, d.TargetBlock)
	if err != nil {
		return nil, errs.Wrap(errs.Transport, "resolve transaction count", err)
	}

	var keys []fetcher.FetchKey
	for i := uint64(0); i < count; i += d.Increment {
		if d.Property.IsReceipt {
			keys = append(keys, fetcher.ReceiptKey(d.TargetBlock, i))
		} else {
			keys = append(keys, fetcher.TransactionKey(d.TargetBlock, i))
		}
	}
	return keys, nil
}

// DecodeValue projects the sampled field out of each transaction/receipt
// JSON object, in index order.
func (c TransactionsInBlockCompiler) DecodeValue(results []fetcher.Result) ([]string, error) {
	values := make([]string, len(results))
	for i, r := range results {
		v, err := c.decodeOne(r)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (c TransactionsInBlockCompiler) decodeOne(r fetcher.Result) (string, error) {
	prop := c.Datalake.Property
	if prop.IsReceipt {
		if r.Receipt == nil {
			return "", errs.New(errs.FieldAbsent, "receipt result missing")
		}
		return decodeReceiptField(r.Receipt.JSON, prop.RcptField)
	}
	if r.Transaction == nil {
		return "", errs.New(errs.FieldAbsent, "transaction result missing")
	}
	return decodeTxField(r.Transaction.JSON, prop.TxField)
}

var txFieldJSONKeys = map[codec.TransactionField]string{
	codec.TxNonce:      "nonce",
	codec.TxGasPrice:   "gasPrice",
	codec.TxGasLimit:   "gas",
	codec.TxTo:         "to",
	codec.TxValue:      "value",
	codec.TxInput:      "input",
	codec.TxV:          "v",
	codec.TxR:          "r",
	codec.TxS:          "s",
	codec.TxChainID:    "chainId",
	codec.TxAccessList: "accessList",
}

var receiptFieldJSONKeys = map[codec.TransactionReceiptField]string{
	codec.ReceiptSuccess:             "status",
	codec.ReceiptCumulativeGasUsed:   "cumulativeGasUsed",
	codec.ReceiptLogs:                "logs",
	codec.ReceiptBloom:               "logsBloom",
}

func decodeTxField(obj map[string]any, field codec.TransactionField) (string, error) {
	key, ok := txFieldJSONKeys[field]
	if !ok {
		return "", errs.New(errs.UnknownProperty, fmt.Sprintf("unknown transaction field %d", field))
	}
	return stringifyJSONField(obj, key)
}

func decodeReceiptField(obj map[string]any, field codec.TransactionReceiptField) (string, error) {
	key, ok := receiptFieldJSONKeys[field]
	if !ok {
		return "", errs.New(errs.UnknownProperty, fmt.Sprintf("unknown receipt field %d", field))
	}
	return stringifyJSONField(obj, key)
}

// stringifyJSONField renders a JSON-RPC field value as the string the
// aggregate functions expect: hex strings pass through unchanged (they are
// already "0x"-prefixed quantities or byte blobs); anything else is
// rendered with fmt so logs/access-lists still produce a usable value.
func stringifyJSONField(obj map[string]any, key string) (string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return "", errs.New(errs.FieldAbsent, "field not present in JSON object: "+key)
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprintf("%v", v), nil
}
