package codec

import (
	"strings"

	"github.com/herodotus-xyz/data-processor/errs"
)

// transactionCollectionTag is the first byte of a TransactionsInBlock
// sampled_property payload: which collection (transactions or receipts)
// the second byte's field-id is drawn from.
type transactionCollectionTag byte

const (
	collectionTransactions transactionCollectionTag = 1
	collectionReceipts     transactionCollectionTag = 2
)

// TransactionField enumerates transaction-object properties, in the order
// they appear in a legacy transaction's RLP encoding, extended with the
// access-list fields introduced by EIP-2930.
type TransactionField byte

const (
	TxNonce TransactionField = iota
	TxGasPrice
	TxGasLimit
	TxTo
	TxValue
	TxInput
	TxV
	TxR
	TxS
	TxChainID
	TxAccessList
)

var txFieldNames = map[string]TransactionField{
	"nonce":       TxNonce,
	"gas_price":   TxGasPrice,
	"gas_limit":   TxGasLimit,
	"to":          TxTo,
	"value":       TxValue,
	"input":       TxInput,
	"v":           TxV,
	"r":           TxR,
	"s":           TxS,
	"chain_id":    TxChainID,
	"access_list": TxAccessList,
}

// TransactionReceiptField enumerates receipt properties.
type TransactionReceiptField byte

const (
	ReceiptSuccess TransactionReceiptField = iota
	ReceiptCumulativeGasUsed
	ReceiptLogs
	ReceiptBloom
)

var txReceiptFieldNames = map[string]TransactionReceiptField{
	"success":              ReceiptSuccess,
	"cumulative_gas_used":  ReceiptCumulativeGasUsed,
	"logs":                 ReceiptLogs,
	"bloom":                ReceiptBloom,
}

// TransactionsCollection is the tagged sampled_property of a
// TransactionsInBlock datalake: either a transaction field or a receipt
// field.
type TransactionsCollection struct {
	IsReceipt bool
	TxField   TransactionField
	RcptField TransactionReceiptField
}

// Serialize packs the collection into its two-byte wire form:
// [collection_tag][field_id].
func (c TransactionsCollection) Serialize() []byte {
	if c.IsReceipt {
		return []byte{byte(collectionReceipts), byte(c.RcptField)}
	}
	return []byte{byte(collectionTransactions), byte(c.TxField)}
}

// DeserializeTransactionsCollection parses the two-byte wire form back into
// a TransactionsCollection.
func DeserializeTransactionsCollection(b []byte) (TransactionsCollection, error) {
	if len(b) != 2 {
		return TransactionsCollection{}, errs.New(errs.InvalidEncoding, "malformed transactions sampled_property")
	}
	switch transactionCollectionTag(b[0]) {
	case collectionTransactions:
		if TransactionField(b[1]) > TxAccessList {
			return TransactionsCollection{}, errs.New(errs.InvalidEncoding, "unknown transaction field-id")
		}
		return TransactionsCollection{IsReceipt: false, TxField: TransactionField(b[1])}, nil
	case collectionReceipts:
		if TransactionReceiptField(b[1]) > ReceiptBloom {
			return TransactionsCollection{}, errs.New(errs.InvalidEncoding, "unknown receipt field-id")
		}
		return TransactionsCollection{IsReceipt: true, RcptField: TransactionReceiptField(b[1])}, nil
	default:
		return TransactionsCollection{}, errs.New(errs.InvalidEncoding, "unknown transactions collection tag")
	}
}

// ParseTransactionsProperty parses a "tx.<field>" / "tx_receipt.<field>"
// path string into a TransactionsCollection.
func ParseTransactionsProperty(s string) (TransactionsCollection, error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return TransactionsCollection{}, errs.New(errs.UnknownProperty, "malformed transactions property: "+s)
	}
	switch parts[0] {
	case "tx":
		field, ok := txFieldNames[parts[1]]
		if !ok {
			return TransactionsCollection{}, errs.New(errs.UnknownProperty, "unknown tx field: "+parts[1])
		}
		return TransactionsCollection{IsReceipt: false, TxField: field}, nil
	case "tx_receipt":
		field, ok := txReceiptFieldNames[parts[1]]
		if !ok {
			return TransactionsCollection{}, errs.New(errs.UnknownProperty, "unknown tx_receipt field: "+parts[1])
		}
		return TransactionsCollection{IsReceipt: true, RcptField: field}, nil
	default:
		return TransactionsCollection{}, errs.New(errs.UnknownProperty, "unknown transactions collection: "+parts[0])
	}
}

// String renders the canonical "tx.<field>" / "tx_receipt.<field>" path.
func (c TransactionsCollection) String() string {
	if c.IsReceipt {
		for name, id := range txReceiptFieldNames {
			if id == c.RcptField {
				return "tx_receipt." + name
			}
		}
		return "tx_receipt.unknown"
	}
	for name, id := range txFieldNames {
		if id == c.TxField {
			return "tx." + name
		}
	}
	return "tx.unknown"
}
