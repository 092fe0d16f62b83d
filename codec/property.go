package codec

import (
	"fmt"
	"strings"

	"github.com/herodotus-xyz/data-processor/errs"
	"github.com/herodotus-xyz/data-processor/types"
)

// propertyKind is the first byte of a BlockSampled sampled_property payload.
type propertyKind byte

const (
	propertyKindHeader  propertyKind = 1
	propertyKindAccount propertyKind = 2
	propertyKindStorage propertyKind = 3
)

// HeaderField enumerates header properties, in RLP field order. The value is
// the wire field-id used in the packed sampled_property encoding.
type HeaderField byte

const (
	HeaderParentHash HeaderField = iota
	HeaderUnclesHash
	HeaderCoinbase
	HeaderStateRoot
	HeaderTransactionsRoot
	HeaderReceiptsRoot
	HeaderLogsBloom
	HeaderDifficulty
	HeaderNumber
	HeaderGasLimit
	HeaderGasUsed
	HeaderTimestamp
	HeaderExtraData
	HeaderMixHash
	HeaderNonce
	HeaderBaseFeePerGas
	HeaderWithdrawalsRoot
	HeaderBlobGasUsed
	HeaderExcessBlobGas
	HeaderParentBeaconBlockRoot
)

var headerFieldNames = map[string]HeaderField{
	"parent_hash":              HeaderParentHash,
	"uncles_hash":              HeaderUnclesHash,
	"coinbase":                 HeaderCoinbase,
	"state_root":               HeaderStateRoot,
	"transactions_root":        HeaderTransactionsRoot,
	"receipts_root":            HeaderReceiptsRoot,
	"logs_bloom":               HeaderLogsBloom,
	"difficulty":               HeaderDifficulty,
	"number":                   HeaderNumber,
	"gas_limit":                HeaderGasLimit,
	"gas_used":                 HeaderGasUsed,
	"timestamp":                HeaderTimestamp,
	"extra_data":               HeaderExtraData,
	"mix_hash":                 HeaderMixHash,
	"nonce":                    HeaderNonce,
	"base_fee_per_gas":         HeaderBaseFeePerGas,
	"withdrawals_root":         HeaderWithdrawalsRoot,
	"blob_gas_used":            HeaderBlobGasUsed,
	"excess_blob_gas":          HeaderExcessBlobGas,
	"parent_beacon_block_root": HeaderParentBeaconBlockRoot,
}

var headerFieldStrings = func() map[HeaderField]string {
	m := make(map[HeaderField]string, len(headerFieldNames))
	for name, id := range headerFieldNames {
		m[id] = name
	}
	return m
}()

// String returns the "header.<field>" path component for a HeaderField.
func (f HeaderField) String() string {
	if s, ok := headerFieldStrings[f]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%d)", f)
}

// PropertyKindHeader/Account/Storage identify the sampled property variant
// of a BlockSampled datalake.
type PropertyKind int

const (
	KindHeader PropertyKind = iota
	KindAccount
	KindStorage
)

// SampledProperty is the decoded form of a BlockSampled datalake's sampled
// property: either a header field, an account field at an address, or a
// storage slot at an address.
type SampledProperty struct {
	Kind        PropertyKind
	HeaderField HeaderField
	Address     types.Address
	AccountProp AccountField
	Slot        types.Hash
}

// AccountField enumerates account-state properties.
type AccountField byte

const (
	AccountNonce AccountField = iota
	AccountBalance
	AccountStorageRoot
	AccountCodeHash
)

var accountFieldNames = map[string]AccountField{
	"nonce":        AccountNonce,
	"balance":      AccountBalance,
	"storage_root": AccountStorageRoot,
	"code_hash":    AccountCodeHash,
}

var accountFieldStrings = func() map[AccountField]string {
	m := make(map[AccountField]string, len(accountFieldNames))
	for name, id := range accountFieldNames {
		m[id] = name
	}
	return m
}()

func (f AccountField) String() string {
	if s, ok := accountFieldStrings[f]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%d)", f)
}

// String renders the canonical "header.<field>" / "account.<addr>.<field>" /
// "storage.<addr>.<slot>" path for a SampledProperty.
func (p SampledProperty) String() string {
	switch p.Kind {
	case KindHeader:
		return "header." + p.HeaderField.String()
	case KindAccount:
		return "account." + p.Address.Hex() + "." + p.AccountProp.String()
	case KindStorage:
		return "storage." + p.Address.Hex() + "." + p.Slot.Hex()
	default:
		return "unknown"
	}
}

// ParseSampledProperty parses a "header.<field>" / "account.<addr>.<field>" /
// "storage.<addr>.<slot>" path string into a SampledProperty.
func ParseSampledProperty(s string) (SampledProperty, error) {
	parts := strings.SplitN(s, ".", 3)
	if len(parts) < 2 {
		return SampledProperty{}, errs.New(errs.UnknownProperty, "malformed property path: "+s)
	}
	switch parts[0] {
	case "header":
		if len(parts) != 2 {
			return SampledProperty{}, errs.New(errs.UnknownProperty, "malformed header property: "+s)
		}
		field, ok := headerFieldNames[parts[1]]
		if !ok {
			return SampledProperty{}, errs.New(errs.UnknownProperty, "unknown header field: "+parts[1])
		}
		return SampledProperty{Kind: KindHeader, HeaderField: field}, nil

	case "account":
		if len(parts) != 3 {
			return SampledProperty{}, errs.New(errs.UnknownProperty, "malformed account property: "+s)
		}
		addr, err := parseAddress(parts[1])
		if err != nil {
			return SampledProperty{}, err
		}
		field, ok := accountFieldNames[parts[2]]
		if !ok {
			return SampledProperty{}, errs.New(errs.UnknownProperty, "unknown account field: "+parts[2])
		}
		return SampledProperty{Kind: KindAccount, Address: addr, AccountProp: field}, nil

	case "storage":
		if len(parts) != 3 {
			return SampledProperty{}, errs.New(errs.UnknownProperty, "malformed storage property: "+s)
		}
		addr, err := parseAddress(parts[1])
		if err != nil {
			return SampledProperty{}, err
		}
		slotBytes := types.FromHex(parts[2])
		if len(slotBytes) == 0 || len(slotBytes) > 32 {
			return SampledProperty{}, errs.New(errs.UnknownProperty, "malformed storage slot: "+parts[2])
		}
		return SampledProperty{Kind: KindStorage, Address: addr, Slot: types.BytesToHash(slotBytes)}, nil

	default:
		return SampledProperty{}, errs.New(errs.UnknownProperty, "unknown property collection: "+parts[0])
	}
}

func parseAddress(s string) (types.Address, error) {
	b := types.FromHex(s)
	if len(b) != types.AddressLength {
		return types.Address{}, errs.New(errs.UnknownProperty, "malformed address: "+s)
	}
	return types.BytesToAddress(b), nil
}

// packSampledProperty serializes a SampledProperty into the wire's packed
// byte form: [kind_tag][field-id or address/slot bytes].
func packSampledProperty(p SampledProperty) []byte {
	switch p.Kind {
	case KindHeader:
		return []byte{byte(propertyKindHeader), byte(p.HeaderField)}
	case KindAccount:
		buf := make([]byte, 0, 1+types.AddressLength+1)
		buf = append(buf, byte(propertyKindAccount))
		buf = append(buf, p.Address.Bytes()...)
		buf = append(buf, byte(p.AccountProp))
		return buf
	case KindStorage:
		buf := make([]byte, 0, 1+types.AddressLength+types.HashLength)
		buf = append(buf, byte(propertyKindStorage))
		buf = append(buf, p.Address.Bytes()...)
		buf = append(buf, p.Slot.Bytes()...)
		return buf
	default:
		return nil
	}
}

// unpackSampledProperty parses the wire's packed byte form back into a
// SampledProperty.
func unpackSampledProperty(b []byte) (SampledProperty, error) {
	if len(b) < 2 {
		return SampledProperty{}, errs.New(errs.InvalidEncoding, "sampled_property too short")
	}
	switch propertyKind(b[0]) {
	case propertyKindHeader:
		if len(b) != 2 {
			return SampledProperty{}, errs.New(errs.InvalidEncoding, "malformed header sampled_property")
		}
		field := HeaderField(b[1])
		if _, ok := headerFieldStrings[field]; !ok {
			return SampledProperty{}, errs.New(errs.InvalidEncoding, "unknown header field-id")
		}
		return SampledProperty{Kind: KindHeader, HeaderField: field}, nil
	case propertyKindAccount:
		if len(b) != 1+types.AddressLength+1 {
			return SampledProperty{}, errs.New(errs.InvalidEncoding, "malformed account sampled_property")
		}
		addr := types.BytesToAddress(b[1 : 1+types.AddressLength])
		field := AccountField(b[len(b)-1])
		if _, ok := accountFieldStrings[field]; !ok {
			return SampledProperty{}, errs.New(errs.InvalidEncoding, "unknown account field-id")
		}
		return SampledProperty{Kind: KindAccount, Address: addr, AccountProp: field}, nil
	case propertyKindStorage:
		if len(b) != 1+types.AddressLength+types.HashLength {
			return SampledProperty{}, errs.New(errs.InvalidEncoding, "malformed storage sampled_property")
		}
		addr := types.BytesToAddress(b[1 : 1+types.AddressLength])
		slot := types.BytesToHash(b[1+types.AddressLength:])
		return SampledProperty{Kind: KindStorage, Address: addr, Slot: slot}, nil
	default:
		return SampledProperty{}, errs.New(errs.InvalidEncoding, "unknown sampled_property kind")
	}
}
