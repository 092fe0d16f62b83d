// Package fielddecoder extracts a single sampled value out of the raw RLP
// of a block header (as the indexer returns it) or of an account or storage
// leaf (from an archive node's MPT proof): the RLP is decoded once, then the
// field the caller asked for is projected out.
package fielddecoder

import (
	"math/big"

	"github.com/herodotus-xyz/data-processor/codec"
	"github.com/herodotus-xyz/data-processor/errs"
	"github.com/herodotus-xyz/data-processor/rlp"
	"github.com/herodotus-xyz/data-processor/types"
)

// headerFieldCount is the number of RLP elements a post-Cancun header
// carries: the 15 pre-EIP-1559 fields, plus base_fee_per_gas,
// withdrawals_root, blob_gas_used, excess_blob_gas and
// parent_beacon_block_root.
const headerFieldCount = 20

// DecodeHeaderField extracts one field from a block header's RLP encoding.
// Numeric fields are returned as base-10 strings; hash/address/bloom fields
// are returned as "0x"-prefixed lowercase hex. Fields introduced by a fork
// later than the header actually carries are FieldAbsent, not zero.
func DecodeHeaderField(headerRLP []byte, field codec.HeaderField) (string, error) {
	items, err := rlp.DecodeList(headerRLP)
	if err != nil {
		return "", errs.Wrap(errs.MalformedRlp, "decode header", err)
	}
	idx := int(field)
	if idx >= len(items) {
		return "", errs.New(errs.FieldAbsent, "header field not present in this block's header: "+field.String())
	}
	payload := items[idx]

	switch field {
	case codec.HeaderParentHash, codec.HeaderUnclesHash, codec.HeaderStateRoot,
		codec.HeaderTransactionsRoot, codec.HeaderReceiptsRoot, codec.HeaderMixHash,
		codec.HeaderWithdrawalsRoot, codec.HeaderParentBeaconBlockRoot:
		return hexWord(payload, types.HashLength), nil

	case codec.HeaderCoinbase:
		return hexWord(payload, types.AddressLength), nil

	case codec.HeaderLogsBloom:
		return hexWord(payload, types.BloomLength), nil

	case codec.HeaderExtraData, codec.HeaderNonce:
		return hexBytes(payload), nil

	default:
		return new(big.Int).SetBytes(payload).String(), nil
	}
}

// DecodeAccountField extracts one field from an account leaf's RLP
// encoding: the 4-element [nonce, balance, storageRoot, codeHash] list an
// MPT account proof's terminal node carries.
func DecodeAccountField(accountRLP []byte, field codec.AccountField) (string, error) {
	items, err := rlp.DecodeList(accountRLP)
	if err != nil {
		return "", errs.Wrap(errs.MalformedRlp, "decode account leaf", err)
	}
	if len(items) != 4 {
		return "", errs.New(errs.MalformedRlp, "account leaf did not decode to 4 elements")
	}
	switch field {
	case codec.AccountNonce:
		return new(big.Int).SetBytes(items[0]).String(), nil
	case codec.AccountBalance:
		return new(big.Int).SetBytes(items[1]).String(), nil
	case codec.AccountStorageRoot:
		return hexWord(items[2], types.HashLength), nil
	case codec.AccountCodeHash:
		return hexWord(items[3], types.HashLength), nil
	default:
		return "", errs.New(errs.UnknownProperty, "unknown account field")
	}
}

// DecodeStorageValue extracts the scalar value from a storage leaf's RLP
// encoding, which is a bare RLP string (not a list): the trie stores
// storage values as RLP-encoded big-endian integers.
func DecodeStorageValue(storageRLP []byte) (string, error) {
	s := rlp.NewStream(storageRLP)
	b, err := s.Bytes()
	if err != nil {
		return "", errs.Wrap(errs.MalformedRlp, "decode storage leaf", err)
	}
	return new(big.Int).SetBytes(b).String(), nil
}

// hexWord renders payload as a "0x"-prefixed, left-zero-padded hex string of
// the given byte width, matching how fixed-width RLP fields (hashes,
// addresses, bloom filters) are sampled.
func hexWord(payload []byte, width int) string {
	var buf []byte
	if len(payload) >= width {
		buf = payload[len(payload)-width:]
	} else {
		buf = make([]byte, width)
		copy(buf[width-len(payload):], payload)
	}
	return "0x" + hexEncode(buf)
}

// hexBytes renders payload as "0x"-prefixed hex at its natural length, for
// variable-width fields like extra_data and the PoW nonce.
func hexBytes(payload []byte) string {
	return "0x" + hexEncode(payload)
}

func hexEncode(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hextable[c>>4]
		out[i*2+1] = hextable[c&0xf]
	}
	return string(out)
}
