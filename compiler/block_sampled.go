package compiler

import (
	"context"

	"github.com/herodotus-xyz/data-processor/codec"
	"github.com/herodotus-xyz/data-processor/errs"
	"github.com/herodotus-xyz/data-processor/fetcher"
	"github.com/herodotus-xyz/data-processor/fielddecoder"
)

// BlockSampledCompiler compiles a BlockSampled datalake: one FetchKey per
// block in [BlockRangeStart, BlockRangeEnd] stepping by Increment, in
// ascending block order.
type BlockSampledCompiler struct {
	Datalake codec.BlockSampledDatalake
}

// FetchPlan enumerates the block range and returns one FetchKey per block,
// shaped by the sampled property's kind (header/account/storage).
func (c BlockSampledCompiler) FetchPlan(ctx context.Context, _ BlockCountResolver) ([]fetcher.FetchKey, error) {
	d := c.Datalake
	if d.Increment == 0 {
		return nil, errs.New(errs.InvalidEncoding, "block_sampled increment must be nonzero")
	}
	if d.BlockRangeEnd < d.BlockRangeStart {
		return nil, errs.New(errs.InvalidEncoding, "block_sampled range end precedes start")
	}

	var keys []fetcher.FetchKey
	for block := d.BlockRangeStart; block <= d.BlockRangeEnd; block += d.Increment {
		switch d.Property.Kind {
		case codec.KindHeader:
			keys = append(keys, fetcher.HeaderKey(block))
		case codec.KindAccount:
			keys = append(keys, fetcher.AccountKey(block, d.Property.Address))
		case codec.KindStorage:
			keys = append(keys, fetcher.StorageKey(block, d.Property.Address, d.Property.Slot))
		default:
			return nil, errs.New(errs.UnknownProperty, "unknown sampled property kind")
		}
	}
	return keys, nil
}

// DecodeValue projects the sampled field out of each result, in block
// order.
func (c BlockSampledCompiler) DecodeValue(results []fetcher.Result) ([]string, error) {
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

func (c BlockSampledCompiler) decodeOne(r fetcher.Result) (string, error) {
	prop := c.Datalake.Property
	switch prop.Kind {
	case codec.KindHeader:
		if r.Header == nil {
			return "", errs.New(errs.FieldAbsent, "header result missing")
		}
		return fielddecoder.DecodeHeaderField(r.Header.RLP, prop.HeaderField)

	case codec.KindAccount:
		if r.Account == nil {
			return "", errs.New(errs.NoAccount, "account result missing")
		}
		return fielddecoder.DecodeAccountField(r.Account.Account.LeafRLP, prop.AccountProp)

	case codec.KindStorage:
		if r.Storage == nil {
			return "", errs.New(errs.NoStorage, "storage result missing")
		}
		return fielddecoder.DecodeStorageValue(r.Storage.Storage.LeafRLP)

	default:
		return "", errs.New(errs.UnknownProperty, "unknown sampled property kind")
	}
}
