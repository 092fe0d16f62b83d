// Package compiler turns a decoded datalake into a concrete fetch plan and
// knows how to project the sampled field's value back out of whatever the
// fetcher returned for each planned key. Each datalake variant implements a
// closed capability set rather than carrying a dynamic list of
// per-datapoint callables (see DESIGN.md).
package compiler

import (
	"context"
	"fmt"

	"github.com/herodotus-xyz/data-processor/codec"
	"github.com/herodotus-xyz/data-processor/errs"
	"github.com/herodotus-xyz/data-processor/fetcher"
)

// Compilable is the capability every datalake variant implements: plan the
// fetches it needs, then decode each planned key's fetched value once the
// Fetcher has resolved it.
type Compilable interface {
	// FetchPlan returns the ordered FetchKeys this datalake needs resolved.
	// Order matters: DecodeValue is given results in the same order.
	FetchPlan(ctx context.Context, resolve BlockCountResolver) ([]fetcher.FetchKey, error)

	// DecodeValue projects the sampled field's value out of the Fetcher's
	// results, in the order FetchPlan produced its keys. Returns one decimal
	// or hex string per result, the compiled datalake's "values" column.
	DecodeValue(results []fetcher.Result) ([]string, error)
}

// BlockCountResolver resolves how many transactions a block has, needed to
// expand a TransactionsInBlock datalake's plan before the Fetcher runs: the
// datalake only names a block and an increment, not the transaction count.
type BlockCountResolver interface {
	TransactionCount(ctx context.Context, block uint64) (uint64, error)
}

// Compile returns the Compilable capability for a decoded datalake.
func Compile(dl codec.Datalake) (Compilable, error) {
	switch dl.Kind {
	case codec.DatalakeBlockSampled:
		return BlockSampledCompiler{Datalake: dl.BlockSampled}, nil
	case codec.DatalakeTransactionsInBlock:
		return TransactionsInBlockCompiler{Datalake: dl.Transactions}, nil
	case codec.DatalakeDynamicLayout:
		return nil, errs.New(errs.InvalidEncoding, "DynamicLayout datalakes are decode-only and cannot be compiled")
	default:
		return nil, errs.New(errs.InvalidEncoding, fmt.Sprintf("unknown datalake kind %d", dl.Kind))
	}
}
