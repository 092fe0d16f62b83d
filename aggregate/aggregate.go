// Package aggregate implements the eight aggregation functions a
// ComputationalTask may request over a compiled datalake's values. The
// numeric widths are load-bearing for downstream consumers and must not be
// widened: AVG and SUM are checked against a 128-bit width, MIN/MAX
// against 64-bit, STD is computed in float64, and COUNTIF compares each
// value against its context operand with one of six operators.
package aggregate

import (
	"math"
	"math/big"

	"github.com/herodotus-xyz/data-processor/codec"
	"github.com/herodotus-xyz/data-processor/crypto"
	"github.com/herodotus-xyz/data-processor/errs"
	"github.com/herodotus-xyz/data-processor/types"
)

// Run dispatches to the aggregate function named by fn, over values (in
// compiled datalake order). ctx is required (non-nil) only for COUNTIF.
func Run(fn codec.AggregateFn, values []string, ctx *types.U256) (string, error) {
	if len(values) == 0 {
		return "", errs.New(errs.AggregateEmpty, "no values to aggregate")
	}

	switch fn {
	case codec.FnAverage:
		return Average(values)
	case codec.FnSum:
		return Sum(values)
	case codec.FnMin:
		return Min(values)
	case codec.FnMax:
		return Max(values)
	case codec.FnStdDev:
		return StdDev(values)
	case codec.FnCountIf:
		if ctx == nil {
			return "", errs.New(errs.InvalidEncoding, "countif requires a context")
		}
		return CountIf(values, *ctx)
	case codec.FnMerkle:
		return Merkle(values)
	case codec.FnBloom:
		return Bloom(values)
	default:
		return "", errs.New(errs.UnknownAggregate, "unknown aggregate function")
	}
}

const maxBits128 = 128
const maxBits64 = 64

func parseValues(values []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		n, ok := parseBigInt(v)
		if !ok {
			return nil, errs.New(errs.ValueParse, "could not parse numeric value: "+v)
		}
		out[i] = n
	}
	return out, nil
}

func parseBigInt(v string) (*big.Int, bool) {
	n := new(big.Int)
	if len(v) > 1 && (v[0:2] == "0x" || v[0:2] == "0X") {
		_, ok := n.SetString(v[2:], 16)
		return n, ok
	}
	_, ok := n.SetString(v, 10)
	return n, ok
}

// Sum returns the sum of values, checked to fit in 128 bits.
func Sum(values []string) (string, error) {
	nums, err := parseValues(values)
	if err != nil {
		return "", err
	}
	sum := new(big.Int)
	for _, n := range nums {
		sum.Add(sum, n)
	}
	if sum.BitLen() > maxBits128 {
		return "", errs.New(errs.ValueParse, "sum overflows 128 bits")
	}
	return sum.String(), nil
}

// Average returns the arithmetic mean of values, checked against the
// 128-bit sum width. The division happens in float64, not exact rational
// arithmetic: the on-chain consumers of this aggregate round through an
// f64 quotient, so for sums past 2^53 the f64 result (with its precision
// loss) is the canonical one and must be reproduced bit-for-bit.
func Average(values []string) (string, error) {
	nums, err := parseValues(values)
	if err != nil {
		return "", err
	}
	sum := new(big.Int)
	for _, n := range nums {
		sum.Add(sum, n)
	}
	if sum.BitLen() > maxBits128 {
		return "", errs.New(errs.ValueParse, "sum overflows 128 bits")
	}
	return roundHalfAwayFromZero(bigIntToFloat64(sum) / float64(len(nums))), nil
}

// CountIf counts how many values satisfy ctx's comparison operator against
// its operand, treating each value as an unsigned 64-bit integer.
func CountIf(values []string, ctx types.U256) (string, error) {
	op, operand, err := codec.ParseCountIfCtx(ctx)
	if err != nil {
		return "", err
	}
	nums, err := parseU64s(values)
	if err != nil {
		return "", err
	}

	var count uint64
	for _, n := range nums {
		if countIfMatch(op, n, operand) {
			count++
		}
	}
	return big.NewInt(0).SetUint64(count).String(), nil
}

func countIfMatch(op codec.CountIfOperator, value, operand uint64) bool {
	switch op {
	case codec.CountIfEq:
		return value == operand
	case codec.CountIfNeq:
		return value != operand
	case codec.CountIfGt:
		return value > operand
	case codec.CountIfGte:
		return value >= operand
	case codec.CountIfLt:
		return value < operand
	case codec.CountIfLte:
		return value <= operand
	default:
		return false
	}
}

// Min returns the smallest value, treated as an unsigned 64-bit integer.
func Min(values []string) (string, error) {
	nums, err := parseU64s(values)
	if err != nil {
		return "", err
	}
	min := nums[0]
	for _, n := range nums[1:] {
		if n < min {
			min = n
		}
	}
	return big.NewInt(0).SetUint64(min).String(), nil
}

// Max returns the largest value, treated as an unsigned 64-bit integer.
func Max(values []string) (string, error) {
	nums, err := parseU64s(values)
	if err != nil {
		return "", err
	}
	max := nums[0]
	for _, n := range nums[1:] {
		if n > max {
			max = n
		}
	}
	return big.NewInt(0).SetUint64(max).String(), nil
}

func parseU64s(values []string) ([]uint64, error) {
	out := make([]uint64, len(values))
	for i, v := range values {
		n, ok := parseBigInt(v)
		if !ok || n.BitLen() > maxBits64 {
			return nil, errs.New(errs.ValueParse, "value does not fit in 64 bits: "+v)
		}
		out[i] = n.Uint64()
	}
	return out, nil
}

// StdDev returns the population standard deviation of values, computed in
// float64 and rounded half-away-from-zero to the nearest integer.
func StdDev(values []string) (string, error) {
	nums, err := parseValues(values)
	if err != nil {
		return "", err
	}
	floats := make([]float64, len(nums))
	var sum float64
	for i, n := range nums {
		f := bigIntToFloat64(n)
		floats[i] = f
		sum += f
	}
	mean := sum / float64(len(floats))

	var variance float64
	for _, f := range floats {
		d := f - mean
		variance += d * d
	}
	variance /= float64(len(floats))

	return roundHalfAwayFromZero(math.Sqrt(variance)), nil
}

func bigIntToFloat64(n *big.Int) float64 {
	f := new(big.Float).SetInt(n)
	v, _ := f.Float64()
	return v
}

// roundHalfAwayFromZero rounds f to the nearest integer, ties rounding away
// from zero, and renders it as a base-10 integer string.
func roundHalfAwayFromZero(f float64) string {
	rounded := math.Floor(math.Abs(f) + 0.5)
	if f < 0 {
		rounded = -rounded
	}
	bf := new(big.Float).SetFloat64(rounded)
	i, _ := bf.Int(nil)
	return i.String()
}

// Merkle returns the sorted-pair keccak256 Merkle root over values,
// interpreted as big-endian 256-bit words (accepting both the decimal
// strings numeric fields decode to and the "0x"-prefixed hex strings
// hash/address fields decode to).
func Merkle(values []string) (string, error) {
	nums, err := parseValues(values)
	if err != nil {
		return "", err
	}
	leaves := make([]types.Hash, len(nums))
	for i, n := range nums {
		leaves[i] = types.BytesToHash(n.Bytes())
	}
	root := crypto.NewMerkleTree(leaves).Root()
	return root.Hex(), nil
}

// Bloom is a reserved aggregate id: it returns the literal placeholder "0"
// until bloom filterization lands.
func Bloom(values []string) (string, error) {
	return "0", nil
}
