package codec

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/herodotus-xyz/data-processor/crypto"
	"github.com/herodotus-xyz/data-processor/errs"
	"github.com/herodotus-xyz/data-processor/types"
)

// AggregateFn identifies an aggregation function by its wire string id.
type AggregateFn string

const (
	FnAverage AggregateFn = "avg"
	FnSum     AggregateFn = "sum"
	FnMin     AggregateFn = "min"
	FnMax     AggregateFn = "max"
	FnStdDev  AggregateFn = "std"
	FnCountIf AggregateFn = "countif"
	FnMerkle  AggregateFn = "merkle"
	FnBloom   AggregateFn = "bloom"
)

var knownAggregateFns = map[AggregateFn]bool{
	FnAverage: true, FnSum: true, FnMin: true, FnMax: true,
	FnStdDev: true, FnCountIf: true, FnMerkle: true, FnBloom: true,
}

// CountIfOperator identifies the comparison COUNTIF applies to each decoded
// value against its context operand.
type CountIfOperator byte

const (
	CountIfEq CountIfOperator = iota
	CountIfNeq
	CountIfGt
	CountIfGte
	CountIfLt
	CountIfLte
)

// ComputationalTask names an aggregate function and, for COUNTIF, its
// comparison context. A task carries no reference to its own datalake: a
// batch's Nth task is evaluated against the Nth datalake of the
// accompanying batch, paired by position (see DESIGN.md).
type ComputationalTask struct {
	Fn  AggregateFn
	Ctx *types.U256

	raw []byte
}

type taskTuple struct {
	AggregateFnId  [32]byte
	AggregateFnCtx []byte
}

// DecodeTask decodes a single ABI-encoded ComputationalTask tuple.
func DecodeTask(encoded []byte) (ComputationalTask, error) {
	var t taskTuple
	if err := unpackInto(taskArguments, &t, encoded, "decode task"); err != nil {
		return ComputationalTask{}, err
	}

	fnID := strings.ToLower(trimTrailingZeros(t.AggregateFnId[:]))
	fn := AggregateFn(fnID)
	if !knownAggregateFns[fn] {
		return ComputationalTask{}, errs.New(errs.UnknownAggregate, "unknown aggregate_fn_id: "+fnID)
	}

	var ctx *types.U256
	if len(t.AggregateFnCtx) > 0 {
		u := types.HexToU256(ctxHex(t.AggregateFnCtx))
		ctx = &u
	}
	if fn == FnCountIf && ctx == nil {
		return ComputationalTask{}, errs.New(errs.InvalidEncoding, "countif requires an aggregate_fn_ctx")
	}

	return ComputationalTask{
		Fn:  fn,
		Ctx: ctx,
		raw: encoded,
	}, nil
}

// EncodeTask ABI-encodes a ComputationalTask tuple.
func EncodeTask(t ComputationalTask) ([]byte, error) {
	var ctxBytes []byte
	if t.Ctx != nil {
		b := t.Ctx.Bytes32()
		ctxBytes = b[:]
	}
	var fnID [32]byte
	copy(fnID[:], t.Fn)
	encoded, err := taskArguments.Pack(fnID, ctxBytes)
	if err != nil {
		return nil, wrapInvalidEncoding("encode task", err)
	}
	return encoded, nil
}

// trimTrailingZeros strips the NUL padding a bytes32-encoded identifier
// carries once it's shorter than 32 bytes.
func trimTrailingZeros(b []byte) string {
	i := len(b)
	for i > 0 && b[i-1] == 0 {
		i--
	}
	return string(b[:i])
}

// Commit returns the keccak256 commitment of the task's original encoding.
// It is not the tasks_root leaf: that leaf is keccak256 of the datalake's
// Commit followed by the task's Raw encoding.
func (t ComputationalTask) Commit() types.Hash {
	return crypto.Keccak256Hash(t.raw)
}

// Raw returns the task's original ABI-encoded bytes.
func (t ComputationalTask) Raw() []byte { return t.raw }

// MarshalJSON renders the task's function id, its context (omitted when
// absent) and, for decoded tasks, the wire commitment.
func (t ComputationalTask) MarshalJSON() ([]byte, error) {
	out := map[string]any{"aggregate_fn_id": string(t.Fn)}
	if t.Ctx != nil {
		out["aggregate_fn_ctx"] = t.Ctx.Hex()
	}
	if t.raw != nil {
		out["commitment"] = t.Commit().Hex()
	}
	return json.Marshal(out)
}

// ParseCountIfCtx splits a COUNTIF context value into its comparison
// operator and operand. The wire scalar's minimal hex digit string is the
// concatenation "op(2 hex chars) + operand(hex)": take the scalar's
// shortest hex representation, left-pad with zeros to an even length of at
// least 4 digits, then the first byte is the operator and the remainder is
// the operand, regardless of the operand's width.
//
// The encoding is inherently ambiguous once carried as a numeric: leading
// operand zeros are significant (ctx 0x0000000000a means EQ 10) but a
// scalar cannot preserve them, so a nonzero operator followed by an
// odd-length operand shifts a nibble into the operator position — (GT, 0x5)
// arrives as 0x25 and reconstructs as (EQ, 0x25). Producers must zero-pad
// the operand to an even hex width; shifted encodings whose first byte
// lands outside the operator range are at least rejected below rather
// than misread.
func ParseCountIfCtx(ctx types.U256) (CountIfOperator, uint64, error) {
	h := strings.TrimPrefix(ctx.Hex(), "0x")
	if len(h)%2 != 0 {
		h = "0" + h
	}
	for len(h) < 4 {
		h = "00" + h
	}

	opByte, err := strconv.ParseUint(h[:2], 16, 8)
	if err != nil {
		return 0, 0, errs.Wrap(errs.InvalidEncoding, "parse countif operator", err)
	}
	op := CountIfOperator(opByte)
	if op > CountIfLte {
		return 0, 0, errs.New(errs.InvalidEncoding, "unknown countif operator")
	}

	operand, err := strconv.ParseUint(h[2:], 16, 64)
	if err != nil {
		return 0, 0, errs.Wrap(errs.InvalidEncoding, "parse countif operand", err)
	}
	return op, operand, nil
}

func ctxHex(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hextable[c>>4]
		out[i*2+1] = hextable[c&0xf]
	}
	return "0x" + string(out)
}
