package codec

import (
	"github.com/herodotus-xyz/data-processor/errs"
)

// MaxBatchSize bounds how many tasks or datalakes a single encoded batch may
// contain, guarding against a malicious or malformed payload forcing
// unbounded allocation.
const MaxBatchSize = 1 << 16

// DecodeTasks decodes the outer "bytes[]" container into one ComputationalTask
// per element, in order.
func DecodeTasks(encoded []byte) ([]ComputationalTask, error) {
	elements, err := unpackBytesArray(encoded)
	if err != nil {
		return nil, err
	}
	tasks := make([]ComputationalTask, len(elements))
	for i, elem := range elements {
		task, err := DecodeTask(elem)
		if err != nil {
			return nil, err
		}
		tasks[i] = task
	}
	return tasks, nil
}

// DecodeDatalakes decodes the outer "bytes[]" container into one Datalake
// per element, in order.
func DecodeDatalakes(encoded []byte) ([]Datalake, error) {
	elements, err := unpackBytesArray(encoded)
	if err != nil {
		return nil, err
	}
	datalakes := make([]Datalake, len(elements))
	for i, elem := range elements {
		dl, err := DecodeDatalake(elem)
		if err != nil {
			return nil, err
		}
		datalakes[i] = dl
	}
	return datalakes, nil
}

// EncodeTasks ABI-encodes a slice of ComputationalTasks as one "bytes[]"
// batch, the inverse of DecodeTasks.
func EncodeTasks(tasks []ComputationalTask) ([]byte, error) {
	elements := make([][]byte, len(tasks))
	for i, t := range tasks {
		encoded, err := EncodeTask(t)
		if err != nil {
			return nil, err
		}
		elements[i] = encoded
	}
	return EncodeBytesArray(elements)
}

// EncodeDatalakes ABI-encodes a slice of Datalakes as one "bytes[]" batch,
// the inverse of DecodeDatalakes.
func EncodeDatalakes(datalakes []Datalake) ([]byte, error) {
	elements := make([][]byte, len(datalakes))
	for i, d := range datalakes {
		encoded, err := EncodeDatalake(d)
		if err != nil {
			return nil, err
		}
		elements[i] = encoded
	}
	return EncodeBytesArray(elements)
}

// EncodeBytesArray wraps a set of already-encoded tuple elements into the
// outer "bytes[]" container.
func EncodeBytesArray(elements [][]byte) ([]byte, error) {
	encoded, err := bytesArrayArguments.Pack(elements)
	if err != nil {
		return nil, wrapInvalidEncoding("encode bytes[] batch", err)
	}
	return encoded, nil
}

func unpackBytesArray(encoded []byte) ([][]byte, error) {
	values, err := bytesArrayArguments.Unpack(encoded)
	if err != nil {
		return nil, wrapInvalidEncoding("decode bytes[] batch", err)
	}
	if len(values) != 1 {
		return nil, errs.New(errs.ArityMismatch, "bytes[] batch did not unpack to exactly one value")
	}
	elements, ok := values[0].([][]byte)
	if !ok {
		return nil, errs.New(errs.InvalidEncoding, "bytes[] batch element has unexpected type")
	}
	if len(elements) > MaxBatchSize {
		return nil, errs.New(errs.ArityMismatch, "batch exceeds maximum size")
	}
	return elements, nil
}
