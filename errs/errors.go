// Package errs defines the error taxonomy shared by every component of the
// evaluation pipeline. No exceptions traverse package boundaries: every
// fallible operation returns a *Error carrying one of the Kinds below plus a
// human-readable context string.
package errs

import "fmt"

// Kind enumerates the fixed error taxonomy.
type Kind string

const (
	InvalidEncoding   Kind = "InvalidEncoding"
	ArityMismatch     Kind = "ArityMismatch"
	UnknownProperty   Kind = "UnknownProperty"
	UnknownAggregate  Kind = "UnknownAggregate"
	FieldAbsent       Kind = "FieldAbsent"
	MalformedRlp      Kind = "MalformedRlp"
	Transport         Kind = "Transport"
	IndexerEmpty      Kind = "IndexerEmpty"
	IndexerAmbiguous  Kind = "IndexerAmbiguous"
	NoAccount         Kind = "NoAccount"
	NoStorage         Kind = "NoStorage"
	ValueParse        Kind = "ValueParse"
	AggregateEmpty    Kind = "AggregateEmpty"
)

// Error is the single error type returned across component boundaries.
type Error struct {
	Kind    Kind
	Context string
	Err     error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Context, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Context)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an *Error with no wrapped cause.
func New(kind Kind, context string) *Error {
	return &Error{Kind: kind, Context: context}
}

// Wrap creates an *Error wrapping an underlying cause.
func Wrap(kind Kind, context string, err error) *Error {
	return &Error{Kind: kind, Context: context, Err: err}
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if e2, ok := err.(*Error); ok {
		e = e2
		return e.Kind == kind
	}
	return false
}

// Retryable reports whether the error kind is one the caller may retry
// (currently only Transport).
func Retryable(err error) bool {
	return Is(err, Transport)
}
