package gateway

import (
	"errors"
	"fmt"
)

// Kind distinguishes why a gateway call failed.
type Kind int

const (
	// TransportFailure covers network errors, non-2xx provider answers and
	// canceled calls.
	TransportFailure Kind = iota + 1
	// MalformedResponse means the payload did not parse or did not match
	// the declared schema.
	MalformedResponse
)

func (k Kind) String() string {
	switch k {
	case TransportFailure:
		return "transport failure"
	case MalformedResponse:
		return "malformed response"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is.
var (
	ErrTransport = errors.New("gateway: transport failure")
	ErrMalformed = errors.New("gateway: malformed response")
)

// Error is the single error type returned by Gateway operations.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == TransportFailure
	case ErrMalformed:
		return e.Kind == MalformedResponse
	}
	return false
}

func transport(op string, err error) error {
	return &Error{Op: op, Kind: TransportFailure, Err: err}
}

func malformed(op string, err error) error {
	return &Error{Op: op, Kind: MalformedResponse, Err: err}
}

// SchemaError reports the first structural mismatch found in a payload.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "schema: " + e.Reason
	}
	return fmt.Sprintf("schema: %s: %s", e.Path, e.Reason)
}
