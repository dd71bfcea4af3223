package types

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownBlock is returned when a block number newer than the newest
	// recorded block is requested.
	ErrUnknownBlock = errors.New("UNKNOWN_BLOCK")
	// ErrInvalidBlockTag rejects block identifiers other than a number or
	// "latest".
	ErrInvalidBlockTag = errors.New("invalid block tag")
	// ErrNotFound classifies missing persisted records on lookup paths.
	ErrNotFound = errors.New("not found")
	// ErrUnsupported classifies recognised but unmodelled precompile calls.
	ErrUnsupported = errors.New("not supported")
	// ErrInternal classifies fatal conditions: malformed persisted data,
	// interpreter failures, non-deterministic replays.
	ErrInternal = errors.New("internal error")
	// ErrReverted is the classification of domain reverts surfaced as errors.
	ErrReverted = errors.New("execution reverted")
)

// UnknownBlockError names the requested and newest block numbers.
type UnknownBlockError struct {
	Requested uint64
	Latest    uint64
}

func (e *UnknownBlockError) Error() string {
	return fmt.Sprintf("%s: block %d is newer than latest block %d", ErrUnknownBlock, e.Requested, e.Latest)
}

func (e *UnknownBlockError) Unwrap() error { return ErrUnknownBlock }

// NotFoundKind names the kind of record that was missing.
type NotFoundKind string

const (
	NotFoundTransaction             NotFoundKind = "transaction"
	NotFoundContractResult          NotFoundKind = "contract result"
	NotFoundContractTransactionHash NotFoundKind = "contract transaction hash"
	NotFoundEthereumTransaction     NotFoundKind = "ethereum transaction"
	NotFoundBlock                   NotFoundKind = "block"
)

// NotFoundError reports the specific identifier that could not be found.
type NotFoundError struct {
	Kind NotFoundKind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// UnsupportedError names the precompile operation that is not modelled.
type UnsupportedError struct {
	Operation string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("precompile operation %s %s", e.Operation, ErrUnsupported)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

// ConsistencyError reports a mismatch between a replay and persisted data.
type ConsistencyError struct {
	Detail string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInternal, e.Detail)
}

func (e *ConsistencyError) Unwrap() error { return ErrInternal }

// RevertError carries a domain revert out of APIs that return a scalar, such
// as gas estimation.
type RevertError struct {
	Reason string
	Data   []byte
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return ErrReverted.Error()
	}
	return fmt.Sprintf("%s: %s", ErrReverted, e.Reason)
}

func (e *RevertError) Unwrap() error { return ErrReverted }

// Internalf builds a fatal error wrapping ErrInternal.
func Internalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}
