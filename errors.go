package evmbridge

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors for common failure conditions.
var (
	// ErrMalformedAddress indicates a textual address is not "0x" followed by
	// exactly 40 lowercase hex characters.
	ErrMalformedAddress = errors.New("evmbridge: malformed address")

	// ErrUnresolvedMapping indicates an operation needs a token address that has
	// not been resolved yet.
	ErrUnresolvedMapping = errors.New("evmbridge: token address not resolved, fetch it first")

	// ErrRemoteCallFailed indicates the remote engine reported a non-success
	// outcome or the transport failed.
	ErrRemoteCallFailed = errors.New("evmbridge: remote call failed")

	// ErrResourceExhausted indicates the fixed budget attached to a call was
	// not enough for the engine to complete it.
	ErrResourceExhausted = errors.New("evmbridge: call budget exhausted")

	// ErrResolutionFailed indicates a token address resolution did not produce
	// an address. Nothing is written to the mapping cache.
	ErrResolutionFailed = errors.New("evmbridge: token address resolution failed")

	// ErrNotSelf indicates a privileged entry point or continuation was invoked
	// by someone other than the bridge itself.
	ErrNotSelf = errors.New("evmbridge: caller is not the bridge account")

	// ErrContinuationAttached indicates a second continuation was attached to
	// an issued call.
	ErrContinuationAttached = errors.New("evmbridge: continuation already attached")

	// ErrMappingConflict indicates a write would break the one-to-one mapping
	// between token ids and addresses.
	ErrMappingConflict = errors.New("evmbridge: mapping entry conflicts with stored entry")

	// ErrInvalidEncoding indicates a binary payload could not be decoded.
	ErrInvalidEncoding = errors.New("evmbridge: invalid encoding")

	// ErrInvalidSignature indicates a function signature could not be parsed.
	ErrInvalidSignature = errors.New("evmbridge: invalid function signature")

	// ErrArgumentCount indicates the number of arguments doesn't match the signature.
	ErrArgumentCount = errors.New("evmbridge: argument count doesn't match signature")
)

// MalformedAddressError reports the rejected input of ParseAddress.
type MalformedAddressError struct {
	Input  string
	Reason string
}

func (e *MalformedAddressError) Error() string {
	return fmt.Sprintf("evmbridge: malformed address %q: %s", e.Input, e.Reason)
}

func (e *MalformedAddressError) Unwrap() error {
	return ErrMalformedAddress
}

// UnresolvedMappingError names the token id that has no cached address.
type UnresolvedMappingError struct {
	TokenID string
}

func (e *UnresolvedMappingError) Error() string {
	return fmt.Sprintf("evmbridge: token %q has no cached address, fetch it first", e.TokenID)
}

func (e *UnresolvedMappingError) Unwrap() error {
	return ErrUnresolvedMapping
}

// RemoteCallError describes a failed remote call. Outcome keeps the exact
// failure variant reported by the engine, even though every non-success
// variant is handled the same way.
type RemoteCallError struct {
	Op      Operation
	Outcome *Outcome
	Err     error
}

func (e *RemoteCallError) Error() string {
	switch {
	case e.Outcome != nil:
		return fmt.Sprintf("evmbridge: %s failed: %s", e.Op, e.Outcome.Status)
	case e.Err != nil:
		return fmt.Sprintf("evmbridge: %s failed: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("evmbridge: %s failed", e.Op)
	}
}

// Is lets errors.Is match both ErrRemoteCallFailed and, for budget failures,
// ErrResourceExhausted.
func (e *RemoteCallError) Is(target error) bool {
	switch target {
	case ErrRemoteCallFailed:
		return true
	case ErrResourceExhausted:
		return e.Outcome != nil && e.Outcome.Status == StatusOutOfResource
	}
	return false
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// MappingConflictError reports an insert that would map a token id or an
// address twice.
type MappingConflictError struct {
	TokenID  string
	Address  common.Address
	Existing string
}

func (e *MappingConflictError) Error() string {
	return fmt.Sprintf("evmbridge: cannot map %q to %s: already mapped to %s",
		e.TokenID, FormatAddress(e.Address), e.Existing)
}

func (e *MappingConflictError) Unwrap() error {
	return ErrMappingConflict
}

// ArgumentError indicates an issue with a call argument.
type ArgumentError struct {
	Signature string
	Index     int
	Err       error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("evmbridge: argument %d for %q: %v", e.Index, e.Signature, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// TypeMismatchError indicates a value's type doesn't match the expected parameter type.
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("evmbridge: type mismatch: expected %s, got %s", e.Expected, e.Got)
}

// EncodingError indicates a failure during argument or payload encoding.
type EncodingError struct {
	Value any
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("evmbridge: encoding error for value %T: %v", e.Value, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}
