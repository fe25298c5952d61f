package authkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/platefeed/authkit/internal/retry"
)

// ErrorKind is the closed classification of provider and profile-store
// failures. Implementations of [IdentityProvider] and [ProfileStore] attach
// a kind via [ProviderError] so callers branch on an enum instead of
// matching error strings.
type ErrorKind uint8

const (
	// KindUnknown is an exported constant or variable used by the session lifecycle manager.
	KindUnknown ErrorKind = iota
	// KindNetwork is an exported constant or variable used by the session lifecycle manager.
	KindNetwork
	// KindTimeout is an exported constant or variable used by the session lifecycle manager.
	KindTimeout
	// KindCredential is an exported constant or variable used by the session lifecycle manager.
	KindCredential
	// KindConflict is an exported constant or variable used by the session lifecycle manager.
	KindConflict
	// KindNotFound is an exported constant or variable used by the session lifecycle manager.
	KindNotFound
)

// String returns the snake_case name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindCredential:
		return "credential"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// ProviderError wraps a failure from an external collaborator with a typed
// [ErrorKind] and the operation that produced it.
type ProviderError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Error describes the error operation and its observable behavior.
func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap describes the unwrap operation and its observable behavior.
func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewProviderError creates a [ProviderError] with the given kind, operation
// name, and underlying cause (which may be nil).
func NewProviderError(kind ErrorKind, op string, err error) *ProviderError {
	return &ProviderError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the [ErrorKind] of err. Timeout errors produced by the
// retry executor and context deadlines map to [KindTimeout]; profile
// row-not-found maps to [KindNotFound]; anything unclassified is
// [KindUnknown].
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, retry.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, ErrProfileNotFound) {
		return KindNotFound
	}
	return KindUnknown
}

// IsTransient reports whether err is a network or timeout failure, the class
// that gets retried and then degraded rather than surfaced as a hard failure.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindTimeout:
		return true
	default:
		return false
	}
}
