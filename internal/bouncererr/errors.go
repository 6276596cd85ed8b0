// Package bouncererr defines the error taxonomy surfaced by the admission
// core: TransportError, ScriptMissing, Uninitialized, and InvalidArgument.
// Every defensive branch in the atomic scripts has a defined fallback, so
// none of these represent a Lua-side panic -- they classify failures at the
// Redis/client boundary.
package bouncererr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the four error classes from the admission core's
// error handling design.
type Kind int

const (
	// KindTransport covers backing-store connection or timeout failures.
	// Not retried inside the core; callers typically fail open or serve a
	// cached waiting page.
	KindTransport Kind = iota
	// KindScriptMissing means the backing store was flushed and the
	// cached script digest is stale. The admission client reloads the
	// script and retries once before surfacing KindTransport.
	KindScriptMissing
	// KindUninitialized means check_sync_keys reported missing
	// configuration keys. The client reseeds from configuration and
	// retries once.
	KindUninitialized
	// KindInvalidArgument covers a capacity or flag value that failed to
	// parse where no defined fallback applies (a programmer error, not a
	// runtime condition).
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindScriptMissing:
		return "script_missing"
	case KindUninitialized:
		return "uninitialized"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with one of the four classified kinds.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err as a classified Error for operation op. A nil err returns
// nil, so New can be used directly in an assignment-and-check idiom.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err is a classified Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// Sentinel errors for conditions that do not wrap a lower-level cause.
var (
	// ErrStoreCapacityOutOfRange is returned when an explicit
	// SetStoreCapacity call is given a value below -1. This is distinct
	// from a script reading a missing or unparseable :store_capacity key,
	// which falls back to unbounded rather than erroring.
	ErrStoreCapacityOutOfRange = errors.New("store capacity out of range")
	// ErrQueueEnabledOutOfRange is returned when SetQueueEnabledRaw is
	// given a value other than 0, 1, true or false (case-insensitive).
	ErrQueueEnabledOutOfRange = errors.New("queue enabled flag out of range")
)
