package resilience

import (
	"errors"
	"fmt"
)

// Sentinel errors for resilience operations.
var (
	// ErrRateLimitExceeded is returned when the client-side rate limit is exceeded.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrTimeout is returned when a single attempt runs past its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")

	// ErrNilOperation is returned when a nil operation is passed to Execute or Map.
	ErrNilOperation = errors.New("resilience: operation is nil")
)

// FailureKind classifies a transient remote failure. Each kind has its own
// retry budget.
type FailureKind int

const (
	// KindNone means the error is not transient and must not be retried.
	KindNone FailureKind = iota
	// KindRateLimit means the remote service rejected the call for rate reasons.
	KindRateLimit
	// KindTimeout means the call did not complete in time.
	KindTimeout
	// KindUnavailable means the remote service was temporarily unavailable.
	KindUnavailable
)

// String returns the string representation of the kind.
func (k FailureKind) String() string {
	switch k {
	case KindRateLimit:
		return "rate_limit"
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	default:
		return "none"
	}
}

// TransientError marks a remote failure that may succeed when retried.
type TransientError struct {
	Kind FailureKind
	Err  error
}

// Transient wraps err as a transient failure of the given kind.
// A nil err yields nil.
func Transient(kind FailureKind, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Kind: kind, Err: err}
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("resilience: transient %s failure: %v", e.Kind, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError marks a remote failure that must never be retried.
type PermanentError struct {
	Err error
}

// Permanent wraps err as a permanent failure. A nil err yields nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err, or KindNone if err is nil, permanent
// or unclassified. A per-attempt timeout (ErrTimeout) counts as KindTimeout.
func KindOf(err error) FailureKind {
	if err == nil {
		return KindNone
	}
	var perm *PermanentError
	if errors.As(err, &perm) {
		return KindNone
	}
	var te *TransientError
	if errors.As(err, &te) {
		return te.Kind
	}
	if errors.Is(err, ErrTimeout) {
		return KindTimeout
	}
	return KindNone
}

// IsTransient reports whether err would be retried by the default classifier.
func IsTransient(err error) bool {
	return KindOf(err) != KindNone
}
