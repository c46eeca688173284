package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the booking core. Handlers and callers classify
// outcomes with errors.Is; see Kind for the user-facing taxonomy.
var (
	// ErrLockContention means another holder owns the lock and the bounded
	// retry budget ran out. Retryable at a higher level.
	ErrLockContention = errors.New("lock is held by another owner")

	// ErrSeatUnavailable means the seat is held or confirmed by a different
	// booking. The caller must pick different seats.
	ErrSeatUnavailable = errors.New("seat is not available")

	// ErrHoldExpired means the hold's deadline passed before the operation
	// completed. The booking flow must be restarted.
	ErrHoldExpired = errors.New("seat hold has expired")

	// ErrIdempotencyInProgress means another request with the same key is
	// still running. The client should retry after a short delay.
	ErrIdempotencyInProgress = errors.New("request with this idempotency key is in progress")

	// ErrIdempotencyConflict means the key was reused with a different
	// payload. Rejected, never merged.
	ErrIdempotencyConflict = errors.New("idempotency key reused with different parameters")

	ErrBookingNotFound = errors.New("booking not found")
	ErrSeatNotFound    = errors.New("seat not found")

	// ErrVersionConflict is the optimistic-concurrency failure from storage.
	// Under a correctly held lock it should not occur.
	ErrVersionConflict = errors.New("stale version")
)

// InfrastructureError wraps failures of the lock store, idempotency store
// or durable storage. Distinguished from contention so the orchestrator can
// retry with backoff and then surface service-unavailable.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("infrastructure failure in %s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// Infra wraps err as an InfrastructureError. Returns nil for a nil err.
func Infra(op string, err error) error {
	if err == nil {
		return nil
	}
	return &InfrastructureError{Op: op, Err: err}
}

// IsInfrastructure reports whether err is (or wraps) an InfrastructureError.
func IsInfrastructure(err error) bool {
	var ie *InfrastructureError
	return errors.As(err, &ie)
}

// InvalidTransitionError is a defect-class error: an action was attempted
// from a booking state that does not permit it. It always carries full
// context and is never swallowed.
type InvalidTransitionError struct {
	BookingID int64
	Action    string
	From      string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: action %q not allowed for booking %d in state %q",
		e.Action, e.BookingID, e.From)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var te *InvalidTransitionError
	return errors.As(err, &te)
}

// Kind buckets an error into the user-facing taxonomy.
type Kind string

const (
	KindContention     Kind = "contention"
	KindUnavailable    Kind = "unavailable"
	KindExpired        Kind = "expired"
	KindConflict       Kind = "conflict"
	KindInProgress     Kind = "in_progress"
	KindInfrastructure Kind = "infrastructure"
	KindInvalidState   Kind = "invalid_state"
	KindNotFound       Kind = "not_found"
	KindUnknown        Kind = "unknown"
)

// Classify maps err to its Kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrLockContention):
		return KindContention
	case errors.Is(err, ErrSeatUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrHoldExpired):
		return KindExpired
	case errors.Is(err, ErrIdempotencyConflict):
		return KindConflict
	case errors.Is(err, ErrIdempotencyInProgress):
		return KindInProgress
	case errors.Is(err, ErrBookingNotFound), errors.Is(err, ErrSeatNotFound):
		return KindNotFound
	case IsInvalidTransition(err):
		return KindInvalidState
	case IsInfrastructure(err):
		return KindInfrastructure
	default:
		return KindUnknown
	}
}
