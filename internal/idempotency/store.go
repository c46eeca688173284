// Package idempotency maps client-supplied request keys to previously
// computed outcomes so retried requests replay the original result instead
// of re-running side effects. Reservation is itself an atomic set-if-absent,
// which makes the store safe under concurrent duplicate submissions and
// across process restarts.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// State of an idempotency key.
type State string

const (
	// Fresh: the key was unseen and is now reserved by this caller.
	Fresh State = "FRESH"
	// InProgress: another request with the same key is running.
	InProgress State = "IN_PROGRESS"
	// Completed: a result is stored and must be replayed.
	Completed State = "COMPLETED"
)

// Record is the stored value for a key. RequestHash detects key reuse with
// a different payload, which is a conflict and never merged.
type Record struct {
	State       State     `json:"state"`
	RequestHash string    `json:"request_hash"`
	Result      []byte    `json:"result,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Reservation is the outcome of CheckAndReserve.
type Reservation struct {
	State  State
	Result []byte
}

// Store is the idempotency contract consumed by the inventory service.
type Store interface {
	// CheckAndReserve atomically reserves key for this caller. A Fresh
	// reservation obliges the caller to StoreResult or Invalidate. When the
	// stored request hash differs from requestHash it returns
	// ErrIdempotencyConflict.
	CheckAndReserve(ctx context.Context, key, requestHash string) (*Reservation, error)

	// StoreResult completes the key with a serialized outcome and a TTL.
	StoreResult(ctx context.Context, key string, result []byte, ttl time.Duration) error

	// Invalidate removes the key so a later retry re-executes. Used when
	// processing failed before any side effect survived.
	Invalidate(ctx context.Context, key string) error
}

// HashRequest produces the canonical request hash for conflict detection.
func HashRequest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
