// Package lock implements distributed mutual exclusion for seat and
// booking resource keys. The algorithm is set-if-absent with a random owner
// token and a TTL; release and extend are compare-and-* operations that only
// the token holder can perform. The backing store is external (Redis in
// production, in-memory for tests).
package lock

import (
	"context"
	"fmt"
	"time"

	apperrors "skybook/internal/errors"
	"skybook/internal/retry"

	"github.com/google/uuid"
)

// Store is the atomic primitive the manager is built on. Implementations
// must make each call a single atomic step.
type Store interface {
	// AcquireIfAbsent sets key=token with ttl only when the key is absent.
	// Returns false when another token holds the key.
	AcquireIfAbsent(ctx context.Context, key, token string, ttl time.Duration) (bool, error)

	// ReleaseIfMatch deletes key only when it still holds token. Returns
	// false when the key expired or was taken over.
	ReleaseIfMatch(ctx context.Context, key, token string) (bool, error)

	// ExtendIfMatch resets the ttl only when key still holds token.
	ExtendIfMatch(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
}

// Handle proves ownership of an acquired lock.
type Handle struct {
	Key   string
	Token string
	TTL   time.Duration
}

// Config controls acquisition retries. MaxWait bounds the total wall-clock
// time spent waiting on a contended key.
type Config struct {
	TTL     time.Duration
	Retry   retry.Policy
	MaxWait time.Duration
}

// DefaultConfig keeps the TTL well above the expected critical-section
// duration so expiry cannot occur mid-operation.
func DefaultConfig() Config {
	return Config{
		TTL:     10 * time.Second,
		Retry:   retry.DefaultPolicy(),
		MaxWait: 2 * time.Second,
	}
}

// Manager acquires and releases locks against a single authoritative store.
type Manager struct {
	store Store
	cfg   Config
}

func NewManager(store Store, cfg Config) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultConfig().MaxWait
	}
	return &Manager{store: store, cfg: cfg}
}

// SeatKey builds the canonical resource key for a seat.
func SeatKey(flightID int64, seatID string) string {
	return fmt.Sprintf("seat:%d:%s", flightID, seatID)
}

// Acquire takes the lock for key, retrying with backoff and jitter while the
// key is contended. Contention after the retry budget is ErrLockContention;
// store failures are infrastructure errors.
func (m *Manager) Acquire(ctx context.Context, key string, ttl time.Duration) (*Handle, error) {
	if ttl <= 0 {
		ttl = m.cfg.TTL
	}
	token := uuid.New().String()

	deadline := time.Now().Add(m.cfg.MaxWait)
	if m.cfg.MaxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	err := m.cfg.Retry.Do(ctx, func() error {
		ok, err := m.store.AcquireIfAbsent(ctx, key, token, ttl)
		if err != nil {
			return apperrors.Infra("lock acquire", err)
		}
		if !ok {
			return apperrors.ErrLockContention
		}
		return nil
	}, nil)
	if err != nil {
		if err == context.DeadlineExceeded || err == context.Canceled {
			return nil, fmt.Errorf("%w: key %s", apperrors.ErrLockContention, key)
		}
		return nil, err
	}

	return &Handle{Key: key, Token: token, TTL: ttl}, nil
}

// Release gives the lock back. A false match (expired and taken over) is
// logged by callers but is not an error: the lock is gone either way.
func (m *Manager) Release(ctx context.Context, h *Handle) error {
	if h == nil {
		return nil
	}
	_, err := m.store.ReleaseIfMatch(ctx, h.Key, h.Token)
	return apperrors.Infra("lock release", err)
}

// ExtendTTL is the lock heartbeat for long critical sections. Returns false
// when the lock was lost.
func (m *Manager) ExtendTTL(ctx context.Context, h *Handle, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = h.TTL
	}
	ok, err := m.store.ExtendIfMatch(ctx, h.Key, h.Token, ttl)
	if err != nil {
		return false, apperrors.Infra("lock extend", err)
	}
	return ok, nil
}

// WithLock runs fn while holding the lock for key and guarantees release on
// every exit path, including panics.
func (m *Manager) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	h, err := m.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	// Release must happen even when fn cancelled the context or panicked.
	defer m.Release(context.WithoutCancel(ctx), h)
	return fn(ctx)
}
