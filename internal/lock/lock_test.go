package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "skybook/internal/errors"
	"skybook/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	return NewManager(NewMemoryStore(), Config{
		TTL: time.Second,
		Retry: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			Multiplier:  2.0,
			MaxDelay:    5 * time.Millisecond,
		},
		MaxWait: 50 * time.Millisecond,
	})
}

func TestAcquireAndRelease(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	h, err := m.Acquire(ctx, SeatKey(1, "12A"), 0)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "seat:1:12A", h.Key)
	assert.NotEmpty(t, h.Token)

	require.NoError(t, m.Release(ctx, h))

	// Freed lock can be taken again.
	h2, err := m.Acquire(ctx, SeatKey(1, "12A"), 0)
	require.NoError(t, err)
	assert.NotEqual(t, h.Token, h2.Token)
}

func TestAcquireContention(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	h, err := m.Acquire(ctx, SeatKey(1, "12A"), 0)
	require.NoError(t, err)

	_, err = m.Acquire(ctx, SeatKey(1, "12A"), 0)
	require.ErrorIs(t, err, apperrors.ErrLockContention)

	// A different seat is unaffected.
	_, err = m.Acquire(ctx, SeatKey(1, "12B"), 0)
	require.NoError(t, err)

	require.NoError(t, m.Release(ctx, h))
}

func TestReleaseWithWrongTokenKeepsLock(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	h, err := m.Acquire(ctx, SeatKey(1, "12A"), 0)
	require.NoError(t, err)

	forged := &Handle{Key: h.Key, Token: "not-the-token", TTL: h.TTL}
	require.NoError(t, m.Release(ctx, forged))

	// The real owner still holds it.
	_, err = m.Acquire(ctx, SeatKey(1, "12A"), 0)
	require.ErrorIs(t, err, apperrors.ErrLockContention)
}

func TestExpiredLockCanBeTakenOver(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.SetClock(func() time.Time { return now })

	m := NewManager(store, Config{TTL: time.Second, MaxWait: 10 * time.Millisecond})
	ctx := context.Background()

	h1, err := m.Acquire(ctx, SeatKey(1, "12A"), time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)

	h2, err := m.Acquire(ctx, SeatKey(1, "12A"), time.Second)
	require.NoError(t, err, "expired lock must be acquirable")

	// The old handle cannot release the new owner's lock.
	require.NoError(t, m.Release(ctx, h1))
	_, err = m.Acquire(ctx, SeatKey(1, "12A"), time.Second)
	require.ErrorIs(t, err, apperrors.ErrLockContention)

	require.NoError(t, m.Release(ctx, h2))
}

func TestExtendTTL(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.SetClock(func() time.Time { return now })

	m := NewManager(store, Config{TTL: time.Second, MaxWait: 10 * time.Millisecond})
	ctx := context.Background()

	h, err := m.Acquire(ctx, SeatKey(1, "12A"), time.Second)
	require.NoError(t, err)

	ok, err := m.ExtendTTL(ctx, h, 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	// Past the original TTL but inside the extension.
	now = now.Add(5 * time.Second)
	_, err = m.Acquire(ctx, SeatKey(1, "12A"), time.Second)
	require.ErrorIs(t, err, apperrors.ErrLockContention)

	// Extending a lost lock reports false.
	now = now.Add(20 * time.Second)
	ok, err = m.ExtendTTL(ctx, h, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWithLockReleasesOnSuccess(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	ran := false
	err := m.WithLock(ctx, SeatKey(1, "12A"), 0, func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	_, err = m.Acquire(ctx, SeatKey(1, "12A"), 0)
	require.NoError(t, err, "lock must be free after WithLock returns")
}

func TestWithLockReleasesOnError(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	boom := errors.New("boom")
	err := m.WithLock(ctx, SeatKey(1, "12A"), 0, func(ctx context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = m.Acquire(ctx, SeatKey(1, "12A"), 0)
	require.NoError(t, err)
}

func TestWithLockReleasesOnPanic(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	require.Panics(t, func() {
		_ = m.WithLock(ctx, SeatKey(1, "12A"), 0, func(ctx context.Context) error {
			panic("boom")
		})
	})

	_, err := m.Acquire(ctx, SeatKey(1, "12A"), 0)
	require.NoError(t, err, "lock must be released even when fn panics")
}

func TestWithLockReleasesOnCancelledContext(t *testing.T) {
	m := testManager()

	ctx, cancel := context.WithCancel(context.Background())
	err := m.WithLock(ctx, SeatKey(1, "12A"), 0, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)

	_, err = m.Acquire(context.Background(), SeatKey(1, "12A"), 0)
	require.NoError(t, err, "release must run on the detached context")
}
