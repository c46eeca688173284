package idempotency

import (
	"context"
	"testing"
	"time"

	apperrors "skybook/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAndReserveFreshKey(t *testing.T) {
	s := NewMemoryStore()

	res, err := s.CheckAndReserve(context.Background(), "key-1", "hash-a")
	require.NoError(t, err)
	assert.Equal(t, Fresh, res.State)
}

func TestConcurrentReservationBlocksSecondCaller(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	res, err := s.CheckAndReserve(ctx, "key-1", "hash-a")
	require.NoError(t, err)
	require.Equal(t, Fresh, res.State)

	res, err = s.CheckAndReserve(ctx, "key-1", "hash-a")
	require.NoError(t, err)
	assert.Equal(t, InProgress, res.State)
}

func TestCompletedResultIsReplayed(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.CheckAndReserve(ctx, "key-1", "hash-a")
	require.NoError(t, err)
	require.NoError(t, s.StoreResult(ctx, "key-1", []byte(`{"booking_id":42}`), time.Hour))

	res, err := s.CheckAndReserve(ctx, "key-1", "hash-a")
	require.NoError(t, err)
	assert.Equal(t, Completed, res.State)
	assert.JSONEq(t, `{"booking_id":42}`, string(res.Result))
}

func TestSameKeyDifferentPayloadConflicts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.CheckAndReserve(ctx, "key-1", "hash-a")
	require.NoError(t, err)
	require.NoError(t, s.StoreResult(ctx, "key-1", []byte(`{}`), time.Hour))

	_, err = s.CheckAndReserve(ctx, "key-1", "hash-b")
	require.ErrorIs(t, err, apperrors.ErrIdempotencyConflict)
}

func TestInvalidateFreesKey(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.CheckAndReserve(ctx, "key-1", "hash-a")
	require.NoError(t, err)
	require.NoError(t, s.Invalidate(ctx, "key-1"))

	res, err := s.CheckAndReserve(ctx, "key-1", "hash-b")
	require.NoError(t, err)
	assert.Equal(t, Fresh, res.State, "invalidated key must accept a new payload")
}

func TestExpiredResultBecomesFresh(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.SetClock(func() time.Time { return now })
	ctx := context.Background()

	_, err := s.CheckAndReserve(ctx, "key-1", "hash-a")
	require.NoError(t, err)
	require.NoError(t, s.StoreResult(ctx, "key-1", []byte(`{}`), time.Hour))

	now = now.Add(2 * time.Hour)

	res, err := s.CheckAndReserve(ctx, "key-1", "hash-a")
	require.NoError(t, err)
	assert.Equal(t, Fresh, res.State, "key must be reusable after the TTL")
}

func TestStaleInProgressMarkerExpires(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.SetClock(func() time.Time { return now })
	ctx := context.Background()

	_, err := s.CheckAndReserve(ctx, "key-1", "hash-a")
	require.NoError(t, err)

	// A crashed process never stores a result; after the reservation TTL the
	// key opens up again.
	now = now.Add(reserveTTL + time.Minute)

	res, err := s.CheckAndReserve(ctx, "key-1", "hash-a")
	require.NoError(t, err)
	assert.Equal(t, Fresh, res.State)
}

func TestHashRequestIsDeterministic(t *testing.T) {
	a := HashRequest([]byte(`{"flight":1}`))
	b := HashRequest([]byte(`{"flight":1}`))
	c := HashRequest([]byte(`{"flight":2}`))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
