package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	failure := errors.New("always fails")
	calls := 0
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		return failure
	}, nil)

	require.ErrorIs(t, err, failure)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		return fatal
	}, func(err error) bool { return !errors.Is(err, fatal) })

	require.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls, "non-retryable error must not be retried")
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := Policy{
		MaxAttempts: 10,
		BaseDelay:   50 * time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    time.Second,
	}

	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := p.Do(ctx, func() error {
		calls++
		return errors.New("transient")
	}, nil)

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, calls, 10)
}

func TestDelayGrowsAndCaps(t *testing.T) {
	p := Policy{
		MaxAttempts: 10,
		BaseDelay:   10 * time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    40 * time.Millisecond,
	}

	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, 10*time.Millisecond, p.Delay(1))
	assert.Equal(t, 20*time.Millisecond, p.Delay(2))
	assert.Equal(t, 40*time.Millisecond, p.Delay(3))
	assert.Equal(t, 40*time.Millisecond, p.Delay(8), "delay must cap at MaxDelay")
}

func TestDelayJitterStaysInRange(t *testing.T) {
	p := Policy{
		MaxAttempts: 5,
		BaseDelay:   20 * time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    time.Second,
		Jitter:      true,
	}

	for i := 0; i < 100; i++ {
		d := p.Delay(2)
		assert.GreaterOrEqual(t, d, 20*time.Millisecond)
		assert.LessOrEqual(t, d, 40*time.Millisecond)
	}
}
