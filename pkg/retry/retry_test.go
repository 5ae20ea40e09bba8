package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return nil
	}, WithDelay(0))

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoSucceedsOnThirdAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, WithMaxAttempts(6), WithDelay(0))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return errors.New("always failing")
	}, WithMaxAttempts(4), WithDelay(0))

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Contains(t, err.Error(), "after 4 attempts")
}

func TestDoFatalErrorNotRetried(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return Fatal(errors.New("bad input"))
	}, WithMaxAttempts(5), WithDelay(0))

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	clock := clockwork.NewFakeClock()
	done := make(chan error, 1)

	go func() {
		done <- Do(ctx, func() error {
			return errors.New("still failing")
		}, WithMaxAttempts(10), WithDelay(time.Second), WithClock(clock))
	}()

	// Wait until the retry loop is parked on the clock, then cancel.
	clock.BlockUntil(1)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestDoFixedDelayUsesClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	done := make(chan error, 1)
	calls := 0

	go func() {
		done <- Do(context.Background(), func() error {
			calls++
			if calls < 3 {
				return fmt.Errorf("attempt %d", calls)
			}
			return nil
		}, WithMaxAttempts(5), WithDelay(5*time.Second), WithClock(clock))
	}()

	// Two waits of the fixed delay are needed before the third attempt.
	for i := 0; i < 2; i++ {
		clock.BlockUntil(1)
		clock.Advance(5 * time.Second)
	}

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not finish")
	}
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(errors.New("plain")))
	assert.True(t, IsFatal(Fatal(errors.New("fatal"))))
	assert.True(t, IsFatal(fmt.Errorf("wrapped: %w", Fatal(errors.New("fatal")))))
	assert.Nil(t, Fatal(nil))
}
