package webhook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry_StopsOnSuccess(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0
	n, err := Retry(context.Background(), 5, sleeper, func(ctx context.Context, attempt int) Step {
		calls++
		if attempt < 3 {
			return Step{Outcome: OutcomeRetry, Wait: time.Duration(attempt) * time.Second, Err: errors.New("boom")}
		}
		return Step{Outcome: OutcomeSuccess}
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.Waits())
}

func TestRetry_AbortSkipsRemainingAttempts(t *testing.T) {
	sentinel := errors.New("bad")
	n, err := Retry(context.Background(), 5, &recordingSleeper{}, func(ctx context.Context, attempt int) Step {
		return Step{Outcome: OutcomeAbort, Err: sentinel}
	})
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, sentinel)
}

func TestRetry_ExhaustionWrapsLastError(t *testing.T) {
	sentinel := errors.New("still down")
	n, err := Retry(context.Background(), 2, &recordingSleeper{}, func(ctx context.Context, attempt int) Step {
		return Step{Outcome: OutcomeRetry, Err: sentinel}
	})
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, sentinel)
}

func TestRetry_CancelledWaitStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	n, err := Retry(ctx, 3, TimerSleeper, func(ctx context.Context, attempt int) Step {
		calls++
		return Step{Outcome: OutcomeRetry, Wait: time.Hour}
	})
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetry_AtLeastOneAttempt(t *testing.T) {
	calls := 0
	_, _ = Retry(context.Background(), 0, nil, func(ctx context.Context, attempt int) Step {
		calls++
		return Step{Outcome: OutcomeSuccess}
	})
	assert.Equal(t, 1, calls)
}

func TestTimerSleeperWaits(t *testing.T) {
	start := time.Now()
	require.NoError(t, TimerSleeper.Sleep(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
