package webhook

import (
	"context"
	"fmt"
	"time"
)

// Sleeper waits between attempts. Implementations must return early with
// ctx.Err() once ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// TimerSleeper sleeps on a real timer.
var TimerSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
})

// Outcome classifies a single attempt.
type Outcome int

const (
	// OutcomeSuccess stops the loop successfully.
	OutcomeSuccess Outcome = iota
	// OutcomeRetry waits Step.Wait and tries again while attempts remain.
	OutcomeRetry
	// OutcomeAbort stops the loop without using the remaining attempts.
	OutcomeAbort
)

// Step is what an attempt reports back to Retry.
type Step struct {
	Outcome Outcome
	Wait    time.Duration
	Err     error
}

// Retry runs attempt up to maxAttempts times (at least once). Attempts are
// numbered from 1. Waiting happens only between attempts, never after the
// last one. It returns the number of attempts made and nil on success.
func Retry(ctx context.Context, maxAttempts int, sleeper Sleeper, attempt func(ctx context.Context, n int) Step) (int, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if sleeper == nil {
		sleeper = TimerSleeper
	}
	var lastErr error
	for n := 1; n <= maxAttempts; n++ {
		step := attempt(ctx, n)
		switch step.Outcome {
		case OutcomeSuccess:
			return n, nil
		case OutcomeAbort:
			return n, step.Err
		}
		lastErr = step.Err
		if n == maxAttempts {
			break
		}
		if err := sleeper.Sleep(ctx, step.Wait); err != nil {
			return n, fmt.Errorf("retry wait interrupted: %w", err)
		}
	}
	return maxAttempts, fmt.Errorf("giving up after %d attempts: %w", maxAttempts, lastErr)
}
