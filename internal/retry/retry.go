// Package retry provides a bounded retry loop with a fixed pause between
// attempts.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy controls Do.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// Delay is the fixed pause between attempts.
	Delay time.Duration

	// Sleep pauses for d or until ctx is done. Nil uses a timer.
	// Tests replace it to record delays without waiting.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Default is three attempts one second apart.
var Default = Policy{MaxAttempts: 3, Delay: time.Second}

// Do calls op until it succeeds or MaxAttempts calls have been made. It
// returns the number of attempts made and the last error. A context cancelled during a pause ends the loop with the context
// error wrapped around the last failure.
func Do(ctx context.Context, p Policy, op func(ctx context.Context, attempt int) error) (int, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, p.Delay); err != nil {
				return attempt - 1, fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
		}

		err := op(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = err
	}

	return attempts, lastErr
}

func timerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
