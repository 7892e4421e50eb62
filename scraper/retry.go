package scraper

import (
	"context"
	"time"
)

// RetryPolicy retries operations that fail with a transient error after a
// fixed cooldown. MaxAttempts of zero retries until the context ends.
type RetryPolicy struct {
	Interval    time.Duration
	MaxAttempts int

	// Sleep replaces the real cooldown; tests use it to avoid delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Unbounded reports whether the policy retries forever.
func (p RetryPolicy) Unbounded() bool {
	return p.MaxAttempts <= 0
}

// Pause waits for one cooldown interval or until ctx is done.
func (p RetryPolicy) Pause(ctx context.Context) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, p.Interval)
	}
	return sleepContext(ctx, p.Interval)
}

// Do runs op until it succeeds, fails permanently, or runs out of attempts.
// onRetry, when set, is called before every cooldown.
func (p RetryPolicy) Do(ctx context.Context, op func() error, onRetry func(attempt int, err error)) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op()
		if err == nil || !IsTransient(err) {
			return err
		}
		if !p.Unbounded() && attempt >= p.MaxAttempts {
			return err
		}

		if onRetry != nil {
			onRetry(attempt, err)
		}
		if perr := p.Pause(ctx); perr != nil {
			return perr
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
}
