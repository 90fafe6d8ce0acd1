// Package retry repeats provider calls that failed transiently, waiting an
// exponential back-off or the delay the upstream asked for.
package retry

import (
	"context"
	"time"
)

// Config controls [Do].
type Config struct {
	// MaxAttempts counts the first call; values below 2 disable retries.
	MaxAttempts int

	// BaseDelay is the wait before the first retry; each later retry
	// doubles it up to MaxDelay (0 = uncapped).
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Jitter spreads each delay by ±Jitter of itself, e.g. 0.2.
	Jitter float64

	// RetryIf selects retryable errors. Nil retries nothing.
	RetryIf func(error) bool

	// OnRetry runs before the wait that precedes attempt+1.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Default delays used by FromRetries.
const (
	DefaultBaseDelay = 200 * time.Millisecond
	DefaultMaxDelay  = 3 * time.Second
	DefaultJitter    = 0.2
)

// FromRetries allows retries extra attempts after the first.
func FromRetries(retries int, retryIf func(error) bool) Config {
	return Config{
		MaxAttempts: retries + 1,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Jitter:      DefaultJitter,
		RetryIf:     retryIf,
	}
}

func (c Config) retryable(err error) bool {
	return c.RetryIf != nil && c.RetryIf(err)
}

// Do calls fn until it succeeds, returns an error RetryIf rejects, or
// MaxAttempts calls have been made. The last error is returned unchanged.
// If ctx ends during a wait Do returns ctx.Err().
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	last := max(cfg.MaxAttempts, 1) - 1
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil || attempt == last || !cfg.retryable(err) {
			return result, err
		}

		delay := delayFor(cfg, attempt, err)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, delay)
		}
		if err := sleep(ctx, delay); err != nil {
			var zero T
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
