package retry

import (
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// Hinter is implemented by errors that carry a server-requested delay,
// such as an HTTP 429 with Retry-After.
type Hinter interface {
	RetryAfter() time.Duration
}

// delayFor returns the wait before attempt+1. A positive hint from err wins
// over the computed back-off; both are capped at cfg.MaxDelay.
func delayFor(cfg Config, attempt int, err error) time.Duration {
	var h Hinter
	if errors.As(err, &h) {
		if d := h.RetryAfter(); d > 0 {
			return capDelay(cfg, d)
		}
	}
	return backoff(cfg, attempt)
}

// backoff is BaseDelay * 2^attempt, capped, with up to ±Jitter applied.
func backoff(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if limit := float64(cfg.MaxDelay); limit > 0 && delay > limit {
		delay = limit
	}
	if cfg.Jitter > 0 {
		delay += delay * cfg.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(max(delay, 0))
}

func capDelay(cfg Config, d time.Duration) time.Duration {
	if cfg.MaxDelay > 0 && d > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return d
}
