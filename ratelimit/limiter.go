// Package ratelimit wraps golang.org/x/time/rate token buckets. The server
// uses them to reject excess RPCs; the HTTP client uses them to pace calls
// to upstreams with a published request budget (NCBI E-utilities).
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket. The zero value is not usable; see NewLimiter.
type Limiter struct {
	lim *rate.Limiter
}

// NewLimiter permits rps events per second with bursts of up to burst.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Allow takes a token if one is available now.
func (l *Limiter) Allow() bool {
	ok, _ := l.Take()
	return ok
}

// Take is Allow that also reports, on refusal, how long until a token
// would be free. The wait is zero when the bucket can never satisfy a
// request (burst 0).
func (l *Limiter) Take() (bool, time.Duration) {
	now := time.Now()
	r := l.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.lim.Wait(ctx)
}

// Limit reports the configured events per second.
func (l *Limiter) Limit() float64 { return float64(l.lim.Limit()) }
