// Package httpx is the outbound HTTP client shared by the provider adapters.
// Every call goes through the same pipeline: circuit breaker, retry with
// backoff, optional rate limit, client span, and a per-attempt timeout.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/Keksclan/oncoannot/breaker"
	"github.com/Keksclan/oncoannot/metrics"
	"github.com/Keksclan/oncoannot/ratelimit"
	"github.com/Keksclan/oncoannot/retry"
	"github.com/Keksclan/oncoannot/tracing"
	"go.uber.org/zap"
)

// Defaults mirror the HTTP_TIMEOUT and HTTP_RETRIES settings.
const (
	DefaultTimeout = 18 * time.Second
	DefaultRetries = 2
)

// maxBody bounds how much of a response body is read.
const maxBody = 16 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Provider string
	Code     int
	// After is the upstream Retry-After, zero when absent.
	After time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d %s", e.Provider, e.Code, http.StatusText(e.Code))
}

// RetryAfter lets the retry policy wait as long as the upstream asked.
func (e *StatusError) RetryAfter() time.Duration { return e.After }

// parseRetryAfter reads delay-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(max(secs, 0)) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return max(t.Sub(now), 0)
	}
	return 0
}

// IsTransient reports whether err is worth retrying: transport failures,
// timeouts, 429 and 5xx responses. Cancellation and open breakers are not.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, breaker.ErrOpen) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded)
}

// RequestFunc builds a fresh request for every attempt so that bodies can be
// replayed on retry.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Client performs provider calls. It is safe for concurrent use.
type Client struct {
	hc         *http.Client
	retry      retry.Config
	breakerCfg breaker.Config
	tracing    *tracing.TracingConfig
	logger     *zap.Logger

	mu       sync.Mutex
	breakers map[string]*breaker.Breaker
	limiters map[string]*ratelimit.Limiter
}

// Option configures a [Client].
type Option func(*Client)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = d }
}

// WithRetries sets how many extra attempts follow a transient failure.
func WithRetries(n int) Option {
	return func(c *Client) { c.retry = retry.FromRetries(max(n, 0), IsTransient) }
}

// WithRetryConfig replaces the retry policy wholesale.
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithTransport sets the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.hc.Transport = rt }
}

// WithBreaker sets the configuration for the per-provider circuit breakers.
func WithBreaker(cfg breaker.Config) Option {
	return func(c *Client) { c.breakerCfg = cfg }
}

// WithRateLimit paces calls to provider at rps requests per second.
func WithRateLimit(provider string, rps float64, burst int) Option {
	return func(c *Client) { c.limiters[provider] = ratelimit.NewLimiter(rps, burst) }
}

// WithTracing enables client spans.
func WithTracing(cfg *tracing.TracingConfig) Option {
	return func(c *Client) { c.tracing = cfg }
}

// WithLogger sets the logger used for retries and breaker transitions.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client with an 18 second timeout, two retries and the
// default breaker.
func New(opts ...Option) *Client {
	c := &Client{
		hc:         &http.Client{Timeout: DefaultTimeout},
		retry:      retry.FromRetries(DefaultRetries, IsTransient),
		breakerCfg: breaker.DefaultConfig(),
		logger:     zap.NewNop(),
		breakers:   make(map[string]*breaker.Breaker),
		limiters:   make(map[string]*ratelimit.Limiter),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Do sends the request built by build and returns the body of a 2xx
// response. Transient failures are retried; other statuses surface as
// *StatusError.
func (c *Client) Do(ctx context.Context, provider string, build RequestFunc) ([]byte, error) {
	b := c.breaker(provider)
	if !b.Allow() {
		return nil, fmt.Errorf("%s: %w", provider, breaker.ErrOpen)
	}

	cfg := c.retry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.logger.Debug("retrying provider call",
			zap.String("provider", provider),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
	}

	start := time.Now()
	body, err := retry.Do(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		return c.attempt(ctx, provider, build)
	})
	metrics.ProviderFetchDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	record(b, err)
	return body, err
}

// record feeds the outcome of a call to b. Only an answer from the provider
// counts as success; calls that ended without one release their slot.
func record(b *breaker.Breaker, err error) {
	var se *StatusError
	switch {
	case err == nil:
		b.OnSuccess()
	case errors.Is(err, context.Canceled):
		b.Release()
	case IsTransient(err):
		b.OnFailure()
	case errors.As(err, &se):
		b.OnSuccess()
	default:
		b.Release()
	}
}

// Probe sends a single request without retries or breaker accounting and
// returns the response status code.
func (c *Client) Probe(ctx context.Context, provider string, build RequestFunc) (int, error) {
	req, err := build(ctx)
	if err != nil {
		return 0, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
	return resp.StatusCode, nil
}

func (c *Client) attempt(ctx context.Context, provider string, build RequestFunc) ([]byte, error) {
	if l := c.limiter(provider); l != nil {
		if err := l.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := build(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", provider, err)
	}
	ctx, span := tracing.StartClientSpan(ctx, c.tracing, provider, req)
	req = req.WithContext(ctx)

	resp, err := c.hc.Do(req)
	if err != nil {
		tracing.EndClientSpan(span, 0, err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	tracing.EndClientSpan(span, resp.StatusCode, err)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Provider: provider,
			Code:     resp.StatusCode,
			After:    parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}
	return body, nil
}

func (c *Client) breaker(provider string) *breaker.Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.breakers[provider]; ok {
		return b
	}
	cfg := c.breakerCfg
	cfg.OnStateChange = func(from, to breaker.State) {
		open := 0.0
		if to == breaker.Open {
			open = 1
		}
		metrics.BreakerOpen.WithLabelValues(provider).Set(open)
		c.logger.Info("provider breaker state changed",
			zap.String("provider", provider),
			zap.Stringer("from", from),
			zap.Stringer("to", to))
	}
	b := breaker.New(cfg)
	c.breakers[provider] = b
	return b
}

func (c *Client) limiter(provider string) *ratelimit.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limiters[provider]
}
