// Package health reports whether the cache backend and the external
// sources are reachable. It is informational and never gates analysis.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a whole Check.
const DefaultTimeout = 10 * time.Second

// Pinger is a source liveness probe.
type Pinger interface {
	Ping(ctx context.Context) bool
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) bool

func (f PingFunc) Ping(ctx context.Context) bool { return f(ctx) }

// CachePinger reports whether the cache backend answers.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// Report is the outcome of a Check.
type Report struct {
	OK      bool            `json:"ok"`
	Cache   bool            `json:"cache"`
	Sources map[string]bool `json:"sources"`
}

// Option configures a Checker.
type Option func(*Checker)

// WithSource registers a named source probe.
func WithSource(name string, p Pinger) Option {
	return func(c *Checker) { c.sources[name] = p }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option { return func(c *Checker) { c.timeout = d } }

// WithLogger sets the checker logger.
func WithLogger(l *zap.Logger) Option { return func(c *Checker) { c.logger = l } }

// Checker pings the cache and every registered source concurrently.
type Checker struct {
	cache   CachePinger
	sources map[string]Pinger
	timeout time.Duration
	logger  *zap.Logger
}

// NewChecker returns a Checker for cache, which may be nil.
func NewChecker(cache CachePinger, opts ...Option) *Checker {
	c := &Checker{
		cache:   cache,
		sources: make(map[string]Pinger),
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Check runs every probe. OK is true when the cache answers; an
// unreachable source only shows up in Sources.
func (c *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rep := Report{Sources: make(map[string]bool, len(c.sources))}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if c.cache == nil {
			return nil
		}
		err := c.cache.Ping(gctx)
		if err != nil {
			c.logger.Warn("cache backend unreachable", zap.Error(err))
		}
		mu.Lock()
		rep.Cache = err == nil
		mu.Unlock()
		return nil
	})
	for name, p := range c.sources {
		g.Go(func() error {
			up := p.Ping(gctx)
			if !up {
				c.logger.Info("source unreachable", zap.String("source", name))
			}
			mu.Lock()
			rep.Sources[name] = up
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	rep.OK = rep.Cache || c.cache == nil
	return rep
}
