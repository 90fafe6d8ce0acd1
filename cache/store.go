package cache

import (
	"bytes"
	"context"
	"time"

	"github.com/Keksclan/oncoannot/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Store is the cache facade used by the rest of the module. Reads return a
// hit only when the entry is younger than the provider's TTL. Storage
// failures never reach the caller: a failed read is a miss and a failed
// write is a no-op. All methods are safe for concurrent use.
type Store struct {
	backend Backend
	l1      *L1
	ttls    TTLs
	now     func() time.Time
	logger  *zap.Logger

	loads singleflight.Group
}

// StoreOption configures a [Store].
type StoreOption func(*Store)

// WithL1 places an in-process front cache before the backend.
func WithL1(l *L1) StoreOption {
	return func(s *Store) { s.l1 = l }
}

// WithTTLs overrides TTLs per provider on top of [DefaultTTLs].
func WithTTLs(override map[string]time.Duration) StoreOption {
	return func(s *Store) { s.ttls = s.ttls.Merge(override) }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for swallowed storage errors.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore returns a Store over backend. Call [Store.Init] before use.
func NewStore(backend Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		ttls:    DefaultTTLs(),
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Init prepares the backing storage. It is idempotent and safe to call while
// other goroutines read.
func (s *Store) Init(ctx context.Context) error {
	return s.backend.Init(ctx)
}

// TTL returns the freshness window applied to provider.
func (s *Store) TTL(provider string) time.Duration {
	return s.ttls.For(provider)
}

// Get returns the payload for (provider, key) when a fresh entry exists.
func (s *Store) Get(ctx context.Context, provider, key string) ([]byte, bool) {
	e, ok := s.Lookup(ctx, provider, key)
	if !ok {
		return nil, false
	}
	return e.Payload, true
}

// Lookup is like [Store.Get] but returns the whole entry, including the time
// it was written.
func (s *Store) Lookup(ctx context.Context, provider, key string) (Entry, bool) {
	ttl := s.ttls.For(provider)

	if s.l1 != nil {
		if e, ok := s.l1.Get(provider, key); ok && s.fresh(e, ttl) {
			metrics.CacheReads.WithLabelValues(provider, "hit").Inc()
			return e, true
		}
	}

	e, ok, err := s.backend.Load(ctx, provider, key)
	switch {
	case err != nil:
		s.logger.Warn("cache read failed",
			zap.String("provider", provider), zap.String("key", key), zap.Error(err))
		metrics.CacheReads.WithLabelValues(provider, "error").Inc()
		return Entry{}, false
	case !ok:
		metrics.CacheReads.WithLabelValues(provider, "miss").Inc()
		return Entry{}, false
	case !s.fresh(e, ttl):
		metrics.CacheReads.WithLabelValues(provider, "expired").Inc()
		return Entry{}, false
	}

	if s.l1 != nil {
		s.l1.Set(e, ttl-s.age(e))
	}
	metrics.CacheReads.WithLabelValues(provider, "hit").Inc()
	return e, true
}

// Set stores payload under (provider, key) stamped with the current time,
// replacing any previous entry.
func (s *Store) Set(ctx context.Context, provider, key string, payload []byte) {
	e := Entry{
		Provider:  provider,
		Key:       key,
		Timestamp: s.now().Unix(),
		Payload:   bytes.Clone(payload),
	}
	ttl := s.ttls.For(provider)

	if err := s.backend.Save(ctx, e, ttl); err != nil {
		s.logger.Warn("cache write failed",
			zap.String("provider", provider), zap.String("key", key), zap.Error(err))
		metrics.CacheWrites.WithLabelValues(provider, "error").Inc()
		return
	}
	if s.l1 != nil {
		s.l1.Set(e, ttl)
	}
	metrics.CacheWrites.WithLabelValues(provider, "ok").Inc()
}

// GetOrSet returns the fresh payload for (provider, key). On a miss it calls
// loader once per identity across concurrent callers, stores the result and
// returns it.
func (s *Store) GetOrSet(ctx context.Context, provider, key string, loader func(context.Context) []byte) []byte {
	if v, ok := s.Get(ctx, provider, key); ok {
		return v
	}
	v, _, _ := s.loads.Do(provider+"\x00"+key, func() (any, error) {
		if v, ok := s.Get(ctx, provider, key); ok {
			return v, nil
		}
		v := loader(ctx)
		s.Set(ctx, provider, key, v)
		return v, nil
	})
	return bytes.Clone(v.([]byte))
}

// Ping reports whether the backend is reachable. Backends without a liveness
// probe are assumed healthy.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.backend.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the backend and the L1 front.
func (s *Store) Close() error {
	if s.l1 != nil {
		s.l1.Close()
	}
	return s.backend.Close()
}

func (s *Store) age(e Entry) time.Duration {
	return time.Duration(s.now().Unix()-e.Timestamp) * time.Second
}

// fresh applies the inclusive freshness rule: now - ts <= ttl, in seconds.
func (s *Store) fresh(e Entry, ttl time.Duration) bool {
	return s.now().Unix()-e.Timestamp <= int64(ttl/time.Second)
}
