// Package provider contains the adapters for the external annotation
// sources: CIViC, Ensembl VEP, ClinVar (NCBI E-utilities) and OncoKB.
//
// Every adapter follows the same cache-through contract. A call builds a
// deterministic key, returns a fresh cached [Result] when one exists, and
// otherwise performs a single network fetch per key (concurrent callers
// share it), normalizes the response and stores the outcome. Failures are
// never returned as errors: they degrade to an empty value with status
// [StatusFailed], which is cached like any other result.
package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Keksclan/oncoannot/cache"
	"github.com/Keksclan/oncoannot/contextx"
	"github.com/Keksclan/oncoannot/internal/httpx"
	"github.com/Keksclan/oncoannot/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Status describes how a Result was obtained.
type Status string

const (
	// StatusOK means the source returned at least one usable record.
	StatusOK Status = "ok"
	// StatusEmpty means the source answered but had nothing for the query.
	StatusEmpty Status = "empty"
	// StatusFailed means the fetch failed and the value is the empty shape.
	StatusFailed Status = "failed"
	// StatusSkipped means the adapter is not configured (missing credential).
	StatusSkipped Status = "skipped"
)

// Result is the envelope every adapter returns and caches.
type Result[T any] struct {
	Status    Status `json:"status"`
	FetchedAt int64  `json:"fetched_at"`
	Value     T      `json:"value"`
}

// Found reports whether the result carries usable data.
func (r Result[T]) Found() bool { return r.Status == StatusOK }

// DefaultFailureTTL bounds how long a failed fetch masks a source.
const DefaultFailureTTL = time.Hour

// Cache is the subset of [cache.Store] the adapters need.
type Cache interface {
	Lookup(ctx context.Context, provider, key string) (cache.Entry, bool)
	Set(ctx context.Context, provider, key string, payload []byte)
}

// Option configures an adapter. Options that do not apply to a given
// adapter are ignored.
type Option func(*options)

type options struct {
	baseURL    string
	summaryURL string
	apiKey     string
	token      string
	failureTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// WithBaseURL overrides the adapter endpoint (the search endpoint for
// ClinVar).
func WithBaseURL(u string) Option { return func(o *options) { o.baseURL = u } }

// WithSummaryURL overrides the ClinVar esummary endpoint.
func WithSummaryURL(u string) Option { return func(o *options) { o.summaryURL = u } }

// WithAPIKey sets the NCBI API key sent with ClinVar requests.
func WithAPIKey(k string) Option { return func(o *options) { o.apiKey = k } }

// WithToken sets the OncoKB bearer token.
func WithToken(t string) Option { return func(o *options) { o.token = t } }

// WithFailureTTL sets how long a failed result is served from cache. Zero
// keeps failed results for the full provider TTL.
func WithFailureTTL(d time.Duration) Option { return func(o *options) { o.failureTTL = d } }

// WithLogger sets the adapter logger.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func newOptions(defaultURL string, opts []Option) options {
	o := options{
		baseURL:    defaultURL,
		failureTTL: DefaultFailureTTL,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// base carries what every adapter shares.
type base struct {
	name   string
	cache  Cache
	http   *httpx.Client
	opts   options
	logger *zap.Logger

	loads singleflight.Group
}

func newBase(name string, c Cache, hc *httpx.Client, o options) *base {
	return &base{
		name:   name,
		cache:  c,
		http:   hc,
		opts:   o,
		logger: o.logger.With(zap.String("provider", name)),
	}
}

// fetchFunc performs the network call. found reports whether the value
// holds any records; on error the returned value must be the empty shape.
type fetchFunc[T any] func(ctx context.Context) (value T, found bool, err error)

// through implements the cache-through contract for key.
func through[T any](ctx context.Context, b *base, key string, fetch fetchFunc[T]) Result[T] {
	if r, ok := cached[T](ctx, b, key); ok {
		return r
	}
	v, _, _ := b.loads.Do(key, func() (any, error) {
		if r, ok := cached[T](ctx, b, key); ok {
			return r, nil
		}
		val, found, err := fetch(ctx)
		r := Result[T]{Status: StatusOK, FetchedAt: b.opts.now().Unix(), Value: val}
		switch {
		case err != nil:
			r.Status = StatusFailed
			contextx.Logger(ctx, b.logger).Warn("provider fetch failed",
				zap.String("key", key), zap.Error(err))
		case !found:
			r.Status = StatusEmpty
		}
		metrics.ProviderFetches.WithLabelValues(b.name, string(r.Status)).Inc()
		store(ctx, b, key, r)
		return r, nil
	})
	return v.(Result[T])
}

// cached returns a usable cached result for key. Failed results older than
// the failure TTL are treated as a miss.
func cached[T any](ctx context.Context, b *base, key string) (Result[T], bool) {
	e, ok := b.cache.Lookup(ctx, b.name, key)
	if !ok {
		return Result[T]{}, false
	}
	var r Result[T]
	if err := json.Unmarshal(e.Payload, &r); err != nil {
		b.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return Result[T]{}, false
	}
	if r.Status == StatusFailed && b.opts.failureTTL > 0 &&
		b.opts.now().Unix()-e.Timestamp > int64(b.opts.failureTTL/time.Second) {
		return Result[T]{}, false
	}
	return r, true
}

func store[T any](ctx context.Context, b *base, key string, r Result[T]) {
	payload, err := json.Marshal(r)
	if err != nil {
		b.logger.Warn("cannot encode result", zap.String("key", key), zap.Error(err))
		return
	}
	b.cache.Set(ctx, b.name, key, payload)
}
