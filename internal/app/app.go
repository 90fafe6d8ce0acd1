// Package app assembles the annotation service from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Keksclan/oncoannot"
	"github.com/Keksclan/oncoannot/aggregate"
	"github.com/Keksclan/oncoannot/breaker"
	"github.com/Keksclan/oncoannot/cache"
	"github.com/Keksclan/oncoannot/config"
	"github.com/Keksclan/oncoannot/evidence"
	"github.com/Keksclan/oncoannot/health"
	"github.com/Keksclan/oncoannot/internal/httpx"
	"github.com/Keksclan/oncoannot/provider"
	"github.com/Keksclan/oncoannot/rpc"
	"github.com/Keksclan/oncoannot/tracing"
	"github.com/Keksclan/oncoannot/tumor"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// App holds the wired components.
type App struct {
	Store      *cache.Store
	Aggregator *aggregate.Aggregator
	Health     *health.Checker
	Server     *oncoannot.Server

	logger *zap.Logger
}

// Option adjusts assembly.
type Option func(*options)

type options struct {
	fs      afero.Fs
	tracing *tracing.TracingConfig
	backend cache.Backend
}

// WithFs reads local evidence from fsys instead of the OS filesystem.
func WithFs(fsys afero.Fs) Option { return func(o *options) { o.fs = fsys } }

// WithTracing enables client and server spans.
func WithTracing(cfg *tracing.TracingConfig) Option { return func(o *options) { o.tracing = cfg } }

// WithBackend overrides the cache backend selected by the configuration.
func WithBackend(b cache.Backend) Option { return func(o *options) { o.backend = b } }

// New builds every component described by cfg. The cache schema is
// created before New returns.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{fs: afero.NewOsFs()}
	for _, fn := range opts {
		fn(&o)
	}

	store, err := newStore(ctx, cfg.Cache, o.backend, logger)
	if err != nil {
		return nil, err
	}

	hcOpts := []httpx.Option{
		httpx.WithTimeout(cfg.HTTP.Timeout()),
		httpx.WithRetries(cfg.HTTP.Retries),
		httpx.WithBreaker(breaker.Config{
			FailureThreshold:   cfg.HTTP.BreakerThreshold,
			OpenTimeout:        cfg.HTTP.BreakerOpenTimeout,
			HalfOpenMaxSuccess: 1,
		}),
		httpx.WithRateLimit(cache.ProviderClinVar, provider.NCBIRateLimit(cfg.Providers.NCBIAPIKey), 1),
		httpx.WithLogger(logger.Named("httpx")),
	}
	if o.tracing != nil {
		hcOpts = append(hcOpts, httpx.WithTracing(o.tracing))
	}
	hc := httpx.New(hcOpts...)

	common := []provider.Option{
		provider.WithFailureTTL(cfg.Cache.FailureTTL),
		provider.WithLogger(logger.Named("provider")),
	}
	with := func(extra ...provider.Option) []provider.Option {
		return append(append([]provider.Option{}, common...), extra...)
	}

	civic := provider.NewCIViC(store, hc, with(provider.WithBaseURL(cfg.Providers.CIViCURL))...)
	clinvar := provider.NewClinVar(store, hc, with(
		provider.WithBaseURL(cfg.Providers.ClinVarSearchURL),
		provider.WithSummaryURL(cfg.Providers.ClinVarSummaryURL),
		provider.WithAPIKey(cfg.Providers.NCBIAPIKey),
	)...)
	oncokb := provider.NewOncoKB(store, hc, with(
		provider.WithBaseURL(cfg.Providers.OncoKBURL),
		provider.WithToken(cfg.Providers.OncoKBToken),
	)...)
	vep := provider.NewVEP(store, hc, with(provider.WithBaseURL(cfg.Providers.VEPURL))...)
	local := evidence.NewLoader(store, cfg.Evidence.Dir,
		evidence.WithFs(o.fs),
		evidence.WithLogger(logger.Named("evidence")),
	)

	agg := aggregate.New(tumor.Vocabulary{},
		aggregate.WithLocalEvidence(local),
		aggregate.WithCIViC(civic),
		aggregate.WithClinVar(clinvar),
		aggregate.WithOncoKB(oncokb),
		aggregate.WithVEP(vep),
		aggregate.WithLogger(logger.Named("aggregate")),
	)

	checker := health.NewChecker(store,
		health.WithSource(cache.ProviderCIViC, civic),
		health.WithSource(cache.ProviderVEP, vep),
		health.WithSource(cache.ProviderClinVar, clinvar),
		health.WithSource(cache.ProviderOncoKB, oncokb),
		health.WithLogger(logger.Named("health")),
	)

	srvOpts := append(oncoannot.DefaultOptions(),
		oncoannot.WithLogger(logger.Named("grpc")),
		oncoannot.WithAnalyzer(agg),
		oncoannot.WithHealth(checker),
	)
	if o.tracing != nil {
		srvOpts = append(srvOpts, oncoannot.WithTracing(o.tracing))
	}
	if cfg.Server.RateLimitRPS > 0 {
		srvOpts = append(srvOpts, oncoannot.WithRateLimitGlobal(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))
	}
	if cfg.Server.AnalyzeRPS > 0 {
		srvOpts = append(srvOpts, oncoannot.WithRateLimitMethod(rpc.AnalyzeMethod, cfg.Server.AnalyzeRPS, cfg.Server.RateLimitBurst))
	}

	return &App{
		Store:      store,
		Aggregator: agg,
		Health:     checker,
		Server:     oncoannot.NewServer(srvOpts...),
		logger:     logger,
	}, nil
}

func newStore(ctx context.Context, cfg config.CacheConfig, backend cache.Backend, logger *zap.Logger) (*cache.Store, error) {
	if backend == nil {
		switch cfg.Backend {
		case "redis":
			backend = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		default:
			db, err := cache.NewSQLite(cfg.Path)
			if err != nil {
				return nil, fmt.Errorf("open cache %s: %w", cfg.Path, err)
			}
			backend = db
		}
	}

	storeOpts := []cache.StoreOption{
		cache.WithTTLs(cfg.TTLs),
		cache.WithLogger(logger.Named("cache")),
	}
	if cfg.L1MaxCost > 0 {
		l1, err := cache.NewL1(cfg.L1MaxCost)
		if err != nil {
			return nil, fmt.Errorf("create l1 cache: %w", err)
		}
		storeOpts = append(storeOpts, cache.WithL1(l1))
	}

	store := cache.NewStore(backend, storeOpts...)
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init cache: %w", err)
	}
	return store, nil
}

// Close releases the cache.
func (a *App) Close() error {
	return a.Store.Close()
}
