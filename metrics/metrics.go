// Package metrics declares the Prometheus collectors shared by the cache,
// provider adapters, and aggregator. Collectors register with the default
// registry and are served by [oncoannot.Server.MetricsHandler].
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheReads counts store reads by provider and outcome
	// (hit, miss, expired, error).
	CacheReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oncoannot_cache_reads_total",
			Help: "Cache store reads by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// CacheWrites counts store writes by provider and outcome (ok, error).
	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oncoannot_cache_writes_total",
			Help: "Cache store writes by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderFetches counts network fetches by provider and result status.
	ProviderFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oncoannot_provider_fetches_total",
			Help: "Upstream fetches by provider and result status",
		},
		[]string{"provider", "status"},
	)

	ProviderFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oncoannot_provider_fetch_duration_seconds",
			Help:    "Upstream fetch duration in seconds, retries included",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"provider"},
	)

	// BreakerOpen is 1 while the provider's circuit breaker rejects calls.
	BreakerOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "oncoannot_provider_breaker_open",
			Help: "Whether the provider circuit breaker is open",
		},
		[]string{"provider"},
	)

	Findings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oncoannot_findings_total",
			Help: "Findings produced by source",
		},
		[]string{"source"},
	)

	Analyses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oncoannot_analyses_total",
			Help: "Analyze calls by outcome (ok, invalid_tumor)",
		},
		[]string{"outcome"},
	)

	// RPCPanics counts handler panics turned into codes.Internal.
	RPCPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oncoannot_rpc_panics_total",
			Help: "Handler panics recovered by method",
		},
		[]string{"method"},
	)
)
