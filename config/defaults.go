package config

import (
	"time"

	"github.com/Keksclan/oncoannot/provider"
)

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCAddr:        ":50051",
			MetricsAddr:     ":9090",
			RateLimitBurst:  50,
			ShutdownTimeout: 15 * time.Second,
		},
		Cache: CacheConfig{
			Backend:    "sqlite",
			Path:       "data/pgx_cache.sqlite",
			RedisAddr:  "localhost:6379",
			FailureTTL: provider.DefaultFailureTTL,
		},
		HTTP: HTTPConfig{
			TimeoutSeconds:     18,
			Retries:            2,
			BreakerThreshold:   5,
			BreakerOpenTimeout: 30 * time.Second,
		},
		Providers: ProvidersConfig{
			CIViCURL:          provider.DefaultCIViCURL,
			VEPURL:            provider.DefaultVEPURL,
			ClinVarSearchURL:  provider.DefaultClinVarSearchURL,
			ClinVarSummaryURL: provider.DefaultClinVarSummaryURL,
			OncoKBURL:         provider.DefaultOncoKBURL,
		},
		Evidence: EvidenceConfig{Dir: "clinical_evidence"},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Tracing: TracingConfig{Service: "oncoannot"},
	}
}
