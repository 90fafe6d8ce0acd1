// Package config loads runtime settings from an optional YAML file,
// environment variables and defaults, in increasing order of precedence:
// defaults < file < environment.
//
// Every key can be set through ONCOANNOT_<SECTION>_<KEY>. The settings
// inherited from the original deployment scripts also accept their historic
// names (HTTP_TIMEOUT, CIVIC_URL, PGX_CACHE_DB, ...).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Cache     CacheConfig     `mapstructure:"cache"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Evidence  EvidenceConfig  `mapstructure:"evidence"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	GRPCAddr    string `mapstructure:"grpc_addr"`
	MetricsAddr string `mapstructure:"metrics_addr"` // empty disables /metrics
	// RateLimitRPS limits all RPCs together; 0 disables the global limit.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	// AnalyzeRPS limits Analyze on its own; 0 leaves it on the global limit.
	AnalyzeRPS      float64       `mapstructure:"analyze_rps"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type CacheConfig struct {
	Backend       string `mapstructure:"backend"` // sqlite or redis
	Path          string `mapstructure:"path"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	// L1MaxCost is the byte budget of the in-process front, counting each
	// entry's payload and identity; 0 disables it.
	L1MaxCost int64 `mapstructure:"l1_max_cost"`
	// TTLs overrides per-provider TTLs, e.g. {"CIVIC": "72h"}.
	TTLs       map[string]time.Duration `mapstructure:"ttls"`
	FailureTTL time.Duration            `mapstructure:"failure_ttl"`
}

type HTTPConfig struct {
	TimeoutSeconds     float64       `mapstructure:"timeout"`
	Retries            int           `mapstructure:"retries"`
	BreakerThreshold   int           `mapstructure:"breaker_threshold"`
	BreakerOpenTimeout time.Duration `mapstructure:"breaker_open_timeout"`
}

// Timeout returns the per-attempt timeout as a duration.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds * float64(time.Second))
}

type ProvidersConfig struct {
	CIViCURL          string `mapstructure:"civic_url"`
	VEPURL            string `mapstructure:"vep_url"`
	ClinVarSearchURL  string `mapstructure:"clinvar_search_url"`
	ClinVarSummaryURL string `mapstructure:"clinvar_summary_url"`
	NCBIAPIKey        string `mapstructure:"ncbi_api_key"`
	OncoKBURL         string `mapstructure:"oncokb_url"`
	OncoKBToken       string `mapstructure:"oncokb_token"`
}

type EvidenceConfig struct {
	Dir string `mapstructure:"dir"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or console
	File       string `mapstructure:"file"`   // empty logs to stderr
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type TracingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Service string `mapstructure:"service"`
}

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "ONCOANNOT"

// legacyEnv maps keys to the environment names used before the prefix.
var legacyEnv = map[string]string{
	"http.timeout":                  "HTTP_TIMEOUT",
	"http.retries":                  "HTTP_RETRIES",
	"providers.civic_url":           "CIVIC_URL",
	"providers.vep_url":             "VEP_URL",
	"providers.clinvar_search_url":  "CLINVAR_EUTILS",
	"providers.clinvar_summary_url": "CLINVAR_SUMMARY",
	"providers.ncbi_api_key":        "NCBI_API_KEY",
	"providers.oncokb_url":          "ONCOKB_URL",
	"providers.oncokb_token":        "ONCOKB_TOKEN",
	"cache.path":                    "PGX_CACHE_DB",
	"evidence.dir":                  "PGX_EVIDENCE_DIR",
}

// Load reads configuration. path may be empty, in which case only defaults
// and the environment apply; a missing file at path is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// viper lowercases map keys; provider names are upper case.
	ttls := make(map[string]time.Duration, len(cfg.Cache.TTLs))
	for p, ttl := range cfg.Cache.TTLs {
		ttls[strings.ToUpper(p)] = ttl
	}
	cfg.Cache.TTLs = ttls
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.grpc_addr", d.Server.GRPCAddr)
	v.SetDefault("server.metrics_addr", d.Server.MetricsAddr)
	v.SetDefault("server.rate_limit_rps", d.Server.RateLimitRPS)
	v.SetDefault("server.rate_limit_burst", d.Server.RateLimitBurst)
	v.SetDefault("server.analyze_rps", d.Server.AnalyzeRPS)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.redis_password", d.Cache.RedisPassword)
	v.SetDefault("cache.redis_db", d.Cache.RedisDB)
	v.SetDefault("cache.l1_max_cost", d.Cache.L1MaxCost)
	v.SetDefault("cache.ttls", map[string]time.Duration{})
	v.SetDefault("cache.failure_ttl", d.Cache.FailureTTL)

	v.SetDefault("http.timeout", d.HTTP.TimeoutSeconds)
	v.SetDefault("http.retries", d.HTTP.Retries)
	v.SetDefault("http.breaker_threshold", d.HTTP.BreakerThreshold)
	v.SetDefault("http.breaker_open_timeout", d.HTTP.BreakerOpenTimeout)

	v.SetDefault("providers.civic_url", d.Providers.CIViCURL)
	v.SetDefault("providers.vep_url", d.Providers.VEPURL)
	v.SetDefault("providers.clinvar_search_url", d.Providers.ClinVarSearchURL)
	v.SetDefault("providers.clinvar_summary_url", d.Providers.ClinVarSummaryURL)
	v.SetDefault("providers.ncbi_api_key", d.Providers.NCBIAPIKey)
	v.SetDefault("providers.oncokb_url", d.Providers.OncoKBURL)
	v.SetDefault("providers.oncokb_token", d.Providers.OncoKBToken)

	v.SetDefault("evidence.dir", d.Evidence.Dir)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.service", d.Tracing.Service)
}
