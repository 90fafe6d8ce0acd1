package config

import (
	"fmt"
	"net/url"
)

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate returns every problem found in c.
func (c *Config) Validate() []error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Server.GRPCAddr == "" {
		add("server.grpc_addr", "must not be empty")
	}
	if c.Server.RateLimitRPS < 0 || c.Server.AnalyzeRPS < 0 {
		add("server.rate_limit_rps", "rates must not be negative")
	}
	if (c.Server.RateLimitRPS > 0 || c.Server.AnalyzeRPS > 0) && c.Server.RateLimitBurst < 1 {
		add("server.rate_limit_burst", "must be at least 1 when a rate limit is set, got %d", c.Server.RateLimitBurst)
	}

	switch c.Cache.Backend {
	case "sqlite":
		if c.Cache.Path == "" {
			add("cache.path", "required for the sqlite backend")
		}
	case "redis":
		if c.Cache.RedisAddr == "" {
			add("cache.redis_addr", "required for the redis backend")
		}
	default:
		add("cache.backend", "must be sqlite or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.L1MaxCost < 0 {
		add("cache.l1_max_cost", "must not be negative")
	}
	if c.Cache.FailureTTL < 0 {
		add("cache.failure_ttl", "must not be negative")
	}
	for p, ttl := range c.Cache.TTLs {
		if ttl <= 0 {
			add("cache.ttls."+p, "must be positive, got %s", ttl)
		}
	}

	if c.HTTP.TimeoutSeconds <= 0 {
		add("http.timeout", "must be positive, got %g", c.HTTP.TimeoutSeconds)
	}
	if c.HTTP.Retries < 0 {
		add("http.retries", "must not be negative, got %d", c.HTTP.Retries)
	}
	if c.HTTP.BreakerThreshold < 1 {
		add("http.breaker_threshold", "must be at least 1, got %d", c.HTTP.BreakerThreshold)
	}

	for field, raw := range map[string]string{
		"providers.civic_url":           c.Providers.CIViCURL,
		"providers.vep_url":             c.Providers.VEPURL,
		"providers.clinvar_search_url":  c.Providers.ClinVarSearchURL,
		"providers.clinvar_summary_url": c.Providers.ClinVarSummaryURL,
		"providers.oncokb_url":          c.Providers.OncoKBURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			add(field, "must be an absolute URL, got %q", raw)
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		add("logging.level", "must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		add("logging.format", "must be json or console, got %q", c.Logging.Format)
	}

	return errs
}
