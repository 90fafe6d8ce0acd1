package oncoannot

import (
	"slices"
	"testing"

	"github.com/Keksclan/oncoannot/rpc"
	"github.com/Keksclan/oncoannot/tracing"
)

func applied(opts ...Option) *config {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	cfg.apply()
	return &cfg
}

func TestOptionsSelectMiddleware(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want []string
	}{
		{"none", nil, nil},
		{"defaults", DefaultOptions(), []string{"recovery(100)", "requestid(200)", "accesslog(400)"}},
		{"recovery only", []Option{WithRecovery()}, []string{"recovery(100)"}},
		{"tracing with nil config", []Option{WithTracing(nil)}, []string{"tracing(300)"}},
		{"method limit alone", []Option{WithRateLimitMethod(rpc.AnalyzeMethod, 1, 1)}, []string{"ratelimit(500)"}},
		{"global and method limit share one entry", []Option{
			WithRateLimitGlobal(10, 10),
			WithRateLimitMethod(rpc.AnalyzeMethod, 1, 1),
		}, []string{"ratelimit(500)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applied(tt.opts...).middlewares.Describe()
			if !slices.Equal(got, tt.want) {
				t.Fatalf("Describe() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithTracingNilUsesGlobalProvider(t *testing.T) {
	cfg := applied(WithTracing(nil))
	if cfg.tracing == nil || cfg.tracing.TracerProvider != nil {
		t.Fatalf("tracing = %+v, want empty config", cfg.tracing)
	}

	own := &tracing.TracingConfig{}
	if applied(WithTracing(own)).tracing != own {
		t.Fatal("explicit tracing config not kept")
	}
}

func TestWithRateLimitMethodKeepsOneLimiterPerMethod(t *testing.T) {
	cfg := applied(
		WithRateLimitMethod(rpc.AnalyzeMethod, 1, 1),
		WithRateLimitMethod(rpc.SuggestTumorsMethod, 5, 5),
		WithRateLimitMethod(rpc.AnalyzeMethod, 2, 2),
	)
	if len(cfg.methodLimits) != 2 {
		t.Fatalf("got %d method limiters", len(cfg.methodLimits))
	}
	if cfg.globalLimit != nil {
		t.Fatal("method limits must not install a global limiter")
	}
}

func TestApplyDefaultsLogger(t *testing.T) {
	if applied().logger == nil {
		t.Fatal("apply left logger nil")
	}
}

func TestCustomInterceptorsRunLast(t *testing.T) {
	cfg := applied(WithUnaryInterceptor(nil), WithRecovery())
	got := cfg.middlewares.Describe()
	if len(got) != 2 || got[0] != "recovery(100)" || got[1] != "custom(1000)" {
		t.Fatalf("Describe() = %v", got)
	}
}
