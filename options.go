package oncoannot

import (
	"github.com/Keksclan/oncoannot/ratelimit"
	"github.com/Keksclan/oncoannot/rpc"
	"github.com/Keksclan/oncoannot/tracing"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Option configures a Server.
type Option func(*config)

// WithUnaryInterceptor adds a custom unary interceptor after the built-in ones.
func WithUnaryInterceptor(i grpc.UnaryServerInterceptor) Option {
	return func(c *config) {
		c.middlewares.Add("custom", OrderCustom, i, nil)
	}
}

// WithStreamInterceptor adds a custom stream interceptor after the built-in ones.
func WithStreamInterceptor(i grpc.StreamServerInterceptor) Option {
	return func(c *config) {
		c.middlewares.Add("custom", OrderCustom, nil, i)
	}
}

// WithLogger sets the logger shared by the recovery and access-log
// middleware and the registered services.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithRecovery converts handler panics into codes.Internal.
func WithRecovery() Option {
	return func(c *config) { c.recovery = true }
}

// WithRequestID assigns every RPC a request id, honouring x-request-id.
func WithRequestID() Option {
	return func(c *config) { c.requestID = true }
}

// WithAccessLog logs one line per RPC.
func WithAccessLog() Option {
	return func(c *config) { c.accessLog = true }
}

// WithTracing opens a server span per RPC. A nil cfg uses the global
// OpenTelemetry provider.
func WithTracing(cfg *tracing.TracingConfig) Option {
	return func(c *config) {
		if cfg == nil {
			cfg = &tracing.TracingConfig{}
		}
		c.tracing = cfg
	}
}

// WithRateLimitGlobal limits all RPCs together.
func WithRateLimitGlobal(rps float64, burst int) Option {
	return func(c *config) { c.globalLimit = ratelimit.NewLimiter(rps, burst) }
}

// WithRateLimitMethod limits one method, identified by its full name
// (e.g. rpc.AnalyzeMethod), independently of the global limit.
func WithRateLimitMethod(fullMethod string, rps float64, burst int) Option {
	return func(c *config) {
		if c.methodLimits == nil {
			c.methodLimits = make(map[string]*ratelimit.Limiter)
		}
		c.methodLimits[fullMethod] = ratelimit.NewLimiter(rps, burst)
	}
}

// WithAnalyzer registers the Annotator service backed by a.
func WithAnalyzer(a rpc.Analyzer) Option {
	return func(c *config) { c.analyzer = a }
}

// WithHealth registers the Health service backed by h.
func WithHealth(h rpc.Checker) Option {
	return func(c *config) { c.checker = h }
}

// WithGRPCServerOption passes o through to grpc.NewServer, e.g.
// grpc.MaxRecvMsgSize for large variant batches.
func WithGRPCServerOption(o grpc.ServerOption) Option {
	return func(c *config) { c.serverOptions = append(c.serverOptions, o) }
}
