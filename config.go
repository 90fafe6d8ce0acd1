package oncoannot

import (
	"github.com/Keksclan/oncoannot/interceptors"
	"github.com/Keksclan/oncoannot/internal/core"
	"github.com/Keksclan/oncoannot/ratelimit"
	"github.com/Keksclan/oncoannot/rpc"
	"github.com/Keksclan/oncoannot/tracing"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Middleware order values. Lower values run first (outermost).
const (
	OrderRecovery  = 100
	OrderRequestID = 200
	OrderTracing   = 300
	OrderLogging   = 400
	OrderRateLimit = 500
	OrderCustom    = 1000
)

// config holds the internal configuration assembled via functional options.
type config struct {
	middlewares core.MiddlewareBuilder

	logger    *zap.Logger
	recovery  bool
	requestID bool
	accessLog bool
	tracing   *tracing.TracingConfig

	globalLimit  *ratelimit.Limiter
	methodLimits map[string]*ratelimit.Limiter

	analyzer rpc.Analyzer
	checker  rpc.Checker

	serverOptions []grpc.ServerOption
}

// apply registers the built-in middleware selected by options. Options may
// arrive in any order; the logger is only read here.
func (c *config) apply() {
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.recovery {
		c.middlewares.Add("recovery", OrderRecovery, interceptors.RecoveryUnary(c.logger), interceptors.RecoveryStream(c.logger))
	}
	if c.requestID {
		c.middlewares.Add("requestid", OrderRequestID, interceptors.RequestIDUnary(), interceptors.RequestIDStream())
	}
	if c.tracing != nil {
		c.middlewares.Add("tracing", OrderTracing, tracing.UnaryServerInterceptor(c.tracing), tracing.StreamServerInterceptor(c.tracing))
	}
	if c.accessLog {
		c.middlewares.Add("accesslog", OrderLogging, interceptors.LoggingUnary(c.logger), interceptors.LoggingStream(c.logger))
	}
	if c.globalLimit != nil || len(c.methodLimits) > 0 {
		c.middlewares.Add("ratelimit", OrderRateLimit,
			interceptors.RateLimitUnary(c.globalLimit, c.methodLimits),
			interceptors.RateLimitStream(c.globalLimit, c.methodLimits))
	}
}
