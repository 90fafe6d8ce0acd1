// Package tracing provides OpenTelemetry spans for the annotator: server
// spans for incoming RPCs and client spans for outbound provider calls.
// Nothing is traced unless a [TracingConfig] is passed to the server's
// WithTracing option or to the HTTP client.
package tracing

import (
	"context"
	"strings"

	"github.com/Keksclan/oncoannot/contextx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	grpcStatus "google.golang.org/grpc/status"
)

const instrumentation = "github.com/Keksclan/oncoannot/tracing"

// TracingConfig selects the tracer provider and propagator. Zero fields fall
// back to the otel globals.
type TracingConfig struct {
	TracerProvider trace.TracerProvider
	Propagators    propagation.TextMapPropagator

	// Filter reports whether an RPC should get a server span. Nil traces
	// every method.
	Filter func(fullMethod string) bool
}

func (c *TracingConfig) tracer() trace.Tracer {
	if c.TracerProvider != nil {
		return c.TracerProvider.Tracer(instrumentation)
	}
	return otel.GetTracerProvider().Tracer(instrumentation)
}

func (c *TracingConfig) propagators() propagation.TextMapPropagator {
	if c.Propagators == nil {
		return otel.GetTextMapPropagator()
	}
	return c.Propagators
}

func (c *TracingConfig) traced(fullMethod string) bool {
	return c != nil && (c.Filter == nil || c.Filter(fullMethod))
}

// UnaryServerInterceptor starts a server span per unary RPC. A nil cfg
// disables tracing.
func UnaryServerInterceptor(cfg *TracingConfig) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !cfg.traced(info.FullMethod) {
			return handler(ctx, req)
		}
		ctx, span := startServerSpan(ctx, cfg, info.FullMethod)
		defer span.End()

		resp, err := handler(ctx, req)
		recordStatus(span, err)
		return resp, err
	}
}

// StreamServerInterceptor is UnaryServerInterceptor for streams. The
// handler sees a stream whose Context carries the span.
func StreamServerInterceptor(cfg *TracingConfig) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if !cfg.traced(info.FullMethod) {
			return handler(srv, ss)
		}
		ctx, span := startServerSpan(ss.Context(), cfg, info.FullMethod)
		defer span.End()

		err := handler(srv, &tracedStream{ServerStream: ss, ctx: ctx})
		recordStatus(span, err)
		return err
	}
}

// startServerSpan continues any trace found in the incoming metadata.
func startServerSpan(ctx context.Context, cfg *TracingConfig, fullMethod string) (context.Context, trace.Span) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.MD{}
	}
	ctx = cfg.propagators().Extract(ctx, mdCarrier(md))

	service, method := splitFullMethod(fullMethod)
	attrs := []attribute.KeyValue{
		attribute.String("rpc.system", "grpc"),
		attribute.String("rpc.service", service),
		attribute.String("rpc.method", method),
	}
	if id := contextx.RequestIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("request.id", id))
	}
	return cfg.tracer().Start(ctx, fullMethod,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
}

// mdCarrier lets propagators read gRPC metadata.
type mdCarrier metadata.MD

func (c mdCarrier) Get(key string) string {
	if v := metadata.MD(c).Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c mdCarrier) Set(key, value string) { metadata.MD(c).Set(key, value) }

func (c mdCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// splitFullMethod turns "/pkg.Service/Method" into its two parts.
func splitFullMethod(fullMethod string) (service, method string) {
	service, method, _ = strings.Cut(strings.TrimPrefix(fullMethod, "/"), "/")
	return service, method
}

func recordStatus(span trace.Span, err error) {
	st, _ := grpcStatus.FromError(err)
	span.SetAttributes(attribute.String("rpc.grpc.status_code", st.Code().String()))
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, st.Message())
}

type tracedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *tracedStream) Context() context.Context { return s.ctx }
