package tracing

import (
	"context"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartClientSpan starts a client span for an outbound call to provider and
// injects the trace context into req's headers. A nil cfg yields a
// non-recording span so callers never need to branch.
func StartClientSpan(ctx context.Context, cfg *TracingConfig, provider string, req *http.Request) (context.Context, trace.Span) {
	if cfg == nil {
		return ctx, trace.SpanFromContext(context.Background())
	}
	ctx, span := cfg.tracer().Start(ctx, provider+" "+req.Method, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("provider", provider),
		attribute.String("http.request.method", req.Method),
		attribute.String("server.address", req.URL.Host),
		attribute.String("url.path", req.URL.Path),
	)
	cfg.propagators().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return ctx, span
}

// EndClientSpan records the HTTP status (0 when no response arrived) and
// error, then ends span.
func EndClientSpan(span trace.Span, statusCode int, err error) {
	if statusCode > 0 {
		span.SetAttributes(attribute.String("http.response.status_code", strconv.Itoa(statusCode)))
	}
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case statusCode >= 400:
		span.SetStatus(codes.Error, http.StatusText(statusCode))
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
