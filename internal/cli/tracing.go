package cli

import (
	"context"
	"io"

	"github.com/Keksclan/oncoannot/config"
	"github.com/Keksclan/oncoannot/rpc"
	"github.com/Keksclan/oncoannot/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// newTracing returns nil when tracing is disabled. Spans are exported as
// JSON lines to w.
func newTracing(cfg config.TracingConfig, w io.Writer) (*tracing.TracingConfig, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return nil, noop, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, noop, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	prop := propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(prop)

	return &tracing.TracingConfig{
		TracerProvider: tp,
		Propagators:    prop,
		Filter: func(m string) bool { return m != rpc.HealthCheckMethod },
	}, tp.Shutdown, nil
}
