// Package tracing configures the OpenTelemetry tracer provider: spans ship
// to an OTLP collector when one is configured, to stdout otherwise.
package tracing

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewExporter builds the span exporter: OTLP over gRPC against OTEL_HOST
// when set, pretty-printed stdout otherwise. The gRPC connection is lazy, so
// construction never blocks on the collector.
func NewExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	if host := os.Getenv("OTEL_HOST"); host != "" {
		return otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(host),
			otlptracegrpc.WithInsecure())
	}
	return stdouttrace.New(stdouttrace.WithPrettyPrint())
}

// Init installs the global tracer provider and returns its shutdown
// function.
func Init(ctx context.Context) (func(context.Context) error, error) {
	exp, err := NewExporter(ctx)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
