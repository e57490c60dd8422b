package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
)

func TestNewExporterSelectsOTLPWhenHostSet(t *testing.T) {
	t.Setenv("OTEL_HOST", "collector:4317")

	exp, err := NewExporter(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &otlptrace.Exporter{}, exp)
	// Never started, so shutdown does not touch the network.
	assert.NoError(t, exp.Shutdown(context.Background()))
}

func TestNewExporterDefaultsToStdout(t *testing.T) {
	t.Setenv("OTEL_HOST", "")

	exp, err := NewExporter(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &stdouttrace.Exporter{}, exp)
}
