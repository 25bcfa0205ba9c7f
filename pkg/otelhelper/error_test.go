package otelhelper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

	_, span := StartSpan(context.Background(), tracer, "expand")
	SetError(span, fmt.Errorf("resolve: %w", errdefs.NotFound("prompt", "greet")))
	span.End()

	_, clean := StartSpan(context.Background(), tracer, "clean")
	SetError(clean, nil)
	clean.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Len(t, spans[0].Events(), 1)

	kinds := map[string]string{}
	for _, attr := range spans[0].Attributes() {
		kinds[string(attr.Key)] = attr.Value.AsString()
	}

	assert.Equal(t, "not_found", kinds[ErrorKindKey])

	assert.Equal(t, codes.Unset, spans[1].Status().Code)
	assert.Empty(t, spans[1].Events())
}

func TestNoop(t *testing.T) {
	_, span := StartSpan(context.Background(), Noop(), "noop")
	SetError(span, errors.New("boom"))
	span.End()

	assert.False(t, span.SpanContext().IsValid())
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), "pcp-test", otlptracehttp.WithEndpoint("127.0.0.1:1"), otlptracehttp.WithInsecure())
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), p.Tracer(), "expand")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// The endpoint is unreachable, so only check that shutdown returns.
	_ = p.Shutdown(ctx)
}
