package telemetry_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/memo/internal/adapters/telemetry"
)

func setupRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr
}

func TestOTelTracerRecordsSpan(t *testing.T) {
	sr := setupRecorder(t)

	tracer := telemetry.NewOTelTracer("memo-test")
	_, span := tracer.Start(t.Context(), "analysis.analyze")
	span.SetAttribute("operation", "ast")
	span.SetAttribute("files", 3)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "analysis.analyze", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("operation", "ast"))
	assert.Contains(t, spans[0].Attributes(), attribute.Int("files", 3))
}

func TestOTelTracerRecordsError(t *testing.T) {
	sr := setupRecorder(t)

	tracer := telemetry.NewOTelTracer("memo-test")
	_, span := tracer.Start(t.Context(), "query.execute")
	span.RecordError(fmt.Errorf("executor exploded"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}
