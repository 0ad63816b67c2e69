package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func attributeKey(k string) attribute.Key { return attribute.Key(k) }

func newTestSpans(t *testing.T) (SpanManager, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewSpanManagerFrom(tp), exporter
}

func TestSpanManager_RunAndNodeSpans(t *testing.T) {
	spans, exporter := newTestSpans(t)

	ctx, runSpan := spans.StartRunSpan(context.Background(), "news", "run-7")
	_, nodeSpan := spans.StartNodeSpan(ctx, "summarize")
	spans.EndSpanWithError(nodeSpan, nil)
	spans.EndSpanWithError(runSpan, nil)

	got := exporter.GetSpans()
	require.Len(t, got, 2)

	node, run := got[0], got[1]
	assert.Equal(t, "feedgraph.node.summarize", node.Name)
	assert.Equal(t, "feedgraph.run", run.Name)
	assert.Equal(t, run.SpanContext.SpanID(), node.Parent.SpanID())
	assert.Contains(t, run.Attributes, attribute.String("run.id", "run-7"))
	assert.Contains(t, run.Attributes, attribute.String("graph.name", "news"))
	assert.Equal(t, codes.Ok, run.Status.Code)
}

func TestSpanManager_EndSpanWithError(t *testing.T) {
	spans, exporter := newTestSpans(t)

	_, span := spans.StartNodeSpan(context.Background(), "fetch")
	spans.EndSpanWithError(span, errors.New("feed unreachable"))

	got := exporter.GetSpans()
	require.Len(t, got, 1)
	assert.Equal(t, codes.Error, got[0].Status.Code)
	assert.Equal(t, "feed unreachable", got[0].Status.Description)
	require.Len(t, got[0].Events, 1)
	assert.Equal(t, "exception", got[0].Events[0].Name)
}

func TestSpanManager_EndNilSpan(t *testing.T) {
	spans, _ := newTestSpans(t)
	assert.NotPanics(t, func() { spans.EndSpanWithError(nil, nil) })
}

func TestSpanManager_AddSpanEvent(t *testing.T) {
	spans, exporter := newTestSpans(t)

	ctx, span := spans.StartNodeSpan(context.Background(), "route")
	spans.AddSpanEvent(ctx, "routing.fallback", attribute.String("route.returned", "publish"))
	spans.EndSpanWithError(span, nil)

	got := exporter.GetSpans()
	require.Len(t, got, 1)
	require.Len(t, got[0].Events, 1)
	assert.Equal(t, "routing.fallback", got[0].Events[0].Name)

	// No span in context: ignored.
	assert.NotPanics(t, func() { spans.AddSpanEvent(context.Background(), "orphan") })
}

func TestNoopSpanManager(t *testing.T) {
	var spans SpanManager = NoopSpanManager{}
	ctx := context.Background()

	got, span := spans.StartRunSpan(ctx, "g", "r")
	assert.Equal(t, ctx, got)
	assert.False(t, span.IsRecording())

	got, span = spans.StartNodeSpan(ctx, "n")
	assert.Equal(t, ctx, got)
	assert.Equal(t, trace.SpanContext{}, span.SpanContext())

	assert.NotPanics(t, func() {
		spans.EndSpanWithError(span, errors.New("x"))
		spans.AddSpanEvent(ctx, "e")
	})
}
