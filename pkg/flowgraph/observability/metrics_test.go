package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestRecorder(t *testing.T) (MetricsRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	rec := NewMetricsRecorderFrom(provider)
	_, isNoop := rec.(NoopMetrics)
	require.False(t, isNoop)
	return rec, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumFor returns the counter value for datapoints with attribute key=value.
func sumFor(t *testing.T, m *metricdata.Metrics, key, value string) int64 {
	t.Helper()
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64]")
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attributeKey(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestRecordNodeExecution(t *testing.T) {
	rec, reader := newTestRecorder(t)
	ctx := context.Background()

	rec.RecordNodeExecution(ctx, "fetch", 20*time.Millisecond, nil)
	rec.RecordNodeExecution(ctx, "fetch", 30*time.Millisecond, nil)
	rec.RecordNodeExecution(ctx, "review", 5*time.Millisecond, errors.New("model down"))

	rm := collect(t, reader)
	assert.Equal(t, int64(2), sumFor(t, findMetric(rm, "feedgraph.node.executions"), "node_id", "fetch"))
	assert.Equal(t, int64(1), sumFor(t, findMetric(rm, "feedgraph.node.errors"), "node_id", "review"))
	assert.Equal(t, int64(0), sumFor(t, findMetric(rm, "feedgraph.node.errors"), "node_id", "fetch"))

	latency := findMetric(rm, "feedgraph.node.latency_ms")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.NotEmpty(t, hist.DataPoints)
}

func TestRecordGraphRun(t *testing.T) {
	rec, reader := newTestRecorder(t)

	rec.RecordGraphRun(context.Background(), true, time.Second)
	rec.RecordGraphRun(context.Background(), false, time.Second)

	rm := collect(t, reader)
	runs := findMetric(rm, "feedgraph.graph.runs")
	require.NotNil(t, runs)
	sum, ok := runs.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sum.DataPoints, 2)
}

func TestRecordCheckpoint(t *testing.T) {
	rec, reader := newTestRecorder(t)

	rec.RecordCheckpoint(context.Background(), "filter", 2048)

	rm := collect(t, reader)
	size := findMetric(rm, "feedgraph.checkpoint.size_bytes")
	require.NotNil(t, size)
	hist, ok := size.Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, int64(2048), hist.DataPoints[0].Sum)
}

func TestRecordRoutingFallback(t *testing.T) {
	rec, reader := newTestRecorder(t)

	rec.RecordRoutingFallback(context.Background(), "route", "publish")

	rm := collect(t, reader)
	assert.Equal(t, int64(1), sumFor(t, findMetric(rm, "feedgraph.routing.fallbacks"), "returned", "publish"))
}

func TestNoopMetrics(t *testing.T) {
	var rec MetricsRecorder = NoopMetrics{}
	ctx := context.Background()
	assert.NotPanics(t, func() {
		rec.RecordNodeExecution(ctx, "n", time.Millisecond, errors.New("x"))
		rec.RecordGraphRun(ctx, true, time.Millisecond)
		rec.RecordCheckpoint(ctx, "n", 1)
		rec.RecordRoutingFallback(ctx, "n", "x")
	})
}
