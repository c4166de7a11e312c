package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/modelfinder/pkg/observability"
)

func newTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()

	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func counterTotal(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

// countWhere sums the data points of an int64 sum whose attributes contain
// every given key/value pair.
func countWhere(t *testing.T, m *metricdata.Metrics, kvs ...attribute.KeyValue) int64 {
	t.Helper()
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64

	for _, dp := range sum.DataPoints {
		matched := true

		for _, kv := range kvs {
			value, found := dp.Attributes.Value(kv.Key)
			if !found || value != kv.Value {
				matched = false

				break
			}
		}

		if matched {
			total += dp.Value
		}
	}

	return total
}

func TestDiscoveryMetrics_RecordScan(t *testing.T) {
	t.Parallel()

	mp, reader := newTestMeter(t)

	dm, err := observability.NewDiscoveryMetrics(mp.Meter("test"))
	require.NoError(t, err)

	dm.RecordScan(context.Background(), observability.ScanStats{
		Files:     10,
		Parsed:    7,
		CacheHits: 3,
		Models:    4,
		Duration:  250 * time.Millisecond,
	})

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(10), counterTotal(t, findMetric(rm, "modelfinder.discovery.files.scanned.total")))
	assert.Equal(t, int64(7), counterTotal(t, findMetric(rm, "modelfinder.discovery.files.parsed.total")))
	assert.Equal(t, int64(3), counterTotal(t, findMetric(rm, "modelfinder.discovery.cache.hits.total")))
	assert.Equal(t, int64(7), counterTotal(t, findMetric(rm, "modelfinder.discovery.cache.misses.total")))
	assert.Equal(t, int64(4), counterTotal(t, findMetric(rm, "modelfinder.discovery.models.total")))
	assert.Equal(t, int64(1), countWhere(t, findMetric(rm, "modelfinder.discovery.scans.total"),
		attribute.String("outcome", observability.OutcomeOK)))
	assert.NotNil(t, findMetric(rm, "modelfinder.discovery.scan.duration.seconds"))
}

func TestDiscoveryMetrics_RecordScanFailure(t *testing.T) {
	t.Parallel()

	mp, reader := newTestMeter(t)

	dm, err := observability.NewDiscoveryMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	dm.RecordScan(ctx, observability.ScanStats{Files: 2, Duration: time.Millisecond})
	dm.RecordScanFailure(ctx, "parse_error", time.Millisecond)
	dm.RecordScanFailure(ctx, "parse_error", time.Millisecond)
	dm.RecordScanFailure(ctx, "directory_not_found", time.Millisecond)

	scans := findMetric(collectMetrics(t, reader), "modelfinder.discovery.scans.total")

	assert.Equal(t, int64(4), counterTotal(t, scans))
	assert.Equal(t, int64(1), countWhere(t, scans, attribute.String("outcome", "ok")))
	assert.Equal(t, int64(2), countWhere(t, scans, attribute.String("outcome", "parse_error")))
	assert.Equal(t, int64(1), countWhere(t, scans, attribute.String("outcome", "directory_not_found")))
}

func TestDiscoveryMetrics_RecordTool(t *testing.T) {
	t.Parallel()

	mp, reader := newTestMeter(t)

	dm, err := observability.NewDiscoveryMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	dm.RecordTool(ctx, "discover_models", "ok", 100*time.Millisecond)
	dm.RecordTool(ctx, "discover_models", "resolution_error", time.Second)
	dm.RecordTool(ctx, "model_relations", "not_found", time.Millisecond)

	rm := collectMetrics(t, reader)
	calls := findMetric(rm, "modelfinder.mcp.tool.calls.total")

	assert.Equal(t, int64(3), counterTotal(t, calls))
	assert.Equal(t, int64(2), countWhere(t, calls, attribute.String("tool", "discover_models")))
	assert.Equal(t, int64(1), countWhere(t, calls,
		attribute.String("tool", "discover_models"), attribute.String("outcome", "resolution_error")))
	assert.Equal(t, int64(1), countWhere(t, calls,
		attribute.String("tool", "model_relations"), attribute.String("outcome", "not_found")))
	assert.NotNil(t, findMetric(rm, "modelfinder.mcp.tool.duration.seconds"))
}

func TestDiscoveryMetrics_TrackTool(t *testing.T) {
	t.Parallel()

	mp, reader := newTestMeter(t)

	dm, err := observability.NewDiscoveryMetrics(mp.Meter("test"))
	require.NoError(t, err)

	done := dm.TrackTool(context.Background(), "model_relations")
	assert.Equal(t, int64(1), counterTotal(t, findMetric(collectMetrics(t, reader), "modelfinder.mcp.tool.inflight")))

	done()
	assert.Equal(t, int64(0), counterTotal(t, findMetric(collectMetrics(t, reader), "modelfinder.mcp.tool.inflight")))
}

func TestDiscoveryMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var dm *observability.DiscoveryMetrics

	ctx := context.Background()

	assert.NotPanics(t, func() {
		dm.RecordScan(ctx, observability.ScanStats{Files: 1})
		dm.RecordScanFailure(ctx, "canceled", time.Millisecond)
		dm.RecordTool(ctx, "discover_models", "ok", time.Millisecond)
		dm.TrackTool(ctx, "discover_models")()
	})
}
