package discovery_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/modelfinder/pkg/discovery"
	"github.com/Sumatoshi-tech/modelfinder/pkg/observability"
)

func scansByOutcome(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	scans := make(map[string]int64)

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "modelfinder.discovery.scans.total" {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)

			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
				scans[outcome.AsString()] += dp.Value
			}
		}
	}

	return scans
}

func TestScan_RecordsOutcomeMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()

	metrics, err := observability.NewDiscoveryMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	engine := newEngine(t, discovery.Options{Metrics: metrics})
	ctx := context.Background()

	_, err = engine.Scan(ctx, discovery.Request{Directory: scenarioTree(t)})
	require.NoError(t, err)

	_, err = engine.Scan(ctx, discovery.Request{Directory: writeTree(t, map[string]string{
		"Broken.php": "<?php\nnamespace App;\n\nclass Broken extends {\n",
	})})
	require.Error(t, err)

	_, err = engine.Scan(ctx, discovery.Request{Directory: writeTree(t, map[string]string{
		"A.php": "<?php\nnamespace App;\nclass A extends B {}\n",
		"B.php": "<?php\nnamespace App;\nclass B extends A {}\n",
	})})
	require.Error(t, err)

	_, err = engine.Scan(ctx, discovery.Request{Directory: filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	_, err = engine.Scan(canceled, discovery.Request{Directory: scenarioTree(t)})
	require.Error(t, err)

	assert.Equal(t, map[string]int64{
		discovery.OutcomeOK:                1,
		discovery.OutcomeParseError:        1,
		discovery.OutcomeResolutionError:   1,
		discovery.OutcomeDirectoryNotFound: 1,
		discovery.OutcomeCanceled:          1,
	}, scansByOutcome(t, reader))
}
