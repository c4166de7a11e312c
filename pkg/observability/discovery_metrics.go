package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFilesScanned     = "modelfinder.discovery.files.scanned.total"
	metricFilesParsed      = "modelfinder.discovery.files.parsed.total"
	metricCacheHitsTotal   = "modelfinder.discovery.cache.hits.total"
	metricCacheMissesTotal = "modelfinder.discovery.cache.misses.total"
	metricModelsTotal      = "modelfinder.discovery.models.total"
	metricScanDuration     = "modelfinder.discovery.scan.duration.seconds"
	metricScansTotal       = "modelfinder.discovery.scans.total"
	metricToolCalls        = "modelfinder.mcp.tool.calls.total"
	metricToolDuration     = "modelfinder.mcp.tool.duration.seconds"
	metricToolInflight     = "modelfinder.mcp.tool.inflight"

	attrOutcome = "outcome"
	attrTool    = "tool"

	// OutcomeOK is the outcome attribute of a scan or tool call that succeeded.
	OutcomeOK = "ok"
)

// durationBucketBoundaries covers 1ms to 120s: a small project scans in
// milliseconds, a monorepo with vendor type paths in tens of seconds.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// DiscoveryMetrics holds OTel instruments for model discovery scans and the
// MCP tool calls that trigger them. Scans and tool calls carry an "outcome"
// attribute naming the class of failure (parse_error, resolution_error,
// directory_not_found, ...) or "ok".
type DiscoveryMetrics struct {
	filesScanned metric.Int64Counter
	filesParsed  metric.Int64Counter
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
	models       metric.Int64Counter
	scans        metric.Int64Counter
	scanDuration metric.Float64Histogram
	toolCalls    metric.Int64Counter
	toolDuration metric.Float64Histogram
	toolInflight metric.Int64UpDownCounter
}

// ScanStats holds the statistics of a single completed scan, decoupled from
// the discovery package types.
type ScanStats struct {
	Files     int
	Parsed    int
	CacheHits int
	Models    int
	Duration  time.Duration
}

// NewDiscoveryMetrics creates discovery metric instruments from the given meter.
func NewDiscoveryMetrics(mt metric.Meter) (*DiscoveryMetrics, error) {
	scanned, err := mt.Int64Counter(metricFilesScanned,
		metric.WithDescription("Source files enumerated by discovery scans"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFilesScanned, err)
	}

	parsed, err := mt.Int64Counter(metricFilesParsed,
		metric.WithDescription("Source files parsed by discovery scans"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFilesParsed, err)
	}

	hits, err := mt.Int64Counter(metricCacheHitsTotal,
		metric.WithDescription("Declaration cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCacheHitsTotal, err)
	}

	misses, err := mt.Int64Counter(metricCacheMissesTotal,
		metric.WithDescription("Declaration cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCacheMissesTotal, err)
	}

	models, err := mt.Int64Counter(metricModelsTotal,
		metric.WithDescription("Models reported by discovery scans"),
		metric.WithUnit("{model}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricModelsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricScanDuration,
		metric.WithDescription("Discovery scan duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricScanDuration, err)
	}

	scans, err := mt.Int64Counter(metricScansTotal,
		metric.WithDescription("Discovery scans by outcome"),
		metric.WithUnit("{scan}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricScansTotal, err)
	}

	calls, err := mt.Int64Counter(metricToolCalls,
		metric.WithDescription("MCP tool calls by tool and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolCalls, err)
	}

	toolDuration, err := mt.Float64Histogram(metricToolDuration,
		metric.WithDescription("MCP tool call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolDuration, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricToolInflight,
		metric.WithDescription("MCP tool calls currently running"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricToolInflight, err)
	}

	return &DiscoveryMetrics{
		filesScanned: scanned,
		filesParsed:  parsed,
		cacheHits:    hits,
		cacheMisses:  misses,
		models:       models,
		scans:        scans,
		scanDuration: duration,
		toolCalls:    calls,
		toolDuration: toolDuration,
		toolInflight: inflight,
	}, nil
}

// RecordScan records the statistics of a completed scan.
// Safe to call on a nil receiver (no-op).
func (dm *DiscoveryMetrics) RecordScan(ctx context.Context, stats ScanStats) {
	if dm == nil {
		return
	}

	dm.filesScanned.Add(ctx, int64(stats.Files))
	dm.filesParsed.Add(ctx, int64(stats.Parsed))
	dm.cacheHits.Add(ctx, int64(stats.CacheHits))
	dm.cacheMisses.Add(ctx, int64(stats.Files-stats.CacheHits))
	dm.models.Add(ctx, int64(stats.Models))
	dm.recordScanOutcome(ctx, OutcomeOK, stats.Duration)
}

// RecordScanFailure records a scan that returned an error, classified by
// outcome. Safe to call on a nil receiver (no-op).
func (dm *DiscoveryMetrics) RecordScanFailure(ctx context.Context, outcome string, duration time.Duration) {
	if dm == nil {
		return
	}

	dm.recordScanOutcome(ctx, outcome, duration)
}

func (dm *DiscoveryMetrics) recordScanOutcome(ctx context.Context, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(attrOutcome, outcome))

	dm.scans.Add(ctx, 1, attrs)
	dm.scanDuration.Record(ctx, duration.Seconds(), attrs)
}

// TrackTool increments the in-flight gauge of tool and returns the function
// that decrements it. Safe to call on a nil receiver.
func (dm *DiscoveryMetrics) TrackTool(ctx context.Context, tool string) func() {
	if dm == nil {
		return func() {}
	}

	attrs := metric.WithAttributes(attribute.String(attrTool, tool))
	dm.toolInflight.Add(ctx, 1, attrs)

	return func() {
		dm.toolInflight.Add(ctx, -1, attrs)
	}
}

// RecordTool records one completed call of tool.
// Safe to call on a nil receiver (no-op).
func (dm *DiscoveryMetrics) RecordTool(ctx context.Context, tool, outcome string, duration time.Duration) {
	if dm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, tool),
		attribute.String(attrOutcome, outcome),
	)

	dm.toolCalls.Add(ctx, 1, attrs)
	dm.toolDuration.Record(ctx, duration.Seconds(), attrs)
}
