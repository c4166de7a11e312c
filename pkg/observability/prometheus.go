package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// MetricsPath is the scrape path served by [MetricsServer].
	MetricsPath = "/metrics"

	metricsReadTimeout = 5 * time.Second
)

// MetricsServer serves the discovery and tool metrics on a Prometheus
// scrape endpoint. The OTel reader it owns must be handed to Init with
// WithMetricReader before any instrument is created.
type MetricsServer struct {
	addr     string
	reader   sdkmetric.Reader
	handler  http.Handler
	server   *http.Server
	listener net.Listener
}

// NewMetricsServer creates the exporter and its private Prometheus registry.
// Nothing listens until Start.
func NewMetricsServer(addr string) (*MetricsServer, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &MetricsServer{
		addr:    addr,
		reader:  exporter,
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, nil
}

// Reader returns the OTel metric reader backing the endpoint.
func (ms *MetricsServer) Reader() sdkmetric.Reader {
	return ms.reader
}

// Start listens on the configured address and serves [MetricsPath] in the
// background, one server span per scrape.
func (ms *MetricsServer) Start(ctx context.Context, tracer trace.Tracer, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", ms.addr)
	if err != nil {
		return fmt.Errorf("listen metrics %s: %w", ms.addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(MetricsPath, HTTPMiddleware(tracer, ms.handler))

	ms.listener = listener
	ms.server = &http.Server{Handler: mux, ReadHeaderTimeout: metricsReadTimeout}

	go func() {
		serveErr := ms.server.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "metrics server failed", "error", serveErr)
		}
	}()

	logger.InfoContext(ctx, "serving metrics", "addr", listener.Addr().String(), "path", MetricsPath)

	return nil
}

// Addr returns the bound address once started, the configured one before.
func (ms *MetricsServer) Addr() string {
	if ms.listener == nil {
		return ms.addr
	}

	return ms.listener.Addr().String()
}

// Shutdown stops the endpoint. A server that never started is a no-op.
func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	if ms.server == nil {
		return nil
	}

	err := ms.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}

	return nil
}
