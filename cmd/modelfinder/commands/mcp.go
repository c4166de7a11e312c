package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/modelfinder/pkg/config"
	"github.com/Sumatoshi-tech/modelfinder/pkg/mcp"
	"github.com/Sumatoshi-tech/modelfinder/pkg/observability"
)

const (
	flagMetricsAddr = "metrics-addr"

	metricsShutdownTimeout = 5 * time.Second
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var metricsAddr string

	flags := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes model discovery as tools that AI agents can invoke:
  - discover_models: list the models of a directory (ignore and focus supported)
  - model_relations: describe one model and its relations

--metrics-addr additionally serves Prometheus metrics on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd, flags, metricsAddr)
		},
	}

	flags.register(cmd, false)
	cmd.Flags().StringVar(&metricsAddr, flagMetricsAddr, "", "serve Prometheus metrics on this address (e.g. :9464)")

	return cmd
}

func runMCP(cmd *cobra.Command, flags *scanFlags, metricsAddr string) error {
	if metricsAddr == "" {
		addr, err := configuredMetricsAddr(cmd)
		if err != nil {
			return err
		}

		metricsAddr = addr
	}

	opts := []sessionOption{withMode(observability.ModeMCP)}

	var metricsServer *observability.MetricsServer

	if metricsAddr != "" {
		ms, err := observability.NewMetricsServer(metricsAddr)
		if err != nil {
			return err
		}

		metricsServer = ms

		opts = append(opts, withObservability(observability.WithMetricReader(ms.Reader())))
	}

	sess, err := newSession(cmd, flags, opts...)
	if err != nil {
		return err
	}
	defer sess.close()

	ctx := cmd.Context()

	if metricsServer != nil {
		startErr := metricsServer.Start(ctx, sess.providers.Tracer, sess.logger)
		if startErr != nil {
			return startErr
		}
		defer stopMetrics(metricsServer)
	}

	srv, err := mcp.NewServer(mcp.ServerDeps{
		Engine:   sess.engine,
		Defaults: sess.request(nil),
		Logger:   sess.logger,
		Metrics:  sess.metrics,
		Tracer:   sess.providers.Tracer,
	})
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}

// configuredMetricsAddr reads telemetry.metrics_addr ahead of the session,
// since the Prometheus reader must exist before the meter provider.
func configuredMetricsAddr(cmd *cobra.Command) (string, error) {
	configPath, _ := cmd.Flags().GetString(flagConfig)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return "", err
	}

	return cfg.Telemetry.MetricsAddr, nil
}

func stopMetrics(ms *observability.MetricsServer) {
	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()

	_ = ms.Shutdown(ctx)
}
