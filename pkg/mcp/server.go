// Package mcp implements a Model Context Protocol server exposing model
// discovery as MCP tools over stdio transport.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/modelfinder/pkg/discovery"
	"github.com/Sumatoshi-tech/modelfinder/pkg/observability"
	"github.com/Sumatoshi-tech/modelfinder/pkg/version"
)

const (
	serverName = "modelfinder"

	toolCount = 2
)

// ErrNoEngine is returned by NewServer when ServerDeps.Engine is nil.
var ErrNoEngine = errors.New("mcp server requires a discovery engine")

// ServerDeps holds injectable dependencies for the MCP server.
type ServerDeps struct {
	// Engine runs the discovery queries. Required.
	Engine *discovery.Engine

	// Defaults supplies ignore entries added to every query, and the
	// recursive flag used when a call leaves it unset.
	Defaults discovery.Request

	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics records per-tool call counts, durations and outcomes. Nil
	// disables per-tool metrics.
	Metrics *observability.DiscoveryMetrics

	// Tracer is an optional OTel tracer for per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer
}

// Server wraps the MCP SDK server with the discovery tools.
type Server struct {
	inner    *mcpsdk.Server
	engine   *discovery.Engine
	defaults discovery.Request
	logger   *slog.Logger
	mu       sync.RWMutex
	tools    []string
	metrics  *observability.DiscoveryMetrics
	tracer   trace.Tracer
}

// NewServer creates a new MCP server with all tools registered.
func NewServer(deps ServerDeps) (*Server, error) {
	if deps.Engine == nil {
		return nil, ErrNoEngine
	}

	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		opts,
	)

	srv := &Server{
		inner:    inner,
		engine:   deps.Engine,
		defaults: deps.Defaults,
		logger:   logger,
		tools:    make([]string, 0, toolCount),
		metrics:  deps.Metrics,
		tracer:   deps.Tracer,
	}

	srv.registerTools()

	return srv, nil
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport starts the MCP server on the given transport. It blocks
// until the context is canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameDiscover,
		Description: discoverToolDescription,
	}, wrapTool[DiscoverInput](s, ToolNameDiscover, s.handleDiscover))

	s.trackTool(ToolNameDiscover)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameRelations,
		Description: relationsToolDescription,
	}, wrapTool[RelationsInput](s, ToolNameRelations, s.handleRelations))

	s.trackTool(ToolNameRelations)
}

// mcpSpanPrefix is the prefix for MCP tool span names.
const mcpSpanPrefix = "mcp."

// traceIDMetaKey is the metadata key for trace_id in MCP tool responses.
const traceIDMetaKey = "trace_id"

// Tool outcomes that are not scan outcomes.
const (
	outcomeInvalidInput = "invalid_input"
	outcomeNotFound     = "not_found"
)

// wrapTool stacks the tool middlewares: the span is outermost so error
// results still carry the trace_id, and metrics see the handler's Go error
// before it becomes an isError result.
func wrapTool[Input any](
	s *Server, toolName string, handler mcpsdk.ToolHandlerFor[Input, ToolOutput],
) mcpsdk.ToolHandlerFor[Input, ToolOutput] {
	return withTracing(s.tracer, toolName, asToolResult(withMetrics(s.metrics, toolName, handler)))
}

// withTracing wraps an MCP tool handler to create an OTel span per invocation
// and include trace_id in the response content when sampled.
func withTracing[Input any](
	tracer trace.Tracer, toolName string, handler mcpsdk.ToolHandlerFor[Input, ToolOutput],
) mcpsdk.ToolHandlerFor[Input, ToolOutput] {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			traceContent := &mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())}
			result.Content = append(result.Content, traceContent)
		}

		return result, output, err
	}
}

// asToolResult reports a handler error to the client as an isError result
// instead of a protocol error, and marks the current span failed.
func asToolResult[Input any](
	handler mcpsdk.ToolHandlerFor[Input, ToolOutput],
) mcpsdk.ToolHandlerFor[Input, ToolOutput] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		result, output, err := handler(ctx, req, input)
		if err == nil {
			return result, output, nil
		}

		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return errorResult(err)
	}
}

// withMetrics wraps an MCP tool handler to record the call count, duration
// and outcome of every invocation.
func withMetrics[Input any](
	metrics *observability.DiscoveryMetrics, toolName string, handler mcpsdk.ToolHandlerFor[Input, ToolOutput],
) mcpsdk.ToolHandlerFor[Input, ToolOutput] {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()

		done := metrics.TrackTool(ctx, toolName)
		defer done()

		result, output, err := handler(ctx, req, input)

		metrics.RecordTool(ctx, toolName, toolOutcome(err), time.Since(start))

		return result, output, err
	}
}

// toolOutcome classifies a tool error for the outcome metric attribute.
func toolOutcome(err error) string {
	switch {
	case errors.Is(err, ErrEmptyDirectory), errors.Is(err, ErrDirectoryNotAbsolute), errors.Is(err, ErrEmptyModel):
		return outcomeInvalidInput
	case errors.Is(err, ErrModelNotFound):
		return outcomeNotFound
	default:
		return discovery.Outcome(err)
	}
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

const (
	discoverToolDescription = "List the concrete Eloquent model classes declared under a directory of PHP sources. " +
		"Optionally exclude classes (ignore) or restrict the result to the focus classes " +
		"and the models with a direct relation to one of them (focus)."

	relationsToolDescription = "Describe one discovered Eloquent model: its file, parent class, " +
		"and the relations declared by its methods (name, type, related model, keys)."
)
