// Package mcp implements a Model Context Protocol server exposing an incrkit
// workload session (runs, diagnostics report, interner statistics) as MCP
// tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/incrkit/internal/observability"
	"github.com/Sumatoshi-tech/incrkit/internal/workload"
	"github.com/Sumatoshi-tech/incrkit/pkg/version"
)

const (
	serverName = "incrkit"

	// toolCount is the expected number of registered tools.
	toolCount = 3

	mcpSpanPrefix  = "mcp."
	traceIDMetaKey = "trace_id"
)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics is an optional RED metrics recorder. Nil disables per-tool metrics.
	Metrics *observability.REDMetrics

	// Tracer is an optional OTel tracer for per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer

	// Session holds the workload state. Nil creates a default session.
	Session *Session
}

// Server wraps the MCP SDK server with incrkit tool registrations.
type Server struct {
	inner   *mcpsdk.Server
	session *Session
	metrics *observability.REDMetrics
	tracer  trace.Tracer

	mu    sync.RWMutex
	tools []string
}

// NewServer creates a new MCP server with all incrkit tools registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	session := deps.Session
	if session == nil {
		session = NewSession(workload.Options{Caching: true, Logger: deps.Logger}, nil)
	}

	srv := &Server{
		inner: mcpsdk.NewServer(&mcpsdk.Implementation{
			Name:    serverName,
			Version: version.Version,
		}, opts),
		session: session,
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
		tools:   make([]string, 0, toolCount),
	}

	srv.registerTools()

	return srv
}

// Session returns the workload session behind the tools.
func (s *Server) Session() *Session { return s.session }

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run serves on stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves on transport until ctx is cancelled or the
// connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func (s *Server) registerTools() {
	addTool[RunInput](s, ToolNameRun, runToolDescription, s.handleRun)
	addTool[ReportInput](s, ToolNameReport, reportToolDescription, s.handleReport)
	addTool[StatsInput](s, ToolNameStats, statsToolDescription, s.handleStats)
}

type toolHandler[Input any] func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error)

func addTool[Input any](s *Server, name, description string, handler toolHandler[Input]) {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        name,
		Description: description,
	}, mcpsdk.ToolHandlerFor[Input, ToolOutput](withMetrics(s.metrics, name, withTracing(s.tracer, name, handler))))

	s.mu.Lock()
	s.tools = append(s.tools, name)
	s.mu.Unlock()
}

// withTracing wraps a tool handler in a server span and appends the trace id
// to the result when the span is sampled.
func withTracing[Input any](tracer trace.Tracer, toolName string, handler toolHandler[Input]) toolHandler[Input] {
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
			result.Content = append(result.Content, &mcpsdk.TextContent{
				Text: traceIDMetaKey + "=" + sc.TraceID().String(),
			})
		}

		return result, output, err
	}
}

// withMetrics wraps a tool handler to record RED metrics per invocation.
// Tool-level failures (IsError results) count as errors.
func withMetrics[Input any](metrics *observability.REDMetrics, toolName string, handler toolHandler[Input]) toolHandler[Input] {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		done := metrics.Track(ctx, mcpSpanPrefix+toolName)

		result, output, err := handler(ctx, req, input)

		outcome := err
		if outcome == nil && result != nil && result.IsError {
			outcome = errToolFailed
		}

		done(outcome)

		return result, output, err
	}
}

const (
	runToolDescription = "Run one incremental workload over a corpus (absolute paths, " +
		"or a synthetic corpus when none are given) using the session's shared interner. " +
		"Returns the run summary."

	reportToolDescription = "Render the diagnostics report: counters and the trace log of " +
		"recent events, as a block comment."

	statsToolDescription = "Return interner statistics (hits, misses, pruned, live buckets), " +
		"labelled counters and the last run summary as JSON."
)
