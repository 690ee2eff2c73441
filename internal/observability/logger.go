package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"
)

// TracingHandler decorates an [slog.Handler] with the ids of the span active
// in the record's context. The embedded handler already carries the service
// attributes, so they stay at the top level under WithGroup.
type TracingHandler struct {
	slog.Handler
}

// NewTracingHandler wraps inner, pre-attaching service, mode and, when set,
// env.
func NewTracingHandler(inner slog.Handler, service, env string, appMode AppMode) *TracingHandler {
	return &TracingHandler{Handler: inner.WithAttrs(serviceAttrs(service, env, appMode))}
}

// Handle appends trace_id and span_id for a valid span context.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(spanAttrs(ctx)...)

	if err := th.Handler.Handle(ctx, record); err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs keeps the tracing wrapper around the derived handler.
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{Handler: th.Handler.WithAttrs(attrs)}
}

// WithGroup keeps the tracing wrapper around the derived handler.
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{Handler: th.Handler.WithGroup(name)}
}

func serviceAttrs(service, env string, appMode AppMode) []slog.Attr {
	attrs := make([]slog.Attr, 0, 3) //nolint:mnd // service, mode, env.
	attrs = append(attrs, slog.String(attrService, service), slog.String(attrMode, string(appMode)))

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	return attrs
}

func spanAttrs(ctx context.Context) []slog.Attr {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}

	return []slog.Attr{
		slog.String(attrTraceID, sc.TraceID().String()),
		slog.String(attrSpanID, sc.SpanID().String()),
	}
}

// NewLogger builds the structured logger for cfg writing to w.
// MCP mode must keep stdout clean, so callers pass stderr there.
func NewLogger(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	inner := slog.Handler(slog.NewTextHandler(w, opts))
	if cfg.LogJSON {
		inner = slog.NewJSONHandler(w, opts)
	}

	return slog.New(NewTracingHandler(inner, cfg.ServiceName, cfg.Environment, cfg.Mode))
}

func buildLogger(cfg Config) *slog.Logger {
	return NewLogger(os.Stderr, cfg)
}
