package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Log record keys added by TracingHandler.
const (
	logKeyTraceID = "trace_id"
	logKeySpanID  = "span_id"
	logKeyService = "service"
	logKeyEnv     = "env"
	logKeyMode    = "mode"
)

type logAttrsKey struct{}

// WithLogAttrs returns a context whose log records carry attrs after any
// attached by outer callers. The HTTP middleware attaches the request
// method and path, the MCP server the tool name.
func WithLogAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	if len(attrs) == 0 {
		return ctx
	}

	outer := logAttrs(ctx)
	merged := make([]slog.Attr, 0, len(outer)+len(attrs))
	merged = append(merged, outer...)
	merged = append(merged, attrs...)

	return context.WithValue(ctx, logAttrsKey{}, merged)
}

func logAttrs(ctx context.Context) []slog.Attr {
	attrs, _ := ctx.Value(logAttrsKey{}).([]slog.Attr)

	return attrs
}

// TracingHandler decorates rangeq log records with the service identity,
// the active span and the attributes attached by WithLogAttrs.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner. service, env and mode are bound once here,
// ahead of any group, so they stay top-level keys. An empty env is omitted.
func NewTracingHandler(inner slog.Handler, service, env string, appMode AppMode) *TracingHandler {
	identity := []slog.Attr{
		slog.String(logKeyService, service),
		slog.String(logKeyMode, string(appMode)),
	}

	if env != "" {
		identity = append(identity, slog.String(logKeyEnv, env))
	}

	return &TracingHandler{inner: inner.WithAttrs(identity)}
}

// Enabled reports whether the inner handler accepts level.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle adds trace_id, span_id and context attributes to record.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(logKeyTraceID, sc.TraceID().String()),
			slog.String(logKeySpanID, sc.SpanID().String()),
		)
	}

	if attrs := logAttrs(ctx); len(attrs) > 0 {
		record.AddAttrs(attrs...)
	}

	if err := th.inner.Handle(ctx, record); err != nil {
		return fmt.Errorf("log record: %w", err)
	}

	return nil
}

// WithAttrs implements [slog.Handler].
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup implements [slog.Handler].
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}
