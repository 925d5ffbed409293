package obs

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TraceFields returns trace_id and span_id for the span in ctx, or nothing when there is none.
func TraceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.Stringer("trace_id", sc.TraceID()),
		zap.Stringer("span_id", sc.SpanID()),
	}
}

// WithTrace returns the request logger from ctx, falling back to log, tagged with trace ids.
func WithTrace(ctx context.Context, log *zap.Logger) *zap.Logger {
	l := FromContext(ctx, log)
	if fs := TraceFields(ctx); fs != nil {
		return l.With(fs...)
	}
	return l
}
