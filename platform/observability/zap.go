package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TraceFields возвращает zap-поля trace_id и span_id из контекста, если span есть
func TraceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

// L возвращает logger с trace_id/span_id из ctx, если они есть.
// Использовать в хендлерах и сервисах: observability.L(ctx, logger).Info(...)
// При base == nil берётся logger из контекста, а при его отсутствии - zap.NewNop().
func L(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		if fromCtx := LoggerFromContext(ctx); fromCtx != nil {
			return fromCtx
		}
		base = zap.NewNop()
	}
	fields := TraceFields(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
