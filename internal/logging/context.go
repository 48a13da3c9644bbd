package logging

import (
	"context"
	"regexp"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxIDLen = 128

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type (
	requestCtxKey    struct{}
	evaluationCtxKey struct{}
	loggerCtxKey     struct{}
)

// ContextFields extracts trace, request and evaluation IDs from ctx.
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields := make([]zap.Field, 0, 4)
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	if id := EvaluationIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("evaluation.id", id))
	}
	return fields
}

// ValidID reports whether id is safe to carry in logs and headers.
func ValidID(id string) bool {
	return len(id) > 0 && len(id) <= maxIDLen && idPattern.MatchString(id)
}

// WithRequestID stores a request ID. Invalid IDs, which usually come from
// client headers, are dropped and ctx is returned unchanged.
func WithRequestID(ctx context.Context, id string) context.Context {
	if !ValidID(id) {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, id)
}

// RequestIDFromContext returns the request ID or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestCtxKey{}).(string)
	return id
}

// WithEvaluationID stores the ID of the claim evaluation in progress.
func WithEvaluationID(ctx context.Context, id string) context.Context {
	if !ValidID(id) {
		return ctx
	}
	return context.WithValue(ctx, evaluationCtxKey{}, id)
}

// EvaluationIDFromContext returns the evaluation ID or "".
func EvaluationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(evaluationCtxKey{}).(string)
	return id
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext returns the stored logger, or a no-op one.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return NewNop()
}
