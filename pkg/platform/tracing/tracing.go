// Package tracing holds the span helpers shared by the services.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "spendwise/pkg/domain-errors"
)

// Finish ends span, marking it failed when err is non-nil. Use with a named
// error return: defer func() { tracing.Finish(span, err) }().
func Finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}

// LogAttrs returns trace_id/span_id log attributes when ctx carries a sampled span.
func LogAttrs(ctx context.Context) []any {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return nil
	}
	return []any{"trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String()}
}
