package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestLogAttrsWithoutSpan(t *testing.T) {
	assert.Nil(t, LogAttrs(context.Background()))
}

func TestLogAttrsWithSpanContext(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	attrs := LogAttrs(ctx)
	assert.Equal(t, []any{"trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String()}, attrs)
}

func TestFinishOnNoopSpan(t *testing.T) {
	span := trace.SpanFromContext(context.Background())
	assert.NotPanics(t, func() { Finish(span, errors.New("boom")) })
	assert.NotPanics(t, func() { Finish(span, nil) })
}
