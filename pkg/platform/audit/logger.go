package audit

import (
	"context"
	"log/slog"

	"spendwise/pkg/platform/tracing"
	"spendwise/pkg/requestcontext"
)

// Logger writes audit lines: structured log records tagged log_type=audit with
// the event name, category, request ID and trace IDs. A nil *Logger is a no-op.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		return nil
	}
	return &Logger{logger: logger}
}

func (l *Logger) Log(ctx context.Context, event AuditEvent, attributes ...any) {
	if l == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	attributes = append(attributes, tracing.LogAttrs(ctx)...)
	attributes = append(attributes,
		"event", string(event),
		"category", string(event.Category()),
		"log_type", "audit",
	)
	l.logger.InfoContext(ctx, string(event), attributes...)
}
