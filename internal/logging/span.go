package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span is a logged unit of work such as one upload task or one player session.
type Span struct {
	logger *slog.Logger
	start  time.Time
}

// StartSpan opens a span named name under ctx. The first span of a context
// also starts a trace; nested spans record their parent.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	attrs := make([]any, 0, 4)
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
		ctx = withString(ctx, traceIDKey, traceID)
		attrs = append(attrs, slog.String("trace_id", traceID))
	}

	spanID := uuid.NewString()
	attrs = append(attrs, slog.String("span_id", spanID), slog.String("span_name", name))
	if parent := SpanIDFromContext(ctx); parent != "" {
		attrs = append(attrs, slog.String("parent_span_id", parent))
	}

	logger := FromContext(ctx).With(attrs...)
	ctx = withString(WithLogger(ctx, logger), spanIDKey, spanID)
	return ctx, &Span{logger: logger, start: time.Now()}
}

// Logger returns the span's annotated logger.
func (s *Span) Logger() *slog.Logger {
	if s == nil {
		return slog.Default()
	}
	return s.logger
}

// End logs the span duration. It is safe on a nil span.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.logger.Info("span completed", slog.Duration("duration", time.Since(s.start)))
}
