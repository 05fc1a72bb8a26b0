package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span measures a logical unit of work such as a single engagement
// operation. It enriches the request-scoped logger with a span identifier
// so entries emitted inside the operation can be correlated.
type Span struct {
	logger *slog.Logger
	start  time.Time
}

// StartSpan derives a context whose logger is tagged with the operation
// name and a fresh span id, returning the span handle to close.
func StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := FromContext(ctx).With(
		slog.String("span_id", uuid.NewString()),
		slog.String("operation", operation),
	)
	ctx = WithLogger(ctx, logger)

	return ctx, &Span{logger: logger, start: time.Now()}
}

// End emits the span completion entry with its duration.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.logger.Debug("operation completed", slog.Duration("duration", time.Since(s.start)))
}
