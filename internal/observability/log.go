package observability

import (
	"context"
	"log/slog"

	"github.com/DukeRupert/folio/internal/metrics"
)

// LogSink writes failure reports to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a Sink that logs reports at warn level.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("component", "failure_reports")}
}

func (s *LogSink) Report(ctx context.Context, r FailureReport) error {
	s.logger.WarnContext(ctx, "delivery failure",
		"delivery_id", r.DeliveryID,
		"type", r.Type,
		"kind", r.Kind,
		"error", r.Error,
		"filename", r.Filename,
		"method", r.Method,
		"user_agent_class", r.UserAgentClass,
		"size", r.Size,
		"tried", r.Tried,
		"attempts", r.Attempts,
	)
	metrics.FailureReportsTotal.WithLabelValues(string(r.Type), "logged").Inc()
	return nil
}
