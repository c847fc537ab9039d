package observability

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DukeRupert/folio/internal/metrics"
	"github.com/DukeRupert/folio/internal/worker"
	"github.com/google/uuid"
)

// Enqueuer queues background jobs. *worker.Worker implements it.
type Enqueuer interface {
	Enqueue(jobType string, payload interface{}, opts ...worker.EnqueueOption) (uuid.UUID, error)
}

// AsyncSink hands reports to a background worker so Report returns without
// waiting on the wrapped sink.
type AsyncSink struct {
	queue Enqueuer
}

// NewAsyncSink returns a Sink that enqueues reports. Register
// NewReportHandler(inner) on the same worker to process them.
func NewAsyncSink(queue Enqueuer) *AsyncSink {
	return &AsyncSink{queue: queue}
}

func (s *AsyncSink) Report(ctx context.Context, r FailureReport) error {
	if _, err := s.queue.Enqueue(worker.JobTypeReportFailure, r); err != nil {
		metrics.FailureReportsTotal.WithLabelValues(string(r.Type), "dropped").Inc()
		return fmt.Errorf("enqueue failure report: %w", err)
	}
	return nil
}

// ReportHandler is the worker job handler that forwards queued reports to a sink.
type ReportHandler struct {
	sink Sink
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(sink Sink) *ReportHandler {
	return &ReportHandler{sink: sink}
}

func (h *ReportHandler) Type() string {
	return worker.JobTypeReportFailure
}

func (h *ReportHandler) Handle(ctx context.Context, payload []byte) error {
	var r FailureReport
	if err := json.Unmarshal(payload, &r); err != nil {
		return worker.Permanentf("unmarshal failure report: %w", err)
	}
	return h.sink.Report(ctx, r)
}
