// Package observability collects structured reports about deliveries that
// could not complete. Sinks are fire-and-forget from the caller's point of
// view: a failing sink never changes a delivery outcome.
package observability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReportType distinguishes failures inside the strategy chain from failures
// before it started.
type ReportType string

const (
	// ReportDownloadFailed means every delivery strategy was tried and failed.
	ReportDownloadFailed ReportType = "download_failed"

	// ReportDownloadError means delivery failed before any strategy ran, for
	// example an empty artifact or a failed fetch.
	ReportDownloadError ReportType = "download_error"
)

// FailureReport is the structured record sent to a Sink.
type FailureReport struct {
	DeliveryID     uuid.UUID  `json:"delivery_id"`
	Type           ReportType `json:"type"`
	Kind           string     `json:"kind"`
	Error          string     `json:"error"`
	Filename       string     `json:"filename"`
	Method         string     `json:"method"`
	UserAgentClass string     `json:"user_agent_class"`
	Size           int        `json:"size"`
	Tried          []string   `json:"tried,omitempty"`
	Attempts       int        `json:"attempts"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

// Sink accepts failure reports.
type Sink interface {
	Report(ctx context.Context, r FailureReport) error
}

// MultiSink reports to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Report(ctx context.Context, r FailureReport) error {
	var errs []error
	for _, s := range m {
		if err := s.Report(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
