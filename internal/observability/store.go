package observability

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DukeRupert/folio/internal/metrics"
	"github.com/DukeRupert/folio/internal/repository"
	"github.com/sqlc-dev/pqtype"
)

// FailureStore persists failure reports. *repository.Queries implements it.
type FailureStore interface {
	CreateDeliveryFailure(ctx context.Context, arg repository.CreateDeliveryFailureParams) (repository.DeliveryFailure, error)
}

// StoreSink writes failure reports to the delivery_failures table.
type StoreSink struct {
	store FailureStore
}

// NewStoreSink creates a StoreSink.
func NewStoreSink(store FailureStore) *StoreSink {
	return &StoreSink{store: store}
}

// storedDetails is the jsonb payload for fields without their own column.
type storedDetails struct {
	Kind     string   `json:"kind"`
	Tried    []string `json:"tried,omitempty"`
	Attempts int      `json:"attempts"`
}

func (s *StoreSink) Report(ctx context.Context, r FailureReport) error {
	details, err := json.Marshal(storedDetails{Kind: r.Kind, Tried: r.Tried, Attempts: r.Attempts})
	if err != nil {
		return fmt.Errorf("marshal report details: %w", err)
	}

	_, err = s.store.CreateDeliveryFailure(ctx, repository.CreateDeliveryFailureParams{
		DeliveryID:     r.DeliveryID,
		Type:           string(r.Type),
		Error:          r.Error,
		Filename:       r.Filename,
		Method:         r.Method,
		UserAgentClass: r.UserAgentClass,
		SizeBytes:      int64(r.Size),
		Details:        pqtype.NullRawMessage{RawMessage: details, Valid: true},
		OccurredAt:     r.OccurredAt,
	})
	if err != nil {
		metrics.FailureReportsTotal.WithLabelValues(string(r.Type), "store_failed").Inc()
		return fmt.Errorf("store failure report: %w", err)
	}

	metrics.FailureReportsTotal.WithLabelValues(string(r.Type), "stored").Inc()
	return nil
}
