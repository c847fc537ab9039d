package service

import (
	"context"
	"log/slog"

	"github.com/DukeRupert/folio/internal/domain"
	"github.com/DukeRupert/folio/internal/idempotency"
	"github.com/DukeRupert/folio/internal/metrics"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// UsageLedger records successful metered deliveries against an account.
type UsageLedger interface {
	// RecordSuccess increments the download counter for a metered plan and
	// returns the new count. For unmetered plans it does nothing and
	// returns 0. Recording the same deliveryID twice increments once.
	RecordSuccess(ctx context.Context, accountID uuid.UUID, kind domain.PlanKind, deliveryID uuid.UUID) (int64, error)
}

// =============================================================================
// Implementation
// =============================================================================

type usageLedger struct {
	store  UsageStore
	claims idempotency.Store
	logger *slog.Logger
}

// NewUsageLedger creates a UsageLedger. claims may be nil; the store's own
// usage_events table still deduplicates, the claim store only saves a
// round trip for repeats.
func NewUsageLedger(store UsageStore, claims idempotency.Store, logger *slog.Logger) UsageLedger {
	return &usageLedger{
		store:  store,
		claims: claims,
		logger: logger,
	}
}

func (l *usageLedger) RecordSuccess(ctx context.Context, accountID uuid.UUID, kind domain.PlanKind, deliveryID uuid.UUID) (int64, error) {
	const op = "usage.record_success"

	if !kind.IsMetered() {
		return 0, nil
	}

	if l.claims != nil && deliveryID != uuid.Nil {
		first, err := l.claims.Claim(ctx, deliveryID)
		if err != nil {
			// The store still deduplicates, so fall through.
			l.logger.Warn("idempotency claim failed", "delivery_id", deliveryID, "error", err)
		} else if !first {
			metrics.UsageDuplicates.Inc()
			l.logger.Info("delivery already recorded", "account_id", accountID, "delivery_id", deliveryID)
			return l.currentCount(ctx, accountID, deliveryID)
		}
	}

	count, recorded, err := l.store.RecordUsage(ctx, accountID, deliveryID)
	if err != nil {
		if l.claims != nil && deliveryID != uuid.Nil {
			if rerr := l.claims.Release(ctx, deliveryID); rerr != nil {
				l.logger.Warn("failed to release idempotency claim", "delivery_id", deliveryID, "error", rerr)
			}
		}
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return 0, err
		}
		return 0, domain.Internal(err, op, "failed to record download")
	}

	if !recorded {
		metrics.UsageDuplicates.Inc()
		l.logger.Info("delivery already recorded", "account_id", accountID, "delivery_id", deliveryID)
		return count, nil
	}

	metrics.UsageRecorded.WithLabelValues(string(kind)).Inc()
	l.logger.Info("download recorded",
		"account_id", accountID,
		"delivery_id", deliveryID,
		"plan_kind", kind,
		"count", count,
	)
	return count, nil
}

// currentCount reads the counter without changing it. RecordUsage with an
// already recorded delivery ID is exactly that read.
func (l *usageLedger) currentCount(ctx context.Context, accountID, deliveryID uuid.UUID) (int64, error) {
	const op = "usage.current_count"

	count, _, err := l.store.RecordUsage(ctx, accountID, deliveryID)
	if err != nil {
		return 0, domain.Internal(err, op, "failed to read download count")
	}
	return count, nil
}
