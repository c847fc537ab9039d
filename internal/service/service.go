// Package service contains the business logic layer.
//
// Services orchestrate interactions between repositories, external
// collaborators and domain logic. They are responsible for:
// - Resolving an account's effective plan
// - Enforcing entitlements before any artifact work starts
// - Driving delivery and recording successful metered deliveries
// - Error translation (database errors -> domain errors)
package service

import (
	"context"

	"github.com/DukeRupert/folio/internal/delivery"
	"github.com/DukeRupert/folio/internal/domain"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("folio.service")

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// AccountStore reads account records.
type AccountStore interface {
	// GetAccount returns domain.ENOTFOUND if the account does not exist.
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

// PaymentLedger is the authoritative record of what an account paid for.
type PaymentLedger interface {
	Payments(ctx context.Context, acct *domain.Account) ([]domain.Payment, error)
}

// UsageStore persists successful metered deliveries.
type UsageStore interface {
	// RecordUsage increments the account's counter unless deliveryID was
	// already recorded. It returns the counter value after the call and
	// whether this call incremented it.
	RecordUsage(ctx context.Context, accountID, deliveryID uuid.UUID) (count int64, recorded bool, err error)
}

// Deliverer hands artifacts to the user.
type Deliverer interface {
	Deliver(ctx context.Context, src delivery.Source, filename string, opts delivery.Options) delivery.Result
}

var _ Deliverer = (*delivery.Orchestrator)(nil)
