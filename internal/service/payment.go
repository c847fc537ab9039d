package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/DukeRupert/folio/internal/domain"
	"github.com/DukeRupert/folio/internal/metrics"
	"github.com/google/uuid"
)

// =============================================================================
// Types
// =============================================================================

// PlanChange is the account update a successful payment buys.
type PlanChange struct {
	Label     string
	ExpiresAt *time.Time // nil for plans that never expire
}

// PaymentOutcome describes what RecordPayment did.
type PaymentOutcome struct {
	AccountID uuid.UUID
	Duplicate bool        // The payment was already on the ledger
	Change    *PlanChange // nil when the plan was left alone
}

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// PaymentStore persists ledger entries.
type PaymentStore interface {
	// AccountByCustomer returns domain.ENOTFOUND for unknown customers.
	AccountByCustomer(ctx context.Context, customerID string) (*domain.Account, error)

	// RecordPayment appends p to the ledger and, when change is non-nil,
	// applies it to the account and resets the download counter, all in one
	// transaction. It returns false without changing anything if a payment
	// with the same ID was already recorded.
	RecordPayment(ctx context.Context, p domain.Payment, change *PlanChange) (bool, error)
}

// =============================================================================
// Interface Definition
// =============================================================================

// PaymentService applies payment provider events to accounts.
type PaymentService interface {
	// RecordPayment appends the payment to the ledger and, for a successful
	// payment of a known plan, switches the account to that plan. The
	// account comes from p.AccountID, or from customerID when that is nil.
	// Replaying the same payment is a no-op.
	RecordPayment(ctx context.Context, customerID string, p domain.Payment) (*PaymentOutcome, error)
}

// =============================================================================
// Implementation
// =============================================================================

type paymentService struct {
	store  PaymentStore
	logger *slog.Logger
	now    func() time.Time
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(store PaymentStore, logger *slog.Logger) PaymentService {
	return &paymentService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (s *paymentService) RecordPayment(ctx context.Context, customerID string, p domain.Payment) (*PaymentOutcome, error) {
	const op = "payment.record"

	if p.ID == "" {
		return nil, domain.Invalid(op, "Payment reference is required")
	}

	if p.AccountID == uuid.Nil {
		if customerID == "" {
			return nil, domain.Invalid(op, "Payment is not linked to an account")
		}
		acct, err := s.store.AccountByCustomer(ctx, customerID)
		if err != nil {
			return nil, err
		}
		p.AccountID = acct.ID
	}

	change := s.planChange(p)

	applied, err := s.store.RecordPayment(ctx, p, change)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return nil, err
		}
		return nil, domain.Internal(err, op, "failed to record payment")
	}

	outcome := &PaymentOutcome{AccountID: p.AccountID}
	if !applied {
		outcome.Duplicate = true
		metrics.PaymentsRecorded.WithLabelValues("duplicate").Inc()
		s.logger.Info("payment already recorded", "account_id", p.AccountID, "payment_id", p.ID)
		return outcome, nil
	}

	outcome.Change = change
	metrics.PaymentsRecorded.WithLabelValues(string(p.Status)).Inc()
	if change != nil {
		s.logger.Info("plan updated from payment",
			"account_id", p.AccountID,
			"payment_id", p.ID,
			"plan", change.Label,
			"expires_at", change.ExpiresAt,
		)
	} else {
		s.logger.Info("payment recorded", "account_id", p.AccountID, "payment_id", p.ID, "status", p.Status)
	}
	return outcome, nil
}

// planChange returns the plan a payment buys, or nil if it buys nothing.
// Expiry runs from now rather than the charge time so a late webhook does
// not shorten the plan.
func (s *paymentService) planChange(p domain.Payment) *PlanChange {
	if !p.Succeeded() {
		return nil
	}
	spec, ok := domain.LookupPlan(p.BillingCycle)
	if !ok || spec.Kind == domain.PlanKindFree {
		if p.BillingCycle != "" {
			s.logger.Warn("payment for unknown plan", "payment_id", p.ID, "billing_cycle", p.BillingCycle)
		}
		return nil
	}

	change := &PlanChange{Label: spec.Label}
	if spec.DurationDays > 0 {
		expires := s.now().Add(spec.Duration())
		change.ExpiresAt = &expires
	}
	return change
}
