package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DukeRupert/folio/internal/domain"
	"github.com/DukeRupert/folio/internal/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// =============================================================================
// Interface Definition
// =============================================================================

// PlanService resolves an account's effective plan.
type PlanService interface {
	// Resolve loads the account and returns its PlanState.
	// Returns domain.ENOTFOUND if the account does not exist.
	Resolve(ctx context.Context, accountID uuid.UUID) (*domain.PlanState, error)

	// ResolveAccount returns the PlanState for an already loaded account.
	// It never fails: a ledger error resolves to Unlimited.
	ResolveAccount(ctx context.Context, acct *domain.Account) *domain.PlanState

	// Entitlement returns the plan snapshot along with the decision for
	// every action, for display before the user asks for anything.
	Entitlement(ctx context.Context, accountID uuid.UUID) (*Entitlement, error)
}

// Entitlement is a read-only snapshot of what an account may do right now.
type Entitlement struct {
	AccountID uuid.UUID
	State     domain.PlanState
	Validity  domain.Validity
	Remaining int64 // domain.UnlimitedDownloads for unlimited plans
	Download  domain.Decision
	Email     domain.Decision
}

// =============================================================================
// Implementation
// =============================================================================

type planService struct {
	accounts AccountStore
	ledger   PaymentLedger
	logger   *slog.Logger
	now      func() time.Time

	// reconciliations collapses concurrent ledger reads for one account.
	reconciliations singleflight.Group
}

// NewPlanService creates a new PlanService. ledger may be nil, in which case
// ambiguous plans resolve without reconciliation.
func NewPlanService(accounts AccountStore, ledger PaymentLedger, logger *slog.Logger) PlanService {
	return &planService{
		accounts: accounts,
		ledger:   ledger,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *planService) Resolve(ctx context.Context, accountID uuid.UUID) (*domain.PlanState, error) {
	ctx, span := tracer.Start(ctx, "PlanService.Resolve",
		trace.WithAttributes(attribute.String("account.id", accountID.String())),
	)
	defer span.End()

	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	state := s.ResolveAccount(ctx, acct)
	span.SetAttributes(
		attribute.String("plan.kind", string(state.Kind)),
		attribute.String("plan.label", state.Label),
		attribute.Bool("plan.reconciled", state.Reconciled),
	)
	return state, nil
}

func (s *planService) ResolveAccount(ctx context.Context, acct *domain.Account) *domain.PlanState {
	if !domain.NeedsReconciliation(*acct) {
		state := domain.ResolvePlanState(*acct, nil)
		return &state
	}
	if s.ledger == nil {
		// No ledger was read, so the premium fallback is unverified.
		state := domain.ResolvePlanState(*acct, nil)
		state.Reconciled = false
		return &state
	}

	payments, err := s.payments(ctx, acct)
	if err != nil {
		// Never under-grant a paying user because the ledger is down.
		metrics.PlanReconciliations.WithLabelValues("ledger_error").Inc()
		s.logger.Warn("payment ledger unavailable, resolving to unlimited",
			"account_id", acct.ID,
			"plan", acct.Plan,
			"error", err,
		)
		state := domain.ResolvePlanState(*acct, nil)
		state.Reconciled = false
		return &state
	}

	state := domain.ResolvePlanState(*acct, payments)
	metrics.PlanReconciliations.WithLabelValues(string(state.Kind)).Inc()
	s.logger.Debug("plan reconciled",
		"account_id", acct.ID,
		"kind", state.Kind,
		"label", state.Label,
		"payments", len(payments),
	)
	return &state
}

// payments reads the ledger, sharing one call among concurrent resolutions
// of the same account.
func (s *planService) payments(ctx context.Context, acct *domain.Account) ([]domain.Payment, error) {
	v, err, shared := s.reconciliations.Do(acct.ID.String(), func() (interface{}, error) {
		return s.ledger.Payments(ctx, acct)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("shared ledger read", "account_id", acct.ID)
	}

	payments, ok := v.([]domain.Payment)
	if !ok {
		return nil, fmt.Errorf("unexpected ledger result type %T", v)
	}
	return payments, nil
}

func (s *planService) Entitlement(ctx context.Context, accountID uuid.UUID) (*Entitlement, error) {
	state, err := s.Resolve(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := s.now()

	return &Entitlement{
		AccountID: accountID,
		State:     *state,
		Validity:  state.Validity(now),
		Remaining: state.Remaining(),
		Download:  domain.Authorize(*state, domain.ActionDownload, now),
		Email:     domain.Authorize(*state, domain.ActionEmail, now),
	}, nil
}
