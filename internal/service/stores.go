package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DukeRupert/folio/internal/domain"
	"github.com/DukeRupert/folio/internal/repository"
	"github.com/google/uuid"
)

// defaultPaymentHistory bounds how many payment log rows reconciliation reads.
const defaultPaymentHistory = 50

// =============================================================================
// Account Store
// =============================================================================

type accountStore struct {
	queries *repository.Queries
}

// NewAccountStore returns an AccountStore backed by the accounts table.
func NewAccountStore(queries *repository.Queries) AccountStore {
	return &accountStore{queries: queries}
}

func (s *accountStore) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	const op = "account.get"

	row, err := s.queries.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "account", id.String())
		}
		return nil, domain.Internal(err, op, "failed to get account")
	}
	return toDomainAccount(row), nil
}

// =============================================================================
// Payment Log Ledger
// =============================================================================

type paymentLogLedger struct {
	queries *repository.Queries
	limit   int32
}

// NewPaymentLogLedger returns a PaymentLedger backed by the payment_logs table.
func NewPaymentLogLedger(queries *repository.Queries) PaymentLedger {
	return &paymentLogLedger{queries: queries, limit: defaultPaymentHistory}
}

func (l *paymentLogLedger) Payments(ctx context.Context, acct *domain.Account) ([]domain.Payment, error) {
	rows, err := l.queries.ListPaymentLogsByAccount(ctx, repository.ListPaymentLogsByAccountParams{
		AccountID: acct.ID,
		Limit:     l.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list payment logs: %w", err)
	}

	payments := make([]domain.Payment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, toDomainPayment(r))
	}
	return payments, nil
}

// =============================================================================
// Usage Store
// =============================================================================

type usageStore struct {
	db      *sql.DB
	queries *repository.Queries
}

// NewUsageStore returns a UsageStore that records the delivery and bumps the
// counter in one transaction. The increment is a single UPDATE, so
// concurrent successes never lose a count.
func NewUsageStore(db *sql.DB, queries *repository.Queries) UsageStore {
	return &usageStore{db: db, queries: queries}
}

func (s *usageStore) RecordUsage(ctx context.Context, accountID, deliveryID uuid.UUID) (int64, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	if deliveryID != uuid.Nil {
		inserted, err := qtx.InsertUsageEvent(ctx, repository.InsertUsageEventParams{
			DeliveryID: deliveryID,
			AccountID:  accountID,
		})
		if err != nil {
			return 0, false, fmt.Errorf("insert usage event: %w", err)
		}
		if inserted == 0 {
			count, err := qtx.GetDownloadCount(ctx, accountID)
			if err != nil {
				return 0, false, fmt.Errorf("get download count: %w", err)
			}
			return count, false, nil
		}
	}

	count, err := qtx.IncrementDownloadCount(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, domain.NotFound("usage.record", "account", accountID.String())
		}
		return 0, false, fmt.Errorf("increment download count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit usage: %w", err)
	}
	return count, true, nil
}

// =============================================================================
// Payment Store
// =============================================================================

type paymentStore struct {
	db      *sql.DB
	queries *repository.Queries
}

// NewPaymentStore returns a PaymentStore backed by the payment_logs and
// accounts tables.
func NewPaymentStore(db *sql.DB, queries *repository.Queries) PaymentStore {
	return &paymentStore{db: db, queries: queries}
}

func (s *paymentStore) AccountByCustomer(ctx context.Context, customerID string) (*domain.Account, error) {
	const op = "account.get_by_customer"

	row, err := s.queries.GetAccountByStripeCustomerID(ctx, domain.ToNullString(customerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "account", customerID)
		}
		return nil, domain.Internal(err, op, "failed to get account")
	}
	return toDomainAccount(row), nil
}

func (s *paymentStore) RecordPayment(ctx context.Context, p domain.Payment, change *PlanChange) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	_, err = qtx.CreatePaymentLog(ctx, repository.CreatePaymentLogParams{
		AccountID:    p.AccountID,
		Status:       string(p.Status),
		BillingCycle: p.BillingCycle,
		AmountCents:  p.AmountCents,
		Currency:     p.Currency,
		ProviderRef:  domain.ToNullString(p.ID),
	})
	if err != nil {
		// ON CONFLICT DO NOTHING returns no row for a replayed payment.
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("create payment log: %w", err)
	}

	if change != nil {
		err = qtx.UpdateAccountPlan(ctx, repository.UpdateAccountPlanParams{
			ID:            p.AccountID,
			Plan:          change.Label,
			PremiumExpiry: domain.ToNullTime(change.ExpiresAt),
		})
		if err != nil {
			return false, fmt.Errorf("update account plan: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit payment: %w", err)
	}
	return true, nil
}

// =============================================================================
// Conversion helpers
// =============================================================================

func toDomainAccount(row repository.Account) *domain.Account {
	return &domain.Account{
		ID:               row.ID,
		Email:            row.Email,
		Plan:             row.Plan,
		PremiumExpiry:    domain.NullTimeValue(row.PremiumExpiry),
		DownloadCount:    row.PdfDownloadCount,
		StripeCustomerID: domain.NullStringValue(row.StripeCustomerID),
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func toDomainPayment(row repository.PaymentLog) domain.Payment {
	id := row.ID.String()
	if ref := domain.NullStringValue(row.ProviderRef); ref != "" {
		id = ref
	}
	return domain.Payment{
		ID:           id,
		AccountID:    row.AccountID,
		Status:       domain.PaymentStatus(row.Status),
		BillingCycle: row.BillingCycle,
		AmountCents:  row.AmountCents,
		Currency:     row.Currency,
		CreatedAt:    row.CreatedAt,
	}
}
