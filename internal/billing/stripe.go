// Package billing integrates Stripe as an authoritative payment ledger.
//
// StripeLedger reads an account's charges so the plan resolver can reconcile
// the stored plan label against what was actually paid for. Charges carry
// the purchased plan label in their "billing_cycle" metadata, set at
// checkout time.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DukeRupert/folio/internal/domain"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/charge"
	"github.com/stripe/stripe-go/v79/webhook"
)

// MetadataBillingCycle is the charge metadata key holding the plan label.
const MetadataBillingCycle = "billing_cycle"

// MetadataAccountID is the charge metadata key holding the folio account ID.
const MetadataAccountID = "account_id"

// defaultChargeLimit bounds how many recent charges are read per account.
const defaultChargeLimit = 20

// ErrNoCustomer is returned for accounts without a Stripe customer.
var ErrNoCustomer = errors.New("billing: account has no stripe customer")

// Service defines the Stripe operations folio needs.
type Service interface {
	// Payments lists recent charges for the account as ledger entries,
	// newest first.
	Payments(ctx context.Context, acct *domain.Account) ([]domain.Payment, error)

	// VerifyWebhookSignature verifies the Stripe webhook signature and returns the event.
	VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error)
}

// stripeService is the concrete implementation of Service.
type stripeService struct {
	webhookSecret string
	limit         int64
}

// NewStripeService creates a new Stripe billing service.
//
// The secretKey is used to authenticate Stripe API calls.
// The webhookSecret is used to verify incoming webhook signatures.
func NewStripeService(secretKey, webhookSecret string) Service {
	stripe.Key = secretKey

	return &stripeService{
		webhookSecret: webhookSecret,
		limit:         defaultChargeLimit,
	}
}

func (s *stripeService) Payments(ctx context.Context, acct *domain.Account) ([]domain.Payment, error) {
	if acct.StripeCustomerID == "" {
		return nil, ErrNoCustomer
	}

	params := &stripe.ChargeListParams{
		Customer: stripe.String(acct.StripeCustomerID),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(s.limit)
	params.Single = true

	var payments []domain.Payment
	iter := charge.List(params)
	for iter.Next() {
		payments = append(payments, PaymentFromCharge(acct.ID.String(), iter.Charge()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("stripe list charges: %w", err)
	}
	return payments, nil
}

func (s *stripeService) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("stripe webhook signature verification failed: %w", err)
	}
	return event, nil
}

// PaymentFromCharge converts a Stripe charge into a ledger entry.
func PaymentFromCharge(accountID string, c *stripe.Charge) domain.Payment {
	p := domain.Payment{
		ID:           c.ID,
		Status:       paymentStatus(c.Status),
		BillingCycle: c.Metadata[MetadataBillingCycle],
		AmountCents:  c.Amount,
		Currency:     string(c.Currency),
		CreatedAt:    time.Unix(c.Created, 0).UTC(),
	}
	if id, err := parseAccountID(accountID, c.Metadata[MetadataAccountID]); err == nil {
		p.AccountID = id
	}
	return p
}

func paymentStatus(s stripe.ChargeStatus) domain.PaymentStatus {
	switch s {
	case stripe.ChargeStatusSucceeded:
		return domain.PaymentStatusSuccess
	case stripe.ChargeStatusFailed:
		return domain.PaymentStatusFailed
	default:
		return domain.PaymentStatusPending
	}
}

// parseAccountID prefers the caller's account ID and falls back to the one
// recorded in charge metadata.
func parseAccountID(primary, fromMetadata string) (uuid.UUID, error) {
	if primary != "" {
		return uuid.Parse(primary)
	}
	return uuid.Parse(fromMetadata)
}
