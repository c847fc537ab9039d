package service

import (
	"context"
	"testing"
	"time"

	"github.com/DukeRupert/folio/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPaymentService(store PaymentStore) *paymentService {
	s := NewPaymentService(store, discardLogger()).(*paymentService)
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestPaymentService_PlanChange(t *testing.T) {
	tests := []struct {
		name        string
		payment     domain.Payment
		wantLabel   string
		wantExpires *time.Time
		wantNil     bool
	}{
		{
			name:        "metered purchase",
			payment:     domain.Payment{Status: domain.PaymentStatusSuccess, BillingCycle: "basic"},
			wantLabel:   "basic",
			wantExpires: timePtr(fixedNow.Add(7 * 24 * time.Hour)),
		},
		{
			name:        "timed unlimited purchase",
			payment:     domain.Payment{Status: domain.PaymentStatusSuccess, BillingCycle: "quarterly"},
			wantLabel:   "quarterly",
			wantExpires: timePtr(fixedNow.Add(90 * 24 * time.Hour)),
		},
		{
			name:      "lifetime purchase",
			payment:   domain.Payment{Status: domain.PaymentStatusSuccess, BillingCycle: "premium"},
			wantLabel: "premium",
		},
		{
			name:    "failed payment",
			payment: domain.Payment{Status: domain.PaymentStatusFailed, BillingCycle: "basic"},
			wantNil: true,
		},
		{
			name:    "unknown billing cycle",
			payment: domain.Payment{Status: domain.PaymentStatusSuccess, BillingCycle: "gold"},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakePaymentStore()
			svc := newTestPaymentService(store)
			p := tt.payment
			p.ID = "ch_" + tt.name
			p.AccountID = uuid.New()

			out, err := svc.RecordPayment(context.Background(), "", p)
			require.NoError(t, err)

			assert.False(t, out.Duplicate)
			if tt.wantNil {
				assert.Nil(t, out.Change)
				return
			}
			require.NotNil(t, out.Change)
			assert.Equal(t, tt.wantLabel, out.Change.Label)
			assert.Equal(t, tt.wantExpires, out.Change.ExpiresAt)
		})
	}
}

func TestPaymentService_ReplayIsNoop(t *testing.T) {
	store := newFakePaymentStore()
	svc := newTestPaymentService(store)
	p := domain.Payment{ID: "ch_1", AccountID: uuid.New(), Status: domain.PaymentStatusSuccess, BillingCycle: "oneDay"}

	first, err := svc.RecordPayment(context.Background(), "", p)
	require.NoError(t, err)
	second, err := svc.RecordPayment(context.Background(), "", p)
	require.NoError(t, err)

	assert.False(t, first.Duplicate)
	assert.True(t, second.Duplicate)
	assert.Nil(t, second.Change)
	assert.Len(t, store.changes, 1)
}

func TestPaymentService_ResolvesCustomer(t *testing.T) {
	store := newFakePaymentStore()
	acct := &domain.Account{ID: uuid.New(), StripeCustomerID: "cus_123"}
	store.customers["cus_123"] = acct
	svc := newTestPaymentService(store)

	out, err := svc.RecordPayment(context.Background(), "cus_123", domain.Payment{ID: "ch_9", Status: domain.PaymentStatusSuccess})
	require.NoError(t, err)
	assert.Equal(t, acct.ID, out.AccountID)

	_, err = svc.RecordPayment(context.Background(), "cus_missing", domain.Payment{ID: "ch_10"})
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestPaymentService_Invalid(t *testing.T) {
	svc := newTestPaymentService(newFakePaymentStore())

	_, err := svc.RecordPayment(context.Background(), "", domain.Payment{AccountID: uuid.New()})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	_, err = svc.RecordPayment(context.Background(), "", domain.Payment{ID: "ch_1"})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestPaymentService_StoreError(t *testing.T) {
	store := newFakePaymentStore()
	store.err = errBoom
	svc := newTestPaymentService(store)

	_, err := svc.RecordPayment(context.Background(), "", domain.Payment{ID: "ch_1", AccountID: uuid.New()})
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
}
