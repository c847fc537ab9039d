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

func newTestPlanService(accounts AccountStore, ledger PaymentLedger) *planService {
	s := NewPlanService(accounts, ledger, discardLogger()).(*planService)
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestPlanService_Resolve(t *testing.T) {
	paidAt := fixedNow.Add(-24 * time.Hour)

	tests := []struct {
		name       string
		acct       domain.Account
		ledger     *fakeLedger
		wantKind   domain.PlanKind
		wantLabel  string
		reconciled bool
		ledgerHits int
	}{
		{
			name:       "metered label trusted without ledger",
			acct:       domain.Account{Plan: "basic", DownloadCount: 2},
			ledger:     &fakeLedger{},
			wantKind:   domain.PlanKindMeteredStandard,
			wantLabel:  "basic",
			ledgerHits: 0,
		},
		{
			name: "premium reconciled to metered",
			acct: domain.Account{Plan: "premium"},
			ledger: &fakeLedger{payments: []domain.Payment{
				{ID: "ch_1", Status: domain.PaymentStatusSuccess, BillingCycle: "oneDay", CreatedAt: paidAt},
			}},
			wantKind:   domain.PlanKindMeteredShortTerm,
			wantLabel:  "oneDay",
			reconciled: true,
			ledgerHits: 1,
		},
		{
			name: "premium with unlimited payment",
			acct: domain.Account{Plan: "premium"},
			ledger: &fakeLedger{payments: []domain.Payment{
				{ID: "ch_2", Status: domain.PaymentStatusSuccess, BillingCycle: "monthly", CreatedAt: paidAt},
			}},
			wantKind:   domain.PlanKindUnlimited,
			wantLabel:  "premium",
			reconciled: true,
			ledgerHits: 1,
		},
		{
			name:       "ledger failure resolves to unlimited",
			acct:       domain.Account{Plan: "premium"},
			ledger:     &fakeLedger{err: errBoom},
			wantKind:   domain.PlanKindUnlimited,
			wantLabel:  "premium",
			reconciled: false,
			ledgerHits: 1,
		},
		{
			name:       "unknown label is free",
			acct:       domain.Account{Plan: "gold"},
			ledger:     &fakeLedger{},
			wantKind:   domain.PlanKindFree,
			wantLabel:  "free",
			ledgerHits: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct := tt.acct
			acct.ID = uuid.New()
			s := newTestPlanService(newFakeAccounts(&acct), tt.ledger)

			state, err := s.Resolve(context.Background(), acct.ID)
			require.NoError(t, err)

			assert.Equal(t, tt.wantKind, state.Kind)
			assert.Equal(t, tt.wantLabel, state.Label)
			assert.Equal(t, tt.reconciled, state.Reconciled)
			assert.Equal(t, tt.ledgerHits, tt.ledger.calls)
		})
	}
}

func TestPlanService_ResolveMissingAccount(t *testing.T) {
	s := newTestPlanService(newFakeAccounts(), nil)

	_, err := s.Resolve(context.Background(), uuid.New())
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestPlanService_NilLedgerSkipsReconciliation(t *testing.T) {
	acct := &domain.Account{ID: uuid.New(), Plan: "premium"}
	s := newTestPlanService(newFakeAccounts(acct), nil)

	state := s.ResolveAccount(context.Background(), acct)
	assert.Equal(t, domain.PlanKindUnlimited, state.Kind)
	assert.False(t, state.Reconciled)
}

func TestPlanService_Entitlement(t *testing.T) {
	acct := &domain.Account{
		ID:            uuid.New(),
		Plan:          "basic",
		DownloadCount: 5,
		PremiumExpiry: timePtr(fixedNow.Add(48 * time.Hour)),
	}
	s := newTestPlanService(newFakeAccounts(acct), nil)

	ent, err := s.Entitlement(context.Background(), acct.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.ValidityLimitReached, ent.Validity)
	assert.Equal(t, int64(0), ent.Remaining)
	assert.False(t, ent.Download.Allow)
	assert.Equal(t, domain.KindQuotaExceeded, ent.Download.Reason)
	assert.Contains(t, ent.Download.Message, "5 downloads")
	assert.False(t, ent.Email.Allow)
	assert.Equal(t, domain.KindEmailRequiresPaidPlan, ent.Email.Reason)
}
