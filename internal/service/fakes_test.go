package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/DukeRupert/folio/internal/delivery"
	"github.com/DukeRupert/folio/internal/domain"
	"github.com/DukeRupert/folio/internal/email"
	"github.com/DukeRupert/folio/internal/report"
	"github.com/google/uuid"
)

var fixedNow = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAccounts struct {
	accounts map[uuid.UUID]*domain.Account
	err      error
}

func newFakeAccounts(accts ...*domain.Account) *fakeAccounts {
	f := &fakeAccounts{accounts: make(map[uuid.UUID]*domain.Account)}
	for _, a := range accts {
		f.accounts[a.ID] = a
	}
	return f
}

func (f *fakeAccounts) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, domain.NotFound("account.get", "account", id.String())
	}
	copied := *a
	return &copied, nil
}

type fakeLedger struct {
	mu       sync.Mutex
	payments []domain.Payment
	err      error
	calls    int
}

func (f *fakeLedger) Payments(ctx context.Context, acct *domain.Account) ([]domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.payments, f.err
}

// fakeUsageStore mirrors the usage_events dedup of the real store.
type fakeUsageStore struct {
	mu     sync.Mutex
	counts map[uuid.UUID]int64
	seen   map[uuid.UUID]bool
	err    error
	calls  int
}

func newFakeUsageStore() *fakeUsageStore {
	return &fakeUsageStore{counts: make(map[uuid.UUID]int64), seen: make(map[uuid.UUID]bool)}
}

func (f *fakeUsageStore) RecordUsage(ctx context.Context, accountID, deliveryID uuid.UUID) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, false, f.err
	}
	if deliveryID != uuid.Nil && f.seen[deliveryID] {
		return f.counts[accountID], false, nil
	}
	f.seen[deliveryID] = true
	f.counts[accountID]++
	return f.counts[accountID], true, nil
}

type fakeClaims struct {
	claimed  map[uuid.UUID]bool
	released []uuid.UUID
}

func newFakeClaims() *fakeClaims {
	return &fakeClaims{claimed: make(map[uuid.UUID]bool)}
}

func (f *fakeClaims) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	if f.claimed[id] {
		return false, nil
	}
	f.claimed[id] = true
	return true, nil
}

func (f *fakeClaims) Release(ctx context.Context, id uuid.UUID) error {
	delete(f.claimed, id)
	f.released = append(f.released, id)
	return nil
}

type fakeRenderer struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeRenderer) Render(ctx context.Context, doc *report.Document, tmpl report.Template) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if doc == nil || doc.Name == "" {
		return nil, report.ErrEmptyDocument
	}
	return f.data, nil
}

type fakeDeliverer struct {
	result   delivery.Result
	calls    int
	filename string
	opts     delivery.Options
	src      delivery.Source
}

func (f *fakeDeliverer) Deliver(ctx context.Context, src delivery.Source, filename string, opts delivery.Options) delivery.Result {
	f.calls++
	f.src = src
	f.filename = filename
	f.opts = opts
	res := f.result
	res.Filename = filename
	if res.DeliveryID == uuid.Nil {
		res.DeliveryID = opts.DeliveryID
	}
	return res
}

type fakeDispatcher struct {
	sent []email.ArtifactEmail
	err  error
}

func (f *fakeDispatcher) SendArtifact(ctx context.Context, msg email.ArtifactEmail) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakePaymentStore struct {
	customers map[string]*domain.Account
	recorded  map[string]bool
	changes   []*PlanChange
	err       error
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{customers: make(map[string]*domain.Account), recorded: make(map[string]bool)}
}

func (f *fakePaymentStore) AccountByCustomer(ctx context.Context, customerID string) (*domain.Account, error) {
	a, ok := f.customers[customerID]
	if !ok {
		return nil, domain.NotFound("account.get_by_customer", "account", customerID)
	}
	return a, nil
}

func (f *fakePaymentStore) RecordPayment(ctx context.Context, p domain.Payment, change *PlanChange) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.recorded[p.ID] {
		return false, nil
	}
	f.recorded[p.ID] = true
	f.changes = append(f.changes, change)
	return true, nil
}

var errBoom = errors.New("boom")

func timePtr(t time.Time) *time.Time { return &t }
