package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DukeRupert/folio/internal/delivery"
	"github.com/DukeRupert/folio/internal/domain"
	"github.com/DukeRupert/folio/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePlans struct {
	ent *service.Entitlement
	err error
}

func (f *fakePlans) Resolve(ctx context.Context, id uuid.UUID) (*domain.PlanState, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.ent.State, nil
}

func (f *fakePlans) ResolveAccount(ctx context.Context, acct *domain.Account) *domain.PlanState {
	return &f.ent.State
}

func (f *fakePlans) Entitlement(ctx context.Context, id uuid.UUID) (*service.Entitlement, error) {
	return f.ent, f.err
}

type fakeDownloads struct {
	got     service.DownloadRequest
	outcome *service.DownloadOutcome
	err     error
}

func (f *fakeDownloads) Download(ctx context.Context, req service.DownloadRequest) (*service.DownloadOutcome, error) {
	f.got = req
	return f.outcome, f.err
}

type fakeEmails struct {
	got service.EmailRequest
	err error
}

func (f *fakeEmails) Send(ctx context.Context, req service.EmailRequest) (string, error) {
	f.got = req
	if f.err != nil {
		return "", f.err
	}
	return "jane@example.com", nil
}

func newTestMux(plans *fakePlans, downloads *fakeDownloads, emails service.EmailService) *http.ServeMux {
	mux := http.NewServeMux()
	NewAccountHandler(plans, downloads, emails, discardLogger()).RegisterRoutes(mux)
	return mux
}

func doJSON(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Android 14)")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleEntitlement(t *testing.T) {
	id := uuid.New()
	plans := &fakePlans{ent: &service.Entitlement{
		AccountID: id,
		State: domain.PlanState{
			Kind:             domain.PlanKindMeteredStandard,
			Label:            "basic",
			DownloadsUsed:    2,
			DownloadsAllowed: 5,
		},
		Validity:  domain.ValidityActive,
		Remaining: 3,
		Download:  domain.Decision{Allow: true},
		Email:     domain.Decision{Allow: true},
	}}
	mux := newTestMux(plans, &fakeDownloads{}, &fakeEmails{})

	rec := doJSON(t, mux, http.MethodGet, "/accounts/"+id.String()+"/entitlement", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp EntitlementResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "metered_standard", resp.Kind)
	assert.Equal(t, "Starter (Sachet Pack)", resp.PlanName)
	assert.Equal(t, int64(3), resp.Remaining)
	assert.True(t, resp.Download.Allow)
}

func TestHandleEntitlement_BadID(t *testing.T) {
	mux := newTestMux(&fakePlans{}, &fakeDownloads{}, &fakeEmails{})

	rec := doJSON(t, mux, http.MethodGet, "/accounts/not-a-uuid/entitlement", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDownload_Success(t *testing.T) {
	id := uuid.New()
	deliveryID := uuid.New()
	downloads := &fakeDownloads{outcome: &service.DownloadOutcome{
		Result: delivery.Result{
			Success:    true,
			Method:     delivery.MethodDirect,
			DeliveryID: deliveryID,
			Filename:   "Jane_Doe_resume_v1_2026-02-01.pdf",
			Tried:      []delivery.Method{delivery.MethodDirect},
			Attempts:   1,
			Notice:     delivery.Notice{Level: delivery.NoticeSuccess, Message: "Resume downloaded successfully!"},
		},
		State:       domain.PlanState{Kind: domain.PlanKindMeteredStandard, DownloadsUsed: 1, DownloadsAllowed: 5},
		UsageNotice: "Download successful! 4 downloads remaining.",
	}}
	mux := newTestMux(&fakePlans{}, downloads, &fakeEmails{})

	body := `{"document":{"name":"Jane Doe"},"template":"modern","delivery_id":"` + deliveryID.String() + `","max_retries":2}`
	rec := doJSON(t, mux, http.MethodPost, "/accounts/"+id.String()+"/downloads", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp DownloadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "direct", resp.Method)
	assert.Equal(t, int64(4), resp.Remaining)
	assert.Equal(t, "Download successful! 4 downloads remaining.", resp.UsageNotice)
	require.NotNil(t, resp.Notice)
	assert.Equal(t, "success", resp.Notice.Level)

	assert.Equal(t, id, downloads.got.AccountID)
	assert.Equal(t, deliveryID, downloads.got.Options.DeliveryID)
	assert.Equal(t, 2, downloads.got.Options.MaxRetries)
	assert.Equal(t, "Mozilla/5.0 (Android 14)", downloads.got.UserAgent)
}

func TestHandleDownload_Refused(t *testing.T) {
	downloads := &fakeDownloads{err: domain.Refused("download.download", domain.KindPlanRequired)}
	mux := newTestMux(&fakePlans{}, downloads, &fakeEmails{})

	rec := doJSON(t, mux, http.MethodPost, "/accounts/"+uuid.NewString()+"/downloads", `{"document":{"name":"Jane"}}`)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	var resp JSONError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "payment", resp.Error.Code)
	assert.Equal(t, "plan_required", resp.Error.Kind)
	assert.Equal(t, "Please purchase a plan to download your resume.", resp.Error.Message)
}

func TestHandleDownload_DeliveryFailed(t *testing.T) {
	downloads := &fakeDownloads{
		outcome: &service.DownloadOutcome{Result: delivery.Result{
			Kind:   domain.KindAllStrategiesExhausted,
			Method: delivery.MethodNone,
			Notice: delivery.Notice{Level: delivery.NoticeError, Message: "Download timed out."},
		}},
		err: domain.DeliveryFailed(nil, "delivery.deliver", domain.KindAllStrategiesExhausted),
	}
	mux := newTestMux(&fakePlans{}, downloads, &fakeEmails{})

	rec := doJSON(t, mux, http.MethodPost, "/accounts/"+uuid.NewString()+"/downloads", `{"document":{"name":"Jane"}}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp DownloadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "all_strategies_exhausted", resp.Kind)
	require.NotNil(t, resp.Notice)
	assert.Equal(t, "error", resp.Notice.Level)
}

func TestHandleDownload_Validation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "no source", body: `{}`, field: "document"},
		{name: "missing name", body: `{"document":{}}`, field: "document.name"},
		{name: "bad template", body: `{"document":{"name":"J"},"template":"fancy"}`, field: "template"},
		{name: "bad delivery id", body: `{"document":{"name":"J"},"delivery_id":"x"}`, field: "delivery_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			downloads := &fakeDownloads{}
			mux := newTestMux(&fakePlans{}, downloads, &fakeEmails{})

			rec := doJSON(t, mux, http.MethodPost, "/accounts/"+uuid.NewString()+"/downloads", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp JSONError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error.Fields, tt.field)
			assert.Equal(t, uuid.Nil, downloads.got.AccountID, "service must not be called")
		})
	}
}

func TestHandleDownload_RejectsSourceURL(t *testing.T) {
	downloads := &fakeDownloads{}
	mux := newTestMux(&fakePlans{}, downloads, &fakeEmails{})

	body := `{"document":{"name":"J"},"source_url":"http://169.254.169.254/latest/meta-data/"}`
	rec := doJSON(t, mux, http.MethodPost, "/accounts/"+uuid.NewString()+"/downloads", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, uuid.Nil, downloads.got.AccountID, "service must not be called")
	assert.NotContains(t, rec.Body.String(), "meta-data")
}

func TestHandleDownload_MalformedJSON(t *testing.T) {
	mux := newTestMux(&fakePlans{}, &fakeDownloads{}, &fakeEmails{})

	rec := doJSON(t, mux, http.MethodPost, "/accounts/"+uuid.NewString()+"/downloads", `{"document":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEmail(t *testing.T) {
	emails := &fakeEmails{}
	mux := newTestMux(&fakePlans{}, &fakeDownloads{}, emails)

	rec := doJSON(t, mux, http.MethodPost, "/accounts/"+uuid.NewString()+"/emails", `{"document":{"name":"Jane"},"title":"Backend"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp EmailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Sent)
	assert.Equal(t, "jane@example.com", resp.To)
	assert.Equal(t, "Backend", emails.got.Title)
}

func TestHandleEmail_RejectsRecipient(t *testing.T) {
	emails := &fakeEmails{}
	mux := newTestMux(&fakePlans{}, &fakeDownloads{}, emails)

	rec := doJSON(t, mux, http.MethodPost, "/accounts/"+uuid.NewString()+"/emails", `{"document":{"name":"Jane"},"to":"someone@elsewhere.test"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, uuid.Nil, emails.got.AccountID, "service must not be called")
}

func TestHandleEmail_Refused(t *testing.T) {
	emails := &fakeEmails{err: domain.Refused("email.send", domain.KindEmailRequiresPaidPlan)}
	mux := newTestMux(&fakePlans{}, &fakeDownloads{}, emails)

	rec := doJSON(t, mux, http.MethodPost, "/accounts/"+uuid.NewString()+"/emails", `{"document":{"name":"Jane"}}`)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestHandleEmail_NotConfigured(t *testing.T) {
	mux := newTestMux(&fakePlans{}, &fakeDownloads{}, nil)

	rec := doJSON(t, mux, http.MethodPost, "/accounts/"+uuid.NewString()+"/emails", `{"document":{"name":"Jane"}}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
