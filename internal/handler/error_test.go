package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DukeRupert/folio/internal/domain"
)

// =============================================================================
// Error Response Tests - Security Focus
// =============================================================================

func TestValidationErrorResponse_DoesNotExposeOperationName(t *testing.T) {
	ve := domain.NewValidationError("DownloadService.Download", "document.name", "is required")

	req := httptest.NewRequest("POST", "/accounts/x/downloads", nil)
	rec := httptest.NewRecorder()
	ValidationErrorResponse(rec, req, discardLogger(), ve)

	body := rec.Body.String()

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if strings.Contains(body, "DownloadService") {
		t.Errorf("response exposes internal operation name: %s", body)
	}
	if !strings.Contains(body, "document.name") {
		t.Errorf("response should contain field name: %s", body)
	}
}

func TestErrorResponse_InternalErrorHidesDetails(t *testing.T) {
	dbErr := &mockDatabaseError{message: "connection to 192.168.1.100:5432 refused"}
	internalErr := domain.Internal(dbErr, "usage.record", "Database query failed")

	req := httptest.NewRequest("POST", "/accounts/x/downloads", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, discardLogger(), internalErr)

	body := rec.Body.String()

	if strings.Contains(body, "192.168") {
		t.Errorf("response exposes IP address: %s", body)
	}
	if strings.Contains(body, "usage.record") {
		t.Errorf("response exposes internal operation: %s", body)
	}
	if !strings.Contains(body, "internal error") {
		t.Errorf("response should contain generic internal error message, got: %s", body)
	}
}

func TestErrorResponse_UnwrappedErrorReturnsGeneric(t *testing.T) {
	rawErr := &mockDatabaseError{message: "FATAL: password authentication failed for user \"postgres\""}

	req := httptest.NewRequest("GET", "/data", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, discardLogger(), rawErr)

	body := rec.Body.String()

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(body, "FATAL") || strings.Contains(body, "postgres") {
		t.Errorf("response exposes raw error: %s", body)
	}
}

func TestErrorResponse_CarriesKind(t *testing.T) {
	err := domain.RefusedWithMessage("download.download", domain.KindQuotaExceeded, "You've used all 2 downloads from your Quick Start.")

	req := httptest.NewRequest("POST", "/accounts/x/downloads", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, discardLogger(), err)

	var resp JSONError
	if jerr := json.Unmarshal(rec.Body.Bytes(), &resp); jerr != nil {
		t.Fatalf("invalid JSON: %v", jerr)
	}
	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("status = %d, want 402", rec.Code)
	}
	if resp.Error.Kind != "quota_exceeded" {
		t.Errorf("kind = %q, want quota_exceeded", resp.Error.Kind)
	}
	if !strings.Contains(resp.Error.Message, "Quick Start") {
		t.Errorf("message = %q, want plan specific text", resp.Error.Message)
	}
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EPAYMENT, http.StatusPaymentRequired},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EUNAVAILABLE, http.StatusBadGateway},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"something_else", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ErrorCodeToHTTPStatus(tt.code); got != tt.want {
				t.Errorf("ErrorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestErrorResponse_WrappedDomainError(t *testing.T) {
	err := errors.Join(errors.New("context"), domain.NotFound("account.get", "account", "123"))

	req := httptest.NewRequest("GET", "/accounts/123/entitlement", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, discardLogger(), err)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// mockDatabaseError simulates a database error for testing
type mockDatabaseError struct {
	message string
}

func (e *mockDatabaseError) Error() string {
	return e.message
}
