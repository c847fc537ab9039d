// Package handler contains HTTP handlers for the folio API.
//
// This file implements the account-scoped artifact routes.
//
// Routes:
//   - GET  /accounts/{id}/entitlement -> HandleEntitlement
//   - POST /accounts/{id}/downloads   -> HandleDownload
//   - POST /accounts/{id}/emails      -> HandleEmail
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/folio/internal/delivery"
	"github.com/DukeRupert/folio/internal/domain"
	"github.com/DukeRupert/folio/internal/report"
	"github.com/DukeRupert/folio/internal/service"
	"github.com/google/uuid"
)

// =============================================================================
// Request and Response Types
// =============================================================================

// DownloadRequest is the body of POST /accounts/{id}/downloads.
type DownloadRequest struct {
	Document   *report.Document `json:"document" validate:"required"`
	Template   string           `json:"template,omitempty" validate:"omitempty,oneof=classic modern"`
	Title      string           `json:"title,omitempty" validate:"max=100"`
	Filename   string           `json:"filename,omitempty" validate:"max=255"`
	DeliveryID string           `json:"delivery_id,omitempty" validate:"omitempty,uuid"`
	MaxRetries int              `json:"max_retries,omitempty" validate:"omitempty,min=1,max=10"`
}

// EmailRequest is the body of POST /accounts/{id}/emails. The artifact is
// always sent to the account's own address.
type EmailRequest struct {
	Document *report.Document `json:"document" validate:"required"`
	Template string           `json:"template,omitempty" validate:"omitempty,oneof=classic modern"`
	Title    string           `json:"title,omitempty" validate:"max=100"`
}

// DecisionResponse is one entitlement decision.
type DecisionResponse struct {
	Allow   bool   `json:"allow"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// EntitlementResponse is the body of GET /accounts/{id}/entitlement.
type EntitlementResponse struct {
	AccountID        string           `json:"account_id"`
	Kind             string           `json:"kind"`
	Plan             string           `json:"plan"`
	PlanName         string           `json:"plan_name"`
	Validity         string           `json:"validity"`
	ExpiresAt        *time.Time       `json:"expires_at,omitempty"`
	DownloadsUsed    int64            `json:"downloads_used"`
	DownloadsAllowed int64            `json:"downloads_allowed"`
	Remaining        int64            `json:"remaining"`
	Download         DecisionResponse `json:"download"`
	Email            DecisionResponse `json:"email"`
}

// NoticeResponse is what the client should show the user.
type NoticeResponse struct {
	Level    string `json:"level"`
	Message  string `json:"message"`
	Link     string `json:"link,omitempty"`
	Copyable bool   `json:"copyable,omitempty"`
}

// DownloadResponse is the body of POST /accounts/{id}/downloads.
type DownloadResponse struct {
	Success     bool            `json:"success"`
	Method      string          `json:"method"`
	DeliveryID  string          `json:"delivery_id"`
	Filename    string          `json:"filename"`
	Location    string          `json:"location,omitempty"`
	Attempts    int             `json:"attempts"`
	Tried       []string        `json:"tried,omitempty"`
	Kind        string          `json:"kind,omitempty"`
	Notice      *NoticeResponse `json:"notice,omitempty"`
	UsageNotice string          `json:"usage_notice,omitempty"`
	Remaining   int64           `json:"remaining"`
}

// EmailResponse is the body of POST /accounts/{id}/emails.
type EmailResponse struct {
	Sent bool   `json:"sent"`
	To   string `json:"to"`
}

// =============================================================================
// Handler
// =============================================================================

// AccountHandler serves entitlement, download and email routes.
type AccountHandler struct {
	plans     service.PlanService
	downloads service.DownloadService
	emails    service.EmailService
	defaults  delivery.Options
	logger    *slog.Logger
}

// NewAccountHandler creates a new AccountHandler. emails may be nil when
// SMTP is not configured; the email route then answers 503.
func NewAccountHandler(plans service.PlanService, downloads service.DownloadService, emails service.EmailService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		plans:     plans,
		downloads: downloads,
		emails:    emails,
		defaults:  delivery.DefaultOptions(),
		logger:    logger,
	}
}

// WithDeliveryDefaults sets the retry tuning used when a request does not
// override it.
func (h *AccountHandler) WithDeliveryDefaults(opts delivery.Options) *AccountHandler {
	h.defaults = opts
	return h
}

// RegisterRoutes registers account routes on the provided mux.
func (h *AccountHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /accounts/{id}/entitlement", h.HandleEntitlement)
	mux.HandleFunc("POST /accounts/{id}/downloads", h.HandleDownload)
	mux.HandleFunc("POST /accounts/{id}/emails", h.HandleEmail)
}

// HandleEntitlement reports the account's plan and what it may do.
func (h *AccountHandler) HandleEntitlement(w http.ResponseWriter, r *http.Request) {
	const op = "handler.entitlement"

	accountID, err := accountIDFromPath(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	ent, err := h.plans.Entitlement(r.Context(), accountID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, EntitlementResponse{
		AccountID:        ent.AccountID.String(),
		Kind:             string(ent.State.Kind),
		Plan:             ent.State.Label,
		PlanName:         ent.State.Spec().Name,
		Validity:         string(ent.Validity),
		ExpiresAt:        ent.State.ExpiresAt,
		DownloadsUsed:    ent.State.DownloadsUsed,
		DownloadsAllowed: ent.State.DownloadsAllowed,
		Remaining:        ent.Remaining,
		Download:         toDecisionResponse(ent.Download),
		Email:            toDecisionResponse(ent.Email),
	})
}

// HandleDownload gates, renders and delivers an artifact.
func (h *AccountHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	const op = "handler.download"

	accountID, err := accountIDFromPath(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req DownloadRequest
	if err := decodeJSON(r, op, &req); err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	opts := h.defaults
	if req.MaxRetries > 0 {
		opts.MaxRetries = req.MaxRetries
	}
	if req.DeliveryID != "" {
		// Already validated as a UUID.
		opts.DeliveryID = uuid.MustParse(req.DeliveryID)
	}

	outcome, err := h.downloads.Download(r.Context(), service.DownloadRequest{
		AccountID: accountID,
		Document:  req.Document,
		Template:  report.Template(req.Template),
		Title:     req.Title,
		Filename:  req.Filename,
		UserAgent: r.UserAgent(),
		Options:   opts,
	})
	if outcome == nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	status := http.StatusOK
	if err != nil {
		status = ErrorCodeToHTTPStatus(domain.ErrorCode(err))
		logError(h.logger, r, err, domain.ErrorCode(err), domain.ErrorOp(err), status)
	}
	writeJSON(w, status, toDownloadResponse(outcome))
}

// HandleEmail gates, renders and emails an artifact.
func (h *AccountHandler) HandleEmail(w http.ResponseWriter, r *http.Request) {
	const op = "handler.email"

	if h.emails == nil {
		writeJSONError(w, http.StatusServiceUnavailable, domain.EUNAVAILABLE, "", "Email delivery is not configured")
		return
	}

	accountID, err := accountIDFromPath(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req EmailRequest
	if err := decodeJSON(r, op, &req); err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	to, err := h.emails.Send(r.Context(), service.EmailRequest{
		AccountID: accountID,
		Document:  req.Document,
		Template:  report.Template(req.Template),
		Title:     req.Title,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, EmailResponse{Sent: true, To: to})
}

// =============================================================================
// Helpers
// =============================================================================

func accountIDFromPath(r *http.Request, op string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, domain.Invalid(op, "Invalid account ID")
	}
	return id, nil
}

func toDecisionResponse(d domain.Decision) DecisionResponse {
	resp := DecisionResponse{Allow: d.Allow}
	if !d.Allow {
		resp.Reason = string(d.Reason)
		resp.Message = d.Message
	}
	return resp
}

func toDownloadResponse(o *service.DownloadOutcome) DownloadResponse {
	res := o.Result
	resp := DownloadResponse{
		Success:     res.Success,
		Method:      string(res.Method),
		DeliveryID:  res.DeliveryID.String(),
		Filename:    res.Filename,
		Location:    res.Location,
		Attempts:    res.Attempts,
		Kind:        string(res.Kind),
		UsageNotice: o.UsageNotice,
		Remaining:   o.State.Remaining(),
	}
	for _, m := range res.Tried {
		resp.Tried = append(resp.Tried, string(m))
	}
	if res.Notice.Message != "" {
		resp.Notice = &NoticeResponse{
			Level:    string(res.Notice.Level),
			Message:  res.Notice.Message,
			Link:     res.Notice.Link,
			Copyable: res.Notice.Copyable,
		}
	}
	return resp
}
