// Package handler contains HTTP handlers for the folio API.
//
// This file implements the Stripe webhook handler, which keeps the payment
// ledger and account plans in step with charges.
//
// Route:
//   - POST /webhooks/stripe -> HandleStripeWebhook
//
// This route is PUBLIC (no auth middleware) because Stripe calls it directly.
// Authentication is via the Stripe webhook signature verification.
package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/folio/internal/billing"
	"github.com/DukeRupert/folio/internal/domain"
	"github.com/DukeRupert/folio/internal/service"
	"github.com/stripe/stripe-go/v79"
)

// maxWebhookBytes is the largest webhook body read.
const maxWebhookBytes = 65536

// WebhookHandler handles incoming webhook events from Stripe.
type WebhookHandler struct {
	billing  billing.Service
	payments service.PaymentService
	logger   *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
// billingService may be nil when Stripe is not configured.
func NewWebhookHandler(billingService billing.Service, payments service.PaymentService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		billing:  billingService,
		payments: payments,
		logger:   logger,
	}
}

// RegisterRoutes registers webhook routes on the provided mux.
// These routes are public; Stripe authenticates with the signature header.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook processes incoming Stripe webhook events. A non-2xx
// answer makes Stripe redeliver, so only failures worth retrying get one.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.logger.Warn("stripe webhook received but billing is not configured")
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	event, err := h.billing.VerifyWebhookSignature(body, signature)
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.Info("stripe webhook received", "type", event.Type, "id", event.ID)

	switch event.Type {
	case "charge.succeeded", "charge.failed":
		w.WriteHeader(h.handleCharge(r, event))
		return
	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handleCharge(r *http.Request, event stripe.Event) int {
	var ch stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
		h.logger.Error("failed to parse charge", "error", err, "event_id", event.ID)
		return http.StatusBadRequest
	}

	var customerID string
	if ch.Customer != nil {
		customerID = ch.Customer.ID
	}

	payment := billing.PaymentFromCharge("", &ch)
	outcome, err := h.payments.RecordPayment(r.Context(), customerID, payment)
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.ENOTFOUND, domain.EINVALID:
			// Redelivery cannot fix a charge we cannot attribute.
			h.logger.Warn("charge not applied",
				"charge_id", ch.ID,
				"customer_id", customerID,
				"error", err,
			)
			return http.StatusOK
		default:
			h.logger.Error("failed to record charge", "charge_id", ch.ID, "error", err)
			return http.StatusInternalServerError
		}
	}

	h.logger.Info("charge recorded",
		"charge_id", ch.ID,
		"account_id", outcome.AccountID,
		"status", payment.Status,
		"duplicate", outcome.Duplicate,
	)
	return http.StatusOK
}
