package service

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
	"time"

	"github.com/DukeRupert/folio/internal/delivery"
	"github.com/DukeRupert/folio/internal/domain"
	"github.com/DukeRupert/folio/internal/email"
	"github.com/DukeRupert/folio/internal/report"
	"github.com/DukeRupert/folio/internal/storage"
	"github.com/google/uuid"
)

// =============================================================================
// Types
// =============================================================================

// EmailRequest asks for a rendered artifact to be emailed to the account's
// own address. No other recipient can be named.
type EmailRequest struct {
	AccountID uuid.UUID
	Document  *report.Document
	Template  report.Template
	Title     string
}

// =============================================================================
// Interface Definition
// =============================================================================

// EmailService emails artifacts to paid accounts. It never touches the
// download counter.
type EmailService interface {
	// Send returns the recipient address on success. Refusals are typed
	// *domain.Error values with Kind set.
	Send(ctx context.Context, req EmailRequest) (string, error)
}

// =============================================================================
// Implementation
// =============================================================================

type emailService struct {
	accounts   AccountStore
	plans      PlanService
	renderer   report.Renderer
	dispatcher email.Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewEmailService creates a new EmailService.
func NewEmailService(accounts AccountStore, plans PlanService, renderer report.Renderer, dispatcher email.Dispatcher, logger *slog.Logger) EmailService {
	return &emailService{
		accounts:   accounts,
		plans:      plans,
		renderer:   renderer,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *emailService) Send(ctx context.Context, req EmailRequest) (string, error) {
	const op = "email.send"

	acct, err := s.accounts.GetAccount(ctx, req.AccountID)
	if err != nil {
		return "", err
	}
	state := s.plans.ResolveAccount(ctx, acct)

	now := s.now()
	decision := domain.Authorize(*state, domain.ActionEmail, now)
	recordDecision(domain.ActionEmail, decision)
	if !decision.Allow {
		s.logger.Info("email refused", "account_id", acct.ID, "plan", state.Label, "reason", decision.Reason)
		return "", decision.Err(op)
	}

	to := strings.TrimSpace(acct.Email)
	if to == "" {
		return "", domain.Invalid(op, "No email address on file")
	}

	data, err := renderDocument(ctx, s.renderer, req.Document, req.Template, op)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", domain.DeliveryFailed(delivery.ErrEmptyArtifact, op, domain.KindInvalidArtifact)
	}

	msg := email.ArtifactEmail{
		To:          to,
		Name:        candidateName(req.Document),
		Filename:    delivery.AttachmentFilename(candidateName(req.Document), req.Title, now),
		ContentType: storage.ContentTypePDF,
		Base64Data:  base64.StdEncoding.EncodeToString(data),
	}
	if err := s.dispatcher.SendArtifact(ctx, msg); err != nil {
		return "", domain.DeliveryFailed(err, op, delivery.Classify(err))
	}

	s.logger.Info("artifact emailed", "account_id", acct.ID, "to", to, "filename", msg.Filename)
	return to, nil
}
