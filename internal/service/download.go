package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DukeRupert/folio/internal/delivery"
	"github.com/DukeRupert/folio/internal/domain"
	"github.com/DukeRupert/folio/internal/metrics"
	"github.com/DukeRupert/folio/internal/report"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// =============================================================================
// Types
// =============================================================================

// DownloadRequest asks for one artifact to be delivered to an account.
// Either Document or SourceURL supplies the artifact. SourceURL is for
// locators produced inside folio, such as a stored render; it is never
// taken from a client request.
type DownloadRequest struct {
	AccountID uuid.UUID
	Document  *report.Document
	Template  report.Template
	SourceURL string
	Title     string // Resume title used in the default filename
	Filename  string // Overrides the versioned default when set
	UserAgent string

	// Options carries retry tuning and callbacks. Its DeliveryID, when set,
	// makes a retried request count once.
	Options delivery.Options
}

// DownloadOutcome is the result of a download that passed the gate.
type DownloadOutcome struct {
	Result delivery.Result

	// State is the plan after the download was recorded.
	State domain.PlanState

	// UsageNotice tells metered users how many downloads they have left.
	// Empty for unlimited plans and failed deliveries.
	UsageNotice string
}

// =============================================================================
// Interface Definition
// =============================================================================

// DownloadService runs the gate, render, deliver, record sequence.
type DownloadService interface {
	// Download returns a typed refusal (domain.EPAYMENT with a Kind) when
	// the plan does not allow it, without rendering anything or touching
	// the counter. A failed delivery returns the outcome and its error.
	Download(ctx context.Context, req DownloadRequest) (*DownloadOutcome, error)
}

// =============================================================================
// Implementation
// =============================================================================

type downloadService struct {
	plans     PlanService
	usage     UsageLedger
	renderer  report.Renderer
	deliverer Deliverer
	logger    *slog.Logger
	now       func() time.Time
}

// NewDownloadService creates a new DownloadService.
func NewDownloadService(plans PlanService, usage UsageLedger, renderer report.Renderer, deliverer Deliverer, logger *slog.Logger) DownloadService {
	return &downloadService{
		plans:     plans,
		usage:     usage,
		renderer:  renderer,
		deliverer: deliverer,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *downloadService) Download(ctx context.Context, req DownloadRequest) (*DownloadOutcome, error) {
	const op = "download.download"

	ctx, span := tracer.Start(ctx, "DownloadService.Download",
		trace.WithAttributes(attribute.String("account.id", req.AccountID.String())),
	)
	defer span.End()

	state, err := s.plans.Resolve(ctx, req.AccountID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve failed")
		return nil, err
	}

	now := s.now()
	decision := domain.Authorize(*state, domain.ActionDownload, now)
	recordDecision(domain.ActionDownload, decision)
	if !decision.Allow {
		s.logger.Info("download refused",
			"account_id", req.AccountID,
			"plan", state.Label,
			"reason", decision.Reason,
			"used", state.DownloadsUsed,
			"allowed", state.DownloadsAllowed,
		)
		span.SetStatus(codes.Error, string(decision.Reason))
		return nil, decision.Err(op)
	}

	src, err := s.source(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return nil, err
	}

	filename := req.Filename
	if filename == "" {
		filename = delivery.VersionedFilename(candidateName(req.Document), req.Title, state.DownloadsUsed+1, now)
	}

	opts := req.Options
	if opts.DeliveryID == uuid.Nil {
		opts.DeliveryID = uuid.New()
	}
	if opts.UserAgent == "" || opts.UserAgent == delivery.UserAgentUnknown {
		opts.UserAgent = delivery.ClassifyUserAgent(req.UserAgent)
	}

	res := s.deliverer.Deliver(ctx, src, filename, opts)
	outcome := &DownloadOutcome{Result: res, State: *state}
	if !res.Success {
		span.SetStatus(codes.Error, string(res.Kind))
		return outcome, res.Err
	}

	span.SetAttributes(attribute.String("delivery.method", string(res.Method)))
	if !state.Kind.IsMetered() {
		return outcome, nil
	}

	count, err := s.usage.RecordSuccess(ctx, req.AccountID, state.Kind, res.DeliveryID)
	if err != nil {
		// The user already has the file; a lost count is logged, not surfaced.
		s.logger.Error("failed to record download",
			"account_id", req.AccountID,
			"delivery_id", res.DeliveryID,
			"error", err,
		)
		return outcome, nil
	}

	outcome.State = state.WithUsage(count)
	outcome.UsageNotice = domain.RemainingMessage(outcome.State.Remaining())
	return outcome, nil
}

// source renders the document or passes the URL through.
func (s *downloadService) source(ctx context.Context, req DownloadRequest) (delivery.Source, error) {
	const op = "download.render"

	if req.SourceURL != "" {
		return delivery.FromURL(req.SourceURL), nil
	}
	data, err := renderDocument(ctx, s.renderer, req.Document, req.Template, op)
	if err != nil {
		return delivery.Source{}, err
	}
	return delivery.FromBytes(data), nil
}

// =============================================================================
// Helpers
// =============================================================================

func renderDocument(ctx context.Context, renderer report.Renderer, doc *report.Document, tmpl report.Template, op string) ([]byte, error) {
	if tmpl == "" {
		tmpl = report.TemplateClassic
	}
	data, err := renderer.Render(ctx, doc, tmpl)
	switch {
	case errors.Is(err, report.ErrEmptyDocument), errors.Is(err, report.ErrUnknownTemplate):
		return nil, domain.Wrap(err, domain.EINVALID, op, "Unable to render resume: "+err.Error())
	case err != nil:
		return nil, domain.Internal(err, op, "Failed to render resume")
	}
	return data, nil
}

func candidateName(doc *report.Document) string {
	if doc == nil {
		return ""
	}
	return doc.Name
}

func recordDecision(action domain.Action, d domain.Decision) {
	result := "allow"
	if !d.Allow {
		result = string(d.Reason)
	}
	metrics.EntitlementDecided(string(action), result)
}
