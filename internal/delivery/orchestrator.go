package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DukeRupert/folio/internal/domain"
	"github.com/DukeRupert/folio/internal/metrics"
	"github.com/DukeRupert/folio/internal/observability"
	"github.com/DukeRupert/folio/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("folio.delivery")

const (
	noticeDirect = "PDF downloaded successfully!"
	noticeNewTab = "PDF opened in new tab. Use your browser's download option to save it."
	noticeLink   = `Right-click the link below and select "Save As" to download:`

	// reportTimeout bounds a sink call so a slow sink cannot hold up the caller.
	reportTimeout = 5 * time.Second

	methodAllFailed = "all_failed"
)

// Config wires the strategies and collaborators of an Orchestrator. Any
// strategy may be nil, in which case it is skipped.
type Config struct {
	Saver   Saver
	Opener  TabOpener
	Links   LinkPublisher
	Fetcher Fetcher
	Sink    observability.Sink
	Logger  *slog.Logger
}

// Orchestrator runs the delivery strategy chain.
type Orchestrator struct {
	saver   Saver
	opener  TabOpener
	links   LinkPublisher
	fetcher Fetcher
	sink    observability.Sink
	logger  *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an Orchestrator. A missing Fetcher defaults to an
// HTTPFetcher and a missing Logger to slog.Default.
func NewOrchestrator(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = NewHTTPFetcher(nil)
	}
	return &Orchestrator{
		saver:   cfg.Saver,
		opener:  cfg.Opener,
		links:   cfg.Links,
		fetcher: fetcher,
		sink:    cfg.Sink,
		logger:  logger.With("component", "delivery"),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// run carries the per-call state of a delivery.
type run struct {
	opts     Options
	art      *Artifact
	logger   *slog.Logger
	tried    []Method
	attempts int
	notified bool
}

// Deliver materializes src and hands it to the user, trying the direct
// transfer up to MaxRetries times and then each fallback once.
//
// Deliver never returns an error; the outcome, including failures, is in
// the Result. OnError fires once per failed delivery.
func (o *Orchestrator) Deliver(ctx context.Context, src Source, filename string, opts Options) Result {
	const op = "delivery.Deliver"

	opts = opts.withDefaults()
	start := o.now()
	name := SanitizeFilename(filename, start)

	ctx, span := tracer.Start(ctx, "delivery.Deliver",
		trace.WithAttributes(
			attribute.String("delivery.id", opts.DeliveryID.String()),
			attribute.String("delivery.filename", name),
			attribute.String("delivery.user_agent", string(opts.UserAgent)),
		),
	)
	defer span.End()

	r := &run{
		opts:   opts,
		logger: o.logger.With("delivery_id", opts.DeliveryID, "filename", name),
	}

	data, fetchAttempts, err := o.materialize(ctx, src, r)
	if err != nil {
		res := o.preChainFailure(ctx, err, fetchAttempts, name, r)
		span.RecordError(err)
		span.SetStatus(codes.Error, "artifact unavailable")
		metrics.DeliveryFinished(string(MethodNone), string(res.Kind), 0, o.now().Sub(start))
		return res
	}

	r.art = &Artifact{
		ID:          opts.DeliveryID,
		Filename:    name,
		ContentType: storage.DetectContentType("", name, data),
		Data:        data,
	}
	span.SetAttributes(attribute.Int("delivery.size", r.art.Size()))

	res, primary := o.chain(ctx, r)
	res.DeliveryID = opts.DeliveryID
	res.Filename = name
	res.Size = r.art.Size()
	res.Tried = r.tried
	res.Attempts = r.attempts

	if res.Success {
		span.SetAttributes(attribute.String("delivery.method", string(res.Method)))
		span.SetStatus(codes.Ok, "")
		metrics.DeliveryFinished(string(res.Method), "success", res.Size, o.now().Sub(start))
		r.logger.Info("delivered artifact",
			"method", res.Method,
			"attempts", res.Attempts,
			"size", res.Size,
		)
		return res
	}

	res.Cause = Classify(primary)
	if res.Cause == domain.KindCanceled {
		res.Kind = domain.KindCanceled
		res.Err = domain.DeliveryFailed(primary, op, domain.KindCanceled)
		res.Notice = Notice{Level: NoticeError, Message: domain.KindMessage(domain.KindCanceled)}
		span.SetStatus(codes.Error, "canceled")
		metrics.DeliveryFinished(string(MethodNone), string(res.Kind), res.Size, o.now().Sub(start))
		r.logger.Info("delivery canceled", "tried", res.Tried)
		return res
	}

	if !r.notified {
		r.onError(primary, r.opts.MaxRetries)
	}

	res.Kind = domain.KindAllStrategiesExhausted
	derr := domain.DeliveryFailed(primary, op, domain.KindAllStrategiesExhausted)
	derr.Message = domain.KindMessage(res.Cause)
	res.Err = derr
	res.Notice = Notice{Level: NoticeError, Message: derr.Message}

	span.RecordError(primary)
	span.SetStatus(codes.Error, "all strategies exhausted")
	metrics.DeliveryFinished(string(MethodNone), string(res.Kind), res.Size, o.now().Sub(start))
	r.logger.Error("all delivery strategies failed",
		"tried", res.Tried,
		"attempts", res.Attempts,
		"cause", res.Cause,
		"error", primary,
	)

	o.report(ctx, observability.FailureReport{
		DeliveryID:     opts.DeliveryID,
		Type:           observability.ReportDownloadFailed,
		Kind:           string(res.Cause),
		Error:          primary.Error(),
		Filename:       name,
		Method:         methodAllFailed,
		UserAgentClass: string(opts.UserAgent),
		Size:           res.Size,
		Tried:          methodNames(res.Tried),
		Attempts:       res.Attempts,
		OccurredAt:     o.now(),
	}, r)

	return res
}

// materialize resolves src into bytes, fetching URL sources with retries.
// It returns the number of fetch attempts made.
func (o *Orchestrator) materialize(ctx context.Context, src Source, r *run) ([]byte, int, error) {
	switch {
	case len(src.Data) > 0 && src.URL != "":
		return nil, 0, ErrInvalidSource
	case src.URL != "":
		return o.fetch(ctx, src.URL, r)
	case len(src.Data) == 0:
		return nil, 0, ErrEmptyArtifact
	case !storage.LooksLikePDF(src.Data):
		return nil, 0, ErrNotPDF
	default:
		return src.Data, 0, nil
	}
}

func (o *Orchestrator) fetch(ctx context.Context, url string, r *run) ([]byte, int, error) {
	ctx, span := tracer.Start(ctx, "delivery.fetch")
	defer span.End()

	maxRetries := r.opts.FetchRetries
	var lastErr error
	attempt := 1
	for ; attempt <= maxRetries; attempt++ {
		r.progress(Progress{Stage: StageFetching, Attempt: attempt, MaxRetries: maxRetries})

		var data []byte
		err := o.bounded(ctx, r.opts.Timeout, func(ctx context.Context) error {
			d, err := o.fetcher.Fetch(ctx, url)
			data = d
			return err
		})
		switch {
		case err != nil:
		case len(data) == 0:
			err = ErrEmptyArtifact
		case !storage.LooksLikePDF(data):
			err = ErrNotPDF
		}
		if err == nil {
			r.progress(Progress{Stage: StageConverting, Attempt: attempt, MaxRetries: maxRetries})
			r.progress(Progress{Stage: StageDownloading, Attempt: attempt, MaxRetries: maxRetries})
			span.SetAttributes(attribute.Int("fetch.attempts", attempt))
			return data, attempt, nil
		}

		lastErr = err
		kind := Classify(err)
		r.logger.Warn("fetch attempt failed",
			"attempt", attempt,
			"max_retries", maxRetries,
			"kind", kind,
			"error", err,
		)
		if attempt == maxRetries || !kind.Retryable() {
			break
		}
		if err := o.sleep(ctx, backoff(r.opts.RetryDelay, attempt)); err != nil {
			lastErr = err
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "fetch failed")
	return nil, attempt, lastErr
}

// preChainFailure handles an artifact that never became available. No
// strategy has run, so the result carries method none.
func (o *Orchestrator) preChainFailure(ctx context.Context, err error, attempts int, name string, r *run) Result {
	const op = "delivery.Deliver"

	kind := Classify(err)
	res := Result{
		Method:     MethodNone,
		DeliveryID: r.opts.DeliveryID,
		Filename:   name,
		Kind:       kind,
		Cause:      kind,
		Err:        domain.DeliveryFailed(err, op, kind),
		Attempts:   attempts,
		Notice:     Notice{Level: NoticeError, Message: domain.KindMessage(kind)},
	}

	r.logger.Error("artifact unavailable", "kind", kind, "error", err)
	r.onError(err, attempts)

	if kind != domain.KindCanceled {
		o.report(ctx, observability.FailureReport{
			DeliveryID:     r.opts.DeliveryID,
			Type:           observability.ReportDownloadError,
			Kind:           string(kind),
			Error:          err.Error(),
			Filename:       name,
			Method:         string(MethodNone),
			UserAgentClass: string(r.opts.UserAgent),
			Attempts:       attempts,
			OccurredAt:     o.now(),
		}, r)
	}
	return res
}

// chain runs the strategies in order. On failure it returns the error that
// first pushed delivery onto the fallbacks.
func (o *Orchestrator) chain(ctx context.Context, r *run) (Result, error) {
	var primary error
	note := func(err error) {
		if primary == nil {
			primary = err
		}
	}

	if o.saver != nil {
		loc, err := o.direct(ctx, r)
		if err == nil {
			return Result{
				Success:  true,
				Method:   MethodDirect,
				Location: loc,
				Notice:   Notice{Level: NoticeSuccess, Message: noticeDirect},
			}, nil
		}
		note(err)
		if ctx.Err() != nil {
			return Result{Method: MethodNone}, ctx.Err()
		}
	}

	if o.opener != nil && r.opts.UserAgent.opensTabs() {
		err := o.once(ctx, MethodNewTab, r, func(ctx context.Context) error {
			return o.opener.OpenTab(ctx, r.art)
		})
		if err == nil {
			return Result{
				Success: true,
				Method:  MethodNewTab,
				Notice:  Notice{Level: NoticeInfo, Message: noticeNewTab},
			}, nil
		}
		note(err)
		if ctx.Err() != nil {
			return Result{Method: MethodNone}, ctx.Err()
		}
	}

	if o.links != nil {
		var link string
		err := o.once(ctx, MethodLink, r, func(ctx context.Context) error {
			l, err := o.links.Publish(ctx, r.art)
			link = l
			return err
		})
		if err == nil {
			return Result{
				Success:  true,
				Method:   MethodLink,
				Location: link,
				Notice:   Notice{Level: NoticeInfo, Message: noticeLink, Link: link, Copyable: true},
			}, nil
		}
		note(err)
	}

	if primary == nil {
		primary = errors.New("delivery: no strategies configured")
	}
	return Result{Method: MethodNone}, primary
}

// direct attempts the direct transfer up to MaxRetries times with
// exponential backoff between attempts.
func (o *Orchestrator) direct(ctx context.Context, r *run) (string, error) {
	ctx, span := tracer.Start(ctx, "delivery.direct")
	defer span.End()

	r.tried = append(r.tried, MethodDirect)
	maxRetries := r.opts.MaxRetries

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		r.attempts++
		r.progress(Progress{Stage: StagePreparing, Method: MethodDirect, Attempt: attempt, MaxRetries: maxRetries})
		r.progress(Progress{Stage: StageTriggering, Method: MethodDirect, Attempt: attempt, MaxRetries: maxRetries})

		var loc string
		err := o.bounded(ctx, r.opts.Timeout, func(ctx context.Context) error {
			l, err := o.saver.Save(ctx, r.art)
			loc = l
			return err
		})
		if err == nil {
			metrics.DeliveryAttempt(string(MethodDirect), "ok")
			span.SetAttributes(attribute.Int("delivery.attempts", attempt))
			r.progress(Progress{Stage: StageSuccess, Method: MethodDirect, Attempt: attempt, MaxRetries: maxRetries})
			return loc, nil
		}

		lastErr = err
		kind := Classify(err)
		metrics.DeliveryAttempt(string(MethodDirect), string(kind))
		span.AddEvent("attempt failed", trace.WithAttributes(
			attribute.Int("attempt", attempt),
			attribute.String("kind", string(kind)),
		))
		r.logger.Warn("direct delivery attempt failed",
			"attempt", attempt,
			"max_retries", maxRetries,
			"kind", kind,
			"error", err,
		)

		if attempt == maxRetries || !kind.Retryable() {
			r.onError(err, attempt)
			break
		}
		if err := o.sleep(ctx, backoff(r.opts.RetryDelay, attempt)); err != nil {
			lastErr = err
			r.onError(err, attempt)
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "direct delivery failed")
	return "", lastErr
}

// once runs a single-shot fallback strategy.
func (o *Orchestrator) once(ctx context.Context, method Method, r *run, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "delivery."+string(method))
	defer span.End()

	r.tried = append(r.tried, method)
	r.attempts++

	r.progress(Progress{Stage: StagePreparing, Method: method, Attempt: 1, MaxRetries: 1})
	r.progress(Progress{Stage: StageTriggering, Method: method, Attempt: 1, MaxRetries: 1})

	err := o.bounded(ctx, r.opts.Timeout, fn)
	if err != nil {
		kind := Classify(err)
		metrics.DeliveryAttempt(string(method), string(kind))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		r.logger.Warn("fallback delivery failed", "method", method, "kind", kind, "error", err)
		return err
	}

	metrics.DeliveryAttempt(string(method), "ok")
	r.progress(Progress{Stage: StageSuccess, Method: method, Attempt: 1, MaxRetries: 1})
	return nil
}

// bounded runs fn with a per-attempt timeout. A strategy that ignores its
// context is abandoned once the timeout fires.
func (o *Orchestrator) bounded(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("delivery: strategy panicked: %v", rec)
			}
		}()
		done <- fn(actx)
	}()

	select {
	case err := <-done:
		return err
	case <-actx.Done():
		select {
		case err := <-done:
			return err
		default:
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrAttemptTimeout
	}
}

// report hands a failure report to the sink. Sink errors are logged and
// otherwise ignored.
func (o *Orchestrator) report(ctx context.Context, fr observability.FailureReport, r *run) {
	if o.sink == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("failure sink panicked", "panic", rec)
		}
	}()

	if err := o.sink.Report(ctx, fr); err != nil {
		r.logger.Warn("failed to report delivery failure", "type", fr.Type, "error", err)
	}
}

func (r *run) progress(p Progress) {
	if r.opts.OnProgress == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("progress callback panicked", "stage", p.Stage, "panic", rec)
		}
	}()
	r.opts.OnProgress(p)
}

func (r *run) onError(err error, attempt int) {
	r.notified = true
	if r.opts.OnError == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("error callback panicked", "panic", rec)
		}
	}()
	r.opts.OnError(err, attempt)
}

func methodNames(methods []Method) []string {
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = string(m)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
