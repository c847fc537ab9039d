package delivery

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DukeRupert/folio/internal/domain"
	"github.com/DukeRupert/folio/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF")

type recordingSink struct {
	mu      sync.Mutex
	reports []observability.FailureReport
}

func (s *recordingSink) Report(ctx context.Context, r observability.FailureReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return nil
}

type recorder struct {
	mu       sync.Mutex
	progress []Progress
	errs     []int
	sleeps   []time.Duration
}

func (r *recorder) onProgress(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *recorder) onError(err error, attempt int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, attempt)
}

func (r *recorder) stages(method Method, stage Stage) int {
	n := 0
	for _, p := range r.progress {
		if p.Method == method && p.Stage == stage {
			n++
		}
	}
	return n
}

func newTestOrchestrator(cfg Config, rec *recorder) *Orchestrator {
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	o := NewOrchestrator(cfg)
	o.sleep = func(ctx context.Context, d time.Duration) error {
		rec.mu.Lock()
		rec.sleeps = append(rec.sleeps, d)
		rec.mu.Unlock()
		return ctx.Err()
	}
	return o
}

func testOptions(rec *recorder) Options {
	return Options{
		MaxRetries: 3,
		RetryDelay: 100 * time.Millisecond,
		Timeout:    50 * time.Millisecond,
		OnProgress: rec.onProgress,
		OnError:    rec.onError,
	}
}

func failingSaver(err error, calls *int) SaverFunc {
	return func(ctx context.Context, art *Artifact) (string, error) {
		*calls++
		return "", err
	}
}

func TestDeliver_DirectSucceedsFirstAttempt(t *testing.T) {
	rec := &recorder{}
	o := newTestOrchestrator(Config{
		Saver: SaverFunc(func(ctx context.Context, art *Artifact) (string, error) {
			return "file:///tmp/" + art.Filename, nil
		}),
	}, rec)

	res := o.Deliver(context.Background(), FromBytes(samplePDF), "Jane Doe Résumé.pdf", testOptions(rec))

	require.True(t, res.Success)
	assert.Equal(t, MethodDirect, res.Method)
	assert.Equal(t, "Jane_Doe_Resume.pdf", res.Filename)
	assert.Equal(t, "file:///tmp/Jane_Doe_Resume.pdf", res.Location)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, []Method{MethodDirect}, res.Tried)
	assert.Equal(t, NoticeSuccess, res.Notice.Level)
	assert.Equal(t, "PDF downloaded successfully!", res.Notice.Message)
	assert.Empty(t, res.Kind)
	assert.NoError(t, res.Err)

	assert.Equal(t, []Stage{StagePreparing, StageTriggering, StageSuccess}, []Stage{
		rec.progress[0].Stage, rec.progress[1].Stage, rec.progress[2].Stage,
	})
	assert.Empty(t, rec.errs)
	assert.Empty(t, rec.sleeps)
}

func TestDeliver_TimeoutsFallBackToNewTab(t *testing.T) {
	rec := &recorder{}
	sink := &recordingSink{}
	var saves atomic.Int32
	o := newTestOrchestrator(Config{
		Saver: SaverFunc(func(ctx context.Context, art *Artifact) (string, error) {
			saves.Add(1)
			<-ctx.Done()
			return "", ctx.Err()
		}),
		Opener: TabOpenerFunc(func(ctx context.Context, art *Artifact) error { return nil }),
		Sink:   sink,
	}, rec)

	res := o.Deliver(context.Background(), FromBytes(samplePDF), "resume.pdf", testOptions(rec))

	require.True(t, res.Success)
	assert.Equal(t, MethodNewTab, res.Method)
	assert.Equal(t, int32(3), saves.Load())
	assert.Equal(t, 3, rec.stages(MethodDirect, StagePreparing))
	assert.Equal(t, 0, rec.stages(MethodDirect, StageSuccess))
	assert.Equal(t, 1, rec.stages(MethodNewTab, StageSuccess))
	assert.Equal(t, []Method{MethodDirect, MethodNewTab}, res.Tried)
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, rec.sleeps)
	assert.Equal(t, []int{3}, rec.errs, "error callback fires once, on the last direct attempt")
	assert.Equal(t, "PDF opened in new tab. Use your browser's download option to save it.", res.Notice.Message)
	assert.Empty(t, sink.reports)
}

func TestDeliver_NewTabBlockedFallsBackToLink(t *testing.T) {
	rec := &recorder{}
	var saves int
	o := newTestOrchestrator(Config{
		Saver: failingSaver(errors.New("connection reset"), &saves),
		Opener: TabOpenerFunc(func(ctx context.Context, art *Artifact) error {
			return ErrPopupBlocked
		}),
		Links: NewLinkBuilder(nil),
	}, rec)

	res := o.Deliver(context.Background(), FromBytes(samplePDF), "resume.pdf", testOptions(rec))

	require.True(t, res.Success)
	assert.Equal(t, MethodLink, res.Method)
	assert.Equal(t, []Method{MethodDirect, MethodNewTab, MethodLink}, res.Tried)
	assert.Contains(t, res.Location, "data:application/pdf;base64,")
	assert.Equal(t, res.Location, res.Notice.Link)
	assert.True(t, res.Notice.Copyable)
	assert.Contains(t, res.Notice.Message, `"Save As"`)
}

func TestDeliver_NewTabDependsOnDevice(t *testing.T) {
	tests := []struct {
		name      string
		userAgent UserAgentClass
		want      []Method
		opened    int
	}{
		{name: "mobile", userAgent: UserAgentMobile, want: []Method{MethodDirect, MethodNewTab}, opened: 1},
		{name: "unknown", userAgent: UserAgentUnknown, want: []Method{MethodDirect, MethodNewTab}, opened: 1},
		{name: "cli", userAgent: UserAgentCLI, want: []Method{MethodDirect, MethodNewTab}, opened: 1},
		{name: "desktop", userAgent: UserAgentDesktop, want: []Method{MethodDirect, MethodLink}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			var saves, opened int
			o := newTestOrchestrator(Config{
				Saver: failingSaver(fs.ErrPermission, &saves),
				Opener: TabOpenerFunc(func(ctx context.Context, art *Artifact) error {
					opened++
					return nil
				}),
				Links: NewLinkBuilder(nil),
			}, rec)

			opts := testOptions(rec)
			opts.UserAgent = tt.userAgent
			res := o.Deliver(context.Background(), FromBytes(samplePDF), "resume.pdf", opts)

			require.True(t, res.Success)
			assert.Equal(t, tt.want, res.Tried)
			assert.Equal(t, tt.opened, opened)
		})
	}
}

func TestDeliver_AllStrategiesExhausted(t *testing.T) {
	rec := &recorder{}
	sink := &recordingSink{}
	var saves atomic.Int32
	o := newTestOrchestrator(Config{
		Saver: SaverFunc(func(ctx context.Context, art *Artifact) (string, error) {
			saves.Add(1)
			<-ctx.Done()
			return "", ctx.Err()
		}),
		Opener: TabOpenerFunc(func(ctx context.Context, art *Artifact) error { return ErrPopupBlocked }),
		Links: LinkPublisherFunc(func(ctx context.Context, art *Artifact) (string, error) {
			return "", ErrLinkUnavailable
		}),
		Sink: sink,
	}, rec)

	opts := testOptions(rec)
	opts.UserAgent = ClassifyUserAgent("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)")
	res := o.Deliver(context.Background(), FromBytes(samplePDF), "resume.pdf", opts)

	require.False(t, res.Success)
	assert.Equal(t, MethodNone, res.Method)
	assert.Equal(t, domain.KindAllStrategiesExhausted, res.Kind)
	assert.Equal(t, domain.KindTimeout, res.Cause)
	assert.Equal(t, domain.KindAllStrategiesExhausted, domain.KindOf(res.Err))
	assert.Equal(t, domain.KindMessage(domain.KindTimeout), res.Notice.Message)
	assert.Equal(t, NoticeError, res.Notice.Level)
	assert.Equal(t, int32(3), saves.Load())
	assert.Equal(t, []int{3}, rec.errs)

	require.Len(t, sink.reports, 1)
	report := sink.reports[0]
	assert.Equal(t, observability.ReportDownloadFailed, report.Type)
	assert.Equal(t, "all_failed", report.Method)
	assert.Equal(t, "mobile", report.UserAgentClass)
	assert.Equal(t, len(samplePDF), report.Size)
	assert.Equal(t, []string{"direct", "new-tab", "link"}, report.Tried)
	assert.Equal(t, res.DeliveryID, report.DeliveryID)
}

func TestDeliver_NonRetryableStopsDirectEarly(t *testing.T) {
	rec := &recorder{}
	var saves int
	o := newTestOrchestrator(Config{
		Saver:  failingSaver(ErrPopupBlocked, &saves),
		Opener: TabOpenerFunc(func(ctx context.Context, art *Artifact) error { return nil }),
	}, rec)

	res := o.Deliver(context.Background(), FromBytes(samplePDF), "resume.pdf", testOptions(rec))

	require.True(t, res.Success)
	assert.Equal(t, 1, saves)
	assert.Empty(t, rec.sleeps)
	assert.Equal(t, []int{1}, rec.errs)
}

func TestDeliver_EmptySourceFailsBeforeChain(t *testing.T) {
	rec := &recorder{}
	sink := &recordingSink{}
	var saves int
	o := newTestOrchestrator(Config{
		Saver: failingSaver(nil, &saves),
		Sink:  sink,
	}, rec)

	res := o.Deliver(context.Background(), FromBytes(nil), "", testOptions(rec))

	require.False(t, res.Success)
	assert.Equal(t, MethodNone, res.Method)
	assert.Equal(t, domain.KindInvalidArtifact, res.Kind)
	assert.ErrorIs(t, res.Err, ErrEmptyArtifact)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(res.Err))
	assert.Equal(t, 0, saves)
	assert.Empty(t, rec.progress, "no strategy may start for an empty artifact")
	assert.Equal(t, []int{0}, rec.errs)

	require.Len(t, sink.reports, 1)
	assert.Equal(t, observability.ReportDownloadError, sink.reports[0].Type)
	assert.Equal(t, "none", sink.reports[0].Method)
}

func TestDeliver_NonPDFIsInvalidArtifact(t *testing.T) {
	htmlPage := []byte("<!doctype html><html><body>502 Bad Gateway</body></html>")

	tests := []struct {
		name        string
		src         Source
		wantFetches int
	}{
		{name: "bytes", src: FromBytes(htmlPage)},
		{name: "fetched", src: FromURL("https://example.com/r.pdf"), wantFetches: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			var saves, fetches int
			o := newTestOrchestrator(Config{
				Saver: failingSaver(nil, &saves),
				Fetcher: fetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
					fetches++
					return htmlPage, nil
				}),
			}, rec)

			res := o.Deliver(context.Background(), tt.src, "resume.pdf", testOptions(rec))

			require.False(t, res.Success)
			assert.Equal(t, domain.KindInvalidArtifact, res.Kind)
			assert.ErrorIs(t, res.Err, ErrNotPDF)
			assert.Equal(t, tt.wantFetches, fetches, "malformed bytes are not retried")
			assert.Equal(t, 0, saves)
			assert.Empty(t, rec.sleeps)
			assert.Equal(t, 0, rec.stages(MethodDirect, StagePreparing))
		})
	}
}

func TestDeliver_FetchesURLSource(t *testing.T) {
	rec := &recorder{}
	var fetches int
	o := newTestOrchestrator(Config{
		Saver: SaverFunc(func(ctx context.Context, art *Artifact) (string, error) {
			return "ok", nil
		}),
		Fetcher: fetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
			fetches++
			if fetches < 3 {
				return nil, &FetchError{URL: url, StatusCode: 503, Status: "503 Service Unavailable"}
			}
			return samplePDF, nil
		}),
	}, rec)

	res := o.Deliver(context.Background(), FromURL("https://example.com/r.pdf"), "resume.pdf", testOptions(rec))

	require.True(t, res.Success)
	assert.Equal(t, 3, fetches)
	assert.Equal(t, 3, rec.stages("", StageFetching))
	assert.Equal(t, 1, rec.stages("", StageConverting))
	assert.Equal(t, 1, rec.stages("", StageDownloading))
	assert.Equal(t, 1, rec.stages(MethodDirect, StagePreparing))
	assert.Empty(t, rec.errs)
}

func TestDeliver_FetchExhaustedReportsError(t *testing.T) {
	rec := &recorder{}
	sink := &recordingSink{}
	o := newTestOrchestrator(Config{
		Saver: SaverFunc(func(ctx context.Context, art *Artifact) (string, error) { return "ok", nil }),
		Fetcher: fetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
			return nil, &FetchError{URL: url, StatusCode: 502, Status: "502 Bad Gateway"}
		}),
		Sink: sink,
	}, rec)

	res := o.Deliver(context.Background(), FromURL("https://example.com/r.pdf"), "resume.pdf", testOptions(rec))

	require.False(t, res.Success)
	assert.Equal(t, domain.KindNetworkError, res.Kind)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []int{3}, rec.errs)
	assert.Equal(t, 0, rec.stages(MethodDirect, StagePreparing))
	require.Len(t, sink.reports, 1)
	assert.Equal(t, observability.ReportDownloadError, sink.reports[0].Type)
}

func TestDeliver_InvalidSource(t *testing.T) {
	rec := &recorder{}
	o := newTestOrchestrator(Config{}, rec)

	res := o.Deliver(context.Background(), Source{Data: samplePDF, URL: "https://example.com"}, "r.pdf", testOptions(rec))

	assert.False(t, res.Success)
	assert.Equal(t, domain.KindInvalidArtifact, res.Kind)
}

func TestDeliver_CanceledStopsChain(t *testing.T) {
	rec := &recorder{}
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	opened := false
	o := newTestOrchestrator(Config{
		Saver: SaverFunc(func(ctx context.Context, art *Artifact) (string, error) {
			cancel()
			<-ctx.Done()
			return "", ctx.Err()
		}),
		Opener: TabOpenerFunc(func(ctx context.Context, art *Artifact) error {
			opened = true
			return nil
		}),
		Sink: sink,
	}, rec)

	res := o.Deliver(ctx, FromBytes(samplePDF), "resume.pdf", testOptions(rec))

	require.False(t, res.Success)
	assert.Equal(t, domain.KindCanceled, res.Kind)
	assert.False(t, opened)
	assert.Empty(t, sink.reports)
}

func TestDeliver_ProgressPanicIsContained(t *testing.T) {
	rec := &recorder{}
	o := newTestOrchestrator(Config{
		Saver: SaverFunc(func(ctx context.Context, art *Artifact) (string, error) { return "ok", nil }),
	}, rec)

	opts := testOptions(rec)
	opts.OnProgress = func(Progress) { panic("ui went away") }
	res := o.Deliver(context.Background(), FromBytes(samplePDF), "resume.pdf", opts)

	assert.True(t, res.Success)
}

func TestDeliver_NoStrategies(t *testing.T) {
	rec := &recorder{}
	o := newTestOrchestrator(Config{}, rec)

	res := o.Deliver(context.Background(), FromBytes(samplePDF), "resume.pdf", testOptions(rec))

	assert.False(t, res.Success)
	assert.Equal(t, domain.KindAllStrategiesExhausted, res.Kind)
	assert.Len(t, rec.errs, 1)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, backoff(time.Second, 1))
	assert.Equal(t, 2*time.Second, backoff(time.Second, 2))
	assert.Equal(t, 4*time.Second, backoff(time.Second, 3))
}

func TestOptionsWithDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, 3, o.MaxRetries)
	assert.Equal(t, 3, o.FetchRetries)
	assert.Equal(t, 30*time.Second, o.Timeout)
	assert.Equal(t, time.Second, o.RetryDelay)
	assert.Equal(t, UserAgentUnknown, o.UserAgent)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", o.DeliveryID.String())
}

func TestDeliver_ZeroRetryDelayUsesDefaultBackoff(t *testing.T) {
	rec := &recorder{}
	var saves int
	o := newTestOrchestrator(Config{
		Saver: failingSaver(context.DeadlineExceeded, &saves),
	}, rec)

	opts := testOptions(rec)
	opts.RetryDelay = 0
	o.Deliver(context.Background(), FromBytes(samplePDF), "resume.pdf", opts)

	assert.Equal(t, 3, saves)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.sleeps)
}

type fetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f fetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}
