package observability

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DukeRupert/folio/internal/repository"
	"github.com/DukeRupert/folio/internal/worker"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFailureStore struct {
	got []repository.CreateDeliveryFailureParams
	err error
}

func (f *fakeFailureStore) CreateDeliveryFailure(ctx context.Context, arg repository.CreateDeliveryFailureParams) (repository.DeliveryFailure, error) {
	if f.err != nil {
		return repository.DeliveryFailure{}, f.err
	}
	f.got = append(f.got, arg)
	return repository.DeliveryFailure{ID: uuid.New(), DeliveryID: arg.DeliveryID}, nil
}

type recordingSink struct {
	reports chan FailureReport
	err     error
}

func (s *recordingSink) Report(ctx context.Context, r FailureReport) error {
	if s.reports != nil {
		s.reports <- r
	}
	return s.err
}

func sampleReport() FailureReport {
	return FailureReport{
		DeliveryID:     uuid.New(),
		Type:           ReportDownloadFailed,
		Kind:           "timeout",
		Error:          "attempt timed out",
		Filename:       "Jane_Doe_Resume.pdf",
		Method:         "all_failed",
		UserAgentClass: "mobile",
		Size:           2048,
		Tried:          []string{"direct", "new-tab", "link"},
		Attempts:       5,
		OccurredAt:     time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestStoreSink_Report(t *testing.T) {
	store := &fakeFailureStore{}
	sink := NewStoreSink(store)
	r := sampleReport()

	require.NoError(t, sink.Report(context.Background(), r))
	require.Len(t, store.got, 1)

	got := store.got[0]
	assert.Equal(t, r.DeliveryID, got.DeliveryID)
	assert.Equal(t, "download_failed", got.Type)
	assert.Equal(t, int64(2048), got.SizeBytes)
	assert.Equal(t, "mobile", got.UserAgentClass)
	assert.True(t, got.Details.Valid)

	var details storedDetails
	require.NoError(t, json.Unmarshal(got.Details.RawMessage, &details))
	assert.Equal(t, []string{"direct", "new-tab", "link"}, details.Tried)
	assert.Equal(t, 5, details.Attempts)
	assert.Equal(t, "timeout", details.Kind)
}

func TestStoreSink_ReportError(t *testing.T) {
	sink := NewStoreSink(&fakeFailureStore{err: errors.New("db down")})
	assert.Error(t, sink.Report(context.Background(), sampleReport()))
}

func TestMultiSink_JoinsErrors(t *testing.T) {
	ok := &recordingSink{reports: make(chan FailureReport, 1)}
	bad := &recordingSink{err: errors.New("nope")}

	err := MultiSink{bad, ok}.Report(context.Background(), sampleReport())

	assert.Error(t, err)
	assert.Len(t, ok.reports, 1, "later sinks still receive the report")
}

func TestLogSink_NeverFails(t *testing.T) {
	sink := NewLogSink(slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NoError(t, sink.Report(context.Background(), sampleReport()))
}

func TestAsyncSink_DeliversThroughWorker(t *testing.T) {
	cfg := worker.DefaultConfig()
	cfg.ShutdownTimeout = time.Second
	w, err := worker.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	inner := &recordingSink{reports: make(chan FailureReport, 1)}
	w.Register(NewReportHandler(inner))
	w.Start(context.Background())
	defer w.Stop()

	r := sampleReport()
	require.NoError(t, NewAsyncSink(w).Report(context.Background(), r))

	select {
	case got := <-inner.reports:
		assert.Equal(t, r.DeliveryID, got.DeliveryID)
		assert.Equal(t, r.Tried, got.Tried)
		assert.True(t, r.OccurredAt.Equal(got.OccurredAt))
	case <-time.After(2 * time.Second):
		t.Fatal("report was not forwarded")
	}
}

func TestAsyncSink_QueueFull(t *testing.T) {
	cfg := worker.DefaultConfig()
	cfg.QueueSize = 1
	w, err := worker.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	sink := NewAsyncSink(w)
	require.NoError(t, sink.Report(context.Background(), sampleReport()))

	err = sink.Report(context.Background(), sampleReport())
	assert.ErrorIs(t, err, worker.ErrQueueFull)
}

func TestReportHandler_MalformedPayloadIsPermanent(t *testing.T) {
	h := NewReportHandler(&recordingSink{})
	err := h.Handle(context.Background(), []byte("{not json"))
	assert.True(t, worker.IsPermanent(err))
}
