// Package worker runs background jobs from a bounded in-memory queue.
//
// It carries fire-and-forget work such as delivery failure reports, where
// the caller must never wait on, or be failed by, the job.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DukeRupert/folio/internal/metrics"
)

// Worker manages background job processing with concurrent workers.
type Worker struct {
	handlers map[string]JobHandler
	config   Config
	logger   *slog.Logger

	queue chan *Job

	mu      sync.RWMutex
	stopped bool

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// New creates a new Worker with the given configuration.
// The worker must be started with Start() and stopped with Stop().
func New(config Config, logger *slog.Logger) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Worker{
		handlers: make(map[string]JobHandler),
		config:   config,
		logger:   logger,
		queue:    make(chan *Job, config.QueueSize),
		stopCh:   make(chan struct{}),
	}, nil
}

// Register adds a job handler to the worker. Call this before Start().
func (w *Worker) Register(handler JobHandler) {
	jobType := handler.Type()
	if _, exists := w.handlers[jobType]; exists {
		w.logger.Warn("Overwriting existing handler", "job_type", jobType)
	}
	w.handlers[jobType] = handler
	w.logger.Debug("Registered job handler", "job_type", jobType)
}

// Start launches the configured number of runner goroutines.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.config.Concurrency; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}

	w.logger.Info("Worker started",
		"concurrency", w.config.Concurrency,
		"queue_size", w.config.QueueSize,
	)
}

// Stop refuses new jobs, drains what is queued and waits for runners to
// finish, up to ShutdownTimeout.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.mu.Unlock()

	w.logger.Info("Stopping worker...")
	close(w.stopCh)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Worker stopped gracefully")
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("Worker shutdown timeout exceeded, some jobs may still be running",
			"queued", len(w.queue))
	}
}

// push adds job to the queue without blocking.
func (w *Worker) push(job *Job) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return ErrStopped
	}

	select {
	case w.queue <- job:
		metrics.JobQueueDepth.Set(float64(len(w.queue)))
		return nil
	default:
		return ErrQueueFull
	}
}

// run is the main loop for a runner goroutine. After Stop it drains the
// jobs still queued and returns.
func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()

	logger := w.logger.With("worker_id", workerID)
	logger.Debug("Worker started")

	for {
		select {
		case job := <-w.queue:
			w.process(ctx, job, logger)
		case <-w.stopCh:
			for {
				select {
				case job := <-w.queue:
					w.process(ctx, job, logger)
				default:
					logger.Debug("Worker stopping")
					return
				}
			}
		}
	}
}

// process executes one try of job and schedules a retry if it failed with a
// transient error and attempts remain.
func (w *Worker) process(ctx context.Context, job *Job, logger *slog.Logger) {
	metrics.JobQueueDepth.Set(float64(len(w.queue)))

	job.Attempts++
	logger = logger.With("job_id", job.ID, "job_type", job.Type, "attempt", job.Attempts)
	logger.Debug("Processing job")

	start := time.Now()
	err := w.execute(ctx, job)
	if err == nil {
		metrics.JobCompleted(job.Type, time.Since(start))
		logger.Debug("Job completed")
		return
	}

	if IsPermanent(err) || job.Attempts >= job.MaxAttempts {
		metrics.JobFailed(job.Type)
		logger.Error("Job failed", "error", err, "permanent", IsPermanent(err))
		return
	}

	metrics.JobRetried(job.Type)
	delay := w.config.RetryDelay * time.Duration(1<<(job.Attempts-1))
	logger.Warn("Job failed, retrying", "error", err, "delay", delay)
	w.scheduleRetry(job, delay, logger)
}

// execute runs the handler for the job with a timeout context. Panics in
// handlers are converted into permanent failures.
func (w *Worker) execute(ctx context.Context, job *Job) (err error) {
	handler, ok := w.handlers[job.Type]
	if !ok {
		return Permanentf("no handler registered for job type: %s", job.Type)
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = Permanentf("job handler panicked: %v", r)
		}
	}()

	return handler.Handle(jobCtx, job.Payload)
}

func (w *Worker) scheduleRetry(job *Job, delay time.Duration, logger *slog.Logger) {
	time.AfterFunc(delay, func() {
		if err := w.push(job); err != nil {
			metrics.JobFailed(job.Type)
			logger.Error("Dropping job retry", "error", err)
		}
	})
}
