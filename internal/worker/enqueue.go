package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Job type constants - these must match the JobHandler.Type() values
const (
	JobTypeReportFailure = "report_delivery_failure"
)

var (
	// ErrQueueFull is returned when the queue has no room for another job.
	ErrQueueFull = errors.New("worker: queue full")

	// ErrStopped is returned when enqueuing on a stopped worker.
	ErrStopped = errors.New("worker: stopped")
)

// Job is a unit of work held in the in-memory queue.
type Job struct {
	ID          uuid.UUID
	Type        string
	Payload     []byte
	Attempts    int
	MaxAttempts int
	EnqueuedAt  time.Time
}

// EnqueueOption is a functional option for customizing a job.
type EnqueueOption func(*Job)

// WithMaxAttempts sets the maximum number of tries.
func WithMaxAttempts(attempts int) EnqueueOption {
	return func(j *Job) {
		j.MaxAttempts = attempts
	}
}

// Enqueue marshals payload and queues a job of jobType without blocking.
func (w *Worker) Enqueue(jobType string, payload interface{}, opts ...EnqueueOption) (uuid.UUID, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal payload: %w", err)
	}

	job := &Job{
		ID:          uuid.New(),
		Type:        jobType,
		Payload:     payloadJSON,
		MaxAttempts: w.config.MaxAttempts,
		EnqueuedAt:  time.Now(),
	}
	for _, opt := range opts {
		opt(job)
	}

	if err := w.push(job); err != nil {
		return uuid.Nil, err
	}
	return job.ID, nil
}
