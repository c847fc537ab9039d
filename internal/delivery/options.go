package delivery

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
	DefaultTimeout    = 30 * time.Second
)

// Options configures a single delivery.
type Options struct {
	// MaxRetries bounds direct transfer attempts. Default 3.
	MaxRetries int

	// FetchRetries bounds fetch attempts for URL sources. Defaults to MaxRetries.
	FetchRetries int

	// RetryDelay is the backoff base; attempt n waits RetryDelay * 2^(n-1)
	// before attempt n+1. Zero or negative means the 1s default.
	RetryDelay time.Duration

	// Timeout bounds each individual attempt. Default 30s.
	Timeout time.Duration

	OnProgress ProgressFunc
	OnError    ErrorFunc

	// UserAgent classifies the requesting device. It is recorded in failure
	// reports, and desktop clients skip the new-tab fallback.
	UserAgent UserAgentClass

	// DeliveryID identifies the delivery end to end. Generated when zero.
	DeliveryID uuid.UUID
}

// DefaultOptions returns the default delivery options.
func DefaultOptions() Options {
	return Options{
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		Timeout:    DefaultTimeout,
		UserAgent:  UserAgentUnknown,
	}
}

// withDefaults fills zero or negative values with defaults.
func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.FetchRetries <= 0 {
		o.FetchRetries = o.MaxRetries
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = UserAgentUnknown
	}
	if o.DeliveryID == uuid.Nil {
		o.DeliveryID = uuid.New()
	}
	return o
}

// backoff returns the wait after a failed attempt.
func backoff(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(1<<(attempt-1))
}
