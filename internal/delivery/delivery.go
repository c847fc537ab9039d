// Package delivery hands rendered artifacts to the user through an ordered
// chain of strategies: a retried direct transfer, then a one-shot new-tab
// fallback, then a one-shot shareable link.
//
// The Orchestrator owns ordering, retries, timeouts and progress reporting.
// The strategies themselves sit behind small interfaces (Saver, TabOpener,
// LinkPublisher) so the same pipeline serves the HTTP server and the CLI.
package delivery

import (
	"github.com/DukeRupert/folio/internal/domain"
	"github.com/google/uuid"
)

// Method identifies the strategy that delivered an artifact.
type Method string

const (
	MethodDirect Method = "direct"
	MethodNewTab Method = "new-tab"
	MethodLink   Method = "link"
	MethodNone   Method = "none"
)

// Stage is a step reported through ProgressFunc.
type Stage string

const (
	StagePreparing   Stage = "preparing"
	StageFetching    Stage = "fetching"
	StageConverting  Stage = "converting"
	StageDownloading Stage = "downloading"
	StageTriggering  Stage = "triggering"
	StageSuccess     Stage = "success"
)

// Progress is a single progress event. Method is empty for the fetch stages
// that run before any strategy.
type Progress struct {
	Stage      Stage
	Method     Method
	Attempt    int
	MaxRetries int
}

// ProgressFunc receives progress events. It must not block for long; a panic
// inside it is recovered and logged.
type ProgressFunc func(Progress)

// ErrorFunc is told about the error that ended a retried stage, along with
// the attempt it happened on (0 when no attempt was made).
type ErrorFunc func(err error, attempt int)

// Source is the artifact to deliver: raw bytes or a URL to fetch them from.
// Exactly one of the two must be set.
type Source struct {
	Data []byte
	URL  string
}

// FromBytes returns a Source for raw artifact bytes.
func FromBytes(data []byte) Source {
	return Source{Data: data}
}

// FromURL returns a Source for an artifact that must be fetched first.
func FromURL(url string) Source {
	return Source{URL: url}
}

// Artifact is the materialized payload handed to strategies.
type Artifact struct {
	ID          uuid.UUID
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the artifact size in bytes.
func (a *Artifact) Size() int {
	return len(a.Data)
}

// NoticeLevel is how prominently a Notice should be shown.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeError   NoticeLevel = "error"
)

// Notice is what the caller should tell the user about the outcome.
// Rendering it is up to the caller.
type Notice struct {
	Level    NoticeLevel
	Message  string
	Link     string
	Copyable bool
}

// Result is the outcome of one Deliver call.
type Result struct {
	Success    bool
	Method     Method
	DeliveryID uuid.UUID
	Filename   string

	// Location is where the artifact ended up: a saved object URL for
	// direct delivery or the shareable link for link delivery.
	Location string

	// Kind is the failure classification; empty on success.
	Kind domain.ErrorKind

	// Cause classifies the error that triggered the fallbacks. The notice
	// message is derived from it.
	Cause domain.ErrorKind

	Err      error
	Tried    []Method
	Attempts int
	Size     int
	Notice   Notice
}
