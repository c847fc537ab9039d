package delivery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"

	"github.com/DukeRupert/folio/internal/domain"
	"github.com/DukeRupert/folio/internal/storage"
)

var (
	// ErrEmptyArtifact is returned when the source holds no bytes.
	ErrEmptyArtifact = errors.New("delivery: artifact is empty")

	// ErrNotPDF is returned when the source bytes are not a PDF document,
	// such as an HTML error page served with a 200.
	ErrNotPDF = errors.New("delivery: artifact is not a PDF")

	// ErrInvalidSource is returned when a source sets both or neither of
	// Data and URL.
	ErrInvalidSource = errors.New("delivery: source must set exactly one of data or url")

	// ErrPopupBlocked is returned when a new browsing context could not be opened.
	ErrPopupBlocked = errors.New("delivery: new browsing context was blocked")

	// ErrAttemptTimeout is returned when a single attempt exceeds its bound.
	ErrAttemptTimeout = errors.New("delivery: attempt timed out")

	// ErrNotConfirmed is returned when a save could not be confirmed.
	ErrNotConfirmed = errors.New("delivery: transfer was not confirmed")

	// ErrLinkUnavailable is returned when an artifact is too large to inline
	// and no storage is configured for temporary links.
	ErrLinkUnavailable = errors.New("delivery: no storage for large artifact links")
)

// FetchError reports a non-2xx response while fetching a URL source.
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %s", e.URL, e.Status)
}

// Classify maps an error from any delivery step onto the error taxonomy.
func Classify(err error) domain.ErrorKind {
	if err == nil {
		return ""
	}

	var derr *domain.Error
	if errors.As(err, &derr) && derr.Kind != "" {
		return derr.Kind
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return domain.KindCanceled
	case errors.Is(err, ErrAttemptTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, os.ErrDeadlineExceeded):
		return domain.KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return domain.KindTimeout
	case errors.Is(err, ErrEmptyArtifact), errors.Is(err, ErrNotPDF), errors.Is(err, ErrInvalidSource):
		return domain.KindInvalidArtifact
	case errors.Is(err, ErrPopupBlocked),
		errors.Is(err, storage.ErrAccessDenied),
		errors.Is(err, fs.ErrPermission):
		return domain.KindPermissionBlocked
	}

	var fetchErr *FetchError
	var urlErr *url.Error
	switch {
	case errors.As(err, &fetchErr),
		errors.As(err, &urlErr),
		errors.As(err, &netErr),
		storage.IsUnavailable(err):
		return domain.KindNetworkError
	}

	return domain.KindUnknown
}
