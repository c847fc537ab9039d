package delivery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fetcher retrieves artifact bytes for URL sources.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// DefaultMaxFetchSize caps how much a fetch will read.
const DefaultMaxFetchSize = 50 << 20

// HTTPFetcher fetches artifacts over HTTP.
type HTTPFetcher struct {
	client  *http.Client
	maxSize int64

	// allowed restricts fetches to these hosts when non-nil. An empty,
	// non-nil set refuses every URL.
	allowed map[string]struct{}
}

// NewHTTPFetcher returns an HTTPFetcher. A nil client gets a default one;
// the per-attempt bound comes from the context, not the client.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &HTTPFetcher{client: client, maxSize: DefaultMaxFetchSize}
}

// WithAllowedHosts limits fetches to the given hosts (host or host:port,
// compared case-insensitively). Calling it with no hosts refuses all URLs.
func (f *HTTPFetcher) WithAllowedHosts(hosts ...string) *HTTPFetcher {
	f.allowed = make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			f.allowed[h] = struct{}{}
		}
	}
	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.checkURL(rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", ErrInvalidSource, f.maxSize)
	}
	return data, nil
}

func (f *HTTPFetcher) checkURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidSource, u.Scheme)
	}
	if f.allowed == nil {
		return nil
	}
	host := strings.ToLower(u.Host)
	if _, ok := f.allowed[host]; ok {
		return nil
	}
	if _, ok := f.allowed[strings.ToLower(u.Hostname())]; ok {
		return nil
	}
	return fmt.Errorf("%w: host %q is not allowed", ErrInvalidSource, u.Host)
}
