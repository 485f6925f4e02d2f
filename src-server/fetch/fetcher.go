package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultMaxSize = 10 << 20 // 10 MiB

	upstreamExcerpt = 512
)

// Outcome labels passed to the observer.
const (
	OutcomeOK          = "ok"
	OutcomeUpstream    = "upstream_error"
	OutcomeSizeUnknown = "size_unknown"
	OutcomeTooLarge    = "too_large"
	OutcomeTimeout     = "timeout"
	OutcomeError       = "error"
)

// Bounded HTTP GETs. Every fetch gets its own timeout and byte budget; no
// retries are made.
type Fetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxSize  int64
	observer func(outcome string, elapsed time.Duration)
}

type Option func(*Fetcher)

func WithClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

func WithMaxSize(maxSize int64) Option {
	return func(f *Fetcher) {
		if maxSize > 0 {
			f.maxSize = maxSize
		}
	}
}

// Called once per fetch with the outcome of the request phase.
func WithObserver(observer func(outcome string, elapsed time.Duration)) Option {
	return func(f *Fetcher) {
		f.observer = observer
	}
}

func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{},
		timeout: DefaultTimeout,
		maxSize: DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) MaxSize() int64 {
	return f.maxSize
}

// Open a remote resource as a lazily read body. The upstream has to declare
// a Content-Length within the budget; the body additionally counts what it
// actually reads. Closing the body (or cancelling ctx) aborts the transfer.
func (f *Fetcher) FetchBytes(ctx context.Context, rawURL string, header http.Header) (io.ReadCloser, error) {
	return f.open(ctx, rawURL, header, true)
}

func (f *Fetcher) open(ctx context.Context, rawURL string, header http.Header, requireLength bool) (rc io.ReadCloser, err error) {
	start := time.Now()
	outcome := OutcomeOK
	defer func() {
		if err != nil {
			outcome = outcomeOf(err)
			slog.Warn("fetch failed", "url", RedactURL(rawURL), "outcome", outcome, "error", err)
		}
		if f.observer != nil {
			f.observer(outcome, time.Since(start))
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("fetch: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	// keeps the transport from negotiating gzip, which hides Content-Length
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("fetch %s: %w", RedactURL(rawURL), classify(ctx, fetchCtx, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, upstreamExcerpt))
		resp.Body.Close()
		cancel()
		return nil, &UpstreamError{
			URL:    RedactURL(rawURL),
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(excerpt)),
		}
	}

	switch {
	case resp.ContentLength < 0 && requireLength:
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("fetch %s: %w", RedactURL(rawURL), ErrSizeUnknown)
	case resp.ContentLength > f.maxSize:
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("fetch %s: %w: declared %d bytes, limit %d", RedactURL(rawURL), ErrPayloadTooLarge, resp.ContentLength, f.maxSize)
	}

	return &body{
		rc:        resp.Body,
		remaining: f.maxSize,
		limit:     f.maxSize,
		parent:    ctx,
		ctx:       fetchCtx,
		cancel:    cancel,
	}, nil
}

// Map transport errors onto the fetch taxonomy. A deadline of our own
// becomes ErrTimeout; a cancelled caller is passed through as is.
func classify(parent, fetchCtx context.Context, err error) error {
	switch {
	case parent.Err() != nil:
		return parent.Err()
	case errors.Is(fetchCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return err
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrUpstream):
		return OutcomeUpstream
	case errors.Is(err, ErrSizeUnknown):
		return OutcomeSizeUnknown
	case errors.Is(err, ErrPayloadTooLarge):
		return OutcomeTooLarge
	case errors.Is(err, ErrTimeout):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

// Keep scheme, host and path; drop the query (it carries tokens) and the
// user info.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "(unparsable url)"
	}
	redacted := u.Scheme + "://" + u.Host + u.EscapedPath()
	if u.RawQuery != "" {
		redacted += "?..."
	}
	return redacted
}
