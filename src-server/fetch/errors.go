package fetch

import (
	"errors"
	"fmt"
)

var (
	ErrUpstream        = errors.New("upstream error")
	ErrSizeUnknown     = errors.New("upstream did not declare Content-Length")
	ErrPayloadTooLarge = errors.New("upstream payload too large")
	ErrTimeout         = errors.New("upstream timed out")
)

// Non-2xx answer from the upstream. Body is truncated to a short excerpt.
type UpstreamError struct {
	URL    string // redacted
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s answered %d: %s", e.URL, e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}
